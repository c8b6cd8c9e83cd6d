package transcript

import (
	"sync"
	"time"

	"github.com/odochat/odochat/internal/logging"
)

// DefaultIdleTimeout finalizes a streaming turn after this much inbound
// silence. The legacy ask-mode stream has no end-of-turn sentinel, so idle
// detection is the only completion signal.
const DefaultIdleTimeout = 1000 * time.Millisecond

// AccumulatorConfig controls chunk accumulation.
type AccumulatorConfig struct {
	// IdleTimeout finalizes the active turn when no new chunk arrives
	// within this duration. Default: 1 second.
	IdleTimeout time.Duration
}

// Accumulator folds sequential streamed chunks into one transcript turn and
// finalizes it after a period of inbound silence. Ordering within a stream
// is guaranteed by the single delivery channel; the idle timer is the only
// clock-driven mutation and is re-armed on every chunk.
type Accumulator struct {
	cfg   AccumulatorConfig
	store *Store
	log   *logging.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewAccumulator creates an accumulator that writes through the given store.
func NewAccumulator(cfg AccumulatorConfig, store *Store, log *logging.Logger) *Accumulator {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Accumulator{cfg: cfg, store: store, log: log.Sub("stream")}
}

// OnChunk appends a streamed chunk to the active turn, starting one when
// idle, and re-arms the idle timer. Returns the active turn's id.
func (a *Accumulator) OnChunk(text string, usage *Usage) string {
	a.mu.Lock()
	a.rearmLocked()
	a.mu.Unlock()
	return a.store.BeginOrAppendStream(text, usage)
}

// Touch ensures a streaming turn exists without adding content, re-arming
// the idle timer. Used when a tool-call envelope opens an agent turn that
// has no text yet.
func (a *Accumulator) Touch() string {
	return a.OnChunk("", nil)
}

// Finalize synchronously cancels the idle timer and finalizes any active
// turn. Safe to call when idle. This is the teardown path for session and
// mode switches: the timer and turn are settled before a new stream can
// start.
func (a *Accumulator) Finalize() string {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()
	return a.store.FinalizeActiveStream()
}

func (a *Accumulator) rearmLocked() {
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.cfg.IdleTimeout, a.onIdle)
}

func (a *Accumulator) onIdle() {
	a.mu.Lock()
	a.timer = nil
	a.mu.Unlock()
	if id := a.store.FinalizeActiveStream(); id != "" {
		a.log.Debug().Str("turnId", id).Msg("stream finalized on idle timeout")
	}
}
