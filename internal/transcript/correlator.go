package transcript

import (
	"sync"

	"github.com/odochat/odochat/internal/logging"
)

// Correlator matches asynchronous tool results to the invocations that
// produced them. Call ids are unique for the session lifetime; the index is
// cleared on session reset so late results from a previous identity are
// treated as orphans.
type Correlator struct {
	store *Store
	log   *logging.Logger

	mu    sync.Mutex
	owner map[string]string // tool call id → owning turn id
}

// NewCorrelator creates a correlator writing through the given store.
func NewCorrelator(store *Store, log *logging.Logger) *Correlator {
	return &Correlator{
		store: store,
		log:   log.Sub("correlator"),
		owner: make(map[string]string),
	}
}

// OnToolCalls records invoked refs on the owning turn and indexes them.
func (c *Correlator) OnToolCalls(turnID string, calls []ToolCallRef) {
	refs := make([]ToolCallRef, 0, len(calls))
	c.mu.Lock()
	for _, call := range calls {
		call.Status = CallInvoked
		call.Result = nil
		c.owner[call.ID] = turnID
		refs = append(refs, call)
	}
	c.mu.Unlock()

	c.store.ApplyToolCalls(turnID, refs)
}

// OnToolResult attaches a result to its invocation. Unknown ids are logged
// and surfaced as a standalone tool turn rather than dropped; duplicates
// for settled calls are ignored.
func (c *Correlator) OnToolResult(res ToolResult) {
	c.mu.Lock()
	turnID, ok := c.owner[res.ToolCallID]
	c.mu.Unlock()

	if !ok {
		c.log.Warn().
			Str("toolCallId", res.ToolCallID).
			Str("tool", res.Name).
			Msg("orphan tool result, surfacing as standalone turn")
		c.store.AppendToolTurn(res)
		return
	}

	c.store.ApplyToolResult(turnID, res)
}

// Reset clears the invocation index. The transcript itself is untouched.
func (c *Correlator) Reset() {
	c.mu.Lock()
	c.owner = make(map[string]string)
	c.mu.Unlock()
}
