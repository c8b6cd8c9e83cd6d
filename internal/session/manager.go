// Package session owns conversation identity: the opaque session id, the
// current mode, and the reset choreography that keeps the transcript, the
// correlator, and the transport consistent across transitions.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/odochat/odochat/internal/logging"
	"github.com/odochat/odochat/internal/protocol"
	"github.com/odochat/odochat/internal/transcript"
	"github.com/odochat/odochat/internal/transport"
)

// StateStore persists session identity between runs.
type StateStore interface {
	LoadState() (id, mode string, err error)
	SaveState(id, mode string) error
}

// Transport is the slice of the transport session the manager drives.
type Transport interface {
	Connect(mode transport.Mode)
	Close()
	Send(payload []byte) error
}

// Manager is the sole creator and destroyer of session identity. Every
// transition (new chat, mode switch) settles the pending stream and clears
// the tool-call index before the socket moves, so an old stream's tail can
// never leak into the new identity.
type Manager struct {
	state       StateStore
	transcript  *transcript.Store
	accumulator *transcript.Accumulator
	correlator  *transcript.Correlator
	transport   Transport
	log         *logging.Logger

	mu   sync.Mutex
	id   string
	mode transport.Mode
}

// NewManager wires a manager over the transcript machinery and transport.
func NewManager(
	state StateStore,
	store *transcript.Store,
	accumulator *transcript.Accumulator,
	correlator *transcript.Correlator,
	tr Transport,
	log *logging.Logger,
) *Manager {
	return &Manager{
		state:       state,
		transcript:  store,
		accumulator: accumulator,
		correlator:  correlator,
		transport:   tr,
		log:         log.Sub("session"),
	}
}

// Start restores the persisted session identity (or mints a new one) and
// connects the transport. Returns the active session id.
func (m *Manager) Start(defaultMode transport.Mode) (string, error) {
	id, modeStr, err := m.state.LoadState()
	if err != nil {
		return "", fmt.Errorf("loading session state: %w", err)
	}

	mode := defaultMode
	if modeStr != "" {
		if parsed, err := transport.ParseMode(modeStr); err == nil {
			mode = parsed
		}
	}
	fresh := id == ""
	if fresh {
		id = uuid.New().String()
	}

	m.mu.Lock()
	m.id = id
	m.mode = mode
	m.mu.Unlock()

	if err := m.state.SaveState(id, string(mode)); err != nil {
		return "", fmt.Errorf("persisting session state: %w", err)
	}

	m.log.Info().Str("sessionId", id).Str("mode", string(mode)).Bool("new", fresh).Msg("session started")
	m.transport.Connect(mode)
	return id, nil
}

// Current returns the active session id and mode.
func (m *Manager) Current() (string, transport.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.mode
}

// Send optimistically appends the user turn, then hands the message to the
// transport. A rejected send rolls the turn back so the transcript returns
// to its exact prior state.
func (m *Manager) Send(text string) error {
	m.mu.Lock()
	id, mode := m.id, m.mode
	m.mu.Unlock()

	turnID := m.transcript.AppendUserTurn(text)

	payload, err := protocol.Outbound{Message: text, SessionID: id, Mode: string(mode)}.Encode()
	if err == nil {
		err = m.transport.Send(payload)
	}
	if err != nil {
		m.transcript.RemoveTurn(turnID)
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// NewChat mints a fresh session id, clears the transcript and the tool-call
// index, persists the new identity, and reconnects under it. The pending
// stream is finalized first rather than discarded so no content is lost.
func (m *Manager) NewChat() (string, error) {
	m.accumulator.Finalize()
	m.correlator.Reset()
	m.transcript.Reset()

	id := uuid.New().String()
	m.mu.Lock()
	m.id = id
	mode := m.mode
	m.mu.Unlock()

	if err := m.state.SaveState(id, string(mode)); err != nil {
		return "", fmt.Errorf("persisting session state: %w", err)
	}

	m.log.Info().Str("sessionId", id).Msg("new chat")
	m.transport.Connect(mode)
	return id, nil
}

// SetMode switches the conversation mode, finalizing the pending stream and
// orphaning any in-flight tool-call ids before the mode endpoint is redialed.
// The transcript and session id are kept.
func (m *Manager) SetMode(mode transport.Mode) error {
	m.mu.Lock()
	if mode == m.mode {
		m.mu.Unlock()
		return nil
	}
	m.mode = mode
	id := m.id
	m.mu.Unlock()

	m.accumulator.Finalize()
	m.correlator.Reset()

	if err := m.state.SaveState(id, string(mode)); err != nil {
		return fmt.Errorf("persisting session state: %w", err)
	}

	m.log.Info().Str("mode", string(mode)).Msg("mode switched")
	m.transport.Connect(mode)
	return nil
}

// Stop finalizes the pending stream and closes the transport.
func (m *Manager) Stop() {
	m.accumulator.Finalize()
	m.transport.Close()
}
