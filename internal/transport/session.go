package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/odochat/odochat/internal/logging"
)

var (
	// ErrNotConnected is returned by Send when no socket is live. There is
	// no hidden queue; the caller must treat this as a rejected send and
	// drive its own rollback.
	ErrNotConnected = errors.New("transport: not connected")
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// EventKind discriminates transport events.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventMessage      EventKind = "message"
	EventDisconnected EventKind = "disconnected"
)

// Event is one typed transport occurrence delivered to the dispatcher.
type Event struct {
	Kind EventKind
	Mode Mode
	Text string // message payload
	Err  error  // disconnect cause
}

// Config controls the transport session.
type Config struct {
	// BaseURL is the websocket origin, e.g. ws://127.0.0.1:8000.
	BaseURL string

	// ReconnectDelay is the fixed wait between retries after an unexpected
	// close. Default: 3 seconds.
	ReconnectDelay time.Duration

	// HandshakeTimeout bounds the websocket dial. Default: 10 seconds.
	HandshakeTimeout time.Duration
}

// Session owns one live socket per (session id, mode). Connect starts a
// dial-and-pump loop that retries on unexpected closes; Close tears the
// loop down and stops retrying. A mode switch is Connect with the new mode:
// the old loop is cancelled before the new endpoint is dialed.
type Session struct {
	cfg    Config
	log    *logging.Logger
	events chan Event

	mu    sync.Mutex
	state State
	mode  Mode
	conn  *websocket.Conn
	done  chan struct{} // closed to cancel the current loop
}

// New creates a disconnected transport session.
func New(cfg Config, log *logging.Logger) *Session {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Session{
		cfg:    cfg,
		log:    log.Sub("transport"),
		events: make(chan Event, 64),
		state:  StateDisconnected,
	}
}

// Events returns the channel of typed transport events. It stays valid
// across reconnects and mode switches.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the mode of the current (or most recent) connection.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Connect tears down any existing connection and starts the dial loop for
// the given mode. The teardown is synchronous: the old socket and its retry
// loop are cancelled before the new dial begins, so tail messages from the
// old endpoint cannot interleave with the new stream.
func (s *Session) Connect(mode Mode) {
	s.mu.Lock()
	s.teardownLocked()
	s.mode = mode
	s.state = StateConnecting
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.log.Info().Str("mode", string(mode)).Msg("connecting")
	go s.run(mode, done)
}

// Close tears down the connection and stops the retry loop. Safe to call
// repeatedly.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// Send writes one payload to the live socket. It fails fast with
// ErrNotConnected when no socket is up.
func (s *Session) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.conn == nil {
		return ErrNotConnected
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) teardownLocked() {
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.state = StateDisconnected
}

func (s *Session) run(mode Mode, done chan struct{}) {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	url := s.cfg.BaseURL + mode.Path()

	for {
		select {
		case <-done:
			return
		default:
		}

		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			s.log.Warn().Err(err).Str("url", url).Msg("dial failed")
			s.emit(Event{Kind: EventDisconnected, Mode: mode, Err: err}, done)
			if !s.waitRetry(done) {
				return
			}
			continue
		}

		s.mu.Lock()
		select {
		case <-done:
			// teardown raced the dial
			s.mu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conn = conn
		s.state = StateConnected
		s.mu.Unlock()

		s.log.Info().Str("mode", string(mode)).Msg("connected")
		s.emit(Event{Kind: EventConnected, Mode: mode}, done)

		err = s.readPump(conn, mode, done)

		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.state = StateConnecting
		}
		s.mu.Unlock()

		select {
		case <-done:
			return
		default:
		}

		s.log.Warn().Err(err).Str("mode", string(mode)).Msg("connection lost, retrying")
		s.emit(Event{Kind: EventDisconnected, Mode: mode, Err: err}, done)
		if !s.waitRetry(done) {
			return
		}
	}
}

func (s *Session) readPump(conn *websocket.Conn, mode Mode, done chan struct{}) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.emit(Event{Kind: EventMessage, Mode: mode, Text: string(msg)}, done)
	}
}

func (s *Session) emit(ev Event, done chan struct{}) {
	select {
	case s.events <- ev:
	case <-done:
	}
}

func (s *Session) waitRetry(done chan struct{}) bool {
	select {
	case <-done:
		return false
	case <-time.After(s.cfg.ReconnectDelay):
		return true
	}
}
