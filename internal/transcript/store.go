package transcript

import (
	"sync"

	"github.com/google/uuid"

	"github.com/odochat/odochat/internal/logging"
)

// Op names one kind of store mutation.
type Op string

const (
	OpAppend     Op = "append"      // new turn added
	OpStream     Op = "stream"      // active streaming turn content grew
	OpFinalize   Op = "finalize"    // streaming turn became final
	OpToolCalls  Op = "tool_calls"  // tool call refs attached to a turn
	OpToolResult Op = "tool_result" // a tool call ref settled
	OpRemove     Op = "remove"      // optimistic turn rolled back
	OpReset      Op = "reset"       // transcript cleared
)

// Change describes one store mutation, delivered to the subscriber after
// every mutating call. Rendering concerns (batching, scheduling) stay with
// the subscriber.
type Change struct {
	Op     Op
	TurnID string
	Turn   *Turn // snapshot of the affected turn, nil for remove/reset
}

// Store is the single source of truth for the transcript. It is append-only
// except for the one active streaming turn's content and in-place tool call
// settlement, and it never holds two streaming turns at once.
type Store struct {
	log *logging.Logger

	mu       sync.Mutex
	turns    []*Turn
	activeID string // id of the single streaming turn, "" when idle
	notify   func(Change)
}

// NewStore creates an empty transcript store.
func NewStore(log *logging.Logger) *Store {
	return &Store{log: log.Sub("transcript")}
}

// OnChange registers the single change subscriber (the renderer). Must be
// called before the event loop starts; later registration replaces the
// previous subscriber.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// emit delivers a change outside the store lock so the subscriber may read
// back from the store.
func (s *Store) emit(c Change) {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn(c)
	}
}

// AppendUserTurn appends a final user turn and returns its id. The append is
// optimistic: callers that fail to hand the message to the transport must
// roll it back with RemoveTurn.
func (s *Store) AppendUserTurn(text string) string {
	t := &Turn{
		ID:      uuid.New().String(),
		Role:    RoleUser,
		Content: text,
		Status:  StatusFinal,
	}

	s.mu.Lock()
	s.turns = append(s.turns, t)
	snap := t.clone()
	s.mu.Unlock()

	s.emit(Change{Op: OpAppend, TurnID: t.ID, Turn: &snap})
	return t.ID
}

// AppendAgentTurn appends an already-complete agent turn, finalizing any
// active stream first so the single-streaming invariant holds.
func (s *Store) AppendAgentTurn(content string, usage *Usage) string {
	s.FinalizeActiveStream()

	t := &Turn{
		ID:      uuid.New().String(),
		Role:    RoleAgent,
		Content: content,
		Status:  StatusFinal,
		Usage:   usage,
	}

	s.mu.Lock()
	s.turns = append(s.turns, t)
	snap := t.clone()
	s.mu.Unlock()

	s.emit(Change{Op: OpAppend, TurnID: t.ID, Turn: &snap})
	return t.ID
}

// BeginOrAppendStream appends chunk to the active streaming turn, creating
// a new streaming agent turn when none is active. Returns the active turn's
// id. A non-nil usage is recorded on the turn as it arrives.
func (s *Store) BeginOrAppendStream(chunk string, usage *Usage) string {
	s.mu.Lock()

	if s.activeID != "" {
		t := s.findLocked(s.activeID)
		t.Content += chunk
		if usage != nil {
			t.Usage = usage
		}
		id := t.ID
		snap := t.clone()
		s.mu.Unlock()
		s.emit(Change{Op: OpStream, TurnID: id, Turn: &snap})
		return id
	}

	t := &Turn{
		ID:      uuid.New().String(),
		Role:    RoleAgent,
		Content: chunk,
		Status:  StatusStreaming,
		Usage:   usage,
	}
	s.turns = append(s.turns, t)
	s.activeID = t.ID
	snap := t.clone()
	s.mu.Unlock()

	s.emit(Change{Op: OpAppend, TurnID: t.ID, Turn: &snap})
	return t.ID
}

// FinalizeActiveStream marks the active streaming turn final and clears the
// active pointer. Returns the finalized turn's id, or "" when no stream was
// active.
func (s *Store) FinalizeActiveStream() string {
	s.mu.Lock()
	if s.activeID == "" {
		s.mu.Unlock()
		return ""
	}
	t := s.findLocked(s.activeID)
	t.Status = StatusFinal
	s.activeID = ""
	id := t.ID
	snap := t.clone()
	s.mu.Unlock()

	s.emit(Change{Op: OpFinalize, TurnID: id, Turn: &snap})
	return id
}

// ApplyToolCalls attaches invocation refs to the given turn.
func (s *Store) ApplyToolCalls(turnID string, calls []ToolCallRef) bool {
	s.mu.Lock()
	t := s.findLocked(turnID)
	if t == nil {
		s.mu.Unlock()
		return false
	}
	t.ToolCalls = append(t.ToolCalls, calls...)
	snap := t.clone()
	s.mu.Unlock()

	s.emit(Change{Op: OpToolCalls, TurnID: turnID, Turn: &snap})
	return true
}

// ApplyToolResult settles the matching tool call ref on the given turn.
// Settlement happens at most once: a duplicate result for an already-settled
// call is ignored and reported as false, with no change emitted.
func (s *Store) ApplyToolResult(turnID string, res ToolResult) bool {
	s.mu.Lock()
	t := s.findLocked(turnID)
	if t == nil {
		s.mu.Unlock()
		return false
	}

	for i := range t.ToolCalls {
		tc := &t.ToolCalls[i]
		if tc.ID != res.ToolCallID {
			continue
		}
		if tc.Status != CallInvoked {
			s.mu.Unlock()
			s.log.Debug().Str("toolCallId", res.ToolCallID).Msg("duplicate tool result ignored")
			return false
		}
		if res.Status == ResultError {
			tc.Status = CallFailed
		} else {
			tc.Status = CallCompleted
		}
		r := res
		tc.Result = &r
		snap := t.clone()
		s.mu.Unlock()
		s.emit(Change{Op: OpToolResult, TurnID: turnID, Turn: &snap})
		return true
	}

	s.mu.Unlock()
	return false
}

// AppendToolTurn surfaces a tool result with no known invocation as a
// standalone tool turn so its content is never lost.
func (s *Store) AppendToolTurn(res ToolResult) string {
	status := StatusFinal
	if res.Status == ResultError {
		status = StatusError
	}
	t := &Turn{
		ID:      uuid.New().String(),
		Role:    RoleTool,
		Content: res.Content,
		Status:  status,
		ToolCalls: []ToolCallRef{{
			ID:     res.ToolCallID,
			Name:   res.Name,
			Status: settledStatus(res.Status),
			Result: &res,
		}},
	}

	s.mu.Lock()
	s.turns = append(s.turns, t)
	snap := t.clone()
	s.mu.Unlock()

	s.emit(Change{Op: OpAppend, TurnID: t.ID, Turn: &snap})
	return t.ID
}

// RemoveTurn deletes the turn with the given id, restoring the exact state
// before its insertion. Used for optimistic rollback on send failure.
func (s *Store) RemoveTurn(id string) bool {
	s.mu.Lock()
	idx := -1
	for i, t := range s.turns {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.turns = append(s.turns[:idx], s.turns[idx+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	s.mu.Unlock()

	s.emit(Change{Op: OpRemove, TurnID: id})
	return true
}

// Reset clears the transcript. Server-side history is untouched.
func (s *Store) Reset() {
	s.mu.Lock()
	s.turns = nil
	s.activeID = ""
	s.mu.Unlock()

	s.emit(Change{Op: OpReset})
}

// Turn returns a snapshot of the turn with the given id.
func (s *Store) Turn(id string) (Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.findLocked(id); t != nil {
		return t.clone(), true
	}
	return Turn{}, false
}

// Snapshot returns a copy of every turn in display order.
func (s *Store) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, 0, len(s.turns))
	for _, t := range s.turns {
		out = append(out, t.clone())
	}
	return out
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// ActiveStreamID returns the id of the streaming turn, or "".
func (s *Store) ActiveStreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *Store) findLocked(id string) *Turn {
	for _, t := range s.turns {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func settledStatus(rs ResultStatus) CallStatus {
	if rs == ResultError {
		return CallFailed
	}
	return CallCompleted
}
