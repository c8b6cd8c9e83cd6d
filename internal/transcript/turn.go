// Package transcript holds the append-only conversation transcript and the
// state machines that mutate it. All mutation funnels through Store; no
// other component touches Turn values directly.
package transcript

// Role classifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleTool  Role = "tool"
)

// Status tracks a turn's lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusFinal     Status = "final"
	StatusError     Status = "error"
)

// CallStatus tracks a tool invocation's lifecycle. An invoked call settles
// to completed or failed exactly once.
type CallStatus string

const (
	CallInvoked   CallStatus = "invoked"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
)

// ResultStatus reports how a tool invocation ended.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
)

// ToolResult is the outcome delivered for a tool call.
type ToolResult struct {
	ToolCallID string       `json:"toolCallId"`
	Name       string       `json:"name,omitempty"`
	Content    string       `json:"content"`
	Status     ResultStatus `json:"status"`
}

// ToolCallRef records one agent-issued tool invocation on a turn.
type ToolCallRef struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	ArgumentsRaw string      `json:"argumentsRaw,omitempty"`
	Status       CallStatus  `json:"status"`
	Result       *ToolResult `json:"result,omitempty"`
}

// Usage mirrors the token accounting reported by the backend.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Turn is one transcript entry. Content is mutable only while the turn is
// streaming; tool call refs settle in place.
type Turn struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Content   string        `json:"content"`
	Status    Status        `json:"status"`
	ToolCalls []ToolCallRef `json:"toolCalls,omitempty"`
	Usage     *Usage        `json:"usage,omitempty"`
}

// clone returns a deep copy so callers can never alias store-held state.
func (t *Turn) clone() Turn {
	out := *t
	if len(t.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCallRef, len(t.ToolCalls))
		copy(out.ToolCalls, t.ToolCalls)
		for i, tc := range t.ToolCalls {
			if tc.Result != nil {
				res := *tc.Result
				out.ToolCalls[i].Result = &res
			}
		}
	}
	if t.Usage != nil {
		u := *t.Usage
		out.Usage = &u
	}
	return out
}
