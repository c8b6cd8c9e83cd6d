// Package protocol classifies raw payloads from the agent backend into
// typed envelopes and builds outbound messages.
//
// The backend emits one JSON object per websocket message. The top-level
// key (rag / agent / tools) selects the variant; anything that fails to
// parse or match is a plain-text chunk, never an error.
package protocol

// Kind discriminates envelope variants.
type Kind string

const (
	KindRagComplete    Kind = "rag_complete"
	KindRagPartial     Kind = "rag_partial"
	KindAgentContent   Kind = "agent_content"
	KindAgentToolCalls Kind = "agent_tool_calls"
	KindToolResults    Kind = "tool_results"
	KindPlainText      Kind = "plain_text"
)

// ToolCall is one agent-issued tool invocation from the wire.
type ToolCall struct {
	ID           string
	Name         string
	ArgumentsRaw string // JSON string, opaque to the client
}

// ToolResult reports the outcome of one tool invocation.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	Status     string // "success" | "error"
}

// Usage carries the backend's token accounting for a turn.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Envelope is one classified wire message. Exactly one inbound payload maps
// to exactly one Envelope; the Kind field selects which other fields are set.
type Envelope struct {
	Kind      Kind
	Text      string // content for rag/agent/plain variants
	Usage     *Usage
	ToolCalls []ToolCall   // agent_tool_calls only
	Results   []ToolResult // tool_results only
	Raw       string       // original payload, kept for anomaly logging
}
