package protocol

import "encoding/json"

// Outbound is the single message shape the client sends to the backend.
type Outbound struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
	Mode      string `json:"mode"`
}

// Encode serializes the outbound message for the wire.
func (o Outbound) Encode() ([]byte, error) {
	return json.Marshal(o)
}
