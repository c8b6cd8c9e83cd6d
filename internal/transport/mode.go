// Package transport owns the websocket connection to the agent backend:
// dialing the mode-specific endpoint, pumping inbound messages as typed
// events, and reconnecting with a fixed delay after unexpected closes.
package transport

import "fmt"

// Mode selects the backend conversation endpoint.
type Mode string

const (
	ModeAgent Mode = "agent" // ReAct agent with tools
	ModeAsk   Mode = "ask"   // retrieval-augmented ask mode
)

// Path returns the websocket path serving the mode.
func (m Mode) Path() string {
	if m == ModeAsk {
		return "/ws/ask"
	}
	return "/ws/react"
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAgent, ModeAsk:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want agent or ask)", s)
}
