package config

// Config is the root configuration for odochat.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Stream    StreamConfig    `yaml:"stream,omitempty"`
	Transport TransportConfig `yaml:"transport,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Store     StoreConfig     `yaml:"store,omitempty"`
}

// ServerConfig points at the agent backend.
type ServerConfig struct {
	HTTPURL string `yaml:"httpUrl,omitempty"` // history endpoint origin
	WSURL   string `yaml:"wsUrl,omitempty"`   // websocket origin
}

// SessionConfig defines session behavior.
type SessionConfig struct {
	Mode string `yaml:"mode,omitempty"` // "agent" | "ask", initial mode for fresh installs
}

// StreamConfig controls streamed-turn accumulation.
type StreamConfig struct {
	// IdleTimeoutMs finalizes a streaming turn after this much inbound
	// silence. The legacy ask-mode stream carries no end-of-turn marker,
	// so this is the completion signal.
	IdleTimeoutMs int `yaml:"idleTimeoutMs,omitempty"`
}

// TransportConfig controls the websocket connection.
type TransportConfig struct {
	ReconnectDelayMs   int `yaml:"reconnectDelayMs,omitempty"`
	HandshakeTimeoutMs int `yaml:"handshakeTimeoutMs,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// StoreConfig controls local persistence.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // sqlite file, default ~/.odochat/odochat.db
}
