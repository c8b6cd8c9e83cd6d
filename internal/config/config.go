package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			HTTPURL: "http://127.0.0.1:8000",
			WSURL:   "ws://127.0.0.1:8000",
		},
		Session: SessionConfig{
			Mode: "agent",
		},
		Stream: StreamConfig{
			IdleTimeoutMs: 1000,
		},
		Transport: TransportConfig{
			ReconnectDelayMs:   3000,
			HandshakeTimeoutMs: 10000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
