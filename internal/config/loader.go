package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	cfg.Server.HTTPURL = expandEnvVars(cfg.Server.HTTPURL)
	cfg.Server.WSURL = expandEnvVars(cfg.Server.WSURL)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPURL == "" {
		cfg.Server.HTTPURL = "http://127.0.0.1:8000"
	}
	if cfg.Server.WSURL == "" {
		cfg.Server.WSURL = "ws://127.0.0.1:8000"
	}
	if cfg.Session.Mode == "" {
		cfg.Session.Mode = "agent"
	}
	if cfg.Stream.IdleTimeoutMs == 0 {
		cfg.Stream.IdleTimeoutMs = 1000
	}
	if cfg.Transport.ReconnectDelayMs == 0 {
		cfg.Transport.ReconnectDelayMs = 3000
	}
	if cfg.Transport.HandshakeTimeoutMs == 0 {
		cfg.Transport.HandshakeTimeoutMs = 10000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads ODOCHAT_* environment variables and overrides
// config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ODOCHAT_HTTP_URL"); v != "" {
		cfg.Server.HTTPURL = v
	}
	if v := os.Getenv("ODOCHAT_WS_URL"); v != "" {
		cfg.Server.WSURL = v
	}
	if v := os.Getenv("ODOCHAT_MODE"); v != "" {
		cfg.Session.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("ODOCHAT_IDLE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Stream.IdleTimeoutMs = ms
		}
	}
	if v := os.Getenv("ODOCHAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
