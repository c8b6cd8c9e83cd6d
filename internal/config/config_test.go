package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "http://127.0.0.1:8000", cfg.Server.HTTPURL)
	assert.Equal(t, "ws://127.0.0.1:8000", cfg.Server.WSURL)
	assert.Equal(t, "agent", cfg.Session.Mode)
	assert.Equal(t, 1000, cfg.Stream.IdleTimeoutMs)
	assert.Equal(t, 3000, cfg.Transport.ReconnectDelayMs)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  httpUrl: http://backend:9000
  wsUrl: ws://backend:9000
session:
  mode: ask
stream:
  idleTimeoutMs: 500
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000", cfg.Server.HTTPURL)
	assert.Equal(t, "ask", cfg.Session.Mode)
	assert.Equal(t, 500, cfg.Stream.IdleTimeoutMs)
	// unset fields fall back to defaults
	assert.Equal(t, 3000, cfg.Transport.ReconnectDelayMs)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: valid"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ODOCHAT_WS_URL", "ws://override:8080")
	t.Setenv("ODOCHAT_MODE", "ASK")
	t.Setenv("ODOCHAT_LOG_LEVEL", "DEBUG")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ws://override:8080", cfg.Server.WSURL)
	assert.Equal(t, "ask", cfg.Session.Mode)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("BACKEND_HOST", "agent.internal")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  httpUrl: http://${BACKEND_HOST}:8000
  wsUrl: ws://${UNSET_HOST_VAR}:8000
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://agent.internal:8000", cfg.Server.HTTPURL)
	assert.Equal(t, "ws://${UNSET_HOST_VAR}:8000", cfg.Server.WSURL, "unset vars stay as-is")
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	t.Setenv("ODOCHAT_HOME", base)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(base, "odochat.db"), paths.Database)

	require.NoError(t, paths.EnsureDirs())
	info, err := os.Stat(paths.Logs)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
