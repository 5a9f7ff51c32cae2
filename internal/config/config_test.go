package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, NewValidator().Validate(DefaultConfig()))
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfigFile(t, `
core:
  home_dir: /var/lib/planmode
  debug: true
database:
  path: /var/lib/planmode/state.db
  max_connections: 4
  busy_timeout: 2s
events:
  buffer_size: 50
logging:
  level: debug
  format: text
tracing:
  enabled: true
`)

	cfg, err := NewConfigLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/planmode", cfg.Core.HomeDir)
	assert.True(t, cfg.Core.Debug)
	assert.Equal(t, "/var/lib/planmode/state.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Database.MaxConnections)
	assert.Equal(t, 2*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, 50, cfg.Events.BufferSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoadPartialConfigFillsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: warn
`)

	cfg, err := NewConfigLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, DefaultConfig().Logging.Format, cfg.Logging.Format)
	assert.Equal(t, DefaultConfig().Database.MaxConnections, cfg.Database.MaxConnections)
	assert.Equal(t, DefaultConfig().Events.BufferSize, cfg.Events.BufferSize)
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("PLANMODE_TEST_DIR", "/data/planmode")

	path := writeConfigFile(t, `
core:
  home_dir: ${PLANMODE_TEST_DIR}
database:
  path: ${PLANMODE_TEST_DIR}/state.db
`)

	cfg, err := NewConfigLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/planmode", cfg.Core.HomeDir)
	assert.Equal(t, "/data/planmode/state.db", cfg.Database.Path)
}

func TestLoadEnvInterpolationUnsetVarKept(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: ${PLANMODE_DEFINITELY_UNSET_VAR}/state.db
`)

	cfg, err := NewConfigLoader(NewValidator()).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${PLANMODE_DEFINITELY_UNSET_VAR}/state.db", cfg.Database.Path)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "bad log level",
			content: `
logging:
  level: loud
`,
		},
		{
			name: "zero buffer size",
			content: `
events:
  buffer_size: 0
`,
		},
		{
			name: "too many connections",
			content: `
database:
  max_connections: 5000
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := NewConfigLoader(NewValidator()).Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	loader := NewConfigLoader(NewValidator())

	_, err := loader.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	loader := NewConfigLoader(NewValidator())

	cfg, err := loader.LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	require.NoError(t, WriteDefault(path))
	assert.Error(t, WriteDefault(path), "must not overwrite an existing file")

	cfg, err := NewConfigLoader(NewValidator()).Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
