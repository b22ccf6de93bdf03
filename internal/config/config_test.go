package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Autoconfigure)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "expr", cfg.DefaultDialect)
}

func TestLoad_SettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("autoconfigure: false\nlog_level: debug\nflows_dir: /srv/flows\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Autoconfigure)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/flows", cfg.FlowsDir)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))
	t.Setenv("AUTHFLOW_LOG_LEVEL", "warn")
	t.Setenv("AUTHFLOW_DEFAULT_DIALECT", "cel")
	t.Setenv("AUTHFLOW_AUTOCONFIGURE", "0")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "cel", cfg.DefaultDialect)
	assert.False(t, cfg.Autoconfigure)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"json format", func(c *Config) { c.LogFormat = "JSON" }, false},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"jq dialect", func(c *Config) { c.DefaultDialect = "jq" }, false},
		{"bad dialect", func(c *Config) { c.DefaultDialect = "lua" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
