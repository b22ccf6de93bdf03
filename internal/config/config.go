// Package config resolves authflow settings.
// Priority: env vars > settings.yaml > defaults. The CLI layers its flags on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all authflow configuration.
type Config struct {
	Autoconfigure  bool   `yaml:"autoconfigure"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	DBPath         string `yaml:"db_path"`
	FlowsDir       string `yaml:"flows_dir"`
	DefaultDialect string `yaml:"default_dialect"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Autoconfigure:  true,
		LogLevel:       "info",
		LogFormat:      "text",
		DBPath:         "file:" + filepath.Join(Dir(), "authflow.db"),
		FlowsDir:       filepath.Join(Dir(), "flows"),
		DefaultDialect: "expr",
	}
}

// Dir is the per-user authflow directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".authflow"
	}
	return filepath.Join(home, ".authflow")
}

// SettingsPath is the default settings file location.
func SettingsPath() string {
	return filepath.Join(Dir(), "settings.yaml")
}

// Load resolves configuration using the settings file at path. A missing
// file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg, os.Getenv)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("AUTHFLOW_AUTOCONFIGURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Autoconfigure = b
		}
	}
	if v := getenv("AUTHFLOW_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("AUTHFLOW_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("AUTHFLOW_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("AUTHFLOW_FLOWS_DIR"); v != "" {
		cfg.FlowsDir = v
	}
	if v := getenv("AUTHFLOW_DEFAULT_DIALECT"); v != "" {
		cfg.DefaultDialect = v
	}
}

// Validate rejects values no component accepts.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	switch c.DefaultDialect {
	case "expr", "cel", "jq":
	default:
		return fmt.Errorf("default_dialect must be expr, cel or jq, got %q", c.DefaultDialect)
	}
	return nil
}
