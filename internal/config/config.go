// Package config loads coda CLI settings from YAML or TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete CLI configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Encode  EncodeConfig  `yaml:"encode" toml:"encode"`
	Decode  DecodeConfig  `yaml:"decode" toml:"decode"`
	Store   StoreConfig   `yaml:"store" toml:"store"`
	Workers int           `yaml:"workers" toml:"workers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text or json
}

// EncodeConfig holds output format settings.
type EncodeConfig struct {
	Version int `yaml:"version" toml:"version"` // 1 (legacy) through 4
}

// DecodeConfig holds input settings.
type DecodeConfig struct {
	// Predicates names a definitions file used to resolve predicate cells in
	// legacy files, which carry no definitions block of their own.
	Predicates string `yaml:"predicates" toml:"predicates"`
}

// StoreConfig holds snapshot store settings.
type StoreConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // sqlite or sqlite3
	Path   string `yaml:"path" toml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Encode:  EncodeConfig{Version: 2},
		Store:   StoreConfig{Driver: "sqlite", Path: "coda-snapshots.db"},
		Workers: runtime.NumCPU(),
	}
}

// Load reads a configuration file. Files ending in .toml are parsed as TOML,
// anything else as YAML. Environment variables written as ${VAR_NAME} are
// expanded first, and unset fields keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable
// values. Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// Validate checks that all configuration fields are valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not text or json", c.Logging.Format)
	}

	if c.Encode.Version < 1 || c.Encode.Version > 4 {
		return fmt.Errorf("encode.version must be between 1 and 4, got %d", c.Encode.Version)
	}

	switch c.Store.Driver {
	case "sqlite", "sqlite3":
	default:
		return fmt.Errorf("store.driver %q is not sqlite or sqlite3", c.Store.Driver)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	return nil
}
