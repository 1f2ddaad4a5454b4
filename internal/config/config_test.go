package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Encode.Version)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("CODA_TEST_STORE", "/var/lib/coda/snaps.db")

	path := writeConfig(t, "coda.yaml", `
logging:
  level: debug
  format: json
encode:
  version: 4
decode:
  predicates: legacy.defs
store:
  path: ${CODA_TEST_STORE}
workers: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Encode.Version)
	assert.Equal(t, "legacy.defs", cfg.Decode.Predicates)
	assert.Equal(t, "/var/lib/coda/snaps.db", cfg.Store.Path)
	assert.Equal(t, "sqlite", cfg.Store.Driver, "unset fields keep defaults")
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "coda.toml", `
workers = 2

[logging]
level = "warn"

[store]
driver = "sqlite3"
path = "snaps.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, "snaps.db", cfg.Store.Path)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 2, cfg.Encode.Version)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", "logging: [unclosed\n"))
	assert.ErrorContains(t, err, "parsing config file")

	_, err = Load(writeConfig(t, "bad.toml", "workers = \n"))
	assert.ErrorContains(t, err, "parsing config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"version low", func(c *Config) { c.Encode.Version = 0 }, "encode.version"},
		{"version high", func(c *Config) { c.Encode.Version = 5 }, "encode.version"},
		{"driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CODA_A", "alpha")
	assert.Equal(t, "x alpha y", expandEnvVars("x ${CODA_A} y"))
	assert.Equal(t, "x  y", expandEnvVars("x ${CODA_UNSET_VARIABLE} y"))
}
