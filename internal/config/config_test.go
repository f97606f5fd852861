package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "kgc.db", cfg.DBPath)
	assert.Empty(t, cfg.CatalogPath)
	assert.Equal(t, 250*time.Millisecond, cfg.VerbTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 1000, cfg.MaxSteps)
	assert.Equal(t, 0, cfg.Parallelism)
	assert.Equal(t, "text", cfg.Format)
	assert.Empty(t, cfg.MetricsFile)
	assert.Len(t, cfg.DriverOptions(), 3)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KGC_DB", "/tmp/wf.db")
	t.Setenv("KGC_CATALOG", "patterns.cue")
	t.Setenv("KGC_VERB_TIMEOUT", "2s")
	t.Setenv("KGC_MAX_RETRIES", "0")
	t.Setenv("KGC_PARALLELISM", "4")
	t.Setenv("KGC_LOG_LEVEL", "DEBUG")
	t.Setenv("KGC_FORMAT", "json")
	t.Setenv("KGC_METRICS_FILE", "/var/lib/node_exporter/kgc.prom")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/wf.db", cfg.DBPath)
	assert.Equal(t, "patterns.cue", cfg.CatalogPath)
	assert.Equal(t, 2*time.Second, cfg.VerbTimeout)
	assert.Equal(t, 0, cfg.MaxRetries)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "/var/lib/node_exporter/kgc.prom", cfg.MetricsFile)
	assert.Len(t, cfg.DriverOptions(), 4)

	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("KGC_MAX_RETRIES", "many")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{DBPath: "kgc.db", VerbTimeout: time.Second, MaxRetries: 3, MaxSteps: 10, LogLevel: "info", Format: "text"}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty db", func(c *Config) { c.DBPath = "" }, "KGC_DB"},
		{"zero timeout", func(c *Config) { c.VerbTimeout = 0 }, "KGC_VERB_TIMEOUT"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "KGC_MAX_RETRIES"},
		{"zero steps", func(c *Config) { c.MaxSteps = 0 }, "KGC_MAX_STEPS"},
		{"negative parallelism", func(c *Config) { c.Parallelism = -2 }, "KGC_PARALLELISM"},
		{"bad format", func(c *Config) { c.Format = "yaml" }, "KGC_FORMAT"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "KGC_LOG_LEVEL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
