// Package config reads process configuration from the environment.
//
// Every setting has a KGC_ variable and a default; the CLI overrides them
// with flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/kgc/internal/driver"
)

// Config is the process configuration.
type Config struct {
	DBPath      string        `env:"KGC_DB" envDefault:"kgc.db"`
	CatalogPath string        `env:"KGC_CATALOG"` // Empty selects the embedded catalog
	VerbTimeout time.Duration `env:"KGC_VERB_TIMEOUT" envDefault:"250ms"`
	MaxRetries  int           `env:"KGC_MAX_RETRIES" envDefault:"3"`
	MaxSteps    int           `env:"KGC_MAX_STEPS" envDefault:"1000"`
	Parallelism int           `env:"KGC_PARALLELISM"` // 0 means GOMAXPROCS
	LogLevel    string        `env:"KGC_LOG_LEVEL" envDefault:"info"`
	Format      string        `env:"KGC_FORMAT" envDefault:"text"`
	MetricsFile string        `env:"KGC_METRICS_FILE"` // Prometheus textfile written after fire/step/run
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and closed value sets.
func (c Config) Validate() error {
	switch {
	case c.DBPath == "":
		return fmt.Errorf("KGC_DB must not be empty")
	case c.VerbTimeout <= 0:
		return fmt.Errorf("KGC_VERB_TIMEOUT must be positive, got %s", c.VerbTimeout)
	case c.MaxRetries < 0:
		return fmt.Errorf("KGC_MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	case c.MaxSteps <= 0:
		return fmt.Errorf("KGC_MAX_STEPS must be positive, got %d", c.MaxSteps)
	case c.Parallelism < 0:
		return fmt.Errorf("KGC_PARALLELISM must not be negative, got %d", c.Parallelism)
	case c.Format != "text" && c.Format != "json":
		return fmt.Errorf("KGC_FORMAT must be text or json, got %q", c.Format)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("KGC_LOG_LEVEL: unknown level %q", c.LogLevel)
	}
}

// DriverOptions translates the driver limits into driver options.
func (c Config) DriverOptions() []driver.Option {
	opts := []driver.Option{
		driver.WithVerbTimeout(c.VerbTimeout),
		driver.WithMaxRetries(c.MaxRetries),
		driver.WithMaxSteps(c.MaxSteps),
	}
	if c.Parallelism > 0 {
		opts = append(opts, driver.WithParallelism(c.Parallelism))
	}
	return opts
}
