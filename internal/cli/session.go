package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/kgc/internal/catalog"
	"github.com/roach88/kgc/internal/driver"
	"github.com/roach88/kgc/internal/kernel"
	"github.com/roach88/kgc/internal/resolver"
	"github.com/roach88/kgc/internal/shape"
	"github.com/roach88/kgc/internal/store"
)

// session is an open store with a driver over it.
type session struct {
	store   *store.Store
	driver  *driver.Driver
	metrics *prometheus.Registry
	out     string // metrics textfile, empty when disabled
	logger  *slog.Logger
}

// openStore opens (creating if needed) the configured database.
func openStore(path string, logger *slog.Logger) (*store.Store, error) {
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}
	st, err := store.Open(clean, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadCatalog compiles the configured catalog, or the embedded default.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		c, err := catalog.Default()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load default catalog", err)
		}
		return c, nil
	}
	c, errs := catalog.Load(path)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitFailure, "invalid catalog", errors.Join(errs...))
	}
	return c, nil
}

// openSession opens the store and builds a driver whose sequence clock
// resumes after the last recorded receipt.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cat, err := loadCatalog(opts.Catalog)
	if err != nil {
		return nil, err
	}
	st, err := openStore(opts.DB, opts.Logger())
	if err != nil {
		return nil, err
	}
	last, err := st.LastSeq(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read receipt log", err)
	}

	reg := prometheus.NewRegistry()
	dopts := append([]driver.Option{
		driver.WithClock(driver.NewClockAt(last)),
		driver.WithLogger(opts.Logger()),
		driver.WithMetrics(driver.NewMetrics(reg)),
	}, opts.Config.DriverOptions()...)
	d := driver.New(st, resolver.New(cat), kernel.New(), shape.New(), dopts...)
	return &session{store: st, driver: d, metrics: reg, out: opts.Metrics, logger: opts.Logger()}, nil
}

// Close writes the metrics textfile, if configured, and closes the store.
func (s *session) Close() error {
	var errs []error
	if s.out != "" {
		if err := prometheus.WriteToTextfile(s.out, s.metrics); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// release closes the session from a defer, logging any failure.
func (s *session) release() {
	if err := s.Close(); err != nil {
		s.logger.Warn("session close failed",
			"error", err,
			"event", "session_close_failed",
		)
	}
}
