package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/kgc/internal/config"
	"github.com/roach88/kgc/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string // SQLite database path
	Catalog string // Pattern catalog path; empty selects the embedded catalog
	Metrics string // Prometheus textfile path; empty disables

	// Config is the environment configuration with flag overrides applied.
	// Populated before any subcommand runs.
	Config config.Config

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the kgc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "kgc",
		Short: "kgc - declarative workflow kernel",
		Long: `Execute workflow topologies stored as triples.

Every node is resolved to one of five verbs through a pattern catalog and
fired as a transaction. Each transaction writes a receipt into a hash chain
that can be re-verified at any time.

Configuration comes from KGC_* environment variables, overridden by flags.`,
		Version:       fmt.Sprintf("%s (ir %s)", ir.KernelVersion, ir.IRVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to SQLite database (default KGC_DB or kgc.db)")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "pattern catalog .cue file or directory (default KGC_CATALOG or embedded)")
	cmd.PersistentFlags().StringVar(&opts.Metrics, "metrics-file", "", "write driver metrics to this Prometheus textfile (default KGC_METRICS_FILE)")

	// Add subcommands
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewFireCommand(opts))
	cmd.AddCommand(NewStepCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewReceiptsCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve merges environment configuration with explicitly set flags and
// sets up logging.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = o.Format
	}
	if flags.Changed("db") {
		cfg.DBPath = o.DB
	}
	if flags.Changed("catalog") {
		cfg.CatalogPath = o.Catalog
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = o.Metrics
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if !isValidFormat(cfg.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", cfg.Format, ValidFormats))
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	o.Format = cfg.Format
	o.DB = cfg.DBPath
	o.Catalog = cfg.CatalogPath
	o.Metrics = cfg.MetricsFile
	o.Config = cfg

	level, _ := cfg.SlogLevel()
	o.logger = newLogger(cmd.ErrOrStderr(), level)
	return nil
}

// newLogger logs to w so that stdout stays clean for command output.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Logger returns the configured logger, or a discarding one before resolve.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return newLogger(io.Discard, slog.LevelError)
	}
	return o.logger
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
