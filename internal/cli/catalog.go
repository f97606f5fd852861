package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kgc/internal/catalog"
	"github.com/roach88/kgc/internal/resolver"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and check pattern catalogs",
	}
	cmd.AddCommand(newCatalogCheckCommand(opts))
	cmd.AddCommand(newCatalogListCommand(opts))
	cmd.AddCommand(newCatalogResolveCommand(opts))
	return cmd
}

// CatalogCheckResult is the output of catalog check.
type CatalogCheckResult struct {
	Source   string   `json:"source"`
	Patterns int      `json:"patterns"`
	Errors   []string `json:"errors"`
}

func (r CatalogCheckResult) renderText(w io.Writer, _ bool) {
	if len(r.Errors) == 0 {
		fmt.Fprintf(w, "✓ %s: %d patterns\n", r.Source, r.Patterns)
		return
	}
	fmt.Fprintf(w, "✗ %s: %d errors\n", r.Source, len(r.Errors))
	fmt.Fprintln(w, indent(r.Errors))
}

func newCatalogCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check [path]",
		Short: "Compile and validate a pattern catalog",
		Long: `Compile a CUE pattern catalog (a .cue file or a package directory)
and report every error: schema violations, parameters outside their closed
sets, parameters a verb does not accept and duplicate signatures.

Without a path the --catalog flag, KGC_CATALOG or the embedded catalog is
checked.

Examples:
  kgc catalog check
  kgc catalog check ./patterns --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.Catalog
			if len(args) == 1 {
				path = args[0]
			}
			return runCatalogCheck(cmd, opts, path)
		},
	}
}

func runCatalogCheck(cmd *cobra.Command, opts *RootOptions, path string) error {
	result := CatalogCheckResult{Source: path, Errors: []string{}}

	var (
		c    *catalog.Catalog
		errs []error
	)
	if path == "" {
		result.Source = "embedded"
		var err error
		if c, err = catalog.Default(); err != nil {
			errs = []error{err}
		}
	} else {
		c, errs = catalog.Load(path)
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, err.Error())
	}
	if c != nil {
		result.Patterns = c.Len()
	}

	out := newFormatter(cmd, opts)
	if len(result.Errors) == 0 {
		return out.Success(result)
	}
	if opts.Format == "json" {
		if err := out.Failure(result, errs[0]); err != nil {
			return err
		}
	} else {
		result.renderText(out.Writer, opts.Verbose)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("catalog has %d errors", len(result.Errors)))
}

// PatternView is the output form of a catalog entry.
type PatternView struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Key    string `json:"signature"`
	Config string `json:"config"`
}

// PatternList is the output of catalog list.
type PatternList []PatternView

func (l PatternList) renderText(w io.Writer, verbose bool) {
	for _, p := range l {
		if verbose {
			fmt.Fprintf(w, "%2d %-32s %-60s %s\n", p.ID, p.Name, p.Key, p.Config)
			continue
		}
		fmt.Fprintf(w, "%2d %-32s %s\n", p.ID, p.Name, p.Config)
	}
}

func newCatalogListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the patterns of the configured catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog(opts.Catalog)
			if err != nil {
				return err
			}
			list := PatternList{}
			for _, e := range c.Entries() {
				list = append(list, PatternView{
					ID:     e.ID,
					Name:   e.Name,
					Key:    string(e.Match.Key()),
					Config: e.Config.String(),
				})
			}
			return newFormatter(cmd, opts).Success(list)
		},
	}
}

// ResolveResult is the output of catalog resolve.
type ResolveResult struct {
	NodeID    string `json:"node_id"`
	Signature string `json:"signature"`
	Pattern   string `json:"pattern"`
	PatternID int    `json:"pattern_id"`
	Config    string `json:"config"`
}

func (r ResolveResult) renderText(w io.Writer, _ bool) {
	fmt.Fprintf(w, "%s: %s\n", r.NodeID, r.Signature)
	fmt.Fprintf(w, "  pattern %d %s -> %s\n", r.PatternID, r.Pattern, r.Config)
}

func newCatalogResolveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <node>",
		Short: "Show which pattern a stored node resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogResolve(cmd, opts, args[0])
		},
	}
}

func runCatalogResolve(cmd *cobra.Command, opts *RootOptions, node string) error {
	c, err := loadCatalog(opts.Catalog)
	if err != nil {
		return err
	}
	st, err := openStore(opts.DB, opts.Logger())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	g, _, err := st.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read graph", err)
	}
	res, err := resolver.New(c).ResolveDetail(ctx, g, node)
	if err != nil {
		out := newFormatter(cmd, opts)
		if ferr := out.Failure(nil, err); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "unresolved", err)
	}
	return newFormatter(cmd, opts).Success(ResolveResult{
		NodeID:    node,
		Signature: string(res.Signature.Key()),
		Pattern:   res.Entry.Name,
		PatternID: res.Entry.ID,
		Config:    res.Entry.Config.String(),
	})
}
