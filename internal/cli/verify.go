package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kgc/internal/shape"
	"github.com/roach88/kgc/internal/store"
)

// VerifyResult is the output of the verify command.
type VerifyResult struct {
	Valid      bool     `json:"valid"`
	Committed  int      `json:"committed"`
	Rejected   int      `json:"rejected"`
	Tip        string   `json:"tip"`
	ChainError string   `json:"chain_error,omitempty"`
	Violations []string `json:"violations"`
}

func (r VerifyResult) renderText(w io.Writer, _ bool) {
	if r.ChainError != "" {
		fmt.Fprintf(w, "✗ receipt chain: %s\n", r.ChainError)
	} else {
		fmt.Fprintf(w, "✓ receipt chain: %d committed, %d rejected, tip %s\n", r.Committed, r.Rejected, short(r.Tip))
	}
	if len(r.Violations) == 0 {
		fmt.Fprintln(w, "✓ graph shape")
		return
	}
	fmt.Fprintf(w, "✗ graph shape: %d violations\n", len(r.Violations))
	fmt.Fprintln(w, indent(r.Violations))
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-verify the receipt chain and the graph shape",
		Long: `Replay every committed receipt from the genesis hash, recompute its
merkle root and check the links and the stored tip. Then check the current
graph against the shape rules.

Exit codes:
  0 - Chain and graph are valid
  1 - Broken chain or shape violations
  2 - Command error

Examples:
  kgc verify
  kgc verify --db ./wf.db --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts)
		},
	}
}

func runVerify(cmd *cobra.Command, opts *RootOptions) error {
	ctx := cmd.Context()
	st, err := openStore(opts.DB, opts.Logger())
	if err != nil {
		return err
	}
	defer st.Close()

	result := VerifyResult{Valid: true, Violations: []string{}}

	report, err := st.VerifyChain(ctx)
	var ce *store.ChainError
	switch {
	case errors.As(err, &ce):
		result.Valid = false
		result.ChainError = ce.Error()
	case err != nil:
		return WrapExitError(ExitCommandError, "failed to verify chain", err)
	}
	result.Committed = report.Committed
	result.Rejected = report.Rejected
	result.Tip = report.Tip

	g, _, err := st.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read graph", err)
	}
	for _, v := range shape.New().Check(g) {
		result.Violations = append(result.Violations, v.String())
	}
	if len(result.Violations) > 0 {
		result.Valid = false
	}

	out := newFormatter(cmd, opts)
	if result.Valid {
		return out.Success(result)
	}
	if opts.Format == "json" {
		if err := out.Failure(result, errors.New("verification failed")); err != nil {
			return err
		}
	} else {
		result.renderText(out.Writer, opts.Verbose)
	}
	return NewExitError(ExitFailure, "verification failed")
}
