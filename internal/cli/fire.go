package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kgc/internal/driver"
	"github.com/roach88/kgc/internal/ir"
)

// parseData decodes the --data flag. Floats are rejected.
func parseData(s string) (ir.IRObject, error) {
	if s == "" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --data", err)
	}
	return obj, nil
}

// NewFireCommand creates the fire command.
func NewFireCommand(opts *RootOptions) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "fire <node>",
		Short: "Fire one node as a transaction",
		Long: `Resolve the node through the pattern catalog, execute its verb and
commit the resulting delta.

A rejected transaction still writes a receipt; the command prints it and
exits with status 1.

Examples:
  kgc fire review
  kgc fire approve --data '{"amount": 150}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFire(cmd, opts, args[0], data)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "run-time data as a JSON object")
	return cmd
}

func runFire(cmd *cobra.Command, opts *RootOptions, node, data string) error {
	obj, err := parseData(data)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.release()

	out := newFormatter(cmd, opts)
	r, err := s.driver.Fire(ctx, driver.Request{NodeID: node, Data: obj})
	switch {
	case err == nil:
		return out.Success(newReceiptView(r))
	case driver.IsRejection(err):
		if ferr := out.Failure(newReceiptView(r), err); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "transaction rejected", err)
	default:
		return WrapExitError(ExitCommandError, "fire failed", err)
	}
}

// NewStepCommand creates the step command.
func NewStepCommand(opts *RootOptions) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "step",
		Short: "Fire every node that holds a token once",
		Long: `Fire every active node against one snapshot. Verbs are evaluated
concurrently and committed in node order; a plan whose snapshot went stale
is re-run from the new tip.

Examples:
  kgc step
  kgc step --data '{"choice": "ship"}' --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(cmd, opts, data)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "run-time data as a JSON object")
	return cmd
}

func runStep(cmd *cobra.Command, opts *RootOptions, data string) error {
	obj, err := parseData(data)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.release()

	receipts, err := s.driver.Step(ctx, obj)
	if err != nil {
		return WrapExitError(ExitCommandError, "step failed", err)
	}
	return newFormatter(cmd, opts).Success(newReceiptList(receipts))
}

// RunResult is the output of the run command.
type RunResult struct {
	ReceiptList
	Steps int `json:"steps"`
}

func (r RunResult) renderText(w io.Writer, verbose bool) {
	r.ReceiptList.renderText(w, verbose)
	fmt.Fprintf(w, "%d transactions\n", r.Steps)
}

// NewRunCommand creates the run command.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Step the workflow until it quiesces",
		Long: `Repeat step until a step changes nothing. A configuration error
(unknown pattern, invalid parameter, oversized batch) stops the run with
status 1, as does exceeding KGC_MAX_STEPS.

Examples:
  kgc run
  kgc run --data '{"items": ["a", "b", "c"]}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, opts, data)
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "run-time data as a JSON object")
	return cmd
}

func runRun(cmd *cobra.Command, opts *RootOptions, data string) error {
	obj, err := parseData(data)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.release()

	out := newFormatter(cmd, opts)
	report, err := s.driver.Run(ctx, obj)
	result := RunResult{ReceiptList: newReceiptList(report.Receipts), Steps: report.Steps}
	switch {
	case err == nil:
		return out.Success(result)
	case driver.IsRejection(err), driver.IsStepsExceeded(err):
		if ferr := out.Failure(result, err); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, "run stopped", err)
	default:
		return WrapExitError(ExitCommandError, "run failed", err)
	}
}
