package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/kgc/internal/ir"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Rejected transaction, broken chain, failed scenario, invalid input file
	ExitCommandError = 2 // Command error (invalid paths, unreadable database, bad configuration)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // Kernel error code or "E_CLI"
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// textRenderer is implemented by results with a human-readable form.
type textRenderer interface {
	renderText(w io.Writer, verbose bool)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	f.text(data)
	return nil
}

// Failure outputs a result that carries a failure (a rejected receipt, a
// broken chain) together with its error.
func (f *OutputFormatter) Failure(data any, err error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: errorCode(err), Message: err.Error()},
		})
	}
	if data != nil {
		f.text(data)
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", errorCode(err), err.Error())
	return nil
}

func (f *OutputFormatter) text(data any) {
	if r, ok := data.(textRenderer); ok {
		r.renderText(f.Writer, f.Verbose)
		return
	}
	fmt.Fprintln(f.Writer, data)
}

// errorCode is the kernel error code of err, or E_CLI.
func errorCode(err error) string {
	if code := ir.CodeOf(err); code != "" {
		return string(code)
	}
	return "E_CLI"
}

// ReceiptView is the output form of a receipt.
type ReceiptView struct {
	Seq        int64       `json:"seq"`
	TxID       string      `json:"tx_id"`
	NodeID     string      `json:"node_id"`
	Verb       string      `json:"verb,omitempty"`
	Params     string      `json:"params,omitempty"`
	Committed  bool        `json:"committed"`
	Reason     string      `json:"reason,omitempty"`
	PrevHash   string      `json:"prev_hash"`
	MerkleRoot string      `json:"merkle_root"`
	Additions  []ir.Triple `json:"additions"`
	Removals   []ir.Triple `json:"removals"`
	Timestamp  string      `json:"timestamp"`
}

func newReceiptView(r ir.Receipt) ReceiptView {
	v := ReceiptView{
		Seq:        r.Seq,
		TxID:       r.TxID,
		NodeID:     r.NodeID,
		Verb:       string(r.Verb),
		Committed:  r.Committed,
		Reason:     r.Reason,
		PrevHash:   r.PrevHash,
		MerkleRoot: r.MerkleRoot,
		Additions:  r.Delta.Additions(),
		Removals:   r.Delta.Removals(),
		Timestamp:  r.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if r.Verb != "" {
		v.Params = r.Params.String()
	}
	return v
}

func (v ReceiptView) renderText(w io.Writer, verbose bool) {
	outcome := "committed"
	if !v.Committed {
		outcome = "rejected"
	}
	verb := v.Params
	if verb == "" {
		verb = "-"
	}
	fmt.Fprintf(w, "[%d] %s %s %s %s root=%s\n", v.Seq, v.TxID, v.NodeID, verb, outcome, short(v.MerkleRoot))
	if v.Reason != "" {
		fmt.Fprintf(w, "    reason: %s\n", v.Reason)
	}
	if !verbose {
		return
	}
	for _, t := range v.Additions {
		fmt.Fprintf(w, "    + %s\n", t)
	}
	for _, t := range v.Removals {
		fmt.Fprintf(w, "    - %s\n", t)
	}
}

// ReceiptList is the output of commands that produce several receipts.
type ReceiptList struct {
	Receipts  []ReceiptView `json:"receipts"`
	Committed int           `json:"committed"`
	Rejected  int           `json:"rejected"`
}

func newReceiptList(rs []ir.Receipt) ReceiptList {
	l := ReceiptList{Receipts: make([]ReceiptView, 0, len(rs))}
	for _, r := range rs {
		l.Receipts = append(l.Receipts, newReceiptView(r))
		if r.Committed {
			l.Committed++
		} else {
			l.Rejected++
		}
	}
	return l
}

func (l ReceiptList) renderText(w io.Writer, verbose bool) {
	if len(l.Receipts) == 0 {
		fmt.Fprintln(w, "No receipts.")
		return
	}
	for _, v := range l.Receipts {
		v.renderText(w, verbose)
	}
	fmt.Fprintf(w, "%d committed, %d rejected\n", l.Committed, l.Rejected)
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	if hash == "" {
		return "-"
	}
	return hash
}

func indent(lines []string) string {
	return "  " + strings.Join(lines, "\n  ")
}
