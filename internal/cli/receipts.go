package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/kgc/internal/store"
)

// ReceiptsOptions holds flags for the receipts command.
type ReceiptsOptions struct {
	*RootOptions
	Node          string
	CommittedOnly bool
	Seq           int64
}

// NewReceiptsCommand creates the receipts command.
func NewReceiptsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReceiptsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List transaction receipts",
		Long: `List receipts in seq order, committed and rejected alike.

With --verbose each receipt is followed by its delta.

Examples:
  kgc receipts
  kgc receipts --node ship --committed
  kgc receipts --seq 4 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReceipts(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Node, "node", "", "only receipts for this node")
	cmd.Flags().BoolVar(&opts.CommittedOnly, "committed", false, "only committed receipts")
	cmd.Flags().Int64Var(&opts.Seq, "seq", 0, "show the single receipt with this seq")
	return cmd
}

func runReceipts(cmd *cobra.Command, opts *ReceiptsOptions) error {
	ctx := cmd.Context()
	st, err := openStore(opts.DB, opts.Logger())
	if err != nil {
		return err
	}
	defer st.Close()

	out := newFormatter(cmd, opts.RootOptions)
	if opts.Seq > 0 {
		r, err := st.ReadReceipt(ctx, opts.Seq)
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitFailure, fmt.Sprintf("no receipt with seq %d", opts.Seq))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read receipt", err)
		}
		return out.Success(newReceiptView(r))
	}

	receipts, err := st.Receipts(ctx, store.ReceiptFilter{NodeID: opts.Node, CommittedOnly: opts.CommittedOnly})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read receipts", err)
	}
	return out.Success(newReceiptList(receipts))
}
