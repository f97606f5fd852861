package store

import (
	"context"
	"fmt"

	"github.com/roach88/kgc/internal/ir"
)

// ChainError describes the first broken link found by VerifyChain.
type ChainError struct {
	Seq    int64
	TxID   string
	Reason string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain broken at seq=%d tx=%s: %s", e.Seq, e.TxID, e.Reason)
}

// ChainReport summarizes a successful verification.
type ChainReport struct {
	Committed int    // Committed receipts replayed
	Rejected  int    // Rejected receipts seen (not part of the chain)
	Tip       string // Recomputed tip, equal to the stored tip
}

// VerifyChain replays the committed receipts in seq order, recomputes every
// merkle root and checks that each prev_hash links to the previous committed
// root, starting from the genesis hash. The final root must equal the stored
// tip. Returns a *ChainError for the first broken link.
func (s *Store) VerifyChain(ctx context.Context) (ChainReport, error) {
	receipts, err := s.Receipts(ctx, ReceiptFilter{})
	if err != nil {
		return ChainReport{}, fmt.Errorf("verify chain: %w", err)
	}

	report := ChainReport{Tip: ir.GenesisHash}
	for _, r := range receipts {
		if !r.Committed {
			report.Rejected++
			continue
		}
		if r.PrevHash != report.Tip {
			return report, &ChainError{Seq: r.Seq, TxID: r.TxID,
				Reason: fmt.Sprintf("prev_hash %s does not link to %s", r.PrevHash, report.Tip)}
		}
		root, err := r.ComputeRoot()
		if err != nil {
			return report, fmt.Errorf("verify chain: seq=%d: %w", r.Seq, err)
		}
		if root != r.MerkleRoot {
			return report, &ChainError{Seq: r.Seq, TxID: r.TxID,
				Reason: fmt.Sprintf("merkle root %s does not match recomputed %s", r.MerkleRoot, root)}
		}
		report.Tip = root
		report.Committed++
	}

	tip, _, err := s.Tip(ctx)
	if err != nil {
		return report, fmt.Errorf("verify chain: %w", err)
	}
	if tip != report.Tip {
		return report, &ChainError{Reason: fmt.Sprintf("stored tip %s does not match replayed tip %s", tip, report.Tip)}
	}
	return report, nil
}
