package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/kgc/internal/ir"
)

// Load inserts topology and initial-state triples. Loading is outside the
// provenance chain: it neither advances the tip nor writes a receipt.
// Duplicate triples are silently ignored.
func (s *Store) Load(ctx context.Context, triples []ir.Triple) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO triples (subject, predicate, object)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("load: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range triples {
		if _, err := stmt.ExecContext(ctx, t.Subject, t.Predicate, t.Object); err != nil {
			return fmt.Errorf("load: insert %s: %w", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load: commit: %w", err)
	}
	return nil
}

// Commit atomically applies a delta, advances the chain tip and appends the
// committed receipt.
//
// The tip is compared against expectedTip inside the transaction. If it has
// moved, Commit returns a COMMIT_CONFLICT KernelError and the database is
// unchanged. Any other failure also rolls back completely: triples, tip and
// receipt log are left byte-identical.
//
// The receipt must be committed, link to expectedTip, and carry a merkle
// root that matches its contents. A seq at or below the log's last seq fails
// with ir.ErrSeqTaken.
func (s *Store) Commit(ctx context.Context, expectedTip string, delta ir.Delta, r ir.Receipt) error {
	if !r.Committed {
		return fmt.Errorf("commit: receipt %s is not marked committed", r.TxID)
	}
	if r.PrevHash != expectedTip {
		return fmt.Errorf("commit: receipt prev_hash %s does not match expected tip %s", r.PrevHash, expectedTip)
	}
	root, err := r.ComputeRoot()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if root != r.MerkleRoot {
		return fmt.Errorf("commit: receipt merkle root %s does not match contents (%s)", r.MerkleRoot, root)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var tip string
	if err := tx.QueryRowContext(ctx, `SELECT tip FROM chain WHERE id = 1`).Scan(&tip); err != nil {
		return fmt.Errorf("commit: read tip: %w", err)
	}
	if tip != expectedTip {
		return ir.NewCommitConflictError(expectedTip, tip)
	}

	for _, t := range delta.Removals() {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM triples WHERE subject = ? AND predicate = ? AND object = ?
		`, t.Subject, t.Predicate, t.Object); err != nil {
			return fmt.Errorf("commit: remove %s: %w", t, err)
		}
	}
	for _, t := range delta.Additions() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO triples (subject, predicate, object)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, t.Subject, t.Predicate, t.Object); err != nil {
			return fmt.Errorf("commit: add %s: %w", t, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE chain SET tip = ?, seq = ? WHERE id = 1
	`, r.MerkleRoot, r.Seq); err != nil {
		return fmt.Errorf("commit: advance tip: %w", err)
	}

	if err := insertReceipt(ctx, tx, r); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// AppendReceipt records a rejected attempt. Triples and tip are untouched.
func (s *Store) AppendReceipt(ctx context.Context, r ir.Receipt) error {
	if r.Committed {
		return fmt.Errorf("append receipt: committed receipts must go through Commit")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append receipt: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertReceipt(ctx, tx, r); err != nil {
		return fmt.Errorf("append receipt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append receipt: %w", err)
	}
	return nil
}

// insertReceipt appends r inside tx. The seq must be above every seq in the
// log; the transaction holds the write lock, so the check cannot be raced by
// another connection.
func insertReceipt(ctx context.Context, tx *sql.Tx, r ir.Receipt) error {
	var last int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM receipts`).Scan(&last); err != nil {
		return fmt.Errorf("read last seq: %w", err)
	}
	if r.Seq <= last {
		return fmt.Errorf("insert receipt seq=%d (last %d): %w", r.Seq, last, ir.ErrSeqTaken)
	}

	paramsJSON, err := marshalParams(r.Params)
	if err != nil {
		return err
	}
	deltaJSON, err := marshalDelta(r.Delta)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts
		(seq, tx_id, node_id, verb, params, prev_hash, merkle_root, delta, committed, reason, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Seq,
		r.TxID,
		r.NodeID,
		string(r.Verb),
		paramsJSON,
		r.PrevHash,
		r.MerkleRoot,
		deltaJSON,
		boolToInt(r.Committed),
		r.Reason,
		marshalTimestamp(r.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert receipt seq=%d: %w", r.Seq, err)
	}
	return nil
}
