package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// Snapshot reads the current graph and chain tip in one read transaction,
// so the returned graph is exactly the state the tip attests to.
func (s *Store) Snapshot(ctx context.Context) (*graph.Graph, string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	var tip string
	if err := tx.QueryRowContext(ctx, `SELECT tip FROM chain WHERE id = 1`).Scan(&tip); err != nil {
		return nil, "", fmt.Errorf("snapshot: read tip: %w", err)
	}

	triples, err := readTriples(ctx, tx)
	if err != nil {
		return nil, "", fmt.Errorf("snapshot: %w", err)
	}
	return graph.New(triples), tip, nil
}

// Tip returns the current chain tip and the seq of the commit that set it.
func (s *Store) Tip(ctx context.Context) (string, int64, error) {
	var tip string
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT tip, seq FROM chain WHERE id = 1`).Scan(&tip, &seq); err != nil {
		return "", 0, fmt.Errorf("read tip: %w", err)
	}
	return tip, seq, nil
}

// LastSeq returns the highest receipt seq, committed or not. A driver
// starts its logical clock here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM receipts`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq, nil
}

// Triples returns every stored triple in (subject, predicate, object) order.
func (s *Store) Triples(ctx context.Context) ([]ir.Triple, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("read triples: begin tx: %w", err)
	}
	defer tx.Rollback()
	return readTriples(ctx, tx)
}

func readTriples(ctx context.Context, tx *sql.Tx) ([]ir.Triple, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT subject, predicate, object
		FROM triples
		ORDER BY subject COLLATE BINARY, predicate COLLATE BINARY, object COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query triples: %w", err)
	}
	defer rows.Close()

	triples := []ir.Triple{}
	for rows.Next() {
		var t ir.Triple
		if err := rows.Scan(&t.Subject, &t.Predicate, &t.Object); err != nil {
			return nil, fmt.Errorf("scan triple: %w", err)
		}
		triples = append(triples, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triples: %w", err)
	}
	return triples, nil
}

// ReceiptFilter narrows a receipt query. The zero value selects everything.
type ReceiptFilter struct {
	NodeID        string // Only receipts for this node
	CommittedOnly bool
}

// Receipts returns receipts in seq order.
// Returns an empty slice (not nil) if none match.
func (s *Store) Receipts(ctx context.Context, f ReceiptFilter) ([]ir.Receipt, error) {
	query := `
		SELECT seq, tx_id, node_id, verb, params, prev_hash, merkle_root, delta, committed, reason, timestamp
		FROM receipts
		WHERE (? = '' OR node_id = ?) AND (? = 0 OR committed = 1)
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, f.NodeID, f.NodeID, boolToInt(f.CommittedOnly))
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	receipts := []ir.Receipt{}
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return receipts, nil
}

// ReadReceipt retrieves the receipt with the given seq.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadReceipt(ctx context.Context, seq int64) (ir.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, tx_id, node_id, verb, params, prev_hash, merkle_root, delta, committed, reason, timestamp
		FROM receipts
		WHERE seq = ?
	`, seq)
	if err != nil {
		return ir.Receipt{}, fmt.Errorf("query receipt: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return ir.Receipt{}, fmt.Errorf("query receipt: %w", err)
		}
		return ir.Receipt{}, sql.ErrNoRows
	}
	return scanReceipt(rows)
}

func scanReceipt(rows *sql.Rows) (ir.Receipt, error) {
	var (
		r                          ir.Receipt
		verb, params, delta, stamp string
		committed                  int
	)
	if err := rows.Scan(
		&r.Seq, &r.TxID, &r.NodeID, &verb, &params,
		&r.PrevHash, &r.MerkleRoot, &delta, &committed, &r.Reason, &stamp,
	); err != nil {
		return ir.Receipt{}, fmt.Errorf("scan receipt: %w", err)
	}

	var err error
	r.Verb = ir.Verb(verb)
	r.Committed = committed == 1
	if r.Params, err = unmarshalParams(params); err != nil {
		return ir.Receipt{}, fmt.Errorf("receipt seq=%d: %w", r.Seq, err)
	}
	if r.Delta, err = unmarshalDelta(delta); err != nil {
		return ir.Receipt{}, fmt.Errorf("receipt seq=%d: %w", r.Seq, err)
	}
	if r.Timestamp, err = unmarshalTimestamp(stamp); err != nil {
		return ir.Receipt{}, fmt.Errorf("receipt seq=%d: %w", r.Seq, err)
	}
	return r, nil
}
