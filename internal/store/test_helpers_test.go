package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// committedReceipt builds a receipt for delta chained onto prev.
func committedReceipt(t *testing.T, prev, txID string, seq int64, delta ir.Delta) ir.Receipt {
	t.Helper()
	r := ir.Receipt{
		TxID:      txID,
		Seq:       seq,
		NodeID:    "A",
		Verb:      ir.VerbTransmute,
		Params:    ir.VerbConfig{Verb: ir.VerbTransmute},
		PrevHash:  prev,
		Delta:     delta,
		Committed: true,
		Timestamp: time.Date(2026, 1, 1, 0, 0, int(seq), 0, time.UTC),
	}
	root, err := r.ComputeRoot()
	require.NoError(t, err)
	r.MerkleRoot = root
	return r
}

func moveToken(t *testing.T, from, to string) ir.Delta {
	t.Helper()
	d, err := ir.NewDelta(
		[]ir.Triple{ir.T(to, "kgc:hasToken", "true")},
		[]ir.Triple{ir.T(from, "kgc:hasToken", "true")},
	)
	require.NoError(t, err)
	return d
}
