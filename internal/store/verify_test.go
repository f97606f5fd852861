package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/ir"
)

func buildChain(t *testing.T, s *Store) []ir.Receipt {
	t.Helper()
	ctx := context.Background()

	r1 := committedReceipt(t, ir.GenesisHash, "tx-1", 1, moveToken(t, "A", "B"))
	require.NoError(t, s.Commit(ctx, ir.GenesisHash, r1.Delta, r1))

	require.NoError(t, s.AppendReceipt(ctx, ir.Receipt{
		TxID: "tx-2", Seq: 2, NodeID: "B", PrevHash: r1.MerkleRoot, Reason: "UNKNOWN_PATTERN",
	}))

	r3 := committedReceipt(t, r1.MerkleRoot, "tx-3", 3, moveToken(t, "B", "C"))
	require.NoError(t, s.Commit(ctx, r1.MerkleRoot, r3.Delta, r3))
	return []ir.Receipt{r1, r3}
}

func TestVerifyChain_Valid(t *testing.T) {
	s := seededStore(t)
	chain := buildChain(t, s)

	report, err := s.VerifyChain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Committed)
	assert.Equal(t, 1, report.Rejected)
	assert.Equal(t, chain[1].MerkleRoot, report.Tip)
}

func TestVerifyChain_EmptyStore(t *testing.T) {
	report, err := createTestStore(t).VerifyChain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ir.GenesisHash, report.Tip)
}

func TestVerifyChain_DetectsTamperedDelta(t *testing.T) {
	s := seededStore(t)
	buildChain(t, s)

	_, err := s.DB().Exec(`UPDATE receipts SET delta = '{"additions":[],"removals":[]}' WHERE seq = 3`)
	require.NoError(t, err)

	_, err = s.VerifyChain(context.Background())
	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, int64(3), chainErr.Seq)
}

func TestVerifyChain_DetectsBrokenLink(t *testing.T) {
	s := seededStore(t)
	buildChain(t, s)

	_, err := s.DB().Exec(`UPDATE receipts SET prev_hash = ? WHERE seq = 3`, ir.GenesisHash)
	require.NoError(t, err)

	_, err = s.VerifyChain(context.Background())
	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, "tx-3", chainErr.TxID)
}
