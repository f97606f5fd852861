package kernel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

func TestExecuteStampsIDsOnInvalidVerb(t *testing.T) {
	g := (&topo{}).node("A").token("A").graph()
	_, err := New().Execute(context.Background(), g, "A", ir.TransactionContext{TxID: "tx-9"}, ir.VerbConfig{Verb: "teleport"})
	require.Error(t, err)
	assert.True(t, ir.IsInvalidParameter(err))

	var ke *ir.KernelError
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, "A", ke.NodeID)
	assert.Equal(t, "tx-9", ke.TxID)
}

func TestExecuteCancelledContext(t *testing.T) {
	g := (&topo{}).node("A").node("B").flow("A", "B").token("A").graph()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Execute(ctx, g, "A", ir.TransactionContext{}, ir.VerbConfig{Verb: ir.VerbTransmute})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ir.IsTimeout(err))
}

func TestExecuteDoesNotMutateView(t *testing.T) {
	g := (&topo{}).
		node("A", graph.PredSplitType, "AND").node("B").node("C").
		flow("A", "B").flow("A", "C").
		token("A").graph()
	before := g.Triples()

	for _, cfg := range []ir.VerbConfig{
		cfgOf(t, "copy", map[string]string{"cardinality": "topology"}),
		cfgOf(t, "void", map[string]string{"cancellation_scope": "self"}),
	} {
		_ = exec(t, New(), g, "A", cfg, nil)
		assert.Equal(t, before, g.Triples(), cfg.String())
	}
}

func TestExecuteNilDataIsEmpty(t *testing.T) {
	g := (&topo{}).node("A", graph.PredSplitType, "XOR").node("B").node("C").
		flow("A", "B", graph.PredFlowGuard, "data.amount > 1").
		flow("A", "C", graph.PredFlowDefault, graph.True).
		token("A").graph()

	next := step(t, New(), g, "A", cfgOf(t, "filter", map[string]string{"selection_mode": "exactlyOne"}), nil)
	assert.True(t, graph.HasToken(next, "C"))
	assert.False(t, graph.HasToken(next, "B"))
}
