package kernel

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// topo builds topology triples for tests.
type topo struct {
	triples []ir.Triple
	flows   int
}

func (tp *topo) node(id string, extra ...string) *topo {
	tp.triples = append(tp.triples, ir.T(id, graph.PredKind, "task"))
	for i := 0; i+1 < len(extra); i += 2 {
		tp.triples = append(tp.triples, ir.T(id, extra[i], extra[i+1]))
	}
	return tp
}

func (tp *topo) flow(src, dst string, extra ...string) *topo {
	tp.flows++
	id := fmt.Sprintf("f%d", tp.flows)
	tp.triples = append(tp.triples,
		ir.T(id, graph.PredFlowSource, src),
		ir.T(id, graph.PredFlowTarget, dst),
		ir.T(id, graph.PredFlowOrder, fmt.Sprint(tp.flows)),
	)
	for i := 0; i+1 < len(extra); i += 2 {
		tp.triples = append(tp.triples, ir.T(id, extra[i], extra[i+1]))
	}
	return tp
}

func (tp *topo) token(ids ...string) *topo {
	for _, id := range ids {
		tp.triples = append(tp.triples, ir.T(id, graph.PredHasToken, graph.True))
	}
	return tp
}

func (tp *topo) graph() *graph.Graph {
	return graph.New(tp.triples)
}

func cfgOf(t *testing.T, verb string, params map[string]string) ir.VerbConfig {
	t.Helper()
	cfg, err := ir.ParseVerbConfig(verb, params)
	require.NoError(t, err)
	return cfg
}

func exec(t *testing.T, k *Kernel, g *graph.Graph, node string, cfg ir.VerbConfig, data ir.IRObject) ir.Delta {
	t.Helper()
	d, err := k.Execute(context.Background(), g, node, ir.TransactionContext{TxID: "tx", Data: data}, cfg)
	require.NoError(t, err)
	return d
}

// step executes and applies, returning the next graph.
func step(t *testing.T, k *Kernel, g *graph.Graph, node string, cfg ir.VerbConfig, data ir.IRObject) *graph.Graph {
	t.Helper()
	return g.Apply(exec(t, k, g, node, cfg, data))
}

func tokenT(id string) ir.Triple {
	return ir.T(id, graph.PredHasToken, graph.True)
}
