package kernel

import (
	"fmt"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// transmute moves the node's token to its single successor and marks the
// node completed. A spawned instance advances along its root node's flow.
// A node without successors simply completes (implicit termination).
func (k *Kernel) transmute(v graph.View, node string) (ir.Delta, error) {
	if !graph.HasToken(v, node) {
		return ir.EmptyDelta(), nil
	}

	succ := graph.Successors(v, graph.Root(v, node))
	if len(succ) > 1 {
		return ir.Delta{}, ir.NewInvalidParameterError("successors",
			fmt.Sprintf("%s has %d outgoing flows, transmute needs at most one", node, len(succ)))
	}

	b := newBuilder(v)
	b.consume(node)
	b.addT(node, graph.PredCompleted, graph.True)
	for _, s := range succ {
		b.deliver(node, s)
	}
	return b.delta()
}
