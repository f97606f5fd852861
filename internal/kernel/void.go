package kernel

import (
	"slices"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// void terminates the nodes selected by the cancellation scope. Every target
// loses its token and is marked kgc:voided with the termination reason.
// Targets already voided with that reason and holding no token are skipped.
func (k *Kernel) void(v graph.View, node string, tx ir.TransactionContext, cfg ir.VerbConfig) (ir.Delta, error) {
	scope := cfg.CancellationScope
	if scope == "" {
		scope = ir.ScopeSelf
	}

	reason, err := terminationReason(tx, scope)
	if err != nil {
		return ir.Delta{}, err
	}

	var targets []string
	switch scope {
	case ir.ScopeSelf, ir.ScopeTask:
		targets = []string{node}
	case ir.ScopeRegion:
		region := graph.First(v, node, graph.PredCancellationRegion)
		if region == "" {
			return ir.Delta{}, ir.NewInvalidParameterError(graph.PredCancellationRegion, node+" declares no region")
		}
		targets = append([]string{node}, graph.RegionMembers(v, region)...)
		for _, m := range graph.RegionMembers(v, region) {
			targets = append(targets, graph.Instances(v, m)...)
		}
	case ir.ScopeCase:
		targets = append([]string{node}, caseMembers(v, node)...)
	case ir.ScopeInstances:
		parent := graph.Parent(v, node)
		if parent == "" {
			parent = node
		} else {
			targets = append(targets, node)
		}
		targets = append(targets, graph.Instances(v, parent)...)
	default:
		return ir.Delta{}, ir.NewInvalidParameterError("cancellation_scope", string(scope))
	}

	b := newBuilder(v)
	for _, t := range dedupe(targets) {
		b.remove(t, graph.PredHasToken, graph.True)
		b.addT(t, graph.PredVoided, string(reason))
	}

	if scope == ir.ScopeTask {
		if handler := graph.First(v, node, graph.PredExceptionHandler); handler != "" {
			b.deliver(node, handler)
		}
	}
	return b.delta()
}

// terminationReason reads ctx.data.reason. The default is cancelled, or
// exception for the task scope.
func terminationReason(tx ir.TransactionContext, scope ir.CancellationScope) (ir.TerminationReason, error) {
	if raw, ok := tx.Data.String("reason"); ok && raw != "" {
		return ir.ParseTerminationReason(raw)
	}
	if scope == ir.ScopeTask {
		return ir.ReasonException, nil
	}
	return ir.ReasonCancelled, nil
}

// caseMembers returns the active nodes of the node's case. Without a case
// marker the whole graph is one case.
func caseMembers(v graph.View, node string) []string {
	active := graph.ActiveNodes(v)
	c := graph.First(v, node, graph.PredCase)
	if c == "" {
		return active
	}
	members := v.Subjects(graph.PredCase, c)
	return slices.DeleteFunc(active, func(n string) bool {
		return !slices.Contains(members, n)
	})
}

// dedupe keeps the first occurrence of each id.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
