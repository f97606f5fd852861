package kernel

import (
	"context"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// filter selects among the node's outgoing flows.
func (k *Kernel) filter(ctx context.Context, v graph.View, node string, tx ir.TransactionContext, cfg ir.VerbConfig) (ir.Delta, error) {
	if !graph.HasToken(v, node) {
		return ir.EmptyDelta(), nil
	}

	mode := cfg.SelectionMode
	if mode == "" {
		mode = ir.SelectExactlyOne
	}

	switch mode {
	case ir.SelectExactlyOne:
		return k.filterGuarded(ctx, v, node, tx, true)
	case ir.SelectOneOrMore:
		return k.filterGuarded(ctx, v, node, tx, false)
	case ir.SelectDeferred:
		return filterDeferred(v, node, tx)
	case ir.SelectMutex:
		return filterMutex(v, node)
	default:
		return ir.Delta{}, ir.NewInvalidParameterError("selection_mode", string(mode))
	}
}

// filterGuarded evaluates guards in declaration order. An unguarded flow is
// always true. The default flow is taken only when no other flow qualifies.
// With first set, evaluation stops at the first true guard.
func (k *Kernel) filterGuarded(ctx context.Context, v graph.View, node string, tx ir.TransactionContext, first bool) (ir.Delta, error) {
	var (
		chosen   []string
		fallback string
	)
	for _, f := range graph.Outgoing(v, node) {
		if f.Default {
			if fallback == "" {
				fallback = f.Target
			}
			continue
		}
		ok := true
		if f.Guard != "" {
			var err error
			if ok, err = k.guards.Eval(ctx, f.Guard, tx.Data); err != nil {
				return ir.Delta{}, err
			}
		}
		if ok {
			chosen = append(chosen, f.Target)
			if first {
				break
			}
		}
	}
	if len(chosen) == 0 && fallback != "" {
		chosen = []string{fallback}
	}
	if len(chosen) == 0 {
		return ir.EmptyDelta(), nil
	}

	b := newBuilder(v)
	b.consume(node)
	for _, t := range chosen {
		b.deliver(node, t)
	}
	return b.delta()
}

// filterDeferred waits for an external choice. ctx.data.choice names the
// chosen target node (or flow). Until it does, the node is marked
// kgc:awaitingChoice and keeps its token.
func filterDeferred(v graph.View, node string, tx ir.TransactionContext) (ir.Delta, error) {
	b := newBuilder(v)

	choice, _ := tx.Data.String("choice")
	for _, f := range graph.Outgoing(v, node) {
		if choice == "" || (choice != f.Target && choice != f.ID) {
			continue
		}
		b.consume(node)
		b.remove(node, graph.PredAwaitingChoice, graph.True)
		b.deliver(node, f.Target)
		return b.delta()
	}

	b.addT(node, graph.PredAwaitingChoice, graph.True)
	return b.delta()
}

// filterMutex admits the node's branches one at a time. While any branch
// target holds a token the node is marked kgc:waiting. Otherwise the first
// branch not yet admitted is activated. When every branch has run, the
// token is consumed and the admission record cleared.
func filterMutex(v graph.View, node string) (ir.Delta, error) {
	b := newBuilder(v)
	targets := graph.Successors(v, node)

	for _, t := range targets {
		if branchActive(v, t) {
			b.addT(node, graph.PredWaiting, graph.True)
			return b.delta()
		}
	}

	b.remove(node, graph.PredWaiting, graph.True)
	for _, t := range targets {
		if v.Has(node, graph.PredAdmitted, t) {
			continue
		}
		b.addT(node, graph.PredAdmitted, t)
		b.deliver(node, t)
		return b.delta()
	}

	b.consume(node)
	b.removeAll(node, graph.PredAdmitted)
	return b.delta()
}

// branchActive reports whether target or any of its instances holds a token.
func branchActive(v graph.View, target string) bool {
	if graph.HasToken(v, target) {
		return true
	}
	for _, inst := range graph.Instances(v, target) {
		if graph.HasToken(v, inst) {
			return true
		}
	}
	return false
}
