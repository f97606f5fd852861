package kernel

import (
	"slices"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// await converges branches at a join.
//
// Each predecessor contributes one arrival slot, or one slot per spawned
// instance when it has instances. The join fires once per cycle, when the
// number of distinct arrived slots reaches the threshold. The first slots up
// to the threshold are recorded as kgc:firedBy; any other arrival, whether
// already waiting or arriving after firing, is marked kgc:ignored. When the completion strategy declares the
// cycle complete and reset_on_fire is set, all join state is cleared so the
// next arrival starts a new cycle.
//
// Re-evaluating a join that has nothing new to account for yields an empty
// delta.
func (k *Kernel) await(v graph.View, join string, tx ir.TransactionContext, cfg ir.VerbConfig) (ir.Delta, error) {
	slots := joinSlots(v, join)
	arrived := arrivals(v, join, slots)

	need, err := required(v, join, slots, arrived, tx, cfg.Threshold)
	if err != nil {
		return ir.Delta{}, err
	}

	b := newBuilder(v)
	if !v.Has(join, graph.PredJoinFired, graph.True) {
		if need < 1 || len(arrived) < need {
			return ir.EmptyDelta(), nil
		}
		b.remove(join, graph.PredHasToken, graph.True)
		b.addT(join, graph.PredJoinFired, graph.True)
		b.addT(join, graph.PredCompleted, graph.True)
		// Arrivals beyond the threshold that were already waiting are
		// ignored, in slot order.
		for i, a := range arrived {
			if i < need {
				b.addT(join, graph.PredFiredBy, a)
			} else {
				b.addT(join, graph.PredIgnored, a)
			}
		}
		for _, s := range graph.Successors(v, join) {
			b.deliver(join, s)
		}
	} else {
		accounted := append(v.Objects(join, graph.PredFiredBy), v.Objects(join, graph.PredIgnored)...)
		fresh := slices.DeleteFunc(slices.Clone(arrived), func(a string) bool {
			return slices.Contains(accounted, a)
		})
		if len(fresh) == 0 {
			return ir.EmptyDelta(), nil
		}
		for _, a := range fresh {
			b.addT(join, graph.PredIgnored, a)
		}
		b.remove(join, graph.PredHasToken, graph.True)
	}

	if cfg.ResetOnFire && cycleComplete(v, join, slots, arrived, completionStrategy(cfg)) {
		for _, p := range []string{graph.PredArrivedFrom, graph.PredFiredBy, graph.PredIgnored, graph.PredJoinFired} {
			b.dropAdds(join, p)
			b.removeAll(join, p)
		}
	}
	return b.delta()
}

// joinSlots lists the arrival sources a join expects, in predecessor
// declaration order.
func joinSlots(v graph.View, join string) []string {
	var slots []string
	for _, p := range graph.Predecessors(v, join) {
		if insts := graph.Instances(v, p); len(insts) > 0 {
			slots = append(slots, insts...)
			continue
		}
		slots = append(slots, p)
	}
	return slots
}

// arrivals returns the slots that have arrived in the current cycle.
func arrivals(v graph.View, join string, slots []string) []string {
	recorded := v.Objects(join, graph.PredArrivedFrom)
	var out []string
	for _, s := range slots {
		if slices.Contains(recorded, s) {
			out = append(out, s)
		}
	}
	return out
}

// required resolves the threshold to a concrete arrival count.
func required(v graph.View, join string, slots, arrived []string, tx ir.TransactionContext, th ir.Threshold) (int, error) {
	switch th.Kind {
	case "", ir.ThresholdAll:
		return len(slots), nil
	case ir.ThresholdCount:
		return th.N, nil
	case ir.ThresholdActive:
		n := 0
		for _, s := range slots {
			if graph.IsVoided(v, s) {
				continue
			}
			if slices.Contains(arrived, s) || pending(v, join, s) {
				n++
			}
		}
		return n, nil
	case ir.ThresholdDynamic:
		n, ok := tx.Data.Int("threshold")
		if !ok || n < 1 {
			raw, _ := tx.Data.String("threshold")
			return 0, ir.NewInvalidParameterError("threshold", "dynamic:"+raw)
		}
		return int(n), nil
	default:
		return 0, ir.NewInvalidParameterError("threshold", th.String())
	}
}

func completionStrategy(cfg ir.VerbConfig) ir.CompletionStrategy {
	if cfg.CompletionStrategy != "" {
		return cfg.CompletionStrategy
	}
	if cfg.Threshold.Kind == ir.ThresholdActive {
		return ir.WaitActive
	}
	return ir.WaitAll
}

// cycleComplete reports whether the join's current cycle is over once this
// step's arrivals are accounted for. waitFirst and waitQuorum complete as
// soon as the join has fired.
func cycleComplete(v graph.View, join string, slots, arrived []string, strategy ir.CompletionStrategy) bool {
	switch strategy {
	case ir.WaitFirst, ir.WaitQuorum:
		return true
	case ir.WaitActive:
		for _, s := range slots {
			if slices.Contains(arrived, s) || graph.IsVoided(v, s) {
				continue
			}
			if pending(v, join, s) {
				return false
			}
		}
		return true
	default:
		return len(arrived) == len(slots)
	}
}

// pending reports whether a token that can still reach the join through slot
// exists: on the slot itself, or on any node upstream of it.
func pending(v graph.View, join, slot string) bool {
	if graph.HasToken(v, slot) {
		return true
	}
	seen := map[string]bool{join: true}
	queue := []string{graph.Root(v, slot)}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		if graph.HasToken(v, n) && !graph.IsVoided(v, n) {
			return true
		}
		queue = append(queue, graph.Predecessors(v, n)...)
	}
	return false
}
