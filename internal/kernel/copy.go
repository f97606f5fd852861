package kernel

import (
	"fmt"
	"strconv"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// defaultMIDataKey is the ctx.data key holding dynamic instance data when
// the node declares no wf:miDataKey.
const defaultMIDataKey = "items"

// copy diverges the node's token.
//
// With cardinality topology one token goes to each outgoing flow's target.
// Every other cardinality spawns instances "<node>#<i>" that carry their own
// tokens and advance independently. Instance tagging follows
// instance_binding.
func (k *Kernel) copy(v graph.View, node string, tx ir.TransactionContext, cfg ir.VerbConfig) (ir.Delta, error) {
	if !graph.HasToken(v, node) {
		return ir.EmptyDelta(), nil
	}

	card := cfg.Cardinality
	if !card.IsSet() {
		card = ir.Cardinality{Kind: ir.CardinalityTopology}
	}

	b := newBuilder(v)
	switch card.Kind {
	case ir.CardinalityTopology:
		b.consume(node)
		for _, s := range graph.Successors(v, node) {
			b.deliver(node, s)
		}
		return b.delta()

	case ir.CardinalityIncremental:
		return k.copyIncremental(b, node, tx, cfg)
	}

	n, items, err := instanceCount(v, node, tx, card)
	if err != nil {
		return ir.Delta{}, err
	}
	if n == 0 {
		return ir.EmptyDelta(), nil
	}

	b.consume(node)
	base := len(graph.Instances(v, node))
	for i := 0; i < n; i++ {
		spawn(b, node, base+i, itemAt(items, i), cfg.InstanceBinding)
	}
	return b.delta()
}

// copyIncremental spawns one instance per invocation and keeps the node's
// token so it can be invoked again. ctx.data.final = true releases the token
// with the last spawn.
func (k *Kernel) copyIncremental(b *builder, node string, tx ir.TransactionContext, cfg ir.VerbConfig) (ir.Delta, error) {
	prev := graph.First(b.v, node, graph.PredInstanceCount)
	count := 0
	if prev != "" {
		var err error
		if count, err = strconv.Atoi(prev); err != nil || count < 0 {
			return ir.Delta{}, ir.NewInvalidParameterError(graph.PredInstanceCount, prev)
		}
	}

	items, _ := tx.Data.Array(miDataKey(b.v, node))
	spawn(b, node, count, itemAt(items, count), cfg.InstanceBinding)

	if prev != "" {
		b.remove(node, graph.PredInstanceCount, prev)
	}
	b.addT(node, graph.PredInstanceCount, strconv.Itoa(count+1))

	if final, ok := tx.Data["final"].(ir.IRBool); ok && bool(final) {
		b.consume(node)
	}
	return b.delta()
}

// instanceCount returns how many instances to spawn and, for dynamic
// cardinality, the data items they bind to.
func instanceCount(v graph.View, node string, tx ir.TransactionContext, card ir.Cardinality) (int, ir.IRArray, error) {
	items, _ := tx.Data.Array(miDataKey(v, node))

	switch card.Kind {
	case ir.CardinalityCount:
		return card.N, items, nil

	case ir.CardinalityStatic:
		raw := graph.First(v, node, graph.PredMICount)
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, nil, ir.NewInvalidParameterError(graph.PredMICount, raw)
		}
		return n, items, nil

	case ir.CardinalityDynamic:
		return len(items), items, nil

	default:
		return 0, nil, ir.NewInvalidParameterError("cardinality", card.String())
	}
}

func miDataKey(v graph.View, node string) string {
	if key := graph.First(v, node, graph.PredMIDataKey); key != "" {
		return key
	}
	return defaultMIDataKey
}

func itemAt(items ir.IRArray, i int) ir.IRValue {
	if i < len(items) {
		return items[i]
	}
	return nil
}

// spawn adds one instance of parent with its token and binding tags.
func spawn(b *builder, parent string, index int, item ir.IRValue, binding ir.InstanceBinding) {
	id := fmt.Sprintf("%s#%d", parent, index)
	idx := strconv.Itoa(index)

	b.addT(id, graph.PredInstanceOf, parent)
	b.addT(id, graph.PredHasToken, graph.True)
	b.removeAll(id, graph.PredVoided)

	switch binding {
	case ir.BindIndex:
		b.addT(id, graph.PredInstanceIndex, idx)
	case ir.BindData:
		b.addT(id, graph.PredInstanceIndex, idx)
		if item != nil {
			b.addT(id, graph.PredBoundTo, bindingValue(item))
		}
	case ir.BindRecursive:
		b.addT(id, graph.PredInstanceIndex, idx)
		b.addT(id, graph.PredSpawnedBy, parent)
	}
}

// bindingValue renders a data item as a triple object. Strings are stored
// verbatim, everything else as canonical JSON.
func bindingValue(item ir.IRValue) string {
	if s, ok := item.(ir.IRString); ok {
		return string(s)
	}
	if out, err := ir.MarshalCanonical(item); err == nil {
		return string(out)
	}
	return fmt.Sprint(ir.ToAny(item))
}
