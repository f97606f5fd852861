package kernel

import (
	"slices"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// builder accumulates a delta against a view. Adding a triple that is
// already present, or removing one that is absent, is a no-op; adding a
// triple scheduled for removal cancels the removal (and vice versa).
type builder struct {
	v   graph.View
	add []ir.Triple
	rem []ir.Triple
}

func newBuilder(v graph.View) *builder {
	return &builder{v: v}
}

func (b *builder) addT(s, p, o string) {
	t := ir.T(s, p, o)
	if i := slices.Index(b.rem, t); i >= 0 {
		b.rem = slices.Delete(b.rem, i, i+1)
		return
	}
	if b.v.Has(s, p, o) || slices.Contains(b.add, t) {
		return
	}
	b.add = append(b.add, t)
}

func (b *builder) remove(s, p, o string) {
	t := ir.T(s, p, o)
	if i := slices.Index(b.add, t); i >= 0 {
		b.add = slices.Delete(b.add, i, i+1)
		return
	}
	if !b.v.Has(s, p, o) || slices.Contains(b.rem, t) {
		return
	}
	b.rem = append(b.rem, t)
}

// removeAll removes every (s, p, ?) triple.
func (b *builder) removeAll(s, p string) {
	for _, o := range b.v.Objects(s, p) {
		b.remove(s, p, o)
	}
}

// deliver puts a token on to, recording the arrival when to is a join. A
// node re-entered after being voided loses its void marker.
func (b *builder) deliver(from, to string) {
	b.addT(to, graph.PredHasToken, graph.True)
	b.removeAll(to, graph.PredVoided)
	if graph.IsJoin(b.v, to) {
		b.addT(to, graph.PredArrivedFrom, from)
	}
}

// consume takes the token (and any recorded arrivals) off a node.
func (b *builder) consume(node string) {
	b.remove(node, graph.PredHasToken, graph.True)
	b.removeAll(node, graph.PredArrivedFrom)
}

func (b *builder) delta() (ir.Delta, error) {
	return ir.NewDelta(b.add, b.rem)
}

// dropAdds discards pending (s, p, ?) additions.
func (b *builder) dropAdds(s, p string) {
	b.add = slices.DeleteFunc(b.add, func(t ir.Triple) bool {
		return t.Subject == s && t.Predicate == p
	})
}
