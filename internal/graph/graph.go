package graph

import (
	"slices"

	"github.com/roach88/kgc/internal/ir"
)

// View is the read-only surface of a snapshot. Verbs, the resolver and the
// validator only ever see a View. All slice results are sorted and freshly
// allocated.
type View interface {
	// Has reports whether the exact triple is present.
	Has(s, p, o string) bool

	// Objects returns the objects of every (s, p, ?) triple.
	Objects(s, p string) []string

	// Subjects returns the subjects of every (?, p, o) triple.
	Subjects(p, o string) []string

	// SubjectsWith returns the subjects of every (?, p, ?) triple.
	SubjectsWith(p string) []string

	// Triples returns every triple in (s, p, o) order.
	Triples() []ir.Triple

	// Len returns the number of triples.
	Len() int
}

type pair struct{ a, b string }

// Graph is an immutable set of triples with subject/predicate and
// predicate/object indexes.
type Graph struct {
	set map[ir.Triple]struct{}
	sp  map[pair][]string // (s, p) -> objects
	po  map[pair][]string // (p, o) -> subjects
	p   map[string][]string
}

var _ View = (*Graph)(nil)

// New builds a Graph from the given triples. Duplicates collapse.
func New(triples []ir.Triple) *Graph {
	set := make(map[ir.Triple]struct{}, len(triples))
	for _, t := range triples {
		set[t] = struct{}{}
	}
	return build(set)
}

// Empty returns a graph with no triples.
func Empty() *Graph {
	return build(map[ir.Triple]struct{}{})
}

func build(set map[ir.Triple]struct{}) *Graph {
	g := &Graph{
		set: set,
		sp:  make(map[pair][]string),
		po:  make(map[pair][]string),
		p:   make(map[string][]string),
	}
	for t := range set {
		g.sp[pair{t.Subject, t.Predicate}] = append(g.sp[pair{t.Subject, t.Predicate}], t.Object)
		g.po[pair{t.Predicate, t.Object}] = append(g.po[pair{t.Predicate, t.Object}], t.Subject)
		g.p[t.Predicate] = append(g.p[t.Predicate], t.Subject)
	}
	for k, v := range g.sp {
		slices.Sort(v)
		g.sp[k] = v
	}
	for k, v := range g.po {
		slices.Sort(v)
		g.po[k] = v
	}
	for k, v := range g.p {
		slices.Sort(v)
		g.p[k] = slices.Compact(v)
	}
	return g
}

// Apply returns a new graph with the delta's removals applied, then its
// additions. The receiver is unchanged.
func (g *Graph) Apply(d ir.Delta) *Graph {
	set := make(map[ir.Triple]struct{}, len(g.set)+d.Len())
	for t := range g.set {
		set[t] = struct{}{}
	}
	for _, t := range d.Removals() {
		delete(set, t)
	}
	for _, t := range d.Additions() {
		set[t] = struct{}{}
	}
	return build(set)
}

// Has implements View.
func (g *Graph) Has(s, p, o string) bool {
	_, ok := g.set[ir.T(s, p, o)]
	return ok
}

// Objects implements View.
func (g *Graph) Objects(s, p string) []string {
	return slices.Clone(g.sp[pair{s, p}])
}

// Object returns the first object of (s, p, ?), or "" if there is none.
func (g *Graph) Object(s, p string) string {
	return First(g, s, p)
}

// Subjects implements View.
func (g *Graph) Subjects(p, o string) []string {
	return slices.Clone(g.po[pair{p, o}])
}

// SubjectsWith implements View.
func (g *Graph) SubjectsWith(p string) []string {
	return slices.Clone(g.p[p])
}

// Triples implements View.
func (g *Graph) Triples() []ir.Triple {
	out := make([]ir.Triple, 0, len(g.set))
	for t := range g.set {
		out = append(out, t)
	}
	slices.SortFunc(out, ir.Triple.Compare)
	return out
}

// Len implements View.
func (g *Graph) Len() int {
	return len(g.set)
}

// First returns the smallest object of (s, p, ?), or "" if there is none.
func First(v View, s, p string) string {
	objs := v.Objects(s, p)
	if len(objs) == 0 {
		return ""
	}
	return objs[0]
}

// Equal reports whether two views hold the same triples.
func Equal(a, b View) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, t := range a.Triples() {
		if !b.Has(t.Subject, t.Predicate, t.Object) {
			return false
		}
	}
	return true
}
