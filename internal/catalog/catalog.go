package catalog

import (
	"slices"

	"github.com/roach88/kgc/internal/ir"
)

// Match is the structural part of a topology signature a pattern applies to.
type Match struct {
	Kind    ir.NodeKind
	Split   ir.GatewayType
	Join    ir.GatewayType
	MI      ir.MIMode
	Markers []string
}

// Key returns the exact-match lookup key.
func (m Match) Key() ir.SignatureKey {
	return ir.NewSignatureKey(m.Kind, m.Split, m.Join, m.MI, m.Markers)
}

// Entry is one pattern: a signature match and the verb configuration that
// executes it.
type Entry struct {
	ID          int // Workflow pattern number, 0 for kernel-level rules
	Name        string
	Description string
	Match       Match
	Config      ir.VerbConfig
}

// Catalog is an immutable signature-key index of entries.
type Catalog struct {
	entries []Entry
	byKey   map[ir.SignatureKey]int
}

// New builds a catalog. Entries are validated first; any validation error
// rejects the whole catalog.
func New(entries []Entry) (*Catalog, error) {
	if errs := Validate(entries); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	c := &Catalog{
		entries: slices.Clone(entries),
		byKey:   make(map[ir.SignatureKey]int, len(entries)),
	}
	slices.SortStableFunc(c.entries, func(a, b Entry) int {
		if a.ID != b.ID {
			return a.ID - b.ID
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	for i, e := range c.entries {
		c.byKey[e.Match.Key()] = i
	}
	return c, nil
}

// Lookup returns the entry whose match equals key exactly.
func (c *Catalog) Lookup(key ir.SignatureKey) (Entry, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns all entries ordered by pattern id, then name.
func (c *Catalog) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
