// Package resolver maps a workflow node to the VerbConfig that executes it.
//
// Resolution is a pure read: it extracts the node's topology signature from
// an immutable graph view and looks up the unique catalog entry for its key.
// It never mutates shared state and is safe to call from many goroutines.
package resolver

import (
	"context"
	"fmt"

	"github.com/roach88/kgc/internal/catalog"
	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// Catalog is the lookup surface the resolver needs.
type Catalog interface {
	Lookup(key ir.SignatureKey) (catalog.Entry, bool)
}

// Resolver resolves nodes against an explicit catalog.
type Resolver struct {
	catalog Catalog
}

// New creates a resolver over the given catalog.
func New(c Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Result is a successful resolution.
type Result struct {
	Signature ir.TopologySignature
	Entry     catalog.Entry
}

// Resolve returns the VerbConfig for nodeID.
//
// Returns UNKNOWN_PATTERN when the node does not exist in the view or when no
// catalog entry matches its signature. Never falls back to a default verb.
func (r *Resolver) Resolve(ctx context.Context, v graph.View, nodeID string) (ir.VerbConfig, error) {
	res, err := r.ResolveDetail(ctx, v, nodeID)
	if err != nil {
		return ir.VerbConfig{}, err
	}
	return res.Entry.Config, nil
}

// ResolveDetail is Resolve plus the signature and matched catalog entry.
func (r *Resolver) ResolveDetail(ctx context.Context, v graph.View, nodeID string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sig, ok, err := graph.Signature(v, nodeID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", nodeID, err)
	}
	if !ok {
		kerr := ir.NewUnknownPatternError(nodeID, "")
		kerr.Message = "node not found in topology"
		return Result{}, kerr
	}

	key := sig.Key()
	entry, ok := r.catalog.Lookup(key)
	if !ok {
		return Result{}, ir.NewUnknownPatternError(nodeID, key)
	}
	return Result{Signature: sig, Entry: entry}, nil
}
