package driver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// Speculate resolves and executes every request concurrently against one
// snapshot, then commits the plans serially in request order. A plan whose
// snapshot went stale is re-run through Fire from the new tip.
//
// Receipts are returned in request order, one per request. Rejections are
// reported in the receipts, not as an error; the error is reserved for
// infrastructure failures.
func (d *Driver) Speculate(ctx context.Context, reqs []Request) ([]ir.Receipt, error) {
	if len(reqs) == 0 {
		return []ir.Receipt{}, nil
	}
	g, tip, err := d.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("speculate: %w", err)
	}
	receipts, _, err := d.speculate(ctx, g, tip, reqs)
	return receipts, err
}

// speculate returns one receipt per request and, alongside, the rejection
// behind each uncommitted receipt.
func (d *Driver) speculate(ctx context.Context, g *graph.Graph, tip string, reqs []Request) ([]ir.Receipt, []error, error) {
	plans := make([]*plan, len(reqs))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(d.parallelism, 1))
	for i, req := range reqs {
		eg.Go(func() error {
			p, err := d.prepare(egctx, g, tip, req)
			if err != nil {
				return fmt.Errorf("prepare %s: %w", req.NodeID, err)
			}
			plans[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, fmt.Errorf("speculate: %w", err)
	}

	receipts := make([]ir.Receipt, len(reqs))
	rejections := make([]error, len(reqs))
	for i, p := range plans {
		r, err := d.commit(ctx, p, false)
		if ir.IsCommitConflict(err) {
			d.metrics.conflict()
			d.logger.Debug("speculative plan went stale",
				"tx_id", p.txID,
				"node_id", p.req.NodeID,
				"event", "tx_stale",
			)
			r, err = d.Fire(ctx, reqs[i])
		}
		if err != nil && !IsRejection(err) {
			return receipts[:i], rejections[:i], fmt.Errorf("speculate: %w", err)
		}
		receipts[i] = r
		rejections[i] = err
	}
	return receipts, rejections, nil
}

// Step fires every node that currently holds a token, speculatively and in
// node order.
func (d *Driver) Step(ctx context.Context, data ir.IRObject) ([]ir.Receipt, error) {
	receipts, _, err := d.step(ctx, data)
	return receipts, err
}

func (d *Driver) step(ctx context.Context, data ir.IRObject) ([]ir.Receipt, []error, error) {
	g, tip, err := d.store.Snapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("step: %w", err)
	}
	active := graph.ActiveNodes(g)
	if len(active) == 0 {
		return []ir.Receipt{}, nil, nil
	}
	reqs := make([]Request, len(active))
	for i, n := range active {
		reqs[i] = Request{NodeID: n, Data: data}
	}
	return d.speculate(ctx, g, tip, reqs)
}
