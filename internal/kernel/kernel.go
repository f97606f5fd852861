package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// GuardEvaluator decides whether a flow guard holds for the run-time data.
// Implementations must honour ctx cancellation.
type GuardEvaluator interface {
	Eval(ctx context.Context, expr string, data ir.IRObject) (bool, error)
}

// Kernel executes verbs. It holds only immutable configuration and is safe
// for concurrent use.
type Kernel struct {
	guards GuardEvaluator
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithGuardEvaluator replaces the default CUE guard evaluator.
func WithGuardEvaluator(g GuardEvaluator) Option {
	return func(k *Kernel) {
		k.guards = g
	}
}

// New creates a Kernel. By default guards are CUE expressions.
func New(opts ...Option) *Kernel {
	k := &Kernel{guards: CUEGuards{}}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Execute applies the verb named by cfg to nodeID and returns its Delta.
//
// The dispatch is a closed switch over the five verbs. An unknown verb is an
// INVALID_PARAMETER error, as is any parameter outside its closed set.
func (k *Kernel) Execute(ctx context.Context, v graph.View, nodeID string, tx ir.TransactionContext, cfg ir.VerbConfig) (ir.Delta, error) {
	if err := cfg.Validate(); err != nil {
		return ir.Delta{}, withNode(err, nodeID, tx.TxID)
	}
	if err := checkContext(ctx, nodeID); err != nil {
		return ir.Delta{}, err
	}
	if tx.Data == nil {
		tx.Data = ir.IRObject{}
	}

	var (
		d   ir.Delta
		err error
	)
	switch cfg.Verb {
	case ir.VerbTransmute:
		d, err = k.transmute(v, nodeID)
	case ir.VerbCopy:
		d, err = k.copy(v, nodeID, tx, cfg)
	case ir.VerbFilter:
		d, err = k.filter(ctx, v, nodeID, tx, cfg)
	case ir.VerbAwait:
		d, err = k.await(v, nodeID, tx, cfg)
	case ir.VerbVoid:
		d, err = k.void(v, nodeID, tx, cfg)
	default:
		err = ir.NewInvalidParameterError("verb", string(cfg.Verb))
	}
	if err != nil {
		if cerr := checkContext(ctx, nodeID); cerr != nil {
			return ir.Delta{}, withNode(cerr, nodeID, tx.TxID)
		}
		return ir.Delta{}, withNode(err, nodeID, tx.TxID)
	}

	// A verb that outlived its bound is rejected even if it produced a delta.
	if err := checkContext(ctx, nodeID); err != nil {
		return ir.Delta{}, withNode(err, nodeID, tx.TxID)
	}
	return d, nil
}

func checkContext(ctx context.Context, nodeID string) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ir.NewTimeoutError(nodeID, err)
	default:
		return fmt.Errorf("execute %s: %w", nodeID, err)
	}
}

// withNode stamps node and transaction ids on kernel errors.
func withNode(err error, nodeID, txID string) error {
	var ke *ir.KernelError
	if errors.As(err, &ke) {
		if ke.NodeID == "" {
			ke.NodeID = nodeID
		}
		if ke.TxID == "" {
			ke.TxID = txID
		}
	}
	return err
}
