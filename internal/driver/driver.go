package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// Store is the fact store surface the driver commits through.
type Store interface {
	// Snapshot returns the current graph and the tip it is attested by.
	Snapshot(ctx context.Context) (*graph.Graph, string, error)

	// Commit atomically applies delta, advances the tip from expectedTip and
	// appends the committed receipt. A moved tip is a COMMIT_CONFLICT.
	Commit(ctx context.Context, expectedTip string, delta ir.Delta, r ir.Receipt) error

	// AppendReceipt records a rejected attempt.
	AppendReceipt(ctx context.Context, r ir.Receipt) error

	// LastSeq returns the highest receipt seq in the log.
	LastSeq(ctx context.Context) (int64, error)
}

// Resolver maps a node to the verb configuration to run.
type Resolver interface {
	Resolve(ctx context.Context, v graph.View, nodeID string) (ir.VerbConfig, error)
}

// Executor runs a verb. Implemented by kernel.Kernel.
type Executor interface {
	Execute(ctx context.Context, v graph.View, nodeID string, tx ir.TransactionContext, cfg ir.VerbConfig) (ir.Delta, error)
}

// Validator checks a candidate graph. Any violation rejects the transaction.
type Validator interface {
	Validate(ctx context.Context, v graph.View) (conforms bool, violations []string)
}

// Defaults.
const (
	DefaultVerbTimeout = 250 * time.Millisecond
	DefaultMaxRetries  = 3
	DefaultMaxSteps    = 1000
)

// Request asks the driver to fire one node.
type Request struct {
	NodeID string
	Data   ir.IRObject // Run-time bindings exposed to the verb as ctx.data
}

// Driver executes transactions.
type Driver struct {
	store     Store
	resolver  Resolver
	kernel    Executor
	validator Validator

	clock       *Clock
	txids       TxIDGenerator
	now         func() time.Time
	logger      *slog.Logger
	metrics     *Metrics
	verbTimeout time.Duration
	maxRetries  int
	maxSteps    int
	parallelism int

	commitMu sync.Mutex
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock sets the logical clock. Use NewClockAt(store.LastSeq) when
// reopening an existing store.
func WithClock(c *Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithTxIDGenerator sets the transaction id source.
func WithTxIDGenerator(g TxIDGenerator) Option {
	return func(d *Driver) { d.txids = g }
}

// WithNow sets the receipt timestamp source.
func WithNow(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithVerbTimeout bounds each verb evaluation, guards included.
func WithVerbTimeout(t time.Duration) Option {
	return func(d *Driver) { d.verbTimeout = t }
}

// WithMaxRetries bounds commit-conflict retries per request.
func WithMaxRetries(n int) Option {
	return func(d *Driver) { d.maxRetries = n }
}

// WithMaxSteps bounds the number of transactions Run may attempt.
func WithMaxSteps(n int) Option {
	return func(d *Driver) { d.maxSteps = n }
}

// WithParallelism bounds concurrent verb evaluation in Speculate.
func WithParallelism(n int) Option {
	return func(d *Driver) { d.parallelism = n }
}

// New creates a Driver.
func New(s Store, r Resolver, k Executor, v Validator, opts ...Option) *Driver {
	d := &Driver{
		store:       s,
		resolver:    r,
		kernel:      k,
		validator:   v,
		clock:       NewClock(),
		txids:       UUIDv7Generator{},
		now:         time.Now,
		logger:      slog.Default(),
		verbTimeout: DefaultVerbTimeout,
		maxRetries:  DefaultMaxRetries,
		maxSteps:    DefaultMaxSteps,
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return d
}

// plan is a prepared transaction: everything up to the commit decision.
type plan struct {
	req   Request
	txID  string
	tip   string
	cfg   ir.VerbConfig
	delta ir.Delta
	err   error // Rejection; nil means the plan may commit
}

// Fire runs one transaction for req.NodeID.
//
// On commit it returns the committed receipt. On rejection it returns the
// uncommitted receipt together with the KernelError that caused it. Any
// other error is an infrastructure failure and nothing was recorded.
func (d *Driver) Fire(ctx context.Context, req Request) (ir.Receipt, error) {
	for attempt := 0; ; attempt++ {
		g, tip, err := d.store.Snapshot(ctx)
		if err != nil {
			return ir.Receipt{}, fmt.Errorf("fire %s: %w", req.NodeID, err)
		}
		p, err := d.prepare(ctx, g, tip, req)
		if err != nil {
			return ir.Receipt{}, fmt.Errorf("fire %s: %w", req.NodeID, err)
		}

		r, err := d.commit(ctx, p, attempt >= d.maxRetries)
		if ir.IsCommitConflict(err) && attempt < d.maxRetries {
			d.metrics.conflict()
			d.logger.Info("commit conflict, retrying",
				"tx_id", p.txID,
				"node_id", req.NodeID,
				"attempt", attempt+1,
				"event", "tx_conflict",
			)
			continue
		}
		return r, err
	}
}

// prepare resolves, executes and validates against one snapshot. A
// rejection is recorded in the plan; the returned error is reserved for
// failures that must abort without a receipt.
func (d *Driver) prepare(ctx context.Context, g *graph.Graph, tip string, req Request) (*plan, error) {
	p := &plan{req: req, txID: d.txids.Generate(), tip: tip}
	log := d.logger.With("tx_id", p.txID, "node_id", req.NodeID)

	cfg, err := d.resolver.Resolve(ctx, g, req.NodeID)
	if err != nil {
		return p.reject(err)
	}
	p.cfg = cfg
	log.Debug("transaction resolved", "verb", cfg.Verb, "params", cfg.String(), "event", "tx_resolved")

	vctx, cancel := context.WithTimeout(ctx, d.verbTimeout)
	start := time.Now()
	delta, err := d.kernel.Execute(vctx, g, req.NodeID, ir.TransactionContext{
		TxID:     p.txID,
		PrevHash: tip,
		Data:     req.Data,
	}, cfg)
	cancel()
	d.metrics.observe(cfg.Verb, time.Since(start))
	if err != nil {
		return p.reject(err)
	}
	p.delta = delta
	log.Debug("transaction executed", "additions", len(delta.Additions()), "removals", len(delta.Removals()), "event", "tx_executed")

	ok, violations := d.validator.Validate(ctx, g.Apply(delta))
	if !ok {
		vf := ir.NewValidationFailure(req.NodeID, violations)
		vf.TxID = p.txID
		p.err = vf
		return p, nil
	}
	log.Debug("transaction validated", "event", "tx_validated")
	return p, nil
}

func (p *plan) reject(err error) (*plan, error) {
	if !IsRejection(err) {
		return nil, err
	}
	p.err = err
	return p, nil
}

// commit records the plan's outcome under the commit mutex. A conflict is
// only written as a rejected receipt when final is set; otherwise the
// caller retries and nothing is recorded.
//
// When another process sharing the database has taken the next seq, the
// clock is resynced from the log and the same outcome is recorded again.
func (d *Driver) commit(ctx context.Context, p *plan, final bool) (ir.Receipt, error) {
	d.commitMu.Lock()
	defer d.commitMu.Unlock()

	for attempt := 0; ; attempt++ {
		r, err := d.record(ctx, p, final)
		if !errors.Is(err, ir.ErrSeqTaken) || attempt >= d.maxRetries {
			return r, err
		}
		last, serr := d.store.LastSeq(ctx)
		if serr != nil {
			return ir.Receipt{}, fmt.Errorf("resync clock: %w", serr)
		}
		d.clock.AdvanceTo(last)
		d.logger.Info("receipt seq taken, clock resynced",
			"tx_id", p.txID,
			"node_id", p.req.NodeID,
			"seq", last,
			"event", "tx_seq_resync",
		)
	}
}

// record writes one receipt for the plan at the clock's next seq.
func (d *Driver) record(ctx context.Context, p *plan, final bool) (ir.Receipt, error) {
	r := ir.Receipt{
		TxID:      p.txID,
		Seq:       d.clock.Peek(),
		NodeID:    p.req.NodeID,
		Verb:      p.cfg.Verb,
		Params:    p.cfg,
		PrevHash:  p.tip,
		Delta:     p.delta,
		Timestamp: d.now().UTC(),
	}

	rejection := p.err
	if rejection == nil {
		r.Committed = true
		root, err := r.ComputeRoot()
		if err != nil {
			return ir.Receipt{}, fmt.Errorf("commit %s: %w", p.txID, err)
		}
		r.MerkleRoot = root

		err = d.store.Commit(ctx, p.tip, p.delta, r)
		switch {
		case err == nil:
			d.clock.Next()
			d.metrics.committed(r.Verb)
			d.logger.Info("transaction committed",
				"tx_id", r.TxID,
				"node_id", r.NodeID,
				"verb", r.Verb,
				"seq", r.Seq,
				"merkle_root", r.MerkleRoot,
				"event", "tx_committed",
			)
			return r, nil
		case !ir.IsCommitConflict(err):
			return ir.Receipt{}, fmt.Errorf("commit %s: %w", p.txID, err)
		case !final:
			return ir.Receipt{}, err
		}
		rejection = err
		r.Committed = false
	}

	r.Reason = rejectionReason(rejection)
	if root, err := r.ComputeRoot(); err == nil {
		r.MerkleRoot = root
	}
	if err := d.store.AppendReceipt(ctx, r); err != nil {
		return ir.Receipt{}, fmt.Errorf("record rejection %s: %w", p.txID, err)
	}
	d.clock.Next()
	d.metrics.rolledBack(ir.CodeOf(rejection))
	d.logger.Warn("transaction rolled back",
		"tx_id", r.TxID,
		"node_id", r.NodeID,
		"verb", r.Verb,
		"seq", r.Seq,
		"reason", r.Reason,
		"event", "tx_rolled_back",
	)
	return r, rejection
}
