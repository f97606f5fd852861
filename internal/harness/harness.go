package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/kgc/internal/catalog"
	"github.com/roach88/kgc/internal/driver"
	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
	"github.com/roach88/kgc/internal/kernel"
	"github.com/roach88/kgc/internal/resolver"
	"github.com/roach88/kgc/internal/shape"
	"github.com/roach88/kgc/internal/store"
	"github.com/roach88/kgc/internal/testutil"
	"github.com/roach88/kgc/internal/topology"
)

// Harness is the scenario execution engine. One Harness may run many
// scenarios; each gets a fresh store and fresh deterministic generators.
type Harness struct {
	logger  *slog.Logger
	catalog *catalog.Catalog
	guards  kernel.GuardEvaluator
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger passed to the driver. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithCatalog sets the catalog used by scenarios that do not name one.
func WithCatalog(c *catalog.Catalog) Option {
	return func(h *Harness) { h.catalog = c }
}

// WithGuardEvaluator replaces the CUE guard evaluator.
func WithGuardEvaluator(g kernel.GuardEvaluator) Option {
	return func(h *Harness) { h.guards = g }
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	return New().Run(ctx, scenario)
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the topology into a fresh SQLite store
//  2. Drive every step through the driver, checking expect clauses
//  3. Collect the receipt trace and the final run-time state
//  4. Re-verify the receipt chain and evaluate assertions
//
// The returned error is reserved for problems that prevent the scenario
// from running at all. Failed expectations are reported in the Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	def, err := h.definition(scenario)
	if err != nil {
		return nil, err
	}
	cat, err := h.catalogFor(scenario)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "kgc-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "kgc.db"), store.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	if err := st.Load(ctx, def.Triples()); err != nil {
		return nil, fmt.Errorf("failed to load topology: %w", err)
	}

	var kopts []kernel.Option
	if h.guards != nil {
		kopts = append(kopts, kernel.WithGuardEvaluator(h.guards))
	}
	dopts := []driver.Option{
		driver.WithTxIDGenerator(driver.NewSequentialGenerator("tx")),
		driver.WithNow(testutil.NewDeterministicClock().Now),
		driver.WithLogger(h.logger),
		driver.WithParallelism(1),
	}
	if scenario.MaxSteps > 0 {
		dopts = append(dopts, driver.WithMaxSteps(scenario.MaxSteps))
	}
	d := driver.New(st, resolver.New(cat), kernel.New(kopts...), shape.New(), dopts...)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, d, i, step, result); err != nil {
			return nil, err
		}
	}

	if err := collect(ctx, st, result); err != nil {
		return nil, err
	}
	g, _, err := st.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	for _, msg := range EvaluateAssertions(result, g, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) definition(s *Scenario) (*topology.Definition, error) {
	if s.Workflow != nil {
		return s.Workflow, nil
	}
	def, err := topology.Load(s.Topology)
	if err != nil {
		return nil, fmt.Errorf("failed to load topology: %w", err)
	}
	return def, nil
}

func (h *Harness) catalogFor(s *Scenario) (*catalog.Catalog, error) {
	if s.Catalog != "" {
		c, errs := catalog.Load(s.Catalog)
		if len(errs) > 0 {
			return nil, fmt.Errorf("failed to load catalog: %w", errors.Join(errs...))
		}
		return c, nil
	}
	if h.catalog != nil {
		return h.catalog, nil
	}
	c, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return c, nil
}

// executeStep runs one step. Rejections are part of the trace; only
// infrastructure failures are returned.
func (h *Harness) executeStep(ctx context.Context, d *driver.Driver, i int, step Step, result *Result) error {
	data, err := ir.ObjectFromAny(step.Data)
	if err != nil {
		return fmt.Errorf("step %d: data: %w", i, err)
	}

	var (
		receipts []ir.Receipt
		stepErr  error
	)
	switch {
	case step.Fire != "":
		r, err := d.Fire(ctx, driver.Request{NodeID: step.Fire, Data: data})
		if err != nil && !driver.IsRejection(err) {
			return fmt.Errorf("step %d: %w", i, err)
		}
		receipts, stepErr = []ir.Receipt{r}, err

	case step.Step:
		rs, err := d.Step(ctx, data)
		if err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		receipts = rs

	case step.Run:
		report, err := d.Run(ctx, data)
		if err != nil && !driver.IsRejection(err) && !driver.IsStepsExceeded(err) {
			return fmt.Errorf("step %d: %w", i, err)
		}
		receipts, stepErr = report.Receipts, err
		if err != nil && (step.Expect == nil || step.Expect.Error == "") {
			result.AddError(fmt.Sprintf("step %d: run stopped: %v", i, err))
		}
	}

	h.logger.Debug("scenario step completed",
		"step", i,
		"receipts", len(receipts),
		"event", "scenario_step",
	)
	if step.Expect != nil {
		for _, msg := range checkExpect(step.Expect, receipts, stepErr) {
			result.AddError(fmt.Sprintf("step %d: %s", i, msg))
		}
	}
	return nil
}

func checkExpect(e *ExpectClause, receipts []ir.Receipt, stepErr error) []string {
	var errs []string

	committed, rejected := 0, 0
	verbs := make([]string, len(receipts))
	for i, r := range receipts {
		if r.Committed {
			committed++
		} else {
			rejected++
		}
		verbs[i] = string(r.Verb)
	}
	if e.Committed != nil && *e.Committed != committed {
		errs = append(errs, fmt.Sprintf("expected %d committed receipts, got %d", *e.Committed, committed))
	}
	if e.Rejected != nil && *e.Rejected != rejected {
		errs = append(errs, fmt.Sprintf("expected %d rejected receipts, got %d", *e.Rejected, rejected))
	}
	if len(e.Verbs) > 0 && !slices.Equal(e.Verbs, verbs) {
		errs = append(errs, fmt.Sprintf("expected verbs [%s], got [%s]",
			strings.Join(e.Verbs, " "), strings.Join(verbs, " ")))
	}
	if e.Error != "" {
		if got := stepErrorCode(stepErr); got != e.Error {
			errs = append(errs, fmt.Sprintf("expected error %s, got %q", e.Error, got))
		}
	}
	return errs
}

func stepErrorCode(err error) string {
	if driver.IsStepsExceeded(err) {
		return CodeStepsExceeded
	}
	return string(ir.CodeOf(err))
}

// collect fills the trace, final state and chain report from the store.
func collect(ctx context.Context, st *store.Store, result *Result) error {
	receipts, err := st.Receipts(ctx, store.ReceiptFilter{})
	if err != nil {
		return fmt.Errorf("failed to read receipts: %w", err)
	}
	for _, r := range receipts {
		result.Trace = append(result.Trace, traceEvent(r))
	}

	triples, err := st.Triples(ctx)
	if err != nil {
		return fmt.Errorf("failed to read triples: %w", err)
	}
	for _, t := range triples {
		if isRunTime(t) {
			result.State = append(result.State, t)
		}
	}
	slices.SortFunc(result.State, ir.Triple.Compare)

	report, err := st.VerifyChain(ctx)
	if err != nil {
		var ce *store.ChainError
		if !errors.As(err, &ce) {
			return err
		}
		result.ChainError = ce.Error()
	}
	result.Chain = report
	return nil
}

// isRunTime reports whether t is verb-written state rather than topology.
func isRunTime(t ir.Triple) bool {
	return strings.HasPrefix(t.Predicate, "kgc:") && t.Predicate != graph.PredCase
}
