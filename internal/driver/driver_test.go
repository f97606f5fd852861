package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/catalog"
	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
	"github.com/roach88/kgc/internal/kernel"
	"github.com/roach88/kgc/internal/resolver"
	"github.com/roach88/kgc/internal/shape"
	"github.com/roach88/kgc/internal/store"
)

var (
	catalogOnce sync.Once
	defaultCat  *catalog.Catalog
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	catalogOnce.Do(func() {
		c, err := catalog.Default()
		if err != nil {
			panic(err)
		}
		defaultCat = c
	})
	return defaultCat
}

type fixture struct {
	store   *store.Store
	driver  *Driver
	metrics *Metrics
}

func newFixture(t *testing.T, triples []ir.Triple, opts ...Option) *fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kgc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Load(context.Background(), triples))

	m := NewMetrics(prometheus.NewRegistry())
	base := []Option{
		WithTxIDGenerator(NewSequentialGenerator("tx")),
		WithNow(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(m),
	}
	d := New(s, resolver.New(testCatalog(t)), kernel.New(), shape.New(), append(base, opts...)...)
	return &fixture{store: s, driver: d, metrics: m}
}

// wf builds topology triples.
type wf []ir.Triple

func (w wf) node(id string, kv ...string) wf {
	w = append(w, ir.T(id, graph.PredKind, "task"))
	for i := 0; i+1 < len(kv); i += 2 {
		w = append(w, ir.T(id, kv[i], kv[i+1]))
	}
	return w
}

func (w wf) flow(src, dst string, kv ...string) wf {
	id := fmt.Sprintf("%s->%s", src, dst)
	w = append(w,
		ir.T(id, graph.PredFlowSource, src),
		ir.T(id, graph.PredFlowTarget, dst),
	)
	for i := 0; i+1 < len(kv); i += 2 {
		w = append(w, ir.T(id, kv[i], kv[i+1]))
	}
	return w
}

func (w wf) token(ids ...string) wf {
	for _, id := range ids {
		w = append(w, ir.T(id, graph.PredHasToken, graph.True))
	}
	return w
}

func TestFireCommitsSequence(t *testing.T) {
	f := newFixture(t, wf{}.node("A").node("B").flow("A", "B").token("A"))
	ctx := context.Background()

	r, err := f.driver.Fire(ctx, Request{NodeID: "A"})
	require.NoError(t, err)

	assert.True(t, r.Committed)
	assert.Equal(t, int64(1), r.Seq)
	assert.Equal(t, "tx-1", r.TxID)
	assert.Equal(t, ir.VerbTransmute, r.Verb)
	assert.Equal(t, ir.GenesisHash, r.PrevHash)
	root, err := r.ComputeRoot()
	require.NoError(t, err)
	assert.Equal(t, root, r.MerkleRoot)

	g, tip, err := f.store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, r.MerkleRoot, tip)
	assert.True(t, graph.HasToken(g, "B"))
	assert.False(t, graph.HasToken(g, "A"))

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.commits.WithLabelValues("transmute")))
}

func TestFireUnknownPatternRollsBack(t *testing.T) {
	f := newFixture(t, wf{}.
		node("A", graph.PredSplitType, "AND", graph.PredJoinType, "AND").
		node("B").flow("A", "B").token("A"))
	ctx := context.Background()

	before, err := f.store.Triples(ctx)
	require.NoError(t, err)

	r, err := f.driver.Fire(ctx, Request{NodeID: "A"})
	require.Error(t, err)
	assert.True(t, ir.IsUnknownPattern(err))
	assert.False(t, r.Committed)
	assert.Contains(t, r.Reason, "UNKNOWN_PATTERN")
	assert.True(t, r.Delta.IsEmpty())

	after, err := f.store.Triples(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	tip, _, err := f.store.Tip(ctx)
	require.NoError(t, err)
	assert.Equal(t, ir.GenesisHash, tip)

	receipts, err := f.store.Receipts(ctx, store.ReceiptFilter{})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.False(t, receipts[0].Committed)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.rollbacks.WithLabelValues("UNKNOWN_PATTERN")))
}

type rejectAll struct{}

func (rejectAll) Validate(context.Context, graph.View) (bool, []string) {
	return false, []string{"[S399] A: rejected"}
}

func TestFireValidationFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, wf{}.node("A").node("B").flow("A", "B").token("A"))
	f.driver.validator = rejectAll{}
	ctx := context.Background()

	before, err := f.store.Triples(ctx)
	require.NoError(t, err)

	r, err := f.driver.Fire(ctx, Request{NodeID: "A"})
	require.Error(t, err)
	assert.True(t, ir.IsValidationFailure(err))
	assert.False(t, r.Committed)
	assert.Contains(t, r.Reason, "[S399] A: rejected")
	assert.False(t, r.Delta.IsEmpty(), "the rejected delta is kept as evidence")

	after, err := f.store.Triples(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	report, err := f.store.VerifyChain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Committed)
	assert.Equal(t, 1, report.Rejected)
}

type blockingGuards struct{}

func (blockingGuards) Eval(ctx context.Context, _ string, _ ir.IRObject) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func TestFireVerbTimeout(t *testing.T) {
	f := newFixture(t, wf{}.
		node("A", graph.PredSplitType, "XOR").node("B").node("C").
		flow("A", "B", graph.PredFlowGuard, "data.x > 1").
		flow("A", "C", graph.PredFlowDefault, graph.True).
		token("A"),
		WithVerbTimeout(10*time.Millisecond))
	f.driver.kernel = kernel.New(kernel.WithGuardEvaluator(blockingGuards{}))

	r, err := f.driver.Fire(context.Background(), Request{NodeID: "A"})
	require.Error(t, err)
	assert.True(t, ir.IsTimeout(err))
	assert.False(t, r.Committed)
	assert.Contains(t, r.Reason, "TIMEOUT")
}

// conflictingStore reports a moved tip for the first n commits.
type conflictingStore struct {
	*store.Store
	mu sync.Mutex
	n  int
}

func (s *conflictingStore) Commit(ctx context.Context, expected string, d ir.Delta, r ir.Receipt) error {
	s.mu.Lock()
	if s.n > 0 {
		s.n--
		s.mu.Unlock()
		return ir.NewCommitConflictError(expected, "ffffffffffffffff")
	}
	s.mu.Unlock()
	return s.Store.Commit(ctx, expected, d, r)
}

func TestFireRetriesCommitConflict(t *testing.T) {
	f := newFixture(t, wf{}.node("A").node("B").flow("A", "B").token("A"))
	f.driver.store = &conflictingStore{Store: f.store, n: 2}

	r, err := f.driver.Fire(context.Background(), Request{NodeID: "A"})
	require.NoError(t, err)
	assert.True(t, r.Committed)
	assert.Equal(t, "tx-3", r.TxID, "each attempt gets a fresh transaction id")
	assert.Equal(t, int64(1), r.Seq, "conflicts that are retried leave no receipt")
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.conflicts))
}

func TestFireGivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture(t, wf{}.node("A").node("B").flow("A", "B").token("A"), WithMaxRetries(1))
	f.driver.store = &conflictingStore{Store: f.store, n: 10}

	r, err := f.driver.Fire(context.Background(), Request{NodeID: "A"})
	require.Error(t, err)
	assert.True(t, ir.IsCommitConflict(err))
	assert.False(t, r.Committed)
	assert.Contains(t, r.Reason, "COMMIT_CONFLICT")

	receipts, err := f.store.Receipts(context.Background(), store.ReceiptFilter{})
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}

func TestFireUnknownNode(t *testing.T) {
	f := newFixture(t, wf{}.node("A"))
	r, err := f.driver.Fire(context.Background(), Request{NodeID: "nope"})
	assert.True(t, ir.IsUnknownPattern(err))
	assert.False(t, r.Committed)
}

func TestFireCancelledContextIsNotReceipted(t *testing.T) {
	f := newFixture(t, wf{}.node("A").node("B").flow("A", "B").token("A"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.driver.Fire(ctx, Request{NodeID: "A"})
	require.Error(t, err)
	assert.False(t, IsRejection(err))
}

func TestFireResyncsSeqWithSecondWriter(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	open := func(prefix string) (*store.Store, *Driver) {
		s, err := store.Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		last, err := s.LastSeq(ctx)
		require.NoError(t, err)
		d := New(s, resolver.New(testCatalog(t)), kernel.New(), shape.New(),
			WithClock(NewClockAt(last)),
			WithTxIDGenerator(NewSequentialGenerator(prefix)),
			WithLogger(logger),
		)
		return s, d
	}

	// Both writers sync their clocks before either has committed.
	s1, d1 := open("p1")
	_, d2 := open("p2")
	require.NoError(t, s1.Load(ctx, wf{}.node("A").node("B").node("C").node("D").node("E").
		flow("A", "C").flow("B", "D").flow("C", "E").token("A", "B")))

	r1, err := d1.Fire(ctx, Request{NodeID: "A"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), r1.Seq)

	r2, err := d2.Fire(ctx, Request{NodeID: "B"})
	require.NoError(t, err)
	assert.True(t, r2.Committed)
	assert.Equal(t, int64(2), r2.Seq)
	assert.Equal(t, r1.MerkleRoot, r2.PrevHash)

	r3, err := d1.Fire(ctx, Request{NodeID: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), r3.Seq)

	report, err := s1.VerifyChain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Committed)
	assert.Equal(t, r3.MerkleRoot, report.Tip)
}
