package resolver

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/catalog"
	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

func defaultResolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	return New(c)
}

func TestResolveDiscriminator(t *testing.T) {
	g := graph.New([]ir.Triple{
		ir.T("J", graph.PredKind, "task"),
		ir.T("J", graph.PredJoinType, "AND"),
		ir.T("J", graph.PredMarker, "discriminator"),
	})

	res, err := defaultResolver(t).ResolveDetail(context.Background(), g, "J")
	require.NoError(t, err)
	assert.Equal(t, "structured-discriminator", res.Entry.Name)
	assert.Equal(t, ir.VerbAwait, res.Entry.Config.Verb)
	assert.Equal(t, ir.Threshold{Kind: ir.ThresholdCount, N: 1}, res.Entry.Config.Threshold)
	assert.True(t, res.Entry.Config.ResetOnFire)
}

func TestResolveUnknownPattern(t *testing.T) {
	g := graph.New([]ir.Triple{
		ir.T("N", graph.PredKind, "task"),
		ir.T("N", graph.PredJoinType, "AND"),
		ir.T("N", graph.PredMarker, "noSuchPattern"),
	})

	cfg, err := defaultResolver(t).Resolve(context.Background(), g, "N")
	require.Error(t, err)
	assert.True(t, ir.IsUnknownPattern(err))
	assert.Equal(t, ir.VerbConfig{}, cfg)
}

func TestResolveUnknownNode(t *testing.T) {
	_, err := defaultResolver(t).Resolve(context.Background(), graph.Empty(), "ghost")
	assert.True(t, ir.IsUnknownPattern(err))
}

func TestResolveInvalidTopologyValue(t *testing.T) {
	g := graph.New([]ir.Triple{
		ir.T("N", graph.PredKind, "task"),
		ir.T("N", graph.PredSplitType, "SOMETIMES"),
	})
	_, err := defaultResolver(t).Resolve(context.Background(), g, "N")
	assert.True(t, ir.IsInvalidParameter(err))
}

func TestResolveSyntheticCatalog(t *testing.T) {
	c, err := catalog.New([]catalog.Entry{{
		ID:     1,
		Name:   "everything-voids",
		Config: ir.VerbConfig{Verb: ir.VerbVoid, CancellationScope: ir.ScopeSelf},
	}})
	require.NoError(t, err)

	g := graph.New([]ir.Triple{ir.T("A", graph.PredKind, "task")})
	cfg, err := New(c).Resolve(context.Background(), g, "A")
	require.NoError(t, err)
	assert.Equal(t, ir.VerbVoid, cfg.Verb)
}

func TestResolveConcurrent(t *testing.T) {
	r := defaultResolver(t)
	g := graph.New([]ir.Triple{
		ir.T("A", graph.PredKind, "task"),
		ir.T("A", graph.PredSplitType, "AND"),
	})

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Resolve(context.Background(), g, "A")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestResolveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := defaultResolver(t).Resolve(ctx, graph.Empty(), "A")
	assert.ErrorIs(t, err, context.Canceled)
}
