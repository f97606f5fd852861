package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/ir"
)

func TestDefaultCatalogCoversAllPatterns(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	ids := make(map[int]bool)
	for _, e := range c.Entries() {
		ids[e.ID] = true
	}
	for id := 1; id <= 43; id++ {
		assert.True(t, ids[id], "pattern %d missing from default catalog", id)
	}
	assert.Equal(t, 45, c.Len())
}

func TestDefaultCatalogLookups(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name  string
		match Match
		want  ir.VerbConfig
	}{
		{
			name:  "sequence",
			match: Match{},
			want:  ir.VerbConfig{Verb: ir.VerbTransmute},
		},
		{
			name:  "parallel split",
			match: Match{Split: ir.GatewayAND},
			want:  ir.VerbConfig{Verb: ir.VerbCopy, Cardinality: ir.Cardinality{Kind: ir.CardinalityTopology}},
		},
		{
			name:  "discriminator",
			match: Match{Join: ir.GatewayAND, Markers: []string{"discriminator"}},
			want: ir.VerbConfig{
				Verb:               ir.VerbAwait,
				Threshold:          ir.Threshold{Kind: ir.ThresholdCount, N: 1},
				CompletionStrategy: ir.WaitAll,
				ResetOnFire:        true,
			},
		},
		{
			name:  "cancel region",
			match: Match{Markers: []string{"cancelRegion"}},
			want:  ir.VerbConfig{Verb: ir.VerbVoid, CancellationScope: ir.ScopeRegion},
		},
		{
			name:  "instance step",
			match: Match{Kind: ir.KindInstance},
			want:  ir.VerbConfig{Verb: ir.VerbTransmute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := c.Lookup(tt.match.Key())
			require.True(t, ok, "no entry for %s", tt.match.Key())
			assert.Equal(t, tt.want, e.Config)
		})
	}

	_, ok := c.Lookup(Match{Join: ir.GatewayAND, Markers: []string{"nonexistent"}}.Key())
	assert.False(t, ok)
}

func TestDefaultIsIndependent(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)

	entries := a.Entries()
	entries[0].Name = "mutated"
	assert.NotEqual(t, "mutated", b.Entries()[0].Name)
	assert.NotEqual(t, "mutated", a.Entries()[0].Name)
}

func TestCompileSourceDuplicateSignature(t *testing.T) {
	src := `
pattern: {
	"one": {id: 1, verb: "transmute"}
	"two": {id: 2, verb: "transmute", match: markers: []}
}
`
	_, errs := CompileSource([]byte(src), "dup.cue")
	require.Len(t, errs, 1)

	var ve ValidationError
	require.True(t, errors.As(errs[0], &ve))
	assert.Equal(t, ErrDuplicateSignature, ve.Code)
}

func TestCompileSourceParamNotApplicable(t *testing.T) {
	src := `
pattern: "bad-copy": {
	id: 2
	match: split: "AND"
	verb: "copy"
	params: threshold: 1
}
`
	_, errs := CompileSource([]byte(src), "bad.cue")
	require.NotEmpty(t, errs)

	var ve ValidationError
	require.True(t, errors.As(errs[0], &ve))
	assert.Equal(t, ErrParamNotApplicable, ve.Code)
	assert.Equal(t, "params.threshold", ve.Field)
}

func TestCompileSourceRejectsOutOfSetValues(t *testing.T) {
	for name, src := range map[string]string{
		"verb":           `pattern: x: {id: 1, verb: "teleport"}`,
		"selection mode": `pattern: x: {id: 4, verb: "filter", params: selection_mode: "random"}`,
		"threshold zero": `pattern: x: {id: 3, verb: "await", params: threshold: 0}`,
		"unknown param":  `pattern: x: {id: 3, verb: "await", params: colour: "red"}`,
		"join type":      `pattern: x: {id: 3, verb: "await", match: join: "NAND"}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, errs := CompileSource([]byte(src), "bad.cue")
			assert.Nil(t, c)
			assert.NotEmpty(t, errs)
		})
	}
}

func TestCompileSourceCompileErrorHasPosition(t *testing.T) {
	_, errs := CompileSource([]byte(`pattern: x: {id: 1, verb: "teleport"}`), "pos.cue")
	require.NotEmpty(t, errs)

	var ce *CompileError
	require.True(t, errors.As(errs[0], &ce), "got %T: %v", errs[0], errs[0])
	assert.True(t, ce.Pos.IsValid())
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte(`package custom

pattern: "seq": {id: 1, verb: "transmute"}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cue"), []byte(`package custom

pattern: "split": {id: 2, verb: "copy", match: split: "AND", params: cardinality: 3}
`), 0o644))

	c, errs := Load(dir)
	require.Empty(t, errs)
	assert.Equal(t, 2, c.Len())

	e, ok := c.Lookup(Match{Split: ir.GatewayAND}.Key())
	require.True(t, ok)
	assert.Equal(t, ir.Cardinality{Kind: ir.CardinalityCount, N: 3}, e.Config.Cardinality)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cue")
	require.NoError(t, os.WriteFile(path, []byte(`pattern: "end": {id: 43, verb: "void", match: markers: ["explicitTermination"], params: cancellation_scope: "case"}`), 0o644))

	c, errs := Load(path)
	require.Empty(t, errs)
	assert.Equal(t, 1, c.Len())

	_, errs = Load(filepath.Join(t.TempDir(), "missing.cue"))
	assert.NotEmpty(t, errs)
}

func TestNewRejectsInvalidEntries(t *testing.T) {
	_, err := New([]Entry{
		{ID: 1, Name: "a", Config: ir.VerbConfig{Verb: ir.VerbTransmute}},
		{ID: 2, Name: "", Config: ir.VerbConfig{Verb: "teleport"}},
	})
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	codes := make([]string, len(verrs))
	for i, ve := range verrs {
		codes[i] = ve.Code
	}
	assert.Contains(t, codes, ErrMissingName)
	assert.Contains(t, codes, ErrInvalidVerbConfig)
	assert.Contains(t, codes, ErrDuplicateSignature)
}
