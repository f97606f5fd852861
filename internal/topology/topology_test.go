package topology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

const orderYAML = `
workflow: order
case: c1
nodes:
  - {id: receive}
  - {id: route, split: XOR}
  - {id: express}
  - {id: standard}
  - {id: ship, join: XOR, markers: [multiMerge]}
  - {id: cancel, markers: [cancelRegion], region: R1, member_of: [R0]}
flows:
  - {from: receive, to: route}
  - {from: route, to: express, guard: "data.priority == \"high\""}
  - {from: route, to: standard, default: true}
  - {from: express, to: ship}
  - {from: standard, to: ship}
start: [receive]
`

func TestParseRendersTriples(t *testing.T) {
	def, err := Parse([]byte(orderYAML))
	require.NoError(t, err)

	g := graph.New(def.Triples())
	assert.True(t, graph.HasToken(g, "receive"))
	assert.Equal(t, "XOR", graph.First(g, "route", graph.PredSplitType))
	assert.Equal(t, []string{"c1"}, g.Objects("ship", graph.PredCase))
	assert.Equal(t, "R1", graph.First(g, "cancel", graph.PredCancellationRegion))

	out := graph.Outgoing(g, "route")
	require.Len(t, out, 2)
	assert.Equal(t, "express", out[0].Target)
	assert.Equal(t, `data.priority == "high"`, out[0].Guard)
	assert.Equal(t, "route->express", out[0].ID)
	assert.True(t, out[1].Default)

	sig, ok, err := graph.Signature(g, "ship")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.SignatureKey("task|split=none|join=XOR|mi=none|markers=multiMerge"), sig.Key())
}

func TestTriplesAreSortedAndUnique(t *testing.T) {
	def, err := Parse([]byte(orderYAML))
	require.NoError(t, err)

	ts := def.Triples()
	for i := 1; i < len(ts); i++ {
		assert.Negative(t, ts[i-1].Compare(ts[i]))
	}
}

func TestDuplicateFlowPairsGetDistinctIDs(t *testing.T) {
	def, err := Parse([]byte(`
nodes: [{id: A}, {id: B}]
flows:
  - {from: A, to: B}
  - {from: A, to: B}
`))
	require.NoError(t, err)
	assert.Equal(t, "A->B", def.flowID(0))
	assert.Equal(t, "A->B#1", def.flowID(1))
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "nodes: [{id: A, colour: red}]", "colour"},
		{"no nodes", "workflow: empty", "nodes list is required"},
		{"duplicate node", "nodes: [{id: A}, {id: A}]", "duplicate id"},
		{"bad split", "nodes: [{id: A, split: NAND}]", "NAND"},
		{"bad mi", "nodes: [{id: A, mi: sometimes}]", "sometimes"},
		{"static without count", "nodes: [{id: A, mi: static}]", "mi_count"},
		{"dangling flow", "nodes: [{id: A}]\nflows: [{from: A, to: B}]", "target \"B\""},
		{"unknown start", "nodes: [{id: A}]\nstart: [Z]", "start node \"Z\""},
		{"unknown handler", "nodes: [{id: A, exception_handler: H}]", "exception handler"},
		{"bad kind", "nodes: [{id: A, kind: gateway}]", "kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.yaml")
	require.NoError(t, os.WriteFile(path, []byte(orderYAML), 0o644))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "order", def.Workflow)
	assert.Len(t, def.Nodes, 6)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
