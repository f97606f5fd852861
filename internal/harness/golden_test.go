package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kgc/internal/ir"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"sequence", "exclusive_choice", "unknown_pattern"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRender_Format(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{
			Seq: 1, TxID: "tx-1", NodeID: "A", Verb: ir.VerbTransmute, Committed: true,
			Additions: []ir.Triple{ir.T("B", "kgc:hasToken", "true")},
			Removals:  []ir.Triple{ir.T("A", "kgc:hasToken", "true")},
		},
		{Seq: 2, TxID: "tx-2", NodeID: "B", Code: "TIMEOUT"},
	}
	result.State = []ir.Triple{ir.T("B", "kgc:hasToken", "true")}
	result.Chain.Committed = 1
	result.Chain.Rejected = 1

	want := `scenario: demo
trace:
  [1] tx-1 A transmute committed
    + <B> <kgc:hasToken> "true"
    - <A> <kgc:hasToken> "true"
  [2] tx-2 B - rejected TIMEOUT
state:
  <B> <kgc:hasToken> "true"
chain: committed=1 rejected=1
`
	assert.Equal(t, want, string(Render("demo", result)))
}

func TestRender_BrokenChain(t *testing.T) {
	result := NewResult()
	result.ChainError = "chain broken at seq=1 tx=tx-1: bad root"

	assert.Contains(t, string(Render("x", result)), "chain: broken: chain broken at seq=1")
}

func TestAssertGolden_FromResult(t *testing.T) {
	result, err := Run(t.Context(), loadTestScenario(t, "sequence"))
	require.NoError(t, err)
	AssertGolden(t, "sequence", result)
}
