package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Render produces the golden text form of a result: every receipt with its
// delta, the final run-time state and the chain summary. Hashes and
// timestamps are left out so the text only changes when behavior does.
//
// Format:
//
//	scenario: sequence
//	trace:
//	  [1] tx-1 A transmute committed
//	    + <A> <kgc:completed> "true"
//	    - <A> <kgc:hasToken> "true"
//	state:
//	  <A> <kgc:completed> "true"
//	chain: committed=1 rejected=0
func Render(name string, result *Result) []byte {
	var buf strings.Builder

	fmt.Fprintf(&buf, "scenario: %s\n", name)
	buf.WriteString("trace:\n")
	for _, ev := range result.Trace {
		outcome := "committed"
		if !ev.Committed {
			outcome = "rejected " + ev.Code
		}
		fmt.Fprintf(&buf, "  [%d] %s %s %s %s\n", ev.Seq, ev.TxID, ev.NodeID, verbOrDash(ev), outcome)
		for _, t := range ev.Additions {
			fmt.Fprintf(&buf, "    + %s\n", t)
		}
		for _, t := range ev.Removals {
			fmt.Fprintf(&buf, "    - %s\n", t)
		}
	}
	buf.WriteString("state:\n")
	for _, t := range result.State {
		fmt.Fprintf(&buf, "  %s\n", t)
	}
	if result.ChainError != "" {
		fmt.Fprintf(&buf, "chain: broken: %s\n", result.ChainError)
	} else {
		fmt.Fprintf(&buf, "chain: committed=%d rejected=%d\n", result.Chain.Committed, result.Chain.Rejected)
	}
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares its rendered trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Render(name, result))
}
