package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/kgc/internal/graph"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		outcome := "committed"
		if !ev.Committed {
			outcome = "rejected " + ev.Code
		}
		fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.NodeID, verbOrDash(ev), outcome)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and the
// final graph. Returns one message per failed assertion.
func EvaluateAssertions(result *Result, g graph.View, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, g, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, g graph.View, a Assertion) error {
	switch a.Type {
	case AssertHasToken:
		return assertNodes(result, a, func(n string) bool { return graph.HasToken(g, n) }, "token on")
	case AssertNoToken:
		return assertNodes(result, a, func(n string) bool { return !graph.HasToken(g, n) }, "no token on")
	case AssertCompleted:
		return assertNodes(result, a, func(n string) bool { return g.Has(n, graph.PredCompleted, graph.True) }, "completed")
	case AssertVoided:
		return assertNodes(result, a, func(n string) bool { return graph.IsVoided(g, n) }, "voided")
	case AssertTriple:
		return assertTriple(result, g, a)
	case AssertReceiptCount:
		return assertReceiptCount(result, a)
	case AssertTraceOrder:
		return assertTraceOrder(result, a)
	case AssertChainValid:
		return assertChainValid(result)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertNodes checks that holds is true for every listed node.
func assertNodes(result *Result, a Assertion, holds func(string) bool, what string) error {
	var failed []string
	for _, n := range a.Nodes {
		if !holds(n) {
			failed = append(failed, n)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s %s", what, strings.Join(a.Nodes, ", ")),
		Actual:   fmt.Sprintf("not the case for %s", strings.Join(failed, ", ")),
		Trace:    result.Trace,
	}
}

// assertTriple checks a triple's presence. An empty object matches any
// object of (subject, predicate).
func assertTriple(result *Result, g graph.View, a Assertion) error {
	var present bool
	if a.Object == "" {
		present = len(g.Objects(a.Subject, a.Predicate)) > 0
	} else {
		present = g.Has(a.Subject, a.Predicate, a.Object)
	}
	if present != a.Absent {
		return nil
	}

	want := "present"
	if a.Absent {
		want = "absent"
	}
	return &AssertionError{
		Type:     AssertTriple,
		Expected: fmt.Sprintf("<%s> <%s> %q %s", a.Subject, a.Predicate, a.Object, want),
		Actual:   fmt.Sprintf("objects %v", g.Objects(a.Subject, a.Predicate)),
		Trace:    result.Trace,
	}
}

func assertReceiptCount(result *Result, a Assertion) error {
	count := 0
	for _, ev := range result.Trace {
		if a.Committed == nil || ev.Committed == *a.Committed {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	which := "receipts"
	if a.Committed != nil && *a.Committed {
		which = "committed receipts"
	} else if a.Committed != nil {
		which = "rejected receipts"
	}
	return &AssertionError{
		Type:     AssertReceiptCount,
		Expected: fmt.Sprintf("%d %s", a.Count, which),
		Actual:   fmt.Sprintf("%d %s", count, which),
		Trace:    result.Trace,
	}
}

// assertTraceOrder checks that the listed nodes committed in this order.
// Other commits may come in between; each node is matched at its first
// commit after the previous match.
func assertTraceOrder(result *Result, a Assertion) error {
	committed := result.committedNodes()
	pos := 0
	for _, want := range a.Nodes {
		found := false
		for pos < len(committed) {
			got := committed[pos]
			pos++
			if got == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("commits in order %s", strings.Join(a.Nodes, " -> ")),
				Actual:   fmt.Sprintf("%s not committed in order (commits: %s)", want, strings.Join(committed, " -> ")),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertChainValid(result *Result) error {
	if result.ChainError == "" {
		return nil
	}
	return &AssertionError{
		Type:     AssertChainValid,
		Expected: "receipt chain re-verifies",
		Actual:   result.ChainError,
		Trace:    result.Trace,
	}
}

func verbOrDash(ev TraceEvent) string {
	if ev.Verb == "" {
		return "-"
	}
	return string(ev.Verb)
}
