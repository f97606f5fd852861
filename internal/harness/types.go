package harness

import (
	"strings"

	"github.com/roach88/kgc/internal/ir"
	"github.com/roach88/kgc/internal/store"
)

// TraceEvent is one receipt, reduced to the fields that are stable across
// runs. Hashes and timestamps are left out.
type TraceEvent struct {
	Seq       int64       `json:"seq"`
	TxID      string      `json:"tx_id"`
	NodeID    string      `json:"node_id"`
	Verb      ir.Verb     `json:"verb,omitempty"`
	Params    string      `json:"params,omitempty"`
	Committed bool        `json:"committed"`
	Code      string      `json:"code,omitempty"` // Rejection code of an uncommitted receipt
	Additions []ir.Triple `json:"additions"`
	Removals  []ir.Triple `json:"removals"`
}

// traceEvent reduces a receipt to a TraceEvent.
func traceEvent(r ir.Receipt) TraceEvent {
	ev := TraceEvent{
		Seq:       r.Seq,
		TxID:      r.TxID,
		NodeID:    r.NodeID,
		Verb:      r.Verb,
		Committed: r.Committed,
		Additions: r.Delta.Additions(),
		Removals:  r.Delta.Removals(),
	}
	if r.Verb != "" {
		ev.Params = r.Params.String()
	}
	if !r.Committed {
		code, _, _ := strings.Cut(r.Reason, ":")
		ev.Code = code
	}
	return ev
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every receipt in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// State is the final run-time state (kgc: triples), sorted.
	State []ir.Triple `json:"state"`

	// Chain is the outcome of re-verifying the receipt chain.
	Chain      store.ChainReport `json:"chain"`
	ChainError string            `json:"chain_error,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  []ir.Triple{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// committedNodes returns the node of every committed receipt, in seq order.
func (r *Result) committedNodes() []string {
	var nodes []string
	for _, ev := range r.Trace {
		if ev.Committed {
			nodes = append(nodes, ev.NodeID)
		}
	}
	return nodes
}
