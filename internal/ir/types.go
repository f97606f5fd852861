package ir

import (
	"encoding/json"
	"fmt"
	"time"
)

// MaxBatchSize is the hard admission-control bound on the number of
// operations (additions + removals) a single Delta may carry.
const MaxBatchSize = 64

// Triple is the atomic fact unit of the fact store.
type Triple struct {
	Subject   string `json:"s"`
	Predicate string `json:"p"`
	Object    string `json:"o"`
}

// T is shorthand for constructing a Triple.
func T(s, p, o string) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// String renders the triple in N-Triples-like form for logs and errors.
func (t Triple) String() string {
	return fmt.Sprintf("<%s> <%s> %q", t.Subject, t.Predicate, t.Object)
}

// Compare orders triples by subject, predicate, object (byte order).
func (t Triple) Compare(o Triple) int {
	switch {
	case t.Subject != o.Subject:
		return cmpString(t.Subject, o.Subject)
	case t.Predicate != o.Predicate:
		return cmpString(t.Predicate, o.Predicate)
	default:
		return cmpString(t.Object, o.Object)
	}
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t Triple) canonical() IRArray {
	return IRArray{IRString(t.Subject), IRString(t.Predicate), IRString(t.Object)}
}

// Delta is an immutable pair of ordered triple sequences. Construct it with
// NewDelta; the zero value is a valid empty delta.
//
// INVARIANT: len(additions) + len(removals) <= MaxBatchSize. The bound is
// checked at construction and cannot be violated afterwards because the
// slices are never exposed.
type Delta struct {
	additions []Triple
	removals  []Triple
}

// NewDelta builds a Delta from copies of the given slices.
// Returns a BATCH_SIZE_EXCEEDED KernelError if the batch is over the bound.
func NewDelta(additions, removals []Triple) (Delta, error) {
	if n := len(additions) + len(removals); n > MaxBatchSize {
		return Delta{}, NewBatchSizeError(n)
	}
	return Delta{
		additions: append([]Triple(nil), additions...),
		removals:  append([]Triple(nil), removals...),
	}, nil
}

// EmptyDelta returns a delta with no effect.
func EmptyDelta() Delta {
	return Delta{}
}

// Additions returns a copy of the triples to add, in order.
func (d Delta) Additions() []Triple {
	return append([]Triple(nil), d.additions...)
}

// Removals returns a copy of the triples to remove, in order.
func (d Delta) Removals() []Triple {
	return append([]Triple(nil), d.removals...)
}

// Len returns the total number of operations.
func (d Delta) Len() int {
	return len(d.additions) + len(d.removals)
}

// IsEmpty reports whether the delta has no effect.
func (d Delta) IsEmpty() bool {
	return d.Len() == 0
}

// Canonical returns the hashing form: {"additions":[[s,p,o]...],"removals":[...]}.
func (d Delta) Canonical() IRObject {
	add := make(IRArray, len(d.additions))
	for i, t := range d.additions {
		add[i] = t.canonical()
	}
	rem := make(IRArray, len(d.removals))
	for i, t := range d.removals {
		rem[i] = t.canonical()
	}
	return IRObject{"additions": add, "removals": rem}
}

type deltaJSON struct {
	Additions []Triple `json:"additions"`
	Removals  []Triple `json:"removals"`
}

// MarshalJSON implements json.Marshaler.
func (d Delta) MarshalJSON() ([]byte, error) {
	dj := deltaJSON{Additions: d.additions, Removals: d.removals}
	if dj.Additions == nil {
		dj.Additions = []Triple{}
	}
	if dj.Removals == nil {
		dj.Removals = []Triple{}
	}
	return json.Marshal(dj)
}

// UnmarshalJSON implements json.Unmarshaler. The batch bound applies.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var dj deltaJSON
	if err := json.Unmarshal(data, &dj); err != nil {
		return err
	}
	nd, err := NewDelta(dj.Additions, dj.Removals)
	if err != nil {
		return err
	}
	*d = nd
	return nil
}

// TransactionContext holds the run-time bindings of one execution attempt.
// It is created fresh per attempt and discarded on rollback.
type TransactionContext struct {
	TxID     string   `json:"tx_id"`
	PrevHash string   `json:"prev_hash"` // Chain tip at resolution time
	Data     IRObject `json:"data"`      // Run-time bindings (items, threshold, choice, reason)
}

// Receipt is the provenance record of one transaction attempt.
// Receipts are append-only; the chain tip is the MerkleRoot of the latest
// receipt with Committed == true.
type Receipt struct {
	TxID       string     `json:"tx_id"`
	Seq        int64      `json:"seq"` // Commit sequence number (ordering key)
	NodeID     string     `json:"node_id"`
	Verb       Verb       `json:"verb_executed"`
	Params     VerbConfig `json:"params_used"`
	PrevHash   string     `json:"prev_hash"`
	MerkleRoot string     `json:"merkle_root"`
	Delta      Delta      `json:"delta"`
	Committed  bool       `json:"committed"`
	Reason     string     `json:"reason,omitempty"` // Rejection code and message
	Timestamp  time.Time  `json:"timestamp"`
}

// ComputeRoot recomputes the receipt's merkle root from its contents.
func (r Receipt) ComputeRoot() (string, error) {
	return MerkleRoot(r.PrevHash, r.TxID, r.Verb, r.Params, r.Delta)
}
