// Package shape checks candidate graphs against the run-time invariants of
// workflow state before a delta is committed.
//
// A Validator runs a fixed list of rules over a graph.View and reports every
// violation it finds (it does not fail fast). Any violation makes the
// driver reject the transaction.
package shape
