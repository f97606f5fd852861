// Package driver runs workflow transactions against the fact store.
//
// Each transaction moves through four states:
//
//	Resolved → Executed → Validated → {Committed | RolledBack}
//
// The driver snapshots the graph and chain tip, resolves the node to a
// VerbConfig, runs the kernel verb under a time bound, validates the
// candidate graph, and commits the delta with a compare-and-swap on the tip.
// Every rejection is recorded as an uncommitted receipt. A commit conflict
// is retried from a fresh snapshot a bounded number of times.
//
// Thread-safety: Fire, Speculate, Step and Run are safe for concurrent use.
// Commits are serialized by an internal mutex, and receipts take their seq
// from a logical clock, never from wall-clock time.
package driver
