// Package graph provides immutable triple-set snapshots of the fact store.
//
// A Graph is built once and never mutated; Apply returns a new Graph. This
// makes snapshots safe to share between goroutines: pattern resolution and
// verb evaluation for many candidate transactions may read the same Graph
// concurrently while commits happen elsewhere.
//
// The package also defines the workflow vocabulary (wf: topology predicates,
// kgc: run-time state predicates) and extracts a node's TopologySignature.
package graph
