// Package kernel implements the five verbs of the workflow kernel.
//
// Each verb is a pure function of a read-only graph view, a node, a
// transaction context and a VerbConfig. It returns a Delta and nothing else:
// no verb mutates the view, touches the store, or keeps state between calls.
//
// Verbs:
//   - transmute: advance a token 1-to-1 (sequence, merges, instance steps)
//   - copy: diverge (parallel split, multi-instance spawn)
//   - filter: select among alternatives (XOR/OR split, deferred, mutex)
//   - await: converge (joins, discriminators, partial joins)
//   - void: terminate or cancel (task, region, case, instances)
//
// A verb never fails for "nothing to do": it returns an empty Delta. It fails
// only for configuration problems (INVALID_PARAMETER), for deltas over the
// batch bound (BATCH_SIZE_EXCEEDED) and when its context expires (TIMEOUT).
//
// Run-time state lives in the graph as kgc: triples (see package graph).
// Arrivals are recorded only on join nodes; routing verbs (copy, filter) move
// tokens without marking the routing node completed.
package kernel
