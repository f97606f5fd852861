// Package harness runs workflow scenarios end to end against the real
// driver and checks the resulting receipts and graph state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: exclusive_choice
//	description: "A XOR split routes on run-time data"
//	workflow:                 # inline definition, or
//	topology: order.yaml      # a topology file relative to the scenario
//	catalog: patterns.cue     # optional; the default catalog otherwise
//	steps:
//	  - run: true
//	    data: {amount: 150}
//	    expect:
//	      committed: 2
//	  - fire: review
//	    expect:
//	      error: UNKNOWN_PATTERN
//	assertions:
//	  - type: has_token
//	    nodes: [approve]
//	  - type: triple
//	    subject: approve
//	    predicate: "kgc:completed"
//	    object: "true"
//	  - type: chain_valid
//
// # Assertion Types
//
//   - has_token, no_token: every listed node holds (or lacks) a token
//   - completed, voided: every listed node was completed (or voided)
//   - triple: a triple is present, or absent with absent: true
//   - receipt_count: the number of receipts, optionally only committed ones
//   - trace_order: the listed nodes committed in this relative order
//   - chain_valid: the receipt chain re-verifies against the stored tip
//
// # Deterministic Testing
//
// Every scenario runs in a fresh SQLite store with sequential transaction
// ids (tx-1, tx-2, ...), a deterministic wall clock and serial verb
// evaluation, so traces are identical across runs and can be compared
// against golden files.
package harness
