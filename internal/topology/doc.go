// Package topology reads YAML workflow definitions and turns them into the
// triples the kernel reads.
//
// A definition declares nodes (kind, split and join gateways, multi-instance
// mode, markers, cancellation regions, exception handlers), the flows between
// them, and the nodes that start with a token:
//
//	workflow: order-fulfilment
//	nodes:
//	  - {id: receive}
//	  - {id: split, split: AND}
//	  - {id: pick}
//	  - {id: pack}
//	  - {id: ship, join: AND}
//	flows:
//	  - {from: receive, to: split}
//	  - {from: split, to: pick}
//	  - {from: split, to: pack}
//	  - {from: pick, to: ship}
//	  - {from: pack, to: ship}
//	start: [receive]
//
// Flow declaration order becomes wf:order, which is the order filter guards
// are evaluated in.
package topology
