// Package catalog provides the Pattern Catalog: the declarative mapping from
// a node's topology signature to the verb and parameters that execute it.
//
// Catalogs are authored in CUE and compiled with the CUE Go API. A catalog
// file declares patterns under the top-level "pattern" field:
//
//	pattern: "structured-discriminator": {
//		id: 9
//		match: {join: "AND", markers: ["discriminator"]}
//		verb: "await"
//		params: {threshold: 1, completion_strategy: "waitAll", reset_on_fire: true}
//	}
//
// Every catalog is unified with an embedded schema before compilation, so
// field names and enumerations are checked by CUE itself. Compilation then
// enforces what CUE cannot: parameter applicability per verb and unique
// signature keys.
//
// A Catalog is immutable after construction and safe for concurrent lookup.
// There is no process-wide registry: callers construct a catalog and pass it
// to the resolver explicitly. Default returns the embedded catalog covering
// the 43 workflow control-flow patterns.
package catalog
