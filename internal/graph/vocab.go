package graph

// Topology predicates. Topology is read-only to the kernel.
const (
	PredKind               = "wf:kind"               // task | condition
	PredSplitType          = "wf:splitType"          // none | AND | XOR | OR
	PredJoinType           = "wf:joinType"           // none | AND | XOR | OR
	PredMIMode             = "wf:miMode"             // none | static | dynamic | incremental
	PredMICount            = "wf:miCount"            // Static instance count
	PredMIDataKey          = "wf:miDataKey"          // ctx.data key for dynamic instance data
	PredMarker             = "wf:marker"             // Pattern marker (e.g. discriminator)
	PredCancellationRegion = "wf:cancellationRegion" // Region voided when this node fires
	PredMemberOf           = "wf:memberOf"           // Region membership
	PredExceptionHandler   = "wf:exceptionHandler"   // Node activated by task-scope void
	PredFlowSource         = "wf:source"
	PredFlowTarget         = "wf:target"
	PredFlowGuard          = "wf:guard"     // CUE boolean expression over data
	PredFlowOrder          = "wf:order"     // Declaration order, decimal
	PredFlowDefault        = "wf:isDefault" // "true" on the default flow
)

// Run-time state predicates written by verbs.
const (
	PredHasToken       = "kgc:hasToken"
	PredCompleted      = "kgc:completed"
	PredArrivedFrom    = "kgc:arrivedFrom"
	PredFiredBy        = "kgc:firedBy"
	PredIgnored        = "kgc:ignored"
	PredJoinFired      = "kgc:joinFired"
	PredVoided         = "kgc:voided"
	PredAwaitingChoice = "kgc:awaitingChoice"
	PredWaiting        = "kgc:waiting"
	PredAdmitted       = "kgc:admitted"
	PredInstanceOf     = "kgc:instanceOf"
	PredInstanceIndex  = "kgc:instanceIndex"
	PredBoundTo        = "kgc:boundTo"
	PredSpawnedBy      = "kgc:spawnedBy"
	PredInstanceCount  = "kgc:instanceCount"
	PredCase           = "kgc:case"
)

// True is the object of flag-style triples.
const True = "true"
