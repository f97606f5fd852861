package graph

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/roach88/kgc/internal/ir"
)

// IsNode reports whether id is a declared node or a spawned instance.
func IsNode(v View, id string) bool {
	return First(v, id, PredKind) != "" || First(v, id, PredInstanceOf) != ""
}

// Parent returns the node an instance was spawned from, or "" for declared
// nodes.
func Parent(v View, id string) string {
	return First(v, id, PredInstanceOf)
}

// Root follows instanceOf links up to the declared node an instance (or an
// instance of an instance) was spawned from. Declared nodes are their own
// root.
func Root(v View, id string) string {
	seen := map[string]bool{}
	for {
		parent := Parent(v, id)
		if parent == "" || seen[parent] {
			return id
		}
		seen[id] = true
		id = parent
	}
}

// IsJoin reports whether the node declares a join type other than none.
// Only joins record arrivals.
func IsJoin(v View, id string) bool {
	jt := First(v, id, PredJoinType)
	return jt != "" && jt != string(ir.GatewayNone)
}

// HasToken reports whether the node currently holds a token.
func HasToken(v View, id string) bool {
	return v.Has(id, PredHasToken, True)
}

// ActiveNodes returns every node holding a token.
func ActiveNodes(v View) []string {
	return v.Subjects(PredHasToken, True)
}

// IsVoided reports whether the node has been voided.
func IsVoided(v View, id string) bool {
	return len(v.Objects(id, PredVoided)) > 0
}

// Instances returns the instances spawned from parent, ordered by instance
// index and then by identifier.
func Instances(v View, parent string) []string {
	ids := v.Subjects(PredInstanceOf, parent)
	slices.SortStableFunc(ids, func(a, b string) int {
		return cmp.Or(
			cmp.Compare(instanceIndex(v, a), instanceIndex(v, b)),
			cmp.Compare(a, b),
		)
	})
	return ids
}

func instanceIndex(v View, id string) int {
	n, err := strconv.Atoi(First(v, id, PredInstanceIndex))
	if err != nil {
		return -1
	}
	return n
}

// Outgoing returns the flows whose source is node, in declaration order.
func Outgoing(v View, node string) []ir.FlowRef {
	return flows(v, v.Subjects(PredFlowSource, node))
}

// Incoming returns the flows whose target is node, in declaration order.
func Incoming(v View, node string) []ir.FlowRef {
	return flows(v, v.Subjects(PredFlowTarget, node))
}

// Successors returns the targets of node's outgoing flows, in declaration
// order.
func Successors(v View, node string) []string {
	out := Outgoing(v, node)
	ids := make([]string, len(out))
	for i, f := range out {
		ids[i] = f.Target
	}
	return ids
}

// Predecessors returns the distinct sources of node's incoming flows, in
// declaration order.
func Predecessors(v View, node string) []string {
	var ids []string
	for _, f := range Incoming(v, node) {
		if !slices.Contains(ids, f.Source) {
			ids = append(ids, f.Source)
		}
	}
	return ids
}

func flows(v View, ids []string) []ir.FlowRef {
	out := make([]ir.FlowRef, 0, len(ids))
	for _, id := range ids {
		order, _ := strconv.Atoi(First(v, id, PredFlowOrder))
		out = append(out, ir.FlowRef{
			ID:      id,
			Source:  First(v, id, PredFlowSource),
			Target:  First(v, id, PredFlowTarget),
			Guard:   First(v, id, PredFlowGuard),
			Order:   order,
			Default: v.Has(id, PredFlowDefault, True),
		})
	}
	slices.SortStableFunc(out, func(a, b ir.FlowRef) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// RegionMembers returns every node that is a member of region.
func RegionMembers(v View, region string) []string {
	return v.Subjects(PredMemberOf, region)
}

// Signature extracts the topology signature of a node. The boolean is false
// when the node is neither declared nor spawned. Out-of-set topology values
// yield an INVALID_PARAMETER error.
//
// Instances carry no topology of their own: their signature has kind
// instance, the flows of their root node, and no markers.
func Signature(v View, id string) (ir.TopologySignature, bool, error) {
	if parent := Parent(v, id); parent != "" {
		root := Root(v, id)
		return ir.TopologySignature{
			NodeID:     id,
			Kind:       ir.KindInstance,
			Split:      ir.GatewayNone,
			Join:       ir.GatewayNone,
			MI:         ir.MINone,
			Markers:    []string{},
			MemberOf:   v.Objects(root, PredMemberOf),
			Incoming:   Incoming(v, root),
			Outgoing:   Outgoing(v, root),
			InstanceOf: parent,
		}, true, nil
	}

	kind := First(v, id, PredKind)
	if kind == "" {
		return ir.TopologySignature{}, false, nil
	}

	sig := ir.TopologySignature{
		NodeID:   id,
		Kind:     ir.NodeKind(kind),
		Markers:  ir.NormalizeMarkers(v.Objects(id, PredMarker)),
		Region:   First(v, id, PredCancellationRegion),
		MemberOf: v.Objects(id, PredMemberOf),
		Incoming: Incoming(v, id),
		Outgoing: Outgoing(v, id),
	}
	switch sig.Kind {
	case ir.KindTask, ir.KindCondition:
	default:
		return ir.TopologySignature{}, true, ir.NewInvalidParameterError(PredKind, kind)
	}

	var err error
	if sig.Split, err = ir.ParseGatewayType(PredSplitType, First(v, id, PredSplitType)); err != nil {
		return ir.TopologySignature{}, true, err
	}
	if sig.Join, err = ir.ParseGatewayType(PredJoinType, First(v, id, PredJoinType)); err != nil {
		return ir.TopologySignature{}, true, err
	}
	if sig.MI, err = ir.ParseMIMode(First(v, id, PredMIMode)); err != nil {
		return ir.TopologySignature{}, true, err
	}
	return sig, true, nil
}
