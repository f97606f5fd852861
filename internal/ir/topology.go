package ir

import (
	"fmt"
	"slices"
	"strings"
)

// NodeKind distinguishes declared topology nodes from spawned instances.
type NodeKind string

const (
	KindTask      NodeKind = "task"
	KindCondition NodeKind = "condition"
	KindInstance  NodeKind = "instance"
)

// GatewayType is the split or join behaviour of a node.
type GatewayType string

const (
	GatewayNone GatewayType = "none"
	GatewayAND  GatewayType = "AND"
	GatewayXOR  GatewayType = "XOR"
	GatewayOR   GatewayType = "OR"
)

// ParseGatewayType validates a split or join type. Empty means none.
func ParseGatewayType(field, s string) (GatewayType, error) {
	switch g := GatewayType(s); g {
	case "":
		return GatewayNone, nil
	case GatewayNone, GatewayAND, GatewayXOR, GatewayOR:
		return g, nil
	default:
		return "", NewInvalidParameterError(field, s)
	}
}

// MIMode is the multi-instance configuration of a node.
type MIMode string

const (
	MINone        MIMode = "none"
	MIStatic      MIMode = "static"
	MIDynamic     MIMode = "dynamic"
	MIIncremental MIMode = "incremental"
)

// ParseMIMode validates a multi-instance mode. Empty means none.
func ParseMIMode(s string) (MIMode, error) {
	switch m := MIMode(s); m {
	case "":
		return MINone, nil
	case MINone, MIStatic, MIDynamic, MIIncremental:
		return m, nil
	default:
		return "", NewInvalidParameterError("mi_mode", s)
	}
}

// FlowRef is one directed edge as seen from a node.
type FlowRef struct {
	ID      string // Flow resource identifier
	Source  string
	Target  string
	Guard   string // CUE boolean expression, empty if unguarded
	Order   int    // Declaration order
	Default bool
}

// TopologySignature is the read-only structural description of a node that
// pattern resolution keys on.
type TopologySignature struct {
	NodeID     string
	Kind       NodeKind
	Split      GatewayType
	Join       GatewayType
	MI         MIMode
	Markers    []string // Sorted, deduplicated
	Region     string   // Cancellation region triggered by this node, if any
	MemberOf   []string // Cancellation regions this node belongs to
	Incoming   []FlowRef
	Outgoing   []FlowRef
	InstanceOf string // Parent node, for spawned instances
}

// SignatureKey is the exact-match catalog lookup key derived from a
// signature. Node identity, flows and regions are excluded so the key
// describes the shape, not the instance.
type SignatureKey string

// Key computes the catalog key:
//
//	<kind>|split=<split>|join=<join>|mi=<mi>|markers=<m1,m2,...>
func (s TopologySignature) Key() SignatureKey {
	return NewSignatureKey(s.Kind, s.Split, s.Join, s.MI, s.Markers)
}

// NewSignatureKey builds a key from its components. Empty values are
// normalized to their "none" form and markers are sorted.
func NewSignatureKey(kind NodeKind, split, join GatewayType, mi MIMode, markers []string) SignatureKey {
	if kind == "" {
		kind = KindTask
	}
	if split == "" {
		split = GatewayNone
	}
	if join == "" {
		join = GatewayNone
	}
	if mi == "" {
		mi = MINone
	}
	return SignatureKey(fmt.Sprintf("%s|split=%s|join=%s|mi=%s|markers=%s",
		kind, split, join, mi, strings.Join(NormalizeMarkers(markers), ",")))
}

// NormalizeMarkers returns a sorted, deduplicated copy without empty entries.
func NormalizeMarkers(markers []string) []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
