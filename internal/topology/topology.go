package topology

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// Definition is a parsed workflow.
type Definition struct {
	Workflow string `yaml:"workflow"`

	// Case tags every node with kgc:case so case-scoped cancellation stays
	// inside this workflow when several share a store.
	Case string `yaml:"case,omitempty"`

	Nodes []Node   `yaml:"nodes"`
	Flows []Flow   `yaml:"flows"`
	Start []string `yaml:"start"`
}

// Node declares a task or condition.
type Node struct {
	ID               string   `yaml:"id"`
	Kind             string   `yaml:"kind,omitempty"`  // task (default) | condition
	Split            string   `yaml:"split,omitempty"` // none | AND | XOR | OR
	Join             string   `yaml:"join,omitempty"`
	MI               string   `yaml:"mi,omitempty"` // none | static | dynamic | incremental
	MICount          int      `yaml:"mi_count,omitempty"`
	MIDataKey        string   `yaml:"mi_data_key,omitempty"`
	Markers          []string `yaml:"markers,omitempty"`
	Region           string   `yaml:"region,omitempty"` // Region this node cancels
	MemberOf         []string `yaml:"member_of,omitempty"`
	ExceptionHandler string   `yaml:"exception_handler,omitempty"`
}

// Flow declares a directed edge.
type Flow struct {
	ID      string `yaml:"id,omitempty"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Guard   string `yaml:"guard,omitempty"`
	Default bool   `yaml:"default,omitempty"`
}

// Load reads and validates a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a definition. Unknown fields are rejected.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parse topology: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}
	return &def, nil
}

// Validate checks references and closed value sets.
func (d *Definition) Validate() error {
	if len(d.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}

	ids := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			return fmt.Errorf("nodes[%d]: id is required", i)
		}
		if ids[n.ID] {
			return fmt.Errorf("nodes[%d]: duplicate id %q", i, n.ID)
		}
		ids[n.ID] = true

		switch ir.NodeKind(n.Kind) {
		case "", ir.KindTask, ir.KindCondition:
		default:
			return fmt.Errorf("node %s: kind %q must be task or condition", n.ID, n.Kind)
		}
		if _, err := ir.ParseGatewayType("split", n.Split); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		if _, err := ir.ParseGatewayType("join", n.Join); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		mi, err := ir.ParseMIMode(n.MI)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
		if mi == ir.MIStatic && n.MICount < 1 {
			return fmt.Errorf("node %s: static multi-instance needs mi_count >= 1", n.ID)
		}
	}

	for _, n := range d.Nodes {
		if n.ExceptionHandler != "" && !ids[n.ExceptionHandler] {
			return fmt.Errorf("node %s: exception handler %q is not declared", n.ID, n.ExceptionHandler)
		}
	}

	flowIDs := map[string]bool{}
	for i, f := range d.Flows {
		if !ids[f.From] {
			return fmt.Errorf("flows[%d]: source %q is not declared", i, f.From)
		}
		if !ids[f.To] {
			return fmt.Errorf("flows[%d]: target %q is not declared", i, f.To)
		}
		id := d.flowID(i)
		if flowIDs[id] || ids[id] {
			return fmt.Errorf("flows[%d]: duplicate id %q", i, id)
		}
		flowIDs[id] = true
	}

	for _, s := range d.Start {
		if !ids[s] {
			return fmt.Errorf("start node %q is not declared", s)
		}
	}
	return nil
}

// flowID returns the flow's declared id or "<from>-><to>", suffixed with
// the declaration index when the same pair occurs twice.
func (d *Definition) flowID(i int) string {
	f := d.Flows[i]
	if f.ID != "" {
		return f.ID
	}
	id := f.From + "->" + f.To
	for j := 0; j < i; j++ {
		if d.Flows[j].ID == "" && d.Flows[j].From == f.From && d.Flows[j].To == f.To {
			return id + "#" + strconv.Itoa(i)
		}
	}
	return id
}

// Triples renders the definition, including start tokens.
func (d *Definition) Triples() []ir.Triple {
	var out []ir.Triple
	add := func(s, p, o string) {
		out = append(out, ir.T(s, p, o))
	}

	for _, n := range d.Nodes {
		add(n.ID, graph.PredKind, cmpOr(n.Kind, string(ir.KindTask)))
		if n.Split != "" {
			add(n.ID, graph.PredSplitType, n.Split)
		}
		if n.Join != "" {
			add(n.ID, graph.PredJoinType, n.Join)
		}
		if n.MI != "" {
			add(n.ID, graph.PredMIMode, n.MI)
		}
		if n.MICount > 0 {
			add(n.ID, graph.PredMICount, strconv.Itoa(n.MICount))
		}
		if n.MIDataKey != "" {
			add(n.ID, graph.PredMIDataKey, n.MIDataKey)
		}
		for _, m := range n.Markers {
			add(n.ID, graph.PredMarker, m)
		}
		if n.Region != "" {
			add(n.ID, graph.PredCancellationRegion, n.Region)
		}
		for _, r := range n.MemberOf {
			add(n.ID, graph.PredMemberOf, r)
		}
		if n.ExceptionHandler != "" {
			add(n.ID, graph.PredExceptionHandler, n.ExceptionHandler)
		}
		if d.Case != "" {
			add(n.ID, graph.PredCase, d.Case)
		}
	}

	for i, f := range d.Flows {
		id := d.flowID(i)
		add(id, graph.PredFlowSource, f.From)
		add(id, graph.PredFlowTarget, f.To)
		add(id, graph.PredFlowOrder, strconv.Itoa(i+1))
		if f.Guard != "" {
			add(id, graph.PredFlowGuard, f.Guard)
		}
		if f.Default {
			add(id, graph.PredFlowDefault, graph.True)
		}
	}

	for _, s := range d.Start {
		add(s, graph.PredHasToken, graph.True)
	}

	slices.SortFunc(out, ir.Triple.Compare)
	return slices.Compact(out)
}

func cmpOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
