package shape

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/kgc/internal/graph"
)

// Violation codes (S300-S399)
const (
	ErrVoidedWithToken    = "S301" // voided node still holds a token
	ErrFiredWithoutArrive = "S302" // firedBy source has no arrival record
	ErrTokenOnUnknownNode = "S303" // token on an undeclared subject
	ErrOrphanInstance     = "S304" // instanceOf points at an unknown node
	ErrFiredOnNonJoin     = "S305" // join state on a node that is not a join
	ErrIgnoredAndFired    = "S306" // source both fired and ignored the join
)

// Violation is one broken invariant.
type Violation struct {
	Code    string `json:"code"`
	Node    string `json:"node"`
	Message string `json:"message"`
}

// String renders the violation for receipts and logs.
func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Code, v.Node, v.Message)
}

// Rule inspects a graph and returns the violations it finds.
type Rule func(v graph.View) []Violation

// Validator runs a list of rules.
type Validator struct {
	rules []Rule
}

// Option configures a Validator.
type Option func(*Validator)

// WithRule appends a rule to the defaults.
func WithRule(r Rule) Option {
	return func(v *Validator) {
		v.rules = append(v.rules, r)
	}
}

// New creates a Validator with the default rules.
func New(opts ...Option) *Validator {
	v := &Validator{rules: DefaultRules()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// DefaultRules returns the built-in invariant checks.
func DefaultRules() []Rule {
	return []Rule{
		voidedHoldsNoToken,
		tokensOnKnownNodes,
		instancesHaveParents,
		firedByArrived,
		joinStateOnJoins,
	}
}

// Validate reports whether the graph conforms. Violations are sorted so the
// result is deterministic.
func (val *Validator) Validate(ctx context.Context, v graph.View) (bool, []string) {
	var found []Violation
	for _, r := range val.rules {
		if ctx.Err() != nil {
			return false, []string{fmt.Sprintf("validation aborted: %v", ctx.Err())}
		}
		found = append(found, r(v)...)
	}
	return len(found) == 0, render(found)
}

// Check returns the structured violations.
func (val *Validator) Check(v graph.View) []Violation {
	var found []Violation
	for _, r := range val.rules {
		found = append(found, r(v)...)
	}
	return found
}

func render(vs []Violation) []string {
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	slices.Sort(out)
	return out
}

func voidedHoldsNoToken(v graph.View) []Violation {
	var out []Violation
	for _, n := range v.SubjectsWith(graph.PredVoided) {
		if graph.HasToken(v, n) {
			out = append(out, Violation{ErrVoidedWithToken, n, "voided node holds a token"})
		}
	}
	return out
}

func tokensOnKnownNodes(v graph.View) []Violation {
	var out []Violation
	for _, n := range graph.ActiveNodes(v) {
		if !graph.IsNode(v, n) {
			out = append(out, Violation{ErrTokenOnUnknownNode, n, "token on a subject that is neither a declared node nor an instance"})
		}
	}
	return out
}

func instancesHaveParents(v graph.View) []Violation {
	var out []Violation
	for _, n := range v.SubjectsWith(graph.PredInstanceOf) {
		parent := graph.Parent(v, n)
		if !graph.IsNode(v, parent) {
			out = append(out, Violation{ErrOrphanInstance, n, fmt.Sprintf("instance of unknown node %q", parent)})
		}
	}
	return out
}

// firedByArrived checks that every source a join fired on arrived in the
// current cycle and was not also ignored.
func firedByArrived(v graph.View) []Violation {
	var out []Violation
	for _, j := range v.SubjectsWith(graph.PredFiredBy) {
		arrived := v.Objects(j, graph.PredArrivedFrom)
		for _, src := range v.Objects(j, graph.PredFiredBy) {
			if !slices.Contains(arrived, src) {
				out = append(out, Violation{ErrFiredWithoutArrive, j, fmt.Sprintf("fired by %q without an arrival", src)})
			}
			if v.Has(j, graph.PredIgnored, src) {
				out = append(out, Violation{ErrIgnoredAndFired, j, fmt.Sprintf("%q both fired and ignored", src)})
			}
		}
	}
	return out
}

func joinStateOnJoins(v graph.View) []Violation {
	var out []Violation
	for _, p := range []string{graph.PredArrivedFrom, graph.PredJoinFired} {
		for _, n := range v.SubjectsWith(p) {
			if !graph.IsJoin(v, n) {
				out = append(out, Violation{ErrFiredOnNonJoin, n, fmt.Sprintf("%s on a node that is not a join", p)})
			}
		}
	}
	return out
}
