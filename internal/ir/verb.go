package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Verb is one of the five primitive graph transformations.
// The set is closed: adding a verb means adding kernel code, adding a
// pattern never does.
type Verb string

const (
	// VerbTransmute advances a token 1-to-1 (sequence).
	VerbTransmute Verb = "transmute"
	// VerbCopy diverges a token (parallel split, multi-instance spawn).
	VerbCopy Verb = "copy"
	// VerbFilter selects among alternatives (XOR/OR split, deferred choice).
	VerbFilter Verb = "filter"
	// VerbAwait converges branches (joins, discriminators).
	VerbAwait Verb = "await"
	// VerbVoid terminates or cancels nodes.
	VerbVoid Verb = "void"
)

// Verbs lists every verb in a fixed order.
var Verbs = []Verb{VerbTransmute, VerbCopy, VerbFilter, VerbAwait, VerbVoid}

// ParseVerb validates a verb name.
func ParseVerb(s string) (Verb, error) {
	switch v := Verb(s); v {
	case VerbTransmute, VerbCopy, VerbFilter, VerbAwait, VerbVoid:
		return v, nil
	default:
		return "", NewInvalidParameterError("verb", s)
	}
}

// ThresholdKind selects how many predecessor arrivals an await requires.
type ThresholdKind string

const (
	ThresholdAll     ThresholdKind = "all"
	ThresholdCount   ThresholdKind = "count" // Literal N, "1" is the discriminator
	ThresholdActive  ThresholdKind = "active"
	ThresholdDynamic ThresholdKind = "dynamic"
)

// Threshold is the await parameter. The zero value means absent.
type Threshold struct {
	Kind ThresholdKind
	N    int // Only for ThresholdCount
}

// IsSet reports whether the parameter was supplied.
func (t Threshold) IsSet() bool { return t.Kind != "" }

// String renders the catalog form: all, active, dynamic or the integer.
func (t Threshold) String() string {
	if t.Kind == ThresholdCount {
		return strconv.Itoa(t.N)
	}
	return string(t.Kind)
}

// Validate rejects values outside the closed set.
func (t Threshold) Validate() error {
	switch t.Kind {
	case "", ThresholdAll, ThresholdActive, ThresholdDynamic:
		return nil
	case ThresholdCount:
		if t.N < 1 {
			return NewInvalidParameterError("threshold", t.String())
		}
		return nil
	default:
		return NewInvalidParameterError("threshold", string(t.Kind))
	}
}

// ParseThreshold parses all|active|dynamic|<positive integer>.
func ParseThreshold(s string) (Threshold, error) {
	switch ThresholdKind(s) {
	case ThresholdAll, ThresholdActive, ThresholdDynamic:
		return Threshold{Kind: ThresholdKind(s)}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return Threshold{}, NewInvalidParameterError("threshold", s)
	}
	return Threshold{Kind: ThresholdCount, N: n}, nil
}

// CardinalityKind selects the copy fan-out rule.
type CardinalityKind string

const (
	CardinalityTopology    CardinalityKind = "topology"
	CardinalityStatic      CardinalityKind = "static"
	CardinalityDynamic     CardinalityKind = "dynamic"
	CardinalityIncremental CardinalityKind = "incremental"
	CardinalityCount       CardinalityKind = "count" // Literal N
)

// Cardinality is the copy parameter. The zero value means absent.
type Cardinality struct {
	Kind CardinalityKind
	N    int // Only for CardinalityCount
}

// IsSet reports whether the parameter was supplied.
func (c Cardinality) IsSet() bool { return c.Kind != "" }

// String renders the catalog form.
func (c Cardinality) String() string {
	if c.Kind == CardinalityCount {
		return strconv.Itoa(c.N)
	}
	return string(c.Kind)
}

// Validate rejects values outside the closed set.
func (c Cardinality) Validate() error {
	switch c.Kind {
	case "", CardinalityTopology, CardinalityStatic, CardinalityDynamic, CardinalityIncremental:
		return nil
	case CardinalityCount:
		if c.N < 1 {
			return NewInvalidParameterError("cardinality", c.String())
		}
		return nil
	default:
		return NewInvalidParameterError("cardinality", string(c.Kind))
	}
}

// ParseCardinality parses topology|static|dynamic|incremental|<positive integer>.
func ParseCardinality(s string) (Cardinality, error) {
	switch CardinalityKind(s) {
	case CardinalityTopology, CardinalityStatic, CardinalityDynamic, CardinalityIncremental:
		return Cardinality{Kind: CardinalityKind(s)}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return Cardinality{}, NewInvalidParameterError("cardinality", s)
	}
	return Cardinality{Kind: CardinalityCount, N: n}, nil
}

// CompletionStrategy governs when a join cycle is complete after firing.
type CompletionStrategy string

const (
	WaitAll    CompletionStrategy = "waitAll"
	WaitActive CompletionStrategy = "waitActive"
	WaitFirst  CompletionStrategy = "waitFirst"
	WaitQuorum CompletionStrategy = "waitQuorum"
)

// SelectionMode governs which outgoing flows a filter activates.
type SelectionMode string

const (
	SelectExactlyOne SelectionMode = "exactlyOne"
	SelectOneOrMore  SelectionMode = "oneOrMore"
	SelectDeferred   SelectionMode = "deferred"
	SelectMutex      SelectionMode = "mutex"
)

// CancellationScope selects the set of nodes a void targets.
type CancellationScope string

const (
	ScopeSelf      CancellationScope = "self"
	ScopeRegion    CancellationScope = "region"
	ScopeCase      CancellationScope = "case"
	ScopeInstances CancellationScope = "instances"
	ScopeTask      CancellationScope = "task"
)

// InstanceBinding selects how spawned instances are tagged.
type InstanceBinding string

const (
	BindNone      InstanceBinding = "none"
	BindIndex     InstanceBinding = "index"
	BindData      InstanceBinding = "data"
	BindRecursive InstanceBinding = "recursive"
)

// TerminationReason is recorded on every voided node.
type TerminationReason string

const (
	ReasonTimeout   TerminationReason = "timeout"
	ReasonCancelled TerminationReason = "cancelled"
	ReasonException TerminationReason = "exception"
)

// ParseTerminationReason validates a termination reason.
func ParseTerminationReason(s string) (TerminationReason, error) {
	switch r := TerminationReason(s); r {
	case ReasonTimeout, ReasonCancelled, ReasonException:
		return r, nil
	default:
		return "", NewInvalidParameterError("reason", s)
	}
}

// VerbConfig is the resolved instruction for one execution step.
// Every parameter's zero value means "absent, verb default applies".
// Immutable by convention: constructed once per resolution and passed by value.
type VerbConfig struct {
	Verb               Verb
	Threshold          Threshold
	Cardinality        Cardinality
	CompletionStrategy CompletionStrategy
	SelectionMode      SelectionMode
	CancellationScope  CancellationScope
	ResetOnFire        bool
	InstanceBinding    InstanceBinding
}

// Validate checks that the verb and every supplied parameter is a member of
// its closed value set.
func (c VerbConfig) Validate() error {
	if _, err := ParseVerb(string(c.Verb)); err != nil {
		return err
	}
	if err := c.Threshold.Validate(); err != nil {
		return err
	}
	if err := c.Cardinality.Validate(); err != nil {
		return err
	}
	switch c.CompletionStrategy {
	case "", WaitAll, WaitActive, WaitFirst, WaitQuorum:
	default:
		return NewInvalidParameterError("completion_strategy", string(c.CompletionStrategy))
	}
	switch c.SelectionMode {
	case "", SelectExactlyOne, SelectOneOrMore, SelectDeferred, SelectMutex:
	default:
		return NewInvalidParameterError("selection_mode", string(c.SelectionMode))
	}
	switch c.CancellationScope {
	case "", ScopeSelf, ScopeRegion, ScopeCase, ScopeInstances, ScopeTask:
	default:
		return NewInvalidParameterError("cancellation_scope", string(c.CancellationScope))
	}
	switch c.InstanceBinding {
	case "", BindNone, BindIndex, BindData, BindRecursive:
	default:
		return NewInvalidParameterError("instance_binding", string(c.InstanceBinding))
	}
	return nil
}

// Canonical returns the serialized parameters used for hashing.
// Absent parameters are omitted; reset_on_fire appears only when true.
// The verb itself is not included (it is hashed separately).
func (c VerbConfig) Canonical() IRObject {
	obj := IRObject{}
	if c.Threshold.IsSet() {
		obj["threshold"] = IRString(c.Threshold.String())
	}
	if c.Cardinality.IsSet() {
		obj["cardinality"] = IRString(c.Cardinality.String())
	}
	if c.CompletionStrategy != "" {
		obj["completion_strategy"] = IRString(c.CompletionStrategy)
	}
	if c.SelectionMode != "" {
		obj["selection_mode"] = IRString(c.SelectionMode)
	}
	if c.CancellationScope != "" {
		obj["cancellation_scope"] = IRString(c.CancellationScope)
	}
	if c.ResetOnFire {
		obj["reset_on_fire"] = IRBool(true)
	}
	if c.InstanceBinding != "" {
		obj["instance_binding"] = IRString(c.InstanceBinding)
	}
	return obj
}

// ParseVerbConfig builds a VerbConfig from a verb name and a flat parameter
// map of catalog strings. Unknown keys and values are InvalidParameter errors.
func ParseVerbConfig(verb string, params map[string]string) (VerbConfig, error) {
	v, err := ParseVerb(verb)
	if err != nil {
		return VerbConfig{}, err
	}
	cfg := VerbConfig{Verb: v}
	for key, val := range params {
		switch key {
		case "threshold":
			cfg.Threshold, err = ParseThreshold(val)
		case "cardinality":
			cfg.Cardinality, err = ParseCardinality(val)
		case "completion_strategy":
			cfg.CompletionStrategy = CompletionStrategy(val)
		case "selection_mode":
			cfg.SelectionMode = SelectionMode(val)
		case "cancellation_scope":
			cfg.CancellationScope = CancellationScope(val)
		case "instance_binding":
			cfg.InstanceBinding = InstanceBinding(val)
		case "reset_on_fire":
			switch val {
			case "true":
				cfg.ResetOnFire = true
			case "false":
				cfg.ResetOnFire = false
			default:
				err = NewInvalidParameterError("reset_on_fire", val)
			}
		default:
			err = NewInvalidParameterError("parameter", key)
		}
		if err != nil {
			return VerbConfig{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return VerbConfig{}, err
	}
	return cfg, nil
}

// Params returns the flat string form accepted by ParseVerbConfig.
func (c VerbConfig) Params() map[string]string {
	out := make(map[string]string)
	for k, v := range c.Canonical() {
		switch val := v.(type) {
		case IRString:
			out[k] = string(val)
		case IRBool:
			out[k] = strconv.FormatBool(bool(val))
		}
	}
	return out
}

// String renders the config for logs, e.g. "await{threshold=1 reset_on_fire=true}".
func (c VerbConfig) String() string {
	params := c.Canonical()
	s := string(c.Verb) + "{"
	for i, k := range params.SortedKeys() {
		if i > 0 {
			s += " "
		}
		switch v := params[k].(type) {
		case IRString:
			s += fmt.Sprintf("%s=%s", k, string(v))
		case IRBool:
			s += fmt.Sprintf("%s=%t", k, bool(v))
		}
	}
	return s + "}"
}

type verbConfigJSON struct {
	Verb   string            `json:"verb"`
	Params map[string]string `json:"params"`
}

// MarshalJSON implements json.Marshaler.
func (c VerbConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(verbConfigJSON{Verb: string(c.Verb), Params: c.Params()})
}

// UnmarshalJSON implements json.Unmarshaler. An empty verb decodes to the
// zero VerbConfig (receipts rejected before resolution carry no config).
func (c *VerbConfig) UnmarshalJSON(data []byte) error {
	var vj verbConfigJSON
	if err := json.Unmarshal(data, &vj); err != nil {
		return err
	}
	if vj.Verb == "" {
		*c = VerbConfig{}
		return nil
	}
	cfg, err := ParseVerbConfig(vj.Verb, vj.Params)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}
