package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kgc/internal/topology"
)

// Scenario defines an end-to-end workflow scenario: a topology, the
// transactions to drive through it and the assertions on the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Workflow is an inline topology definition.
	Workflow *topology.Definition `yaml:"workflow,omitempty"`

	// Topology is a topology file, relative to the scenario file.
	// Exactly one of Workflow and Topology must be set.
	Topology string `yaml:"topology,omitempty"`

	// Catalog is an optional pattern catalog (.cue file or package
	// directory), relative to the scenario file.
	Catalog string `yaml:"catalog,omitempty"`

	// MaxSteps overrides the driver's Run step limit.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// Steps are executed in order against one store.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one driver call. Exactly one of Fire, Step and Run is set.
type Step struct {
	// Fire runs one transaction for the named node.
	Fire string `yaml:"fire,omitempty"`

	// Step fires every node holding a token once.
	Step bool `yaml:"step,omitempty"`

	// Run steps until the workflow quiesces.
	Run bool `yaml:"run,omitempty"`

	// Data are the run-time bindings (ctx.data) for every transaction of
	// this step.
	Data map[string]any `yaml:"data,omitempty"`

	// Expect checks the receipts produced by this step.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause checks the outcome of a single step.
type ExpectClause struct {
	// Committed and Rejected count the receipts the step produced.
	Committed *int `yaml:"committed,omitempty"`
	Rejected  *int `yaml:"rejected,omitempty"`

	// Verbs lists the verb of every receipt, in order.
	Verbs []string `yaml:"verbs,omitempty"`

	// Error is the error code the step must end with: a kernel error code
	// such as UNKNOWN_PATTERN, or STEPS_EXCEEDED for a Run over its limit.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final trace or state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Nodes are the subjects of has_token, no_token, completed, voided and
	// the expected order of trace_order.
	Nodes []string `yaml:"nodes,omitempty"`

	// Subject, Predicate and Object identify the triple of a triple
	// assertion. Absent inverts it.
	Subject   string `yaml:"subject,omitempty"`
	Predicate string `yaml:"predicate,omitempty"`
	Object    string `yaml:"object,omitempty"`
	Absent    bool   `yaml:"absent,omitempty"`

	// Count is the expected number of receipts (receipt_count). With
	// Committed set, only receipts with that outcome are counted.
	Count     int   `yaml:"count,omitempty"`
	Committed *bool `yaml:"committed,omitempty"`
}

// Assertion type constants.
const (
	AssertHasToken     = "has_token"
	AssertNoToken      = "no_token"
	AssertCompleted    = "completed"
	AssertVoided       = "voided"
	AssertTriple       = "triple"
	AssertReceiptCount = "receipt_count"
	AssertTraceOrder   = "trace_order"
	AssertChainValid   = "chain_valid"
)

// Step error code for a Run that did not quiesce.
const CodeStepsExceeded = "STEPS_EXCEEDED"

// LoadScenario reads and parses a scenario YAML file. Topology and catalog
// paths are resolved relative to the scenario file. Returns an error if the
// file doesn't exist, is malformed, contains unknown fields or is missing
// required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	if s.Topology != "" && !filepath.IsAbs(s.Topology) {
		s.Topology = filepath.Join(base, s.Topology)
	}
	if s.Catalog != "" && !filepath.IsAbs(s.Catalog) {
		s.Catalog = filepath.Join(base, s.Catalog)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario. Relative paths are left
// as they are.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Catches typos like "assertion:" vs "assertions:"
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Workflow == nil && s.Topology == "":
		return fmt.Errorf("one of workflow or topology is required")
	case s.Workflow != nil && s.Topology != "":
		return fmt.Errorf("workflow and topology are mutually exclusive")
	case s.Workflow != nil:
		if err := s.Workflow.Validate(); err != nil {
			return fmt.Errorf("workflow: %w", err)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}
	return nil
}

func validateStep(s Step) error {
	n := 0
	if s.Fire != "" {
		n++
	}
	if s.Step {
		n++
	}
	if s.Run {
		n++
	}
	if n != 1 {
		return fmt.Errorf("exactly one of fire, step or run is required")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertHasToken, AssertNoToken, AssertCompleted, AssertVoided, AssertTraceOrder:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("%s requires nodes", a.Type)
		}
	case AssertTriple:
		if a.Subject == "" || a.Predicate == "" {
			return fmt.Errorf("triple requires subject and predicate")
		}
	case AssertReceiptCount:
		if a.Count < 0 {
			return fmt.Errorf("receipt_count requires a non-negative count")
		}
	case AssertChainValid:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
