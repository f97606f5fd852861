package catalog

import (
	"fmt"
	"strings"

	"github.com/roach88/kgc/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrMissingName        = "E201" // pattern name is required
	ErrInvalidVerbConfig  = "E202" // verb or parameter outside its closed set
	ErrParamNotApplicable = "E203" // parameter not accepted by the verb
	ErrDuplicateSignature = "E204" // two patterns share a signature key
	ErrInvalidMatch       = "E205" // match field outside its closed set
)

// applicable lists the parameters each verb accepts.
var applicable = map[ir.Verb][]string{
	ir.VerbTransmute: {},
	ir.VerbCopy:      {"cardinality", "instance_binding"},
	ir.VerbFilter:    {"selection_mode"},
	ir.VerbAwait:     {"threshold", "completion_strategy", "reset_on_fire"},
	ir.VerbVoid:      {"cancellation_scope"},
}

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Pattern string `json:"pattern"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s.%s: %s", e.Code, e.Pattern, e.Field, e.Message)
}

// ValidationErrors joins several validation errors into one error value.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks entries against rules the CUE schema cannot express.
// Returns all errors found (does not fail-fast).
func Validate(entries []Entry) []ValidationError {
	var errs []ValidationError
	seen := make(map[ir.SignatureKey]string, len(entries))

	for _, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			errs = append(errs, ValidationError{
				Pattern: fmt.Sprintf("#%d", e.ID),
				Field:   "name",
				Message: "pattern name is required",
				Code:    ErrMissingName,
			})
		}

		errs = append(errs, validateMatch(e)...)

		if err := e.Config.Validate(); err != nil {
			errs = append(errs, ValidationError{
				Pattern: e.Name,
				Field:   "verb",
				Message: err.Error(),
				Code:    ErrInvalidVerbConfig,
			})
		} else {
			allowed := applicable[e.Config.Verb]
			for _, param := range e.Config.Canonical().SortedKeys() {
				if !contains(allowed, param) {
					errs = append(errs, ValidationError{
						Pattern: e.Name,
						Field:   "params." + param,
						Message: fmt.Sprintf("%s does not accept %s", e.Config.Verb, param),
						Code:    ErrParamNotApplicable,
					})
				}
			}
		}

		key := e.Match.Key()
		if other, dup := seen[key]; dup {
			errs = append(errs, ValidationError{
				Pattern: e.Name,
				Field:   "match",
				Message: fmt.Sprintf("signature %q already claimed by %s", key, other),
				Code:    ErrDuplicateSignature,
			})
			continue
		}
		seen[key] = e.Name
	}
	return errs
}

func validateMatch(e Entry) []ValidationError {
	var errs []ValidationError
	bad := func(field, value string) {
		errs = append(errs, ValidationError{
			Pattern: e.Name,
			Field:   "match." + field,
			Message: fmt.Sprintf("invalid value %q", value),
			Code:    ErrInvalidMatch,
		})
	}

	switch e.Match.Kind {
	case "", ir.KindTask, ir.KindCondition, ir.KindInstance:
	default:
		bad("kind", string(e.Match.Kind))
	}
	if _, err := ir.ParseGatewayType("split", string(e.Match.Split)); err != nil {
		bad("split", string(e.Match.Split))
	}
	if _, err := ir.ParseGatewayType("join", string(e.Match.Join)); err != nil {
		bad("join", string(e.Match.Join))
	}
	if _, err := ir.ParseMIMode(string(e.Match.MI)); err != nil {
		bad("mi", string(e.Match.MI))
	}
	return errs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
