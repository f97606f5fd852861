package catalog

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/kgc/internal/ir"
)

// CompileError is a compilation failure with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileEntry parses one pattern value into an Entry.
// The value must already be unified with the catalog schema, e.g.:
//
//	v := schema.Unify(user)
//	entry, err := CompileEntry(v.LookupPath(cue.ParsePath(`pattern."sequence"`)))
func CompileEntry(v cue.Value) (Entry, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Entry{}, formatCUEError(err)
	}

	var e Entry
	var err error

	if e.Name, err = stringField(v, "name"); err != nil {
		return Entry{}, err
	}
	idVal := v.LookupPath(cue.ParsePath("id"))
	id, err := idVal.Int64()
	if err != nil {
		return Entry{}, &CompileError{Field: "id", Message: "id is required", Pos: v.Pos()}
	}
	e.ID = int(id)
	if e.Description, err = stringField(v, "description"); err != nil {
		return Entry{}, err
	}

	if e.Match, err = compileMatch(v.LookupPath(cue.ParsePath("match"))); err != nil {
		return Entry{}, err
	}

	verb, err := stringField(v, "verb")
	if err != nil {
		return Entry{}, err
	}
	params, err := compileParams(v.LookupPath(cue.ParsePath("params")))
	if err != nil {
		return Entry{}, err
	}
	if e.Config, err = ir.ParseVerbConfig(verb, params); err != nil {
		return Entry{}, fmt.Errorf("params: %w", err)
	}
	return e, nil
}

func compileMatch(v cue.Value) (Match, error) {
	var m Match
	if !v.Exists() {
		return m, nil
	}

	fields := make(map[string]string, 4)
	for _, f := range []string{"kind", "split", "join", "mi"} {
		s, err := stringField(v, f)
		if err != nil {
			return Match{}, err
		}
		fields[f] = s
	}
	m.Kind = ir.NodeKind(fields["kind"])
	m.Split = ir.GatewayType(fields["split"])
	m.Join = ir.GatewayType(fields["join"])
	m.MI = ir.MIMode(fields["mi"])

	markersVal := defaultOf(v.LookupPath(cue.ParsePath("markers")))
	if markersVal.Exists() {
		iter, err := markersVal.List()
		if err != nil {
			return Match{}, formatCUEError(err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return Match{}, formatCUEError(err)
			}
			m.Markers = append(m.Markers, s)
		}
	}
	m.Markers = ir.NormalizeMarkers(m.Markers)
	return m, nil
}

// compileParams flattens the params struct to catalog strings.
// Integers and booleans are rendered in their decimal / true|false form.
func compileParams(v cue.Value) (map[string]string, error) {
	params := make(map[string]string)
	if !v.Exists() {
		return params, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Selector().String()
		val := defaultOf(iter.Value())
		switch val.IncompleteKind() {
		case cue.StringKind:
			s, err := val.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			params[label] = s
		case cue.IntKind:
			n, err := val.Int64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			params[label] = strconv.FormatInt(n, 10)
		case cue.BoolKind:
			b, err := val.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			params[label] = strconv.FormatBool(b)
		default:
			return nil, &CompileError{
				Field:   "params." + label,
				Message: fmt.Sprintf("unsupported parameter kind %v", val.IncompleteKind()),
				Pos:     val.Pos(),
			}
		}
	}
	return params, nil
}

// stringField reads an optional string field, resolving CUE defaults.
// A missing field yields "".
func stringField(v cue.Value, path string) (string, error) {
	f := defaultOf(v.LookupPath(cue.ParsePath(path)))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func defaultOf(v cue.Value) cue.Value {
	if d, ok := v.Default(); ok {
		return d
	}
	return v
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
