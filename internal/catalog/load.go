package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed schema.cue
var schemaCUE []byte

//go:embed patterns.cue
var defaultPatternsCUE []byte

// Default compiles the embedded catalog of the 43 workflow control-flow
// patterns. Each call returns a fresh, independent Catalog.
func Default() (*Catalog, error) {
	c, errs := CompileSource(defaultPatternsCUE, "patterns.cue")
	if len(errs) > 0 {
		return nil, fmt.Errorf("default catalog: %w", errs[0])
	}
	return c, nil
}

// CompileSource compiles a single CUE catalog file.
// Returns all errors found (does not fail-fast).
func CompileSource(src []byte, filename string) (*Catalog, []error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return Compile(ctx, v)
}

// Load compiles a catalog from a .cue file or a directory of .cue files
// forming one CUE package.
func Load(path string) (*Catalog, []error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, []error{fmt.Errorf("catalog path: %w", err)}
	}
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, []error{fmt.Errorf("read catalog: %w", err)}
		}
		return CompileSource(src, path)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, []error{fmt.Errorf("no CUE instances loaded from %s", path)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{fmt.Errorf("loading CUE files: %w", inst.Err)}
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}
	return Compile(ctx, v)
}

// Compile unifies v with the catalog schema and compiles every entry under
// "pattern". Compilation and validation errors are all collected.
func Compile(ctx *cue.Context, v cue.Value) (*Catalog, []error) {
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{fmt.Errorf("catalog schema: %w", err)}
	}
	unified := schema.Unify(v)
	if err := unified.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	patterns := unified.LookupPath(cue.ParsePath("pattern"))
	if !patterns.Exists() {
		return nil, []error{&CompileError{Field: "pattern", Message: "no patterns defined", Pos: v.Pos()}}
	}

	iter, err := patterns.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var entries []Entry
	var errs []error
	for iter.Next() {
		e, err := CompileEntry(iter.Value())
		if err != nil {
			errs = append(errs, fmt.Errorf("pattern %s: %w", iter.Selector(), err))
			continue
		}
		entries = append(entries, e)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if verrs := Validate(entries); len(verrs) > 0 {
		for _, ve := range verrs {
			errs = append(errs, ve)
		}
		return nil, errs
	}

	c, err := New(entries)
	if err != nil {
		return nil, []error{err}
	}
	return c, nil
}
