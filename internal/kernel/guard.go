package kernel

import (
	"context"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/parser"

	"github.com/roach88/kgc/internal/graph"
	"github.com/roach88/kgc/internal/ir"
)

// CUEGuards evaluates guards as CUE expressions with the run-time data bound
// to the identifier data, for example `data.amount > 100`.
//
// A guard that references a missing field is incomplete and evaluates to
// false. A guard that does not parse, fails to evaluate (for example on a
// type mismatch), or yields a concrete non-boolean is INVALID_PARAMETER.
// Evaluation runs in its own goroutine so ctx can bound it.
type CUEGuards struct{}

type guardResult struct {
	ok  bool
	err error
}

// Eval implements GuardEvaluator.
func (CUEGuards) Eval(ctx context.Context, expr string, data ir.IRObject) (bool, error) {
	parsed, err := parser.ParseExpr("guard", expr)
	if err != nil {
		return false, ir.NewInvalidParameterError(graph.PredFlowGuard, expr)
	}

	done := make(chan guardResult, 1)
	go func() {
		cctx := cuecontext.New()
		scope := cctx.Encode(map[string]any{"data": ir.ToAny(data)})
		v := cctx.BuildExpr(parsed, cue.Scope(scope), cue.InferBuiltins(true))
		done <- evalBool(v, expr)
	}()

	select {
	case r := <-done:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ir.NewTimeoutError("", ctx.Err())
	}
}

func evalBool(v cue.Value, expr string) guardResult {
	if v.Err() != nil {
		// A non-incomplete bottom reports as concrete.
		if v.IsConcrete() {
			return guardResult{err: ir.NewInvalidParameterError(graph.PredFlowGuard, expr)}
		}
		return guardResult{}
	}
	if v.Kind() != cue.BoolKind {
		if v.IsConcrete() {
			return guardResult{err: ir.NewInvalidParameterError(graph.PredFlowGuard, expr)}
		}
		return guardResult{}
	}
	b, err := v.Bool()
	if err != nil {
		return guardResult{}
	}
	return guardResult{ok: b}
}
