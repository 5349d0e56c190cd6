package evaluator

import (
	"errors"
	"strings"

	"github.com/sandrolain/goncalc/pkg/functions"
	"github.com/sandrolain/goncalc/pkg/types"
	"github.com/sandrolain/goncalc/pkg/values"
)

// callFunction dispatches a call with evaluated arguments: built-ins first,
// then the registry, then the function hook.
func (e *Evaluator) callFunction(evalCtx *EvalContext, name string, args []any) (any, error) {
	ignoreCase := e.opts.Options.Has(types.IgnoreCase)

	if b, ok := values.LookupBuiltin(name, ignoreCase); ok {
		return b.Call(e.rules, args)
	}

	if def, ok := e.opts.Functions.Lookup(name, ignoreCase); ok {
		result, err := def.Call(evalCtx.ctx, args)
		return result, wrapArity(err)
	}

	if evalCtx.resolveFn != nil {
		hookName := name
		if ignoreCase {
			hookName = strings.ToLower(name)
		}
		result, ok, err := evalCtx.resolveFn(evalCtx.ctx, hookName, args)
		if err != nil {
			return nil, err
		}
		if ok {
			return result, nil
		}
	}

	return nil, e.undefinedFunction(name)
}

// undefinedFunction builds the error for an unresolved call, suggesting the
// registered spelling when only the case differs.
func (e *Evaluator) undefinedFunction(name string) error {
	if b, ok := values.LookupBuiltin(name, true); ok {
		return types.NewEvaluationError(types.ErrUndefinedFunction,
			"Function '%s' not found. Try '%s' instead.", name, b.Name)
	}
	if def, ok := e.opts.Functions.Lookup(name, true); ok {
		return types.NewEvaluationError(types.ErrUndefinedFunction,
			"Function '%s' not found. Try '%s' instead.", name, def.Name)
	}
	return types.NewEvaluationError(types.ErrUndefinedFunction, "Function '%s' not found", name)
}

func wrapArity(err error) error {
	var arity *functions.ArityError
	if errors.As(err, &arity) {
		return types.NewEvaluationError(types.ErrArgumentCount, "wrong number of arguments").WithCause(err)
	}
	return err
}
