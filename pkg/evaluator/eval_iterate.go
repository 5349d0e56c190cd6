package evaluator

import (
	"context"
	"reflect"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sandrolain/goncalc/pkg/types"
)

// parallelRows is the row count from which iterations run concurrently.
const parallelRows = 64

// EvalIterate evaluates node once per index of the sequence parameters.
//
// Every slice or array parameter must have the same length; this is checked
// before any evaluation. Iteration i sees element i of each sequence and the
// other parameters unchanged. Results are returned in index order. Without
// sequence parameters the result is empty.
//
// With Concurrency enabled, large inputs that call no host code are split
// across GOMAXPROCS goroutines and the first failing row cancels the others.
// Otherwise rows run one after another and the first failure stops the loop.
func (e *Evaluator) EvalIterate(ctx context.Context, node types.Node, b Bindings) ([]any, error) {
	size, err := sequenceSize(b.Parameters)
	if err != nil {
		return nil, err
	}

	concurrent := e.opts.Concurrency && size >= parallelRows && !e.bindsHostCode(b)
	e.logger.Debug("broadcast evaluation", "iterations", size, "concurrent", concurrent)

	results := make([]any, size)
	if !concurrent {
		base := e.newContext(ctx, b)
		for i := range size {
			if results[i], err = e.evalRow(base, node, b.Parameters, i); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	base := e.newContext(gctx, b)
	for i := range size {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := e.evalRow(base, node, b.Parameters, i)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// bindsHostCode reports whether evaluating with b may call into the host.
func (e *Evaluator) bindsHostCode(b Bindings) bool {
	return b.ResolveParameter != nil || b.ResolveFunction != nil ||
		e.opts.ResolveParameter != nil || e.opts.ResolveFunction != nil ||
		e.opts.Functions.Len() > 0
}

// evalRow evaluates node with every sequence parameter replaced by its
// element at index i.
func (e *Evaluator) evalRow(base *EvalContext, node types.Node, params map[string]any, i int) (any, error) {
	snapshot := make(map[string]any, len(params))
	for name, value := range params {
		if rv, ok := sequence(value); ok {
			snapshot[name] = rv.Index(i).Interface()
		} else {
			snapshot[name] = value
		}
	}
	return e.evalNode(base.WithParameters(snapshot), node)
}

// sequenceSize returns the common length of the sequence parameters.
func sequenceSize(params map[string]any) (int, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	size, first, found := 0, "", false
	for _, name := range names {
		rv, ok := sequence(params[name])
		if !ok {
			continue
		}
		if !found {
			size, first, found = rv.Len(), name, true
			continue
		}
		if rv.Len() != size {
			return 0, types.NewEvaluationError(types.ErrSequenceLength,
				"parameter '%s' has %d elements but '%s' has %d", name, rv.Len(), first, size)
		}
	}
	return size, nil
}

// sequence reports whether v is a slice or array parameter. Byte slices are
// treated as scalars.
func sequence(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return reflect.Value{}, false
		}
		return rv, true
	case reflect.Array:
		return rv, true
	}
	return reflect.Value{}, false
}
