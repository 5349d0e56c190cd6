package goncalc

import (
	"context"
	"maps"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sandrolain/goncalc/pkg/compiler"
)

// ToLambda compiles e into a closure that needs no context value. Parameters
// set on e are bound at compile time; later changes are not seen.
//
// Example:
//
//	area, err := goncalc.ToLambda[float64](ctx, goncalc.New("Pow([r], 2) * 3.14").WithParameter("r", 2))
//	v, err := area()
func ToLambda[R any](ctx context.Context, e *Expression) (fn func() (R, error), err error) {
	ctx, span := e.startCompile(ctx, nil, reflect.TypeFor[R]())
	defer func() { endSpan(span, err) }()

	c, err := e.compiler()
	if err != nil {
		return nil, err
	}
	return compiler.CompileStatic[R](ctx, c, e.tree.Root())
}

// ToContextLambda compiles e into a closure over values of type C.
// Identifiers bind to the fields, getters or map keys of C, and calls to the
// methods of C and of the Methods registry, with overloads resolved once.
func ToContextLambda[C, R any](ctx context.Context, e *Expression) (fn compiler.Func[C, R], err error) {
	ctx, span := e.startCompile(ctx, reflect.TypeFor[C](), reflect.TypeFor[R]())
	defer func() { endSpan(span, err) }()

	c, err := e.compiler()
	if err != nil {
		return nil, err
	}
	return compiler.Compile[C, R](ctx, c, e.tree.Root())
}

func (e *Expression) startCompile(ctx context.Context, env, result reflect.Type) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{
		attribute.String("goncalc.expression", e.text),
		attribute.String("goncalc.result", result.String()),
	}
	if env != nil {
		attrs = append(attrs, attribute.String("goncalc.context", env.String()))
	}
	return e.tracer.Start(ctx, "goncalc.compile",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// compiler builds a compiler bound to the current parameters of e.
func (e *Expression) compiler() (*compiler.Compiler, error) {
	if e.err != nil {
		return nil, e.err
	}
	params, err := e.bindings()
	if err != nil {
		return nil, err
	}
	return compiler.New(e.opts.compilerOptions(maps.Clone(params))...), nil
}
