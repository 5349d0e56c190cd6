// Package goncalc evaluates spreadsheet-style formulas such as
// "[price] * (1 + [vat])" or "if([qty] > 10, Round([total] * 0.9, 2), [total])".
//
// A formula is parsed once, memoized in a process-wide cache keyed by its
// source text, and then either interpreted against a set of parameters or
// compiled into a typed Go closure.
//
// # Quick Start
//
//	// Interpret
//	result, err := goncalc.New("2 + 3 * [x]").
//	    WithParameter("x", 4).
//	    Evaluate(ctx)
//
//	// Compile against a context type
//	type Order struct{ Quantity int; Price float64 }
//	total, err := goncalc.ToContextLambda[Order, float64](ctx, goncalc.New("[Quantity] * [Price]"))
//	v, err := total(Order{Quantity: 3, Price: 9.5})
//
//	// With options
//	expr := goncalc.New("[A] = 'x'",
//	    goncalc.WithOptions(types.IgnoreCase|types.MatchStringsWithIgnoreCase),
//	    goncalc.WithFunctions(ext.Registry()),
//	)
//
// # Concurrency
//
// Parsed trees, the cache and compiled closures are safe for concurrent use.
// An Expression owns a mutable parameter map: share it between goroutines
// only after its parameters are set. One evaluation runs on the calling
// goroutine and calls hooks in order; WithConcurrency lets IterateParameters
// rows of formulas without hooks run in parallel.
//
// # More Information
//
// For detailed documentation, see:
//   - Parser: github.com/sandrolain/goncalc/pkg/parser
//   - Evaluator: github.com/sandrolain/goncalc/pkg/evaluator
//   - Compiler: github.com/sandrolain/goncalc/pkg/compiler
//   - Functions: github.com/sandrolain/goncalc/pkg/functions
//   - Types: github.com/sandrolain/goncalc/pkg/types
package goncalc

import (
	"context"
	"maps"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sandrolain/goncalc/pkg/cache"
	"github.com/sandrolain/goncalc/pkg/evaluator"
	"github.com/sandrolain/goncalc/pkg/functions"
	"github.com/sandrolain/goncalc/pkg/parser"
	"github.com/sandrolain/goncalc/pkg/serializer"
	"github.com/sandrolain/goncalc/pkg/types"
)

// Version returns the current version of goncalc.
func Version() string {
	return "v0.1.0-dev"
}

var defaultCache = sync.OnceValue(func() *cache.Cache {
	return cache.New(func(text string) (*types.Expression, error) {
		return parser.Parse(text)
	})
})

// DefaultCache returns the process-wide expression cache used when no
// WithCache option is given.
func DefaultCache() *cache.Cache {
	return defaultCache()
}

// SetCacheEnabled turns the default cache on or off. Disabling it drops every
// entry.
func SetCacheEnabled(enabled bool) {
	DefaultCache().SetEnabled(enabled)
}

// CacheEnabled reports whether the default cache memoizes parses.
func CacheEnabled() bool {
	return DefaultCache().Enabled()
}

// Expression is a formula together with its options, parameters and hooks.
type Expression struct {
	text   string
	tree   *types.Expression
	err    error
	opts   Options
	params map[string]any
	eval   *evaluator.Evaluator
	tracer trace.Tracer
}

// New parses text, through the cache unless the NoCache option is set.
// A parse failure does not stop construction: it is reported by HasErrors,
// Error and every evaluation.
func New(text string, opts ...Option) *Expression {
	e := newExpression(opts)
	e.text = text
	e.tree, e.err = e.opts.Cache.GetOrParse(e.text, e.opts.Options.Has(types.NoCache))
	return e
}

// FromTree wraps an already parsed tree. The cache is not involved.
func FromTree(tree *types.Expression, opts ...Option) *Expression {
	e := newExpression(opts)
	e.text = tree.Source()
	e.tree = tree
	return e
}

func newExpression(opts []Option) *Expression {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	options.resolve()

	return &Expression{
		opts:   options,
		params: map[string]any{},
		eval:   evaluator.New(options.evaluatorOptions()...),
		tracer: options.TracerProvider.Tracer(tracerName),
	}
}

// Text returns the source text of the formula.
func (e *Expression) Text() string {
	return e.text
}

// Tree returns the parsed tree, or nil when parsing failed.
func (e *Expression) Tree() *types.Expression {
	return e.tree
}

// Options returns the evaluation options.
func (e *Expression) Options() types.EvaluateOptions {
	return e.opts.Options
}

// HasErrors reports whether the formula failed to parse.
func (e *Expression) HasErrors() bool {
	return e.err != nil
}

// Error returns the parse failure, a *types.ParseError, or nil.
func (e *Expression) Error() error {
	return e.err
}

// Parameters returns the parameter map. Changes to it are seen by later
// evaluations.
func (e *Expression) Parameters() map[string]any {
	return e.params
}

// WithParameter sets a parameter and returns e for chaining. A value may be
// another *Expression, which is evaluated in place with the same bindings.
func (e *Expression) WithParameter(name string, value any) *Expression {
	e.params[name] = value
	return e
}

// WithParameters copies every entry of params into the parameter map.
func (e *Expression) WithParameters(params map[string]any) *Expression {
	maps.Copy(e.params, params)
	return e
}

// Evaluate computes the value of the formula. Under IterateParameters the
// result is a []any with one value per row.
func (e *Expression) Evaluate(ctx context.Context) (any, error) {
	return e.EvaluateWith(ctx, nil, nil)
}

// EvaluateWith is Evaluate with hooks for this call only. They are consulted
// before the ones set by WithParameterResolver and WithFunctionResolver,
// which still answer the names the call hooks do not know. Either may be nil.
func (e *Expression) EvaluateWith(ctx context.Context, params functions.ParameterResolver, fns functions.FunctionResolver) (result any, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := e.tracer.Start(ctx, "goncalc.evaluate",
		trace.WithAttributes(
			attribute.String("goncalc.expression", e.text),
			attribute.String("goncalc.options", e.opts.Options.String()),
			attribute.Int("goncalc.parameters", len(e.params)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer func() { endSpan(span, err) }()

	if e.err != nil {
		return nil, e.err
	}
	bound, err := e.bindings()
	if err != nil {
		return nil, err
	}
	return e.eval.Eval(ctx, e.tree.Root(), evaluator.Bindings{
		Parameters:       bound,
		ResolveParameter: params,
		ResolveFunction:  fns,
	})
}

// bindings replaces *Expression parameter values with their trees.
func (e *Expression) bindings() (map[string]any, error) {
	var out map[string]any
	for name, v := range e.params {
		nested, ok := v.(*Expression)
		if !ok {
			continue
		}
		if nested.err != nil {
			return nil, nested.err
		}
		if out == nil {
			out = maps.Clone(e.params)
		}
		out[name] = nested.tree
	}
	if out == nil {
		return e.params, nil
	}
	return out, nil
}

// Serialize returns the canonical text of the formula, or "" when it failed
// to parse.
func (e *Expression) Serialize() string {
	if e.tree == nil {
		return ""
	}
	return serializer.Serialize(e.tree.Root())
}

// String returns the source text.
func (e *Expression) String() string {
	return e.text
}

const tracerName = "github.com/sandrolain/goncalc"

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
