package evaluator

// Package evaluator implements the goncalc tree-walking interpreter.
//
// The evaluator receives a parsed expression tree and computes its value
// against a set of parameter bindings. It supports:
//   - Arithmetic, logical, bitwise, relational and ternary operators
//   - The built-in function library (Abs, Round, Max, if, in, ...)
//   - Custom functions from a functions.Registry and host resolver hooks
//   - Parameters whose value is itself an expression
//   - Broadcast evaluation over sequence parameters (IterateParameters)
//
// # Example
//
//	ev := evaluator.New(evaluator.WithOptions(types.IgnoreCase))
//	result, err := ev.Eval(ctx, expr.Root(), evaluator.Bindings{
//	    Parameters: map[string]any{"x": 2},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// An Evaluator holds no per-call state and may be shared between goroutines.
// Every call walks the tree synchronously, so host hooks see one call at a
// time and IterateParameters rows in index order. WithConcurrency relaxes this
// for formulas that bind no host code. The only suspension points are the host
// hooks, which receive the call's context.

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/sandrolain/goncalc/pkg/functions"
	"github.com/sandrolain/goncalc/pkg/types"
	"github.com/sandrolain/goncalc/pkg/values"
)

// Evaluator evaluates expression trees.
type Evaluator struct {
	opts   EvalOptions
	logger *slog.Logger
	rules  values.Rules
}

// EvalOptions configures evaluator behavior.
type EvalOptions struct {
	// Options is the evaluation option bit set.
	Options types.EvaluateOptions
	// Culture selects the collation used for culture-aware string comparison.
	Culture language.Tag
	// MaxDepth limits how deeply parameter expressions may nest.
	MaxDepth int
	// Logger for structured logging.
	Logger *slog.Logger
	// Functions holds custom functions, consulted after the built-ins.
	Functions *functions.Registry
	// ResolveParameter is the default parameter hook.
	ResolveParameter functions.ParameterResolver
	// ResolveFunction is the default function hook.
	ResolveFunction functions.FunctionResolver
	// Concurrency lets IterateParameters evaluate rows concurrently when no
	// hooks or custom functions are bound. Off by default.
	Concurrency bool
}

// concurrencySupported is false on WebAssembly targets, where Concurrency is
// ignored; see evaluator_wasm.go.
var concurrencySupported = true

// New creates a new Evaluator with default options.
func New(opts ...EvalOption) *Evaluator {
	options := EvalOptions{
		Options:  types.None,
		Culture:  values.DefaultCulture,
		MaxDepth: 100,
	}

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	options.Concurrency = options.Concurrency && concurrencySupported

	return &Evaluator{
		opts:   options,
		logger: options.Logger,
		rules:  values.NewRules(options.Options, options.Culture),
	}
}

// Options returns the evaluation option bit set.
func (e *Evaluator) Options() types.EvaluateOptions {
	return e.opts.Options
}

// Rules returns the value semantics used by this evaluator.
func (e *Evaluator) Rules() values.Rules {
	return e.rules
}

// Eval evaluates node with the given bindings.
//
// Under IterateParameters the result is a []any holding one value per index
// of the sequence parameters; see EvalIterate.
func (e *Evaluator) Eval(ctx context.Context, node types.Node, b Bindings) (any, error) {
	if node == nil {
		return nil, fmt.Errorf("invalid expression")
	}
	if e.opts.Options.Has(types.IterateParameters) {
		return e.EvalIterate(ctx, node, b)
	}

	evalCtx := e.newContext(ctx, b)
	e.logger.Debug("evaluating expression", "parameters", len(b.Parameters), "options", e.opts.Options)
	return e.evalNode(evalCtx, node)
}

func (e *Evaluator) newContext(ctx context.Context, b Bindings) *EvalContext {
	evalCtx := NewContext(ctx, b.Parameters)
	evalCtx.resolveParam = functions.ChainParameters(b.ResolveParameter, e.opts.ResolveParameter)
	evalCtx.resolveFn = functions.Chain(b.ResolveFunction, e.opts.ResolveFunction)
	return evalCtx
}

// evalNode walks node with a fresh visitor.
func (e *Evaluator) evalNode(evalCtx *EvalContext, node types.Node) (any, error) {
	v := &visitor{e: e, evalCtx: evalCtx}
	if err := node.Accept(v); err != nil {
		return nil, err
	}
	return v.result, nil
}

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

// WithOptions sets the evaluation option bit set.
func WithOptions(o types.EvaluateOptions) EvalOption {
	return func(opts *EvalOptions) {
		opts.Options = o
	}
}

// WithCulture sets the language used for culture-aware string comparison.
func WithCulture(tag language.Tag) EvalOption {
	return func(opts *EvalOptions) {
		opts.Culture = tag
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum nesting depth of parameter expressions.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}

// WithFunctions registers custom functions with the evaluator.
//
// Example:
//
//	reg := functions.NewRegistry(functions.CustomFunctionDef{
//	    Name: "Twice", MinArgs: 1, MaxArgs: 1,
//	    Fn: func(ctx context.Context, args ...any) (any, error) {
//	        return values.Rules{}.Arithmetic(types.OpTimes, args[0], 2)
//	    },
//	})
//	ev := evaluator.New(evaluator.WithFunctions(reg))
func WithFunctions(reg *functions.Registry) EvalOption {
	return func(opts *EvalOptions) {
		opts.Functions = reg
	}
}

// WithConcurrency enables or disables concurrent evaluation of
// IterateParameters rows. Rows still run sequentially, in index order, when
// the call binds a hook or the evaluator has custom functions.
func WithConcurrency(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Concurrency = enabled
	}
}

// WithParameterResolver sets the default parameter hook.
func WithParameterResolver(fn functions.ParameterResolver) EvalOption {
	return func(opts *EvalOptions) {
		opts.ResolveParameter = fn
	}
}

// WithFunctionResolver sets the default function hook.
func WithFunctionResolver(fn functions.FunctionResolver) EvalOption {
	return func(opts *EvalOptions) {
		opts.ResolveFunction = fn
	}
}
