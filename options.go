package goncalc

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/sandrolain/goncalc/pkg/cache"
	"github.com/sandrolain/goncalc/pkg/compiler"
	"github.com/sandrolain/goncalc/pkg/evaluator"
	"github.com/sandrolain/goncalc/pkg/functions"
	"github.com/sandrolain/goncalc/pkg/types"
	"github.com/sandrolain/goncalc/pkg/values"
)

// Options configures an Expression.
type Options struct {
	// Options is the evaluation option bit set.
	Options types.EvaluateOptions
	// Culture selects the collation used for culture-aware string comparison.
	Culture language.Tag
	// MaxDepth limits how deeply parameter expressions may nest.
	MaxDepth int
	// Functions holds custom functions for interpretation.
	Functions *functions.Registry
	// Methods holds the methods and functions compiled lambdas may call.
	Methods *compiler.Registry
	// ResolveParameter is consulted for names that are not parameters.
	ResolveParameter functions.ParameterResolver
	// ResolveFunction is consulted for calls nothing else handles.
	ResolveFunction functions.FunctionResolver
	// Cache memoizes parses; nil means DefaultCache.
	Cache *cache.Cache
	// TracerProvider creates the spans around evaluation and compilation;
	// nil means the global provider.
	TracerProvider trace.TracerProvider
	// Logger for structured logging.
	Logger *slog.Logger
	// Concurrency lets IterateParameters rows run in parallel when no hooks
	// or custom functions are bound.
	Concurrency bool
}

// Option configures an Expression.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Options:  types.None,
		Culture:  values.DefaultCulture,
		MaxDepth: 100,
	}
}

// resolve fills the defaults that depend on process state.
func (o *Options) resolve() {
	if o.Cache == nil {
		o.Cache = DefaultCache()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func (o *Options) evaluatorOptions() []evaluator.EvalOption {
	return []evaluator.EvalOption{
		evaluator.WithOptions(o.Options),
		evaluator.WithCulture(o.Culture),
		evaluator.WithMaxDepth(o.MaxDepth),
		evaluator.WithLogger(o.Logger),
		evaluator.WithFunctions(o.Functions),
		evaluator.WithParameterResolver(o.ResolveParameter),
		evaluator.WithFunctionResolver(o.ResolveFunction),
		evaluator.WithConcurrency(o.Concurrency),
	}
}

func (o *Options) compilerOptions(params map[string]any) []compiler.CompileOption {
	return []compiler.CompileOption{
		compiler.WithOptions(o.Options),
		compiler.WithCulture(o.Culture),
		compiler.WithMaxDepth(o.MaxDepth),
		compiler.WithLogger(o.Logger),
		compiler.WithRegistry(o.Methods),
		compiler.WithParameters(params),
		compiler.WithParameterResolver(o.ResolveParameter),
	}
}

// WithOptions sets the evaluation option bit set.
func WithOptions(opts types.EvaluateOptions) Option {
	return func(o *Options) {
		o.Options = opts
	}
}

// WithCulture sets the language used for culture-aware string comparison.
func WithCulture(tag language.Tag) Option {
	return func(o *Options) {
		o.Culture = tag
	}
}

// WithMaxDepth limits how deeply parameter expressions may nest.
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		o.MaxDepth = depth
	}
}

// WithFunctions registers custom functions for interpretation.
//
// Example:
//
//	reg := functions.NewRegistry(functions.CustomFunctionDef{
//	    Name: "Twice", MinArgs: 1, MaxArgs: 1,
//	    Fn: func(ctx context.Context, args ...any) (any, error) {
//	        return cast.ToInt64(args[0]) * 2, nil
//	    },
//	})
//	expr := goncalc.New("Twice(21)", goncalc.WithFunctions(reg))
func WithFunctions(reg *functions.Registry) Option {
	return func(o *Options) {
		o.Functions = reg
	}
}

// WithMethods sets the methods and functions compiled lambdas may call.
func WithMethods(reg *compiler.Registry) Option {
	return func(o *Options) {
		o.Methods = reg
	}
}

// WithParameterResolver sets the hook for names that are not parameters.
// Compiled lambdas call it once, at compile time.
func WithParameterResolver(fn functions.ParameterResolver) Option {
	return func(o *Options) {
		o.ResolveParameter = fn
	}
}

// WithFunctionResolver sets the hook for calls nothing else handles.
func WithFunctionResolver(fn functions.FunctionResolver) Option {
	return func(o *Options) {
		o.ResolveFunction = fn
	}
}

// WithCache parses through c instead of the default cache.
func WithCache(c *cache.Cache) Option {
	return func(o *Options) {
		o.Cache = c
	}
}

// WithTracerProvider sets the provider of the evaluation and compilation
// spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithConcurrency lets IterateParameters rows of formulas that call no host
// code run in parallel.
func WithConcurrency(enabled bool) Option {
	return func(o *Options) {
		o.Concurrency = enabled
	}
}
