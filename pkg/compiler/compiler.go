// Package compiler turns expression trees into typed Go closures.
//
// A tree is compiled once against a context type C and a result type R.
// Identifiers bind to fields, getter methods or map keys of C, and function
// calls bind to the best matching overload among the methods of C and the
// methods and functions of a Registry. Operators are specialised on the
// static operand types and share their semantics with the interpreter
// through the values package.
//
// # Example
//
//	type Order struct {
//	    Quantity int
//	    Price    decimal.Decimal
//	}
//
//	c := compiler.New()
//	total, err := compiler.Compile[*Order, decimal.Decimal](ctx, c, expr.Root())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := total(&Order{Quantity: 3, Price: decimal.RequireFromString("9.99")})
//
// # Concurrency
//
// A compiled Func holds no mutable state and may be called from several
// goroutines at once. Overload decisions are made at compile time, so a
// compiled Func never fails with a MissingMethodError.
package compiler

import (
	"context"
	"log/slog"
	"reflect"

	"golang.org/x/text/language"

	"github.com/sandrolain/goncalc/pkg/functions"
	"github.com/sandrolain/goncalc/pkg/types"
	"github.com/sandrolain/goncalc/pkg/values"
)

// Func is a compiled expression evaluated against a context value.
type Func[C, R any] func(c C) (R, error)

// Compiler compiles expression trees. It is immutable once built and may be
// shared.
type Compiler struct {
	opts   CompileOptions
	logger *slog.Logger
	rules  values.Rules
}

// CompileOptions configures a Compiler.
type CompileOptions struct {
	// Options is the evaluation option bit set.
	Options types.EvaluateOptions
	// Culture selects the collation used for culture-aware string comparison.
	Culture language.Tag
	// MaxDepth limits how deeply parameter expressions may nest.
	MaxDepth int
	// Logger for structured logging.
	Logger *slog.Logger
	// Registry holds the methods and functions calls may bind to.
	Registry *Registry
	// Parameters are bound at compile time, after the members of the context.
	Parameters map[string]any
	// ResolveParameter is called once at compile time for names nothing else
	// defines.
	ResolveParameter functions.ParameterResolver
}

// CompileOption configures a Compiler.
type CompileOption func(*CompileOptions)

// New creates a Compiler.
func New(opts ...CompileOption) *Compiler {
	options := CompileOptions{
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
	if options.Registry == nil {
		options.Registry = NewRegistry()
	}

	return &Compiler{
		opts:   options,
		logger: options.Logger,
		rules:  values.NewRules(options.Options, options.Culture),
	}
}

// Options returns the compiler configuration.
func (c *Compiler) Options() CompileOptions {
	return c.opts
}

// Compile compiles node into a Func over contexts of type C returning R.
//
// ctx is only passed to the parameter resolver, which runs at compile time.
// The root value is converted to R when the Func runs; numeric conversions
// may narrow.
func Compile[C, R any](ctx context.Context, c *Compiler, node types.Node) (Func[C, R], error) {
	root, err := c.compile(ctx, reflect.TypeFor[C](), node)
	if err != nil {
		return nil, err
	}

	return func(env C) (R, error) {
		return result[R](root.eval(reflect.ValueOf(&env).Elem()))
	}, nil
}

// CompileStatic compiles node for evaluation without a context value.
func CompileStatic[R any](ctx context.Context, c *Compiler, node types.Node) (func() (R, error), error) {
	root, err := c.compile(ctx, nil, node)
	if err != nil {
		return nil, err
	}

	return func() (R, error) {
		return result[R](root.eval(reflect.Value{}))
	}, nil
}

func (c *Compiler) compile(ctx context.Context, env reflect.Type, node types.Node) (*fragment, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	b := &builder{c: c, ctx: ctx, env: env}
	root, err := b.build(node)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("expression compiled", "context", typeName(env), "type", typeName(root.typ))
	return root, nil
}

func result[R any](v any, err error) (R, error) {
	var zero R
	if err != nil {
		return zero, err
	}
	out, err := convertValue(v, reflect.TypeFor[R]())
	if err != nil {
		return zero, err
	}
	r, _ := out.Interface().(R)
	return r, nil
}

// WithOptions sets the evaluation options.
func WithOptions(opts types.EvaluateOptions) CompileOption {
	return func(o *CompileOptions) {
		o.Options = opts
	}
}

// WithCulture sets the language used for culture-aware string comparison.
func WithCulture(tag language.Tag) CompileOption {
	return func(o *CompileOptions) {
		o.Culture = tag
	}
}

// WithMaxDepth limits how deeply parameter expressions may nest.
func WithMaxDepth(depth int) CompileOption {
	return func(o *CompileOptions) {
		o.MaxDepth = depth
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CompileOption {
	return func(o *CompileOptions) {
		o.Logger = logger
	}
}

// WithRegistry sets the methods and functions calls may bind to.
func WithRegistry(r *Registry) CompileOption {
	return func(o *CompileOptions) {
		o.Registry = r
	}
}

// WithParameters binds names at compile time. Values that are expression
// trees are compiled inline.
func WithParameters(params map[string]any) CompileOption {
	return func(o *CompileOptions) {
		o.Parameters = params
	}
}

// WithParameterResolver sets the compile-time parameter hook.
func WithParameterResolver(fn functions.ParameterResolver) CompileOption {
	return func(o *CompileOptions) {
		o.ResolveParameter = fn
	}
}
