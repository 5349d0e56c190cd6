package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandrolain/goncalc/pkg/functions"
)

// Bindings supplies the names a single evaluation can see. Resolvers set here
// take precedence over the ones configured on the Evaluator.
type Bindings struct {
	Parameters       map[string]any
	ResolveParameter functions.ParameterResolver
	ResolveFunction  functions.FunctionResolver
}

// EvalContext maintains the state of one evaluation: the parameter scope, the
// resolvers in effect and the nesting depth of parameter expressions.
type EvalContext struct {
	ctx context.Context

	// params is the parameter scope; never mutated by the walk
	params map[string]any

	resolveParam functions.ParameterResolver
	resolveFn    functions.FunctionResolver

	// depth counts nested parameter expressions being evaluated
	depth int
}

// NewContext creates an evaluation context over params.
func NewContext(ctx context.Context, params map[string]any) *EvalContext {
	if params == nil {
		params = map[string]any{}
	}
	return &EvalContext{
		ctx:    ctx,
		params: params,
	}
}

// Context returns the context passed to host hooks.
func (c *EvalContext) Context() context.Context {
	return c.ctx
}

// Depth returns the current nesting depth.
func (c *EvalContext) Depth() int {
	return c.depth
}

// Parameter looks a name up in the parameter scope. With ignoreCase the
// exact name wins, then the first case-insensitive match.
func (c *EvalContext) Parameter(name string, ignoreCase bool) (any, bool) {
	if v, ok := c.params[name]; ok {
		return v, true
	}
	if ignoreCase {
		for k, v := range c.params {
			if strings.EqualFold(k, name) {
				return v, true
			}
		}
	}
	return nil, false
}

// WithParameters returns a copy of the context over another parameter scope.
func (c *EvalContext) WithParameters(params map[string]any) *EvalContext {
	clone := *c
	clone.params = params
	return &clone
}

// String returns a string representation of the context.
func (c *EvalContext) String() string {
	return fmt.Sprintf("Context{depth=%d, parameters=%d}", c.depth, len(c.params))
}
