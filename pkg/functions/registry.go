// Package functions provides the host hooks and custom function registry
// used by goncalc formulas.
//
// Hosts extend a formula in two ways: by answering unknown names through a
// resolver callback, or by registering named functions ahead of time.
//
// # Example
//
//	reg := functions.NewRegistry(functions.CustomFunctionDef{
//	    Name:    "Greet",
//	    MinArgs: 1,
//	    MaxArgs: 1,
//	    Fn: func(ctx context.Context, args ...any) (any, error) {
//	        return "Hello, " + args[0].(string) + "!", nil
//	    },
//	})
//	result, err := goncalc.New("Greet([name])", goncalc.WithFunctions(reg)).
//	    WithParameter("name", "World").
//	    Evaluate(ctx)
//	// result == "Hello, World!"
package functions

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ParameterResolver is consulted for identifiers that are not in the
// parameter map. ok=false means the name is unknown to the resolver.
type ParameterResolver func(ctx context.Context, name string) (value any, ok bool, err error)

// FunctionResolver is consulted for calls that no built-in or registered
// function handles. args are already evaluated. ok=false means the name is
// unknown to the resolver.
type FunctionResolver func(ctx context.Context, name string, args []any) (value any, ok bool, err error)

// CustomFunc is the signature for user-defined custom functions.
// args contains the evaluated function arguments in order.
type CustomFunc func(ctx context.Context, args ...any) (any, error)

// CustomFunctionDef describes a user-defined function together with its
// accepted argument count.
type CustomFunctionDef struct {
	// Name is the function name as it appears inside formulas.
	Name string
	// MinArgs is the minimum number of arguments.
	MinArgs int
	// MaxArgs is the maximum number of arguments; -1 means unbounded.
	MaxArgs int
	// Fn is the implementation.
	Fn CustomFunc
}

// Call checks the argument count and invokes the function.
func (d CustomFunctionDef) Call(ctx context.Context, args []any) (any, error) {
	if len(args) < d.MinArgs || (d.MaxArgs >= 0 && len(args) > d.MaxArgs) {
		return nil, &ArityError{Name: d.Name, MinArgs: d.MinArgs, MaxArgs: d.MaxArgs, Got: len(args)}
	}
	return d.Fn(ctx, args...)
}

// ArityError reports a call with the wrong number of arguments.
type ArityError struct {
	Name             string
	MinArgs, MaxArgs int
	Got              int
}

func (e *ArityError) Error() string {
	switch {
	case e.MinArgs == e.MaxArgs:
		return fmt.Sprintf("%s() takes exactly %d argument(s), got %d", e.Name, e.MinArgs, e.Got)
	case e.MaxArgs < 0:
		return fmt.Sprintf("%s() takes at least %d argument(s), got %d", e.Name, e.MinArgs, e.Got)
	default:
		return fmt.Sprintf("%s() takes %d to %d arguments, got %d", e.Name, e.MinArgs, e.MaxArgs, e.Got)
	}
}

// Registry is a named set of custom functions. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]CustomFunctionDef
	fold map[string]string // lowercased name -> registered name
}

// NewRegistry creates a registry holding defs.
func NewRegistry(defs ...CustomFunctionDef) *Registry {
	r := &Registry{
		defs: make(map[string]CustomFunctionDef, len(defs)),
		fold: make(map[string]string, len(defs)),
	}
	for _, d := range defs {
		r.Register(d)
	}
	return r
}

// Register adds or replaces a function.
func (r *Registry) Register(def CustomFunctionDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Name] = def
	r.fold[strings.ToLower(def.Name)] = def.Name
}

// Merge copies every function of other into r.
func (r *Registry) Merge(other *Registry) {
	if other == nil || other == r {
		return
	}
	for _, name := range other.Names() {
		if def, ok := other.Lookup(name, false); ok {
			r.Register(def)
		}
	}
}

// Lookup finds a function by name; ignoreCase matches case-insensitively.
func (r *Registry) Lookup(name string, ignoreCase bool) (CustomFunctionDef, bool) {
	if r == nil {
		return CustomFunctionDef{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if def, ok := r.defs[name]; ok {
		return def, true
	}
	if ignoreCase {
		if registered, ok := r.fold[strings.ToLower(name)]; ok {
			return r.defs[registered], true
		}
	}
	return CustomFunctionDef{}, false
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Resolver adapts the registry to a FunctionResolver.
func (r *Registry) Resolver(ignoreCase bool) FunctionResolver {
	return func(ctx context.Context, name string, args []any) (any, bool, error) {
		def, ok := r.Lookup(name, ignoreCase)
		if !ok {
			return nil, false, nil
		}
		v, err := def.Call(ctx, args)
		return v, true, err
	}
}

// Chain returns a FunctionResolver that tries each resolver in order and
// stops at the first one that knows the name. Nil resolvers are skipped.
func Chain(resolvers ...FunctionResolver) FunctionResolver {
	return func(ctx context.Context, name string, args []any) (any, bool, error) {
		for _, res := range resolvers {
			if res == nil {
				continue
			}
			if v, ok, err := res(ctx, name, args); ok || err != nil {
				return v, ok, err
			}
		}
		return nil, false, nil
	}
}

// ChainParameters is Chain for parameter resolvers.
func ChainParameters(resolvers ...ParameterResolver) ParameterResolver {
	return func(ctx context.Context, name string) (any, bool, error) {
		for _, res := range resolvers {
			if res == nil {
				continue
			}
			if v, ok, err := res(ctx, name); ok || err != nil {
				return v, ok, err
			}
		}
		return nil, false, nil
	}
}

// StaticParameters resolves names from a fixed map.
func StaticParameters(params map[string]any) ParameterResolver {
	return func(_ context.Context, name string) (any, bool, error) {
		v, ok := params[name]
		return v, ok, nil
	}
}
