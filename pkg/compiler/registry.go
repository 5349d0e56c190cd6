package compiler

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry holds the Go functions compiled calls may bind to.
//
// Several functions may share a name; the compiler picks the overload that
// fits the argument types best. A method is a function whose first parameter
// is the receiver, so types can gain overloads Go cannot declare:
//
//	reg := compiler.NewRegistry()
//	reg.Method("Test", func(c *Context, a, b int) int { return a + b })
//	reg.Method("Test", func(c *Context, a, b string) string { return a + b })
//	reg.Func("Half", func(x float64) float64 { return x / 2 })
type Registry struct {
	mu    sync.RWMutex
	items []entry
}

type entry struct {
	name   string
	fn     reflect.Value
	method bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Method registers fn as a method of the type of its first parameter. Calls
// bind to it when the context is, or embeds, that type.
func (r *Registry) Method(name string, fn any) error {
	return r.add(name, fn, true)
}

// Func registers fn as a function available to every context. Methods win
// over functions with the same score.
func (r *Registry) Func(name string, fn any) error {
	return r.add(name, fn, false)
}

// Len returns the number of registered overloads.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Registry) add(name string, fn any, method bool) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("compiler: %s: %T is not a function", name, fn)
	}
	t := v.Type()
	if method && t.NumIn() == 0 {
		return fmt.Errorf("compiler: method %s has no receiver parameter", name)
	}
	if method && t.IsVariadic() && t.NumIn() == 1 {
		return fmt.Errorf("compiler: method %s: the receiver cannot be variadic", name)
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return fmt.Errorf("compiler: %s must return T or (T, error), got %s", name, t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, entry{name: name, fn: v, method: method})
	return nil
}

// entries returns a snapshot in registration order.
func (r *Registry) entries() []entry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entry(nil), r.items...)
}
