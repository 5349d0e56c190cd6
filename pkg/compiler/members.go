package compiler

import (
	"reflect"
	"strings"

	"github.com/sandrolain/goncalc/pkg/types"
)

// identifier binds a name, in order, to a field, a getter method or a map key
// of the context, then to a compile-time parameter, the parameter hook and
// finally null under AllowNullParameter. Map keys are looked up when the
// Func runs and fall back to the compile-time binding.
func (b *builder) identifier(name string) (*fragment, error) {
	if b.env != nil {
		if f, ok := b.field(name); ok {
			return f, nil
		}
		if f, ok := b.getter(name); ok {
			return f, nil
		}
	}

	fallback, err := b.static(name)
	if err != nil {
		return nil, err
	}
	if b.env != nil && b.env.Kind() == reflect.Map && b.env.Key().Kind() == reflect.String {
		return b.mapKey(name, fallback), nil
	}
	if fallback == nil {
		return nil, undefinedParameter(name)
	}
	return fallback, nil
}

// static resolves name without the context. It returns nil when nothing
// defines the name.
func (b *builder) static(name string) (*fragment, error) {
	if v, ok := b.parameter(name); ok {
		switch x := v.(type) {
		case types.Node:
			return b.nested(name, x)
		case *types.Expression:
			return b.nested(name, x.Root())
		}
		return constant(v), nil
	}

	if resolve := b.c.opts.ResolveParameter; resolve != nil {
		v, ok, err := resolve(b.ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return constant(v), nil
		}
	}

	if b.c.opts.Options.Has(types.AllowNullParameter) && strings.EqualFold(name, "null") {
		return constant(nil), nil
	}
	return nil, nil
}

func undefinedParameter(name string) error {
	return types.NewEvaluationError(types.ErrUndefinedParameter, "Parameter '%s' not defined", name)
}

func (b *builder) matches(candidate, name string) bool {
	if candidate == name {
		return true
	}
	return b.c.opts.Options.Has(types.IgnoreCase) && strings.EqualFold(candidate, name)
}

func (b *builder) field(name string) (*fragment, bool) {
	st := deref(b.env)
	if st.Kind() != reflect.Struct {
		return nil, false
	}

	sf, ok := st.FieldByName(name)
	if !ok && b.c.opts.Options.Has(types.IgnoreCase) {
		sf, ok = st.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) })
	}
	if !ok || !sf.IsExported() {
		return nil, false
	}

	index := sf.Index
	return &fragment{typ: sf.Type, eval: func(env reflect.Value) (any, error) {
		v, err := indirect(env)
		if err != nil {
			return nil, err
		}
		f, err := v.FieldByIndexErr(index)
		if err != nil {
			return nil, types.NewEvaluationError(types.ErrNullValue, "field %s: %v", name, err)
		}
		return f.Interface(), nil
	}}, true
}

func (b *builder) getter(name string) (*fragment, bool) {
	for _, m := range b.methods() {
		if !b.matches(m.Name, name) {
			continue
		}
		c, ok := newCandidate(m.Name, m.Func, &receiver{typ: m.Type.In(0)})
		if !ok || len(c.params) != 0 || c.variadic {
			continue
		}
		return c.invocation(nil), true
	}
	return nil, false
}

func (b *builder) mapKey(name string, fallback *fragment) *fragment {
	keyType, ignoreCase := b.env.Key(), b.c.opts.Options.Has(types.IgnoreCase)

	typ := b.env.Elem()
	if fallback != nil && fallback.typ != typ {
		typ = anyType
	}

	return &fragment{typ: typ, eval: func(env reflect.Value) (any, error) {
		if v := env.MapIndex(reflect.ValueOf(name).Convert(keyType)); v.IsValid() {
			return v.Interface(), nil
		}
		if ignoreCase {
			iter := env.MapRange()
			for iter.Next() {
				if strings.EqualFold(iter.Key().String(), name) {
					return iter.Value().Interface(), nil
				}
			}
		}
		if fallback != nil {
			return fallback.eval(env)
		}
		return nil, undefinedParameter(name)
	}}
}

func (b *builder) parameter(name string) (any, bool) {
	params := b.c.opts.Parameters
	if v, ok := params[name]; ok {
		return v, true
	}
	if b.c.opts.Options.Has(types.IgnoreCase) {
		for key, v := range params {
			if strings.EqualFold(key, name) {
				return v, true
			}
		}
	}
	return nil, false
}

// nested compiles a parameter whose value is itself an expression.
func (b *builder) nested(name string, node types.Node) (*fragment, error) {
	if b.depth >= b.c.opts.MaxDepth {
		return nil, types.NewEvaluationError(types.ErrRecursionDepth,
			"parameter '%s' nests expressions deeper than %d", name, b.c.opts.MaxDepth)
	}
	sub := &builder{c: b.c, ctx: b.ctx, env: b.env, depth: b.depth + 1}
	return sub.build(node)
}

// methods returns the exported methods callable on the context, including
// those declared on its pointer type.
func (b *builder) methods() []reflect.Method {
	if b.env == nil || b.env.Kind() == reflect.Interface {
		return nil
	}

	sets := []reflect.Type{b.env}
	if b.env.Kind() != reflect.Pointer {
		sets = append(sets, reflect.PointerTo(b.env))
	}

	var out []reflect.Method
	seen := make(map[string]bool)
	for _, t := range sets {
		for i := 0; i < t.NumMethod(); i++ {
			m := t.Method(i)
			if seen[m.Name] {
				continue
			}
			seen[m.Name] = true
			out = append(out, m)
		}
	}
	return out
}

// indirect follows pointers and interfaces from the context to its value.
func indirect(v reflect.Value) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, types.NewEvaluationError(types.ErrNullValue, "context is nil")
		}
		v = v.Elem()
	}
	return v, nil
}
