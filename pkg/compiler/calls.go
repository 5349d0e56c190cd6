package compiler

import (
	"math"
	"reflect"
	"slices"

	"github.com/sandrolain/goncalc/pkg/types"
	"github.com/sandrolain/goncalc/pkg/values"
)

// Argument conversion costs. Lower totals win overload resolution.
const (
	scoreExact     = 0
	scoreWiden     = 1
	scoreDynamic   = 3
	scoreVariadic  = 2
	scoreEmptyTail = 1
)

// staticDepth ranks registered functions below every method.
const staticDepth = math.MaxInt

// candidate is one function a call may bind to.
type candidate struct {
	name     string
	fn       reflect.Value
	params   []reflect.Type // without the receiver
	variadic bool
	errOut   bool
	recv     *receiver // nil for functions

	depth int
	order int
}

// receiver locates the value a method is called on: the field at path
// inside the context, adapted to typ.
type receiver struct {
	path []int
	typ  reflect.Type
}

func newCandidate(name string, fn reflect.Value, recv *receiver) (*candidate, bool) {
	ft := fn.Type()
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, false
	}

	first := 0
	if recv != nil {
		if ft.NumIn() == 0 {
			return nil, false
		}
		first = 1
	}

	c := &candidate{
		name:     name,
		fn:       fn,
		variadic: ft.IsVariadic(),
		errOut:   ft.NumOut() == 2,
		recv:     recv,
	}
	for i := first; i < ft.NumIn(); i++ {
		c.params = append(c.params, ft.In(i))
	}
	return c, true
}

func (b *builder) VisitFunction(n *types.FunctionCall) error {
	args := make([]*fragment, len(n.Args))
	for i, arg := range n.Args {
		f, err := b.build(arg)
		if err != nil {
			return err
		}
		args[i] = f
	}

	if bi, ok := values.LookupBuiltin(n.Name, b.c.opts.Options.Has(types.IgnoreCase)); ok {
		f, err := b.builtin(bi, args)
		if err != nil {
			return err
		}
		b.result = f
		return nil
	}

	candidates := b.candidates(n.Name)
	best, score := pick(candidates, args)
	if best == nil {
		names := make([]string, len(args))
		for i, a := range args {
			names[i] = typeName(a.typ)
		}
		return &types.MissingMethodError{Name: n.Name, ArgTypes: names, Candidates: len(candidates)}
	}

	b.c.logger.Debug("overload selected",
		"function", n.Name,
		"signature", best.fn.Type().String(),
		"score", score,
		"candidates", len(candidates))
	b.result = best.invocation(args)
	return nil
}

// candidates collects every function named name: methods of the context,
// then registered methods whose receiver the context embeds, then
// registered functions.
func (b *builder) candidates(name string) []*candidate {
	var out []*candidate

	for _, m := range b.methods() {
		if !b.matches(m.Name, name) {
			continue
		}
		if c, ok := newCandidate(m.Name, m.Func, &receiver{typ: m.Type.In(0)}); ok {
			out = append(out, c)
		}
	}

	for _, e := range b.c.opts.Registry.entries() {
		if !b.matches(e.name, name) {
			continue
		}
		if !e.method {
			if c, ok := newCandidate(e.name, e.fn, nil); ok {
				c.depth = staticDepth
				out = append(out, c)
			}
			continue
		}

		rt := e.fn.Type().In(0)
		path, ok := embedPath(b.env, rt)
		if !ok {
			continue
		}
		if c, ok := newCandidate(e.name, e.fn, &receiver{path: path, typ: rt}); ok {
			c.depth = len(path)
			out = append(out, c)
		}
	}

	for i, c := range out {
		c.order = i
	}
	return out
}

// pick returns the viable candidate with the lowest score. Ties go to the
// most derived candidate, then to the one declared first.
func pick(candidates []*candidate, args []*fragment) (*candidate, int) {
	var best *candidate
	bestScore := 0
	for _, c := range candidates {
		s, ok := c.score(args)
		if !ok {
			continue
		}
		if best == nil || s < bestScore || (s == bestScore && c.depth < best.depth) {
			best, bestScore = c, s
		}
	}
	return best, bestScore
}

func (c *candidate) fixed() int {
	if c.variadic {
		return len(c.params) - 1
	}
	return len(c.params)
}

func (c *candidate) score(args []*fragment) (int, bool) {
	fixed := c.fixed()
	if len(args) < fixed || (!c.variadic && len(args) != fixed) {
		return 0, false
	}

	total := 0
	for i := 0; i < fixed; i++ {
		s, ok := argScore(args[i], c.params[i])
		if !ok {
			return 0, false
		}
		total += s
	}

	if c.variadic {
		tail := args[fixed:]
		if len(tail) == 0 {
			total += scoreEmptyTail
		}
		elem := c.params[fixed].Elem()
		for _, a := range tail {
			s, ok := argScore(a, elem)
			if !ok {
				return 0, false
			}
			total += s + scoreVariadic
		}
	}
	return total, true
}

// target is the type argument i is converted to.
func (c *candidate) target(i int) reflect.Type {
	if fixed := c.fixed(); c.variadic && i >= fixed {
		return c.params[fixed].Elem()
	}
	return c.params[i]
}

func (c *candidate) invocation(args []*fragment) *fragment {
	targets := make([]reflect.Type, len(args))
	for i := range args {
		targets[i] = c.target(i)
	}

	return &fragment{typ: c.fn.Type().Out(0), eval: func(env reflect.Value) (any, error) {
		in := make([]reflect.Value, 0, len(args)+1)
		if c.recv != nil {
			rv, err := c.recv.resolve(env)
			if err != nil {
				return nil, err
			}
			in = append(in, rv)
		}
		for i, a := range args {
			v, err := a.eval(env)
			if err != nil {
				return nil, err
			}
			cv, err := convertValue(v, targets[i])
			if err != nil {
				return nil, err
			}
			in = append(in, cv)
		}

		out := c.fn.Call(in)
		if c.errOut && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}}
}

func (r *receiver) resolve(env reflect.Value) (reflect.Value, error) {
	v := env
	if len(r.path) > 0 {
		base, err := indirect(env)
		if err != nil {
			return reflect.Value{}, err
		}
		if v, err = base.FieldByIndexErr(r.path); err != nil {
			return reflect.Value{}, types.NewEvaluationError(types.ErrNullValue, "receiver %s: %v", r.typ, err)
		}
	}
	return adapt(v, r.typ)
}

// adapt takes the address of v or dereferences it to match a receiver type.
func adapt(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	for v.Kind() == reflect.Interface && !v.IsNil() && to.Kind() != reflect.Interface {
		v = v.Elem()
	}
	switch {
	case v.Type() == to:
		return v, nil
	case to.Kind() == reflect.Pointer && v.Type() == to.Elem():
		if v.CanAddr() {
			return v.Addr(), nil
		}
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p, nil
	case v.Kind() == reflect.Pointer && v.Type().Elem() == to:
		if v.IsNil() {
			return reflect.Value{}, types.NewEvaluationError(types.ErrNullValue, "nil receiver of type %s", v.Type())
		}
		return v.Elem(), nil
	case v.Type().AssignableTo(to):
		return v, nil
	}
	return reflect.Value{}, types.NewEvaluationError(types.ErrTypeMismatch, "cannot use %s as receiver %s", v.Type(), to)
}

// embedPath returns the field path from the context type to an embedded
// value of the receiver type. An empty path means the context itself.
func embedPath(env, recv reflect.Type) ([]int, bool) {
	if env == nil {
		return nil, false
	}
	if recv.Kind() == reflect.Interface {
		return nil, env.Implements(recv)
	}

	target, start := deref(recv), deref(env)
	if start == target {
		return nil, true
	}

	type step struct {
		t    reflect.Type
		path []int
	}
	queue := []step{{t: start}}
	seen := map[reflect.Type]bool{start: true}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if s.t.Kind() != reflect.Struct {
			continue
		}
		for i := 0; i < s.t.NumField(); i++ {
			f := s.t.Field(i)
			if !f.Anonymous || !f.IsExported() {
				continue
			}
			ft := deref(f.Type)
			path := append(slices.Clone(s.path), i)
			if ft == target {
				return path, true
			}
			if !seen[ft] {
				seen[ft] = true
				queue = append(queue, step{t: ft, path: path})
			}
		}
	}
	return nil, false
}

func (b *builder) builtin(bi *values.Builtin, args []*fragment) (*fragment, error) {
	if err := bi.CheckArity(len(args)); err != nil {
		return nil, err
	}

	r := b.c.rules
	return &fragment{typ: b.builtinType(bi.Name, args), eval: func(env reflect.Value) (any, error) {
		vals := make([]any, len(args))
		for i, a := range args {
			v, err := a.eval(env)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return bi.Call(r, vals)
	}}, nil
}

// builtinType is the static result type of a built-in call.
func (b *builder) builtinType(name string, args []*fragment) reflect.Type {
	if b.c.opts.Options.Has(types.AllowNullParameter) && name != "in" {
		return anyType
	}
	switch name {
	case "Abs":
		if b.c.opts.Options.Has(types.UseDoubleForAbsFunction) {
			return float64Type
		}
		return decimalType
	case "Round":
		return decimalType
	case "Sign":
		return int64Type
	case "in":
		return boolType
	case "Max", "Min":
		return commonType(args[0], args[1], false)
	case "if":
		return commonType(args[1], args[2], true)
	}
	return float64Type
}

// commonType is the type numeric operands promote to. With sameKind set,
// two operands of one non-numeric kind keep that kind.
func commonType(a, b *fragment, sameKind bool) reflect.Type {
	ka, okA := a.kind()
	kb, okB := b.kind()
	if !okA || !okB {
		return anyType
	}
	if k, ok := values.CommonKind(ka, kb); ok {
		return typeForKind(k)
	}
	if sameKind && ka == kb {
		return typeForKind(ka)
	}
	return anyType
}
