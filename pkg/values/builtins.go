package values

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sandrolain/goncalc/pkg/types"
)

// Builtin is a function every formula can call without registering it.
type Builtin struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for no upper bound
	impl    func(r Rules, args []any) (any, error)
}

// Call checks the argument count and applies the function to evaluated
// arguments.
func (b *Builtin) Call(r Rules, args []any) (any, error) {
	if err := b.CheckArity(len(args)); err != nil {
		return nil, err
	}
	return b.impl(r, args)
}

// CheckArity reports whether b accepts n arguments.
func (b *Builtin) CheckArity(n int) error {
	if n >= b.MinArgs && (b.MaxArgs < 0 || n <= b.MaxArgs) {
		return nil
	}
	switch {
	case b.MinArgs == b.MaxArgs:
		return types.NewEvaluationError(types.ErrArgumentCount, "%s() takes exactly %d argument(s), got %d", b.Name, b.MinArgs, n)
	case b.MaxArgs < 0:
		return types.NewEvaluationError(types.ErrArgumentCount, "%s() takes at least %d arguments, got %d", b.Name, b.MinArgs, n)
	default:
		return types.NewEvaluationError(types.ErrArgumentCount, "%s() takes %d to %d arguments, got %d", b.Name, b.MinArgs, b.MaxArgs, n)
	}
}

var builtins = []*Builtin{
	{Name: "Abs", MinArgs: 1, MaxArgs: 1, impl: abs},
	{Name: "Acos", MinArgs: 1, MaxArgs: 1, impl: float1(math.Acos)},
	{Name: "Asin", MinArgs: 1, MaxArgs: 1, impl: float1(math.Asin)},
	{Name: "Atan", MinArgs: 1, MaxArgs: 1, impl: float1(math.Atan)},
	{Name: "Ceiling", MinArgs: 1, MaxArgs: 1, impl: float1(math.Ceil)},
	{Name: "Cos", MinArgs: 1, MaxArgs: 1, impl: float1(math.Cos)},
	{Name: "Exp", MinArgs: 1, MaxArgs: 1, impl: float1(math.Exp)},
	{Name: "Floor", MinArgs: 1, MaxArgs: 1, impl: float1(math.Floor)},
	{Name: "IEEERemainder", MinArgs: 2, MaxArgs: 2, impl: float2(math.Remainder)},
	{Name: "Log", MinArgs: 2, MaxArgs: 2, impl: float2(func(a, base float64) float64 { return math.Log(a) / math.Log(base) })},
	{Name: "Log10", MinArgs: 1, MaxArgs: 1, impl: float1(math.Log10)},
	{Name: "Pow", MinArgs: 2, MaxArgs: 2, impl: float2(math.Pow)},
	{Name: "Round", MinArgs: 1, MaxArgs: 2, impl: round},
	{Name: "Sign", MinArgs: 1, MaxArgs: 1, impl: sign},
	{Name: "Sin", MinArgs: 1, MaxArgs: 1, impl: float1(math.Sin)},
	{Name: "Sqrt", MinArgs: 1, MaxArgs: 1, impl: float1(math.Sqrt)},
	{Name: "Tan", MinArgs: 1, MaxArgs: 1, impl: float1(math.Tan)},
	{Name: "Truncate", MinArgs: 1, MaxArgs: 1, impl: float1(math.Trunc)},
	{Name: "Max", MinArgs: 2, MaxArgs: 2, impl: extreme(1)},
	{Name: "Min", MinArgs: 2, MaxArgs: 2, impl: extreme(-1)},
	{Name: "if", MinArgs: 3, MaxArgs: 3, impl: iif},
	{Name: "in", MinArgs: 2, MaxArgs: -1, impl: in},
}

var (
	builtinsExact = make(map[string]*Builtin, len(builtins))
	builtinsFold  = make(map[string]*Builtin, len(builtins))
)

func init() {
	for _, b := range builtins {
		builtinsExact[b.Name] = b
		builtinsFold[strings.ToLower(b.Name)] = b
	}
}

// LookupBuiltin finds a built-in function. Names match exactly unless
// ignoreCase is set.
func LookupBuiltin(name string, ignoreCase bool) (*Builtin, bool) {
	if b, ok := builtinsExact[name]; ok {
		return b, true
	}
	if ignoreCase {
		b, ok := builtinsFold[strings.ToLower(name)]
		return b, ok
	}
	return nil, false
}

// BuiltinNames returns the names of every built-in function, sorted.
func BuiltinNames() []string {
	names := make([]string, len(builtins))
	for i, b := range builtins {
		names[i] = b.Name
	}
	sort.Strings(names)
	return names
}

// float1 lifts a float64 function. Null arguments yield null under
// AllowNullParameter.
func float1(fn func(float64) float64) func(Rules, []any) (any, error) {
	return func(r Rules, args []any) (any, error) {
		if Normalize(args[0]) == nil {
			return r.nullArgument()
		}
		x, err := ToFloat64(args[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	}
}

func float2(fn func(float64, float64) float64) func(Rules, []any) (any, error) {
	return func(r Rules, args []any) (any, error) {
		if Normalize(args[0]) == nil || Normalize(args[1]) == nil {
			return r.nullArgument()
		}
		x, err := ToFloat64(args[0])
		if err != nil {
			return nil, err
		}
		y, err := ToFloat64(args[1])
		if err != nil {
			return nil, err
		}
		return fn(x, y), nil
	}
}

func (r Rules) nullArgument() (any, error) {
	if r.allowNull() {
		return nil, nil
	}
	return nil, nullError()
}

// abs returns a decimal unless UseDoubleForAbsFunction is set.
func abs(r Rules, args []any) (any, error) {
	if Normalize(args[0]) == nil {
		return r.nullArgument()
	}
	if r.Options.Has(types.UseDoubleForAbsFunction) {
		x, err := ToFloat64(args[0])
		if err != nil {
			return nil, err
		}
		return math.Abs(x), nil
	}
	d, err := ToDecimal(args[0])
	if err != nil {
		return nil, err
	}
	return d.Abs(), nil
}

// round rounds to the given number of fractional digits (0 by default).
// Midpoints go to the even neighbour unless RoundAwayFromZero is set.
func round(r Rules, args []any) (any, error) {
	if Normalize(args[0]) == nil {
		return r.nullArgument()
	}
	d, err := ToDecimal(args[0])
	if err != nil {
		return nil, err
	}
	var places int64
	if len(args) > 1 {
		if places, err = ToInt64(args[1]); err != nil {
			return nil, err
		}
	}
	if places < math.MinInt32 || places > math.MaxInt32 {
		return nil, types.NewEvaluationError(types.ErrInvalidConversion, "Round() digits out of range: %d", places)
	}
	return r.RoundDecimal(d, int32(places)), nil
}

func sign(r Rules, args []any) (any, error) {
	v := Normalize(args[0])
	if v == nil {
		return r.nullArgument()
	}
	if f, ok := v.(float64); ok {
		switch {
		case math.IsNaN(f):
			return nil, types.NewEvaluationError(types.ErrInvalidConversion, "Sign() of NaN")
		case f > 0:
			return int64(1), nil
		case f < 0:
			return int64(-1), nil
		}
		return int64(0), nil
	}
	d, err := ToDecimal(v)
	if err != nil {
		return nil, err
	}
	return int64(d.Sign()), nil
}

// extreme implements Max (want=1) and Min (want=-1). Numeric results take the
// common kind of both arguments.
func extreme(want int) func(Rules, []any) (any, error) {
	return func(r Rules, args []any) (any, error) {
		a, b := Normalize(args[0]), Normalize(args[1])
		if a == nil || b == nil {
			return r.nullArgument()
		}
		c, err := r.Compare(a, b)
		if err != nil {
			return nil, err
		}
		picked := a
		if c*want < 0 {
			picked = b
		}
		if k, ok := CommonKind(KindOf(a), KindOf(b)); ok {
			return ToKind(picked, k)
		}
		return picked, nil
	}
}

// iif is the if(condition, then, else) function. Its arguments are already
// evaluated; numeric branches are promoted to their common kind.
func iif(r Rules, args []any) (any, error) {
	cond, err := r.ToBool(args[0])
	if err != nil {
		return nil, err
	}
	picked := args[2]
	if cond {
		picked = args[1]
	}
	if k, ok := CommonKind(KindOf(args[1]), KindOf(args[2])); ok {
		return ToKind(picked, k)
	}
	return Normalize(picked), nil
}

// in reports whether the first argument equals any of the others. Values that
// cannot be compared count as different.
// in tolerates items that cannot be compared with the needle, but not nulls
// outside AllowNullParameter.
func in(r Rules, args []any) (any, error) {
	for _, item := range args[1:] {
		eq, err := r.Equal(args[0], item)
		if errors.Is(err, types.ErrNullOperand) {
			return nil, err
		}
		if err == nil && eq {
			return true, nil
		}
	}
	return false, nil
}

// RoundDecimal rounds d the way Round() does under r.
func (r Rules) RoundDecimal(d decimal.Decimal, places int32) decimal.Decimal {
	if r.Options.Has(types.RoundAwayFromZero) {
		return d.Round(places)
	}
	return d.RoundBank(places)
}
