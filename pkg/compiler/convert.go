package compiler

import (
	"reflect"

	"github.com/sandrolain/goncalc/pkg/types"
	"github.com/sandrolain/goncalc/pkg/values"
)

// argScore is the cost of passing f where a value of type to is expected.
func argScore(f *fragment, to reflect.Type) (int, bool) {
	from := f.typ
	switch {
	case from == nil:
		return scoreWiden, nillable(to)
	case from == to:
		return scoreExact, true
	case from.Kind() == reflect.Interface:
		return scoreDynamic, true
	case to.Kind() == reflect.Interface:
		return scoreWiden, from.Implements(to)
	case from.Kind() == reflect.Pointer && to.Kind() != reflect.Pointer:
		// Nullable values need a nil check before the conversion.
		_, ok := argScore(&fragment{typ: from.Elem()}, to)
		return scoreDynamic, ok
	case sameScalar(from, to):
		return scoreExact, true
	case widens(from, to), from.AssignableTo(to):
		return scoreWiden, true
	case f.constant && fits(f.value, to):
		return scoreWiden, true
	}
	return 0, false
}

func isSigned(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUnsigned(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// sameScalar reports whether from and to hold the same values: identical
// basic kinds, or signed integers of one width such as int and int64.
func sameScalar(from, to reflect.Type) bool {
	fk, tk := from.Kind(), to.Kind()
	switch {
	case isSigned(fk) && isSigned(tk), isUnsigned(fk) && isUnsigned(tk), isFloat(fk) && isFloat(tk):
		return from.Bits() == to.Bits()
	case fk == reflect.String || fk == reflect.Bool:
		return fk == tk
	}
	return false
}

// widens reports whether every value of from converts to to without loss.
func widens(from, to reflect.Type) bool {
	fk, tk := from.Kind(), to.Kind()
	switch {
	case isSigned(fk) && isSigned(tk), isUnsigned(fk) && isUnsigned(tk):
		return from.Bits() < to.Bits()
	case isUnsigned(fk) && isSigned(tk):
		return from.Bits() < to.Bits()
	case (isSigned(fk) || isUnsigned(fk)) && (isFloat(tk) || to == decimalType):
		return true
	case fk == reflect.Float32 && tk == reflect.Float64:
		return true
	}
	return false
}

// fits reports whether an integer constant is representable in to.
func fits(v any, to reflect.Type) bool {
	n, ok := v.(int64)
	if !ok {
		return false
	}
	switch k := to.Kind(); {
	case isSigned(k):
		return !reflect.Zero(to).OverflowInt(n)
	case isUnsigned(k):
		return n >= 0 && !reflect.Zero(to).OverflowUint(uint64(n))
	}
	return false
}

// convertValue converts v to type to. Numeric conversions may narrow,
// truncating fractions; nil converts only to nillable types.
func convertValue(v any, to reflect.Type) (reflect.Value, error) {
	if v == nil {
		if nillable(to) {
			return reflect.Zero(to), nil
		}
		return reflect.Value{}, types.NewEvaluationError(types.ErrNullValue, "cannot use null as %s", to)
	}

	rv := reflect.ValueOf(v)
	if rv.Type() == to {
		return rv, nil
	}
	if to.Kind() == reflect.Interface {
		if rv.Type().Implements(to) {
			return rv, nil
		}
		return reflect.Value{}, invalidConversion(v, to)
	}
	for rv.Kind() == reflect.Pointer && to.Kind() != reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, types.NewEvaluationError(types.ErrNullValue, "cannot use null as %s", to)
		}
		rv = rv.Elem()
	}
	if rv.Type().AssignableTo(to) {
		return rv, nil
	}
	if to.Kind() == reflect.Pointer {
		elem, err := convertValue(rv.Interface(), to.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(to.Elem())
		p.Elem().Set(elem)
		return p, nil
	}

	x := rv.Interface()
	out := reflect.New(to).Elem()
	switch {
	case to == decimalType:
		d, err := values.ToDecimal(x)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Set(reflect.ValueOf(d))
		return out, nil
	case to == timeType:
		t, err := values.ToTime(x)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Set(reflect.ValueOf(t))
		return out, nil
	}

	switch k := to.Kind(); {
	case isSigned(k):
		n, err := values.ToInt64(x)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, overflow(v, to)
		}
		out.SetInt(n)
	case isUnsigned(k):
		n, err := values.ToInt64(x)
		if err != nil {
			return reflect.Value{}, err
		}
		if n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, overflow(v, to)
		}
		out.SetUint(uint64(n))
	case isFloat(k):
		f, err := values.ToFloat64(x)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowFloat(f) {
			return reflect.Value{}, overflow(v, to)
		}
		out.SetFloat(f)
	case k == reflect.Bool:
		b, ok := values.Normalize(x).(bool)
		if !ok {
			return reflect.Value{}, invalidConversion(v, to)
		}
		out.SetBool(b)
	case k == reflect.String:
		s, ok := values.Normalize(x).(string)
		if !ok {
			return reflect.Value{}, invalidConversion(v, to)
		}
		out.SetString(s)
	default:
		if rv.Kind() != k || !rv.Type().ConvertibleTo(to) {
			return reflect.Value{}, invalidConversion(v, to)
		}
		return rv.Convert(to), nil
	}
	return out, nil
}

func invalidConversion(v any, to reflect.Type) error {
	return types.NewEvaluationError(types.ErrInvalidConversion, "cannot convert %s (%v) to %s", values.TypeName(v), v, to)
}

func overflow(v any, to reflect.Type) error {
	return types.NewEvaluationError(types.ErrArithmeticOverflow, "%v overflows %s", v, to)
}
