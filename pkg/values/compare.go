package values

import (
	"cmp"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/sandrolain/goncalc/pkg/types"
)

// Compare orders a and b, returning -1, 0 or +1.
//
// Numbers are compared after promotion; a string compared with a number is
// parsed as a number, and compared with a time it is parsed as a date.
// Null is an error unless AllowNullParameter is set; then null is equal to
// null and orders before every other value.
func (r Rules) Compare(a, b any) (int, error) {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		if !r.allowNull() {
			return 0, nullError()
		}
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}

	ka, kb := KindOf(a), KindOf(b)
	switch {
	case ka == String && kb == String:
		return r.Strings.Compare(a.(string), b.(string)), nil
	case ka == Bool && kb == Bool:
		return compareBool(a.(bool), b.(bool)), nil
	case ka == Time || kb == Time:
		ta, err := ToTime(a)
		if err != nil {
			return 0, mismatch(a, b)
		}
		tb, err := ToTime(b)
		if err != nil {
			return 0, mismatch(a, b)
		}
		return ta.Compare(tb), nil
	case ka == Other || kb == Other:
		return 0, mismatch(a, b)
	}

	x, y, k, err := r.promote(a, b, true)
	if err != nil {
		return 0, mismatch(a, b)
	}
	switch k {
	case Int:
		return cmp.Compare(x.(int64), y.(int64)), nil
	case Float:
		return cmp.Compare(x.(float64), y.(float64)), nil
	default:
		return x.(decimal.Decimal).Cmp(y.(decimal.Decimal)), nil
	}
}

// Equal reports whether a and b are equal. Values of kinds the operators do
// not know are equal when they are the same comparable value.
func (r Rules) Equal(a, b any) (bool, error) {
	na, nb := Normalize(a), Normalize(b)
	if KindOf(na) == Other || KindOf(nb) == Other {
		if na == nil || nb == nil {
			if !r.allowNull() {
				return false, nullError()
			}
			return na == nb, nil
		}
		ta, tb := reflect.TypeOf(na), reflect.TypeOf(nb)
		if ta != tb || !ta.Comparable() {
			return false, mismatch(a, b)
		}
		return na == nb, nil
	}
	if sa, ok := na.(string); ok {
		if sb, ok := nb.(string); ok {
			return r.Strings.Equal(sa, sb), nil
		}
	}
	c, err := r.Compare(na, nb)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

// Relational applies one of the six comparison operators.
func (r Rules) Relational(op types.BinaryOp, a, b any) (bool, error) {
	switch op {
	case types.OpEqual:
		return r.Equal(a, b)
	case types.OpNotEqual:
		eq, err := r.Equal(a, b)
		return !eq, err
	}

	c, err := r.Compare(a, b)
	if err != nil {
		return false, err
	}
	switch op {
	case types.OpLesser:
		return c < 0, nil
	case types.OpLesserOrEqual:
		return c <= 0, nil
	case types.OpGreater:
		return c > 0, nil
	case types.OpGreaterOrEqual:
		return c >= 0, nil
	}
	return false, unsupportedOperator(op)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func mismatch(a, b any) error {
	return types.NewEvaluationError(types.ErrTypeMismatch, "cannot compare %s (%v) with %s (%v)", TypeName(a), a, TypeName(b), b)
}
