package values

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/sandrolain/goncalc/pkg/types"
)

// Arithmetic applies + - * / or % to a and b.
//
// Operands are promoted to the widest numeric kind (Int < Float < Decimal).
// + with a string operand concatenates; other operators parse string operands
// as decimal numbers. Dividing two integers yields a float64.
func (r Rules) Arithmetic(op types.BinaryOp, a, b any) (any, error) {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		if r.allowNull() {
			return nil, nil
		}
		return nil, nullError()
	}

	if op == types.OpPlus {
		_, ls := a.(string)
		_, rs := b.(string)
		if ls || rs {
			return Format(a) + Format(b), nil
		}
	}

	x, y, k, err := r.promote(a, b, true)
	if err != nil {
		return nil, operatorError(op, a, b, err)
	}

	switch k {
	case Int:
		return r.IntArithmetic(op, x.(int64), y.(int64))
	case Float:
		return FloatArithmetic(op, x.(float64), y.(float64)), nil
	default:
		return DecimalArithmetic(op, x.(decimal.Decimal), y.(decimal.Decimal))
	}
}

// IntArithmetic applies op to two int64 operands. Division yields float64;
// every other operator yields int64.
func (r Rules) IntArithmetic(op types.BinaryOp, a, b int64) (any, error) {
	switch op {
	case types.OpPlus:
		return AddInt(a, b, r.checked())
	case types.OpMinus:
		return SubInt(a, b, r.checked())
	case types.OpTimes:
		return MulInt(a, b, r.checked())
	case types.OpDiv:
		return DivInt(a, b), nil
	case types.OpModulo:
		return ModInt(a, b)
	}
	return nil, unsupportedOperator(op)
}

// AddInt adds two int64 values; with checked set, overflow is an error
// instead of wrapping around.
func AddInt(a, b int64, checked bool) (int64, error) {
	c := a + b
	if checked && (a^c)&(b^c) < 0 {
		return 0, overflowError("+", a, b)
	}
	return c, nil
}

// SubInt subtracts b from a; see AddInt for checked.
func SubInt(a, b int64, checked bool) (int64, error) {
	c := a - b
	if checked && (a^b)&(a^c) < 0 {
		return 0, overflowError("-", a, b)
	}
	return c, nil
}

// MulInt multiplies two int64 values; see AddInt for checked.
func MulInt(a, b int64, checked bool) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	c := a * b
	if checked {
		if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || c/b != a {
			return 0, overflowError("*", a, b)
		}
	}
	return c, nil
}

// DivInt divides two integers as floating point numbers.
func DivInt(a, b int64) float64 {
	return float64(a) / float64(b)
}

// ModInt returns the remainder of a / b, truncated toward zero.
func ModInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, divideByZeroError()
	}
	return a % b, nil
}

// NegateInt returns -a; with checked set, negating MinInt64 is an error.
func NegateInt(a int64, checked bool) (int64, error) {
	if checked && a == math.MinInt64 {
		return 0, types.NewEvaluationError(types.ErrArithmeticOverflow, "arithmetic overflow: -(%d)", a)
	}
	return -a, nil
}

// FloatArithmetic applies op to two float64 operands using IEEE 754 semantics.
func FloatArithmetic(op types.BinaryOp, a, b float64) float64 {
	switch op {
	case types.OpPlus:
		return a + b
	case types.OpMinus:
		return a - b
	case types.OpTimes:
		return a * b
	case types.OpDiv:
		return a / b
	case types.OpModulo:
		return math.Mod(a, b)
	}
	return math.NaN()
}

// DecimalArithmetic applies op to two decimals. Division and remainder by
// zero are errors.
func DecimalArithmetic(op types.BinaryOp, a, b decimal.Decimal) (decimal.Decimal, error) {
	switch op {
	case types.OpPlus:
		return a.Add(b), nil
	case types.OpMinus:
		return a.Sub(b), nil
	case types.OpTimes:
		return a.Mul(b), nil
	case types.OpDiv:
		if b.IsZero() {
			return decimal.Zero, divideByZeroError()
		}
		return a.Div(b), nil
	case types.OpModulo:
		if b.IsZero() {
			return decimal.Zero, divideByZeroError()
		}
		return a.Mod(b), nil
	}
	return decimal.Zero, unsupportedOperator(op)
}

// Negate returns -v, keeping the kind of v.
func (r Rules) Negate(v any) (any, error) {
	switch x := Normalize(v).(type) {
	case nil:
		if r.allowNull() {
			return nil, nil
		}
		return nil, nullError()
	case int64:
		return NegateInt(x, r.checked())
	case float64:
		return -x, nil
	case decimal.Decimal:
		return x.Neg(), nil
	case string:
		d, err := ParseNumber(x)
		if err != nil {
			return nil, err
		}
		return d.Neg(), nil
	case bool:
		if r.booleanCalc() {
			if x {
				return int64(-1), nil
			}
			return int64(0), nil
		}
	}
	return nil, types.NewEvaluationError(types.ErrTypeMismatch, "cannot negate %s (%v)", TypeName(v), v)
}

// Not returns the logical negation of v.
func (r Rules) Not(v any) (any, error) {
	if Normalize(v) == nil && r.allowNull() {
		return nil, nil
	}
	b, err := r.ToBool(v)
	if err != nil {
		return nil, err
	}
	return !b, nil
}

// promote converts two non-null operands to their common numeric kind.
// Booleans count as 0/1 only under BooleanCalculation; strings are parsed as
// decimals when parseStrings is set.
func (r Rules) promote(a, b any, parseStrings bool) (x, y any, k Kind, err error) {
	if x, err = r.numeric(a, parseStrings); err != nil {
		return nil, nil, 0, err
	}
	if y, err = r.numeric(b, parseStrings); err != nil {
		return nil, nil, 0, err
	}
	k = max(KindOf(x), KindOf(y))
	if x, err = ToKind(x, k); err != nil {
		return nil, nil, 0, err
	}
	if y, err = ToKind(y, k); err != nil {
		return nil, nil, 0, err
	}
	return x, y, k, nil
}

func (r Rules) numeric(v any, parseStrings bool) (any, error) {
	switch x := v.(type) {
	case int64, float64, decimal.Decimal:
		return x, nil
	case string:
		if parseStrings {
			return ParseNumber(x)
		}
	case bool:
		if r.booleanCalc() {
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		}
	}
	return nil, types.NewEvaluationError(types.ErrTypeMismatch, "%s (%v) is not a number", TypeName(v), v)
}

// CommonKind returns the widest numeric kind among kinds, or ok=false when
// any of them is not numeric.
func CommonKind(kinds ...Kind) (k Kind, ok bool) {
	for _, each := range kinds {
		if !each.IsNumeric() {
			return 0, false
		}
		k = max(k, each)
	}
	return k, len(kinds) > 0
}

func operatorError(op types.BinaryOp, a, b any, cause error) error {
	if ee, ok := cause.(*types.EvaluationError); ok && ee.Code != types.ErrTypeMismatch {
		return ee
	}
	return types.NewEvaluationError(types.ErrTypeMismatch, "operator %s cannot be applied to %s (%v) and %s (%v)",
		op, TypeName(a), a, TypeName(b), b)
}

func overflowError(op string, a, b int64) error {
	return types.NewEvaluationError(types.ErrArithmeticOverflow, "arithmetic overflow: %d %s %d", a, op, b)
}

func divideByZeroError() error {
	return types.NewEvaluationError(types.ErrDivisionByZero, "division by zero")
}

func unsupportedOperator(op types.BinaryOp) error {
	return types.NewEvaluationError(types.ErrTypeMismatch, "unsupported operator %s", op)
}
