package values

import (
	"github.com/sandrolain/goncalc/pkg/types"
)

// Bitwise applies & | ^ << or >> to two integer operands.
// Under BooleanCalculation booleans count as 0/1, and & | ^ on two booleans
// stay boolean.
func (r Rules) Bitwise(op types.BinaryOp, a, b any) (any, error) {
	a, b = Normalize(a), Normalize(b)
	if a == nil || b == nil {
		if r.allowNull() {
			return nil, nil
		}
		return nil, nullError()
	}

	if la, ok := a.(bool); ok && r.booleanCalc() {
		if lb, ok := b.(bool); ok {
			switch op {
			case types.OpBitwiseAnd:
				return la && lb, nil
			case types.OpBitwiseOr:
				return la || lb, nil
			case types.OpBitwiseXor:
				return la != lb, nil
			}
		}
	}

	x, err := r.integer(a)
	if err != nil {
		return nil, operatorError(op, a, b, err)
	}
	y, err := r.integer(b)
	if err != nil {
		return nil, operatorError(op, a, b, err)
	}
	return IntBitwise(op, x, y)
}

// IntBitwise applies a bitwise operator to two int64 values. Shift counts are
// taken modulo 64; negative counts are an error.
func IntBitwise(op types.BinaryOp, a, b int64) (int64, error) {
	switch op {
	case types.OpBitwiseAnd:
		return a & b, nil
	case types.OpBitwiseOr:
		return a | b, nil
	case types.OpBitwiseXor:
		return a ^ b, nil
	case types.OpLeftShift, types.OpRightShift:
		if b < 0 {
			return 0, types.NewEvaluationError(types.ErrTypeMismatch, "negative shift count %d", b)
		}
		if op == types.OpLeftShift {
			return a << (b & 63), nil
		}
		return a >> (b & 63), nil
	}
	return 0, unsupportedOperator(op)
}

// BitwiseNot returns the one's complement of an integer operand.
func (r Rules) BitwiseNot(v any) (any, error) {
	v = Normalize(v)
	if v == nil {
		if r.allowNull() {
			return nil, nil
		}
		return nil, nullError()
	}
	x, err := r.integer(v)
	if err != nil {
		return nil, err
	}
	return ^x, nil
}

func (r Rules) integer(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case bool:
		if r.booleanCalc() {
			if x {
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, types.NewEvaluationError(types.ErrTypeMismatch, "%s (%v) is not an integer", TypeName(v), v)
}
