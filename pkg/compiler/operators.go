package compiler

import (
	"cmp"
	"context"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/sandrolain/goncalc/pkg/types"
	"github.com/sandrolain/goncalc/pkg/values"
)

// builder compiles one tree. It implements types.Visitor; result holds the
// fragment of the node visited last.
type builder struct {
	c     *Compiler
	ctx   context.Context
	env   reflect.Type
	depth int

	result *fragment
}

func (b *builder) build(node types.Node) (*fragment, error) {
	if err := node.Accept(b); err != nil {
		return nil, err
	}
	return b.result, nil
}

func (b *builder) VisitValue(n *types.ValueExpr) error {
	b.result = constant(n.Value)
	return nil
}

func (b *builder) VisitIdentifier(n *types.Identifier) error {
	f, err := b.identifier(n.Name)
	if err != nil {
		return err
	}
	b.result = f
	return nil
}

func (b *builder) VisitUnary(n *types.UnaryExpr) error {
	operand, err := b.build(n.Operand)
	if err != nil {
		return err
	}

	r := b.c.rules
	k, known := operand.kind()
	typ := anyType
	var apply func(v any) (any, error)

	switch n.Op {
	case types.OpNot:
		typ, apply = boolType, r.Not
		if k == values.Bool && known {
			apply = func(v any) (any, error) { return !values.Normalize(v).(bool), nil }
		}
	case types.OpNegate:
		apply = r.Negate
		if known {
			switch k {
			case values.Int:
				typ, apply = int64Type, func(v any) (any, error) {
					return values.NegateInt(values.Normalize(v).(int64), r.Options.Has(types.OverflowProtection))
				}
			case values.Float:
				typ, apply = float64Type, func(v any) (any, error) { return -values.Normalize(v).(float64), nil }
			case values.Decimal:
				typ, apply = decimalType, func(v any) (any, error) { return values.Normalize(v).(decimal.Decimal).Neg(), nil }
			}
		}
	case types.OpBitwiseNot:
		apply = r.BitwiseNot
		if k == values.Int && known {
			typ, apply = int64Type, func(v any) (any, error) { return ^values.Normalize(v).(int64), nil }
		}
	default:
		return types.NewEvaluationError(types.ErrTypeMismatch, "unsupported operator %s", n.Op)
	}

	if operand.nullable() || r.Options.Has(types.AllowNullParameter) {
		typ = anyType
	}

	b.result = &fragment{typ: typ, eval: func(env reflect.Value) (any, error) {
		v, err := operand.eval(env)
		if err != nil {
			return nil, err
		}
		return apply(v)
	}}
	return nil
}

func (b *builder) VisitBinary(n *types.BinaryExpr) error {
	left, err := b.build(n.Left)
	if err != nil {
		return err
	}
	right, err := b.build(n.Right)
	if err != nil {
		return err
	}

	if n.Op == types.OpAnd || n.Op == types.OpOr {
		b.result = b.logical(n.Op, left, right)
		return nil
	}

	var (
		typ   reflect.Type
		apply func(a, b any) (any, error)
	)
	switch {
	case n.Op.IsComparison():
		typ, apply = boolType, b.comparison(n.Op, left, right)
	case n.Op.IsArithmetic():
		typ, apply = b.arithmetic(n.Op, left, right)
	default:
		typ, apply = b.bitwise(n.Op, left, right)
	}

	// A nil operand goes through the rules, which reject it unless
	// AllowNullParameter is set.
	nullable := left.nullable() || right.nullable() || b.c.rules.Options.Has(types.AllowNullParameter)
	if nullable && !n.Op.IsComparison() {
		typ = anyType
	}

	b.result = &fragment{typ: typ, eval: func(env reflect.Value) (any, error) {
		a, err := left.eval(env)
		if err != nil {
			return nil, err
		}
		c, err := right.eval(env)
		if err != nil {
			return nil, err
		}
		return apply(a, c)
	}}
	return nil
}

func (b *builder) logical(op types.BinaryOp, left, right *fragment) *fragment {
	r := b.c.rules
	return &fragment{typ: boolType, eval: func(env reflect.Value) (any, error) {
		v, err := left.eval(env)
		if err != nil {
			return nil, err
		}
		l, err := r.ToBool(v)
		if err != nil {
			return nil, err
		}
		if (op == types.OpAnd && !l) || (op == types.OpOr && l) {
			return l, nil
		}

		if v, err = right.eval(env); err != nil {
			return nil, err
		}
		return r.ToBool(v)
	}}
}

func (b *builder) comparison(op types.BinaryOp, left, right *fragment) func(a, b any) (any, error) {
	r := b.c.rules
	lk, lok := left.kind()
	rk, rok := right.kind()

	if lok && rok {
		switch {
		case lk == values.Int && rk == values.Int:
			return func(a, b any) (any, error) {
				return ordered(op, cmp.Compare(values.Normalize(a).(int64), values.Normalize(b).(int64))), nil
			}
		case lk == values.String && rk == values.String:
			if op == types.OpEqual || op == types.OpNotEqual {
				return func(a, b any) (any, error) {
					eq := r.Strings.Equal(values.Normalize(a).(string), values.Normalize(b).(string))
					return eq == (op == types.OpEqual), nil
				}
			}
			return func(a, b any) (any, error) {
				return ordered(op, r.Strings.Compare(values.Normalize(a).(string), values.Normalize(b).(string))), nil
			}
		}
	}

	return func(a, b any) (any, error) {
		return r.Relational(op, a, b)
	}
}

func ordered(op types.BinaryOp, c int) bool {
	switch op {
	case types.OpEqual:
		return c == 0
	case types.OpNotEqual:
		return c != 0
	case types.OpLesser:
		return c < 0
	case types.OpLesserOrEqual:
		return c <= 0
	case types.OpGreater:
		return c > 0
	default:
		return c >= 0
	}
}

func (b *builder) arithmetic(op types.BinaryOp, left, right *fragment) (reflect.Type, func(a, b any) (any, error)) {
	r := b.c.rules
	lk, lok := left.kind()
	rk, rok := right.kind()

	if lok && rok {
		if op == types.OpPlus && (lk == values.String || rk == values.String) {
			return stringType, func(a, b any) (any, error) {
				return values.Format(a) + values.Format(b), nil
			}
		}

		if k, ok := values.CommonKind(lk, rk); ok {
			switch k {
			case values.Int:
				typ := int64Type
				if op == types.OpDiv {
					typ = float64Type
				}
				return typ, func(a, b any) (any, error) {
					return r.IntArithmetic(op, values.Normalize(a).(int64), values.Normalize(b).(int64))
				}
			case values.Float:
				return float64Type, func(a, b any) (any, error) {
					x, err := values.ToFloat64(a)
					if err != nil {
						return nil, err
					}
					y, err := values.ToFloat64(b)
					if err != nil {
						return nil, err
					}
					return values.FloatArithmetic(op, x, y), nil
				}
			case values.Decimal:
				return decimalType, func(a, b any) (any, error) {
					x, err := values.ToDecimal(a)
					if err != nil {
						return nil, err
					}
					y, err := values.ToDecimal(b)
					if err != nil {
						return nil, err
					}
					return values.DecimalArithmetic(op, x, y)
				}
			}
		}
	}

	return anyType, func(a, b any) (any, error) {
		return r.Arithmetic(op, a, b)
	}
}

func (b *builder) bitwise(op types.BinaryOp, left, right *fragment) (reflect.Type, func(a, b any) (any, error)) {
	r := b.c.rules
	lk, lok := left.kind()
	rk, rok := right.kind()

	if lok && rok && lk == values.Int && rk == values.Int {
		return int64Type, func(a, b any) (any, error) {
			return values.IntBitwise(op, values.Normalize(a).(int64), values.Normalize(b).(int64))
		}
	}
	return anyType, func(a, b any) (any, error) {
		return r.Bitwise(op, a, b)
	}
}

func (b *builder) VisitTernary(n *types.TernaryExpr) error {
	cond, err := b.build(n.Condition)
	if err != nil {
		return err
	}
	then, err := b.build(n.Then)
	if err != nil {
		return err
	}
	els, err := b.build(n.Else)
	if err != nil {
		return err
	}

	typ := anyType
	if then.typ != nil && then.typ == els.typ {
		typ = then.typ
	}

	r := b.c.rules
	b.result = &fragment{typ: typ, eval: func(env reflect.Value) (any, error) {
		v, err := cond.eval(env)
		if err != nil {
			return nil, err
		}
		ok, err := r.ToBool(v)
		if err != nil {
			return nil, err
		}
		if ok {
			return then.eval(env)
		}
		return els.eval(env)
	}}
	return nil
}
