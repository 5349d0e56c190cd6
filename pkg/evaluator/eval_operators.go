package evaluator

import (
	"strings"

	"github.com/sandrolain/goncalc/pkg/types"
)

// visitor walks one tree. Each Visit method leaves the value of its node in
// result; children are visited depth first, operands before the operator.
type visitor struct {
	e       *Evaluator
	evalCtx *EvalContext
	result  any
}

var _ types.Visitor = (*visitor)(nil)

func (v *visitor) VisitValue(n *types.ValueExpr) error {
	v.result = n.Value
	return nil
}

func (v *visitor) VisitIdentifier(n *types.Identifier) error {
	value, err := v.e.lookupParameter(v.evalCtx, n.Name)
	if err != nil {
		return err
	}
	v.result = value
	return nil
}

func (v *visitor) VisitUnary(n *types.UnaryExpr) error {
	if err := n.Operand.Accept(v); err != nil {
		return err
	}

	rules := v.e.rules
	var err error
	switch n.Op {
	case types.OpNot:
		v.result, err = rules.Not(v.result)
	case types.OpNegate:
		v.result, err = rules.Negate(v.result)
	case types.OpBitwiseNot:
		v.result, err = rules.BitwiseNot(v.result)
	default:
		err = types.NewEvaluationError(types.ErrTypeMismatch, "unsupported unary operator %s", n.Op)
	}
	return err
}

func (v *visitor) VisitBinary(n *types.BinaryExpr) error {
	switch n.Op {
	case types.OpAnd, types.OpOr:
		return v.visitLogical(n)
	}

	if err := n.Left.Accept(v); err != nil {
		return err
	}
	left := v.result
	if err := n.Right.Accept(v); err != nil {
		return err
	}
	right := v.result

	rules := v.e.rules
	var err error
	switch {
	case n.Op.IsComparison():
		v.result, err = rules.Relational(n.Op, left, right)
	case n.Op.IsArithmetic():
		v.result, err = rules.Arithmetic(n.Op, left, right)
	case n.Op.IsBitwise():
		v.result, err = rules.Bitwise(n.Op, left, right)
	default:
		err = types.NewEvaluationError(types.ErrTypeMismatch, "unsupported operator %s", n.Op)
	}
	if err != nil {
		v.result = nil
	}
	return err
}

// visitLogical short-circuits: the right operand is not visited when the left
// one decides the result.
func (v *visitor) visitLogical(n *types.BinaryExpr) error {
	if err := n.Left.Accept(v); err != nil {
		return err
	}
	left, err := v.e.rules.ToBool(v.result)
	if err != nil {
		return err
	}
	if (n.Op == types.OpAnd && !left) || (n.Op == types.OpOr && left) {
		v.result = left
		return nil
	}

	if err := n.Right.Accept(v); err != nil {
		return err
	}
	right, err := v.e.rules.ToBool(v.result)
	if err != nil {
		return err
	}
	v.result = right
	return nil
}

// VisitTernary evaluates exactly one branch.
func (v *visitor) VisitTernary(n *types.TernaryExpr) error {
	if err := n.Condition.Accept(v); err != nil {
		return err
	}
	cond, err := v.e.rules.ToBool(v.result)
	if err != nil {
		return err
	}
	if cond {
		return n.Then.Accept(v)
	}
	return n.Else.Accept(v)
}

func (v *visitor) VisitFunction(n *types.FunctionCall) error {
	// Arguments are evaluated eagerly, left to right, for every function.
	args := make([]any, len(n.Args))
	for i, arg := range n.Args {
		if err := arg.Accept(v); err != nil {
			return err
		}
		args[i] = v.result
	}

	result, err := v.e.callFunction(v.evalCtx, n.Name, args)
	if err != nil {
		return err
	}
	v.result = result
	return nil
}

// lookupParameter resolves an identifier: parameter scope, nested expression,
// parameter hook, then the null parameter under AllowNullParameter.
func (e *Evaluator) lookupParameter(evalCtx *EvalContext, name string) (any, error) {
	ignoreCase := e.opts.Options.Has(types.IgnoreCase)

	if value, ok := evalCtx.Parameter(name, ignoreCase); ok {
		return e.expand(evalCtx, name, value)
	}

	if evalCtx.resolveParam != nil {
		value, ok, err := evalCtx.resolveParam(evalCtx.ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			return e.expand(evalCtx, name, value)
		}
	}

	if e.opts.Options.Has(types.AllowNullParameter) && strings.EqualFold(name, "null") {
		return nil, nil
	}

	return nil, types.NewEvaluationError(types.ErrUndefinedParameter, "Parameter '%s' not defined", name)
}

// expand evaluates parameter values that are themselves expressions.
func (e *Evaluator) expand(evalCtx *EvalContext, name string, value any) (any, error) {
	var root types.Node
	switch x := value.(type) {
	case *types.Expression:
		if x == nil {
			return nil, nil
		}
		root = x.Root()
	case types.Node:
		root = x
	default:
		return value, nil
	}

	if e.opts.MaxDepth > 0 && evalCtx.depth >= e.opts.MaxDepth {
		return nil, types.NewEvaluationError(types.ErrRecursionDepth,
			"parameter '%s' nests expressions deeper than %d levels", name, e.opts.MaxDepth)
	}

	nested := *evalCtx
	nested.depth++
	e.logger.Debug("evaluating parameter expression", "parameter", name, "depth", nested.depth)
	return e.evalNode(&nested, root)
}
