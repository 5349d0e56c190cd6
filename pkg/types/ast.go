package types

import (
	"fmt"
	"time"
)

// ValueKind identifies the declared type of a literal.
type ValueKind uint8

// Literal kinds produced by the parser.
const (
	KindBoolean ValueKind = iota
	KindInteger
	KindFloat
	KindString
	KindDateTime
)

// String returns the name of the literal kind.
func (k ValueKind) String() string {
	switch k {
	case KindBoolean:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindDateTime:
		return "DateTime"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// UnaryOp identifies a prefix operator.
type UnaryOp uint8

// Unary operators.
const (
	OpNot UnaryOp = iota
	OpNegate
	OpBitwiseNot
)

// String returns the operator name.
func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "Not"
	case OpNegate:
		return "Negate"
	case OpBitwiseNot:
		return "BitwiseNot"
	default:
		return fmt.Sprintf("UnaryOp(%d)", uint8(op))
	}
}

// BinaryOp identifies an infix operator.
type BinaryOp uint8

// Binary operators.
const (
	OpAnd BinaryOp = iota
	OpOr
	OpDiv
	OpEqual
	OpGreater
	OpGreaterOrEqual
	OpLesser
	OpLesserOrEqual
	OpMinus
	OpModulo
	OpNotEqual
	OpPlus
	OpTimes
	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpLeftShift
	OpRightShift
)

var binaryOpNames = [...]string{
	OpAnd:            "And",
	OpOr:             "Or",
	OpDiv:            "Div",
	OpEqual:          "Equal",
	OpGreater:        "Greater",
	OpGreaterOrEqual: "GreaterOrEqual",
	OpLesser:         "Lesser",
	OpLesserOrEqual:  "LesserOrEqual",
	OpMinus:          "Minus",
	OpModulo:         "Modulo",
	OpNotEqual:       "NotEqual",
	OpPlus:           "Plus",
	OpTimes:          "Times",
	OpBitwiseAnd:     "BitwiseAnd",
	OpBitwiseOr:      "BitwiseOr",
	OpBitwiseXor:     "BitwiseXor",
	OpLeftShift:      "LeftShift",
	OpRightShift:     "RightShift",
}

// String returns the operator name.
func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", uint8(op))
}

// IsComparison reports whether op is a relational or equality operator.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpGreaterOrEqual, OpLesser, OpLesserOrEqual:
		return true
	}
	return false
}

// IsArithmetic reports whether op is one of + - * / %.
func (op BinaryOp) IsArithmetic() bool {
	switch op {
	case OpPlus, OpMinus, OpTimes, OpDiv, OpModulo:
		return true
	}
	return false
}

// IsBitwise reports whether op is a bitwise or shift operator.
func (op BinaryOp) IsBitwise() bool {
	switch op {
	case OpBitwiseAnd, OpBitwiseOr, OpBitwiseXor, OpLeftShift, OpRightShift:
		return true
	}
	return false
}

// Node is an immutable expression tree node.
//
// The set of implementations is closed: ValueExpr, Identifier, UnaryExpr,
// BinaryExpr, TernaryExpr and FunctionCall. Nodes are compared by identity.
type Node interface {
	// Accept dispatches to the Visitor method matching the node variant.
	Accept(v Visitor) error
	// Position is the byte offset of the node in its source text.
	Position() int

	node()
}

// Visitor handles every node variant. Adding a variant adds a method here,
// so every implementation stops compiling until it handles it.
type Visitor interface {
	VisitValue(n *ValueExpr) error
	VisitIdentifier(n *Identifier) error
	VisitUnary(n *UnaryExpr) error
	VisitBinary(n *BinaryExpr) error
	VisitTernary(n *TernaryExpr) error
	VisitFunction(n *FunctionCall) error
}

// ValueExpr is a literal.
type ValueExpr struct {
	Kind  ValueKind
	Value any    // bool, int64, float64, string or time.Time
	Raw   string // source text of the literal, without delimiters
	Pos   int
}

// Identifier references a parameter by name.
type Identifier struct {
	Name string
	Pos  int
}

// UnaryExpr applies a prefix operator to one operand.
type UnaryExpr struct {
	Op      UnaryOp
	Operand Node
	Pos     int
}

// BinaryExpr applies an infix operator to two operands.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Node
	Right Node
	Pos   int
}

// TernaryExpr is cond ? then : else.
type TernaryExpr struct {
	Condition Node
	Then      Node
	Else      Node
	Pos       int
}

// FunctionCall is name(args...).
type FunctionCall struct {
	Name string
	Args []Node
	Pos  int
}

// NewBoolean returns a Boolean literal.
func NewBoolean(v bool) *ValueExpr {
	return &ValueExpr{Kind: KindBoolean, Value: v, Raw: fmt.Sprint(v)}
}

// NewInteger returns an Integer literal.
func NewInteger(v int64) *ValueExpr {
	return &ValueExpr{Kind: KindInteger, Value: v, Raw: fmt.Sprint(v)}
}

// NewFloat returns a Float literal.
func NewFloat(v float64) *ValueExpr {
	return &ValueExpr{Kind: KindFloat, Value: v, Raw: fmt.Sprint(v)}
}

// NewString returns a String literal.
func NewString(v string) *ValueExpr {
	return &ValueExpr{Kind: KindString, Value: v, Raw: v}
}

// NewDateTime returns a DateTime literal.
func NewDateTime(v time.Time) *ValueExpr {
	return &ValueExpr{Kind: KindDateTime, Value: v, Raw: v.Format(time.RFC3339Nano)}
}

func (n *ValueExpr) Accept(v Visitor) error    { return v.VisitValue(n) }
func (n *Identifier) Accept(v Visitor) error   { return v.VisitIdentifier(n) }
func (n *UnaryExpr) Accept(v Visitor) error    { return v.VisitUnary(n) }
func (n *BinaryExpr) Accept(v Visitor) error   { return v.VisitBinary(n) }
func (n *TernaryExpr) Accept(v Visitor) error  { return v.VisitTernary(n) }
func (n *FunctionCall) Accept(v Visitor) error { return v.VisitFunction(n) }

func (n *ValueExpr) Position() int    { return n.Pos }
func (n *Identifier) Position() int   { return n.Pos }
func (n *UnaryExpr) Position() int    { return n.Pos }
func (n *BinaryExpr) Position() int   { return n.Pos }
func (n *TernaryExpr) Position() int  { return n.Pos }
func (n *FunctionCall) Position() int { return n.Pos }

func (*ValueExpr) node()    {}
func (*Identifier) node()   {}
func (*UnaryExpr) node()    {}
func (*BinaryExpr) node()   {}
func (*TernaryExpr) node()  {}
func (*FunctionCall) node() {}

// Walk visits node and its descendants in pre-order. Returning false from fn
// skips the children of the current node.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	switch n := node.(type) {
	case *UnaryExpr:
		Walk(n.Operand, fn)
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *TernaryExpr:
		Walk(n.Condition, fn)
		Walk(n.Then, fn)
		Walk(n.Else, fn)
	case *FunctionCall:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	}
}
