// Package types defines the core type system for goncalc.
//
// This package contains type definitions for:
//   - Node and its variants: the immutable expression tree
//   - Visitor: exhaustive double dispatch over the node variants
//   - Expression: a parsed tree together with its source text
//   - EvaluateOptions: the option bit set shared by evaluator and compiler
//   - Error types: structured errors with codes
package types

// Expression represents a parsed formula.
//
// An Expression is immutable and safe for concurrent use by multiple
// goroutines. The expression cache holds it through a weak pointer, so it
// stays cached only while something else references it.
type Expression struct {
	root   Node
	source string
}

// NewExpression creates a new Expression from a tree.
func NewExpression(root Node, source string) *Expression {
	return &Expression{
		root:   root,
		source: source,
	}
}

// Root returns the root node of the tree.
func (e *Expression) Root() Node {
	return e.root
}

// Source returns the original source text of the expression.
func (e *Expression) Source() string {
	return e.source
}

// String returns the source text.
func (e *Expression) String() string {
	return e.source
}
