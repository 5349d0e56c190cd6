package parser

// Package parser implements the goncalc formula parser.
//
// The parser uses a hand-written recursive descent approach with a
// precedence table for binary operators. Lexical errors are collected while
// scanning and returned together as a single *types.ParseError.
//
// # Architecture
//
// The parser consists of two main components:
//   - Lexer: Tokenizes the input formula into a stream of tokens
//   - Parser: Builds the immutable expression tree from tokens
//
// # Example
//
//	expr, err := parser.Parse("[price] * (1 + [vat])")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	root := expr.Root()

import (
	"github.com/sandrolain/goncalc/pkg/types"
)

// Parse parses a formula and returns the parsed Expression.
//
// If parsing fails, the error is a *types.ParseError listing every problem
// found, each with its position in the input.
//
// Example:
//
//	expr, err := parser.Parse("Abs(-[x])")
//	if err != nil {
//	    var perr *types.ParseError
//	    errors.As(err, &perr)
//	    return
//	}
func Parse(text string, opts ...ParseOption) (*types.Expression, error) {
	p := NewParser(text, opts...)
	return p.Parse()
}

// ParseOption configures parsing behavior.
type ParseOption func(*ParseOptions)

// ParseOptions holds parser configuration.
type ParseOptions struct {
	// MaxDepth limits nesting depth to prevent stack overflow.
	MaxDepth int
}

// WithMaxDepth sets the maximum nesting depth.
func WithMaxDepth(depth int) ParseOption {
	return func(opts *ParseOptions) {
		opts.MaxDepth = depth
	}
}
