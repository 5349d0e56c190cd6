package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"

	"github.com/sandrolain/goncalc/pkg/types"
)

// Parser implements a recursive descent parser for formulas.
// Binary operators are handled by precedence climbing over the table below.
type Parser struct {
	input   string
	tokens  []Token
	pos     int
	current Token
	depth   int
	errors  []error
	opts    ParseOptions
}

// NewParser creates a new parser for the given input string.
func NewParser(input string, opts ...ParseOption) *Parser {
	options := ParseOptions{
		MaxDepth: 100,
	}
	for _, opt := range opts {
		opt(&options)
	}

	p := &Parser{
		input: input,
		opts:  options,
	}

	tokens, lexErrs := NewLexer(input).Tokenize()
	p.tokens = tokens
	p.errors = append(p.errors, lexErrs...)
	p.current = p.tokens[0]

	return p
}

// Parse parses the entire input and returns the expression.
func (p *Parser) Parse() (*types.Expression, error) {
	if len(p.errors) > 0 {
		return nil, types.NewParseError(p.input, p.errors...)
	}

	if p.current.Type == TokenEOF {
		p.error(types.ErrEmptyExpression, "Empty expression")
		return nil, types.NewParseError(p.input, p.errors...)
	}

	node, err := p.parseExpression(0)
	if err == nil && p.current.Type != TokenEOF {
		err = p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", p.current.Value))
	}
	if err != nil {
		return nil, types.NewParseError(p.input, p.errors...)
	}

	return types.NewExpression(node, p.input), nil
}

// binaryOperator describes an infix operator in the precedence table.
type binaryOperator struct {
	prec int
	op   types.BinaryOp
}

// Binding powers; higher values bind more tightly.
const (
	precTernary = 10
	precUnary   = 120
)

var binaryOperators = map[TokenType]binaryOperator{
	TokenOr:           {20, types.OpOr},
	TokenAnd:          {30, types.OpAnd},
	TokenBitOr:        {40, types.OpBitwiseOr},
	TokenBitXor:       {50, types.OpBitwiseXor},
	TokenBitAnd:       {60, types.OpBitwiseAnd},
	TokenEqual:        {70, types.OpEqual},
	TokenNotEqual:     {70, types.OpNotEqual},
	TokenLess:         {80, types.OpLesser},
	TokenLessEqual:    {80, types.OpLesserOrEqual},
	TokenGreater:      {80, types.OpGreater},
	TokenGreaterEqual: {80, types.OpGreaterOrEqual},
	TokenShiftLeft:    {90, types.OpLeftShift},
	TokenShiftRight:   {90, types.OpRightShift},
	TokenPlus:         {100, types.OpPlus},
	TokenMinus:        {100, types.OpMinus},
	TokenMult:         {110, types.OpTimes},
	TokenDiv:          {110, types.OpDiv},
	TokenMod:          {110, types.OpModulo},
}

// getPrecedence returns the binding power of a token in infix position.
func (p *Parser) getPrecedence(tt TokenType) int {
	if tt == TokenCondition {
		return precTernary
	}
	if bo, ok := binaryOperators[tt]; ok {
		return bo.prec
	}
	return 0
}

// advance moves to the next token.
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.current = p.tokens[p.pos]
}

// expect checks if the current token matches the expected type and advances.
func (p *Parser) expect(tt TokenType) error {
	if p.current.Type != tt {
		if p.current.Type == TokenEOF {
			return p.error(types.ErrUnexpectedEnd, fmt.Sprintf("Expected %s but reached end of expression", tt))
		}
		return p.error(types.ErrExpectedToken, fmt.Sprintf("Expected %s but got %s", tt, p.current.Type))
	}
	p.advance()
	return nil
}

// error records a parser error at the current token.
func (p *Parser) error(code types.ErrorCode, message string) error {
	err := &types.Error{
		Code:     code,
		Message:  message,
		Position: p.current.Position,
		Token:    p.current.Value,
	}
	p.errors = append(p.errors, err)
	return err
}

// parseExpression parses an expression whose operators all bind tighter than rbp.
func (p *Parser) parseExpression(rbp int) (types.Node, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.opts.MaxDepth > 0 && p.depth > p.opts.MaxDepth {
		return nil, p.error(types.ErrMaxDepthParse, fmt.Sprintf("Expression nested deeper than %d levels", p.opts.MaxDepth))
	}

	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for rbp < p.getPrecedence(p.current.Type) {
		left, err = p.parseInfix(left)
		if err != nil {
			return nil, err
		}
	}

	return left, nil
}

// parseInfix parses the operator at the current token with left as its left operand.
func (p *Parser) parseInfix(left types.Node) (types.Node, error) {
	token := p.current

	if token.Type == TokenCondition {
		return p.parseTernary(left)
	}

	bo := binaryOperators[token.Type]
	p.advance()

	// All binary operators are left-associative.
	right, err := p.parseExpression(bo.prec)
	if err != nil {
		return nil, err
	}

	return &types.BinaryExpr{Op: bo.op, Left: left, Right: right, Pos: token.Position}, nil
}

// parseTernary parses "? then : else"; branches nest to the right.
func (p *Parser) parseTernary(cond types.Node) (types.Node, error) {
	pos := p.current.Position
	p.advance()

	then, err := p.parseExpression(precTernary - 1)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenColon); err != nil {
		return nil, err
	}
	els, err := p.parseExpression(precTernary - 1)
	if err != nil {
		return nil, err
	}

	return &types.TernaryExpr{Condition: cond, Then: then, Else: els, Pos: pos}, nil
}

// parsePrefix parses literals, identifiers, calls, groups and unary operators.
func (p *Parser) parsePrefix() (types.Node, error) {
	token := p.current

	switch token.Type {
	case TokenString:
		return p.parseString()
	case TokenInteger:
		return p.parseInteger()
	case TokenFloat:
		return p.parseFloat()
	case TokenDate:
		return p.parseDate()
	case TokenBoolean:
		p.advance()
		v := strings.EqualFold(token.Value, "true")
		return &types.ValueExpr{Kind: types.KindBoolean, Value: v, Raw: strconv.FormatBool(v), Pos: token.Position}, nil
	case TokenIdentifier:
		p.advance()
		return &types.Identifier{Name: token.Value, Pos: token.Position}, nil
	case TokenName:
		return p.parseName()
	case TokenNot:
		return p.parseUnary(types.OpNot)
	case TokenMinus:
		return p.parseUnary(types.OpNegate)
	case TokenBitNot:
		return p.parseUnary(types.OpBitwiseNot)
	case TokenParenOpen:
		return p.parseGroup()
	case TokenEOF:
		return nil, p.error(types.ErrUnexpectedEnd, "Unexpected end of expression")
	default:
		return nil, p.error(types.ErrSyntaxError, fmt.Sprintf("Unexpected token: %s", token.Value))
	}
}

func (p *Parser) parseUnary(op types.UnaryOp) (types.Node, error) {
	pos := p.current.Position
	p.advance()

	operand, err := p.parseExpression(precUnary)
	if err != nil {
		return nil, err
	}
	// -9223372036854775808 is the one integer literal whose magnitude does
	// not fit in int64.
	if v, ok := operand.(*types.ValueExpr); ok && op == types.OpNegate && v.Kind == types.KindFloat && v.Raw == minInt64Magnitude {
		return &types.ValueExpr{Kind: types.KindInteger, Value: int64(math.MinInt64), Raw: "-" + v.Raw, Pos: pos}, nil
	}
	return &types.UnaryExpr{Op: op, Operand: operand, Pos: pos}, nil
}

const minInt64Magnitude = "9223372036854775808"

func (p *Parser) parseGroup() (types.Node, error) {
	p.advance()

	inner, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenParenClose); err != nil {
		return nil, err
	}
	return inner, nil
}

// parseName parses a bare identifier or a function call.
func (p *Parser) parseName() (types.Node, error) {
	token := p.current
	p.advance()

	if p.current.Type != TokenParenOpen {
		return &types.Identifier{Name: token.Value, Pos: token.Position}, nil
	}
	p.advance()

	call := &types.FunctionCall{Name: token.Value, Args: []types.Node{}, Pos: token.Position}
	if p.current.Type == TokenParenClose {
		p.advance()
		return call, nil
	}

	for {
		arg, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		if p.current.Type == TokenComma {
			p.advance()
			continue
		}
		if err := p.expect(TokenParenClose); err != nil {
			return nil, err
		}
		return call, nil
	}
}

func (p *Parser) parseInteger() (types.Node, error) {
	token := p.current
	p.advance()

	v, err := strconv.ParseInt(token.Value, 10, 64)
	if err == nil {
		return &types.ValueExpr{Kind: types.KindInteger, Value: v, Raw: token.Value, Pos: token.Position}, nil
	}
	if !errors.Is(err, strconv.ErrRange) {
		return nil, p.errorAt(token, types.ErrInvalidNumber, fmt.Sprintf("Invalid integer %q", token.Value))
	}

	// Too large for int64: keep the magnitude as a float.
	f, ferr := strconv.ParseFloat(token.Value, 64)
	if ferr != nil {
		return nil, p.errorAt(token, types.ErrInvalidNumber, fmt.Sprintf("Invalid integer %q", token.Value))
	}
	return &types.ValueExpr{Kind: types.KindFloat, Value: f, Raw: token.Value, Pos: token.Position}, nil
}

func (p *Parser) parseFloat() (types.Node, error) {
	token := p.current
	p.advance()

	f, err := strconv.ParseFloat(token.Value, 64)
	if err != nil {
		return nil, p.errorAt(token, types.ErrInvalidNumber, fmt.Sprintf("Invalid number %q", token.Value))
	}
	return &types.ValueExpr{Kind: types.KindFloat, Value: f, Raw: token.Value, Pos: token.Position}, nil
}

func (p *Parser) parseDate() (types.Node, error) {
	token := p.current
	p.advance()

	t, err := cast.ToTimeE(strings.TrimSpace(token.Value))
	if err != nil {
		return nil, p.errorAt(token, types.ErrInvalidDate, fmt.Sprintf("Invalid date %q", token.Value))
	}
	return &types.ValueExpr{Kind: types.KindDateTime, Value: t, Raw: token.Value, Pos: token.Position}, nil
}

func (p *Parser) parseString() (types.Node, error) {
	token := p.current
	p.advance()

	s, err := unescape(token.Value)
	if err != nil {
		return nil, p.errorAt(token, types.ErrUnsupportedEscape, err.Error())
	}
	return &types.ValueExpr{Kind: types.KindString, Value: s, Raw: token.Value, Pos: token.Position}, nil
}

func (p *Parser) errorAt(token Token, code types.ErrorCode, message string) error {
	err := &types.Error{
		Code:     code,
		Message:  message,
		Position: token.Position,
		Token:    token.Value,
	}
	p.errors = append(p.errors, err)
	return err
}

// unescape resolves \' \\ \n \r \t and \uXXXX sequences.
func unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, w := utf8.DecodeRuneInString(s[i:])
		i += w
		if r != '\\' {
			sb.WriteRune(r)
			continue
		}
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape at end of string")
		}
		esc := s[i]
		i++
		switch esc {
		case '\'', '\\':
			sb.WriteByte(esc)
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'u':
			if i+4 > len(s) {
				return "", fmt.Errorf("incomplete unicode escape")
			}
			code, err := strconv.ParseUint(s[i:i+4], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid unicode escape \\u%s", s[i:i+4])
			}
			sb.WriteRune(rune(code))
			i += 4
		default:
			return "", fmt.Errorf("unsupported escape sequence \\%c", esc)
		}
	}
	return sb.String(), nil
}
