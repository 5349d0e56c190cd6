package parser

import "strings"

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenString     // 'hello'
	TokenInteger    // 123
	TokenFloat      // 3.14, 1e-10, .5
	TokenDate       // #2024-01-31#
	TokenBoolean    // true, false
	TokenName       // Abs, fieldName
	TokenIdentifier // [parameter name]

	// Grouping symbols
	TokenParenOpen  // (
	TokenParenClose // )
	TokenComma      // ,
	TokenCondition  // ?
	TokenColon      // :

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /
	TokenMod   // %

	// Bitwise operators
	TokenBitAnd     // &
	TokenBitOr      // |
	TokenBitXor     // ^
	TokenBitNot     // ~
	TokenShiftLeft  // <<
	TokenShiftRight // >>

	// Comparison operators
	TokenEqual        // = or ==
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Logical operators
	TokenAnd // && or and
	TokenOr  // || or or
	TokenNot // ! or not
)

var tokenNames = [...]string{
	TokenEOF:          "(eof)",
	TokenError:        "(error)",
	TokenString:       "(string)",
	TokenInteger:      "(integer)",
	TokenFloat:        "(float)",
	TokenDate:         "(date)",
	TokenBoolean:      "(boolean)",
	TokenName:         "(name)",
	TokenIdentifier:   "(identifier)",
	TokenParenOpen:    "(",
	TokenParenClose:   ")",
	TokenComma:        ",",
	TokenCondition:    "?",
	TokenColon:        ":",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenMult:         "*",
	TokenDiv:          "/",
	TokenMod:          "%",
	TokenBitAnd:       "&",
	TokenBitOr:        "|",
	TokenBitXor:       "^",
	TokenBitNot:       "~",
	TokenShiftLeft:    "<<",
	TokenShiftRight:   ">>",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenAnd:          "and",
	TokenOr:           "or",
	TokenNot:          "not",
}

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return "(unknown)"
}

// Token represents a lexical token.
type Token struct {
	Type     TokenType // Type of the token
	Value    string    // Literal value of the token, delimiters removed
	Position int       // Starting position in the input string
}

// symbols1 maps single-character symbols to token types.
var symbols1 = [...]TokenType{
	'(': TokenParenOpen,
	')': TokenParenClose,
	',': TokenComma,
	'?': TokenCondition,
	':': TokenColon,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenDiv,
	'%': TokenMod,
	'&': TokenBitAnd,
	'|': TokenBitOr,
	'^': TokenBitXor,
	'~': TokenBitNot,
	'=': TokenEqual,
	'<': TokenLess,
	'>': TokenGreater,
	'!': TokenNot,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types.
// The key is the first character of the sequence.
var symbols2 = [...][]runeTokenType{
	'=': {{'=', TokenEqual}},
	'!': {{'=', TokenNotEqual}},
	'<': {{'=', TokenLessEqual}, {'>', TokenNotEqual}, {'<', TokenShiftLeft}},
	'>': {{'=', TokenGreaterEqual}, {'>', TokenShiftRight}},
	'&': {{'&', TokenAnd}},
	'|': {{'|', TokenOr}},
}

const (
	symbol1Count = rune(len(symbols1))
	symbol2Count = rune(len(symbols2))
)

// lookupSymbol1 returns the token type for a single-character symbol.
// Returns 0 if the rune is not a valid symbol.
func lookupSymbol1(r rune) TokenType {
	if r < 0 || r >= symbol1Count {
		return 0
	}
	return symbols1[r]
}

// lookupSymbol2 returns possible two-character symbol completions.
// Returns nil if the rune cannot start a two-character symbol.
func lookupSymbol2(r rune) []runeTokenType {
	if r < 0 || r >= symbol2Count {
		return nil
	}
	return symbols2[r]
}

// lookupKeyword returns the token type for a keyword.
// Keywords are case-insensitive. Returns 0 if s is not a keyword.
func lookupKeyword(s string) TokenType {
	switch strings.ToLower(s) {
	case "and":
		return TokenAnd
	case "or":
		return TokenOr
	case "not":
		return TokenNot
	case "true", "false":
		return TokenBoolean
	default:
		return 0
	}
}
