package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/goncalc/pkg/types"
)

const eof = -1

// Lexer converts a formula into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
//
// Unlike a fail-fast scanner, the lexer records every lexical error and keeps
// going, so a single parse reports all of them at once.
type Lexer struct {
	input   string  // Input string being scanned
	length  int     // Length of input string
	start   int     // Start position of current token
	current int     // Current position in input
	width   int     // Width of last rune read
	errs    []error // Every error encountered
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		length: len(input),
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
func (l *Lexer) Next() Token {
	l.skipWhitespace()

	ch := l.nextRune()
	if ch == eof {
		return l.eof()
	}

	// Numbers may start with a dot: .5
	if ch == '.' {
		if r := l.peekRune(); isDigit(r) {
			l.backup()
			return l.scanNumber()
		}
		return l.error(types.ErrUnexpectedChar, "Unexpected character '.'")
	}

	// Check for two-character symbols first (e.g., !=, <=, <<)
	if rts := lookupSymbol2(ch); rts != nil {
		for _, rt := range rts {
			if l.acceptRune(rt.r) {
				return l.newToken(rt.tt)
			}
		}
	}

	// Check for single-character symbols
	if tt := lookupSymbol1(ch); tt > 0 {
		return l.newToken(tt)
	}

	switch {
	case ch == '\'':
		l.ignore()
		return l.scanDelimited('\'', TokenString, types.ErrStringNotClosed, "Unterminated string literal", true)
	case ch == '#':
		l.ignore()
		return l.scanDelimited('#', TokenDate, types.ErrDateNotClosed, "Unterminated date literal", false)
	case ch == '[':
		l.ignore()
		return l.scanDelimited(']', TokenIdentifier, types.ErrIdentifierNotClosed, "Unterminated identifier", false)
	case isDigit(ch):
		l.backup()
		return l.scanNumber()
	case isNameStart(ch):
		l.backup()
		return l.scanName()
	}

	return l.error(types.ErrUnexpectedChar, fmt.Sprintf("Unexpected character %q", ch))
}

// Errors returns every error encountered so far.
func (l *Lexer) Errors() []error {
	return l.errs
}

// Tokenize scans the whole input. The returned slice always ends with TokenEOF.
func (l *Lexer) Tokenize() ([]Token, []error) {
	var tokens []Token
	for {
		t := l.Next()
		if t.Type == TokenError {
			continue
		}
		tokens = append(tokens, t)
		if t.Type == TokenEOF {
			return tokens, l.errs
		}
	}
}

// scanDelimited reads up to the closing delimiter. The opening delimiter has
// already been consumed. When escapes is true a backslash protects the next rune.
func (l *Lexer) scanDelimited(closing rune, tt TokenType, code types.ErrorCode, message string, escapes bool) Token {
	for {
		switch r := l.nextRune(); {
		case r == closing:
			l.backup()
			t := l.newToken(tt)
			l.acceptRune(closing)
			l.ignore()
			return t
		case r == '\\' && escapes:
			if l.nextRune() == eof {
				return l.error(code, message)
			}
		case r == eof:
			return l.error(code, message)
		}
	}
}

// scanNumber reads an integer or floating literal.
// Format: [0-9]*(\.[0-9]+)?([eE][+-]?[0-9]+)?
func (l *Lexer) scanNumber() Token {
	tt := TokenInteger
	l.acceptAll(isDigit)

	// Decimal part
	if l.peekRune() == '.' {
		l.nextRune()
		if !l.acceptAll(isDigit) {
			return l.error(types.ErrInvalidNumber, "Expected digits after decimal point")
		}
		tt = TokenFloat
	}

	// Exponent part
	if l.acceptRunes2('e', 'E') {
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			return l.error(types.ErrInvalidNumber, "Expected digits in exponent")
		}
		tt = TokenFloat
	}

	if r := l.peekRune(); isNameStart(r) {
		l.acceptAll(isNamePart)
		return l.error(types.ErrInvalidNumber, "Invalid number literal")
	}

	return l.newToken(tt)
}

// scanName reads a name or keyword.
func (l *Lexer) scanName() Token {
	l.acceptAll(isNamePart)
	t := l.newToken(TokenName)
	if tt := lookupKeyword(t.Value); tt > 0 {
		t.Type = tt
	}
	return t
}

// Helper methods

func (l *Lexer) eof() Token {
	return Token{
		Type:     TokenEOF,
		Position: l.current,
	}
}

func (l *Lexer) error(code types.ErrorCode, message string) Token {
	t := l.newToken(TokenError)
	l.errs = append(l.errs, &types.Error{
		Code:     code,
		Message:  message,
		Position: t.Position,
		Token:    t.Value,
	})
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	t := Token{
		Type:     tt,
		Value:    l.input[l.start:l.current],
		Position: l.start,
	}
	l.width = 0
	l.start = l.current
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) peekRune() rune {
	if l.current >= l.length {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

func (l *Lexer) skipWhitespace() {
	l.acceptAll(isWhitespace)
	l.ignore()
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || (r != eof && unicode.IsLetter(r))
}

func isNamePart(r rune) bool {
	return isNameStart(r) || isDigit(r)
}
