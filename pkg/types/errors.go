package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrorCode represents a goncalc error code.
type ErrorCode string

// Error codes.
const (
	// P0xxx: lexical and syntax errors
	ErrUnexpectedChar      ErrorCode = "P0101"
	ErrStringNotClosed     ErrorCode = "P0102"
	ErrDateNotClosed       ErrorCode = "P0103"
	ErrIdentifierNotClosed ErrorCode = "P0104"
	ErrInvalidNumber       ErrorCode = "P0105"
	ErrInvalidDate         ErrorCode = "P0106"
	ErrUnsupportedEscape   ErrorCode = "P0107"
	ErrSyntaxError         ErrorCode = "P0201"
	ErrExpectedToken       ErrorCode = "P0202"
	ErrUnexpectedEnd       ErrorCode = "P0203"
	ErrEmptyExpression     ErrorCode = "P0204"
	ErrMaxDepthParse       ErrorCode = "P0205"

	// E0xxx: evaluation errors
	ErrUndefinedParameter ErrorCode = "E0101"
	ErrUndefinedFunction  ErrorCode = "E0102"
	ErrTypeMismatch       ErrorCode = "E0201"
	ErrInvalidConversion  ErrorCode = "E0202"
	ErrArgumentCount      ErrorCode = "E0203"
	ErrArithmeticOverflow ErrorCode = "E0301"
	ErrDivisionByZero     ErrorCode = "E0302"
	ErrNullValue          ErrorCode = "E0303"
	ErrSequenceLength     ErrorCode = "E0401"
	ErrRecursionDepth     ErrorCode = "E0402"

	// M0xxx: compilation errors
	ErrMethodNotFound ErrorCode = "M0001"
)

// Sentinels matched by errors.Is against *EvaluationError values.
var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrDivideByZero   = errors.New("division by zero")
	ErrNullOperand    = errors.New("null operand")
	ErrLengthMismatch = errors.New("sequence parameters have different lengths")
	ErrUndefined      = errors.New("undefined name")
)

// Error represents a structured error located in the source text.
type Error struct {
	Code     ErrorCode
	Message  string
	Position int
	Token    string
	Err      error
}

// NewError creates a new located error.
func NewError(code ErrorCode, message string, position int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Position: position,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s at position %d: %s", e.Code, e.Position, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithToken adds token information to the error.
func (e *Error) WithToken(token string) *Error {
	e.Token = token
	return e
}

// WithCause wraps another error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// ParseError aggregates every problem found while parsing one source text.
type ParseError struct {
	Source string
	merr   *multierror.Error
}

// NewParseError builds a ParseError from the collected errors.
func NewParseError(source string, errs ...error) *ParseError {
	merr := multierror.Append(nil, errs...)
	merr.ErrorFormat = func(es []error) string {
		lines := make([]string, len(es))
		for i, err := range es {
			lines[i] = err.Error()
		}
		return strings.Join(lines, "\n")
	}
	return &ParseError{Source: source, merr: merr}
}

// Error joins every message on its own line.
func (e *ParseError) Error() string {
	return e.merr.Error()
}

// Errors returns the individual errors in the order they were found.
func (e *ParseError) Errors() []error {
	return e.merr.WrappedErrors()
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *ParseError) Unwrap() []error {
	return e.merr.WrappedErrors()
}

// EvaluationError reports a failure while interpreting or compiling a tree.
type EvaluationError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewEvaluationError creates an EvaluationError with a formatted message.
func NewEvaluationError(code ErrorCode, format string, args ...any) *EvaluationError {
	return &EvaluationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// WithCause wraps another error.
func (e *EvaluationError) WithCause(err error) *EvaluationError {
	e.Err = err
	return e
}

// Is matches the package sentinels by error code.
func (e *EvaluationError) Is(target error) bool {
	switch target {
	case ErrOverflow:
		return e.Code == ErrArithmeticOverflow
	case ErrDivideByZero:
		return e.Code == ErrDivisionByZero
	case ErrNullOperand:
		return e.Code == ErrNullValue
	case ErrLengthMismatch:
		return e.Code == ErrSequenceLength
	case ErrUndefined:
		return e.Code == ErrUndefinedParameter || e.Code == ErrUndefinedFunction
	}
	return false
}

// MissingMethodError is returned by the compiler when no candidate can
// accept a call.
type MissingMethodError struct {
	Name       string
	ArgTypes   []string
	Candidates int
}

// Error implements the error interface.
func (e *MissingMethodError) Error() string {
	call := fmt.Sprintf("%s(%s)", e.Name, strings.Join(e.ArgTypes, ", "))
	if e.Candidates == 0 {
		return fmt.Sprintf("%s: method not found: %s", ErrMethodNotFound, call)
	}
	return fmt.Sprintf("%s: no overload of %s accepts %s (%d candidates)", ErrMethodNotFound, e.Name, call, e.Candidates)
}
