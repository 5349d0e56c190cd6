package values

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/sandrolain/goncalc/pkg/types"
)

// Rules binds the evaluation options to the operator implementations.
// A Rules value is immutable and safe for concurrent use.
type Rules struct {
	Options types.EvaluateOptions
	Strings *StringComparer
}

// NewRules returns the rules for opts, comparing strings in the culture of tag.
func NewRules(opts types.EvaluateOptions, tag language.Tag) Rules {
	return Rules{
		Options: opts,
		Strings: NewStringComparer(opts, tag),
	}
}

func (r Rules) allowNull() bool {
	return r.Options.Has(types.AllowNullParameter)
}

func (r Rules) booleanCalc() bool {
	return r.Options.Has(types.BooleanCalculation)
}

func (r Rules) checked() bool {
	return r.Options.Has(types.OverflowProtection)
}

// ToBool coerces v to a boolean. Booleans and the strings "true"/"false" are
// accepted; numbers only under BooleanCalculation. Null is false under
// AllowNullParameter.
func (r Rules) ToBool(v any) (bool, error) {
	switch x := Normalize(v).(type) {
	case bool:
		return x, nil
	case string:
		switch {
		case strings.EqualFold(x, "true"):
			return true, nil
		case strings.EqualFold(x, "false"):
			return false, nil
		}
	case nil:
		if r.allowNull() {
			return false, nil
		}
		return false, nullError()
	case int64:
		if r.booleanCalc() {
			return x != 0, nil
		}
	case float64:
		if r.booleanCalc() {
			return x != 0, nil
		}
	case decimal.Decimal:
		if r.booleanCalc() {
			return !x.IsZero(), nil
		}
	}
	return false, types.NewEvaluationError(types.ErrTypeMismatch, "cannot use %s (%v) as a boolean", TypeName(v), v)
}

func nullError() *types.EvaluationError {
	return types.NewEvaluationError(types.ErrNullValue, "null operand (set AllowNullParameter to allow it)")
}
