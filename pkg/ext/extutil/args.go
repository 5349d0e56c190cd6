// Package extutil provides shared argument coercion for the ext sub-packages.
//
// Formula values arrive as int64, float64, decimal.Decimal, string, bool or
// time.Time; host parameters may be any Go scalar. The helpers accept all of
// them and report a uniform error otherwise.
package extutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Int converts a numeric argument to int64, truncating fractions.
func Int(fn string, v any) (int64, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n.IntPart(), nil
	case *decimal.Decimal:
		if n != nil {
			return n.IntPart(), nil
		}
	case string, bool, nil:
		// cast accepts these; a formula argument must already be a number.
	default:
		if i, err := cast.ToInt64E(v); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s: expected a number, got %T", fn, v)
}

// String requires a string argument.
func String(fn string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected a string, got %T", fn, v)
	}
	return s, nil
}

// Time converts a date argument. Strings are parsed with the same layouts as
// date literals.
func Time(fn string, v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := cast.ToTimeE(t)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: invalid date %q", fn, t)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("%s: expected a date, got %T", fn, v)
}

// Optional returns args[i] when present and not nil.
func Optional(args []any, i int) (any, bool) {
	if i < len(args) && args[i] != nil {
		return args[i], true
	}
	return nil, false
}
