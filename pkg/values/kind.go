// Package values holds the value semantics shared by the evaluator and the
// compiler: kinds, numeric promotion, arithmetic, bitwise operators,
// comparison, boolean coercion and conversions.
//
// Both execution strategies call into this package for every operator, so a
// formula produces the same result whether it is interpreted or compiled.
//
// Values are normalized before use: every signed or unsigned integer becomes
// int64, float32 becomes float64, pointers are dereferenced and nil pointers
// become nil.
package values

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/sandrolain/goncalc/pkg/types"
)

// Kind classifies a normalized value.
type Kind uint8

// Value kinds. Int, Float and Decimal are ordered by promotion rank.
const (
	Null Kind = iota
	Bool
	Int
	Float
	Decimal
	String
	Time
	Other
)

var kindNames = [...]string{
	Null:    "null",
	Bool:    "bool",
	Int:     "int",
	Float:   "float",
	Decimal: "decimal",
	String:  "string",
	Time:    "time",
	Other:   "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsNumeric reports whether k is Int, Float or Decimal.
func (k Kind) IsNumeric() bool {
	return k == Int || k == Float || k == Decimal
}

var (
	decimalType = reflect.TypeOf(decimal.Decimal{})
	timeType    = reflect.TypeOf(time.Time{})
)

// KindOf returns the kind of v after normalization.
func KindOf(v any) Kind {
	switch Normalize(v).(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case int64:
		return Int
	case float64:
		return Float
	case decimal.Decimal:
		return Decimal
	case string:
		return String
	case time.Time:
		return Time
	default:
		return Other
	}
}

// KindOfType returns the kind that values of t normalize to. Pointer types
// report the kind of their element.
func KindOfType(t reflect.Type) Kind {
	if t == nil {
		return Null
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t {
	case decimalType:
		return Decimal
	case timeType:
		return Time
	}
	switch t.Kind() {
	case reflect.Bool:
		return Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uintptr:
		return Int
	case reflect.Uint64:
		// Values above MaxInt64 normalize to Decimal; the common case is Int.
		return Int
	case reflect.Float32, reflect.Float64:
		return Float
	case reflect.String:
		return String
	default:
		return Other
	}
}

// Normalize maps v onto the canonical representation of its kind.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, int64, float64, string, decimal.Decimal, time.Time:
		return v
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int8:
		return int64(x)
	case uint:
		return uintValue(uint64(x))
	case uint64:
		return uintValue(x)
	case uint32:
		return int64(x)
	case uint16:
		return int64(x)
	case uint8:
		return int64(x)
	case float32:
		return float64(x)
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return *x
	}
	return normalizeReflect(reflect.ValueOf(v))
}

func uintValue(u uint64) any {
	if u > math.MaxInt64 {
		return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
	}
	return int64(u)
}

// normalizeReflect handles named types and pointers.
func normalizeReflect(rv reflect.Value) any {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Type() {
	case decimalType, timeType:
		return rv.Interface()
	}
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return uintValue(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	}
	return rv.Interface()
}

// ToInt64 converts a numeric value (or a numeric string) to int64, truncating
// fractional parts.
func ToInt64(v any) (int64, error) {
	switch x := Normalize(v).(type) {
	case int64:
		return x, nil
	case float64:
		if math.IsNaN(x) || x >= math.MaxInt64 || x < math.MinInt64 {
			return 0, conversionError(v, "int64")
		}
		return int64(x), nil
	case decimal.Decimal:
		if !x.Truncate(0).BigInt().IsInt64() {
			return 0, conversionError(v, "int64")
		}
		return x.IntPart(), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		d, err := ParseNumber(x)
		if err != nil {
			return 0, err
		}
		return ToInt64(d)
	}
	return 0, conversionError(v, "int64")
}

// ToFloat64 converts a numeric value (or a numeric string) to float64.
func ToFloat64(v any) (float64, error) {
	switch x := Normalize(v).(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case decimal.Decimal:
		return x.InexactFloat64(), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := cast.ToFloat64E(strings.TrimSpace(x))
		if err != nil {
			return 0, conversionError(v, "float64").WithCause(err)
		}
		return f, nil
	}
	return 0, conversionError(v, "float64")
}

// ToDecimal converts a numeric value (or a numeric string) to a decimal.
// Floats keep 15 significant digits, so 2.2*3.14 converts to 6.908.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch x := Normalize(v).(type) {
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return floatToDecimal(x)
	case decimal.Decimal:
		return x, nil
	case bool:
		if x {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	case string:
		return ParseNumber(x)
	}
	return decimal.Zero, conversionError(v, "decimal")
}

func floatToDecimal(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, conversionError(f, "decimal")
	}
	return decimal.NewFromString(strconv.FormatFloat(f, 'g', 15, 64))
}

// ParseNumber parses s as an invariant-culture decimal number.
func ParseNumber(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, types.NewEvaluationError(types.ErrInvalidConversion, "cannot convert %q to a number", s)
	}
	return d, nil
}

// ToTime converts a time or a date string to time.Time.
func ToTime(v any) (time.Time, error) {
	switch x := Normalize(v).(type) {
	case time.Time:
		return x, nil
	case string:
		t, err := cast.ToTimeE(strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, conversionError(v, "time").WithCause(err)
		}
		return t, nil
	}
	return time.Time{}, conversionError(v, "time")
}

// ToKind converts a numeric value to the numeric kind k.
func ToKind(v any, k Kind) (any, error) {
	switch k {
	case Int:
		return ToInt64(v)
	case Float:
		return ToFloat64(v)
	case Decimal:
		return ToDecimal(v)
	}
	return Normalize(v), nil
}

// Format renders v with invariant formatting, the way string concatenation
// sees it.
func Format(v any) string {
	switch x := Normalize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		s, err := cast.ToStringE(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return s
	}
}

// TypeName describes v in error messages.
func TypeName(v any) string {
	if v == nil {
		return "null"
	}
	return reflect.TypeOf(v).String()
}

func conversionError(v any, target string) *types.EvaluationError {
	return types.NewEvaluationError(types.ErrInvalidConversion, "cannot convert %s (%v) to %s", TypeName(v), v, target)
}
