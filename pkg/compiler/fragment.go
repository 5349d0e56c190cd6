package compiler

import (
	"reflect"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sandrolain/goncalc/pkg/values"
)

var (
	anyType     = reflect.TypeFor[any]()
	boolType    = reflect.TypeFor[bool]()
	int64Type   = reflect.TypeFor[int64]()
	float64Type = reflect.TypeFor[float64]()
	stringType  = reflect.TypeFor[string]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
	timeType    = reflect.TypeFor[time.Time]()
	errorType   = reflect.TypeFor[error]()
)

// fragment is a compiled node: the static type of its value and the closure
// producing it. env is the context value, invalid for static compilation.
type fragment struct {
	typ  reflect.Type // nil for the null constant
	eval func(env reflect.Value) (any, error)

	constant bool
	value    any
}

func constant(v any) *fragment {
	var typ reflect.Type
	if v != nil {
		typ = reflect.TypeOf(v)
	}
	return &fragment{
		typ:      typ,
		constant: true,
		value:    v,
		eval:     func(reflect.Value) (any, error) { return v, nil },
	}
}

// kind returns the value kind of f and whether it is known statically.
// Pointers, interfaces and wide unsigned integers are resolved at run time.
func (f *fragment) kind() (values.Kind, bool) {
	if f.typ == nil {
		return values.Null, false
	}
	switch f.typ.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return values.Other, false
	}
	k := values.KindOfType(f.typ)
	return k, k != values.Other
}

// nullable reports whether f is a pointer to a scalar, whose value may be nil
// at run time.
func (f *fragment) nullable() bool {
	return f.typ != nil && f.typ.Kind() == reflect.Pointer && values.KindOfType(f.typ) != values.Other
}

func typeForKind(k values.Kind) reflect.Type {
	switch k {
	case values.Bool:
		return boolType
	case values.Int:
		return int64Type
	case values.Float:
		return float64Type
	case values.Decimal:
		return decimalType
	case values.String:
		return stringType
	case values.Time:
		return timeType
	}
	return anyType
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "null"
	}
	return t.String()
}

func deref(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	}
	return false
}
