package compiler_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goncalc/pkg/compiler"
	"github.com/sandrolain/goncalc/pkg/parser"
	"github.com/sandrolain/goncalc/pkg/types"
)

func parse(t testing.TB, text string) types.Node {
	t.Helper()
	expr, err := parser.Parse(text)
	require.NoError(t, err, text)
	return expr.Root()
}

func compileStatic[R any](t *testing.T, c *compiler.Compiler, text string) R {
	t.Helper()
	fn, err := compiler.CompileStatic[R](context.Background(), c, parse(t, text))
	require.NoError(t, err, text)
	got, err := fn()
	require.NoError(t, err, text)
	return got
}

func TestCompileIntegers(t *testing.T) {
	tests := []struct {
		expr string
		want int
	}{
		{"1+2", 3},
		{"1-2", -1},
		{"2*2", 4},
		{"10/2", 5},
		{"7%2", 1},
	}

	c := compiler.New()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, compileStatic[int](t, c, tt.expr))
		})
	}
}

func TestCompileBuiltins(t *testing.T) {
	c := compiler.New()

	assert.True(t, compileStatic[bool](t, c, "if(true, true, false)"))
	assert.True(t, compileStatic[bool](t, c, "in(3, 1, 2, 3, 4)"))

	tests := []struct {
		expr string
		want any
	}{
		{"Min(3,2)", int64(2)},
		{"Min(3.2,6.3)", 3.2},
		{"Max(2.6,9.6)", 9.6},
		{"Max(9,6)", int64(9)},
		{"Pow(5,2)", float64(25)},
		{"if(true, 1, 0.0)", float64(1)},
		{"if(true, 1.0, 0)", float64(1)},
		{"if(true, 1, 0)", int64(1)},
		{"if(true, 'a', 'b')", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, compileStatic[any](t, c, tt.expr))
		})
	}
}

func TestCompileLargeIntegerThroughIf(t *testing.T) {
	fn, err := compiler.Compile[any, int64](context.Background(), compiler.New(), parse(t, "if(true, 9999999999, 0)"))
	require.NoError(t, err)

	got, err := fn(struct{}{})
	require.NoError(t, err)
	assert.Equal(t, int64(9999999999), got)
}

func TestCompileDecimalParameters(t *testing.T) {
	c := compiler.New(compiler.WithParameters(map[string]any{
		"x": decimal.NewFromInt(5),
		"a": decimal.NewFromInt(6),
		"b": decimal.NewFromInt(7),
	}))

	assert.Equal(t, float32(-14), compileStatic[float32](t, c, "2 + 2 - a - b - x"))
}

func TestCompileNestedParameters(t *testing.T) {
	c := compiler.New(compiler.WithParameters(map[string]any{
		"area":  parse(t, "[width] * [height]"),
		"width": 3,
	}))

	fn, err := compiler.Compile[map[string]int, int](context.Background(), c, parse(t, "[area] + 1"))
	require.NoError(t, err)

	got, err := fn(map[string]int{"height": 4})
	require.NoError(t, err)
	assert.Equal(t, 13, got)

	_, err = fn(map[string]int{})
	assert.ErrorIs(t, err, types.ErrUndefined)
}

func TestCompileRecursiveParameter(t *testing.T) {
	c := compiler.New(
		compiler.WithMaxDepth(3),
		compiler.WithParameters(map[string]any{"loop": parse(t, "[loop] + 1")}),
	)

	_, err := compiler.CompileStatic[int](context.Background(), c, parse(t, "[loop]"))
	var ee *types.EvaluationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, types.ErrRecursionDepth, ee.Code)
}

func TestCompileParameterResolver(t *testing.T) {
	calls := 0
	c := compiler.New(compiler.WithParameterResolver(func(_ context.Context, name string) (any, bool, error) {
		calls++
		if name == "rate" {
			return 0.25, true, nil
		}
		return nil, false, nil
	}))

	fn, err := compiler.CompileStatic[float64](context.Background(), c, parse(t, "[rate] * 4"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		got, err := fn()
		require.NoError(t, err)
		assert.Equal(t, 1.0, got)
	}
	assert.Equal(t, 1, calls, "the hook runs once, at compile time")

	_, err = compiler.CompileStatic[float64](context.Background(), c, parse(t, "[unknown]"))
	assert.ErrorIs(t, err, types.ErrUndefined)
}

func TestCompileNull(t *testing.T) {
	c := compiler.New(compiler.WithOptions(types.AllowNullParameter))
	assert.True(t, compileStatic[bool](t, c, "null = null"))

	_, err := compiler.CompileStatic[bool](context.Background(), compiler.New(), parse(t, "null = null"))
	assert.ErrorIs(t, err, types.ErrUndefined)
}

func TestCompileOptions(t *testing.T) {
	_, err := compileErr[int64](compiler.New(compiler.WithOptions(types.OverflowProtection)), "9223372036854775807 + 1")
	assert.ErrorIs(t, err, types.ErrOverflow)

	got, err := compileErr[bool](compiler.New(compiler.WithOptions(types.MatchStringsWithIgnoreCase)), "'abc' = 'ABC'")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = compileErr[bool](compiler.New(), "'abc' = 'ABC'")
	require.NoError(t, err)
	assert.False(t, got)

	rounded, err := compileErr[decimal.Decimal](compiler.New(compiler.WithOptions(types.RoundAwayFromZero)), "Round(2.5)")
	require.NoError(t, err)
	assert.Equal(t, "3", rounded.String())

	_, err = compileErr[float64](compiler.New(), "Pow(1)")
	var ee *types.EvaluationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, types.ErrArgumentCount, ee.Code)
}

func compileErr[R any](c *compiler.Compiler, text string) (R, error) {
	var zero R
	expr, err := parser.Parse(text)
	if err != nil {
		return zero, err
	}
	fn, err := compiler.CompileStatic[R](context.Background(), c, expr.Root())
	if err != nil {
		return zero, err
	}
	return fn()
}
