package evaluator_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goncalc/pkg/evaluator"
	"github.com/sandrolain/goncalc/pkg/functions"
	"github.com/sandrolain/goncalc/pkg/parser"
	"github.com/sandrolain/goncalc/pkg/types"
)

func parse(t testing.TB, text string) types.Node {
	t.Helper()
	expr, err := parser.Parse(text)
	require.NoError(t, err, text)
	return expr.Root()
}

func eval(t *testing.T, ev *evaluator.Evaluator, text string, params map[string]any) (any, error) {
	t.Helper()
	return ev.Eval(context.Background(), parse(t, text), evaluator.Bindings{Parameters: params})
}

func TestEvalLiterals(t *testing.T) {
	ev := evaluator.New()

	tests := []struct {
		expr string
		want any
	}{
		{"1 + 2", int64(3)},
		{"1 - 2", int64(-1)},
		{"2 * (3 + 4)", int64(14)},
		{"10 / 2", float64(5)},
		{"7 % 2", int64(1)},
		{"1.5 * 2", float64(3)},
		{"'a' + 'b'", "ab"},
		{"'total: ' + 3", "total: 3"},
		{"true and false", false},
		{"true || false", true},
		{"not true", false},
		{"!false", true},
		{"1 < 2", true},
		{"2 <= 2", true},
		{"3 <> 3", false},
		{"'abc' == 'abc'", true},
		{"3 > 2 ? 'y' : 'n'", "y"},
		{"-(5)", int64(-5)},
		{"~0", int64(-1)},
		{"6 & 3", int64(2)},
		{"6 | 3", int64(7)},
		{"6 ^ 3", int64(5)},
		{"1 << 4", int64(16)},
		{"256 >> 4", int64(16)},
		{"#2024-01-01# < #2024-06-01#", true},
		{"if(true, 1, 0)", int64(1)},
		{"if(false, 1, 2.5)", float64(2.5)},
		{"Min(3, 2)", int64(2)},
		{"Max(2.6, 9.6)", 9.6},
		{"Pow(5, 2)", float64(25)},
		{"Sign(-4)", int64(-1)},
		{"in(3, 1, 2, 3, 4)", true},
		{"in('x', 'a', 'b')", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := eval(t, ev, tt.expr, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalDecimalResults(t *testing.T) {
	ev := evaluator.New()

	got, err := eval(t, ev, "Abs(-2)", nil)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2).Equal(got.(decimal.Decimal)))

	got, err = eval(t, ev, "Round(2.5)", nil)
	require.NoError(t, err)
	assert.Equal(t, "2", got.(decimal.Decimal).String())

	got, err = evaluator.New(evaluator.WithOptions(types.RoundAwayFromZero)).
		Eval(context.Background(), parse(t, "Round(2.5)"), evaluator.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "3", got.(decimal.Decimal).String())

	got, err = evaluator.New(evaluator.WithOptions(types.UseDoubleForAbsFunction)).
		Eval(context.Background(), parse(t, "Abs(-2)"), evaluator.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, float64(2), got)
}

func TestEvalParameters(t *testing.T) {
	ev := evaluator.New()

	got, err := eval(t, ev, "[x] * 2", map[string]any{"x": 21})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	got, err = eval(t, ev, "[first name] + ' ' + last", map[string]any{"first name": "Ada", "last": "Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got)

	_, err = eval(t, ev, "[missing] + 1", nil)
	assert.ErrorIs(t, err, types.ErrUndefined)
}

func TestEvalShortCircuit(t *testing.T) {
	calls := 0
	counter := func(_ context.Context, name string, _ []any) (any, bool, error) {
		if name != "Touch" {
			return nil, false, nil
		}
		calls++
		return true, true, nil
	}
	ev := evaluator.New(evaluator.WithFunctionResolver(counter))

	got, err := eval(t, ev, "false and Touch()", nil)
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = eval(t, ev, "true || Touch()", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = eval(t, ev, "false && [undefined]", nil)
	require.NoError(t, err)
	assert.Equal(t, false, got)
	assert.Zero(t, calls)

	got, err = eval(t, ev, "true and Touch()", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
	assert.Equal(t, 1, calls)
}

func TestEvalTernaryVisitsOneBranch(t *testing.T) {
	boom := errors.New("boom")
	ev := evaluator.New(evaluator.WithFunctionResolver(func(_ context.Context, name string, _ []any) (any, bool, error) {
		return nil, true, boom
	}))

	got, err := eval(t, ev, "1 = 1 ? 'then' : Explode()", nil)
	require.NoError(t, err)
	assert.Equal(t, "then", got)

	_, err = eval(t, ev, "1 = 2 ? 'then' : Explode()", nil)
	assert.ErrorIs(t, err, boom)
}

func TestEvalIgnoreCase(t *testing.T) {
	var hookName string
	ev := evaluator.New(
		evaluator.WithOptions(types.IgnoreCase),
		evaluator.WithFunctionResolver(func(_ context.Context, name string, args []any) (any, bool, error) {
			hookName = name
			return len(args), true, nil
		}),
	)

	got, err := eval(t, ev, "[X] + max(1, 2)", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), got)

	got, err = eval(t, ev, "MyFunction(1, 2)", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, "myfunction", hookName)
}

func TestEvalUndefinedFunctionHint(t *testing.T) {
	_, err := eval(t, evaluator.New(), "abs(-1)", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUndefined)
	assert.Contains(t, err.Error(), "Try 'Abs' instead")
}

func TestEvalRegistry(t *testing.T) {
	reg := functions.NewRegistry(functions.CustomFunctionDef{
		Name: "Twice", MinArgs: 1, MaxArgs: 1,
		Fn: func(_ context.Context, args ...any) (any, error) {
			return args[0].(int64) * 2, nil
		},
	})
	ev := evaluator.New(evaluator.WithFunctions(reg))

	got, err := eval(t, ev, "Twice(21)", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	_, err = eval(t, ev, "Twice(1, 2)", nil)
	var ee *types.EvaluationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, types.ErrArgumentCount, ee.Code)
}

func TestEvalHooks(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "tenant-a")

	params := func(ctx context.Context, name string) (any, bool, error) {
		if name == "tenant" {
			return ctx.Value(key{}), true, nil
		}
		return nil, false, nil
	}
	ev := evaluator.New(evaluator.WithParameterResolver(params))

	got, err := ev.Eval(ctx, parse(t, "[tenant]"), evaluator.Bindings{})
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got)

	// Per-call hooks win over the evaluator default.
	got, err = ev.Eval(ctx, parse(t, "[tenant]"), evaluator.Bindings{
		ResolveParameter: functions.StaticParameters(map[string]any{"tenant": "override"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "override", got)
}

func TestEvalNestedExpressions(t *testing.T) {
	ev := evaluator.New()

	got, err := eval(t, ev, "[a] * 2", map[string]any{
		"a": parse(t, "[b] + 1"),
		"b": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), got)

	nested, err := parser.Parse("[b] * 10")
	require.NoError(t, err)
	got, err = eval(t, ev, "[a]", map[string]any{"a": nested, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, int64(30), got)

	_, err = eval(t, evaluator.New(evaluator.WithMaxDepth(5)), "[a]", map[string]any{"a": parse(t, "[a] + 1")})
	var ee *types.EvaluationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, types.ErrRecursionDepth, ee.Code)
}

func TestEvalNullParameter(t *testing.T) {
	_, err := eval(t, evaluator.New(), "[x] = null", map[string]any{"x": nil})
	require.Error(t, err)

	ev := evaluator.New(evaluator.WithOptions(types.AllowNullParameter))
	got, err := eval(t, ev, "[x] = null", map[string]any{"x": nil})
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = eval(t, ev, "[x] + 1", map[string]any{"x": nil})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEvalOverflowProtection(t *testing.T) {
	_, err := eval(t, evaluator.New(evaluator.WithOptions(types.OverflowProtection)),
		"9223372036854775807 + 1", nil)
	assert.ErrorIs(t, err, types.ErrOverflow)

	got, err := eval(t, evaluator.New(), "9223372036854775807 + 1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-9223372036854775808), got)
}

func TestEvalBooleanCalculation(t *testing.T) {
	_, err := eval(t, evaluator.New(), "true + 1", nil)
	require.Error(t, err)

	got, err := eval(t, evaluator.New(evaluator.WithOptions(types.BooleanCalculation)), "true + 1", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestEvalStringMatching(t *testing.T) {
	got, err := eval(t, evaluator.New(), "'abc' = 'ABC'", nil)
	require.NoError(t, err)
	assert.Equal(t, false, got)

	got, err = eval(t, evaluator.New(evaluator.WithOptions(types.MatchStringsWithIgnoreCase)), "'abc' = 'ABC'", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestEvalConcurrentUse(t *testing.T) {
	ev := evaluator.New()
	root := parse(t, "[x] * [x] + 1")

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func(i int) {
			got, err := ev.Eval(context.Background(), root, evaluator.Bindings{Parameters: map[string]any{"x": i}})
			if err == nil && got != int64(i*i+1) {
				err = errors.New("unexpected result")
			}
			done <- err
		}(i)
	}
	for i := 0; i < 16; i++ {
		require.NoError(t, <-done)
	}
}
