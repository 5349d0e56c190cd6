package parser_test

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goncalc/pkg/parser"
	"github.com/sandrolain/goncalc/pkg/serializer"
	"github.com/sandrolain/goncalc/pkg/types"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2 + 3 * 4", "2 + (3 * 4)"},
		{"(2 + 3) * 4", "(2 + 3) * 4"},
		{"1 - 2 - 3", "(1 - 2) - 3"},
		{"8 / 4 % 3", "(8 / 4) % 3"},
		{"true or false and false", "true or (false and false)"},
		{"true || false && false", "true or (false and false)"},
		{"1 < 2 = true", "(1 < 2) = true"},
		{"1 | 2 ^ 3 & 4", "1 | (2 ^ (3 & 4))"},
		{"1 + 2 << 3", "(1 + 2) << 3"},
		{"-2 * 3", "(-2) * 3"},
		{"not true and false", "(!true) and false"},
		{"!(1 = 2)", "!(1 = 2)"},
		{"[a] ? [b] : [c] ? [d] : [e]", "([a]) ? ([b]) : (([c]) ? ([d]) : ([e]))"},
		{"1 + 2 > 2 ? 'y' : 'n'", "((1 + 2) > 2) ? 'y' : 'n'"},
		{"[first name] * 2", "([first name]) * 2"},
		{"price * qty", "([price]) * ([qty])"},
		{"Abs(-1)", "Abs(-1)"},
		{"Max(1, Min(2, 3))", "Max(1, Min(2, 3))"},
		{"Now()", "Now()"},
		{"3 <> 4", "3 != 4"},
		{"3 == 4", "3 = 4"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := parser.Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, serializer.Serialize(expr.Root()))
			assert.Equal(t, tt.expr, expr.Source())
		})
	}
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		expr string
		kind types.ValueKind
		want any
	}{
		{"123", types.KindInteger, int64(123)},
		{"3.25", types.KindFloat, 3.25},
		{".5", types.KindFloat, 0.5},
		{"1e3", types.KindFloat, 1000.0},
		{"2.5E-1", types.KindFloat, 0.25},
		{"9223372036854775808", types.KindFloat, 9223372036854775808.0},
		{"-9223372036854775808", types.KindInteger, int64(math.MinInt64)},
		{"TRUE", types.KindBoolean, true},
		{"false", types.KindBoolean, false},
		{"'hello'", types.KindString, "hello"},
		{`'it\'s'`, types.KindString, "it's"},
		{`'a\tb\nc'`, types.KindString, "a\tb\nc"},
		{`'été'`, types.KindString, "été"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := parser.Parse(tt.expr)
			require.NoError(t, err)

			v, ok := expr.Root().(*types.ValueExpr)
			require.True(t, ok, "got %T", expr.Root())
			assert.Equal(t, tt.kind, v.Kind)
			assert.Equal(t, tt.want, v.Value)
		})
	}
}

func TestParseNegatedLiterals(t *testing.T) {
	expr, err := parser.Parse("-9223372036854775808 - 1")
	require.NoError(t, err)
	bin := expr.Root().(*types.BinaryExpr)
	assert.Equal(t, int64(math.MinInt64), bin.Left.(*types.ValueExpr).Value)
	assert.Equal(t, "-9223372036854775808 - 1", serializer.Serialize(expr.Root()))

	expr, err = parser.Parse("-9223372036854775807")
	require.NoError(t, err)
	neg, ok := expr.Root().(*types.UnaryExpr)
	require.True(t, ok, "got %T", expr.Root())
	assert.Equal(t, types.OpNegate, neg.Op)

	expr, err = parser.Parse("-9223372036854775809")
	require.NoError(t, err)
	_, ok = expr.Root().(*types.UnaryExpr)
	assert.True(t, ok, "got %T", expr.Root())
}

func TestParseDates(t *testing.T) {
	tests := []struct {
		expr string
		want time.Time
	}{
		{"#2024-01-15#", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"#2024-01-15 10:30:00#", time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"#2024-03-01T10:30:00Z#", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := parser.Parse(tt.expr)
			require.NoError(t, err)

			v := expr.Root().(*types.ValueExpr)
			assert.Equal(t, types.KindDateTime, v.Kind)
			got, ok := v.Value.(time.Time)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseNodes(t *testing.T) {
	expr, err := parser.Parse("1 + Pow([x], 2)")
	require.NoError(t, err)

	bin, ok := expr.Root().(*types.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, types.OpPlus, bin.Op)
	assert.Equal(t, 2, bin.Position())

	call, ok := bin.Right.(*types.FunctionCall)
	require.True(t, ok)
	assert.Equal(t, "Pow", call.Name)
	require.Len(t, call.Args, 2)
	assert.Equal(t, "x", call.Args[0].(*types.Identifier).Name)

	var names []string
	types.Walk(expr.Root(), func(n types.Node) bool {
		if id, ok := n.(*types.Identifier); ok {
			names = append(names, id.Name)
		}
		return true
	})
	assert.Equal(t, []string{"x"}, names)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		expr string
		code types.ErrorCode
	}{
		{"", types.ErrEmptyExpression},
		{"   ", types.ErrEmptyExpression},
		{"(1 + 2", types.ErrUnexpectedEnd},
		{"1 +", types.ErrUnexpectedEnd},
		{"1 2", types.ErrSyntaxError},
		{"Max(1 2)", types.ErrExpectedToken},
		{"true ? 1", types.ErrUnexpectedEnd},
		{"'abc", types.ErrStringNotClosed},
		{"#2024-01-01", types.ErrDateNotClosed},
		{"[abc", types.ErrIdentifierNotClosed},
		{"1 $ 2", types.ErrUnexpectedChar},
		{"1.", types.ErrInvalidNumber},
		{"1e", types.ErrInvalidNumber},
		{"12abc", types.ErrInvalidNumber},
		{"1e400", types.ErrInvalidNumber},
		{"#not a date#", types.ErrInvalidDate},
		{`'\q'`, types.ErrUnsupportedEscape},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := parser.Parse(tt.expr)
			require.Error(t, err)

			var pe *types.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.expr, pe.Source)

			var located *types.Error
			require.ErrorAs(t, err, &located)
			assert.Equal(t, tt.code, located.Code, err.Error())
		})
	}
}

func TestParseReportsEveryLexicalError(t *testing.T) {
	_, err := parser.Parse("1 $ 2 @ 3")

	var pe *types.ParseError
	require.ErrorAs(t, err, &pe)
	errs := pe.Errors()
	require.Len(t, errs, 2)

	positions := make([]int, len(errs))
	for i, e := range errs {
		var located *types.Error
		require.ErrorAs(t, e, &located)
		assert.Equal(t, types.ErrUnexpectedChar, located.Code)
		positions[i] = located.Position
	}
	assert.Equal(t, []int{2, 6}, positions)
	assert.Len(t, strings.Split(err.Error(), "\n"), 2)
}

func TestParseMaxDepth(t *testing.T) {
	nested := strings.Repeat("(", 10) + "1" + strings.Repeat(")", 10)

	_, err := parser.Parse(nested, parser.WithMaxDepth(5))
	var located *types.Error
	require.ErrorAs(t, err, &located)
	assert.Equal(t, types.ErrMaxDepthParse, located.Code)

	_, err = parser.Parse(nested)
	assert.NoError(t, err)
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"1 + 2 * 3",
		"[a] ? 'x' : 'y'",
		"Max(1.5, Min([b], 2e3))",
		"#2024-01-15# < #2024-06-01T10:00:00Z#",
		`'it\'s' + 'ok\n'`,
		"not (1 << 2 > 3) || 4 & 5 ^ 6 | ~7",
		"99999999999999999999 % 7",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, text string) {
		expr, err := parser.Parse(text)
		if err != nil {
			return
		}
		first := serializer.Serialize(expr.Root())

		again, err := parser.Parse(first)
		if err != nil {
			t.Fatalf("canonical text %q of %q does not parse: %v", first, text, err)
		}
		if second := serializer.Serialize(again.Root()); second != first {
			t.Fatalf("canonical text is not stable: %q then %q", first, second)
		}
	})
}

func BenchmarkParse(b *testing.B) {
	const text = "if([quantity] > 10, [price] * 0.9, [price]) * (1 + [vat]) - Round([discount], 2)"
	b.ReportAllocs()
	for b.Loop() {
		if _, err := parser.Parse(text); err != nil {
			b.Fatal(err)
		}
	}
}
