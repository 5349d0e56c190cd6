package compiler_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goncalc/pkg/compiler"
	"github.com/sandrolain/goncalc/pkg/types"
)

type TestObject1 struct{ Count1 int }

type TestObject2 struct{ Count2 int }

type Context struct {
	FieldA int
	FieldB string
	FieldC decimal.Decimal
	FieldD *decimal.Decimal
	FieldE *int
}

func (c *Context) CreateTestObject1(count int) *TestObject1 { return &TestObject1{Count1: count} }

func (c *Context) CreateTestObject2(count int) *TestObject2 { return &TestObject2{Count2: count} }

type SubContext struct {
	Context
}

func (s *SubContext) Multiply(a, b int) int { return a * b }

type FooStruct struct{}

func (FooStruct) Foo() float64 { return 2.2 }

func sum(numbers []int) int {
	total := 0
	for _, n := range numbers {
		total += n
	}
	return total
}

func must(t *testing.T, errs ...error) {
	t.Helper()
	require.NoError(t, errors.Join(errs...))
}

func newRegistry(t *testing.T) *compiler.Registry {
	reg := compiler.NewRegistry()
	must(t,
		reg.Method("Test", func(_ *Context, a, b int) int { return a + b }),
		reg.Method("Test", func(_ *Context, a, b string) string { return a + b }),
		reg.Method("Test", func(_ *Context, a, b, c int) int { return a + b + c }),
		reg.Method("Test", func(_ *Context, a, b, c float64) float64 { return a + b + c }),
		reg.Method("Sum", func(_ *Context, msg string, numbers ...int) string { return msg + strconv.Itoa(sum(numbers)) }),
		reg.Method("Sum", func(_ *Context, numbers ...int) int { return sum(numbers) }),
		reg.Method("Sum", func(_ *Context, a *TestObject1, b *TestObject2) int { return a.Count1 + b.Count2 }),
		reg.Method("Sum", func(_ *Context, a *TestObject2, b *TestObject1) int { return a.Count2 + b.Count1 }),
		reg.Method("Sum", func(_ *Context, a, b *TestObject1) int { return a.Count1 + b.Count1 }),
		reg.Method("Sum", func(_ *Context, a, b *TestObject2) int { return a.Count2 + b.Count2 }),

		reg.Method("Test", func(_ *SubContext, a, b int) int { return (a + b) / 2 }),
		reg.Method("Test", func(_ *SubContext, a, b, c, d int) int { return a + b + c + d }),
		reg.Method("Sum", func(_ *SubContext, a *TestObject1, b, c *TestObject2) int {
			return a.Count1 + b.Count2 + c.Count2 + 100
		}),
	)
	return reg
}

func compileFor[C, R any](t *testing.T, c *compiler.Compiler, text string) compiler.Func[C, R] {
	t.Helper()
	fn, err := compiler.Compile[C, R](context.Background(), c, parse(t, text))
	require.NoError(t, err, text)
	return fn
}

func call[C, R any](t *testing.T, fn compiler.Func[C, R], env C) R {
	t.Helper()
	got, err := fn(env)
	require.NoError(t, err)
	return got
}

func TestCompileFields(t *testing.T) {
	c := compiler.New()
	fn := compileFor[*Context, bool](t, c, "[FieldA] > 5 && [FieldB] = 'test'")
	assert.True(t, call(t, fn, &Context{FieldA: 7, FieldB: "test"}))
	assert.False(t, call(t, fn, &Context{FieldA: 7, FieldB: "other"}))
}

func TestCompileDataConversions(t *testing.T) {
	e := 2
	env := &Context{FieldA: 7, FieldB: "test", FieldC: decimal.RequireFromString("2.4"), FieldE: &e}

	tests := []struct {
		expr string
		want bool
	}{
		{"[FieldA] > [FieldC]", true},
		{"[FieldC] > 1.34", true},
		{"[FieldC] > (1.34 * 2) % 3", false},
		{"[FieldE] = 2", true},
	}

	c := compiler.New()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, compileFor[*Context, bool](t, c, tt.expr), env))
		})
	}
}

func TestCompileOverloads(t *testing.T) {
	c := compiler.New(compiler.WithRegistry(newRegistry(t)))
	env := &Context{}

	t.Run("same parameter count", func(t *testing.T) {
		assert.Equal(t, "Hello world!", call(t, compileFor[*Context, string](t, c, "Test('Hello', ' world!')"), env))
	})
	t.Run("different parameter count", func(t *testing.T) {
		assert.Equal(t, 10, call(t, compileFor[*Context, int](t, c, "Test(Test(1, 2), 3, 4)"), env))
		assert.Equal(t, 6, call(t, compileFor[*Context, int](t, c, "Test(Test(1, 2), 3)"), env))
	})
	t.Run("object parameters", func(t *testing.T) {
		fn := compileFor[*Context, int](t, c,
			"Sum(CreateTestObject1(2), CreateTestObject2(2)) + Sum(CreateTestObject2(1), CreateTestObject1(5))")
		assert.Equal(t, 10, call(t, fn, env))
	})
	t.Run("variadic", func(t *testing.T) {
		assert.Equal(t, 4, call(t, compileFor[*Context, int](t, c, "Sum(Test(1,1),2)"), env))
		assert.Equal(t, 0, call(t, compileFor[*Context, int](t, c, "Sum()"), env))
	})
	t.Run("fixed and variadic", func(t *testing.T) {
		fn := compileFor[*Context, string](t, c, "Sum('Your total is: ', Test(1,1), 2, 3)")
		assert.Equal(t, "Your total is: 7", call(t, fn, env))
	})
	t.Run("ternary", func(t *testing.T) {
		assert.Equal(t, 1, call(t, compileFor[*Context, int](t, c, "Test(1, 2) = 3 ? 1 : 2"), env))
	})
}

func TestCompileImplicitConversion(t *testing.T) {
	c := compiler.New(compiler.WithRegistry(newRegistry(t)))

	for _, expr := range []string{"Test(1, 1, 1)", "Test(1.0, 1.0, 1.0)", "Test(1.0, 1, 1.0)"} {
		t.Run(expr, func(t *testing.T) {
			assert.Equal(t, 3, call(t, compileFor[*Context, int](t, c, expr), &Context{}))
		})
	}
}

func TestCompileContextInheritance(t *testing.T) {
	c := compiler.New(compiler.WithRegistry(newRegistry(t)))
	env := &SubContext{}

	assert.Equal(t, 10, call(t, compileFor[*SubContext, int](t, c, "Multiply(5, 2)"), env))
	assert.Equal(t, 5, call(t, compileFor[*SubContext, int](t, c, "Test(5, 5)"), env), "the derived overload wins the tie")
	assert.Equal(t, 10, call(t, compileFor[*SubContext, int](t, c, "Test(1,2,3,4)"), env))
	assert.Equal(t, 3, call(t, compileFor[*SubContext, int](t, c, "Test(1,1,1)"), env))

	fn := compileFor[*SubContext, int](t, c, "Sum(CreateTestObject1(100), CreateTestObject2(100), CreateTestObject2(100))")
	assert.Equal(t, 400, call(t, fn, env))

	// Fields of the embedded context are promoted.
	env.FieldA = 3
	assert.Equal(t, 6, call(t, compileFor[*SubContext, int](t, c, "Multiply([FieldA], 2)"), env))
}

func TestCompileMissingMethod(t *testing.T) {
	c := compiler.New(compiler.WithRegistry(newRegistry(t)))

	_, err := compiler.Compile[*Context, int](context.Background(), c, parse(t, "MissingMethod(1)"))
	var missing *types.MissingMethodError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "MissingMethod", missing.Name)
	assert.Equal(t, []string{"int64"}, missing.ArgTypes)
	assert.Zero(t, missing.Candidates)

	_, err = compiler.Compile[*Context, int](context.Background(), c, parse(t, "Test(true, 1)"))
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 4, missing.Candidates)
}

func TestCompileValueContext(t *testing.T) {
	fn := compileFor[FooStruct, decimal.Decimal](t, compiler.New(), "Foo * 3.14")
	got := call(t, fn, FooStruct{})
	assert.True(t, decimal.RequireFromString("6.908").Equal(got), got.String())
}

func TestCompileIgnoreCase(t *testing.T) {
	c := compiler.New(
		compiler.WithOptions(types.IgnoreCase),
		compiler.WithRegistry(newRegistry(t)),
	)
	fn := compileFor[*Context, int](t, c, "test([fielda], 1) + ABS(-1)")
	assert.Equal(t, 9, call(t, fn, &Context{FieldA: 7}))

	_, err := compiler.Compile[*Context, int](context.Background(), compiler.New(), parse(t, "[fielda]"))
	assert.ErrorIs(t, err, types.ErrUndefined)
}

func TestCompileFunctions(t *testing.T) {
	reg := compiler.NewRegistry()
	must(t,
		reg.Func("Percent", func(part, whole float64) float64 { return part / whole * 100 }),
		reg.Func("Checked", func(n int) (int, error) {
			if n < 0 {
				return 0, fmt.Errorf("negative: %d", n)
			}
			return n, nil
		}),
	)
	c := compiler.New(compiler.WithRegistry(reg))

	assert.Equal(t, 25.0, compileStatic[float64](t, c, "Percent(1, 4)"))

	fn, err := compiler.CompileStatic[int](context.Background(), c, parse(t, "Checked(-1)"))
	require.NoError(t, err)
	_, err = fn()
	assert.EqualError(t, err, "negative: -1")
}

func TestRegistryRejectsInvalidFunctions(t *testing.T) {
	reg := compiler.NewRegistry()
	assert.Error(t, reg.Func("x", 42))
	assert.Error(t, reg.Func("x", func() {}))
	assert.Error(t, reg.Func("x", func() (int, int) { return 0, 0 }))
	assert.Error(t, reg.Method("x", func() int { return 0 }))
	assert.Zero(t, reg.Len())
}

func TestCompiledFuncConcurrentUse(t *testing.T) {
	fn := compileFor[*Context, int](t, compiler.New(compiler.WithRegistry(newRegistry(t))), "Test([FieldA], [FieldA])")

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func(i int) {
			got, err := fn(&Context{FieldA: i})
			if err == nil && got != 2*i {
				err = fmt.Errorf("got %d, want %d", got, 2*i)
			}
			done <- err
		}(i)
	}
	for i := 0; i < 16; i++ {
		require.NoError(t, <-done)
	}
}
