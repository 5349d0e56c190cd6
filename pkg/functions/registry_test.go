package functions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goncalc/pkg/functions"
)

func twice() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Twice",
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(_ context.Context, args ...any) (any, error) {
			return args[0].(int) * 2, nil
		},
	}
}

func TestNilRegistry(t *testing.T) {
	var reg *functions.Registry

	assert.NotPanics(t, func() {
		assert.Empty(t, reg.Names())
		assert.Zero(t, reg.Len())
		_, ok := reg.Lookup("Twice", true)
		assert.False(t, ok)
	})
}

func TestRegistryLookup(t *testing.T) {
	reg := functions.NewRegistry(twice())
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, []string{"Twice"}, reg.Names())

	_, ok := reg.Lookup("twice", false)
	assert.False(t, ok)
	def, ok := reg.Lookup("twice", true)
	require.True(t, ok)
	assert.Equal(t, "Twice", def.Name)
}

func TestCallChecksArity(t *testing.T) {
	got, err := twice().Call(context.Background(), []any{4})
	require.NoError(t, err)
	assert.Equal(t, 8, got)

	_, err = twice().Call(context.Background(), nil)
	var arity *functions.ArityError
	require.ErrorAs(t, err, &arity)
	assert.Equal(t, "Twice() takes exactly 1 argument(s), got 0", err.Error())
}

func TestChain(t *testing.T) {
	boom := errors.New("boom")
	first := func(_ context.Context, name string, _ []any) (any, bool, error) {
		if name == "Fail" {
			return nil, false, boom
		}
		return nil, name == "A", nil
	}
	second := functions.NewRegistry(twice()).Resolver(false)
	chain := functions.Chain(nil, first, second)

	_, ok, err := chain(context.Background(), "A", nil)
	assert.True(t, ok)
	assert.NoError(t, err)

	v, ok, err := chain(context.Background(), "Twice", []any{3})
	assert.True(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 6, v)

	_, _, err = chain(context.Background(), "Fail", nil)
	assert.ErrorIs(t, err, boom)

	_, ok, _ = chain(context.Background(), "Missing", nil)
	assert.False(t, ok)
}
