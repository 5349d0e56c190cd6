package wire_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goncalc/internal/wire"
)

func TestDecodeJSON(t *testing.T) {
	req, err := wire.DecodeJSON(strings.NewReader(`{
		"expression": "[a] + [b]",
		"parameters": {"a": 2, "b": 0.5, "list": [1, 2.5], "nested": {"n": 3}},
		"options": "IgnoreCase"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "[a] + [b]", req.Expression)
	assert.Equal(t, "IgnoreCase", req.Options)
	assert.Equal(t, int64(2), req.Parameters["a"])
	assert.Equal(t, 0.5, req.Parameters["b"])
	assert.Equal(t, []any{int64(1), 2.5}, req.Parameters["list"])
	assert.Equal(t, map[string]any{"n": int64(3)}, req.Parameters["nested"])
}

func TestDecodeJSONInvalid(t *testing.T) {
	_, err := wire.DecodeJSON(strings.NewReader(`{"expression": `))
	assert.ErrorContains(t, err, "invalid request JSON")
}

func TestDecodeYAML(t *testing.T) {
	req, err := wire.DecodeYAML([]byte(`
expression: "[price] * [qty]"
options: IgnoreCase|IterateParameters
parameters:
  price: 9.5
  qty: [1, 2]
  start: 2024-01-15
`))
	require.NoError(t, err)

	assert.Equal(t, "IgnoreCase|IterateParameters", req.Options)
	assert.Equal(t, 9.5, req.Parameters["price"])
	assert.Equal(t, []any{int64(1), int64(2)}, req.Parameters["qty"])
	// Unquoted timestamps decode to dates.
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), req.Parameters["start"])
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("parameters:\n  x: 4\n"), 0o600))

	req, err := wire.LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, req.Expression)
	assert.Equal(t, int64(4), req.Parameters["x"])

	_, err = wire.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEvaluate(t *testing.T) {
	req := wire.Request{
		Expression: "[A] * 2",
		Parameters: map[string]any{"a": int64(21)},
		Options:    "IgnoreCase",
	}
	got, err := req.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	req.Options = "Sideways"
	_, err = req.Evaluate(context.Background())
	assert.ErrorContains(t, err, `unknown evaluation option "Sideways"`)
}

func TestResponseEncode(t *testing.T) {
	tests := []struct {
		name string
		resp wire.Response
		want string
	}{
		{"integer", wire.NewResponse(int64(14), nil), `{"result":14}` + "\n"},
		{"false", wire.NewResponse(false, nil), `{"result":false}` + "\n"},
		{"decimal", wire.NewResponse(decimal.RequireFromString("29.85"), nil), `{"result":29.85}` + "\n"},
		{"rows", wire.NewResponse([]any{int64(1), decimal.NewFromInt(2)}, nil), `{"result":[1,2]}` + "\n"},
		{"date", wire.NewResponse(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), nil), `{"result":"2024-01-15T00:00:00Z"}` + "\n"},
		{"string", wire.NewResponse("<b>", nil), `{"result":"<b>"}` + "\n"},
		{"error", wire.NewResponse(nil, errors.New("boom")), `{"error":"boom"}` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tt.resp.Encode(&buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestMarshalResult(t *testing.T) {
	out, err := wire.MarshalResult(decimal.RequireFromString("1.50"))
	require.NoError(t, err)
	assert.Equal(t, "1.5", string(out))

	out, err = wire.MarshalResult(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}
