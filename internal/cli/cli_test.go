package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/goncalc"
	"github.com/sandrolain/goncalc/internal/cli"
)

func run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestEval(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"parameter", []string{"eval", "[x] * 2", "-p", "x=21"}, "42\n"},
		{"text parameter", []string{"eval", "'Hi ' + [n]", "-p", "n=Bob"}, "Hi Bob\n"},
		{"quoted parameter", []string{"eval", "Len([n])", "--ext", "-p", "n='a b'"}, "3\n"},
		{"negative parameter", []string{"eval", "Abs([n])", "-p", "n=-3"}, "3\n"},
		{"date parameter", []string{"eval", "[d] > #2024-01-01#", "-p", "d=#2024-06-01#"}, "true\n"},
		{"iterate", []string{"eval", "[a] + [b]", "-p", "a=1,2,3", "-p", "b=10", "--options", "IterateParameters"}, "11\n12\n13\n"},
		{"options", []string{"eval", "[X]", "-p", "x=1", "-o", "IgnoreCase"}, "1\n"},
		{"ext", []string{"eval", "CamelCase('total_amount')", "--ext"}, "totalAmount\n"},
		{"compiled", []string{"eval", "Pow(2, 3)", "--compile"}, "8\n"},
		{"json", []string{"eval", "10 / 4", "--json"}, `{"result":2.5}` + "\n"},
		{"decimal", []string{"eval", "Round(2.345, 2)"}, "2.34\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, "", tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestEvalParamsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
expression: "[price] * [qty]"
options: IgnoreCase
parameters:
  Price: 2.5
  qty: 4
`), 0o600))

	out, _, err := run(t, "", "eval", "--params", path)
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)

	// The argument replaces the file's expression; -p adds to its parameters.
	out, _, err = run(t, "", "eval", "--params", path, "[qty] + [extra]", "-p", "extra=1")
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"eval"}, "no expression given"},
		{[]string{"eval", "[x]", "-p", "novalue"}, `invalid parameter "novalue"`},
		{[]string{"eval", "1", "-o", "Bogus"}, "unknown evaluation option"},
		{[]string{"eval", "[missing]"}, "missing"},
		{[]string{"eval", "1 +"}, "P0203"},
		{[]string{"eval", "--params", "/nonexistent/params.yaml"}, "params.yaml"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			_, _, err := run(t, "", tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestEvalVerbose(t *testing.T) {
	_, stderr, err := run(t, "", "eval", "1 + 1", "-vv")
	require.NoError(t, err)
	assert.Contains(t, stderr, "evaluating")
	assert.Contains(t, stderr, "evaluated")

	_, stderr, err = run(t, "", "eval", "1 + 1")
	require.NoError(t, err)
	assert.Empty(t, stderr)

	_, stderr, err = run(t, "", "eval", "1 + 1", "-v", "--log-json")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"message":"evaluating"`)
	assert.Contains(t, stderr, `"expression":"1 + 1"`)
}

func TestFormat(t *testing.T) {
	out, _, err := run(t, "", "format", "a+b*2", "Max( 1 ,2 )")
	require.NoError(t, err)
	assert.Equal(t, "([a]) + (([b]) * 2)\nMax(1, 2)\n", out)

	out, _, err = run(t, "not true\n\n[x] = 'y'\n", "format")
	require.NoError(t, err)
	assert.Equal(t, "!true\n([x]) = 'y'\n", out)

	_, _, err = run(t, "", "format", "(1 +")
	assert.ErrorContains(t, err, "1: ")
}

func TestCheck(t *testing.T) {
	out, _, err := run(t, "1 + 1\n(1 +\n'open\n", "check")
	assert.EqualError(t, err, "2 of 3 formulas are invalid")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, "1: ok", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2: "), lines[1])

	out, _, err = run(t, "", "check", "-q", "1 + 1", "[a] * 2")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, goncalc.Version()+"\n", out)
}
