// Package wire holds the request and response shapes shared by the goncalc
// command and the WebAssembly entry points.
package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/goncalc"
	"github.com/sandrolain/goncalc/pkg/types"
)

// Request is one formula to evaluate.
type Request struct {
	Expression string         `json:"expression" yaml:"expression"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters"`
	Options    string         `json:"options,omitempty" yaml:"options"`
}

// Response carries either a result or an error message.
type Response struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DecodeJSON reads a single JSON request. Integral numbers become int64 and
// the others float64.
func DecodeJSON(r io.Reader) (Request, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var req Request
	if err := dec.Decode(&req); err != nil {
		return Request{}, fmt.Errorf("invalid request JSON: %w", err)
	}
	params, err := normalizeMap(req.Parameters)
	if err != nil {
		return Request{}, err
	}
	req.Parameters = params
	return req, nil
}

// DecodeYAML reads a request document. The expression may be omitted when
// it is supplied separately.
func DecodeYAML(data []byte) (Request, error) {
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("invalid request YAML: %w", err)
	}
	params, err := normalizeMap(req.Parameters)
	if err != nil {
		return Request{}, err
	}
	req.Parameters = params
	return req, nil
}

// LoadFile reads a YAML (or JSON) request document from path.
func LoadFile(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, err
	}
	return DecodeYAML(data)
}

// Build returns the expression described by req. The request options
// come first so that opts may add to them.
func (req Request) Build(opts ...goncalc.Option) (*goncalc.Expression, error) {
	flags, err := types.ParseOptions(req.Options)
	if err != nil {
		return nil, err
	}
	all := append([]goncalc.Option{goncalc.WithOptions(flags)}, opts...)
	return goncalc.New(req.Expression, all...).WithParameters(req.Parameters), nil
}

// Evaluate builds and evaluates req.
func (req Request) Evaluate(ctx context.Context, opts ...goncalc.Option) (any, error) {
	expr, err := req.Build(opts...)
	if err != nil {
		return nil, err
	}
	return expr.Evaluate(ctx)
}

// NewResponse wraps an evaluation outcome. Decimals are emitted as JSON
// numbers.
func NewResponse(result any, err error) Response {
	if err != nil {
		return Response{Error: err.Error()}
	}
	return Response{Result: jsonValue(result)}
}

// Encode writes resp as a single line of JSON.
func (resp Response) Encode(w io.Writer) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// MarshalResult encodes a bare result the way NewResponse does.
func MarshalResult(result any) ([]byte, error) {
	return json.Marshal(jsonValue(result))
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return json.Number(x.String())
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return json.Number(x.String())
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = jsonValue(item)
		}
		return out
	default:
		return v
	}
}

func normalizeMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		return normalizeMap(x)
	case int:
		return int64(x), nil
	default:
		return v, nil
	}
}
