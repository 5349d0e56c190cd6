//go:build js && wasm

// Command goncalc-js is the WebAssembly entrypoint for browser and Node.js.
//
// It exposes a global `goncalc` object with the following API:
//
//	goncalc.version()                             → string
//	goncalc.eval(expression, parametersJSON)      → resultJSON  (throws on error)
//	goncalc.serialize(expression)                 → string      (throws on error)
//	goncalc.compile(expression)                   → { eval(parametersJSON) → resultJSON }
//
// Build:
//
//	GOOS=js GOARCH=wasm go build -o goncalc.wasm ./cmd/wasm/js/
//
// Usage in Node.js:
//
//	const gc = await load()
//	const result = gc.eval('[x] * 2', JSON.stringify({x: 21}))
//	console.log(JSON.parse(result)) // 42
package main

import (
	"context"
	"fmt"
	"strings"
	"syscall/js"

	"github.com/sandrolain/goncalc"
	"github.com/sandrolain/goncalc/internal/wire"
)

// jsThrow panics with a JS Error so the caller receives a thrown exception.
func jsThrow(msg string) {
	js.Global().Get("Error").New(msg)
	panic(msg)
}

// request decodes a parameters JSON object into a request for expression.
func request(expression, paramsJSON string) (wire.Request, error) {
	if strings.TrimSpace(paramsJSON) == "" {
		paramsJSON = "{}"
	}
	params, err := wire.DecodeJSON(strings.NewReader(`{"parameters":` + paramsJSON + `}`))
	if err != nil {
		return wire.Request{}, err
	}
	params.Expression = expression
	return params, nil
}

func encode(result any) string {
	out, err := wire.MarshalResult(result)
	if err != nil {
		jsThrow(fmt.Sprintf("marshal result: %v", err))
	}
	return string(out)
}

// jsEval implements goncalc.eval(expression, parametersJSON) → resultJSON.
func jsEval(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("goncalc.eval requires at least 1 argument: expression (string)")
	}
	paramsJSON := ""
	if len(args) > 1 {
		paramsJSON = args[1].String()
	}

	req, err := request(args[0].String(), paramsJSON)
	if err != nil {
		jsThrow(fmt.Sprintf("goncalc.eval: %v", err))
	}
	result, err := req.Evaluate(context.Background())
	if err != nil {
		jsThrow(fmt.Sprintf("goncalc.eval: %v", err))
	}
	return encode(result)
}

// jsSerialize implements goncalc.serialize(expression) → canonical text.
func jsSerialize(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("goncalc.serialize requires 1 argument: expression (string)")
	}
	expr := goncalc.New(args[0].String())
	if expr.HasErrors() {
		jsThrow(fmt.Sprintf("goncalc.serialize: %v", expr.Error()))
	}
	return expr.Serialize()
}

// jsCompile implements goncalc.compile(expression) → { eval(parametersJSON) → resultJSON }.
func jsCompile(_ js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		jsThrow("goncalc.compile requires 1 argument: expression (string)")
	}
	expression := args[0].String()
	if expr := goncalc.New(expression); expr.HasErrors() {
		jsThrow(fmt.Sprintf("goncalc.compile: %v", expr.Error()))
	}

	evalFn := js.FuncOf(func(_ js.Value, innerArgs []js.Value) interface{} {
		paramsJSON := ""
		if len(innerArgs) > 0 {
			paramsJSON = innerArgs[0].String()
		}
		req, err := request(expression, paramsJSON)
		if err != nil {
			jsThrow(fmt.Sprintf("compiled.eval: %v", err))
		}
		r, err := req.Evaluate(context.Background())
		if err != nil {
			jsThrow(fmt.Sprintf("compiled.eval: %v", err))
		}
		return encode(r)
	})

	return js.ValueOf(map[string]interface{}{"eval": evalFn})
}

func main() {
	api := map[string]interface{}{
		"eval":      js.FuncOf(jsEval),
		"serialize": js.FuncOf(jsSerialize),
		"compile":   js.FuncOf(jsCompile),
		"version": js.FuncOf(func(_ js.Value, _ []js.Value) interface{} {
			return goncalc.Version()
		}),
	}
	js.Global().Set("goncalc", js.ValueOf(api))

	// The JS event loop owns execution from here on.
	select {}
}
