//go:build wasip1

// Command goncalc-wasi is the WASI (wasip1) entrypoint for use from any
// runtime that supports the WebAssembly System Interface.
//
// Protocol: single JSON object on stdin → single JSON object on stdout.
//
//	stdin:  { "expression": "<formula>", "parameters": {...}, "options": "IgnoreCase|..." }
//	stdout: { "result": <any JSON value> }    on success
//	        { "error":  "<message>"       }    on failure (exit code 1)
//
// Build:
//
//	GOOS=wasip1 GOARCH=wasm go build -o goncalc.wasm ./cmd/wasm/wasi/
//
// Usage with wasmtime CLI:
//
//	echo '{"expression":"[x] * 2","parameters":{"x":21}}' | wasmtime goncalc.wasm
package main

import (
	"context"
	"os"

	"github.com/sandrolain/goncalc/internal/wire"
)

func writeResponse(r wire.Response, exitCode int) {
	_ = r.Encode(os.Stdout)
	os.Exit(exitCode)
}

func main() {
	req, err := wire.DecodeJSON(os.Stdin)
	if err != nil {
		writeResponse(wire.NewResponse(nil, err), 1)
	}

	result, err := req.Evaluate(context.Background())
	if err != nil {
		writeResponse(wire.NewResponse(nil, err), 1)
	}

	writeResponse(wire.NewResponse(result, nil), 0)
}
