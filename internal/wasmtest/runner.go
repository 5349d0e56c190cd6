// Package wasmtest runs the WASI build of goncalc inside wazero so the
// stdin/stdout protocol can be exercised without an external runtime.
package wasmtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"

	"github.com/sandrolain/goncalc/internal/wire"
)

// EnvBinary names the environment variable holding the path of the WASI
// binary.
const EnvBinary = "GONCALC_WASI"

// Runner executes requests against one compiled WASI module.
type Runner struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

// Load compiles the module at path.
func Load(ctx context.Context, path string) (*Runner, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	r := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}
	compiled, err := r.CompileModule(ctx, code)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return &Runner{runtime: r, compiled: compiled}, nil
}

// Run sends req on stdin and decodes the response from stdout. Each call gets
// a fresh module instance.
func (r *Runner) Run(ctx context.Context, req wire.Request) (resp wire.Response, exitCode uint32, err error) {
	in, err := json.Marshal(req)
	if err != nil {
		return wire.Response{}, 0, err
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithStdin(bytes.NewReader(in)).
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithName("")

	mod, err := r.runtime.InstantiateModule(ctx, r.compiled, cfg)
	if mod != nil {
		_ = mod.Close(ctx)
	}
	var exitErr *sys.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		exitCode = exitErr.ExitCode()
	default:
		return wire.Response{}, 0, fmt.Errorf("run module: %w (stderr: %s)", err, stderr.String())
	}

	dec := json.NewDecoder(&stdout)
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return wire.Response{}, exitCode, fmt.Errorf("decode response: %w", err)
	}
	return resp, exitCode, nil
}

// Close releases the runtime.
func (r *Runner) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
