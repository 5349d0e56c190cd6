//go:build (js && wasm) || wasip1

package evaluator

// init disables concurrent row evaluation on WebAssembly targets.
//
// On js/wasm the JavaScript runtime is single-threaded, and wasip1 has no
// threads in the Go runtime, so splitting IterateParameters rows across
// goroutines only adds scheduling overhead there.
func init() {
	concurrencySupported = false
}
