// Package ext provides optional extension functions for goncalc formulas that
// go beyond the built-in function library.
//
// The extension functions live in sub-packages grouped by category:
//   - extstring   – StartsWith, IndexOf, Substring, TitleCase, SnakeCase, …
//   - extdatetime – DateAdd, DateDiff, DatePart, DateStartOf, DateEndOf
//
// # Integration – all extensions at once
//
//	import "github.com/sandrolain/goncalc/pkg/ext"
//
//	result, err := goncalc.New("DateAdd(#2024-01-31#, 1, 'month')",
//	    goncalc.WithFunctions(ext.Registry()),
//	).Evaluate(ctx)
//
// # Integration – by category
//
//	ev := evaluator.New(ext.WithString())
//
// # Integration – single function from a sub-package
//
//	import "github.com/sandrolain/goncalc/pkg/ext/extstring"
//
//	reg := functions.NewRegistry(extstring.StartsWith())
package ext

import (
	"github.com/sandrolain/goncalc/pkg/evaluator"
	"github.com/sandrolain/goncalc/pkg/ext/extdatetime"
	"github.com/sandrolain/goncalc/pkg/ext/extstring"
	"github.com/sandrolain/goncalc/pkg/functions"
)

// All returns every extension function definition.
func All() []functions.CustomFunctionDef {
	var all []functions.CustomFunctionDef
	all = append(all, extstring.All()...)
	all = append(all, extdatetime.All()...)
	return all
}

// Registry returns a new registry holding every extension function.
func Registry() *functions.Registry {
	return functions.NewRegistry(All()...)
}

// WithAll returns an EvalOption that registers all extension functions.
func WithAll() evaluator.EvalOption {
	return evaluator.WithFunctions(Registry())
}

// WithString returns an EvalOption for the extended string functions.
func WithString() evaluator.EvalOption {
	return evaluator.WithFunctions(extstring.Registry())
}

// WithDateTime returns an EvalOption for the extended date/time functions.
func WithDateTime() evaluator.EvalOption {
	return evaluator.WithFunctions(extdatetime.Registry())
}
