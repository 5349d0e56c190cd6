package types

import (
	"fmt"
	"strings"
)

// EvaluateOptions is a bit set of independent evaluation flags. The same
// value drives the evaluator and the compiler.
type EvaluateOptions uint32

// Evaluation options.
const (
	// None specifies that no options are set.
	None EvaluateOptions = 1
	// IgnoreCase makes identifier and function name lookup case-insensitive.
	IgnoreCase EvaluateOptions = 1 << 1
	// NoCache bypasses the expression cache for this parse.
	NoCache EvaluateOptions = 1 << 2
	// IterateParameters treats sequence parameters as columns and returns one result per row.
	IterateParameters EvaluateOptions = 1 << 3
	// RoundAwayFromZero rounds midpoints away from zero in Round().
	RoundAwayFromZero EvaluateOptions = 1 << 4
	// MatchStringsWithIgnoreCase compares strings case-insensitively.
	MatchStringsWithIgnoreCase EvaluateOptions = 1 << 5
	// MatchStringsOrdinal compares strings byte-wise instead of by culture.
	MatchStringsOrdinal EvaluateOptions = 1 << 6
	// OverflowProtection makes integer overflow an error.
	OverflowProtection EvaluateOptions = 1 << 7
	// BooleanCalculation lets booleans take part in arithmetic and numbers act as booleans.
	BooleanCalculation EvaluateOptions = 1 << 8
	// UseDoubleForAbsFunction makes Abs() return float64 instead of a decimal.
	UseDoubleForAbsFunction EvaluateOptions = 1 << 9
	// AllowNullParameter defines a "null" parameter and allows comparisons with null.
	AllowNullParameter EvaluateOptions = 1 << 10
)

var optionNames = []struct {
	opt  EvaluateOptions
	name string
}{
	{None, "None"},
	{IgnoreCase, "IgnoreCase"},
	{NoCache, "NoCache"},
	{IterateParameters, "IterateParameters"},
	{RoundAwayFromZero, "RoundAwayFromZero"},
	{MatchStringsWithIgnoreCase, "MatchStringsWithIgnoreCase"},
	{MatchStringsOrdinal, "MatchStringsOrdinal"},
	{OverflowProtection, "OverflowProtection"},
	{BooleanCalculation, "BooleanCalculation"},
	{UseDoubleForAbsFunction, "UseDoubleForAbsFunction"},
	{AllowNullParameter, "AllowNullParameter"},
}

// Has reports whether every bit of flag is set.
func (o EvaluateOptions) Has(flag EvaluateOptions) bool {
	return o&flag == flag
}

// String returns the set flags joined by "|".
func (o EvaluateOptions) String() string {
	if o == 0 {
		return "0"
	}
	var names []string
	for _, n := range optionNames {
		if o.Has(n.opt) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseOptions parses a "|" or "," separated list of option names.
// Names are matched case-insensitively; an empty string yields None.
func ParseOptions(s string) (EvaluateOptions, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, nil
	}
	var opts EvaluateOptions
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.TrimSpace(part)
		found := false
		for _, n := range optionNames {
			if strings.EqualFold(n.name, part) {
				opts |= n.opt
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown evaluation option %q", part)
		}
	}
	return opts, nil
}
