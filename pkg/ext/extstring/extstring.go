// Package extstring provides extended string functions for goncalc formulas.
// Register them through a functions.Registry or the top-level ext helpers.
//
// Positions and lengths count runes, not bytes.
package extstring

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sandrolain/goncalc/pkg/ext/extutil"
	"github.com/sandrolain/goncalc/pkg/functions"
)

// All returns all extended string function definitions.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		StartsWith(),
		EndsWith(),
		Contains(),
		IndexOf(),
		LastIndexOf(),
		Len(),
		Substring(),
		Replace(),
		Trim(),
		Capitalize(),
		TitleCase(),
		CamelCase(),
		SnakeCase(),
		KebabCase(),
		Repeat(),
	}
}

// Registry returns a registry holding every string function.
func Registry() *functions.Registry {
	return functions.NewRegistry(All()...)
}

// twoStrings builds a function of two string arguments.
func twoStrings(name string, fn func(a, b string) any) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    name,
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(_ context.Context, args ...any) (any, error) {
			a, err := extutil.String(name, args[0])
			if err != nil {
				return nil, err
			}
			b, err := extutil.String(name, args[1])
			if err != nil {
				return nil, err
			}
			return fn(a, b), nil
		},
	}
}

// oneString builds a function of one string argument.
func oneString(name string, fn func(s string) string) functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    name,
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(_ context.Context, args ...any) (any, error) {
			s, err := extutil.String(name, args[0])
			if err != nil {
				return nil, err
			}
			return fn(s), nil
		},
	}
}

// StartsWith returns the definition for StartsWith(str, prefix).
func StartsWith() functions.CustomFunctionDef {
	return twoStrings("StartsWith", func(s, prefix string) any { return strings.HasPrefix(s, prefix) })
}

// EndsWith returns the definition for EndsWith(str, suffix).
func EndsWith() functions.CustomFunctionDef {
	return twoStrings("EndsWith", func(s, suffix string) any { return strings.HasSuffix(s, suffix) })
}

// Contains returns the definition for Contains(str, search).
func Contains() functions.CustomFunctionDef {
	return twoStrings("Contains", func(s, search string) any { return strings.Contains(s, search) })
}

// IndexOf returns the definition for IndexOf(str, search [, start]).
// Returns -1 when not found.
func IndexOf() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "IndexOf",
		MinArgs: 2,
		MaxArgs: 3,
		Fn: func(_ context.Context, args ...any) (any, error) {
			str, err := extutil.String("IndexOf", args[0])
			if err != nil {
				return nil, err
			}
			search, err := extutil.String("IndexOf", args[1])
			if err != nil {
				return nil, err
			}
			runes := []rune(str)
			start := int64(0)
			if v, ok := extutil.Optional(args, 2); ok {
				if start, err = extutil.Int("IndexOf", v); err != nil {
					return nil, err
				}
				start = max(start, 0)
			}
			if start > int64(len(runes)) {
				return int64(-1), nil
			}
			idx := strings.Index(string(runes[start:]), search)
			if idx < 0 {
				return int64(-1), nil
			}
			return start + int64(utf8.RuneCountInString(string(runes[start:])[:idx])), nil
		},
	}
}

// LastIndexOf returns the definition for LastIndexOf(str, search).
// Returns -1 when not found.
func LastIndexOf() functions.CustomFunctionDef {
	return twoStrings("LastIndexOf", func(s, search string) any {
		idx := strings.LastIndex(s, search)
		if idx < 0 {
			return int64(-1)
		}
		return int64(utf8.RuneCountInString(s[:idx]))
	})
}

// Len returns the definition for Len(str).
func Len() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Len",
		MinArgs: 1,
		MaxArgs: 1,
		Fn: func(_ context.Context, args ...any) (any, error) {
			s, err := extutil.String("Len", args[0])
			if err != nil {
				return nil, err
			}
			return int64(utf8.RuneCountInString(s)), nil
		},
	}
}

// Substring returns the definition for Substring(str, start [, length]).
// Out of range bounds are clamped.
func Substring() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Substring",
		MinArgs: 2,
		MaxArgs: 3,
		Fn: func(_ context.Context, args ...any) (any, error) {
			str, err := extutil.String("Substring", args[0])
			if err != nil {
				return nil, err
			}
			start, err := extutil.Int("Substring", args[1])
			if err != nil {
				return nil, err
			}
			runes := []rune(str)
			n := int64(len(runes))
			start = min(max(start, 0), n)
			end := n
			if v, ok := extutil.Optional(args, 2); ok {
				length, err := extutil.Int("Substring", v)
				if err != nil {
					return nil, err
				}
				if length < 0 {
					return nil, fmt.Errorf("Substring: length must not be negative")
				}
				end = min(start+length, n)
			}
			return string(runes[start:end]), nil
		},
	}
}

// Replace returns the definition for Replace(str, old, new).
func Replace() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Replace",
		MinArgs: 3,
		MaxArgs: 3,
		Fn: func(_ context.Context, args ...any) (any, error) {
			var parts [3]string
			for i := range parts {
				s, err := extutil.String("Replace", args[i])
				if err != nil {
					return nil, err
				}
				parts[i] = s
			}
			return strings.ReplaceAll(parts[0], parts[1], parts[2]), nil
		},
	}
}

// Trim returns the definition for Trim(str).
func Trim() functions.CustomFunctionDef {
	return oneString("Trim", strings.TrimSpace)
}

// Capitalize returns the definition for Capitalize(str).
// Uppercases the first character, lowercases the rest.
func Capitalize() functions.CustomFunctionDef {
	return oneString("Capitalize", func(str string) string {
		if str == "" {
			return str
		}
		runes := []rune(str)
		runes[0] = unicode.ToUpper(runes[0])
		for i := 1; i < len(runes); i++ {
			runes[i] = unicode.ToLower(runes[i])
		}
		return string(runes)
	})
}

// TitleCase returns the definition for TitleCase(str).
// Uppercases the first character of each word.
func TitleCase() functions.CustomFunctionDef {
	return oneString("TitleCase", func(str string) string {
		return cases.Title(language.Und).String(str)
	})
}

var splitWordsRe = regexp.MustCompile(`[_\-\s]+|([a-z])([A-Z])`)

// splitIntoWords splits on camelCase humps, underscores, dashes and spaces.
func splitIntoWords(str string) []string {
	expanded := splitWordsRe.ReplaceAllStringFunc(str, func(s string) string {
		if len(s) == 2 && s[0] >= 'a' && s[0] <= 'z' {
			return string(s[0]) + " " + string(s[1])
		}
		return " "
	})
	return strings.Fields(expanded)
}

// CamelCase returns the definition for CamelCase(str).
func CamelCase() functions.CustomFunctionDef {
	return oneString("CamelCase", func(str string) string {
		words := splitIntoWords(str)
		if len(words) == 0 {
			return ""
		}
		var b strings.Builder
		b.WriteString(strings.ToLower(words[0]))
		for _, w := range words[1:] {
			runes := []rune(strings.ToLower(w))
			runes[0] = unicode.ToUpper(runes[0])
			b.WriteString(string(runes))
		}
		return b.String()
	})
}

func joinLower(str, sep string) string {
	words := splitIntoWords(str)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, sep)
}

// SnakeCase returns the definition for SnakeCase(str).
func SnakeCase() functions.CustomFunctionDef {
	return oneString("SnakeCase", func(str string) string { return joinLower(str, "_") })
}

// KebabCase returns the definition for KebabCase(str).
func KebabCase() functions.CustomFunctionDef {
	return oneString("KebabCase", func(str string) string { return joinLower(str, "-") })
}

// Repeat returns the definition for Repeat(str, n).
func Repeat() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "Repeat",
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(_ context.Context, args ...any) (any, error) {
			str, err := extutil.String("Repeat", args[0])
			if err != nil {
				return nil, err
			}
			n, err := extutil.Int("Repeat", args[1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("Repeat: second argument must be a non-negative integer")
			}
			return strings.Repeat(str, int(n)), nil
		},
	}
}
