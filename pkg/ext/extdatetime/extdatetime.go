// Package extdatetime provides extended date/time functions for goncalc
// formulas.
//
// Dates are time.Time values, as produced by #...# literals; string
// arguments are parsed with the same layouts. Units are matched
// case-insensitively: "year", "month", "day", "hour", "minute", "second" and
// "millisecond".
package extdatetime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sandrolain/goncalc/pkg/ext/extutil"
	"github.com/sandrolain/goncalc/pkg/functions"
)

// All returns all extended date/time function definitions.
func All() []functions.CustomFunctionDef {
	return []functions.CustomFunctionDef{
		DateAdd(),
		DateDiff(),
		DatePart(),
		DateStartOf(),
		DateEndOf(),
	}
}

// Registry returns a registry holding every date/time function.
func Registry() *functions.Registry {
	return functions.NewRegistry(All()...)
}

// DateAdd returns the definition for DateAdd(date, amount, unit).
// Adds (or subtracts if negative) the given amount of the specified unit.
func DateAdd() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "DateAdd",
		MinArgs: 3,
		MaxArgs: 3,
		Fn: func(_ context.Context, args ...any) (any, error) {
			t, err := extutil.Time("DateAdd", args[0])
			if err != nil {
				return nil, err
			}
			amount, err := extutil.Int("DateAdd", args[1])
			if err != nil {
				return nil, err
			}
			unit, err := extutil.String("DateAdd", args[2])
			if err != nil {
				return nil, err
			}
			n := int(amount)
			switch strings.ToLower(unit) {
			case "year":
				return t.AddDate(n, 0, 0), nil
			case "month":
				return t.AddDate(0, n, 0), nil
			case "day":
				return t.AddDate(0, 0, n), nil
			}
			d, ok := durations[strings.ToLower(unit)]
			if !ok {
				return nil, fmt.Errorf("DateAdd: unsupported unit %q", unit)
			}
			return t.Add(time.Duration(amount) * d), nil
		},
	}
}

var durations = map[string]time.Duration{
	"hour":        time.Hour,
	"minute":      time.Minute,
	"second":      time.Second,
	"millisecond": time.Millisecond,
}

// DateDiff returns the definition for DateDiff(from, to, unit).
// Returns the number of whole units in to - from.
func DateDiff() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "DateDiff",
		MinArgs: 3,
		MaxArgs: 3,
		Fn: func(_ context.Context, args ...any) (any, error) {
			from, err := extutil.Time("DateDiff", args[0])
			if err != nil {
				return nil, err
			}
			to, err := extutil.Time("DateDiff", args[1])
			if err != nil {
				return nil, err
			}
			unit, err := extutil.String("DateDiff", args[2])
			if err != nil {
				return nil, err
			}
			switch strings.ToLower(unit) {
			case "year":
				years, _ := monthsBetween(from, to)
				return int64(years), nil
			case "month":
				years, months := monthsBetween(from, to)
				return int64(years*12 + months), nil
			case "day":
				return int64(to.Sub(from) / (24 * time.Hour)), nil
			}
			d, ok := durations[strings.ToLower(unit)]
			if !ok {
				return nil, fmt.Errorf("DateDiff: unsupported unit %q", unit)
			}
			return int64(to.Sub(from) / d), nil
		},
	}
}

// DatePart returns the definition for DatePart(date, part).
// Besides the units it accepts "weekday" (0 = Sunday) and "yearday".
func DatePart() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "DatePart",
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(_ context.Context, args ...any) (any, error) {
			t, err := extutil.Time("DatePart", args[0])
			if err != nil {
				return nil, err
			}
			part, err := extutil.String("DatePart", args[1])
			if err != nil {
				return nil, err
			}
			switch strings.ToLower(part) {
			case "year":
				return int64(t.Year()), nil
			case "month":
				return int64(t.Month()), nil
			case "day":
				return int64(t.Day()), nil
			case "hour":
				return int64(t.Hour()), nil
			case "minute":
				return int64(t.Minute()), nil
			case "second":
				return int64(t.Second()), nil
			case "millisecond":
				return int64(t.Nanosecond() / int(time.Millisecond)), nil
			case "weekday":
				return int64(t.Weekday()), nil
			case "yearday":
				return int64(t.YearDay()), nil
			default:
				return nil, fmt.Errorf("DatePart: unsupported part %q", part)
			}
		},
	}
}

// DateStartOf returns the definition for DateStartOf(date, unit).
// Truncates the date to the start of the unit in its own location.
func DateStartOf() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "DateStartOf",
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(_ context.Context, args ...any) (any, error) {
			t, unit, err := dateAndUnit("DateStartOf", args)
			if err != nil {
				return nil, err
			}
			return startOf("DateStartOf", t, unit)
		},
	}
}

// DateEndOf returns the definition for DateEndOf(date, unit).
// Returns the last millisecond of the unit.
func DateEndOf() functions.CustomFunctionDef {
	return functions.CustomFunctionDef{
		Name:    "DateEndOf",
		MinArgs: 2,
		MaxArgs: 2,
		Fn: func(_ context.Context, args ...any) (any, error) {
			t, unit, err := dateAndUnit("DateEndOf", args)
			if err != nil {
				return nil, err
			}
			start, err := startOf("DateEndOf", t, unit)
			if err != nil {
				return nil, err
			}
			var next time.Time
			switch strings.ToLower(unit) {
			case "year":
				next = start.AddDate(1, 0, 0)
			case "month":
				next = start.AddDate(0, 1, 0)
			case "day":
				next = start.AddDate(0, 0, 1)
			default:
				next = start.Add(durations[strings.ToLower(unit)])
			}
			return next.Add(-time.Millisecond), nil
		},
	}
}

func dateAndUnit(fn string, args []any) (time.Time, string, error) {
	t, err := extutil.Time(fn, args[0])
	if err != nil {
		return time.Time{}, "", err
	}
	unit, err := extutil.String(fn, args[1])
	if err != nil {
		return time.Time{}, "", err
	}
	return t, unit, nil
}

func startOf(fn string, t time.Time, unit string) (time.Time, error) {
	y, m, d := t.Date()
	loc := t.Location()
	switch strings.ToLower(unit) {
	case "year":
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc), nil
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), nil
	case "day":
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	case "hour":
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc), nil
	case "minute":
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
	case "second":
		return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	default:
		return time.Time{}, fmt.Errorf("%s: unsupported unit %q", fn, unit)
	}
}

// monthsBetween returns the whole years and remaining months from from to to.
func monthsBetween(from, to time.Time) (years, months int) {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	years = y2 - y1
	months = int(m2) - int(m1)
	if d2 < d1 {
		months--
	}
	if months < 0 {
		years--
		months += 12
	}
	return years, months
}
