package values

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sandrolain/goncalc/pkg/types"
)

// DefaultCulture is the collation language used when none is configured.
var DefaultCulture = language.English

type compareMode uint8

const (
	modeCulture compareMode = iota
	modeOrdinal
	modeOrdinalFold
)

// StringComparer orders strings according to the string matching options.
//
// Ordinal comparison is byte-wise. Culture comparison uses a collator for the
// configured language. Collators and case folders are not safe for concurrent
// use, so they are pooled; a StringComparer itself is safe to share.
type StringComparer struct {
	mode    compareMode
	tag     language.Tag
	folders sync.Pool // *cases.Caser
	coll    sync.Pool // *collate.Collator
}

// NewStringComparer builds the comparer selected by MatchStringsOrdinal and
// MatchStringsWithIgnoreCase.
func NewStringComparer(opts types.EvaluateOptions, tag language.Tag) *StringComparer {
	c := &StringComparer{tag: tag}
	ignoreCase := opts.Has(types.MatchStringsWithIgnoreCase)

	switch {
	case opts.Has(types.MatchStringsOrdinal) && ignoreCase:
		c.mode = modeOrdinalFold
	case opts.Has(types.MatchStringsOrdinal):
		c.mode = modeOrdinal
	default:
		c.mode = modeCulture
	}

	c.folders.New = func() any {
		caser := cases.Fold()
		return &caser
	}
	c.coll.New = func() any {
		if ignoreCase {
			return collate.New(tag, collate.IgnoreCase)
		}
		return collate.New(tag)
	}
	return c
}

// Compare returns -1, 0 or +1.
func (c *StringComparer) Compare(a, b string) int {
	switch c.mode {
	case modeOrdinal:
		return strings.Compare(a, b)
	case modeOrdinalFold:
		caser := c.folders.Get().(*cases.Caser)
		fa, fb := caser.String(a), caser.String(b)
		c.folders.Put(caser)
		return strings.Compare(fa, fb)
	default:
		coll := c.coll.Get().(*collate.Collator)
		r := coll.CompareString(a, b)
		c.coll.Put(coll)
		return r
	}
}

// Equal reports whether a and b compare equal.
func (c *StringComparer) Equal(a, b string) bool {
	if c.mode == modeOrdinal {
		return a == b
	}
	return c.Compare(a, b) == 0
}
