// Package cache memoizes parsed formulas by source text.
//
// Entries hold their tree through a weak pointer: an entry is usable only while
// something other than the cache still references the parsed expression. Dead
// entries are detected on lookup (and reparsed) and purged by a sweep that runs
// after every insert.
//
// # Example
//
//	c := cache.New(func(text string) (*types.Expression, error) {
//	    return parser.Parse(text)
//	})
//	expr, err := c.GetOrParse("[a] + [b]", false)
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/tidwall/tinylru"
	"golang.org/x/sync/singleflight"

	"github.com/sandrolain/goncalc/pkg/types"
)

// ParseFunc turns source text into a parsed expression.
type ParseFunc func(text string) (*types.Expression, error)

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits     int64 // lookups answered by a live entry
	Misses   int64 // lookups that had to parse
	Parses   int64 // calls to the parse function
	Released int64 // entries purged because their tree was collected
}

// Cache is a concurrency-safe expression cache with weak liveness.
//
// Lookups take the read lock only, so readers never block each other; inserts
// and sweeps take the write lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]weak.Pointer[types.Expression]
	retain  *tinylru.LRU // strong references to recently used trees; nil when disabled

	enabled   atomic.Bool
	retention int
	parse     ParseFunc
	group     singleflight.Group
	logger    *slog.Logger

	hits, misses, parses, released atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for debug traces.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithRetention keeps the n most recently used trees strongly reachable, so
// they survive garbage collection even when callers drop them. Zero, the
// default, means pure weak liveness.
func WithRetention(n int) Option {
	return func(c *Cache) {
		c.retention = n
	}
}

// New creates an enabled cache backed by parse.
func New(parse ParseFunc, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]weak.Pointer[types.Expression]),
		parse:   parse,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.retain = c.newRetention()
	c.enabled.Store(true)
	return c
}

func (c *Cache) newRetention() *tinylru.LRU {
	if c.retention <= 0 {
		return nil
	}
	lru := new(tinylru.LRU)
	lru.Resize(c.retention)
	return lru
}

// GetOrParse returns the cached tree for text, parsing it when the cache is
// disabled, bypass is set, or the entry is missing or dead.
// Parse failures are never stored: the same error is returned on every call.
func (c *Cache) GetOrParse(text string, bypass bool) (*types.Expression, error) {
	if bypass || !c.enabled.Load() {
		c.parses.Add(1)
		return c.parse(text)
	}

	if expr, ok := c.lookup(text); ok {
		c.hits.Add(1)
		c.logger.Debug("expression retrieved from cache", "expression", text)
		return expr, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(text, func() (any, error) {
		// Another caller may have stored it while we waited for the group.
		if expr, ok := c.lookup(text); ok {
			return expr, nil
		}
		c.parses.Add(1)
		expr, err := c.parse(text)
		if err != nil {
			return nil, err
		}
		c.store(text, expr)
		return expr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Expression), nil
}

// lookup returns the live tree stored for text.
func (c *Cache) lookup(text string) (*types.Expression, bool) {
	c.mu.RLock()
	wp, ok := c.entries[text]
	retain := c.retain
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	expr := wp.Value()
	if expr == nil {
		return nil, false
	}
	if retain != nil {
		retain.Set(text, expr)
	}
	return expr, true
}

// store inserts a fresh weak pointer and sweeps dead entries.
func (c *Cache) store(text string, expr *types.Expression) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The cache may have been disabled while the parse was running.
	if !c.enabled.Load() {
		return
	}
	c.entries[text] = weak.Make(expr)
	if c.retain != nil {
		c.retain.Set(text, expr)
	}
	c.logger.Debug("expression added to cache", "expression", text)
	c.sweepLocked()
}

// Sweep removes every entry whose tree has been collected and returns how
// many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked()
}

// sweepLocked must be called with c.mu held for writing.
func (c *Cache) sweepLocked() int {
	removed := 0
	for key, wp := range c.entries {
		if wp.Value() == nil {
			delete(c.entries, key)
			removed++
			c.logger.Debug("cache entry released", "expression", key)
		}
	}
	c.released.Add(int64(removed))
	return removed
}

// SetEnabled turns memoization on or off. Disabling drops every entry, live
// or not; enabling starts from an empty cache.
func (c *Cache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled.Store(enabled)
	if !enabled {
		c.entries = make(map[string]weak.Pointer[types.Expression])
		c.retain = c.newRetention()
	}
}

// Enabled reports whether memoization is on.
func (c *Cache) Enabled() bool {
	return c.enabled.Load()
}

// Len returns the number of entries, dead ones included until the next sweep.
func (c *Cache) Len() int {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return n
}

// Invalidate removes a single entry from the cache.
func (c *Cache) Invalidate(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, text)
	if c.retain != nil {
		c.retain.Delete(text)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Parses:   c.parses.Load(),
		Released: c.released.Load(),
	}
}
