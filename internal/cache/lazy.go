// Package cache holds the two concurrency-safe caches in front of
// extraction: a lazy symbol cache keyed by path and a metadata cache with
// file-identity invalidation, persistence and statistics.
package cache

import (
	"sync"

	"github.com/mimir-sbom/mimir/elf"
)

const (
	// Caching tiny symbol lists costs more bookkeeping than re-parsing
	// them; big shared libraries are the payoff case.
	DefaultMinSymbolsToCache = 100
	DefaultMaxEntries        = 100
)

// ExtractFunc produces the symbols for a path on a cache miss.
type ExtractFunc func(path string) ([]elf.Symbol, error)

type SymbolCacheOptions struct {
	MaxEntries        int
	MinSymbolsToCache int
}

// SymbolCache memoizes symbol extraction per file path. The lock covers
// table lookups and inserts only; extraction runs unlocked, so duplicate
// concurrent misses may both extract and one write wins.
type SymbolCache struct {
	extract ExtractFunc

	mu      sync.Mutex
	entries map[string][]elf.Symbol
	order   []string
	hits    uint64
	misses  uint64

	maxEntries int
	minToCache int
}

func NewSymbolCache(extract ExtractFunc, opts SymbolCacheOptions) *SymbolCache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.MinSymbolsToCache <= 0 {
		opts.MinSymbolsToCache = DefaultMinSymbolsToCache
	}
	return &SymbolCache{
		extract:    extract,
		entries:    map[string][]elf.Symbol{},
		maxEntries: opts.MaxEntries,
		minToCache: opts.MinSymbolsToCache,
	}
}

// GetSymbols returns cached symbols or extracts them. Results below the
// minimum-to-cache threshold are returned but never stored, so repeated
// calls for small files keep counting as misses.
func (c *SymbolCache) GetSymbols(path string) (symbols []elf.Symbol, err error) {
	c.mu.Lock()
	if cached, ok := c.entries[path]; ok {
		c.hits++
		c.mu.Unlock()
		return cached, nil
	}
	c.misses++
	c.mu.Unlock()

	symbols, err = c.extract(path)
	if err != nil {
		return nil, err
	}
	if len(symbols) < c.minToCache {
		return symbols, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; ok {
		// A concurrent miss for the same path beat us; keep its write.
		return symbols, nil
	}
	if len(c.order) >= c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[path] = symbols
	c.order = append(c.order, path)
	return symbols, nil
}

// ClearCache drops every entry. Counters survive; they reset only through
// ResetStats.
func (c *SymbolCache) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]elf.Symbol{}
	c.order = nil
}

// Stats returns the hit and miss counters.
func (c *SymbolCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *SymbolCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses = 0, 0
}

// Len is the number of live entries.
func (c *SymbolCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether a path is currently cached, without touching
// the counters.
func (c *SymbolCache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[path]
	return ok
}
