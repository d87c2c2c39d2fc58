package cache_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-sbom/mimir/elf"
	"github.com/mimir-sbom/mimir/internal/cache"
)

func fakeSymbols(n int) []elf.Symbol {
	symbols := make([]elf.Symbol, n)
	for i := range symbols {
		symbols[i] = elf.Symbol{Name: fmt.Sprintf("sym_%d", i), Value: uint64(i), Defined: true}
	}
	return symbols
}

func TestSymbolCacheHitAfterMiss(t *testing.T) {
	var calls int32
	c := cache.NewSymbolCache(func(path string) ([]elf.Symbol, error) {
		atomic.AddInt32(&calls, 1)
		return fakeSymbols(150), nil
	}, cache.SymbolCacheOptions{})

	first, err := c.GetSymbols("/lib/libbig.so")
	require.NoError(t, err)
	second, err := c.GetSymbols("/lib/libbig.so")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second call must be served from cache")

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
	assert.Equal(t, 1, c.Len())
}

func TestSymbolCacheBelowThresholdNeverStored(t *testing.T) {
	var calls int32
	c := cache.NewSymbolCache(func(path string) ([]elf.Symbol, error) {
		atomic.AddInt32(&calls, 1)
		return fakeSymbols(3), nil
	}, cache.SymbolCacheOptions{})

	for i := 0; i < 2; i++ {
		symbols, err := c.GetSymbols("/tmp/tiny")
		require.NoError(t, err)
		assert.Len(t, symbols, 3)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.False(t, c.Contains("/tmp/tiny"))
	hits, misses := c.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestSymbolCacheEvictsOldestInsertion(t *testing.T) {
	c := cache.NewSymbolCache(func(path string) ([]elf.Symbol, error) {
		return fakeSymbols(10), nil
	}, cache.SymbolCacheOptions{MaxEntries: 2, MinSymbolsToCache: 1})

	for _, path := range []string{"a", "b", "c"} {
		_, err := c.GetSymbols(path)
		require.NoError(t, err)
	}

	assert.False(t, c.Contains("a"), "oldest insertion must be evicted")
	assert.True(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, 2, c.Len())

	_, err := c.GetSymbols("a")
	require.NoError(t, err)
	_, misses := c.Stats()
	assert.Equal(t, uint64(4), misses)
}

func TestSymbolCacheExtractError(t *testing.T) {
	boom := errors.New("no such file")
	c := cache.NewSymbolCache(func(path string) ([]elf.Symbol, error) {
		return nil, boom
	}, cache.SymbolCacheOptions{})

	_, err := c.GetSymbols("/gone")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
	_, misses := c.Stats()
	assert.Equal(t, uint64(1), misses)
}

func TestSymbolCacheClearKeepsCounters(t *testing.T) {
	c := cache.NewSymbolCache(func(path string) ([]elf.Symbol, error) {
		return fakeSymbols(200), nil
	}, cache.SymbolCacheOptions{})

	_, err := c.GetSymbols("/lib/x.so")
	require.NoError(t, err)
	_, err = c.GetSymbols("/lib/x.so")
	require.NoError(t, err)

	c.ClearCache()
	assert.Equal(t, 0, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	c.ResetStats()
	hits, misses = c.Stats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)
}

func TestSymbolCacheConcurrentAccess(t *testing.T) {
	c := cache.NewSymbolCache(func(path string) ([]elf.Symbol, error) {
		return fakeSymbols(500), nil
	}, cache.SymbolCacheOptions{})

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			symbols, err := c.GetSymbols("/lib/shared.so")
			assert.NoError(t, err)
			assert.Len(t, symbols, 500)
		}()
	}
	wg.Wait()

	hits, misses := c.Stats()
	assert.Equal(t, uint64(workers), hits+misses, "every call counts exactly once")
	assert.Equal(t, 1, c.Len(), "duplicate misses collapse to one entry")
}
