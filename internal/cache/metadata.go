package cache

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	log "github.com/sirupsen/logrus"

	"github.com/mimir-sbom/mimir/internal/extractor"
)

const (
	DefaultMaxSize = 1000
	DefaultMaxAge  = time.Hour
)

// CacheEntry pairs a component record with the identity of the file it was
// extracted from. Invalidation flips Valid in place; the entry stays
// inspectable until Cleanup or an explicit removal.
type CacheEntry struct {
	Component    *extractor.ComponentInfo `json:"component"`
	Timestamp    time.Time                `json:"timestamp"`
	FileHash     string                   `json:"file_hash,omitempty"`
	FileSize     int64                    `json:"file_size"`
	LastModified time.Time                `json:"last_modified"`
	Valid        bool                     `json:"valid"`
}

type MetadataCacheOptions struct {
	MaxSize int
	MaxAge  time.Duration
}

// MetadataCache caches full per-file extraction results keyed by path.
// Validation on Get compares stored size and mtime against the file on
// disk; staleness is silent and resolved by the caller re-extracting.
type MetadataCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	order   []string
	maxSize int
	maxAge  time.Duration
	enabled bool
	hits    uint64
	misses  uint64

	watcher *dirWatcher
}

func NewMetadataCache(opts MetadataCacheOptions) *MetadataCache {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	return &MetadataCache{
		entries: map[string]*CacheEntry{},
		maxSize: opts.MaxSize,
		maxAge:  opts.MaxAge,
		enabled: true,
	}
}

// Get returns the cached record if the entry is still valid for the file
// currently on disk. A mismatch marks the entry invalid and counts a miss.
func (c *MetadataCache) Get(path string) (*extractor.ComponentInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return nil, false
	}
	entry, ok := c.entries[path]
	if !ok || !entry.Valid {
		c.misses++
		return nil, false
	}
	st, err := os.Stat(path)
	if err != nil || st.Size() != entry.FileSize || !st.ModTime().Equal(entry.LastModified) {
		entry.Valid = false
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.Component, true
}

// Put stores a record keyed by path, stamped with the file's current size,
// mtime and content hash. Over MaxSize the oldest insertion is evicted.
func (c *MetadataCache) Put(path string, component *extractor.ComponentInfo) bool {
	st, err := os.Stat(path)
	if err != nil {
		return false
	}
	var hash string
	if raw, err := os.ReadFile(path); err == nil {
		hash = strconv.FormatUint(xxhash.Sum64(raw), 16)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return false
	}
	if _, exists := c.entries[path]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, path)
	}
	c.entries[path] = &CacheEntry{
		Component:    component,
		Timestamp:    time.Now(),
		FileHash:     hash,
		FileSize:     st.Size(),
		LastModified: st.ModTime(),
		Valid:        true,
	}
	return true
}

// Validate re-checks an entry's stored content hash against the file.
func (c *MetadataCache) Validate(path string) bool {
	c.mu.Lock()
	entry, ok := c.entries[path]
	c.mu.Unlock()
	if !ok || entry.FileHash == "" {
		return false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if strconv.FormatUint(xxhash.Sum64(raw), 16) == entry.FileHash {
		return true
	}
	c.mu.Lock()
	entry.Valid = false
	c.mu.Unlock()
	return false
}

func (c *MetadataCache) Remove(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; !ok {
		return false
	}
	delete(c.entries, path)
	c.dropFromOrder(path)
	return true
}

func (c *MetadataCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*CacheEntry{}
	c.order = nil
}

// Contains reports a live, valid entry without counting a hit or miss and
// without consulting the disk.
func (c *MetadataCache) Contains(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path]
	return ok && entry.Valid
}

// Cleanup removes invalidated and over-age entries in bulk.
func (c *MetadataCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := time.Now().Add(-c.maxAge)
	removed := 0
	for path, entry := range c.entries {
		if !entry.Valid || entry.Timestamp.Before(cutoff) {
			delete(c.entries, path)
			c.dropFromOrder(path)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("metadata cache: cleaned up %d entries", removed)
	}
	return removed
}

// InvalidateDirectory marks invalid every entry whose key lives under the
// directory, returning the count affected. Entries are not removed.
func (c *MetadataCache) InvalidateDirectory(dir string) int {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for path, entry := range c.entries {
		if entry.Valid && strings.HasPrefix(path, prefix) {
			entry.Valid = false
			count++
		}
	}
	return count
}

// Statistics reports counters and table occupancy.
func (c *MetadataCache) Statistics() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	valid := uint64(0)
	for _, entry := range c.entries {
		if entry.Valid {
			valid++
		}
	}
	return map[string]uint64{
		"hits":          c.hits,
		"misses":        c.misses,
		"entries":       uint64(len(c.entries)),
		"valid_entries": valid,
	}
}

// HitRate is hits over lookups, as a percentage.
func (c *MetadataCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

func (c *MetadataCache) ResetStatistics() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses = 0, 0
}

func (c *MetadataCache) SetMaxSize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.maxSize = n
	}
}

func (c *MetadataCache) SetMaxAge(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.maxAge = d
	}
}

func (c *MetadataCache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

func (c *MetadataCache) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// dropFromOrder must run with c.mu held.
func (c *MetadataCache) dropFromOrder(path string) {
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
