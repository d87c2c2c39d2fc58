package cache

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/elastic/go-sysinfo"
	"github.com/pkg/errors"

	"github.com/mimir-sbom/mimir/version"
)

// snapshot is the on-disk form of the metadata cache table. The host stamp
// records where the snapshot was produced; validation still happens against
// the live filesystem after a reload.
type snapshot struct {
	Version string                 `json:"version"`
	SavedAt time.Time              `json:"saved_at"`
	Host    snapshotHost           `json:"host"`
	Entries map[string]*CacheEntry `json:"entries"`
}

type snapshotHost struct {
	Hostname     string `json:"hostname,omitempty"`
	OS           string `json:"os,omitempty"`
	Architecture string `json:"architecture,omitempty"`
}

// SaveToFile writes the whole table as JSON.
func (c *MetadataCache) SaveToFile(path string) error {
	snap := snapshot{
		Version: version.VERSION,
		SavedAt: time.Now(),
		Host:    hostStamp(),
		Entries: map[string]*CacheEntry{},
	}
	c.mu.Lock()
	for key, entry := range c.entries {
		copied := *entry
		snap.Entries[key] = &copied
	}
	c.mu.Unlock()

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return errors.WithMessage(err, "marshal cache snapshot")
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFromFile replaces the table with a previously saved snapshot.
// Size/mtime validation fields round-trip, so Get/Contains behave as they
// did before the save.
func (c *MetadataCache) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return errors.WithMessage(err, "unmarshal cache snapshot")
	}

	keys := make([]string, 0, len(snap.Entries))
	for key := range snap.Entries {
		keys = append(keys, key)
	}
	// Insertion order is not serialized; oldest-timestamp-first is the
	// closest reconstruction for eviction purposes.
	sort.Slice(keys, func(i, j int) bool {
		return snap.Entries[keys[i]].Timestamp.Before(snap.Entries[keys[j]].Timestamp)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*CacheEntry{}
	c.order = nil
	for _, key := range keys {
		c.entries[key] = snap.Entries[key]
		c.order = append(c.order, key)
	}
	return nil
}

func hostStamp() (stamp snapshotHost) {
	host, err := sysinfo.Host()
	if err != nil {
		return
	}
	info := host.Info()
	stamp.Hostname = info.Hostname
	stamp.Architecture = info.Architecture
	if info.OS != nil {
		stamp.OS = info.OS.Name
	}
	return
}
