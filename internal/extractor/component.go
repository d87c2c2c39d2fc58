package extractor

import (
	"time"

	"github.com/mimir-sbom/mimir/elf"
)

// Result is one file's extracted composition metadata. Slices keep
// first-seen order and contain no duplicates.
type Result struct {
	SourceFiles  []string     `json:"source_files"`
	CompileUnits []string     `json:"compile_units"`
	Functions    []string     `json:"functions"`
	Symbols      []elf.Symbol `json:"symbols"`
}

// ComponentInfo is the record handed to SBOM serialization: the extraction
// result plus the file identity fields caching validates against.
type ComponentInfo struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	FileSize     int64     `json:"file_size"`
	Checksum     string    `json:"checksum,omitempty"`
	HasDebugInfo bool      `json:"has_debug_info"`
	ExtractedAt  time.Time `json:"extracted_at"`

	SourceFiles  []string     `json:"source_files"`
	CompileUnits []string     `json:"compile_units"`
	Functions    []string     `json:"functions"`
	Symbols      []elf.Symbol `json:"symbols,omitempty"`
}

// stringSet deduplicates while preserving first-seen order.
type stringSet struct {
	seen  map[string]struct{}
	items []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: map[string]struct{}{}}
}

func (s *stringSet) add(item string) {
	if item == "" {
		return
	}
	if _, dup := s.seen[item]; dup {
		return
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
}

func (s *stringSet) addAll(items []string) {
	for _, item := range items {
		s.add(item)
	}
}

func (s *stringSet) list() []string { return s.items }

func (s *stringSet) empty() bool { return len(s.items) == 0 }
