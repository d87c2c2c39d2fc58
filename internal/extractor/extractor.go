// Package extractor composes the section locator, the DWARF walker, the
// symbol table reader and the heuristic scanner into one per-file
// "extract everything" operation with an ordered fallback chain.
package extractor

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mimir-sbom/mimir/elf"
)

// Options is the host-facing configuration surface.
type Options struct {
	Verbose           bool
	IncludeSystemLibs bool
}

type Extractor struct {
	opts Options
}

func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract runs the full fallback chain for one file. File-access failures
// return an error with no result; structural ELF failures degrade to a
// whole-file heuristic scan and return the partial result alongside the
// structural error.
func (e *Extractor) Extract(path string) (*Result, error) {
	f, err := elf.Open(path)
	if err != nil {
		if raw, readErr := os.ReadFile(path); readErr == nil {
			// Not ELF (or a mangled one): the raw scan is all that is left.
			log.Debugf("extract %s: %s, degrading to raw scan", path, err)
			return &Result{SourceFiles: elf.ScanSourcePaths(raw)}, err
		}
		return nil, errors.WithMessage(err, path)
	}

	c := newCollector()
	for _, s := range strategies() {
		s.extract(f, c)
		if e.opts.Verbose {
			log.Debugf("extract %s: after %s: %d sources, %d units, %d functions",
				path, s.name(), len(c.sourceFiles.list()), len(c.compileUnits.list()), len(c.functions.list()))
		}
	}
	return &Result{
		SourceFiles:  c.sourceFiles.list(),
		CompileUnits: c.compileUnits.list(),
		Functions:    c.functions.list(),
		Symbols:      c.symbols,
	}, nil
}

// ExtractSourceFiles is the single-field convenience variant. Like Extract,
// it can return a partial list alongside a structural error.
func (e *Extractor) ExtractSourceFiles(path string) ([]string, error) {
	res, err := e.Extract(path)
	if res == nil {
		return nil, err
	}
	return res.SourceFiles, err
}

func (e *Extractor) ExtractCompileUnits(path string) ([]string, error) {
	res, err := e.Extract(path)
	if res == nil {
		return nil, err
	}
	return res.CompileUnits, err
}

func (e *Extractor) ExtractFunctions(path string) ([]string, error) {
	res, err := e.Extract(path)
	if res == nil {
		return nil, err
	}
	return res.Functions, err
}

// ExtractSymbols reads the symbol table only; it never walks debug info.
func (e *Extractor) ExtractSymbols(path string) ([]elf.Symbol, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return f.Symbols()
}

// HasDebugInfo probes for .debug_info without walking it.
func (e *Extractor) HasDebugInfo(path string) (bool, error) {
	f, err := elf.Open(path)
	if err != nil {
		return false, errors.WithMessage(err, path)
	}
	return f.HasSection(".debug_info"), nil
}

// ExtractComponent wraps Extract into the component record consumed by SBOM
// serialization, stamped with the identity fields the metadata cache needs.
func (e *Extractor) ExtractComponent(path string) (*ComponentInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	res, extractErr := e.Extract(path)
	if res == nil {
		return nil, extractErr
	}
	comp := &ComponentInfo{
		Name:         filepath.Base(path),
		Path:         path,
		FileSize:     st.Size(),
		ExtractedAt:  time.Now(),
		SourceFiles:  res.SourceFiles,
		CompileUnits: res.CompileUnits,
		Functions:    res.Functions,
		Symbols:      res.Symbols,
	}
	if raw, err := os.ReadFile(path); err == nil {
		comp.Checksum = strconv.FormatUint(xxhash.Sum64(raw), 16)
	}
	if ok, err := e.HasDebugInfo(path); err == nil {
		comp.HasDebugInfo = ok
	}
	return comp, nil
}
