package extractor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-sbom/mimir/internal/elftest"
	"github.com/mimir-sbom/mimir/internal/extractor"
)

func debugBinary(t *testing.T) string {
	t.Helper()
	return elftest.NewBuilder().
		Add(".debug_abbrev", elftest.SHT_PROGBITS, elftest.DebugAbbrev()).
		Add(".debug_info", elftest.SHT_PROGBITS, elftest.DebugInfo([]elftest.Unit{
			{Name: "a.c", Funcs: []string{"main"}},
			{Name: "b.c", Funcs: []string{"helper"}},
		})).
		Add(".debug_line", elftest.SHT_PROGBITS, elftest.DebugLine([]string{"a.c", "b.c"})).
		WriteFile(t)
}

func TestExtractWithDwarf(t *testing.T) {
	ext := extractor.New(extractor.Options{})
	res, err := ext.Extract(debugBinary(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"a.c", "b.c"}, res.SourceFiles)
	assert.Equal(t, []string{"a.c", "b.c"}, res.CompileUnits)
	assert.Contains(t, res.Functions, "main")
	assert.Contains(t, res.Functions, "helper")
}

func TestExtractSingleFieldVariants(t *testing.T) {
	ext := extractor.New(extractor.Options{})
	path := debugBinary(t)

	sources, err := ext.ExtractSourceFiles(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.c", "b.c"}, sources)

	units, err := ext.ExtractCompileUnits(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.c", "b.c"}, units)

	functions, err := ext.ExtractFunctions(path)
	require.NoError(t, err)
	assert.Contains(t, functions, "main")
}

func TestExtractFallsBackToSymtab(t *testing.T) {
	// No debug sections at all: functions and source files must come from
	// the symbol table.
	path := elftest.NewBuilder().
		Add(".text", elftest.SHT_PROGBITS, []byte{0xc3}).
		AddSymtab([]elftest.Sym{
			{Name: "c.c", Info: 0x04, Shndx: 0xfff1},
			{Name: "main", Info: 0x12, Shndx: 1},
			{Name: "global_counter", Info: 0x11, Shndx: 1},
		}).
		WriteFile(t)

	ext := extractor.New(extractor.Options{})
	res, err := ext.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"main"}, res.Functions)
	assert.Equal(t, []string{"c.c"}, res.SourceFiles)
	assert.Empty(t, res.CompileUnits)
	assert.Len(t, res.Symbols, 3)
}

func TestExtractDwarfWinsOverSymtab(t *testing.T) {
	// Both DWARF and a symbol table present: structured names win, the
	// symbol table only contributes the symbol list.
	path := elftest.NewBuilder().
		Add(".debug_abbrev", elftest.SHT_PROGBITS, elftest.DebugAbbrev()).
		Add(".debug_info", elftest.SHT_PROGBITS, elftest.DebugInfo([]elftest.Unit{
			{Name: "real.c", Funcs: []string{"real_main"}},
		})).
		AddSymtab([]elftest.Sym{
			{Name: "stripped_name", Info: 0x12, Shndx: 1},
		}).
		WriteFile(t)

	ext := extractor.New(extractor.Options{})
	res, err := ext.Extract(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"real.c"}, res.SourceFiles)
	assert.Equal(t, []string{"real_main"}, res.Functions)
	require.Len(t, res.Symbols, 1)
	assert.Equal(t, "stripped_name", res.Symbols[0].Name)
}

func TestExtractHeuristicOnNonElf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob")
	raw := append([]byte("garbage header\xff"), "/src/deep/tree/module.c\x00"...)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	ext := extractor.New(extractor.Options{})
	res, err := ext.Extract(path)
	require.Error(t, err, "structural failure is still reported")
	require.NotNil(t, res, "alongside the partial result")
	assert.Equal(t, []string{"/src/deep/tree/module.c"}, res.SourceFiles)
	assert.Empty(t, res.Functions)
}

func TestExtractMissingFile(t *testing.T) {
	ext := extractor.New(extractor.Options{})
	res, err := ext.Extract(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestHasDebugInfo(t *testing.T) {
	ext := extractor.New(extractor.Options{})

	ok, err := ext.HasDebugInfo(debugBinary(t))
	require.NoError(t, err)
	assert.True(t, ok)

	bare := elftest.NewBuilder().
		Add(".text", elftest.SHT_PROGBITS, []byte{0xc3}).
		WriteFile(t)
	ok, err = ext.HasDebugInfo(bare)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractComponent(t *testing.T) {
	ext := extractor.New(extractor.Options{})
	path := debugBinary(t)

	comp, err := ext.ExtractComponent(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(path), comp.Name)
	assert.Equal(t, path, comp.Path)
	assert.True(t, comp.HasDebugInfo)
	assert.NotEmpty(t, comp.Checksum)
	assert.False(t, comp.ExtractedAt.IsZero())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, st.Size(), comp.FileSize)
	assert.Equal(t, []string{"a.c", "b.c"}, comp.SourceFiles)
}

func TestIsSystemLibrary(t *testing.T) {
	for path, want := range map[string]bool{
		"/usr/lib/x86_64-linux-gnu/libz.so.1": true,
		"/lib64/libc.so.6":                    true,
		"/opt/vendor/libc.so.6":               true,
		"/home/dev/project/bin/app":           false,
		"/usr/libexec/helper":                 false,
	} {
		assert.Equal(t, want, extractor.IsSystemLibrary(path), path)
	}
}
