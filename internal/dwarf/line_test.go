package dwarf_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-sbom/mimir/internal/dwarf"
	"github.com/mimir-sbom/mimir/internal/elftest"
)

func TestParseLineFiles(t *testing.T) {
	files, errs := dwarf.ParseLineFiles(elftest.DebugLine([]string{"a.c", "b.c"}), nil)
	require.Empty(t, errs)
	assert.Equal(t, []string{"a.c", "b.c"}, files)
}

func TestParseLineFilesMultipleUnitsDedup(t *testing.T) {
	line := append(elftest.DebugLine([]string{"a.c", "shared.h"}),
		elftest.DebugLine([]string{"b.c", "shared.h"})...)
	files, errs := dwarf.ParseLineFiles(line, nil)
	require.Empty(t, errs)
	assert.Equal(t, []string{"a.c", "shared.h", "b.c"}, files)
}

func TestParseLineFilesBadVersionIsolated(t *testing.T) {
	// First unit claims version 5; the second is fine.
	bad := make([]byte, 6)
	binary.LittleEndian.PutUint32(bad[0:], 2)
	binary.LittleEndian.PutUint16(bad[4:], 5)

	line := append(bad, elftest.DebugLine([]string{"ok.c"})...)
	files, errs := dwarf.ParseLineFiles(line, nil)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], dwarf.UnsupportedError)
	assert.Equal(t, []string{"ok.c"}, files)
}

func TestParseLineFilesTruncatedUnit(t *testing.T) {
	line := elftest.DebugLine([]string{"a.c"})
	// Inflate the declared unit length beyond the buffer.
	binary.LittleEndian.PutUint32(line[0:], uint32(len(line)+10))
	files, errs := dwarf.ParseLineFiles(line, nil)
	assert.Empty(t, files)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], dwarf.TruncatedError)
}

func TestParseLineFilesEmptySection(t *testing.T) {
	files, errs := dwarf.ParseLineFiles(nil, nil)
	assert.Empty(t, files)
	assert.Empty(t, errs)
}
