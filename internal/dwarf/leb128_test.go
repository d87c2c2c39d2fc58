package dwarf_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-sbom/mimir/internal/dwarf"
)

func TestUleb128RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 0x7f, 0x80, 0x81, 300, 1 << 14, 1<<32 - 1, 1 << 32, math.MaxUint64} {
		enc := dwarf.AppendUleb128(nil, v)
		got, n, err := dwarf.Uleb128(enc, 0)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n, "must consume exactly the encoded bytes")
	}
}

func TestSleb128RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, -64, 64, -65, 300, -300, math.MaxInt64, math.MinInt64} {
		enc := dwarf.AppendSleb128(nil, v)
		got, n, err := dwarf.Sleb128(enc, 0)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
		assert.Equal(t, len(enc), n)
	}
}

func TestUleb128Offset(t *testing.T) {
	buf := append([]byte{0xde, 0xad}, dwarf.AppendUleb128(nil, 624485)...)
	v, n, err := dwarf.Uleb128(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(624485), v)
	assert.Equal(t, 3, n)
}

func TestLeb128Truncated(t *testing.T) {
	// Continuation bit set on the last available byte.
	_, _, err := dwarf.Uleb128([]byte{0x80, 0x80}, 0)
	assert.ErrorIs(t, err, dwarf.TruncatedError)

	_, _, err = dwarf.Sleb128([]byte{0xff}, 0)
	assert.ErrorIs(t, err, dwarf.TruncatedError)

	_, _, err = dwarf.Uleb128(nil, 0)
	assert.ErrorIs(t, err, dwarf.TruncatedError)

	_, _, err = dwarf.Uleb128([]byte{0x01}, 5)
	assert.ErrorIs(t, err, dwarf.TruncatedError)
}

func TestLeb128Overlong(t *testing.T) {
	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := dwarf.Uleb128(buf, 0)
	assert.ErrorIs(t, err, dwarf.OverlongError)
	_, _, err = dwarf.Sleb128(buf, 0)
	assert.ErrorIs(t, err, dwarf.OverlongError)
}

func TestSleb128SignExtension(t *testing.T) {
	// -2 encodes to a single 0x7e group; the sign bit must extend.
	v, n, err := dwarf.Sleb128([]byte{0x7e}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v)
	assert.Equal(t, 1, n)
}
