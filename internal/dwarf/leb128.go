// Package dwarf is a self-contained reader for the DWARF sections this
// engine needs: abbreviation tables, the .debug_info DIE stream and the
// .debug_line header file tables. It decodes bytes directly so that damaged
// units can be skipped without losing the rest of the file.
package dwarf

import "github.com/pkg/errors"

var (
	TruncatedError   = errors.New("truncated DWARF data")
	OverlongError    = errors.New("LEB128 longer than 10 groups")
	UnknownFormError = errors.New("unknown attribute form")
	BadAbbrevError   = errors.New("abbreviation code not in table")
	UnsupportedError = errors.New("unsupported DWARF flavor")
)

const maxLebGroups = 10

// Uleb128 decodes an unsigned LEB128 starting at off, returning the value
// and the number of bytes consumed. It never reads past len(buf).
func Uleb128(buf []byte, off int) (v uint64, n int, err error) {
	var shift uint
	for {
		if off+n >= len(buf) {
			return 0, 0, errors.Wrap(TruncatedError, "ULEB128")
		}
		if n == maxLebGroups {
			return 0, 0, OverlongError
		}
		b := buf[off+n]
		n++
		if shift < 64 {
			v |= uint64(b&0x7f) << shift
		}
		if b&0x80 == 0 {
			return
		}
		shift += 7
	}
}

// Sleb128 decodes a signed LEB128, sign-extending the final group.
func Sleb128(buf []byte, off int) (v int64, n int, err error) {
	var shift uint
	var b byte
	for {
		if off+n >= len(buf) {
			return 0, 0, errors.Wrap(TruncatedError, "SLEB128")
		}
		if n == maxLebGroups {
			return 0, 0, OverlongError
		}
		b = buf[off+n]
		n++
		if shift < 64 {
			v |= int64(b&0x7f) << shift
		}
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		v |= -1 << shift
	}
	return
}

// AppendUleb128 encodes v, for fixture building and round-trip tests.
func AppendUleb128(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// AppendSleb128 encodes v as signed LEB128.
func AppendSleb128(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		dst = append(dst, b)
		if done {
			return dst
		}
	}
}
