package dwarf

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ParseLineFiles recovers the declared file-name tables from every line
// program header in .debug_line (DWARF v2-v4; the v5 header shape is
// reported as a unit-local failure). The line-number program itself is
// never executed: composition extraction only needs the file list.
func ParseLineFiles(line []byte, order binary.ByteOrder) (files []string, unitErrs []error) {
	if order == nil {
		order = binary.LittleEndian
	}
	seen := map[string]struct{}{}
	pos := 0
	for pos < len(line) {
		if len(line)-pos < 4 {
			unitErrs = append(unitErrs, errors.Wrap(TruncatedError, "line unit length"))
			return
		}
		unitLen := uint64(order.Uint32(line[pos:]))
		headerEnd := pos + 4
		if unitLen == dwarf64Marker {
			if len(line)-headerEnd < 8 {
				unitErrs = append(unitErrs, errors.Wrap(TruncatedError, "DWARF64 line unit"))
				return
			}
			unitLen = order.Uint64(line[headerEnd:])
			headerEnd += 8
			unitErrs = append(unitErrs, errors.Wrap(UnsupportedError, "64-bit DWARF line unit"))
			pos = clampUnitEnd(headerEnd, unitLen, len(line))
			continue
		}
		if unitLen == 0 || headerEnd+int(unitLen) > len(line) {
			unitErrs = append(unitErrs, errors.Wrapf(TruncatedError, "line unit at %#x declares %#x bytes", pos, unitLen))
			return
		}
		unitEnd := headerEnd + int(unitLen)
		if err := lineUnitFiles(line, headerEnd, unitEnd, order, seen, &files); err != nil {
			unitErrs = append(unitErrs, errors.WithMessagef(err, "line unit at %#x", pos))
		}
		pos = unitEnd
	}
	return
}

func lineUnitFiles(line []byte, pos, end int, order binary.ByteOrder, seen map[string]struct{}, files *[]string) error {
	if end-pos < 2 {
		return errors.Wrap(TruncatedError, "line version")
	}
	version := order.Uint16(line[pos:])
	pos += 2
	if version < 2 || version > 4 {
		return errors.Wrapf(UnsupportedError, "line program version %d", version)
	}

	if end-pos < 4 {
		return errors.Wrap(TruncatedError, "header length")
	}
	pos += 4 // header_length; the file table precedes the program anyway

	// minimum_instruction_length, (v4: maximum_operations_per_instruction,)
	// default_is_stmt, line_base, line_range, opcode_base.
	fixed := 5
	if version == 4 {
		fixed = 6
	}
	if end-pos < fixed {
		return errors.Wrap(TruncatedError, "line header prologue")
	}
	opcodeBase := int(line[pos+fixed-1])
	pos += fixed
	if opcodeBase == 0 {
		return errors.Wrap(TruncatedError, "opcode base 0")
	}
	if end-pos < opcodeBase-1 {
		return errors.Wrap(TruncatedError, "standard opcode lengths")
	}
	pos += opcodeBase - 1

	// Include directories: C strings until an empty one.
	for {
		if pos >= end {
			return errors.Wrap(TruncatedError, "include directories")
		}
		if line[pos] == 0 {
			pos++
			break
		}
		_, n, err := cstring(line[pos:end])
		if err != nil {
			return errors.WithMessage(err, "include directory")
		}
		pos += n
	}

	// File entries: name, dir index, mtime, length; empty name terminates.
	for {
		if pos >= end {
			return errors.Wrap(TruncatedError, "file name table")
		}
		if line[pos] == 0 {
			return nil
		}
		name, n, err := cstring(line[pos:end])
		if err != nil {
			return errors.WithMessage(err, "file name")
		}
		pos += n
		for i := 0; i < 3; i++ {
			_, n, err := Uleb128(line[:end], pos)
			if err != nil {
				return errors.WithMessage(err, "file entry field")
			}
			pos += n
		}
		if _, dup := seen[name]; !dup && name != "" {
			seen[name] = struct{}{}
			*files = append(*files, name)
		}
	}
}
