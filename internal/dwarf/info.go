package dwarf

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Sections carries the raw debug sections one walk needs. Str and LineStr
// may be nil; string-table references then decode to empty names.
type Sections struct {
	Info    []byte
	Abbrev  []byte
	Str     []byte
	LineStr []byte
	Order   binary.ByteOrder
}

// Entry is one streamed DIE. Only what the composition extractor consumes
// is materialized: the tag, the tree position and a decoded DW_AT_name.
type Entry struct {
	Offset      uint64
	Tag         uint64
	HasChildren bool
	Depth       int
	Name        string
	HasName     bool
}

const dwarf64Marker = 0xffffffff

// WalkInfo streams every DIE of every parsable compile unit to visit, in
// file order, depth-first. Failures are unit-local: a bad unit is skipped
// using its declared length and reported in the returned slice, while DIEs
// already visited and later units are unaffected.
func WalkInfo(sec Sections, visit func(*Entry)) (unitErrs []error) {
	if sec.Order == nil {
		sec.Order = binary.LittleEndian
	}
	info := sec.Info
	pos := 0
	for pos < len(info) {
		if len(info)-pos < 4 {
			unitErrs = append(unitErrs, errors.Wrap(TruncatedError, "unit length"))
			return
		}
		unitLen := uint64(sec.Order.Uint32(info[pos:]))
		headerEnd := pos + 4
		if unitLen == dwarf64Marker {
			// 64-bit DWARF: the real length follows, which is enough to skip
			// the unit even though its offsets are not decoded here.
			if len(info)-headerEnd < 8 {
				unitErrs = append(unitErrs, errors.Wrap(TruncatedError, "DWARF64 unit length"))
				return
			}
			unitLen = sec.Order.Uint64(info[headerEnd:])
			headerEnd += 8
			unitErrs = append(unitErrs, errors.Wrap(UnsupportedError, "64-bit DWARF unit"))
			pos = clampUnitEnd(headerEnd, unitLen, len(info))
			continue
		}
		unitEnd := clampUnitEnd(headerEnd, unitLen, len(info))
		if unitLen == 0 || headerEnd+int(unitLen) > len(info) {
			unitErrs = append(unitErrs, errors.Wrapf(TruncatedError, "unit at %#x declares %#x bytes", pos, unitLen))
			return
		}
		if err := walkUnit(sec, headerEnd, unitEnd, visit); err != nil {
			unitErrs = append(unitErrs, errors.WithMessagef(err, "unit at %#x", pos))
		}
		pos = unitEnd
	}
	return
}

func clampUnitEnd(headerEnd int, unitLen uint64, total int) int {
	end := uint64(headerEnd) + unitLen
	if end > uint64(total) {
		return total
	}
	return int(end)
}

// walkUnit parses one unit's header and DIE stream within [pos, end).
func walkUnit(sec Sections, pos, end int, visit func(*Entry)) error {
	if end-pos < 2 {
		return errors.Wrap(TruncatedError, "unit version")
	}
	version := sec.Order.Uint16(sec.Info[pos:])
	pos += 2

	var abbrevOff uint64
	var addrSize byte
	switch {
	case version >= 2 && version <= 4:
		if end-pos < 5 {
			return errors.Wrap(TruncatedError, "unit header")
		}
		abbrevOff = uint64(sec.Order.Uint32(sec.Info[pos:]))
		addrSize = sec.Info[pos+4]
		pos += 5
	case version == 5:
		if end-pos < 6 {
			return errors.Wrap(TruncatedError, "unit header")
		}
		// unit_type is only needed to keep the cursor honest.
		addrSize = sec.Info[pos+1]
		abbrevOff = uint64(sec.Order.Uint32(sec.Info[pos+2:]))
		pos += 6
	default:
		return errors.Wrapf(UnsupportedError, "DWARF version %d", version)
	}
	if addrSize == 0 || addrSize > 8 {
		return errors.Wrapf(UnsupportedError, "address size %d", addrSize)
	}

	table, err := ParseAbbrevTable(sec.Abbrev, abbrevOff)
	if err != nil {
		return errors.WithMessage(err, "abbreviation table")
	}

	depth := 0
	for pos < end {
		dieOff := uint64(pos)
		code, n, err := Uleb128(sec.Info[:end], pos)
		if err != nil {
			return errors.WithMessage(err, "abbreviation code")
		}
		pos += n
		if code == 0 {
			// End of one sibling list.
			if depth > 0 {
				depth--
			}
			continue
		}
		entry, ok := table[code]
		if !ok {
			return errors.Wrapf(BadAbbrevError, "code %d", code)
		}
		die := Entry{Offset: dieOff, Tag: entry.Tag, HasChildren: entry.HasChildren, Depth: depth}
		for _, spec := range entry.Attrs {
			val, hasVal, n, err := decodeForm(sec, pos, end, spec.Form, addrSize, 0)
			if err != nil {
				return errors.WithMessagef(err, "attr %#x", spec.Attr)
			}
			pos += n
			if spec.Attr == AttrName && hasVal {
				die.Name = val
				die.HasName = true
			}
		}
		visit(&die)
		if entry.HasChildren {
			depth++
		}
	}
	return nil
}

// decodeForm advances the cursor by exactly the form's width and resolves
// string-valued forms. A width that cannot be determined is an error, never
// a guess: a misplaced cursor corrupts every DIE after it.
func decodeForm(sec Sections, pos, end int, form uint64, addrSize byte, indirections int) (val string, hasVal bool, n int, err error) {
	buf := sec.Info
	avail := end - pos

	fixed := func(width int) (int, error) {
		if avail < width {
			return 0, errors.Wrapf(TruncatedError, "form %#x needs %d bytes", form, width)
		}
		return width, nil
	}

	switch form {
	case formAddr:
		n, err = fixed(int(addrSize))
	case formData1, formRef1, formFlag, formStrx1, formAddrx1:
		n, err = fixed(1)
	case formData2, formRef2, formStrx2, formAddrx2:
		n, err = fixed(2)
	case formStrx3, formAddrx3:
		n, err = fixed(3)
	case formData4, formRef4, formRefAddr, formSecOffset, formRefSup4, formStrpSup, formStrx4, formAddrx4:
		n, err = fixed(4)
	case formData8, formRef8, formRefSig8, formRefSup8:
		n, err = fixed(8)
	case formData16:
		n, err = fixed(16)
	case formFlagPresent, formImplicitConst:
		n = 0
	case formUdata, formRefUdata, formStrx, formAddrx, formLoclistx, formRnglistx:
		_, n, err = Uleb128(buf[:end], pos)
	case formSdata:
		_, n, err = Sleb128(buf[:end], pos)
	case formString:
		var s string
		s, n, err = cstring(buf[pos:end])
		if err == nil {
			val, hasVal = s, true
		}
	case formStrp:
		if n, err = fixed(4); err == nil {
			val, hasVal = lookupStr(sec.Str, uint64(sec.Order.Uint32(buf[pos:])))
		}
	case formLineStrp:
		if n, err = fixed(4); err == nil {
			val, hasVal = lookupStr(sec.LineStr, uint64(sec.Order.Uint32(buf[pos:])))
		}
	case formBlock1:
		if _, err = fixed(1); err == nil {
			n, err = fixed(1 + int(buf[pos]))
		}
	case formBlock2:
		if _, err = fixed(2); err == nil {
			n, err = fixed(2 + int(sec.Order.Uint16(buf[pos:])))
		}
	case formBlock4:
		if _, err = fixed(4); err == nil {
			n, err = fixed(4 + int(sec.Order.Uint32(buf[pos:])))
		}
	case formBlock, formExprloc:
		var size uint64
		var m int
		size, m, err = Uleb128(buf[:end], pos)
		if err == nil {
			if uint64(avail-m) < size {
				err = errors.Wrap(TruncatedError, "block form")
			} else {
				n = m + int(size)
			}
		}
	case formIndirect:
		if indirections >= 4 {
			err = errors.Wrap(UnknownFormError, "indirect form chain too deep")
			return
		}
		var actual uint64
		var m int
		actual, m, err = Uleb128(buf[:end], pos)
		if err != nil {
			return
		}
		if !formKnown(actual) || actual == formImplicitConst {
			err = errors.Wrapf(UnknownFormError, "indirect form %#x", actual)
			return
		}
		var inner int
		val, hasVal, inner, err = decodeForm(sec, pos+m, end, actual, addrSize, indirections+1)
		n = m + inner
	default:
		err = errors.Wrapf(UnknownFormError, "form %#x", form)
	}
	return
}

func cstring(buf []byte) (string, int, error) {
	idx := bytes.IndexByte(buf, 0)
	if idx < 0 {
		return "", 0, errors.Wrap(TruncatedError, "unterminated string")
	}
	return string(buf[:idx]), idx + 1, nil
}

func lookupStr(strtab []byte, off uint64) (string, bool) {
	if strtab == nil || off >= uint64(len(strtab)) {
		return "", false
	}
	idx := bytes.IndexByte(strtab[off:], 0)
	if idx < 0 {
		return "", false
	}
	return string(strtab[off : off+uint64(idx)]), true
}
