package dwarf

import "github.com/pkg/errors"

// AttrSpec is one declared (attribute, form) pair. Const carries the value
// of a DW_FORM_implicit_const, which lives in the table, not the DIE.
type AttrSpec struct {
	Attr  uint64
	Form  uint64
	Const int64
}

// AbbrevEntry describes the shape of every DIE that uses its code.
type AbbrevEntry struct {
	Code        uint64
	Tag         uint64
	HasChildren bool
	Attrs       []AttrSpec
}

type AbbrevTable map[uint64]*AbbrevEntry

// ParseAbbrevTable reads one compile unit's abbreviation table starting at
// off, up to the code-0 sentinel. An unrecognized form poisons the whole
// table: the caller cannot know the byte width of later attributes, so the
// unit that references it must be skipped.
func ParseAbbrevTable(buf []byte, off uint64) (AbbrevTable, error) {
	if off > uint64(len(buf)) {
		return nil, errors.Wrapf(TruncatedError, "abbrev offset %#x", off)
	}
	table := AbbrevTable{}
	pos := int(off)
	for {
		code, n, err := Uleb128(buf, pos)
		if err != nil {
			return nil, errors.WithMessage(err, "abbrev code")
		}
		pos += n
		if code == 0 {
			return table, nil
		}
		tag, n, err := Uleb128(buf, pos)
		if err != nil {
			return nil, errors.WithMessage(err, "abbrev tag")
		}
		pos += n
		if pos >= len(buf) {
			return nil, errors.Wrap(TruncatedError, "has-children flag")
		}
		entry := &AbbrevEntry{Code: code, Tag: tag, HasChildren: buf[pos] != 0}
		pos++
		for {
			attr, n, err := Uleb128(buf, pos)
			if err != nil {
				return nil, errors.WithMessage(err, "attribute kind")
			}
			pos += n
			form, n, err := Uleb128(buf, pos)
			if err != nil {
				return nil, errors.WithMessage(err, "attribute form")
			}
			pos += n
			if attr == 0 && form == 0 {
				break
			}
			if !formKnown(form) {
				return nil, errors.Wrapf(UnknownFormError, "form %#x for attr %#x", form, attr)
			}
			spec := AttrSpec{Attr: attr, Form: form}
			if form == formImplicitConst {
				c, n, err := Sleb128(buf, pos)
				if err != nil {
					return nil, errors.WithMessage(err, "implicit const")
				}
				pos += n
				spec.Const = c
			}
			entry.Attrs = append(entry.Attrs, spec)
		}
		table[code] = entry
	}
}
