// Package elf parses the ELF container directly: ident, header, section
// table and symbol table are decoded byte-by-byte so that debug sections can
// be located and read even from binaries the stdlib loader rejects.
package elf

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

// Section header types we care about.
const (
	SHT_NULL     = 0
	SHT_PROGBITS = 1
	SHT_SYMTAB   = 2
	SHT_STRTAB   = 3
	SHT_NOBITS   = 8
)

const (
	ClassNone = 0
	Class32   = 1
	Class64   = 2
)

var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

// SectionDescriptor locates one named section within the file. Offsets are
// validated against the file length at parse time; Size of a SHT_NOBITS
// section does not occupy file bytes.
type SectionDescriptor struct {
	Name    string
	Type    uint32
	Offset  uint64
	Size    uint64
	Link    uint32
	Entsize uint64
}

type File struct {
	path  string
	raw   []byte
	class byte
	order binary.ByteOrder

	sections map[string]*SectionDescriptor
	byIndex  []*SectionDescriptor
}

// Open reads the whole file and parses its header and section table. A
// section whose name cannot be resolved through the section-header string
// table is dropped from the result; that is not an open failure.
func Open(path string) (_ *File, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	f := &File{
		path:     path,
		raw:      raw,
		sections: map[string]*SectionDescriptor{},
	}
	if err = f.parse(); err != nil {
		return
	}
	return f, nil
}

func (f *File) Path() string { return f.path }

// Bytes exposes the raw file content for heuristic scanning.
func (f *File) Bytes() []byte { return f.raw }

func (f *File) ByteOrder() binary.ByteOrder { return f.order }

// Section returns the descriptor for a named section, or nil.
func (f *File) Section(name string) *SectionDescriptor {
	return f.sections[name]
}

// Sections returns descriptors indexed as in the section-header table.
// Entries with unresolvable names are nil.
func (f *File) Sections() []*SectionDescriptor { return f.byIndex }

// SectionBytes copies out the file bytes backing a named section.
func (f *File) SectionBytes(name string) (data []byte, err error) {
	sec := f.sections[name]
	if sec == nil {
		err = errors.Wrap(SectionNotFoundError, name)
		return
	}
	if sec.Type == SHT_NOBITS {
		err = errors.Wrap(NoBitsError, name)
		return
	}
	return f.sliceAt(sec.Offset, sec.Size)
}

// HasSection reports section presence without reading its bytes.
func (f *File) HasSection(name string) bool { return f.sections[name] != nil }

func (f *File) sliceAt(off, size uint64) ([]byte, error) {
	end := off + size
	if end < off || end > uint64(len(f.raw)) {
		return nil, errors.Wrapf(TruncatedError, "range %#x+%#x beyond %#x", off, size, len(f.raw))
	}
	return f.raw[off:end:end], nil
}

func (f *File) parse() error {
	if len(f.raw) < 16 {
		return errors.Wrap(TruncatedError, "ident")
	}
	if !bytes.Equal(f.raw[:4], elfMagic) {
		return BadMagicError
	}
	f.class = f.raw[4]
	if f.class != Class32 && f.class != Class64 {
		return errors.Wrapf(BadClassError, "%d", f.class)
	}
	switch f.raw[5] {
	case 1:
		f.order = binary.LittleEndian
	case 2:
		f.order = binary.BigEndian
	default:
		return errors.Wrapf(BadEncodingError, "%d", f.raw[5])
	}

	var shoff uint64
	var shentsize, shnum, shstrndx uint16
	if f.class == Class64 {
		if len(f.raw) < 64 {
			return errors.Wrap(TruncatedError, "ELF64 header")
		}
		shoff = f.order.Uint64(f.raw[0x28:])
		shentsize = f.order.Uint16(f.raw[0x3a:])
		shnum = f.order.Uint16(f.raw[0x3c:])
		shstrndx = f.order.Uint16(f.raw[0x3e:])
	} else {
		if len(f.raw) < 52 {
			return errors.Wrap(TruncatedError, "ELF32 header")
		}
		shoff = uint64(f.order.Uint32(f.raw[0x20:]))
		shentsize = f.order.Uint16(f.raw[0x2e:])
		shnum = f.order.Uint16(f.raw[0x30:])
		shstrndx = f.order.Uint16(f.raw[0x32:])
	}
	if shnum == 0 {
		// Stripped of section headers; an empty table is still a valid open.
		return nil
	}
	minent := uint16(40)
	if f.class == Class64 {
		minent = 64
	}
	if shentsize < minent {
		return errors.Wrapf(TruncatedError, "shentsize %d", shentsize)
	}
	table, err := f.sliceAt(shoff, uint64(shentsize)*uint64(shnum))
	if err != nil {
		return errors.WithMessage(err, "section header table")
	}

	headers := make([]SectionDescriptor, shnum)
	names := make([]uint32, shnum)
	for i := 0; i < int(shnum); i++ {
		ent := table[i*int(shentsize):]
		if f.class == Class64 {
			names[i] = f.order.Uint32(ent[0:])
			headers[i] = SectionDescriptor{
				Type:    f.order.Uint32(ent[4:]),
				Offset:  f.order.Uint64(ent[24:]),
				Size:    f.order.Uint64(ent[32:]),
				Link:    f.order.Uint32(ent[40:]),
				Entsize: f.order.Uint64(ent[56:]),
			}
		} else {
			names[i] = f.order.Uint32(ent[0:])
			headers[i] = SectionDescriptor{
				Type:    f.order.Uint32(ent[4:]),
				Offset:  uint64(f.order.Uint32(ent[16:])),
				Size:    uint64(f.order.Uint32(ent[20:])),
				Link:    f.order.Uint32(ent[24:]),
				Entsize: uint64(f.order.Uint32(ent[36:])),
			}
		}
	}

	var shstrtab []byte
	if int(shstrndx) < len(headers) {
		h := headers[shstrndx]
		if data, err := f.sliceAt(h.Offset, h.Size); err == nil {
			shstrtab = data
		}
	}

	f.byIndex = make([]*SectionDescriptor, shnum)
	for i := range headers {
		if headers[i].Type == SHT_NULL {
			continue
		}
		name, ok := getString(shstrtab, names[i])
		if !ok {
			// Name offset out of range fails this section only.
			continue
		}
		if headers[i].Type != SHT_NOBITS {
			if end := headers[i].Offset + headers[i].Size; end < headers[i].Offset || end > uint64(len(f.raw)) {
				continue
			}
		}
		sec := headers[i]
		sec.Name = name
		f.sections[name] = &sec
		f.byIndex[i] = &sec
	}
	return nil
}

func getString(strtab []byte, off uint32) (string, bool) {
	if strtab == nil || uint64(off) >= uint64(len(strtab)) {
		return "", false
	}
	end := bytes.IndexByte(strtab[off:], 0)
	if end < 0 {
		return "", false
	}
	return string(strtab[off : int(off)+end]), true
}
