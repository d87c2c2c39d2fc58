// Package elftest builds minimal ELF64 images and DWARF section payloads in
// memory, so parser tests exercise real bytes without fixture files.
package elftest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/mimir-sbom/mimir/internal/dwarf"
)

const (
	SHT_PROGBITS = 1
	SHT_SYMTAB   = 2
	SHT_STRTAB   = 3
)

type section struct {
	name    string
	typ     uint32
	data    []byte
	link    uint32
	entsize uint64
}

// Builder assembles a little-endian ELF64 with the given sections. The
// section-header string table is appended automatically.
type Builder struct {
	sections []section
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Add(name string, typ uint32, data []byte) *Builder {
	b.sections = append(b.sections, section{name: name, typ: typ, data: data})
	return b
}

// Sym is one symbol for AddSymtab. Shndx 0 leaves it undefined.
type Sym struct {
	Name  string
	Value uint64
	Size  uint64
	Info  byte
	Shndx uint16
}

// AddSymtab appends .symtab and .strtab, wiring the link field.
func (b *Builder) AddSymtab(syms []Sym) *Builder {
	strtab := []byte{0}
	symtab := make([]byte, 24) // null symbol
	for _, s := range syms {
		nameOff := uint32(len(strtab))
		strtab = append(strtab, []byte(s.Name)...)
		strtab = append(strtab, 0)

		ent := make([]byte, 24)
		binary.LittleEndian.PutUint32(ent[0:], nameOff)
		ent[4] = s.Info
		binary.LittleEndian.PutUint16(ent[6:], s.Shndx)
		binary.LittleEndian.PutUint64(ent[8:], s.Value)
		binary.LittleEndian.PutUint64(ent[16:], s.Size)
		symtab = append(symtab, ent...)
	}
	strtabIndex := uint32(len(b.sections) + 2) // after the null entry and .symtab
	b.sections = append(b.sections,
		section{name: ".symtab", typ: SHT_SYMTAB, data: symtab, link: strtabIndex, entsize: 24},
		section{name: ".strtab", typ: SHT_STRTAB, data: strtab},
	)
	return b
}

// Bytes lays out: ELF header, section payloads, shstrtab payload, section
// header table.
func (b *Builder) Bytes() []byte {
	le := binary.LittleEndian

	shstrtab := []byte{0}
	nameOffs := make([]uint32, len(b.sections))
	for i, sec := range b.sections {
		nameOffs[i] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, []byte(sec.name)...)
		shstrtab = append(shstrtab, 0)
	}
	shstrtabNameOff := uint32(len(shstrtab))
	shstrtab = append(shstrtab, []byte(".shstrtab")...)
	shstrtab = append(shstrtab, 0)

	out := make([]byte, 64)
	copy(out, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1})
	le.PutUint16(out[0x10:], 2)  // e_type ET_EXEC
	le.PutUint16(out[0x12:], 62) // e_machine EM_X86_64
	le.PutUint32(out[0x14:], 1)  // e_version
	le.PutUint16(out[0x34:], 64) // e_ehsize
	le.PutUint16(out[0x3a:], 64) // e_shentsize

	offsets := make([]uint64, len(b.sections))
	for i, sec := range b.sections {
		offsets[i] = uint64(len(out))
		out = append(out, sec.data...)
	}
	shstrtabOff := uint64(len(out))
	out = append(out, shstrtab...)

	shnum := len(b.sections) + 2 // null + sections + .shstrtab
	shoff := uint64(len(out))
	le.PutUint64(out[0x28:], shoff)
	le.PutUint16(out[0x3c:], uint16(shnum))
	le.PutUint16(out[0x3e:], uint16(shnum-1))

	out = append(out, make([]byte, 64)...) // null section header
	for i, sec := range b.sections {
		hdr := make([]byte, 64)
		le.PutUint32(hdr[0:], nameOffs[i])
		le.PutUint32(hdr[4:], sec.typ)
		le.PutUint64(hdr[24:], offsets[i])
		le.PutUint64(hdr[32:], uint64(len(sec.data)))
		le.PutUint32(hdr[40:], sec.link)
		le.PutUint64(hdr[56:], sec.entsize)
		out = append(out, hdr...)
	}
	hdr := make([]byte, 64)
	le.PutUint32(hdr[0:], shstrtabNameOff)
	le.PutUint32(hdr[4:], SHT_STRTAB)
	le.PutUint64(hdr[24:], shstrtabOff)
	le.PutUint64(hdr[32:], uint64(len(shstrtab)))
	out = append(out, hdr...)

	return out
}

// WriteFile drops the image into the test's temp dir.
func (b *Builder) WriteFile(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.elf")
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Unit is one synthetic compile unit for DebugInfo.
type Unit struct {
	Name  string
	Funcs []string
}

// DebugAbbrev pairs with DebugInfo: code 1 is a compile unit with children,
// code 2 a childless subprogram, both carrying DW_AT_name/DW_FORM_string.
func DebugAbbrev() []byte {
	var out []byte
	out = dwarf.AppendUleb128(out, 1)
	out = dwarf.AppendUleb128(out, dwarf.TagCompileUnit)
	out = append(out, 1) // has children
	out = dwarf.AppendUleb128(out, dwarf.AttrName)
	out = dwarf.AppendUleb128(out, 0x08) // DW_FORM_string
	out = append(out, 0, 0)
	out = dwarf.AppendUleb128(out, 2)
	out = dwarf.AppendUleb128(out, dwarf.TagSubprogram)
	out = append(out, 0) // no children
	out = dwarf.AppendUleb128(out, dwarf.AttrName)
	out = dwarf.AppendUleb128(out, 0x08)
	out = append(out, 0, 0)
	out = append(out, 0) // table sentinel
	return out
}

// DebugInfo emits one DWARF v4 unit per entry, using DebugAbbrev's shapes.
func DebugInfo(units []Unit) []byte {
	le := binary.LittleEndian
	var out []byte
	for _, unit := range units {
		var body []byte
		body = dwarf.AppendUleb128(body, 1)
		body = append(body, unit.Name...)
		body = append(body, 0)
		for _, fn := range unit.Funcs {
			body = dwarf.AppendUleb128(body, 2)
			body = append(body, fn...)
			body = append(body, 0)
		}
		body = append(body, 0) // end of children

		hdr := make([]byte, 11)
		le.PutUint32(hdr[0:], uint32(7+len(body))) // version+abbrev off+addr size+body
		le.PutUint16(hdr[4:], 4)                   // DWARF v4
		le.PutUint32(hdr[6:], 0)                   // abbrev offset
		hdr[10] = 8                                // address size
		out = append(out, hdr...)
		out = append(out, body...)
	}
	return out
}

// DebugLine emits a DWARF v3 line-program header declaring the given file
// names, with an empty program.
func DebugLine(files []string) []byte {
	le := binary.LittleEndian

	var hdr []byte
	hdr = append(hdr, 1)             // minimum_instruction_length
	hdr = append(hdr, 1)             // default_is_stmt
	hdr = append(hdr, 0xfb)          // line_base (-5)
	hdr = append(hdr, 14)            // line_range
	hdr = append(hdr, 13)            // opcode_base
	hdr = append(hdr, []byte{0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1}...)
	hdr = append(hdr, 0) // no include directories
	for _, f := range files {
		hdr = append(hdr, f...)
		hdr = append(hdr, 0)
		hdr = append(hdr, 0, 0, 0) // dir index, mtime, length
	}
	hdr = append(hdr, 0) // end of file table

	out := make([]byte, 10)
	le.PutUint32(out[0:], uint32(2+4+len(hdr))) // unit length
	le.PutUint16(out[4:], 3)                    // version
	le.PutUint32(out[6:], uint32(len(hdr)))     // header length
	return append(out, hdr...)
}
