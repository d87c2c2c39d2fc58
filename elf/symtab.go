package elf

import (
	"strings"

	"github.com/pkg/errors"
)

// Symbol binding / type nibbles of st_info.
const (
	STB_GLOBAL = 1
	STB_WEAK   = 2

	STT_OBJECT = 1
	STT_FUNC   = 2
	STT_FILE   = 4

	SHN_UNDEF = 0
)

// Symbol is one defined, named .symtab entry.
type Symbol struct {
	Name    string `json:"name"`
	Value   uint64 `json:"value"`
	Size    uint64 `json:"size"`
	Type    byte   `json:"type"`
	Section string `json:"section,omitempty"`
	Defined bool   `json:"defined"`
	Global  bool   `json:"global"`
	Weak    bool   `json:"weak"`
}

// Symbols decodes .symtab against .strtab, keeping defined entries with a
// non-empty, non-synthetic name. Order follows the symbol table.
func (f *File) Symbols() (symbols []Symbol, err error) {
	symtab := f.Section(".symtab")
	if symtab == nil {
		err = SymtabNotFoundError
		return
	}
	data, err := f.SectionBytes(".symtab")
	if err != nil {
		return
	}
	strtab, err := f.strtabFor(symtab)
	if err != nil {
		return
	}

	entsize := int(symtab.Entsize)
	minent := 16
	if f.class == Class64 {
		minent = 24
	}
	if entsize < minent {
		entsize = minent
	}

	for off := entsize; off+entsize <= len(data); off += entsize {
		ent := data[off:]
		var nameOff uint32
		var sym Symbol
		var info byte
		var shndx uint16
		if f.class == Class64 {
			nameOff = f.order.Uint32(ent[0:])
			info = ent[4]
			shndx = f.order.Uint16(ent[6:])
			sym.Value = f.order.Uint64(ent[8:])
			sym.Size = f.order.Uint64(ent[16:])
		} else {
			nameOff = f.order.Uint32(ent[0:])
			sym.Value = uint64(f.order.Uint32(ent[4:]))
			sym.Size = uint64(f.order.Uint32(ent[8:]))
			info = ent[12]
			shndx = f.order.Uint16(ent[14:])
		}
		name, ok := getString(strtab, nameOff)
		if !ok || name == "" || synthetic(name) {
			continue
		}
		if shndx == SHN_UNDEF {
			continue
		}
		sym.Name = name
		sym.Type = info & 0xf
		sym.Defined = true
		sym.Global = info>>4 == STB_GLOBAL
		sym.Weak = info>>4 == STB_WEAK
		if int(shndx) < len(f.byIndex) && f.byIndex[shndx] != nil {
			sym.Section = f.byIndex[shndx].Name
		}
		symbols = append(symbols, sym)
	}
	return
}

// FunctionNames filters Symbols down to STT_FUNC names, first seen wins.
func (f *File) FunctionNames() (names []string, err error) {
	symbols, err := f.Symbols()
	if err != nil {
		return
	}
	seen := map[string]struct{}{}
	for _, sym := range symbols {
		if sym.Type != STT_FUNC {
			continue
		}
		if _, ok := seen[sym.Name]; ok {
			continue
		}
		seen[sym.Name] = struct{}{}
		names = append(names, sym.Name)
	}
	return
}

// FileNames returns STT_FILE entries: the compiler records one per
// translation unit, which makes them a usable source-file fallback.
func (f *File) FileNames() (names []string, err error) {
	symtab := f.Section(".symtab")
	if symtab == nil {
		err = SymtabNotFoundError
		return
	}
	data, err := f.SectionBytes(".symtab")
	if err != nil {
		return
	}
	strtab, err := f.strtabFor(symtab)
	if err != nil {
		return
	}
	entsize := int(symtab.Entsize)
	minent := 16
	if f.class == Class64 {
		minent = 24
	}
	if entsize < minent {
		entsize = minent
	}
	seen := map[string]struct{}{}
	for off := entsize; off+entsize <= len(data); off += entsize {
		ent := data[off:]
		var info byte
		nameOff := f.order.Uint32(ent[0:])
		if f.class == Class64 {
			info = ent[4]
		} else {
			info = ent[12]
		}
		if info&0xf != STT_FILE {
			continue
		}
		name, ok := getString(strtab, nameOff)
		if !ok || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return
}

func (f *File) strtabFor(symtab *SectionDescriptor) ([]byte, error) {
	if int(symtab.Link) < len(f.byIndex) && f.byIndex[symtab.Link] != nil {
		return f.SectionBytes(f.byIndex[symtab.Link].Name)
	}
	if f.HasSection(".strtab") {
		return f.SectionBytes(".strtab")
	}
	return nil, errors.Wrap(SectionNotFoundError, ".strtab")
}

// Linker-generated and mapping symbols carry no composition information.
func synthetic(name string) bool {
	return strings.HasPrefix(name, "$") || strings.HasPrefix(name, ".L") ||
		strings.HasPrefix(name, "__libc_") || name == "_init" || name == "_fini"
}
