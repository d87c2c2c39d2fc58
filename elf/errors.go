package elf

import "errors"

var (
	BadMagicError        = errors.New("bad ELF magic")
	TruncatedError       = errors.New("truncated ELF")
	BadClassError        = errors.New("unknown ELF class")
	BadEncodingError     = errors.New("unknown ELF data encoding")
	SectionNotFoundError = errors.New("section not found")
	SymtabNotFoundError  = errors.New("symbol table not found")
	NoBitsError          = errors.New("section occupies no file bytes")
)
