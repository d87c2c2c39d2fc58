package extractor

import (
	log "github.com/sirupsen/logrus"

	"github.com/mimir-sbom/mimir/elf"
	"github.com/mimir-sbom/mimir/internal/dwarf"
)

// collector accumulates one extraction's results across strategies. Each
// field keeps what the first successful strategy put there.
type collector struct {
	sourceFiles  *stringSet
	compileUnits *stringSet
	functions    *stringSet
	symbols      []elf.Symbol
}

func newCollector() *collector {
	return &collector{
		sourceFiles:  newStringSet(),
		compileUnits: newStringSet(),
		functions:    newStringSet(),
	}
}

// strategy is one rung of the fallback ladder. Strategies run in order and
// only fill fields still empty, so structured results always beat
// approximate ones.
type strategy interface {
	name() string
	extract(f *elf.File, c *collector)
}

// The fallback ladder: structured DWARF, then the symbol table, then raw
// string scanning.
func strategies() []strategy {
	return []strategy{dwarfStrategy{}, symtabStrategy{}, heuristicStrategy{}}
}

type dwarfStrategy struct{}

func (dwarfStrategy) name() string { return "dwarf" }

func (dwarfStrategy) extract(f *elf.File, c *collector) {
	info, infoErr := f.SectionBytes(".debug_info")
	abbrev, abbrevErr := f.SectionBytes(".debug_abbrev")
	if infoErr == nil && abbrevErr == nil {
		sec := dwarf.Sections{
			Info:   info,
			Abbrev: abbrev,
			Order:  f.ByteOrder(),
		}
		if str, err := f.SectionBytes(".debug_str"); err == nil {
			sec.Str = str
		}
		if lineStr, err := f.SectionBytes(".debug_line_str"); err == nil {
			sec.LineStr = lineStr
		}
		unitErrs := dwarf.WalkInfo(sec, func(die *dwarf.Entry) {
			switch die.Tag {
			case dwarf.TagCompileUnit, dwarf.TagPartialUnit, dwarf.TagSkeletonUnit:
				if die.HasName {
					c.compileUnits.add(die.Name)
					c.sourceFiles.add(die.Name)
				}
			case dwarf.TagSubprogram:
				if die.HasName && die.Name != "" {
					c.functions.add(die.Name)
				}
			}
		})
		for _, err := range unitErrs {
			log.Debugf("debug_info %s: %s", f.Path(), err)
		}
	}

	if line, err := f.SectionBytes(".debug_line"); err == nil {
		files, unitErrs := dwarf.ParseLineFiles(line, f.ByteOrder())
		c.sourceFiles.addAll(files)
		for _, err := range unitErrs {
			log.Debugf("debug_line %s: %s", f.Path(), err)
		}
	}
}

type symtabStrategy struct{}

func (symtabStrategy) name() string { return "symtab" }

func (symtabStrategy) extract(f *elf.File, c *collector) {
	symbols, err := f.Symbols()
	if err != nil {
		log.Debugf("symtab %s: %s", f.Path(), err)
		return
	}
	c.symbols = symbols
	if c.functions.empty() {
		for _, sym := range symbols {
			if sym.Type == elf.STT_FUNC {
				c.functions.add(sym.Name)
			}
		}
	}
	if c.sourceFiles.empty() {
		if files, err := f.FileNames(); err == nil {
			c.sourceFiles.addAll(files)
		}
	}
}

type heuristicStrategy struct{}

func (heuristicStrategy) name() string { return "heuristic" }

func (heuristicStrategy) extract(f *elf.File, c *collector) {
	if !c.sourceFiles.empty() {
		return
	}
	// Prefer the string sections; fall back to the whole image when even
	// those are missing.
	scanned := false
	for _, name := range []string{".debug_str", ".debug_line_str", ".strtab", ".rodata"} {
		if data, err := f.SectionBytes(name); err == nil {
			c.sourceFiles.addAll(elf.ScanSourcePaths(data))
			scanned = true
		}
	}
	if !scanned || c.sourceFiles.empty() {
		c.sourceFiles.addAll(elf.ScanSourcePaths(f.Bytes()))
	}
}
