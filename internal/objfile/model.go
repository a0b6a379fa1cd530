// Package objfile writes ELF-64 and Mach-O relocatable object files (the
// Asthra-specific metadata sections are written for ELF only), sharing one Section/Symbol/
// Relocation model across both formats (spec.md §4.7). There is no
// existing object-writer in the retrieval corpus to ground the byte
// layout on (every pack repo that touches object files only reads or
// links them); this package's exact field widths and section ordering
// instead follow spec.md §4.7's own table verbatim, with concrete Go
// struct/constant shapes borrowed from the corpus's linker-internals
// code (e.g. ymm135-go's cmd_local/link/internal/ld) for realistic
// texture.
package objfile

import "fmt"

// SectionKind tags a Section the way ELF's sh_type does.
type SectionKind int

const (
	KindNull SectionKind = iota
	KindProgbits
	KindNobits
	KindSymtab
	KindStrtab
	KindRela
)

// SectionFlag bits, a subset of ELF's SHF_* flags relevant to this writer.
type SectionFlag uint64

const (
	FlagWrite SectionFlag = 1 << iota
	FlagAlloc
	FlagExecInstr
)

// Section is one section of the shared model (spec.md §3 object-file
// model). Data grows by doubling: appending past capacity doubles
// capacity (seeding to 1 from zero) before copying in the new bytes.
type Section struct {
	Name      string
	Kind      SectionKind
	Flags     SectionFlag
	Align     uint64
	Link      uint32
	Info      uint32
	EntrySize uint64
	Data      []byte
	capacity  int
}

// Append copies data onto the end of the section, growing capacity by
// doubling (spec.md §4.7: "Section data grows by doubling when capacity
// is exceeded; when capacity is zero it seeds to 1 then doubles").
func (s *Section) Append(data []byte) int {
	offset := len(s.Data)
	need := len(s.Data) + len(data)
	if need > s.capacity {
		cap := s.capacity
		if cap == 0 {
			cap = 1
		}
		for cap < need {
			cap *= 2
		}
		grown := make([]byte, len(s.Data), cap)
		copy(grown, s.Data)
		s.Data = grown
		s.capacity = cap
	}
	s.Data = append(s.Data, data...)
	return offset
}

// SymbolBinding mirrors ELF's STB_* symbol bindings.
type SymbolBinding int

const (
	BindLocal SymbolBinding = iota
	BindGlobal
	BindWeak
)

// SymbolType mirrors ELF's STT_* symbol types.
type SymbolType int

const (
	TypeNone SymbolType = iota
	TypeObject
	TypeFunc
	TypeSection
)

// Symbol is one entry of the shared symbol model.
type Symbol struct {
	Name         string
	Value        uint64
	Size         uint64
	Binding      SymbolBinding
	Type         SymbolType
	SectionIndex uint16
	IsFFIFunction bool
}

// Relocation is one entry of a section's relocation table.
type Relocation struct {
	Offset uint64
	Symbol uint32
	Type   uint32
	Addend int64
}

// Object bundles the sections, symbols, and relocations that make up one
// relocatable object file, independent of ELF/Mach-O serialization.
type Object struct {
	Arch       Arch
	Format     Format
	Sections   []*Section
	Symbols    []Symbol
	Relocs     map[string][]Relocation // keyed by section name, e.g. ".text"
	sectionIdx map[string]int
}

// Arch selects the target machine the object targets.
type Arch int

const (
	ArchX86_64 Arch = iota
	ArchArm64
)

// Format selects the serialized container.
type Format int

const (
	FormatELF Format = iota
	FormatMachO
)

// SectionByName returns a section by name, or nil.
func (o *Object) SectionByName(name string) *Section {
	if o.sectionIdx == nil {
		return nil
	}
	if i, ok := o.sectionIdx[name]; ok {
		return o.Sections[i]
	}
	return nil
}

func (o *Object) addSection(s *Section) int {
	if o.sectionIdx == nil {
		o.sectionIdx = make(map[string]int)
	}
	idx := len(o.Sections)
	o.Sections = append(o.Sections, s)
	o.sectionIdx[s.Name] = idx
	return idx
}

// AddRelocation appends a relocation against the named section.
func (o *Object) AddRelocation(section string, r Relocation) {
	if o.Relocs == nil {
		o.Relocs = make(map[string][]Relocation)
	}
	o.Relocs[section] = append(o.Relocs[section], r)
}

func (o *Object) String() string {
	return fmt.Sprintf("object{arch=%v format=%v sections=%d symbols=%d}", o.Arch, o.Format, len(o.Sections), len(o.Symbols))
}
