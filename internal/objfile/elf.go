package objfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ELF-64 constants used by this writer (spec.md §4.7).
const (
	elfMagic0 = 0x7F
	elfMagic1 = 'E'
	elfMagic2 = 'L'
	elfMagic3 = 'F'

	elfClass64 = 2
	elfDataLE  = 1

	etREL = 1

	emX86_64  = 0x3E
	emAArch64 = 0xB7

	shtNull     = 0
	shtProgbits = 1
	shtSymtab   = 2
	shtStrtab   = 3
	shtRela     = 4
	shtNobits   = 8

	shfWrite     = 0x1
	shfAlloc     = 0x2
	shfExecInstr = 0x4

	stbLocal  = 0
	stbGlobal = 1
	stbWeak   = 2

	sttNone    = 0
	sttObject  = 1
	sttFunc    = 2
	sttSection = 3
)

func elfMachine(a Arch) uint16 {
	if a == ArchArm64 {
		return emAArch64
	}
	return emX86_64
}

func elfSectionType(k SectionKind) uint32 {
	switch k {
	case KindNull:
		return shtNull
	case KindProgbits:
		return shtProgbits
	case KindNobits:
		return shtNobits
	case KindSymtab:
		return shtSymtab
	case KindStrtab:
		return shtStrtab
	case KindRela:
		return shtRela
	}
	return shtProgbits
}

func elfSectionFlags(f SectionFlag) uint64 {
	var out uint64
	if f&FlagWrite != 0 {
		out |= shfWrite
	}
	if f&FlagAlloc != 0 {
		out |= shfAlloc
	}
	if f&FlagExecInstr != 0 {
		out |= shfExecInstr
	}
	return out
}

func elfSymBind(b SymbolBinding) uint8 {
	switch b {
	case BindGlobal:
		return stbGlobal
	case BindWeak:
		return stbWeak
	default:
		return stbLocal
	}
}

func elfSymType(t SymbolType) uint8 {
	switch t {
	case TypeObject:
		return sttObject
	case TypeFunc:
		return sttFunc
	case TypeSection:
		return sttSection
	default:
		return sttNone
	}
}

// strtabBuilder accumulates a NUL-terminated string table, starting with
// a mandatory leading NUL (offset 0 is always the empty string).
type strtabBuilder struct {
	buf    bytes.Buffer
	offset map[string]uint32
}

func newStrtabBuilder() *strtabBuilder {
	b := &strtabBuilder{offset: make(map[string]uint32)}
	b.buf.WriteByte(0)
	return b
}

func (b *strtabBuilder) add(s string) uint32 {
	if s == "" {
		return 0
	}
	if off, ok := b.offset[s]; ok {
		return off
	}
	off := uint32(b.buf.Len())
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
	b.offset[s] = off
	return off
}

// WriteELF64 serializes obj as a System V ELF-64 relocatable object,
// following spec.md §4.7's exact standard-section ordering and the
// cross-links NewStandardELF already wired into obj's .symtab/.rela.text
// Link/Info fields. It populates .symtab/.strtab/.shstrtab/.rela.text
// contents from obj.Symbols/obj.Relocs, leaving caller-populated sections
// (.text/.data/.rodata/the Asthra metadata sections) untouched.
func WriteELF64(obj *Object) ([]byte, error) {
	if obj.Format != FormatELF {
		return nil, fmt.Errorf("objfile: WriteELF64 called on a non-ELF object")
	}

	shstrtab := newStrtabBuilder()
	strtab := newStrtabBuilder()

	// Populate .strtab from obj.Symbols and .symtab's binary body.
	symtabSec := obj.SectionByName(".symtab")
	strtabSec := obj.SectionByName(".strtab")
	if symtabSec == nil || strtabSec == nil {
		return nil, fmt.Errorf("objfile: object is missing required .symtab/.strtab")
	}

	var symBody bytes.Buffer
	// Null symbol (index 0) is mandatory.
	writeElfSym(&symBody, 0, 0, 0, 0, 0, 0)
	for _, sym := range obj.Symbols {
		nameOff := strtab.add(sym.Name)
		info := elfSymBind(sym.Binding)<<4 | elfSymType(sym.Type)
		writeElfSym(&symBody, nameOff, info, 0, sym.SectionIndex, sym.Value, sym.Size)
	}
	symtabSec.Data = symBody.Bytes()
	strtabSec.Data = strtab.buf.Bytes()

	if rela := obj.SectionByName(".rela.text"); rela != nil {
		var relaBody bytes.Buffer
		for _, r := range obj.Relocs[".text"] {
			info := (uint64(r.Symbol+1) << 32) | uint64(r.Type) // +1 skips the null symbol
			binary.Write(&relaBody, binary.LittleEndian, r.Offset)
			binary.Write(&relaBody, binary.LittleEndian, info)
			binary.Write(&relaBody, binary.LittleEndian, r.Addend)
		}
		rela.Data = relaBody.Bytes()
	}

	// Assign section-header-string-table offsets for every section,
	// including .shstrtab itself.
	for _, s := range obj.Sections {
		shstrtab.add(s.Name)
	}
	shstrtab.add(".shstrtab")

	shstrtabSec := obj.SectionByName(".shstrtab")
	if shstrtabSec != nil {
		shstrtabSec.Data = shstrtab.buf.Bytes()
	}

	// Layout: ELF header, then each section's raw bytes back to back
	// (each aligned to its own Align), then the section header table.
	const ehdrSize = 64
	const shdrSize = 64

	type laidOut struct {
		sec    *Section
		offset uint64
		size   uint64
	}
	layout := make([]laidOut, len(obj.Sections))
	cursor := uint64(ehdrSize)
	for i, s := range obj.Sections {
		size := uint64(len(s.Data))
		if s.Kind == KindNobits {
			size = 0 // .bss occupies no file space
		}
		if s.Align > 1 {
			cursor = alignUp(cursor, s.Align)
		}
		layout[i] = laidOut{sec: s, offset: cursor, size: size}
		cursor += size
	}
	shoff := alignUp(cursor, 8)

	var out bytes.Buffer
	out.Grow(int(shoff) + len(obj.Sections)*shdrSize)

	writeElfHeader(&out, obj.Arch, uint16(len(obj.Sections)), uint16(obj.sectionIdx[".shstrtab"]), shoff)

	for _, l := range layout {
		for uint64(out.Len()) < l.offset {
			out.WriteByte(0)
		}
		if l.sec.Kind != KindNobits {
			out.Write(l.sec.Data)
		}
	}
	for uint64(out.Len()) < shoff {
		out.WriteByte(0)
	}

	for i, l := range layout {
		nameOff := shstrtab.add(l.sec.Name)
		var shOffset uint64
		if l.sec.Kind != KindNull {
			shOffset = l.offset
		}
		writeElfShdr(&out, nameOff, elfSectionType(l.sec.Kind), elfSectionFlags(l.sec.Flags),
			shOffset, l.size, l.sec.Link, l.sec.Info, l.sec.Align, l.sec.EntrySize)
		_ = i
	}

	return out.Bytes(), nil
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}

func writeElfHeader(w *bytes.Buffer, arch Arch, shnum, shstrndx uint16, shoff uint64) {
	var ident [16]byte
	ident[0], ident[1], ident[2], ident[3] = elfMagic0, elfMagic1, elfMagic2, elfMagic3
	ident[4] = elfClass64
	ident[5] = elfDataLE
	ident[6] = 1 // EV_CURRENT
	w.Write(ident[:])
	binary.Write(w, binary.LittleEndian, uint16(etREL))
	binary.Write(w, binary.LittleEndian, elfMachine(arch))
	binary.Write(w, binary.LittleEndian, uint32(1)) // e_version
	binary.Write(w, binary.LittleEndian, uint64(0)) // e_entry
	binary.Write(w, binary.LittleEndian, uint64(0)) // e_phoff
	binary.Write(w, binary.LittleEndian, shoff)
	binary.Write(w, binary.LittleEndian, uint32(0)) // e_flags
	binary.Write(w, binary.LittleEndian, uint16(64)) // e_ehsize
	binary.Write(w, binary.LittleEndian, uint16(0))  // e_phentsize
	binary.Write(w, binary.LittleEndian, uint16(0))  // e_phnum
	binary.Write(w, binary.LittleEndian, uint16(64)) // e_shentsize
	binary.Write(w, binary.LittleEndian, shnum)
	binary.Write(w, binary.LittleEndian, shstrndx)
}

func writeElfShdr(w *bytes.Buffer, name uint32, typ uint32, flags uint64, offset, size uint64, link, info uint32, align, entsize uint64) {
	binary.Write(w, binary.LittleEndian, name)
	binary.Write(w, binary.LittleEndian, typ)
	binary.Write(w, binary.LittleEndian, flags)
	binary.Write(w, binary.LittleEndian, uint64(0)) // sh_addr
	binary.Write(w, binary.LittleEndian, offset)
	binary.Write(w, binary.LittleEndian, size)
	binary.Write(w, binary.LittleEndian, link)
	binary.Write(w, binary.LittleEndian, info)
	binary.Write(w, binary.LittleEndian, align)
	binary.Write(w, binary.LittleEndian, entsize)
}

func writeElfSym(w *bytes.Buffer, name uint32, info, other uint8, shndx uint16, value, size uint64) {
	binary.Write(w, binary.LittleEndian, name)
	w.WriteByte(info)
	w.WriteByte(other)
	binary.Write(w, binary.LittleEndian, shndx)
	binary.Write(w, binary.LittleEndian, value)
	binary.Write(w, binary.LittleEndian, size)
}
