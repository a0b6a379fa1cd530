package objfile

// NewStandardELF creates a fresh ELF-64 Object with its standard sections
// in the exact order spec.md §4.7 requires: null, .text, .data, .bss,
// .rodata, .symtab, .strtab, .shstrtab, .rela.text. Cross-links
// (.symtab.link, .symtab.info, .rela.text.link/info) are wired once every
// section exists, since they reference other sections by index.
func NewStandardELF(arch Arch) *Object {
	o := &Object{Arch: arch, Format: FormatELF}

	o.addSection(&Section{Name: "", Kind: KindNull})
	o.addSection(&Section{Name: ".text", Kind: KindProgbits, Flags: FlagAlloc | FlagExecInstr, Align: 16})
	o.addSection(&Section{Name: ".data", Kind: KindProgbits, Flags: FlagAlloc | FlagWrite, Align: 8})
	o.addSection(&Section{Name: ".bss", Kind: KindNobits, Flags: FlagAlloc | FlagWrite, Align: 8})
	o.addSection(&Section{Name: ".rodata", Kind: KindProgbits, Flags: FlagAlloc, Align: 8})
	o.addSection(&Section{Name: ".symtab", Kind: KindSymtab, Align: 8, EntrySize: 24})
	o.addSection(&Section{Name: ".strtab", Kind: KindStrtab, Align: 1})
	o.addSection(&Section{Name: ".shstrtab", Kind: KindStrtab, Align: 1})
	o.addSection(&Section{Name: ".rela.text", Kind: KindRela, Align: 8, EntrySize: 24})

	strtabIdx := uint32(o.sectionIdx[".strtab"])
	symtabIdx := uint32(o.sectionIdx[".symtab"])
	textIdx := uint32(o.sectionIdx[".text"])

	symtab := o.SectionByName(".symtab")
	symtab.Link = strtabIdx
	symtab.Info = 1 // index of the first GLOBAL symbol (spec.md §4.7)

	rela := o.SectionByName(".rela.text")
	rela.Link = symtabIdx
	rela.Info = textIdx

	return o
}

// NewMachOStandard creates a fresh Mach-O Object with its standard
// sections: __TEXT,__text (pure instructions), __DATA,__data,
// __DATA,__bss (zerofill), __TEXT,__const. Per this module's Open
// Question decision, Mach-O objects carry no Asthra metadata sections -
// only ELF targets do (spec.md leaves Mach-O metadata naming as "or
// equivalent", and no example in the retrieval pack writes Mach-O load
// commands for custom metadata, so this scope cut avoids inventing an
// ungrounded convention).
func NewMachOStandard(arch Arch) *Object {
	o := &Object{Arch: arch, Format: FormatMachO}
	o.addSection(&Section{Name: "__TEXT,__text", Kind: KindProgbits, Flags: FlagAlloc | FlagExecInstr, Align: 16})
	o.addSection(&Section{Name: "__DATA,__data", Kind: KindProgbits, Flags: FlagAlloc | FlagWrite, Align: 8})
	o.addSection(&Section{Name: "__DATA,__bss", Kind: KindNobits, Flags: FlagAlloc | FlagWrite, Align: 8})
	o.addSection(&Section{Name: "__TEXT,__const", Kind: KindProgbits, Flags: FlagAlloc, Align: 8})
	return o
}
