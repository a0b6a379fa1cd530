package objfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Mach-O constants used by this writer. Scoped to the standard sections
// only (see NewMachOStandard's doc comment for why metadata sections are
// ELF-only in this module).
const (
	machoMagic64 = 0xFEEDFACF

	cpuTypeX86_64  = 0x01000007
	cpuTypeArm64   = 0x0100000C
	cpuSubtypeAll  = 0x00000003

	mhObject = 0x1

	lcSegment64 = 0x19

	sAttrPureInstructions = 0x80000000
)

func machoCPUType(a Arch) uint32 {
	if a == ArchArm64 {
		return cpuTypeArm64
	}
	return cpuTypeX86_64
}

// WriteMachO serializes obj's standard sections as a single __TEXT/__DATA
// Mach-O relocatable object with one LC_SEGMENT_64 load command wrapping
// all sections. This module's Mach-O support only covers the sections
// spec.md §4.7 names for it; it does not carry relocations or symbol
// tables to the depth the ELF writer does.
func WriteMachO(obj *Object) ([]byte, error) {
	if obj.Format != FormatMachO {
		return nil, fmt.Errorf("objfile: WriteMachO called on a non-Mach-O object")
	}

	type segSection struct {
		segname, sectname string
		addr, size, offset uint64
		align              uint32
		flags              uint32
	}

	var secs []segSection
	var body bytes.Buffer
	var cursor uint64

	for _, s := range obj.Sections {
		seg, sect := splitMachoName(s.Name)
		if s.Align > 1 {
			cursor = alignUp(cursor, s.Align)
		}
		flags := uint32(0)
		if s.Flags&FlagExecInstr != 0 {
			flags |= sAttrPureInstructions
		}
		size := uint64(len(s.Data))
		if s.Kind == KindNobits {
			size = 0
		} else {
			for uint64(body.Len()) < cursor {
				body.WriteByte(0)
			}
			body.Write(s.Data)
		}
		secs = append(secs, segSection{seg, sect, cursor, uint64(len(s.Data)), cursor, uint32(s.Align), flags})
		cursor += size
	}

	const machHeaderSize = 32
	const segCmdSize = 72
	const sectCmdSize = 80
	loadCmdSize := uint32(segCmdSize + sectCmdSize*len(secs))

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(machoMagic64))
	binary.Write(&out, binary.LittleEndian, machoCPUType(obj.Arch))
	binary.Write(&out, binary.LittleEndian, uint32(cpuSubtypeAll))
	binary.Write(&out, binary.LittleEndian, uint32(mhObject))
	binary.Write(&out, binary.LittleEndian, uint32(1)) // ncmds
	binary.Write(&out, binary.LittleEndian, loadCmdSize)
	binary.Write(&out, binary.LittleEndian, uint32(0)) // flags
	binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved

	dataOff := uint64(machHeaderSize) + uint64(loadCmdSize)

	binary.Write(&out, binary.LittleEndian, uint32(lcSegment64))
	binary.Write(&out, binary.LittleEndian, uint32(segCmdSize+sectCmdSize*len(secs)))
	var segname [16]byte
	out.Write(segname[:])
	binary.Write(&out, binary.LittleEndian, uint64(0))      // vmaddr
	binary.Write(&out, binary.LittleEndian, cursor)         // vmsize
	binary.Write(&out, binary.LittleEndian, dataOff)        // fileoff
	binary.Write(&out, binary.LittleEndian, uint64(body.Len()))
	binary.Write(&out, binary.LittleEndian, uint32(7)) // maxprot rwx
	binary.Write(&out, binary.LittleEndian, uint32(7)) // initprot
	binary.Write(&out, binary.LittleEndian, uint32(len(secs)))
	binary.Write(&out, binary.LittleEndian, uint32(0)) // flags

	for _, s := range secs {
		var sectname, segn [16]byte
		copy(sectname[:], s.sectname)
		copy(segn[:], s.segname)
		out.Write(sectname[:])
		out.Write(segn[:])
		binary.Write(&out, binary.LittleEndian, s.addr)
		binary.Write(&out, binary.LittleEndian, s.size)
		binary.Write(&out, binary.LittleEndian, uint32(dataOff+s.offset))
		binary.Write(&out, binary.LittleEndian, s.align)
		binary.Write(&out, binary.LittleEndian, uint32(0)) // reloff
		binary.Write(&out, binary.LittleEndian, uint32(0)) // nreloc
		binary.Write(&out, binary.LittleEndian, s.flags)
		binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved1
		binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved2
		binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved3
	}

	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func splitMachoName(name string) (seg, sect string) {
	for i := 0; i < len(name); i++ {
		if name[i] == ',' {
			return name[:i], name[i+1:]
		}
	}
	return "__TEXT", name
}
