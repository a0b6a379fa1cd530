package objfile

import (
	"bytes"
	"encoding/binary"
)

// Metadata section magics (spec.md §4.7). Each is a 4-byte ASCII value;
// "gc\0" is padded with a trailing NUL since "AGC" alone is only 3 bytes.
var (
	MagicFFI             = [4]byte{'A', 'F', 'F', 'I'}
	MagicGC              = [4]byte{'A', 'G', 'C', 0}
	MagicSecurityMeta    = [4]byte{'A', 'S', 'E', 'C'}
	MagicPatternMatching = [4]byte{'A', 'P', 'A', 'T'}
	MagicStringOps       = [4]byte{'A', 'S', 'T', 'R'}
	MagicSliceMeta       = [4]byte{'A', 'S', 'L', 'I'}
	MagicConcurrency     = [4]byte{'A', 'C', 'O', 'N'}
)

// metadataSectionName maps a logical metadata kind to its ELF section
// name, prefixed `.Asthra.` per spec.md §4.7.
func metadataSectionName(logical string) string { return ".Asthra." + logical }

// FFIEntry describes one FFI-exposed function (the `ffi` metadata section).
type FFIEntry struct {
	Name             [64]byte
	ParamCount       uint32
	VariadicStart    int32 // -1 if not variadic
	CallingConv      uint32
	TransferSemantics uint32
	Address          uint64
	Params           []FFIParam
}

// FFIParam is one per-parameter record of an FFIEntry.
type FFIParam struct {
	MarshalType  uint32
	TransferType uint32
	IsBorrowed   bool
}

// GCEntry describes one GC-managed allocation site (the `gc` section).
type GCEntry struct {
	Address       uint64
	Size          uint64
	TypeID        uint32
	OwnershipType uint32
	IsMutable     bool
}

// SecurityMetaEntry describes one bounds/overflow-checked operation site.
type SecurityMetaEntry struct {
	Address    uint64
	Offset     uint64
	OpType     uint32
	MemorySize uint64
	Flags      uint32
}

// PatternMatchEntry describes one compiled `match` expression.
type PatternMatchEntry struct {
	Address           uint64
	Strategy          uint32
	ArmCount          uint32
	IsExhaustive      bool
	HasResultPatterns bool
	Arms              []PatternArm
}

// PatternArm is one per-arm record of a PatternMatchEntry.
type PatternArm struct {
	PatternType   uint32
	TargetAddress uint64
	BindingCount  uint32
}

// StringOpEntry describes one string-builtin call site.
type StringOpEntry struct {
	Address          uint64
	OpType           uint32
	OperandCount     uint32
	IsDeterministic  bool
	NeedsAllocation  bool
	TemplateAddress  uint64
	ExpressionCount  uint32
}

// SliceMetaEntry describes one slice operation site.
type SliceMetaEntry struct {
	Address         uint64
	OpType          uint32
	ElementSize     uint64
	IsMutable       bool
	BoundsChecking  bool
	BoundsCheckAddr uint64
	FFIConversion   bool
}

// ConcurrencyEntry describes one spawn/await call site.
type ConcurrencyEntry struct {
	Address        uint64
	FunctionName   [64]byte
	ArgumentCount  uint32
	NeedsHandle    bool
	SchedulerCall  uint64
	MemoryBarrier  bool
	AtomicOperations uint32
}

// metadataHeader is the common prefix of every metadata section: a 4-byte
// magic, a version, and an entry count.
func metadataHeader(magic [4]byte, version uint32, count uint32) []byte {
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, version)
	binary.Write(&buf, binary.LittleEndian, count)
	return buf.Bytes()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// EncodeFFISection serializes the `ffi` metadata section body.
func EncodeFFISection(version uint32, entries []FFIEntry) []byte {
	var buf bytes.Buffer
	buf.Write(metadataHeader(MagicFFI, version, uint32(len(entries))))
	for _, e := range entries {
		buf.Write(e.Name[:])
		binary.Write(&buf, binary.LittleEndian, e.ParamCount)
		binary.Write(&buf, binary.LittleEndian, e.VariadicStart)
		binary.Write(&buf, binary.LittleEndian, e.CallingConv)
		binary.Write(&buf, binary.LittleEndian, e.TransferSemantics)
		binary.Write(&buf, binary.LittleEndian, e.Address)
		for _, p := range e.Params {
			binary.Write(&buf, binary.LittleEndian, p.MarshalType)
			binary.Write(&buf, binary.LittleEndian, p.TransferType)
			buf.WriteByte(boolByte(p.IsBorrowed))
		}
	}
	return buf.Bytes()
}

// EncodeGCSection serializes the `gc` metadata section body.
func EncodeGCSection(version uint32, entries []GCEntry) []byte {
	var buf bytes.Buffer
	buf.Write(metadataHeader(MagicGC, version, uint32(len(entries))))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.Address)
		binary.Write(&buf, binary.LittleEndian, e.Size)
		binary.Write(&buf, binary.LittleEndian, e.TypeID)
		binary.Write(&buf, binary.LittleEndian, e.OwnershipType)
		buf.WriteByte(boolByte(e.IsMutable))
	}
	return buf.Bytes()
}

// EncodeSecurityMetaSection serializes the `security_meta` section body.
func EncodeSecurityMetaSection(version uint32, entries []SecurityMetaEntry) []byte {
	var buf bytes.Buffer
	buf.Write(metadataHeader(MagicSecurityMeta, version, uint32(len(entries))))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.Address)
		binary.Write(&buf, binary.LittleEndian, e.Offset)
		binary.Write(&buf, binary.LittleEndian, e.OpType)
		binary.Write(&buf, binary.LittleEndian, e.MemorySize)
		binary.Write(&buf, binary.LittleEndian, e.Flags)
	}
	return buf.Bytes()
}

// EncodePatternMatchingSection serializes the `pattern_matching` section.
func EncodePatternMatchingSection(version uint32, entries []PatternMatchEntry) []byte {
	var buf bytes.Buffer
	buf.Write(metadataHeader(MagicPatternMatching, version, uint32(len(entries))))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.Address)
		binary.Write(&buf, binary.LittleEndian, e.Strategy)
		binary.Write(&buf, binary.LittleEndian, e.ArmCount)
		buf.WriteByte(boolByte(e.IsExhaustive))
		buf.WriteByte(boolByte(e.HasResultPatterns))
		for _, a := range e.Arms {
			binary.Write(&buf, binary.LittleEndian, a.PatternType)
			binary.Write(&buf, binary.LittleEndian, a.TargetAddress)
			binary.Write(&buf, binary.LittleEndian, a.BindingCount)
		}
	}
	return buf.Bytes()
}

// EncodeStringOpsSection serializes the `string_ops` section.
func EncodeStringOpsSection(version uint32, entries []StringOpEntry) []byte {
	var buf bytes.Buffer
	buf.Write(metadataHeader(MagicStringOps, version, uint32(len(entries))))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.Address)
		binary.Write(&buf, binary.LittleEndian, e.OpType)
		binary.Write(&buf, binary.LittleEndian, e.OperandCount)
		buf.WriteByte(boolByte(e.IsDeterministic))
		buf.WriteByte(boolByte(e.NeedsAllocation))
		binary.Write(&buf, binary.LittleEndian, e.TemplateAddress)
		binary.Write(&buf, binary.LittleEndian, e.ExpressionCount)
	}
	return buf.Bytes()
}

// EncodeSliceMetaSection serializes the `slice_meta` section.
func EncodeSliceMetaSection(version uint32, entries []SliceMetaEntry) []byte {
	var buf bytes.Buffer
	buf.Write(metadataHeader(MagicSliceMeta, version, uint32(len(entries))))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.Address)
		binary.Write(&buf, binary.LittleEndian, e.OpType)
		binary.Write(&buf, binary.LittleEndian, e.ElementSize)
		buf.WriteByte(boolByte(e.IsMutable))
		buf.WriteByte(boolByte(e.BoundsChecking))
		binary.Write(&buf, binary.LittleEndian, e.BoundsCheckAddr)
		buf.WriteByte(boolByte(e.FFIConversion))
	}
	return buf.Bytes()
}

// EncodeConcurrencySection serializes the `concurrency` section.
func EncodeConcurrencySection(version uint32, entries []ConcurrencyEntry) []byte {
	var buf bytes.Buffer
	buf.Write(metadataHeader(MagicConcurrency, version, uint32(len(entries))))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.Address)
		buf.Write(e.FunctionName[:])
		binary.Write(&buf, binary.LittleEndian, e.ArgumentCount)
		buf.WriteByte(boolByte(e.NeedsHandle))
		binary.Write(&buf, binary.LittleEndian, e.SchedulerCall)
		buf.WriteByte(boolByte(e.MemoryBarrier))
		binary.Write(&buf, binary.LittleEndian, e.AtomicOperations)
	}
	return buf.Bytes()
}

// AddMetadataSection appends a fully-encoded metadata section (as
// produced by one of the Encode* functions above) to obj under its
// `.Asthra.<logical>` name and returns it for further population via
// Section.Append, if the caller wants to extend it incrementally instead
// of writing one encoded blob up front.
func (o *Object) AddMetadataSection(logical string, encoded []byte) *Section {
	s := &Section{Name: metadataSectionName(logical), Kind: KindProgbits, Flags: FlagAlloc, Align: 8}
	s.Append(encoded)
	o.addSection(s)
	return s
}
