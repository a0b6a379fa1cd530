package ast

import "fmt"

// TypeKind tags the sum type Type. Generalized from the teacher's NodeType
// int-constant + parallel-string-table idiom (src/ir/nodetype.go), since
// VSL's own ambient-type set (int, float) is far too small to generalize
// from directly - spec.md §3 names the full descriptor set.
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindPointer
	KindSlice
	KindArray
	KindStruct
	KindEnum
	KindTuple
	KindOption
	KindResult
	KindFunction
)

// Primitive enumerates the primitive base types of spec.md §3.
type Primitive int

const (
	I8 Primitive = iota
	I16
	I32
	I64
	I128
	U8
	U16
	U32
	U64
	U128
	Usize
	Isize
	F32
	F64
	Bool
	StringPrim
	Char
	Void
	Never
	Unit
)

var primitiveNames = [...]string{
	"i8", "i16", "i32", "i64", "i128",
	"u8", "u16", "u32", "u64", "u128",
	"usize", "isize", "f32", "f64", "bool", "string", "char", "void", "never", "unit",
}

func (p Primitive) String() string {
	if int(p) < 0 || int(p) >= len(primitiveNames) {
		return "<invalid primitive>"
	}
	return primitiveNames[p]
}

// IsSignedInt reports whether p is a signed integer primitive.
func (p Primitive) IsSignedInt() bool {
	switch p {
	case I8, I16, I32, I64, I128, Isize:
		return true
	}
	return false
}

// IsUnsignedInt reports whether p is an unsigned integer primitive.
func (p Primitive) IsUnsignedInt() bool {
	switch p {
	case U8, U16, U32, U64, U128, Usize:
		return true
	}
	return false
}

// IsInt reports whether p is any integer primitive.
func (p Primitive) IsInt() bool { return p.IsSignedInt() || p.IsUnsignedInt() }

// IsFloat reports whether p is a floating-point primitive.
func (p Primitive) IsFloat() bool { return p == F32 || p == F64 }

// BitWidth returns the ABI bit width of an integer or float primitive on a
// 64-bit target (usize/isize are 64-bit, per spec.md §4.1).
func (p Primitive) BitWidth() int {
	switch p {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32:
		return 32
	case I64, U64, Usize, Isize:
		return 64
	case I128, U128:
		return 128
	case F32:
		return 32
	case F64:
		return 64
	case Bool:
		return 1
	}
	return 0
}

// Type is the tagged-union type descriptor spec.md §3 requires. Exactly one
// of the Kind-specific fields is meaningful for a given Kind; the others are
// zero. This mirrors the teacher's dispatch-by-Typ idiom rather than a Go
// interface hierarchy, since every lowering visitor needs the same
// switch-on-Kind shape spec.md's design notes call for ("tagged unions
// pervasive... exhaustive pattern matching at every visitor").
type Type struct {
	Kind TypeKind

	Prim Primitive // KindPrimitive

	Pointee    *Type // KindPointer
	PointeeMut bool  // KindPointer: true if `*mut T`

	Elem       *Type // KindSlice, KindArray
	ArrayLen   int64 // KindArray
	IsFixedArr bool  // KindArray: true distinguishes [N]T from Slice{T}

	Fields []StructField // KindStruct
	Packed bool          // KindStruct

	Variants []EnumVariant // KindEnum

	Elements []*Type // KindTuple

	ValueType *Type // KindOption

	OkType  *Type // KindResult
	ErrType *Type // KindResult

	Params  []*Type // KindFunction
	Returns *Type   // KindFunction
}

// StructField is one field of a KindStruct Type. Offset is optional
// (resolved by the semantic analyzer); field lookup is always by Name and
// index, never by Offset (spec.md §9 design notes).
type StructField struct {
	Name   string
	Type   *Type
	Offset *int64
}

// FieldIndex returns the declared index of the named field, or -1 if the
// struct has no such field. O(fields), which is fine since field counts are
// small (spec.md §9).
func (t *Type) FieldIndex(name string) int {
	if t == nil || t.Kind != KindStruct {
		return -1
	}
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// EnumVariant is one variant of a KindEnum Type. Payload is nil for a
// unit-like variant.
type EnumVariant struct {
	Name    string
	Payload *Type
}

// VariantIndex returns the declared index of the named variant, or -1 if
// absent. Tag lookup must always go through this method - spec.md §9 flags
// a hard-coded variant-name-to-tag table in the source as a bug to remove,
// and this module never introduces one.
func (t *Type) VariantIndex(name string) int {
	if t == nil || t.Kind != KindEnum {
		return -1
	}
	for i, v := range t.Variants {
		if v.Name == name {
			return i
		}
	}
	return -1
}

func (t *Type) String() string {
	if t == nil {
		return "<unresolved>"
	}
	switch t.Kind {
	case KindPrimitive:
		return t.Prim.String()
	case KindPointer:
		if t.PointeeMut {
			return fmt.Sprintf("*mut %s", t.Pointee)
		}
		return fmt.Sprintf("*%s", t.Pointee)
	case KindSlice:
		return fmt.Sprintf("[]%s", t.Elem)
	case KindArray:
		return fmt.Sprintf("[%d]%s", t.ArrayLen, t.Elem)
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindTuple:
		return "tuple"
	case KindOption:
		return fmt.Sprintf("Option<%s>", t.ValueType)
	case KindResult:
		return fmt.Sprintf("Result<%s,%s>", t.OkType, t.ErrType)
	case KindFunction:
		return "fn"
	default:
		return "<invalid type>"
	}
}

// Convenience constructors used throughout the lowerer and its tests.

func Primitive_(p Primitive) *Type { return &Type{Kind: KindPrimitive, Prim: p} }

func PointerTo(pointee *Type, mut bool) *Type {
	return &Type{Kind: KindPointer, Pointee: pointee, PointeeMut: mut}
}

func SliceOf(elem *Type) *Type { return &Type{Kind: KindSlice, Elem: elem} }

func ArrayOf(elem *Type, n int64) *Type {
	return &Type{Kind: KindArray, Elem: elem, ArrayLen: n, IsFixedArr: true}
}

func OptionOf(value *Type) *Type { return &Type{Kind: KindOption, ValueType: value} }

func ResultOf(ok, err *Type) *Type { return &Type{Kind: KindResult, OkType: ok, ErrType: err} }

func FunctionType(params []*Type, ret *Type) *Type {
	return &Type{Kind: KindFunction, Params: params, Returns: ret}
}
