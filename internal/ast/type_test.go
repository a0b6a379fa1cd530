package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPrimitiveBitWidth(t *testing.T) {
	cases := []struct {
		p    Primitive
		want int
	}{
		{I32, 32},
		{I64, 64},
		{Usize, 64},
		{U8, 8},
		{F32, 32},
		{F64, 64},
		{Bool, 1},
	}
	for _, c := range cases {
		if got := c.p.BitWidth(); got != c.want {
			t.Errorf("%s.BitWidth() = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestPrimitiveSignedness(t *testing.T) {
	if !I32.IsSignedInt() {
		t.Error("i32 should be signed")
	}
	if U32.IsSignedInt() {
		t.Error("u32 should not be signed")
	}
	if !U32.IsUnsignedInt() {
		t.Error("u32 should be unsigned")
	}
	if !F64.IsFloat() {
		t.Error("f64 should be float")
	}
}

func TestStructFieldIndex(t *testing.T) {
	st := &Type{
		Kind: KindStruct,
		Fields: []StructField{
			{Name: "x", Type: Primitive_(I32)},
			{Name: "y", Type: Primitive_(I32)},
		},
	}
	if st.FieldIndex("y") != 1 {
		t.Errorf("FieldIndex(y) = %d, want 1", st.FieldIndex("y"))
	}
	if st.FieldIndex("z") != -1 {
		t.Errorf("FieldIndex(z) should be -1 for missing field")
	}
}

func TestEnumVariantIndex(t *testing.T) {
	en := &Type{
		Kind: KindEnum,
		Variants: []EnumVariant{
			{Name: "North"}, {Name: "East"}, {Name: "South"}, {Name: "West"},
		},
	}
	if en.VariantIndex("East") != 1 {
		t.Errorf("VariantIndex(East) = %d, want 1", en.VariantIndex("East"))
	}
	if en.VariantIndex("Unknown") != -1 {
		t.Error("VariantIndex for an unknown variant should be -1")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	opt := OptionOf(Primitive_(I32))
	if opt.Kind != KindOption || opt.ValueType.Prim != I32 {
		t.Errorf("OptionOf produced %v", opt)
	}
	res := ResultOf(Primitive_(I32), Primitive_(StringPrim))
	if res.Kind != KindResult || res.OkType.Prim != I32 || res.ErrType.Prim != StringPrim {
		t.Errorf("ResultOf produced %v", res)
	}
	arr := ArrayOf(Primitive_(U8), 16)
	if arr.Kind != KindArray || arr.ArrayLen != 16 || !arr.IsFixedArr {
		t.Errorf("ArrayOf produced %v", arr)
	}
}

func TestTypeStringHandlesNil(t *testing.T) {
	var tp *Type
	if tp.String() != "<unresolved>" {
		t.Errorf("nil Type.String() = %q, want <unresolved>", tp.String())
	}
}

// TestFunctionTypeStructuralEquality compares two independently-built
// function signatures field by field, the way two lowering passes that
// resolve the same declaration twice must agree.
func TestFunctionTypeStructuralEquality(t *testing.T) {
	want := &Type{
		Kind:    KindFunction,
		Params:  []*Type{Primitive_(I32), Primitive_(I32)},
		Returns: Primitive_(I32),
	}
	got := &Type{
		Kind:    KindFunction,
		Params:  []*Type{Primitive_(I32), Primitive_(I32)},
		Returns: Primitive_(I32),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("function type signature mismatch (-want +got):\n%s", diff)
	}
}
