package lower

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
	"asthra/internal/diag"
)

func newTestCtx(t *testing.T) *ctx {
	t.Helper()
	llctx := llvm.NewContext()
	mod := llctx.NewModule("test")
	return &ctx{
		Options:      Options{Arch: ArchNative},
		llctx:        llctx,
		mod:          mod,
		globals:      newSymTab(),
		usizeBits:    64,
		diags:        &diag.Collector{},
		runtimeDecls: make(map[string]llvm.Value, 4),
		strings:      make(map[string]llvm.Value, 4),
	}
}

func TestIrPrimitiveWidths(t *testing.T) {
	c := newTestCtx(t)
	cases := []struct {
		p    ast.Primitive
		bits int
	}{
		{ast.I8, 8}, {ast.U8, 8},
		{ast.I32, 32}, {ast.U32, 32},
		{ast.I64, 64}, {ast.U64, 64},
		{ast.I128, 128},
		{ast.Bool, 1},
	}
	for _, c2 := range cases {
		got := c.irPrimitive(c2.p)
		if got.IntTypeWidth() != c2.bits {
			t.Errorf("irPrimitive(%s) width = %d, want %d", c2.p, got.IntTypeWidth(), c2.bits)
		}
	}
}

func TestIrPrimitiveUsizeFollowsArchBits(t *testing.T) {
	c := newTestCtx(t)
	c.usizeBits = 32
	got := c.irPrimitive(ast.Usize)
	if got.IntTypeWidth() != 32 {
		t.Errorf("usize on a 32-bit target = %d bits, want 32", got.IntTypeWidth())
	}
}

func TestIrTypeSliceIsFatPointerStruct(t *testing.T) {
	c := newTestCtx(t)
	sliceType := ast.SliceOf(ast.Primitive_(ast.I32))
	got := c.irType(sliceType)
	if got.TypeKind() != llvm.StructTypeKind {
		t.Fatalf("slice lowers to %v, want a struct", got.TypeKind())
	}
	elems := got.StructElementTypes()
	if len(elems) != 2 {
		t.Fatalf("slice struct has %d fields, want 2", len(elems))
	}
	if elems[0].TypeKind() != llvm.PointerTypeKind {
		t.Errorf("slice field 0 = %v, want pointer", elems[0].TypeKind())
	}
	if elems[1].IntTypeWidth() != 64 {
		t.Errorf("slice length field width = %d, want 64", elems[1].IntTypeWidth())
	}
}

func TestEnumWithoutPayloadLowersToTagInt(t *testing.T) {
	c := newTestCtx(t)
	dir := &ast.Type{
		Kind: ast.KindEnum,
		Variants: []ast.EnumVariant{
			{Name: "North"}, {Name: "East"}, {Name: "South"}, {Name: "West"},
		},
	}
	got := c.irType(dir)
	if got.TypeKind() != llvm.IntegerTypeKind || got.IntTypeWidth() != 32 {
		t.Errorf("payload-less enum lowers to %v, want i32", got)
	}
}

func TestEnumWithPayloadLowersToTaggedStruct(t *testing.T) {
	c := newTestCtx(t)
	opt := &ast.Type{
		Kind: ast.KindEnum,
		Variants: []ast.EnumVariant{
			{Name: "None"},
			{Name: "Some", Payload: ast.Primitive_(ast.I64)},
		},
	}
	got := c.irType(opt)
	if got.TypeKind() != llvm.StructTypeKind {
		t.Fatalf("payload enum lowers to %v, want a struct", got.TypeKind())
	}
	elems := got.StructElementTypes()
	if len(elems) != 2 || elems[0].IntTypeWidth() != 32 {
		t.Fatalf("payload enum struct shape = %v, want [i32, byte array]", elems)
	}
}

func TestSizeofPrimitiveRoundsUpToBytes(t *testing.T) {
	got, err := sizeofPrimitive(ast.I32)
	if err != nil || got != 4 {
		t.Errorf("sizeof(i32) = %d, %v, want 4, nil", got, err)
	}
	got, err = sizeofPrimitive(ast.Bool)
	if err != nil || got != 1 {
		t.Errorf("sizeof(bool) = %d, %v, want 1, nil", got, err)
	}
}
