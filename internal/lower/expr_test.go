package lower

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

func TestLowerIdentifierFromLocal(t *testing.T) {
	f := newTestFuncScope(t)
	addr := f.entryAlloca(f.c.llctx.Int32Type(), "x")
	f.b.CreateStore(llvm.ConstInt(f.c.llctx.Int32Type(), 9, false), addr)
	f.declareLocal("x", addr, ast.Primitive_(ast.I32))

	v, typ, err := f.lowerIdentifier(&ast.Node{Kind: ast.Identifier, Data: "x"})
	if err != nil {
		t.Fatalf("lowerIdentifier: %v", err)
	}
	if typ.Prim != ast.I32 {
		t.Errorf("identifier type = %v, want i32", typ)
	}
	if v.IsNil() {
		t.Error("lowerIdentifier returned a nil value")
	}
}

func TestLowerIdentifierUndefinedFails(t *testing.T) {
	f := newTestFuncScope(t)
	if _, _, err := f.lowerIdentifier(&ast.Node{Kind: ast.Identifier, Data: "nope"}); err == nil {
		t.Error("an undefined identifier should fail")
	}
}

func TestLowerEmptyArrayLiteralToSliceIsZeroValued(t *testing.T) {
	f := newTestFuncScope(t)
	sliceType := ast.SliceOf(ast.Primitive_(ast.I32))
	n := &ast.Node{Kind: ast.ArrayLiteral, Type: sliceType}
	v, typ, err := f.lowerArrayLiteral(n)
	if err != nil {
		t.Fatalf("lowerArrayLiteral: %v", err)
	}
	if typ.Kind != ast.KindSlice {
		t.Errorf("empty array literal result type = %v, want slice", typ)
	}
	if v.IsNil() {
		t.Error("lowerArrayLiteral returned a nil value")
	}
}

func TestLowerArrayLiteralInsertsElementsInOrder(t *testing.T) {
	f := newTestFuncScope(t)
	arrType := ast.ArrayOf(ast.Primitive_(ast.I32), 3)
	n := &ast.Node{
		Kind: ast.ArrayLiteral,
		Type: arrType,
		Children: []*ast.Node{
			{Kind: ast.IntLiteral, Data: int64(1), Type: ast.Primitive_(ast.I32)},
			{Kind: ast.IntLiteral, Data: int64(2), Type: ast.Primitive_(ast.I32)},
			{Kind: ast.IntLiteral, Data: int64(3), Type: ast.Primitive_(ast.I32)},
		},
	}
	v, _, err := f.lowerArrayLiteral(n)
	if err != nil {
		t.Fatalf("lowerArrayLiteral: %v", err)
	}
	if v.IsNil() {
		t.Error("lowerArrayLiteral returned a nil value")
	}
}

func TestLowerStructLiteralFieldOrderIndependent(t *testing.T) {
	f := newTestFuncScope(t)
	structType := &ast.Type{
		Kind: ast.KindStruct,
		Fields: []ast.StructField{
			{Name: "x", Type: ast.Primitive_(ast.I32)},
			{Name: "y", Type: ast.Primitive_(ast.I32)},
		},
	}
	n := &ast.Node{
		Kind: ast.StructLiteral,
		Type: structType,
		Data: ast.StructLiteralData{TypeName: "Point", Fields: []string{"y", "x"}},
		Children: []*ast.Node{
			{Kind: ast.IntLiteral, Data: int64(2), Type: ast.Primitive_(ast.I32)},
			{Kind: ast.IntLiteral, Data: int64(1), Type: ast.Primitive_(ast.I32)},
		},
	}
	v, _, err := f.lowerStructLiteral(n)
	if err != nil {
		t.Fatalf("lowerStructLiteral: %v", err)
	}
	if v.IsNil() {
		t.Error("lowerStructLiteral returned a nil value")
	}
}

func TestLowerStructLiteralUnknownFieldFails(t *testing.T) {
	f := newTestFuncScope(t)
	structType := &ast.Type{
		Kind:   ast.KindStruct,
		Fields: []ast.StructField{{Name: "x", Type: ast.Primitive_(ast.I32)}},
	}
	n := &ast.Node{
		Kind:     ast.StructLiteral,
		Type:     structType,
		Data:     ast.StructLiteralData{TypeName: "Point", Fields: []string{"z"}},
		Children: []*ast.Node{{Kind: ast.IntLiteral, Data: int64(1), Type: ast.Primitive_(ast.I32)}},
	}
	if _, _, err := f.lowerStructLiteral(n); err == nil {
		t.Error("an unknown field name should fail")
	}
}

func TestIsExprKindClassification(t *testing.T) {
	if isExprKind(ast.Let) {
		t.Error("Let must not be classified as an expression kind")
	}
	if !isExprKind(ast.Binary) {
		t.Error("Binary must be classified as an expression kind")
	}
}
