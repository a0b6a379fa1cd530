package lower

import (
	"testing"

	"asthra/internal/ast"
)

func rangeNode(bounds ...*ast.Node) *ast.Node {
	return &ast.Node{
		Kind:     ast.Call,
		Data:     ast.CallData{FuncName: "range"},
		Children: bounds,
	}
}

func emptyBlock() *ast.Node {
	return &ast.Node{Kind: ast.Block}
}

func TestLowerForRangeSingleArgStartsAtZero(t *testing.T) {
	f := newTestFuncScope(t)
	n := &ast.Node{
		Kind: ast.For,
		Data: ast.ForData{LoopVar: "i"},
		Children: []*ast.Node{
			rangeNode(&ast.Node{Kind: ast.IntLiteral, Data: int64(10), Type: ast.Primitive_(ast.I32)}),
			emptyBlock(),
		},
	}
	if err := f.lowerFor(n); err != nil {
		t.Fatalf("lowerFor: %v", err)
	}
	if _, ok := f.lookupLocal("i"); ok {
		t.Error("loop variable should not leak out of the loop body scope")
	}
}

func TestLowerForRangeTwoArgs(t *testing.T) {
	f := newTestFuncScope(t)
	n := &ast.Node{
		Kind: ast.For,
		Data: ast.ForData{LoopVar: "i"},
		Children: []*ast.Node{
			rangeNode(
				&ast.Node{Kind: ast.IntLiteral, Data: int64(2), Type: ast.Primitive_(ast.I32)},
				&ast.Node{Kind: ast.IntLiteral, Data: int64(8), Type: ast.Primitive_(ast.I32)},
			),
			emptyBlock(),
		},
	}
	if err := f.lowerFor(n); err != nil {
		t.Fatalf("lowerFor: %v", err)
	}
}

func TestLowerForRangeZeroIterations(t *testing.T) {
	f := newTestFuncScope(t)
	n := &ast.Node{
		Kind: ast.For,
		Data: ast.ForData{LoopVar: "i"},
		Children: []*ast.Node{
			rangeNode(&ast.Node{Kind: ast.IntLiteral, Data: int64(0), Type: ast.Primitive_(ast.I32)}),
			emptyBlock(),
		},
	}
	if err := f.lowerFor(n); err != nil {
		t.Fatalf("lowerFor with range(0) should still lower cleanly: %v", err)
	}
}

func TestLowerForOverFixedArray(t *testing.T) {
	f := newTestFuncScope(t)
	arrType := ast.ArrayOf(ast.Primitive_(ast.I32), 3)
	addr := f.entryAlloca(f.c.irType(arrType), "arr")
	f.declareLocal("arr", addr, arrType)

	n := &ast.Node{
		Kind: ast.For,
		Data: ast.ForData{LoopVar: "x"},
		Children: []*ast.Node{
			{Kind: ast.Identifier, Data: "arr", Type: arrType},
			emptyBlock(),
		},
	}
	if err := f.lowerFor(n); err != nil {
		t.Fatalf("lowerFor over fixed array: %v", err)
	}
}

func TestLowerForOverSlice(t *testing.T) {
	f := newTestFuncScope(t)
	sliceType := ast.SliceOf(ast.Primitive_(ast.I32))
	addr := f.entryAlloca(f.c.irType(sliceType), "s")
	f.declareLocal("s", addr, sliceType)

	n := &ast.Node{
		Kind: ast.For,
		Data: ast.ForData{LoopVar: "x"},
		Children: []*ast.Node{
			{Kind: ast.Identifier, Data: "s", Type: sliceType},
			emptyBlock(),
		},
	}
	if err := f.lowerFor(n); err != nil {
		t.Fatalf("lowerFor over slice: %v", err)
	}
}

func TestLowerForOverNonIterableFails(t *testing.T) {
	f := newTestFuncScope(t)
	addr := f.entryAlloca(f.c.llctx.Int32Type(), "n")
	f.declareLocal("n", addr, ast.Primitive_(ast.I32))

	n := &ast.Node{
		Kind: ast.For,
		Data: ast.ForData{LoopVar: "x"},
		Children: []*ast.Node{
			{Kind: ast.Identifier, Data: "n", Type: ast.Primitive_(ast.I32)},
			emptyBlock(),
		},
	}
	if err := f.lowerFor(n); err == nil {
		t.Error("iterating over a non-array/slice type should fail")
	}
}

func TestLowerForBreakJumpsToExitBlock(t *testing.T) {
	f := newTestFuncScope(t)
	n := &ast.Node{
		Kind: ast.For,
		Data: ast.ForData{LoopVar: "i"},
		Children: []*ast.Node{
			rangeNode(&ast.Node{Kind: ast.IntLiteral, Data: int64(5), Type: ast.Primitive_(ast.I32)}),
			&ast.Node{Kind: ast.Block, Children: []*ast.Node{{Kind: ast.Break}}},
		},
	}
	if err := f.lowerFor(n); err != nil {
		t.Fatalf("lowerFor with break in body: %v", err)
	}
	if f.loops.Size() != 0 {
		t.Error("loop frame should be popped once lowerFor returns")
	}
}
