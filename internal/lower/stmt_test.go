package lower

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

func TestLowerBreakOutsideLoopFails(t *testing.T) {
	f := newTestFuncScope(t)
	err := f.lowerBreak(&ast.Node{Kind: ast.Break})
	if err == nil {
		t.Error("break outside a loop should fail")
	}
}

func TestLowerContinueOutsideLoopFails(t *testing.T) {
	f := newTestFuncScope(t)
	err := f.lowerContinue(&ast.Node{Kind: ast.Continue})
	if err == nil {
		t.Error("continue outside a loop should fail")
	}
}

func TestLowerBreakUsesLoopFrameTarget(t *testing.T) {
	f := newTestFuncScope(t)
	target := llvm.AddBasicBlock(f.fn, "loop.exit")
	f.loops.Push(&loopFrame{breakTarget: target, continueTarget: target})

	if err := f.lowerBreak(&ast.Node{Kind: ast.Break}); err != nil {
		t.Fatalf("lowerBreak: %v", err)
	}
	last := f.b.GetInsertBlock().LastInstruction()
	if last.IsNil() || last.InstructionOpcode() != llvm.Br {
		t.Error("lowerBreak did not emit a branch to the loop's break target")
	}
}

func TestLowerLetAllocatesAndStores(t *testing.T) {
	f := newTestFuncScope(t)
	letNode := &ast.Node{
		Kind: ast.Let,
		Data: ast.LetData{Name: "x", DeclaredType: ast.Primitive_(ast.I32)},
		Children: []*ast.Node{
			{Kind: ast.IntLiteral, Data: int64(7), Type: ast.Primitive_(ast.I32)},
		},
	}
	if err := f.lowerLet(letNode); err != nil {
		t.Fatalf("lowerLet: %v", err)
	}
	lv, ok := f.lookupLocal("x")
	if !ok {
		t.Fatal("lowerLet did not declare the local")
	}
	if lv.typ.Prim != ast.I32 {
		t.Errorf("declared local type = %v, want i32", lv.typ)
	}
}

func TestBlockHasTerminator(t *testing.T) {
	f := newTestFuncScope(t)
	bb := f.b.GetInsertBlock()
	if blockHasTerminator(bb) {
		t.Error("fresh empty block should have no terminator")
	}
	f.b.CreateRetVoid()
	if !blockHasTerminator(bb) {
		t.Error("block ending in ret void should be terminated")
	}
}
