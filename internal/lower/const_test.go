package lower

import (
	"testing"

	"asthra/internal/ast"
)

func intLit(v int64) *ast.Node {
	return &ast.Node{Kind: ast.IntLiteral, Data: v, Type: ast.Primitive_(ast.I32)}
}

func TestFoldConstArithmetic(t *testing.T) {
	// (2 + 3) * 4 = 20
	n := &ast.Node{
		Kind: ast.Binary,
		Data: "*",
		Children: []*ast.Node{
			{Kind: ast.Binary, Data: "+", Children: []*ast.Node{intLit(2), intLit(3)}},
			intLit(4),
		},
	}
	v, err := foldConst(n, nil)
	if err != nil {
		t.Fatalf("foldConst: %v", err)
	}
	if v.I != 20 {
		t.Errorf("folded value = %d, want 20", v.I)
	}
}

func TestFoldConstUnaryNegateAndNot(t *testing.T) {
	neg := &ast.Node{Kind: ast.Unary, Data: "-", Children: []*ast.Node{intLit(5)}}
	v, err := foldConst(neg, nil)
	if err != nil || v.I != -5 {
		t.Errorf("fold(-5) = %d, %v, want -5, nil", v.I, err)
	}

	not := &ast.Node{Kind: ast.Unary, Data: "!", Children: []*ast.Node{
		{Kind: ast.BoolLiteral, Data: true, Type: ast.Primitive_(ast.Bool)},
	}}
	v, err = foldConst(not, nil)
	if err != nil || v.Bool != false {
		t.Errorf("fold(!true) = %v, %v, want false, nil", v.Bool, err)
	}
}

func TestFoldConstRejectsDisallowedOperator(t *testing.T) {
	n := &ast.Node{Kind: ast.Binary, Data: "/", Children: []*ast.Node{intLit(10), intLit(2)}}
	if _, err := foldConst(n, nil); err == nil {
		t.Error("division is not in the allowed const-fold operator set (+ - * ! ~) and should fail")
	}
	n2 := &ast.Node{Kind: ast.Binary, Data: "&&", Children: []*ast.Node{intLit(1), intLit(0)}}
	if _, err := foldConst(n2, nil); err == nil {
		t.Error("&& is not in the allowed const-fold operator set and should fail")
	}
}

func TestFoldConstResolvesIdentifierFromEnv(t *testing.T) {
	env := map[string]constVal{"BASE": {Type: ast.Primitive_(ast.I32), I: 10}}
	ref := &ast.Node{Kind: ast.Identifier, Data: "BASE"}
	v, err := foldConst(ref, env)
	if err != nil || v.I != 10 {
		t.Errorf("fold(BASE) = %d, %v, want 10, nil", v.I, err)
	}
}

func TestFoldConstUnknownIdentifierFails(t *testing.T) {
	ref := &ast.Node{Kind: ast.Identifier, Data: "MISSING"}
	if _, err := foldConst(ref, map[string]constVal{}); err == nil {
		t.Error("an identifier with no prior folded const should fail")
	}
}

func TestFoldConstRejectsNonFoldableExpression(t *testing.T) {
	call := &ast.Node{Kind: ast.Call, Data: ast.CallData{FuncName: "f"}}
	if _, err := foldConst(call, nil); err == nil {
		t.Error("a call expression is not const-foldable and should fail")
	}
}
