package lower

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
	"asthra/internal/diag"
)

func ident(name string) *ast.Node { return &ast.Node{Kind: ast.Identifier, Data: name} }

func intLitNode(v int64) *ast.Node {
	return &ast.Node{Kind: ast.IntLiteral, Data: v, Type: ast.Primitive_(ast.I32)}
}

// TestLowerProgramAddAndMain builds `add(a, b) i32 { return a + b; }` plus
// `asthra_main() i32 { return add(2, 3); }` directly as an ast.Node tree and
// lowers the whole unit, checking that both functions verify and that a
// C-ABI `main` wrapper gets synthesized around asthra_main.
func TestLowerProgramAddAndMain(t *testing.T) {
	i32 := ast.Primitive_(ast.I32)
	addType := &ast.Type{Kind: ast.KindFunction, Params: []*ast.Type{i32, i32}, Returns: i32}
	addDecl := &ast.Node{
		Kind: ast.FunctionDecl,
		Type: addType,
		Data: ast.FunctionDeclData{Name: "add", ParamNames: []string{"a", "b"}},
		Children: []*ast.Node{
			{
				Kind: ast.Return,
				Children: []*ast.Node{
					{Kind: ast.Binary, Data: "+", Type: i32, Children: []*ast.Node{ident("a"), ident("b")}},
				},
			},
		},
	}

	mainType := &ast.Type{Kind: ast.KindFunction, Returns: i32}
	mainDecl := &ast.Node{
		Kind: ast.FunctionDecl,
		Type: mainType,
		Data: ast.FunctionDeclData{Name: "asthra_main"},
		Children: []*ast.Node{
			{
				Kind: ast.Return,
				Children: []*ast.Node{
					{
						Kind:     ast.Call,
						Type:     i32,
						Data:     ast.CallData{FuncName: "add"},
						Children: []*ast.Node{intLitNode(2), intLitNode(3)},
					},
				},
			},
		},
	}

	root := &ast.Node{Kind: ast.Program, Children: []*ast.Node{addDecl, mainDecl}}
	diags := &diag.Collector{}
	mod, err := LowerProgram(Options{ModuleName: "test"}, diags, root)
	if err != nil {
		t.Fatalf("LowerProgram: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("LowerProgram reported errors: %v", diags.Diagnostics())
	}

	addFn := mod.NamedFunction("add")
	if addFn.IsNil() {
		t.Fatal("add was erased or never declared")
	}
	mainFn := mod.NamedFunction("main")
	if mainFn.IsNil() {
		t.Fatal("LowerProgram did not synthesize a main() wrapper around asthra_main")
	}
	if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
		t.Fatalf("module failed verification: %v", err)
	}
}

// TestLowerProgramModuleScopeConstWithIdentifierReference exercises
// module.go's Pass 2: a const referencing an earlier const by identifier.
func TestLowerProgramModuleScopeConstWithIdentifierReference(t *testing.T) {
	i32 := ast.Primitive_(ast.I32)
	base := &ast.Node{
		Kind: ast.ConstDecl,
		Type: i32,
		Data: ast.ConstDeclData{Name: "BASE"},
		Children: []*ast.Node{
			{Kind: ast.Binary, Data: "+", Children: []*ast.Node{intLitNode(1), intLitNode(1)}},
		},
	}
	derived := &ast.Node{
		Kind: ast.ConstDecl,
		Type: i32,
		Data: ast.ConstDeclData{Name: "DERIVED"},
		Children: []*ast.Node{
			{Kind: ast.Binary, Data: "*", Children: []*ast.Node{ident("BASE"), intLitNode(10)}},
		},
	}
	root := &ast.Node{Kind: ast.Program, Children: []*ast.Node{base, derived}}
	diags := &diag.Collector{}
	mod, err := LowerProgram(Options{ModuleName: "consts"}, diags, root)
	if err != nil {
		t.Fatalf("LowerProgram: %v", err)
	}
	if diags.HasErrors() {
		t.Fatalf("LowerProgram reported errors: %v", diags.Diagnostics())
	}
	if mod.NamedGlobal("DERIVED").IsNil() {
		t.Fatal("DERIVED const global was not created")
	}
}

func TestLowerProgramUndeclaredCallRecordsDiagnosticWithoutPanicking(t *testing.T) {
	i32 := ast.Primitive_(ast.I32)
	mainType := &ast.Type{Kind: ast.KindFunction, Returns: i32}
	mainDecl := &ast.Node{
		Kind: ast.FunctionDecl,
		Type: mainType,
		Data: ast.FunctionDeclData{Name: "asthra_main"},
		Children: []*ast.Node{
			{
				Kind: ast.Return,
				Children: []*ast.Node{
					{Kind: ast.Call, Type: i32, Data: ast.CallData{FuncName: "does_not_exist"}},
				},
			},
		},
	}
	root := &ast.Node{Kind: ast.Program, Children: []*ast.Node{mainDecl}}
	diags := &diag.Collector{}
	if _, err := LowerProgram(Options{ModuleName: "bad"}, diags, root); err != nil {
		t.Fatalf("LowerProgram itself should not return an error: %v", err)
	}
	if !diags.HasErrors() {
		t.Error("calling an undeclared function should record a diagnostic")
	}
}
