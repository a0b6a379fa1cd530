package lower

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

func TestMangledCallName(t *testing.T) {
	if got := mangledCallName(ast.CallData{FuncName: "f"}); got != "f" {
		t.Errorf("mangledCallName(free fn) = %q, want f", got)
	}
	if got := mangledCallName(ast.CallData{TypeName: "Point", FuncName: "new"}); got != "Point_new" {
		t.Errorf("mangledCallName(method) = %q, want Point_new", got)
	}
}

func TestLowerCallToDeclaredFunction(t *testing.T) {
	f := newTestFuncScope(t)
	i32 := f.c.llctx.Int32Type()
	fnType := llvm.FunctionType(i32, []llvm.Type{i32}, false)
	fn := llvm.AddFunction(f.c.mod, "double", fnType)
	f.c.globals.set("double", fn)

	n := &ast.Node{
		Kind: ast.Call,
		Data: ast.CallData{FuncName: "double"},
		Type: ast.Primitive_(ast.I32),
		Children: []*ast.Node{
			{Kind: ast.IntLiteral, Data: int64(21), Type: ast.Primitive_(ast.I32)},
		},
	}
	v, typ, err := f.lowerCall(n)
	if err != nil {
		t.Fatalf("lowerCall: %v", err)
	}
	if typ.Prim != ast.I32 {
		t.Errorf("call result type = %v, want i32", typ)
	}
	if v.IsNil() {
		t.Error("lowerCall returned a nil value")
	}
}

func TestLowerCallFallsBackToRuntimeBuiltin(t *testing.T) {
	f := newTestFuncScope(t)
	n := &ast.Node{
		Kind:     ast.Call,
		Data:     ast.CallData{FuncName: "asthra_runtime_cleanup"},
		Type:     ast.Primitive_(ast.Void),
		Children: nil,
	}
	if _, _, err := f.lowerCall(n); err != nil {
		t.Fatalf("lowerCall to runtime builtin: %v", err)
	}
}

func TestLowerCallUndeclaredFails(t *testing.T) {
	f := newTestFuncScope(t)
	n := &ast.Node{Kind: ast.Call, Data: ast.CallData{FuncName: "nope"}, Type: ast.Primitive_(ast.I32)}
	if _, _, err := f.lowerCall(n); err == nil {
		t.Error("calling an undeclared function should fail")
	}
}

// TestLowerSpawnIsCallThenDiscard exercises the first-phase fire-and-forget
// semantics: `spawn worker(1);` lowers the call synchronously and returns
// its own result, with no handle/task machinery involved.
func TestLowerSpawnIsCallThenDiscard(t *testing.T) {
	f := newTestFuncScope(t)
	i32 := f.c.llctx.Int32Type()
	fnType := llvm.FunctionType(i32, []llvm.Type{i32}, false)
	fn := llvm.AddFunction(f.c.mod, "worker", fnType)
	f.c.globals.set("worker", fn)

	callExpr := &ast.Node{
		Kind: ast.Call,
		Data: ast.CallData{FuncName: "worker"},
		Type: ast.Primitive_(ast.I32),
		Children: []*ast.Node{
			{Kind: ast.IntLiteral, Data: int64(1), Type: ast.Primitive_(ast.I32)},
		},
	}
	spawn := &ast.Node{Kind: ast.Spawn, Children: []*ast.Node{callExpr}}
	v, typ, err := f.lowerSpawn(spawn)
	if err != nil {
		t.Fatalf("lowerSpawn: %v", err)
	}
	if typ.Prim != ast.I32 {
		t.Errorf("spawn result type = %v, want i32 (the call's own type)", typ)
	}
	if v.IsNil() {
		t.Error("lowerSpawn returned a nil value")
	}
}

// TestLowerSpawnHandleStoresCallResult covers the call-then-store path for
// a value-returning target: the handle local's type and stored value must
// be the target call's own result, not a synthesized task handle.
func TestLowerSpawnHandleStoresCallResult(t *testing.T) {
	f := newTestFuncScope(t)
	i32 := f.c.llctx.Int32Type()
	fnType := llvm.FunctionType(i32, nil, false)
	fn := llvm.AddFunction(f.c.mod, "worker", fnType)
	f.c.globals.set("worker", fn)

	callExpr := &ast.Node{Kind: ast.Call, Data: ast.CallData{FuncName: "worker"}, Type: ast.Primitive_(ast.I32)}
	n := &ast.Node{
		Kind:     ast.SpawnHandle,
		Data:     ast.SpawnHandleData{HandleName: "h"},
		Children: []*ast.Node{callExpr},
	}
	if err := f.lowerSpawnHandle(n); err != nil {
		t.Fatalf("lowerSpawnHandle: %v", err)
	}
	lv, ok := f.lookupLocal("h")
	if !ok {
		t.Fatal("lowerSpawnHandle did not declare the handle local")
	}
	if lv.typ.Prim != ast.I32 {
		t.Errorf("handle local type = %v, want i32 (the call's own result type)", lv.typ)
	}
}

// TestLowerSpawnHandleVoidCallStoresDummySlot covers spec.md's "or a dummy
// i32=0 slot for void results" case.
func TestLowerSpawnHandleVoidCallStoresDummySlot(t *testing.T) {
	f := newTestFuncScope(t)
	fnType := llvm.FunctionType(f.c.llctx.VoidType(), nil, false)
	fn := llvm.AddFunction(f.c.mod, "worker", fnType)
	f.c.globals.set("worker", fn)

	callExpr := &ast.Node{Kind: ast.Call, Data: ast.CallData{FuncName: "worker"}}
	n := &ast.Node{
		Kind:     ast.SpawnHandle,
		Data:     ast.SpawnHandleData{HandleName: "h"},
		Children: []*ast.Node{callExpr},
	}
	if err := f.lowerSpawnHandle(n); err != nil {
		t.Fatalf("lowerSpawnHandle: %v", err)
	}
	lv, ok := f.lookupLocal("h")
	if !ok {
		t.Fatal("lowerSpawnHandle did not declare the handle local")
	}
	if lv.typ.Prim != ast.I32 {
		t.Errorf("void-call handle local type = %v, want dummy i32", lv.typ)
	}
}

// TestLowerAwaitLoadsHandleLocalSlot covers the first-phase await
// semantics: a load from the handle's own local slot, not a runtime call.
func TestLowerAwaitLoadsHandleLocalSlot(t *testing.T) {
	f := newTestFuncScope(t)
	i32 := ast.Primitive_(ast.I32)
	addr := f.entryAlloca(f.c.llctx.Int32Type(), "h")
	f.b.CreateStore(llvm.ConstInt(f.c.llctx.Int32Type(), 42, false), addr)
	f.declareLocal("h", addr, i32)

	n := &ast.Node{
		Kind:     ast.Await,
		Children: []*ast.Node{{Kind: ast.Identifier, Data: "h", Type: i32}},
	}
	v, typ, err := f.lowerAwait(n)
	if err != nil {
		t.Fatalf("lowerAwait: %v", err)
	}
	if typ.Prim != ast.I32 {
		t.Errorf("await result type = %v, want i32", typ)
	}
	if v.IsNil() {
		t.Error("lowerAwait returned a nil value")
	}
}
