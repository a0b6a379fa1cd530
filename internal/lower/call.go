package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

// mangledCallName implements spec.md §4.4's method-mangling scheme:
// Struct_method for both instance methods and associated functions, a
// plain name for free functions and extern declarations.
func mangledCallName(data ast.CallData) string {
	if data.TypeName == "" {
		return data.FuncName
	}
	return data.TypeName + "_" + data.FuncName
}

// lowerCall resolves the callee by its mangled name in the global symbol
// table (falling back to the lazily-declared runtime builtins), lowers
// its arguments left to right, and emits the call. Grounded on the
// teacher's genCall, generalized with the Type::fn mangling VSL never
// needed.
func (f *funcScope) lowerCall(n *ast.Node) (llvm.Value, *ast.Type, error) {
	data, _ := n.Data.(ast.CallData)
	name := mangledCallName(data)

	callee, ok := f.c.globals.get(name)
	if !ok {
		callee, ok = f.c.predeclaredBuiltin(name)
	}
	if !ok {
		callee, ok = f.c.runtimeBuiltin(name)
	}
	if !ok {
		return llvm.Value{}, nil, fmt.Errorf("call to undeclared function %q", name)
	}

	args := make([]llvm.Value, len(n.Children))
	for i, c := range n.Children {
		v, _, err := f.lowerExpr(c)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		args[i] = v
	}

	retName := ""
	if n.Type == nil || !(n.Type.Kind == ast.KindPrimitive && (n.Type.Prim == ast.Void || n.Type.Prim == ast.Unit)) {
		retName = "call"
	}
	result := f.b.CreateCall(callee, args, retName)
	return result, n.Type, nil
}

// lowerAwait lowers `await handle`: in this first phase a handle is just
// the local slot lowerSpawnHandle stored its call result into, so await is
// nothing more than a load from that slot (spec.md §4.2: "await of a
// handle is a load from the handle's local slot").
func (f *funcScope) lowerAwait(n *ast.Node) (llvm.Value, *ast.Type, error) {
	addr, typ, err := f.lowerLValue(n.Children[0])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	return f.b.CreateLoad(addr, "await"), typ, nil
}

// lowerSpawn lowers a bare `spawn expr;` statement/expression. Spawned
// calls are fire-and-forget (spec.md §4.3/§5): this phase has no
// cooperative scheduler to hand the call off to, so the target call is
// simply lowered synchronously and its result (if any) discarded by the
// caller. This is a deliberate first-phase simplification, not an
// optimization of a "real" spawn.
func (f *funcScope) lowerSpawn(n *ast.Node) (llvm.Value, *ast.Type, error) {
	return f.lowerExpr(n.Children[0])
}

// lowerSpawnHandle lowers `h := spawn expr;`: the target call is lowered
// synchronously and its result stored into a new local slot named
// HandleName (a dummy i32 0 when the call is void), so that a later
// `await h` can load it back. The observable semantics are call-then-store,
// not concurrent execution (spec.md §4.3/§5).
func (f *funcScope) lowerSpawnHandle(n *ast.Node) error {
	data, _ := n.Data.(ast.SpawnHandleData)
	callExpr := n.Children[0]

	result, resultType, err := f.lowerExpr(callExpr)
	if err != nil {
		return err
	}
	if resultType == nil || (resultType.Kind == ast.KindPrimitive &&
		(resultType.Prim == ast.Void || resultType.Prim == ast.Unit)) {
		resultType = ast.Primitive_(ast.I32)
		result = llvm.ConstInt(f.c.llctx.Int32Type(), 0, false)
	}

	addr := f.entryAlloca(f.c.irType(resultType), data.HandleName)
	f.b.CreateStore(result, addr)
	f.declareLocal(data.HandleName, addr, resultType)
	return nil
}
