package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

// mangledDeclName implements spec.md §4.4's declaration-side mangling:
// Struct_method for both instance methods (Struct_instance_method in the
// spec's own phrasing - the "instance" qualifier describes calling
// convention, not the mangled name, which is identical to an associated
// function's) and associated functions; a plain name for free functions
// and externs.
func mangledDeclName(data ast.FunctionDeclData) string {
	if data.StructName == "" {
		return data.Name
	}
	return data.StructName + "_" + data.Name
}

// declareHeader creates the LLVM function signature for a FunctionDecl,
// MethodDecl, or ExternDecl node and records it in the global symbol
// table, without lowering a body. Top-level lowering runs all headers
// before any body (C4), exactly as the teacher's genHeader/genBody split
// does, so forward references and mutual recursion resolve regardless of
// declaration order.
func (c *ctx) declareHeader(n *ast.Node) (llvm.Value, error) {
	switch n.Kind {
	case ast.FunctionDecl, ast.MethodDecl:
		data, _ := n.Data.(ast.FunctionDeclData)
		name := mangledDeclName(data)
		ft, ok := n.Type, true
		if ft == nil || ft.Kind != ast.KindFunction {
			return llvm.Value{}, c.diags.Error(n.Pos.Line, n.Pos.Col, "function %q has no resolved signature", name)
		}
		_ = ok
		params := make([]llvm.Type, len(ft.Params))
		for i, p := range ft.Params {
			params[i] = c.irType(p)
		}
		fnType := llvm.FunctionType(c.irType(ft.Returns), params, false)
		fn := llvm.AddFunction(c.mod, name, fnType)
		fn.SetLinkage(llvm.ExternalLinkage)
		for i, pn := range data.ParamNames {
			if i < len(ft.Params) {
				fn.Param(i).SetName(pn)
			}
		}
		c.globals.set(name, fn)
		return fn, nil

	case ast.ExternDecl:
		data, _ := n.Data.(ast.ExternDeclData)
		ft := n.Type
		params := make([]llvm.Type, len(ft.Params))
		for i, p := range ft.Params {
			params[i] = c.irType(p)
		}
		fnType := llvm.FunctionType(c.irType(ft.Returns), params, data.Variadic)
		fn := llvm.AddFunction(c.mod, data.Name, fnType)
		fn.SetLinkage(llvm.ExternalLinkage)
		c.globals.set(data.Name, fn)
		return fn, nil

	default:
		return llvm.Value{}, fmt.Errorf("internal: %s is not a top-level declaration", n.Kind)
	}
}

// genFuncBody lowers a FunctionDecl/MethodDecl's body into fn, which must
// already have been declared via declareHeader. On success, LLVM's
// verifier runs over the finished function; the propagation policy
// (spec.md §7) is to delete the function from the module on a verifier
// failure and record a diagnostic, rather than abort the whole lowering
// run.
func (c *ctx) genFuncBody(fn llvm.Value, n *ast.Node, structs map[string]*ast.Type, enums map[string]*ast.Type) {
	data, _ := n.Data.(ast.FunctionDeclData)
	ft := n.Type

	b := c.llctx.NewBuilder()
	entry := llvm.AddBasicBlock(fn, "entry")
	b.SetInsertPointAtEnd(entry)

	fs := &funcScope{c: c, b: b, fn: fn, fnType: ft, structs: structs, enums: enums}
	fs.pushScope()

	paramStart := 0
	if data.IsInstance {
		// Instance methods receive `self` as parameter 0; its declared
		// type is Pointer{StructName} unless the semantic analyzer
		// resolved a pass-by-value receiver, in which case ft.Params[0]
		// already reflects that. Either way it is bound like any other
		// parameter.
		paramStart = 0
	}
	for i := paramStart; i < len(ft.Params) && i < len(data.ParamNames); i++ {
		p := fn.Param(i)
		addr := fs.entryAlloca(p.Type(), data.ParamNames[i])
		b.CreateStore(p, addr)
		fs.declareLocal(data.ParamNames[i], addr, ft.Params[i])
	}

	body := bodyBlockOf(n)
	for _, stmt := range body {
		if err := fs.lowerStmt(stmt); err != nil {
			c.diags.Append(0, stmt.Pos.Line, stmt.Pos.Col, "%v", err)
			fn.EraseFromParentAsFunction()
			return
		}
	}

	last := b.GetInsertBlock()
	if !blockHasTerminator(last) {
		if ft.Returns != nil && ft.Returns.Kind == ast.KindPrimitive && (ft.Returns.Prim == ast.Void || ft.Returns.Prim == ast.Unit) {
			b.CreateRetVoid()
		} else {
			c.diags.Append(0, n.Pos.Line, n.Pos.Col, "function %q does not return a value on all paths", data.Name)
			fn.EraseFromParentAsFunction()
			return
		}
	}

	if ok, msg := verifyFunction(fn); !ok {
		c.diags.Append(0, n.Pos.Line, n.Pos.Col, "function %q failed verification: %s", data.Name, msg)
		fn.EraseFromParentAsFunction()
	}
}

// bodyBlockOf returns the statement list making up a function's body.
// FunctionDeclData documents Children as the statements of the function
// body; a single Block child is unwrapped for convenience.
func bodyBlockOf(n *ast.Node) []*ast.Node {
	if len(n.Children) == 1 && n.Children[0].Kind == ast.Block {
		return n.Children[0].Children
	}
	return n.Children
}

// verifyFunction runs LLVM's verifier over a single function and returns
// whether it passed. Grounded on the teacher's own call to llvm.VerifyFunction
// after genBody in transform.go.
func verifyFunction(fn llvm.Value) (bool, string) {
	if err := llvm.VerifyFunction(fn, llvm.ReturnStatusAction); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// synthesizeMain emits the C-ABI `main(argc, argv)` entry point wrapping
// the language-level `asthra_main` function: it calls
// asthra_runtime_init_with_args, invokes asthra_main, calls
// asthra_runtime_cleanup, and returns asthra_main's result (or 0 if
// asthra_main returns unit/void) as the process exit code. Grounded
// directly on the teacher's own synthesized `main` wrapper in
// src/ir/llvm/transform.go, generalized from its fixed argc/argv-less
// shape to the runtime-init/cleanup bracketing pattern this spec
// describes.
func (c *ctx) synthesizeMain(asthraMain llvm.Value, asthraMainType *ast.Type) error {
	i32 := c.llctx.Int32Type()
	i8pp := llvm.PointerType(llvm.PointerType(c.llctx.Int8Type(), 0), 0)
	mainType := llvm.FunctionType(i32, []llvm.Type{i32, i8pp}, false)
	main := llvm.AddFunction(c.mod, "main", mainType)
	main.SetLinkage(llvm.ExternalLinkage)
	main.Param(0).SetName("argc")
	main.Param(1).SetName("argv")

	entry := llvm.AddBasicBlock(main, "entry")
	b := c.llctx.NewBuilder()
	b.SetInsertPointAtEnd(entry)

	initFn, _ := c.runtimeBuiltin("asthra_runtime_init_with_args")
	b.CreateCall(initFn, []llvm.Value{main.Param(0), main.Param(1)}, "")

	returnsValue := asthraMainType.Returns != nil &&
		!(asthraMainType.Returns.Kind == ast.KindPrimitive &&
			(asthraMainType.Returns.Prim == ast.Void || asthraMainType.Returns.Prim == ast.Unit))

	var result llvm.Value
	if returnsValue {
		result = b.CreateCall(asthraMain, nil, "asthra.result")
	} else {
		b.CreateCall(asthraMain, nil, "")
	}

	cleanupFn, _ := c.runtimeBuiltin("asthra_runtime_cleanup")
	b.CreateCall(cleanupFn, nil, "")

	if returnsValue {
		exitCode := b.CreateIntCast(result, i32, "exitcode")
		b.CreateRet(exitCode)
	} else {
		b.CreateRet(llvm.ConstInt(i32, 0, false))
	}
	return nil
}
