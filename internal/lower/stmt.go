package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

// lowerStmt lowers n in statement position: its value, if any, is
// discarded. This is the C3 entry point, grounded on the teacher's
// genStmt dispatch (transform.go), generalized from VSL's four statement
// kinds to spec.md §3's full list.
func (f *funcScope) lowerStmt(n *ast.Node) error {
	switch n.Kind {
	case ast.Let:
		return f.lowerLet(n)
	case ast.Assign:
		return f.lowerAssign(n)
	case ast.If:
		_, _, err := f.lowerIfExpr(n)
		return err
	case ast.Block:
		f.pushScope()
		defer f.popScope()
		for _, c := range n.Children {
			if err := f.lowerStmt(c); err != nil {
				return err
			}
		}
		return nil
	case ast.Return:
		return f.lowerReturn(n)
	case ast.Break:
		return f.lowerBreak(n)
	case ast.Continue:
		return f.lowerContinue(n)
	case ast.Match:
		_, _, err := f.lowerMatchExpr(n)
		return err
	case ast.For:
		return f.lowerFor(n)
	case ast.ExprStatement:
		_, _, err := f.lowerExpr(n.Children[0])
		return err
	case ast.SpawnHandle:
		return f.lowerSpawnHandle(n)
	default:
		_, _, err := f.lowerExpr(n)
		return err
	}
}

// lowerLet allocates stack storage for a new local binding, stores its
// initializer (if any), and declares it in the current scope. No debug
// metadata is emitted for the local: no `llvm.dbg.declare` is inserted,
// and Options.DebugInfo is not read by this package.
func (f *funcScope) lowerLet(n *ast.Node) error {
	data, _ := n.Data.(ast.LetData)
	typ := data.DeclaredType
	if typ == nil {
		typ = n.Type
	}

	irt := f.c.irType(typ)
	addr := f.entryAlloca(irt, data.Name)

	if len(n.Children) > 0 && n.Children[0] != nil {
		v, _, err := f.lowerExpr(n.Children[0])
		if err != nil {
			return err
		}
		f.b.CreateStore(v, addr)
	}

	f.declareLocal(data.Name, addr, typ)
	return nil
}

// entryAlloca inserts the alloca at the top of the function's entry block
// rather than at the builder's current position, matching the teacher's
// own practice of keeping all allocas together so LLVM's mem2reg pass can
// promote them cleanly.
func (f *funcScope) entryAlloca(t llvm.Type, name string) llvm.Value {
	cur := f.b.GetInsertBlock()
	entry := f.fn.EntryBasicBlock()
	first := entry.FirstInstruction()
	tmp := f.c.llctx.NewBuilder()
	if first.IsNil() {
		tmp.SetInsertPointAtEnd(entry)
	} else {
		tmp.SetInsertPointBefore(first)
	}
	addr := tmp.CreateAlloca(t, name)
	f.b.SetInsertPointAtEnd(cur)
	return addr
}

func (f *funcScope) lowerAssign(n *ast.Node) error {
	addr, _, err := f.lowerLValue(n.Children[0])
	if err != nil {
		return err
	}
	v, _, err := f.lowerExpr(n.Children[1])
	if err != nil {
		return err
	}
	f.b.CreateStore(v, addr)
	return nil
}

func (f *funcScope) lowerReturn(n *ast.Node) error {
	if len(n.Children) == 0 || n.Children[0] == nil {
		f.b.CreateRetVoid()
		return nil
	}
	v, _, err := f.lowerExpr(n.Children[0])
	if err != nil {
		return err
	}
	f.b.CreateRet(v)
	return nil
}

func (f *funcScope) lowerBreak(n *ast.Node) error {
	frame, ok := f.loops.Peek().(*loopFrame)
	if !ok || frame == nil {
		return fmt.Errorf("break outside of a loop")
	}
	f.b.CreateBr(frame.breakTarget)
	return nil
}

func (f *funcScope) lowerContinue(n *ast.Node) error {
	frame, ok := f.loops.Peek().(*loopFrame)
	if !ok || frame == nil {
		return fmt.Errorf("continue outside of a loop")
	}
	f.b.CreateBr(frame.continueTarget)
	return nil
}

// lowerIfExpr lowers an If node, usable both as a statement (value
// discarded) and as an expression (value merged through a phi when both
// arms are present and value-producing). Grounded on the teacher's genIf,
// generalized to support an else-less form and if-as-expression.
func (f *funcScope) lowerIfExpr(n *ast.Node) (llvm.Value, *ast.Type, error) {
	cond, _, err := f.lowerExpr(n.Children[0])
	if err != nil {
		return llvm.Value{}, nil, err
	}

	thenBlock := llvm.AddBasicBlock(f.fn, "if.then")
	mergeBlock := llvm.AddBasicBlock(f.fn, "if.merge")
	var elseBlock llvm.BasicBlock
	hasElse := len(n.Children) > 2 && n.Children[2] != nil
	if hasElse {
		elseBlock = llvm.AddBasicBlock(f.fn, "if.else")
		f.b.CreateCondBr(cond, thenBlock, elseBlock)
	} else {
		f.b.CreateCondBr(cond, thenBlock, mergeBlock)
	}

	f.b.SetInsertPointAtEnd(thenBlock)
	thenVal, thenType, err := f.lowerExpr(n.Children[1])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	thenEndBlock := f.b.GetInsertBlock()
	thenTerminated := blockHasTerminator(thenEndBlock)
	if !thenTerminated {
		f.b.CreateBr(mergeBlock)
	}

	var elseVal llvm.Value
	var elseEndBlock llvm.BasicBlock
	elseTerminated := true
	if hasElse {
		f.b.SetInsertPointAtEnd(elseBlock)
		elseVal, _, err = f.lowerExpr(n.Children[2])
		if err != nil {
			return llvm.Value{}, nil, err
		}
		elseEndBlock = f.b.GetInsertBlock()
		elseTerminated = blockHasTerminator(elseEndBlock)
		if !elseTerminated {
			f.b.CreateBr(mergeBlock)
		}
	}

	f.b.SetInsertPointAtEnd(mergeBlock)

	if !hasElse || thenType == nil || thenType.Kind == ast.KindPrimitive && thenType.Prim == ast.Unit {
		return llvm.ConstNull(f.c.llctx.StructType(nil, false)), ast.Primitive_(ast.Unit), nil
	}

	if thenTerminated && elseTerminated {
		// Both arms diverge (e.g. both return); merge block is
		// unreachable but kept for a well-formed CFG.
		f.b.CreateUnreachable()
		return llvm.ConstNull(f.c.irType(thenType)), thenType, nil
	}

	phi := f.b.CreatePHI(f.c.irType(thenType), "if.result")
	var incomingV []llvm.Value
	var incomingB []llvm.BasicBlock
	if !thenTerminated {
		incomingV = append(incomingV, thenVal)
		incomingB = append(incomingB, thenEndBlock)
	}
	if !elseTerminated {
		incomingV = append(incomingV, elseVal)
		incomingB = append(incomingB, elseEndBlock)
	}
	phi.AddIncoming(incomingV, incomingB)
	return phi, thenType, nil
}

func blockHasTerminator(bb llvm.BasicBlock) bool {
	last := bb.LastInstruction()
	if last.IsNil() {
		return false
	}
	switch last.InstructionOpcode() {
	case llvm.Ret, llvm.Br, llvm.Switch, llvm.Unreachable, llvm.IndirectBr:
		return true
	default:
		return false
	}
}
