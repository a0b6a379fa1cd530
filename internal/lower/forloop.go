package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
	"asthra/internal/util"
)

// lowerFor lowers a For node (C5). Two iterable shapes are recognized,
// both lowered to the same header/body/increment/exit block skeleton the
// teacher's own genFor uses for its single counting-loop case:
//
//   - `range(n)` / `range(a, b)`: a classic counting loop over [0,n) or
//     [a,b), recognized syntactically rather than as a real call (spec.md
//     boundary behavior: "range(0) -> zero-iteration loop").
//   - any other expression of Slice{T} or Array{T,N} type: an index-based
//     iteration over its elements, with the loop variable rebound to each
//     element value on every pass.
func (f *funcScope) lowerFor(n *ast.Node) error {
	data, _ := n.Data.(ast.ForData)
	iterable := n.Children[0]
	body := n.Children[1]

	i64 := f.c.llctx.Int64Type()

	var startV, boundV llvm.Value
	var elemAddrFn func(idx llvm.Value) (llvm.Value, *ast.Type, error)
	var loopVarType *ast.Type

	if call, ok := iterable.Data.(ast.CallData); ok && call.TypeName == "" && call.FuncName == "range" {
		switch len(iterable.Children) {
		case 1:
			startV = llvm.ConstInt(i64, 0, false)
			v, _, err := f.lowerExpr(iterable.Children[0])
			if err != nil {
				return err
			}
			boundV = v
		case 2:
			v0, _, err := f.lowerExpr(iterable.Children[0])
			if err != nil {
				return err
			}
			v1, _, err := f.lowerExpr(iterable.Children[1])
			if err != nil {
				return err
			}
			startV, boundV = v0, v1
		default:
			return fmt.Errorf("range takes 1 or 2 arguments, got %d", len(iterable.Children))
		}
		// The index slot is i64; bring the bounds to the same width.
		startV = f.b.CreateIntCast(startV, i64, "for.start")
		boundV = f.b.CreateIntCast(boundV, i64, "for.bound")
		loopVarType = ast.Primitive_(ast.Usize)
	} else {
		addr, typ, err := f.lowerLValue(iterable)
		if err != nil {
			return err
		}
		startV = llvm.ConstInt(i64, 0, false)
		switch typ.Kind {
		case ast.KindArray:
			boundV = llvm.ConstInt(i64, uint64(typ.ArrayLen), false)
			loopVarType = typ.Elem
			elemAddrFn = func(idx llvm.Value) (llvm.Value, *ast.Type, error) {
				zero := llvm.ConstInt(f.c.llctx.Int32Type(), 0, false)
				return f.b.CreateInBoundsGEP(addr, []llvm.Value{zero, idx}, "for.elem"), typ.Elem, nil
			}
		case ast.KindSlice:
			lenPtr := f.b.CreateStructGEP(addr, 1, "for.lenptr")
			boundV = f.b.CreateLoad(lenPtr, "for.len")
			loopVarType = typ.Elem
			dataPtr := f.b.CreateStructGEP(addr, 0, "for.dataptr")
			dataVal := f.b.CreateLoad(dataPtr, "for.data")
			elemAddrFn = func(idx llvm.Value) (llvm.Value, *ast.Type, error) {
				return f.b.CreateInBoundsGEP(dataVal, []llvm.Value{idx}, "for.elem"), typ.Elem, nil
			}
		default:
			return fmt.Errorf("cannot iterate over type %s", typ)
		}
	}

	idxAddr := f.entryAlloca(i64, "for.idx")
	f.b.CreateStore(startV, idxAddr)

	headerBlock := llvm.AddBasicBlock(f.fn, util.NewLabel(util.LabelLoopHeader))
	bodyBlock := llvm.AddBasicBlock(f.fn, util.NewLabel(util.LabelLoopBody))
	incrBlock := llvm.AddBasicBlock(f.fn, "for.incr")
	exitBlock := llvm.AddBasicBlock(f.fn, util.NewLabel(util.LabelLoopExit))

	f.b.CreateBr(headerBlock)
	f.b.SetInsertPointAtEnd(headerBlock)
	idx := f.b.CreateLoad(idxAddr, "for.idx.val")
	cond := f.b.CreateICmp(llvm.IntULT, idx, boundV, "for.cond")
	f.b.CreateCondBr(cond, bodyBlock, exitBlock)

	f.b.SetInsertPointAtEnd(bodyBlock)
	f.pushScope()
	f.loops.Push(&loopFrame{continueTarget: incrBlock, breakTarget: exitBlock})

	if elemAddrFn != nil {
		elemAddr, elemType, err := elemAddrFn(idx)
		if err != nil {
			f.popScope()
			f.loops.Pop()
			return err
		}
		loopVarAddr := f.entryAlloca(f.c.irType(elemType), data.LoopVar)
		f.b.CreateStore(f.b.CreateLoad(elemAddr, "for.elemval"), loopVarAddr)
		f.declareLocal(data.LoopVar, loopVarAddr, elemType)
	} else {
		loopVarAddr := f.entryAlloca(f.c.irType(loopVarType), data.LoopVar)
		f.b.CreateStore(idx, loopVarAddr)
		f.declareLocal(data.LoopVar, loopVarAddr, loopVarType)
	}

	err := f.lowerStmt(body)
	f.popScope()
	f.loops.Pop()
	if err != nil {
		return err
	}
	if !blockHasTerminator(f.b.GetInsertBlock()) {
		f.b.CreateBr(incrBlock)
	}

	f.b.SetInsertPointAtEnd(incrBlock)
	next := f.b.CreateAdd(f.b.CreateLoad(idxAddr, "for.idx.cur"), llvm.ConstInt(i64, 1, false), "for.idx.next")
	f.b.CreateStore(next, idxAddr)
	f.b.CreateBr(headerBlock)

	f.b.SetInsertPointAtEnd(exitBlock)
	return nil
}
