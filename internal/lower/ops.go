package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
	"asthra/internal/util"
)

// lowerUnary implements `-`, `!`, `~`, `&`, `&mut`, and `*` (deref).
// Grounded on the teacher's genUnary operator switch in transform.go,
// generalized with the address-of/deref pair VSL never needed.
func (f *funcScope) lowerUnary(n *ast.Node) (llvm.Value, *ast.Type, error) {
	op, _ := n.Data.(string)
	switch op {
	case "&":
		return f.addressOf(n.Children[0], false)
	case "&mut":
		return f.addressOf(n.Children[0], true)
	case "*":
		ptr, typ, err := f.lowerExpr(n.Children[0])
		if err != nil {
			return llvm.Value{}, nil, err
		}
		if typ.Kind != ast.KindPointer {
			return llvm.Value{}, nil, fmt.Errorf("cannot dereference non-pointer type %s", typ)
		}
		return f.b.CreateLoad(ptr, "deref"), typ.Pointee, nil
	}

	v, typ, err := f.lowerExpr(n.Children[0])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	switch op {
	case "-":
		if typ.Kind == ast.KindPrimitive && typ.Prim.IsFloat() {
			return f.b.CreateFNeg(v, "neg"), typ, nil
		}
		return f.b.CreateNeg(v, "neg"), typ, nil
	case "!":
		// spec.md §4.2: convert to bool (compare-ne-zero) then logical
		// negate. A bare CreateNot on a wider int would be a bitwise
		// complement, not `!`; only an already-i1 operand can skip the
		// compare.
		cond := v
		if !(typ.Kind == ast.KindPrimitive && typ.Prim == ast.Bool) {
			zero := llvm.ConstNull(v.Type())
			if typ.Kind == ast.KindPrimitive && typ.Prim.IsFloat() {
				cond = f.b.CreateFCmp(llvm.FloatONE, v, zero, "tobool")
			} else {
				cond = f.b.CreateICmp(llvm.IntNE, v, zero, "tobool")
			}
		}
		return f.b.CreateNot(cond, "not"), ast.Primitive_(ast.Bool), nil
	case "~":
		return f.b.CreateNot(v, "bnot"), typ, nil
	default:
		return llvm.Value{}, nil, fmt.Errorf("internal: unknown unary operator %q", op)
	}
}

// lowerBinary dispatches arithmetic, comparison, and bitwise operators by a
// (primitive-class, operator) table, and implements `&&`/`||` as their own
// branch-and-phi control flow for short-circuit evaluation (spec.md §8's
// "short-circuit... requires exactly two incoming edges on the phi").
// Grounded on the teacher's genBinary (transform.go), whose own dispatch is
// a type-then-operator switch of the same shape.
func (f *funcScope) lowerBinary(n *ast.Node) (llvm.Value, *ast.Type, error) {
	op, _ := n.Data.(string)

	if op == "&&" || op == "||" {
		return f.lowerShortCircuit(n, op)
	}

	lhs, ltyp, err := f.lowerExpr(n.Children[0])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	rhs, rtyp, err := f.lowerExpr(n.Children[1])
	if err != nil {
		return llvm.Value{}, nil, err
	}

	isFloat := ltyp.Kind == ast.KindPrimitive && ltyp.Prim.IsFloat()
	isSigned := ltyp.Kind == ast.KindPrimitive && ltyp.Prim.IsSignedInt()

	switch op {
	case "+":
		// spec.md §4.2: string `+` calls the runtime concatenation helper
		// rather than lowering to an arithmetic instruction (two i8*
		// operands would never verify under CreateAdd), and
		// pointer+integer/integer+pointer is a typed GEP over the pointee.
		if isString(ltyp) {
			return f.lowerStringConcat(lhs, rhs)
		}
		if ltyp.Kind == ast.KindPointer && isIntType(rtyp) {
			return f.b.CreateInBoundsGEP(lhs, []llvm.Value{rhs}, "ptr.add"), ltyp, nil
		}
		if isIntType(ltyp) && rtyp.Kind == ast.KindPointer {
			return f.b.CreateInBoundsGEP(rhs, []llvm.Value{lhs}, "ptr.add"), rtyp, nil
		}
		if isFloat {
			return f.b.CreateFAdd(lhs, rhs, "add"), ltyp, nil
		}
		return f.b.CreateAdd(lhs, rhs, "add"), ltyp, nil
	case "-":
		// spec.md §4.2: pointer-pointer subtraction yields an element
		// count (the byte difference divided by the pointee's size);
		// pointer-integer subtraction is pointer arithmetic with a
		// negated offset.
		if ltyp.Kind == ast.KindPointer && rtyp.Kind == ast.KindPointer {
			return f.lowerPointerDiff(lhs, rhs, ltyp)
		}
		if ltyp.Kind == ast.KindPointer && isIntType(rtyp) {
			neg := f.b.CreateNeg(rhs, "neg")
			return f.b.CreateInBoundsGEP(lhs, []llvm.Value{neg}, "ptr.sub"), ltyp, nil
		}
		if isFloat {
			return f.b.CreateFSub(lhs, rhs, "sub"), ltyp, nil
		}
		return f.b.CreateSub(lhs, rhs, "sub"), ltyp, nil
	case "*":
		if isFloat {
			return f.b.CreateFMul(lhs, rhs, "mul"), ltyp, nil
		}
		return f.b.CreateMul(lhs, rhs, "mul"), ltyp, nil
	case "/":
		if isFloat {
			return f.b.CreateFDiv(lhs, rhs, "div"), ltyp, nil
		}
		if isSigned {
			return f.b.CreateSDiv(lhs, rhs, "div"), ltyp, nil
		}
		return f.b.CreateUDiv(lhs, rhs, "div"), ltyp, nil
	case "%":
		if isFloat {
			return f.b.CreateFRem(lhs, rhs, "rem"), ltyp, nil
		}
		if isSigned {
			return f.b.CreateSRem(lhs, rhs, "rem"), ltyp, nil
		}
		return f.b.CreateURem(lhs, rhs, "rem"), ltyp, nil
	case "&":
		return f.b.CreateAnd(lhs, rhs, "and"), ltyp, nil
	case "|":
		return f.b.CreateOr(lhs, rhs, "or"), ltyp, nil
	case "^":
		return f.b.CreateXor(lhs, rhs, "xor"), ltyp, nil
	case "<<":
		return f.b.CreateShl(lhs, rhs, "shl"), ltyp, nil
	case ">>":
		if isSigned {
			return f.b.CreateAShr(lhs, rhs, "ashr"), ltyp, nil
		}
		return f.b.CreateLShr(lhs, rhs, "lshr"), ltyp, nil
	case "==", "!=", "<", "<=", ">", ">=":
		boolT := ast.Primitive_(ast.Bool)
		if isFloat {
			return f.b.CreateFCmp(fcmpPred(op), lhs, rhs, "fcmp"), boolT, nil
		}
		return f.b.CreateICmp(icmpPred(op, isSigned), lhs, rhs, "icmp"), boolT, nil
	default:
		return llvm.Value{}, nil, fmt.Errorf("internal: unknown binary operator %q", op)
	}
}

// isString reports whether t is the string primitive.
func isString(t *ast.Type) bool {
	return t != nil && t.Kind == ast.KindPrimitive && t.Prim == ast.StringPrim
}

// isIntType reports whether t is an integer primitive, the operand class
// pointer arithmetic is defined over (spec.md §4.2).
func isIntType(t *ast.Type) bool {
	return t != nil && t.Kind == ast.KindPrimitive && t.Prim.IsInt()
}

// lowerStringConcat emits a call to the runtime's string concatenation
// helper (spec.md §6's asthra_string_concat), the mandatory runtime symbol
// backing string `+`.
func (f *funcScope) lowerStringConcat(lhs, rhs llvm.Value) (llvm.Value, *ast.Type, error) {
	concat, ok := f.c.runtimeBuiltin("asthra_string_concat")
	if !ok {
		return llvm.Value{}, nil, fmt.Errorf("internal: asthra_string_concat not declared")
	}
	return f.b.CreateCall(concat, []llvm.Value{lhs, rhs}, "concat"), ast.Primitive_(ast.StringPrim), nil
}

// lowerPointerDiff implements pointer-pointer subtraction as an element
// count: the byte distance between the two addresses divided by the
// pointee's size (spec.md §4.2).
func (f *funcScope) lowerPointerDiff(lhs, rhs llvm.Value, ptrTyp *ast.Type) (llvm.Value, *ast.Type, error) {
	i64 := f.c.llctx.Int64Type()
	lhsAddr := f.b.CreatePtrToInt(lhs, i64, "lhs.addr")
	rhsAddr := f.b.CreatePtrToInt(rhs, i64, "rhs.addr")
	diff := f.b.CreateSub(lhsAddr, rhsAddr, "ptr.diff")
	elemBytes := f.c.sizeOfBits(ptrTyp.Pointee) / 8
	if elemBytes < 1 {
		elemBytes = 1
	}
	count := f.b.CreateSDiv(diff, llvm.ConstInt(i64, uint64(elemBytes), false), "ptr.count")
	return count, ast.Primitive_(ast.I64), nil
}

func icmpPred(op string, signed bool) llvm.IntPredicate {
	switch op {
	case "==":
		return llvm.IntEQ
	case "!=":
		return llvm.IntNE
	case "<":
		if signed {
			return llvm.IntSLT
		}
		return llvm.IntULT
	case "<=":
		if signed {
			return llvm.IntSLE
		}
		return llvm.IntULE
	case ">":
		if signed {
			return llvm.IntSGT
		}
		return llvm.IntUGT
	case ">=":
		if signed {
			return llvm.IntSGE
		}
		return llvm.IntUGE
	}
	return llvm.IntEQ
}

func fcmpPred(op string) llvm.FloatPredicate {
	switch op {
	case "==":
		return llvm.FloatOEQ
	case "!=":
		return llvm.FloatONE
	case "<":
		return llvm.FloatOLT
	case "<=":
		return llvm.FloatOLE
	case ">":
		return llvm.FloatOGT
	case ">=":
		return llvm.FloatOGE
	}
	return llvm.FloatOEQ
}

// lowerShortCircuit lowers `&&`/`||` as a branch-and-merge rather than an
// eager bitwise op, so the right operand's side effects only happen when
// needed. The merge block's phi always has exactly two incoming edges: the
// entry block (carrying the short-circuited constant) and the
// right-operand block (carrying its computed value) - the invariant
// spec.md §8 calls out explicitly.
func (f *funcScope) lowerShortCircuit(n *ast.Node, op string) (llvm.Value, *ast.Type, error) {
	lhs, _, err := f.lowerExpr(n.Children[0])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	entryBlock := f.b.GetInsertBlock()
	fn := f.fn
	rhsBlock := llvm.AddBasicBlock(fn, util.NewLabel(util.LabelGuardTrue))
	mergeBlock := llvm.AddBasicBlock(fn, util.NewLabel(util.LabelIfMerge))

	if op == "&&" {
		f.b.CreateCondBr(lhs, rhsBlock, mergeBlock)
	} else {
		f.b.CreateCondBr(lhs, mergeBlock, rhsBlock)
	}

	f.b.SetInsertPointAtEnd(rhsBlock)
	rhs, _, err := f.lowerExpr(n.Children[1])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	rhsEndBlock := f.b.GetInsertBlock()
	f.b.CreateBr(mergeBlock)

	f.b.SetInsertPointAtEnd(mergeBlock)
	phi := f.b.CreatePHI(f.c.llctx.Int1Type(), "scresult")
	phi.AddIncoming(
		[]llvm.Value{lhs, rhs},
		[]llvm.BasicBlock{entryBlock, rhsEndBlock},
	)
	return phi, ast.Primitive_(ast.Bool), nil
}

// lowerCast implements `as` conversions: int<->int (s/zext or trunc),
// int<->float, float<->float, and pointer bitcasts. Grounded on the
// teacher's own genCast widening/narrowing switch.
func (f *funcScope) lowerCast(n *ast.Node) (llvm.Value, *ast.Type, error) {
	v, from, err := f.lowerExpr(n.Children[0])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	to := n.Type
	irTo := f.c.irType(to)

	if from.Kind == ast.KindPointer && to.Kind == ast.KindPointer {
		return f.b.CreateBitCast(v, irTo, "ptrcast"), to, nil
	}

	if from.Kind != ast.KindPrimitive || to.Kind != ast.KindPrimitive {
		return f.b.CreateBitCast(v, irTo, "cast"), to, nil
	}

	fromInt, toInt := from.Prim.IsInt(), to.Prim.IsInt()
	fromFloat, toFloat := from.Prim.IsFloat(), to.Prim.IsFloat()

	switch {
	case fromInt && toInt:
		fromBits, toBits := from.Prim.BitWidth(), to.Prim.BitWidth()
		switch {
		case toBits > fromBits:
			if from.Prim.IsSignedInt() {
				return f.b.CreateSExt(v, irTo, "sext"), to, nil
			}
			return f.b.CreateZExt(v, irTo, "zext"), to, nil
		case toBits < fromBits:
			return f.b.CreateTrunc(v, irTo, "trunc"), to, nil
		default:
			return v, to, nil
		}
	case fromInt && toFloat:
		if from.Prim.IsSignedInt() {
			return f.b.CreateSIToFP(v, irTo, "sitofp"), to, nil
		}
		return f.b.CreateUIToFP(v, irTo, "uitofp"), to, nil
	case fromFloat && toInt:
		if to.Prim.IsSignedInt() {
			return f.b.CreateFPToSI(v, irTo, "fptosi"), to, nil
		}
		return f.b.CreateFPToUI(v, irTo, "fptoui"), to, nil
	case fromFloat && toFloat:
		if to.Prim.BitWidth() > from.Prim.BitWidth() {
			return f.b.CreateFPExt(v, irTo, "fpext"), to, nil
		}
		if to.Prim.BitWidth() < from.Prim.BitWidth() {
			return f.b.CreateFPTrunc(v, irTo, "fptrunc"), to, nil
		}
		return v, to, nil
	case from.Prim == ast.Bool && toInt:
		return f.b.CreateZExt(v, irTo, "boolext"), to, nil
	default:
		return f.b.CreateBitCast(v, irTo, "cast"), to, nil
	}
}
