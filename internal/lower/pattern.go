package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
	"asthra/internal/util"
)

// lowerMatchExpr lowers a Match node (C5). The subject is lowered exactly
// once (spec.md §8: "subject lowered once"), arms are tested in source
// order against chained conditional branches, and - when every arm
// produces a value - the arm results merge through one phi in match.end.
// Grounded on the teacher's genIf chain (its closest analogue, since VSL
// has no match construct of its own) generalized into N-way dispatch.
func (f *funcScope) lowerMatchExpr(n *ast.Node) (llvm.Value, *ast.Type, error) {
	subject, subjType, err := f.lowerExpr(n.Children[0])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	arms := n.Children[1:]
	if len(arms) == 0 {
		return llvm.Value{}, nil, fmt.Errorf("match has no arms")
	}

	endBlock := llvm.AddBasicBlock(f.fn, util.NewLabel(util.LabelMatchEnd))

	var incomingV []llvm.Value
	var incomingB []llvm.BasicBlock
	var resultType *ast.Type

	testBlock := f.b.GetInsertBlock()
	for i, arm := range arms {
		armData, _ := arm.Data.(ast.MatchArmData)
		pattern := arm.Children[0]
		isLast := i == len(arms)-1

		f.b.SetInsertPointAtEnd(testBlock)

		armBlock := llvm.AddBasicBlock(f.fn, util.NewLabel(util.LabelMatchArm))
		var nextBlock llvm.BasicBlock
		if !isLast {
			nextBlock = llvm.AddBasicBlock(f.fn, util.NewLabel(util.LabelMatchNext))
		} else {
			nextBlock = endBlock
		}

		f.pushScope()
		matched, err := f.testPattern(pattern, subject, subjType)
		if err != nil {
			f.popScope()
			return llvm.Value{}, nil, err
		}

		if armData.HasGuard && arm.Children[1] != nil {
			guardTrue := llvm.AddBasicBlock(f.fn, util.NewLabel(util.LabelGuardTrue))
			f.b.CreateCondBr(matched, guardTrue, nextBlock)
			f.b.SetInsertPointAtEnd(guardTrue)
			guardVal, _, err := f.lowerExpr(arm.Children[1])
			if err != nil {
				f.popScope()
				return llvm.Value{}, nil, err
			}
			f.b.CreateCondBr(guardVal, armBlock, nextBlock)
		} else {
			f.b.CreateCondBr(matched, armBlock, nextBlock)
		}

		f.b.SetInsertPointAtEnd(armBlock)
		bodyIdx := 1
		if armData.HasGuard {
			bodyIdx = 2
		}
		val, typ, err := f.lowerExpr(arm.Children[bodyIdx])
		f.popScope()
		if err != nil {
			return llvm.Value{}, nil, err
		}
		armEnd := f.b.GetInsertBlock()
		if !blockHasTerminator(armEnd) {
			f.b.CreateBr(endBlock)
			incomingV = append(incomingV, val)
			incomingB = append(incomingB, armEnd)
		}
		if resultType == nil {
			resultType = typ
		}

		testBlock = nextBlock
	}

	f.b.SetInsertPointAtEnd(endBlock)
	if resultType == nil || len(incomingV) == 0 {
		return llvm.ConstNull(f.c.llctx.StructType(nil, false)), ast.Primitive_(ast.Unit), nil
	}
	if len(incomingV) == 1 {
		return incomingV[0], resultType, nil
	}
	phi := f.b.CreatePHI(f.c.irType(resultType), "match.result")
	phi.AddIncoming(incomingV, incomingB)
	return phi, resultType, nil
}

// testPattern lowers one pattern against the already-lowered subject and
// returns an i1 value: true if the pattern matches. Irrefutable patterns
// (wildcard, plain identifier) bind and return the constant `true`.
func (f *funcScope) testPattern(pattern *ast.Node, subject llvm.Value, subjType *ast.Type) (llvm.Value, error) {
	trueV := llvm.ConstInt(f.c.llctx.Int1Type(), 1, false)

	switch pattern.Kind {
	case ast.PatternWildcard:
		return trueV, nil

	case ast.PatternIdentifier:
		data, _ := pattern.Data.(ast.PatternIdentifierData)
		addr := f.entryAlloca(f.c.irType(subjType), data.Name)
		f.b.CreateStore(subject, addr)
		f.declareLocal(data.Name, addr, subjType)
		return trueV, nil

	case ast.PatternLiteral:
		litVal, litType, err := f.lowerExpr(pattern.Children[0])
		if err != nil {
			return llvm.Value{}, err
		}
		if litType.Kind == ast.KindPrimitive && litType.Prim.IsFloat() {
			return f.b.CreateFCmp(llvm.FloatOEQ, subject, litVal, "pat.eq"), nil
		}
		return f.b.CreateICmp(llvm.IntEQ, subject, litVal, "pat.eq"), nil

	case ast.PatternEnumVariant:
		data, _ := pattern.Data.(ast.PatternEnumVariantData)
		enumType := f.enums[data.EnumName]
		if enumType == nil {
			enumType = subjType
		}
		variantIdx := enumType.VariantIndex(data.VariantName)
		if variantIdx < 0 {
			return llvm.Value{}, fmt.Errorf("enum %s has no variant %q", data.EnumName, data.VariantName)
		}
		var tag llvm.Value
		if enumHasPayload(enumType) {
			tag = f.b.CreateExtractValue(subject, 0, "tag")
		} else {
			tag = subject
		}
		wantTag := llvm.ConstInt(f.c.llctx.Int32Type(), uint64(variantIdx), false)
		matched := f.b.CreateICmp(llvm.IntEQ, tag, wantTag, "pat.tag.eq")

		if data.Binding != "" && enumHasPayload(enumType) {
			variant := enumType.Variants[variantIdx]
			payloadBytes := f.b.CreateExtractValue(subject, 1, "payload.bytes")
			payloadAddr := f.entryAlloca(payloadBytes.Type(), "payload.tmp")
			f.b.CreateStore(payloadBytes, payloadAddr)
			typed := f.b.CreateBitCast(payloadAddr, llvmPtrTo(f.c.irType(variant.Payload)), "payload.typed")
			loaded := f.b.CreateLoad(typed, data.Binding)
			addr := f.entryAlloca(f.c.irType(variant.Payload), data.Binding)
			f.b.CreateStore(loaded, addr)
			f.declareLocal(data.Binding, addr, variant.Payload)
		}
		return matched, nil

	case ast.PatternTuple, ast.PatternStruct:
		return llvm.Value{}, fmt.Errorf("%s patterns are not yet implemented", pattern.Kind)

	default:
		return llvm.Value{}, fmt.Errorf("internal: %s is not a valid pattern", pattern.Kind)
	}
}

func llvmPtrTo(t llvm.Type) llvm.Type { return llvm.PointerType(t, 0) }
