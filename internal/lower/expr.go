package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

// lowerExpr lowers n in R-value mode and returns the produced value along
// with its resolved type. This is the C2 entry point, dispatched by
// n.Kind the same way the teacher's genExpr switches on n.Typ
// (src/ir/llvm/transform.go).
func (f *funcScope) lowerExpr(n *ast.Node) (llvm.Value, *ast.Type, error) {
	switch n.Kind {
	case ast.IntLiteral:
		v, _ := n.Data.(int64)
		t := n.Type
		if t == nil {
			t = ast.Primitive_(ast.I32)
		}
		return llvm.ConstInt(f.c.irType(t), uint64(v), t.Prim.IsSignedInt()), t, nil

	case ast.FloatLiteral:
		v, _ := n.Data.(float64)
		t := n.Type
		if t == nil {
			t = ast.Primitive_(ast.F64)
		}
		return llvm.ConstFloat(f.c.irType(t), v), t, nil

	case ast.BoolLiteral:
		v, _ := n.Data.(bool)
		i := uint64(0)
		if v {
			i = 1
		}
		return llvm.ConstInt(f.c.llctx.Int1Type(), i, false), ast.Primitive_(ast.Bool), nil

	case ast.CharLiteral:
		v, _ := n.Data.(rune)
		return llvm.ConstInt(f.c.llctx.Int32Type(), uint64(v), false), ast.Primitive_(ast.Char), nil

	case ast.UnitLiteral:
		return llvm.ConstNull(f.c.llctx.StructType(nil, false)), ast.Primitive_(ast.Unit), nil

	case ast.StringLiteral:
		s, _ := n.Data.(string)
		return f.c.internString(s), ast.Primitive_(ast.StringPrim), nil

	case ast.ArrayLiteral:
		return f.lowerArrayLiteral(n)

	case ast.TupleLiteral:
		return f.lowerTupleLiteral(n)

	case ast.StructLiteral:
		return f.lowerStructLiteral(n)

	case ast.Identifier:
		return f.lowerIdentifier(n)

	case ast.Unary:
		return f.lowerUnary(n)

	case ast.Binary:
		return f.lowerBinary(n)

	case ast.Cast:
		return f.lowerCast(n)

	case ast.Field:
		addr, typ, err := f.lowerLValue(n)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		return f.b.CreateLoad(addr, "field"), typ, nil

	case ast.Index:
		addr, typ, err := f.lowerLValue(n)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		return f.b.CreateLoad(addr, "elem"), typ, nil

	case ast.Slice:
		return f.lowerSliceExpr(n)

	case ast.Call:
		return f.lowerCall(n)

	case ast.Await:
		return f.lowerAwait(n)

	case ast.UnsafeBlock:
		// Unsafe blocks carry no lowering-time distinct behavior: the
		// permission to perform pointer arithmetic/raw derefs is a
		// semantic-analysis-time concept (spec.md §6's "unsafe"). The
		// single child is the guarded expression/block.
		return f.lowerExpr(n.Children[0])

	case ast.Block:
		return f.lowerBlockExpr(n)

	case ast.If:
		return f.lowerIfExpr(n)

	case ast.Match:
		return f.lowerMatchExpr(n)

	case ast.Spawn:
		return f.lowerSpawn(n)

	default:
		return llvm.Value{}, nil, fmt.Errorf("internal: %s is not a valid expression node", n.Kind)
	}
}

// internString interns one string constant as a private global and returns
// an i8* pointer to its first byte, memoizing identical literals so two
// occurrences of the same string share storage (grounded on the teacher's
// CreateGlobalStringPtr call sites in transform.go, one per distinct
// format string).
func (c *ctx) internString(s string) llvm.Value {
	c.stringsMu.Lock()
	defer c.stringsMu.Unlock()
	if v, ok := c.strings[s]; ok {
		return v
	}
	v := c.llctx.NewBuilder().CreateGlobalStringPtr(s, "str")
	c.strings[s] = v
	return v
}

// lowerIdentifier resolves a bare name through the tiers spec.md §4.2 lists:
// local variables/parameters, then declared globals, then the predeclared
// runtime builtins (log, panic, args, exit) - declared on first reference
// with external linkage - and finally an error. Checking globals before the
// builtin tier is what makes a user-defined global of the same name shadow
// the builtin, per spec.md §4.2.
func (f *funcScope) lowerIdentifier(n *ast.Node) (llvm.Value, *ast.Type, error) {
	name, _ := n.Data.(string)
	if lv, ok := f.lookupLocal(name); ok {
		return f.b.CreateLoad(lv.addr, name), lv.typ, nil
	}
	if g, ok := f.c.globals.get(name); ok {
		if g.IsAFunction().IsNil() == false {
			// functions are referenced by value (function pointer), never
			// loaded through an alloca
			return g, n.Type, nil
		}
		return f.b.CreateLoad(g, name), n.Type, nil
	}
	if fn, ok := f.c.predeclaredBuiltin(name); ok {
		return fn, n.Type, nil
	}
	return llvm.Value{}, nil, fmt.Errorf("undefined identifier %q", name)
}

func (f *funcScope) lowerArrayLiteral(n *ast.Node) (llvm.Value, *ast.Type, error) {
	t := n.Type
	irt := f.c.irType(t)
	if len(n.Children) == 0 {
		// Empty array literal lowers to a zero-valued aggregate
		// (spec.md boundary behavior: "empty array literal -> {null,0}
		// slice" when the target is Slice{T}; a fixed-size Array{T,0} has
		// no elements to speak of and is simply undef-free zero memory).
		if t.Kind == ast.KindSlice {
			elemPtrTy := llvm.PointerType(f.c.irType(t.Elem), 0)
			return llvm.ConstStruct([]llvm.Value{
				llvm.ConstNull(elemPtrTy),
				llvm.ConstInt(f.c.llctx.Int64Type(), 0, false),
			}, false), t, nil
		}
		return llvm.ConstNull(irt), t, nil
	}
	agg := llvm.Undef(irt)
	for i, child := range n.Children {
		v, _, err := f.lowerExpr(child)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		agg = f.b.CreateInsertValue(agg, v, i, "arr")
	}
	return agg, t, nil
}

func (f *funcScope) lowerTupleLiteral(n *ast.Node) (llvm.Value, *ast.Type, error) {
	t := n.Type
	agg := llvm.Undef(f.c.irType(t))
	for i, child := range n.Children {
		v, _, err := f.lowerExpr(child)
		if err != nil {
			return llvm.Value{}, nil, err
		}
		agg = f.b.CreateInsertValue(agg, v, i, "tup")
	}
	return agg, t, nil
}

func (f *funcScope) lowerStructLiteral(n *ast.Node) (llvm.Value, *ast.Type, error) {
	data, _ := n.Data.(ast.StructLiteralData)
	t := n.Type
	if t == nil {
		t = f.structs[data.TypeName]
	}
	irt := f.c.irType(t)
	if len(n.Children) == 0 {
		// Empty struct literal -> undef (spec.md boundary behavior).
		return llvm.Undef(irt), t, nil
	}
	agg := llvm.Undef(irt)
	for i, fieldName := range data.Fields {
		v, _, err := f.lowerExpr(n.Children[i])
		if err != nil {
			return llvm.Value{}, nil, err
		}
		idx := t.FieldIndex(fieldName)
		if idx < 0 {
			return llvm.Value{}, nil, fmt.Errorf("struct %s has no field %q", data.TypeName, fieldName)
		}
		agg = f.b.CreateInsertValue(agg, v, idx, fieldName)
	}
	return agg, t, nil
}

func (f *funcScope) lowerSliceExpr(n *ast.Node) (llvm.Value, *ast.Type, error) {
	data, _ := n.Data.(ast.SliceData)
	baseAddr, baseType, err := f.lowerLValue(n.Children[0])
	if err != nil {
		return llvm.Value{}, nil, err
	}
	i64 := f.c.llctx.Int64Type()
	var startV llvm.Value
	if data.Start != nil {
		startV, _, err = f.lowerExpr(data.Start)
		if err != nil {
			return llvm.Value{}, nil, err
		}
	} else {
		startV = llvm.ConstInt(i64, 0, false)
	}

	var elemPtr llvm.Value
	var elemType *ast.Type
	var lengthV llvm.Value
	switch baseType.Kind {
	case ast.KindArray:
		zero := llvm.ConstInt(f.c.llctx.Int32Type(), 0, false)
		elemPtr = f.b.CreateInBoundsGEP(baseAddr, []llvm.Value{zero, startV}, "slice.start")
		elemType = baseType.Elem
		if data.End != nil {
			endV, _, err := f.lowerExpr(data.End)
			if err != nil {
				return llvm.Value{}, nil, err
			}
			lengthV = f.b.CreateSub(endV, startV, "slice.len")
		} else {
			lengthV = llvm.ConstInt(i64, uint64(baseType.ArrayLen), false)
			lengthV = f.b.CreateSub(lengthV, startV, "slice.len")
		}
	case ast.KindSlice:
		dataPtr := f.b.CreateStructGEP(baseAddr, 0, "slice.dataptr")
		loaded := f.b.CreateLoad(dataPtr, "slice.data")
		elemPtr = f.b.CreateInBoundsGEP(loaded, []llvm.Value{startV}, "slice.start")
		elemType = baseType.Elem
		if data.End != nil {
			endV, _, err := f.lowerExpr(data.End)
			if err != nil {
				return llvm.Value{}, nil, err
			}
			lengthV = f.b.CreateSub(endV, startV, "slice.len")
		} else {
			lenPtr := f.b.CreateStructGEP(baseAddr, 1, "slice.lenptr")
			origLen := f.b.CreateLoad(lenPtr, "slice.origlen")
			lengthV = f.b.CreateSub(origLen, startV, "slice.len")
		}
	default:
		return llvm.Value{}, nil, fmt.Errorf("cannot slice type %s", baseType)
	}

	sliceType := ast.SliceOf(elemType)
	agg := llvm.Undef(f.c.irType(sliceType))
	agg = f.b.CreateInsertValue(agg, elemPtr, 0, "slice")
	agg = f.b.CreateInsertValue(agg, lengthV, 1, "slice")
	return agg, sliceType, nil
}

// lowerBlockExpr lowers a Block used in expression position (e.g. an if/
// match arm body): statements execute for effect, and the value of the
// final ExprStatement-less expression child (if any) becomes the block's
// value. Pushes and pops one lexical scope (spec.md §3).
func (f *funcScope) lowerBlockExpr(n *ast.Node) (llvm.Value, *ast.Type, error) {
	f.pushScope()
	defer f.popScope()

	var last llvm.Value
	var lastType *ast.Type
	for i, stmt := range n.Children {
		if i == len(n.Children)-1 && isExprKind(stmt.Kind) {
			v, t, err := f.lowerExpr(stmt)
			if err != nil {
				return llvm.Value{}, nil, err
			}
			last, lastType = v, t
			continue
		}
		if err := f.lowerStmt(stmt); err != nil {
			return llvm.Value{}, nil, err
		}
	}
	if lastType == nil {
		return llvm.ConstNull(f.c.llctx.StructType(nil, false)), ast.Primitive_(ast.Unit), nil
	}
	return last, lastType, nil
}

// isExprKind reports whether a node kind, as the last child of a block, is
// a trailing-expression value producer rather than a statement.
func isExprKind(k ast.Kind) bool {
	switch k {
	case ast.Let, ast.Assign, ast.Return, ast.Break, ast.Continue, ast.For, ast.ExprStatement:
		return false
	default:
		return true
	}
}
