package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

// lowerLValue lowers n in L-value sub-mode (spec.md §4.2): it returns the
// *address* n designates rather than its value, for use as an assignment
// target or as the operand of `&`. Only Identifier, Field, and Index nodes
// are valid L-values; anything else is a lowering error, matching the
// teacher's own split between "generate value" and "generate address"
// paths for assignment targets in transform.go.
func (f *funcScope) lowerLValue(n *ast.Node) (llvm.Value, *ast.Type, error) {
	switch n.Kind {
	case ast.Identifier:
		name, _ := n.Data.(string)
		if lv, ok := f.lookupLocal(name); ok {
			return lv.addr, lv.typ, nil
		}
		if g, ok := f.c.globals.get(name); ok {
			return g, n.Type, nil
		}
		return llvm.Value{}, nil, fmt.Errorf("undefined identifier %q", name)

	case ast.Field:
		data, _ := n.Data.(ast.FieldData)
		baseAddr, baseType, err := f.lowerLValue(n.Children[0])
		if err != nil {
			return llvm.Value{}, nil, err
		}
		idx := baseType.FieldIndex(data.Name)
		if idx < 0 {
			return llvm.Value{}, nil, fmt.Errorf("struct %s has no field %q", baseType, data.Name)
		}
		gep := f.b.CreateStructGEP(baseAddr, idx, data.Name+".addr")
		return gep, baseType.Fields[idx].Type, nil

	case ast.Index:
		baseAddr, baseType, err := f.lowerLValue(n.Children[0])
		if err != nil {
			return llvm.Value{}, nil, err
		}
		idxVal, _, err := f.lowerExpr(n.Children[1])
		if err != nil {
			return llvm.Value{}, nil, err
		}
		switch baseType.Kind {
		case ast.KindArray:
			zero := llvm.ConstInt(f.c.llctx.Int32Type(), 0, false)
			gep := f.b.CreateInBoundsGEP(baseAddr, []llvm.Value{zero, idxVal}, "idx.addr")
			return gep, baseType.Elem, nil
		case ast.KindSlice:
			dataPtr := f.b.CreateStructGEP(baseAddr, 0, "slice.dataptr")
			loaded := f.b.CreateLoad(dataPtr, "slice.data")
			gep := f.b.CreateInBoundsGEP(loaded, []llvm.Value{idxVal}, "idx.addr")
			return gep, baseType.Elem, nil
		default:
			return llvm.Value{}, nil, fmt.Errorf("cannot index type %s", baseType)
		}

	default:
		return llvm.Value{}, nil, fmt.Errorf("%s is not a valid assignment target", n.Kind)
	}
}

// addressOf implements the `&expr` unary operator: it requires n to be a
// valid L-value and returns a pointer Type wrapping its declared type.
func (f *funcScope) addressOf(n *ast.Node, mut bool) (llvm.Value, *ast.Type, error) {
	addr, typ, err := f.lowerLValue(n)
	if err != nil {
		return llvm.Value{}, nil, err
	}
	return addr, ast.PointerTo(typ, mut), nil
}
