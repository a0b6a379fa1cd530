package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

// constVal is the result of folding a const initializer at compile time:
// exactly one of the fields is meaningful, selected by Type.Kind, mirroring
// ast.Type's own flat-tagged-union shape.
type constVal struct {
	Type  *ast.Type
	I     int64
	F     float64
	Bool  bool
	Str   string
	Elems []constVal // KindArray, KindTuple, KindStruct field order
}

// foldConst evaluates a ConstDecl initializer without emitting any IR,
// required by spec.md §4.4 ("must be foldable"). It supports literals and
// exactly the small operator set spec.md §4.4 names (+ - * ! ~) over
// already-folded operands; anything else is non-foldable and fails.
// Grounded on the teacher's own constant-folding pass (src/ir/optimise.go's
// tree-rewrite of literal-only binary expressions).
func foldConst(n *ast.Node, env map[string]constVal) (constVal, error) {
	switch n.Kind {
	case ast.Identifier:
		name, _ := n.Data.(string)
		if v, ok := env[name]; ok {
			return v, nil
		}
		return constVal{}, fmt.Errorf("const expression: %q is not a previously-folded const", name)

	case ast.IntLiteral:
		v, _ := n.Data.(int64)
		t := n.Type
		if t == nil {
			t = ast.Primitive_(ast.I32)
		}
		return constVal{Type: t, I: v}, nil

	case ast.FloatLiteral:
		v, _ := n.Data.(float64)
		t := n.Type
		if t == nil {
			t = ast.Primitive_(ast.F64)
		}
		return constVal{Type: t, F: v}, nil

	case ast.BoolLiteral:
		v, _ := n.Data.(bool)
		return constVal{Type: ast.Primitive_(ast.Bool), Bool: v}, nil

	case ast.StringLiteral:
		v, _ := n.Data.(string)
		return constVal{Type: ast.Primitive_(ast.StringPrim), Str: v}, nil

	case ast.CharLiteral:
		v, _ := n.Data.(rune)
		return constVal{Type: ast.Primitive_(ast.Char), I: int64(v)}, nil

	case ast.Unary:
		op, _ := n.Data.(string)
		operand, err := foldConst(n.Children[0], env)
		if err != nil {
			return constVal{}, err
		}
		switch op {
		case "-":
			if operand.Type.Prim.IsFloat() {
				return constVal{Type: operand.Type, F: -operand.F}, nil
			}
			return constVal{Type: operand.Type, I: -operand.I}, nil
		case "!":
			return constVal{Type: operand.Type, Bool: !operand.Bool}, nil
		case "~":
			return constVal{Type: operand.Type, I: ^operand.I}, nil
		}
		return constVal{}, fmt.Errorf("const expression: unsupported unary operator %q", op)

	case ast.Binary:
		op, _ := n.Data.(string)
		lhs, err := foldConst(n.Children[0], env)
		if err != nil {
			return constVal{}, err
		}
		rhs, err := foldConst(n.Children[1], env)
		if err != nil {
			return constVal{}, err
		}
		return foldBinaryConst(op, lhs, rhs)

	case ast.TupleLiteral, ast.ArrayLiteral, ast.StructLiteral:
		elems := make([]constVal, len(n.Children))
		for i, c := range n.Children {
			v, err := foldConst(c, env)
			if err != nil {
				return constVal{}, err
			}
			elems[i] = v
		}
		return constVal{Type: n.Type, Elems: elems}, nil

	default:
		return constVal{}, fmt.Errorf("const expression: %s is not a compile-time-foldable expression", n.Kind)
	}
}

func foldBinaryConst(op string, lhs, rhs constVal) (constVal, error) {
	isFloat := lhs.Type != nil && lhs.Type.Kind == ast.KindPrimitive && lhs.Type.Prim.IsFloat()
	switch op {
	case "+":
		if isFloat {
			return constVal{Type: lhs.Type, F: lhs.F + rhs.F}, nil
		}
		return constVal{Type: lhs.Type, I: lhs.I + rhs.I}, nil
	case "-":
		if isFloat {
			return constVal{Type: lhs.Type, F: lhs.F - rhs.F}, nil
		}
		return constVal{Type: lhs.Type, I: lhs.I - rhs.I}, nil
	case "*":
		if isFloat {
			return constVal{Type: lhs.Type, F: lhs.F * rhs.F}, nil
		}
		return constVal{Type: lhs.Type, I: lhs.I * rhs.I}, nil
	}
	return constVal{}, fmt.Errorf("const expression: operator %q is not foldable (only + - * ! ~ are allowed in const initializers)", op)
}

// constToIR materializes a folded constant as an LLVM constant value, used
// to initialize the global internal/lower/module.go creates for each
// ConstDecl.
func (c *ctx) constToIR(v constVal) llvm.Value {
	t := v.Type
	if t == nil {
		return llvm.ConstNull(c.llctx.Int32Type())
	}
	switch t.Kind {
	case ast.KindPrimitive:
		switch {
		case t.Prim.IsFloat():
			return llvm.ConstFloat(c.irType(t), v.F)
		case t.Prim == ast.Bool:
			i := uint64(0)
			if v.Bool {
				i = 1
			}
			return llvm.ConstInt(c.llctx.Int1Type(), i, false)
		case t.Prim == ast.StringPrim:
			return c.internString(v.Str)
		default:
			return llvm.ConstInt(c.irType(t), uint64(v.I), t.Prim.IsSignedInt())
		}
	case ast.KindArray, ast.KindTuple:
		elems := make([]llvm.Value, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = c.constToIR(e)
		}
		if t.Kind == ast.KindArray {
			return llvm.ConstArray(c.irType(t.Elem), elems)
		}
		return llvm.ConstStruct(elems, false)
	case ast.KindStruct:
		elems := make([]llvm.Value, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = c.constToIR(e)
		}
		return llvm.ConstNamedStruct(c.irType(t), elems)
	default:
		return llvm.ConstNull(c.irType(t))
	}
}
