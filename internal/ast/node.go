// Package ast defines the typed-AST input contract this module's lowering
// engine consumes: a tree of Node values, each carrying a variant tag, a
// source location, an optional resolved Type, and a variant-specific
// payload. The lexer, parser, and semantic analyzer that produce this tree
// are external collaborators (out of scope, spec.md §1) - this package only
// names the shape they must hand to internal/lower.
//
// Generalized from the teacher's src/ir/nodetype.go Node (Typ/Line/Pos/
// Data/Entry/Children), extended with the Type field VSL's two-type AST
// never needed.
package ast

import "fmt"

// Kind differentiates the variants of Node.
type Kind int

const (
	Program Kind = iota

	// Literals.
	IntLiteral
	FloatLiteral
	StringLiteral
	BoolLiteral
	CharLiteral
	UnitLiteral
	TupleLiteral
	ArrayLiteral
	StructLiteral

	Identifier

	Unary
	Binary
	Cast

	Field
	Index
	Slice

	Call
	Await

	UnsafeBlock

	Let
	Assign
	If
	Block
	Return
	Break
	Continue
	Match
	For
	ExprStatement

	Spawn
	SpawnHandle

	FunctionDecl
	MethodDecl
	ImplBlock
	ConstDecl
	StructDecl
	EnumDecl
	ExternDecl

	// Pattern variants, only valid as the first child of a MatchArm node.
	PatternLiteral
	PatternWildcard
	PatternIdentifier
	PatternEnumVariant
	PatternStruct
	PatternTuple

	MatchArm
)

var kindNames = [...]string{
	"Program",
	"IntLiteral", "FloatLiteral", "StringLiteral", "BoolLiteral", "CharLiteral",
	"UnitLiteral", "TupleLiteral", "ArrayLiteral", "StructLiteral",
	"Identifier",
	"Unary", "Binary", "Cast",
	"Field", "Index", "Slice",
	"Call", "Await",
	"UnsafeBlock",
	"Let", "Assign", "If", "Block", "Return", "Break", "Continue", "Match", "For", "ExprStatement",
	"Spawn", "SpawnHandle",
	"FunctionDecl", "MethodDecl", "ImplBlock", "ConstDecl", "StructDecl", "EnumDecl", "ExternDecl",
	"PatternLiteral", "PatternWildcard", "PatternIdentifier", "PatternEnumVariant", "PatternStruct", "PatternTuple",
	"MatchArm",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Pos is a source location: file is tracked at the compilation-unit level,
// not per node, matching spec.md §3 ("a source location (file/line/column)").
type Pos struct {
	Line int
	Col  int
}

// Node is one node of the typed AST.
type Node struct {
	Kind     Kind
	Pos      Pos
	Type     *Type // resolved type descriptor; nil if unresolved (spec.md §3)
	Data     interface{}
	Children []*Node
}

func (n *Node) String() string {
	if n == nil {
		return "<nil node>"
	}
	if n.Data == nil {
		return n.Kind.String()
	}
	return fmt.Sprintf("%s[%v]", n.Kind, n.Data)
}

// --- Kind-specific payloads. Literal scalar kinds (IntLiteral, FloatLiteral,
// StringLiteral, BoolLiteral, CharLiteral, Identifier) carry their Go value
// directly in Data (int64, float64, string, bool, rune, string respectively).
// Unary/Binary carry the operator token in Data as a string. Everything with
// more than one named field gets its own payload struct below, the same way
// the teacher reaches for n.Data.(string) for simple cases and a dedicated
// shape (funcWrapper) when one field isn't enough.

// CastData is the Data payload of a Cast node; the single child is the
// operand and Node.Type is the target type.
type CastData struct{}

// FieldData is the Data payload of a Field node; Children[0] is the operand.
type FieldData struct {
	Name string
}

// IndexData is the Data payload of an Index node; Children[0] is the
// operand, Children[1] is the index expression.
type IndexData struct{}

// SliceData is the Data payload of a Slice node; Children[0] is the operand.
// Start/End are nil when the bound was omitted (spec.md §4.2).
type SliceData struct {
	Start *Node
	End   *Node
}

// CallData is the Data payload of a Call node. For an associated-function
// call `Type::fn(args)`, TypeName is non-empty and the mangled target is
// TypeName_FuncName. Children are the positional argument expressions.
type CallData struct {
	TypeName string
	FuncName string
}

// StructLiteralData is the Data payload of a StructLiteral node. Fields[i]
// names the field initialized by Children[i].
type StructLiteralData struct {
	TypeName string
	Fields   []string
}

// LetData is the Data payload of a Let node. Children[0] is the optional
// initializer (nil/absent if the declaration has no initializer).
type LetData struct {
	Name         string
	DeclaredType *Type // nil if the type must be inferred from the initializer
}

// AssignData is the Data payload of an Assign node. Children[0] is the
// L-value target expression (Identifier, Field, or Index); Children[1] is
// the right-hand side.
type AssignData struct{}

// IfData is the Data payload of an If node. Children[0] is the condition,
// Children[1] is the then-Block, Children[2] is the optional else-Block (or
// else-If for `else if` chains).
type IfData struct{}

// MatchData is the Data payload of a Match node. Children[0] is the
// subject; Children[1:] are MatchArm nodes in source order.
type MatchData struct{}

// MatchArmData is the Data payload of a MatchArm node. Children[0] is the
// pattern node. With HasGuard true, Children[1] is the guard expression and
// Children[2] is the arm body (an expression or block); with HasGuard false
// there is no guard slot and the body is Children[1].
type MatchArmData struct {
	HasGuard bool
}

// PatternEnumVariantData is the Data payload of a PatternEnumVariant node.
type PatternEnumVariantData struct {
	EnumName    string
	VariantName string
	// Binding is the identifier the payload is bound to, or "" if the arm
	// does not bind the variant's payload.
	Binding string
}

// PatternIdentifierData is the Data payload of a PatternIdentifier node: an
// irrefutable binding pattern.
type PatternIdentifierData struct {
	Name string
}

// ForData is the Data payload of a For node. Children[0] is the iterable
// expression, Children[1] is the body Block.
type ForData struct {
	LoopVar string
}

// SpawnHandleData is the Data payload of a SpawnHandle node. Children[0] is
// the call expression whose result is stored under HandleName.
type SpawnHandleData struct {
	HandleName string
}

// FunctionDeclData is the Data payload of a FunctionDecl or MethodDecl node.
// Children are the statements of the function body (conceptually wrapped in
// a single Block child); ParamNames[i] names parameter i, whose type is
// Node.Type.Params[i] (Node.Type has Kind KindFunction).
type FunctionDeclData struct {
	Name       string
	ParamNames []string
	// StructName is non-empty for MethodDecl nodes (the receiver/owning
	// struct), empty for free FunctionDecl nodes.
	StructName string
	// IsInstance is true for instance methods (mangled Struct_method),
	// false for associated functions (mangled Struct_method as well, per
	// spec.md §4.4 - the distinction only matters for whether an implicit
	// receiver parameter is present in ParamNames).
	IsInstance bool
}

// ImplBlockData is the Data payload of an ImplBlock node. Children are
// MethodDecl nodes.
type ImplBlockData struct {
	StructName string
}

// ConstDeclData is the Data payload of a ConstDecl node. Children[0] is the
// initializer expression, which must be foldable (spec.md §4.4).
type ConstDeclData struct {
	Name string
}

// StructDeclData is the Data payload of a StructDecl node; the full field
// layout lives in Node.Type.Fields (Node.Type has Kind KindStruct).
type StructDeclData struct {
	Name string
}

// EnumDeclData is the Data payload of an EnumDecl node; the variant list
// lives in Node.Type.Variants (Node.Type has Kind KindEnum).
type EnumDeclData struct {
	Name string
}

// ExternDeclData is the Data payload of an ExternDecl node describing an
// FFI function signature; Node.Type is a Type of Kind KindFunction.
type ExternDeclData struct {
	Name     string
	Variadic bool
}
