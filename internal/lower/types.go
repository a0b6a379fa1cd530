package lower

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
)

// irType lowers a resolved ast.Type to its LLVM IR representation
// (lower_type, spec.md §4.1). Grounded on the teacher's genType
// (src/ir/llvm/transform.go), which switches on the AST's type tag and
// caches llvm.IntType/llvm.DoubleType results; generalized here to the
// full descriptor set spec.md §3 names (pointers, slices, arrays, structs,
// enums, tuples, Option, Result, function pointers) instead of VSL's two
// primitive types.
func (c *ctx) irType(t *ast.Type) llvm.Type {
	if t == nil {
		return c.llctx.VoidType()
	}
	switch t.Kind {
	case ast.KindPrimitive:
		return c.irPrimitive(t.Prim)

	case ast.KindPointer:
		pointee := c.irType(t.Pointee)
		if pointee.TypeKind() == llvm.VoidTypeKind {
			// LLVM has no `void*`; the teacher's own FFI declarations use
			// i8* for an opaque pointer, which this mirrors.
			pointee = c.llctx.Int8Type()
		}
		return llvm.PointerType(pointee, 0)

	case ast.KindSlice:
		// {T*, i64 len}, spec.md §4.1's fat-pointer layout.
		elemPtr := llvm.PointerType(c.irType(t.Elem), 0)
		return c.llctx.StructType([]llvm.Type{elemPtr, c.llctx.Int64Type()}, false)

	case ast.KindArray:
		return llvm.ArrayType(c.irType(t.Elem), int(t.ArrayLen))

	case ast.KindStruct:
		fields := make([]llvm.Type, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = c.irType(f.Type)
		}
		return c.llctx.StructType(fields, t.Packed)

	case ast.KindEnum:
		// Tag-only representation when no variant carries a payload;
		// otherwise {i32 tag, largest-payload-byte-array} so every variant
		// fits, matching the teacher's union-via-byte-array idiom used for
		// its own multi-shape IR nodes.
		if !enumHasPayload(t) {
			return c.llctx.Int32Type()
		}
		payload := c.enumPayloadType(t)
		return c.llctx.StructType([]llvm.Type{c.llctx.Int32Type(), payload}, false)

	case ast.KindTuple:
		elems := make([]llvm.Type, len(t.Elements))
		for i, e := range t.Elements {
			elems[i] = c.irType(e)
		}
		return c.llctx.StructType(elems, false)

	case ast.KindOption:
		return c.llctx.StructType([]llvm.Type{c.llctx.Int1Type(), c.irType(t.ValueType)}, false)

	case ast.KindResult:
		// {i1 isOk, Ok, Err} - both payload slots always present so a
		// single struct shape serves both arms, the same trick used for
		// Option and the teacher's tagged nodes.
		return c.llctx.StructType([]llvm.Type{
			c.llctx.Int1Type(),
			c.irType(t.OkType),
			c.irType(t.ErrType),
		}, false)

	case ast.KindFunction:
		params := make([]llvm.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.irType(p)
		}
		ret := c.irType(t.Returns)
		return llvm.PointerType(llvm.FunctionType(ret, params, false), 0)

	default:
		c.diags.Append(0, 0, 0, "internal: unhandled type kind %d in irType", int(t.Kind))
		return c.llctx.VoidType()
	}
}

// irPrimitive lowers a primitive per the fixed table in spec.md §4.1.
func (c *ctx) irPrimitive(p ast.Primitive) llvm.Type {
	switch p {
	case ast.I8, ast.U8:
		return c.llctx.Int8Type()
	case ast.I16, ast.U16:
		return c.llctx.Int16Type()
	case ast.I32, ast.U32:
		return c.llctx.Int32Type()
	case ast.I64, ast.U64:
		return c.llctx.Int64Type()
	case ast.I128, ast.U128:
		return c.llctx.IntType(128)
	case ast.Usize, ast.Isize:
		return c.llctx.IntType(c.usizeBits)
	case ast.F32:
		return c.llctx.FloatType()
	case ast.F64:
		return c.llctx.DoubleType()
	case ast.Bool:
		return c.llctx.Int1Type()
	case ast.StringPrim:
		// Opaque byte pointer (spec.md §4.1); length travels separately at
		// call sites that need it, matching the runtime's `asthra_string`
		// ABI of a pointer plus an explicit length argument.
		return llvm.PointerType(c.llctx.Int8Type(), 0)
	case ast.Char:
		return c.llctx.Int32Type() // Unicode scalar value, 4 bytes
	case ast.Void:
		return c.llctx.VoidType()
	case ast.Never:
		// No IR value of type "never" is ever materialized; the type slot
		// lowers to void. Calls to never-typed functions are emitted like
		// any void call: no noreturn attribute and no trailing unreachable.
		return c.llctx.VoidType()
	case ast.Unit:
		return c.llctx.StructType(nil, false)
	default:
		c.diags.Append(0, 0, 0, "internal: unhandled primitive %d in irPrimitive", int(p))
		return c.llctx.VoidType()
	}
}

func enumHasPayload(t *ast.Type) bool {
	for _, v := range t.Variants {
		if v.Payload != nil {
			return true
		}
	}
	return false
}

// enumPayloadType returns a byte array wide enough to hold the largest
// variant payload, conservatively sized (no per-target alignment packing -
// spec.md §9 leaves enum payload layout as an implementation choice, and a
// flat byte array keeps every variant's CreateBitCast trivially valid).
func (c *ctx) enumPayloadType(t *ast.Type) llvm.Type {
	maxBits := int64(0)
	for _, v := range t.Variants {
		if v.Payload == nil {
			continue
		}
		sz := c.sizeOfBits(v.Payload)
		if sz > maxBits {
			maxBits = sz
		}
	}
	bytes := (maxBits + 7) / 8
	if bytes == 0 {
		bytes = 1
	}
	return llvm.ArrayType(c.llctx.Int8Type(), int(bytes))
}

// sizeOfBits estimates a type's storage size in bits. It sizes enum
// payload byte arrays, and lowerPointerDiff (ops.go) divides by it as the
// pointee size. No alignment padding between struct fields is counted.
func (c *ctx) sizeOfBits(t *ast.Type) int64 {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case ast.KindPrimitive:
		if t.Prim == ast.StringPrim {
			return 64 // pointer width
		}
		return int64(t.Prim.BitWidth())
	case ast.KindPointer, ast.KindFunction:
		return 64
	case ast.KindSlice:
		return 64 + 64
	case ast.KindArray:
		return t.ArrayLen * c.sizeOfBits(t.Elem)
	case ast.KindStruct:
		var total int64
		for _, f := range t.Fields {
			total += c.sizeOfBits(f.Type)
		}
		return total
	case ast.KindEnum:
		if !enumHasPayload(t) {
			return 32
		}
		maxBits := int64(0)
		for _, v := range t.Variants {
			if v.Payload == nil {
				continue
			}
			if sz := c.sizeOfBits(v.Payload); sz > maxBits {
				maxBits = sz
			}
		}
		return 32 + maxBits
	case ast.KindTuple:
		var total int64
		for _, e := range t.Elements {
			total += c.sizeOfBits(e)
		}
		return total
	case ast.KindOption:
		return 1 + c.sizeOfBits(t.ValueType)
	case ast.KindResult:
		ok, err := c.sizeOfBits(t.OkType), c.sizeOfBits(t.ErrType)
		return 1 + ok + err
	}
	return 0
}

// sizeofPrimitive returns a primitive's size in whole bytes (its bit width
// rounded up). No expression lowering calls it: the AST has no `sizeof`
// node, so `sizeof` expressions are not lowered.
func sizeofPrimitive(p ast.Primitive) (int64, error) {
	bits := p.BitWidth()
	if bits == 0 {
		return 0, fmt.Errorf("sizeof: primitive %s has no defined size", p)
	}
	return int64(bits+7) / 8, nil
}
