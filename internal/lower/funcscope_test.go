package lower

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"asthra/internal/ast"
	"asthra/internal/util"
)

// newTestFuncScope builds a funcScope over a fresh void() function with one
// entry block, ready for statement/expression lowering in tests.
func newTestFuncScope(t *testing.T) *funcScope {
	t.Helper()
	c := newTestCtx(t)
	fnType := llvm.FunctionType(c.llctx.VoidType(), nil, false)
	fn := llvm.AddFunction(c.mod, "test_fn", fnType)
	entry := llvm.AddBasicBlock(fn, "entry")
	b := c.llctx.NewBuilder()
	b.SetInsertPointAtEnd(entry)

	f := &funcScope{
		c:       c,
		b:       b,
		fn:      fn,
		structs: map[string]*ast.Type{},
		enums:   map[string]*ast.Type{},
	}
	f.pushScope()
	return f
}
