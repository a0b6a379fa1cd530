package lower

import "tinygo.org/x/go-llvm"

// runtimeSignature describes one predeclared runtime builtin: its LLVM
// function type, built lazily so it only costs a declaration in modules
// that actually reference it. Grounded on the teacher's own
// constant-signature externs for its runtime support calls (transform.go
// declares a handful of libc helpers the same way: external linkage,
// created once, cached in a map).
type runtimeSignature func(c *ctx) llvm.Type

var runtimeSignatures = map[string]runtimeSignature{
	"asthra_runtime_init_with_args": func(c *ctx) llvm.Type {
		i32 := c.llctx.Int32Type()
		i8pp := llvm.PointerType(llvm.PointerType(c.llctx.Int8Type(), 0), 0)
		return llvm.FunctionType(c.llctx.VoidType(), []llvm.Type{i32, i8pp}, false)
	},
	"asthra_runtime_cleanup": func(c *ctx) llvm.Type {
		return llvm.FunctionType(c.llctx.VoidType(), nil, false)
	},
	"asthra_alloc": func(c *ctx) llvm.Type {
		i8ptr := llvm.PointerType(c.llctx.Int8Type(), 0)
		return llvm.FunctionType(i8ptr, []llvm.Type{c.llctx.Int64Type()}, false)
	},
	"asthra_free": func(c *ctx) llvm.Type {
		i8ptr := llvm.PointerType(c.llctx.Int8Type(), 0)
		return llvm.FunctionType(c.llctx.VoidType(), []llvm.Type{i8ptr}, false)
	},
	"asthra_panic": func(c *ctx) llvm.Type {
		i8ptr := llvm.PointerType(c.llctx.Int8Type(), 0)
		return llvm.FunctionType(c.llctx.VoidType(), []llvm.Type{i8ptr}, true)
	},
	"asthra_simple_log": func(c *ctx) llvm.Type {
		i8ptr := llvm.PointerType(c.llctx.Int8Type(), 0)
		return llvm.FunctionType(c.llctx.VoidType(), []llvm.Type{i8ptr}, false)
	},
	"asthra_string_concat": func(c *ctx) llvm.Type {
		i8ptr := llvm.PointerType(c.llctx.Int8Type(), 0)
		return llvm.FunctionType(i8ptr, []llvm.Type{i8ptr, i8ptr}, false)
	},
	"asthra_runtime_get_args_simple": func(c *ctx) llvm.Type {
		i8ptr := llvm.PointerType(c.llctx.Int8Type(), 0)
		argsStruct := c.llctx.StructType([]llvm.Type{i8ptr, c.llctx.Int64Type()}, false)
		return llvm.FunctionType(argsStruct, nil, false)
	},
	"exit": func(c *ctx) llvm.Type {
		return llvm.FunctionType(c.llctx.VoidType(), []llvm.Type{c.llctx.Int32Type()}, false)
	},
}

// predeclaredBuiltins maps the four user-facing names spec.md §4.2 reserves
// (log, panic, args, exit) onto the §6 runtime symbol each one declares.
// lowerIdentifier/lowerCall consult this tier only after the local and
// global-symbol tiers have both missed, so a user-defined global of the
// same name shadows the builtin.
var predeclaredBuiltins = map[string]string{
	"log":   "asthra_simple_log",
	"panic": "asthra_panic",
	"args":  "asthra_runtime_get_args_simple",
	"exit":  "exit",
}

// predeclaredBuiltin resolves one of the four predeclared names to its
// backing runtime function, declaring it on first use with external
// linkage (spec.md §4.2).
func (c *ctx) predeclaredBuiltin(name string) (llvm.Value, bool) {
	sym, ok := predeclaredBuiltins[name]
	if !ok {
		return llvm.Value{}, false
	}
	return c.runtimeBuiltin(sym)
}

// runtimeBuiltin returns the (possibly newly-declared) llvm.Value for a
// named runtime builtin, or false if name is not one of the predeclared
// runtime symbols.
func (c *ctx) runtimeBuiltin(name string) (llvm.Value, bool) {
	c.runtimeMu.Lock()
	defer c.runtimeMu.Unlock()
	if v, ok := c.runtimeDecls[name]; ok {
		return v, true
	}
	sig, ok := runtimeSignatures[name]
	if !ok {
		return llvm.Value{}, false
	}
	fn := llvm.AddFunction(c.mod, name, sig(c))
	fn.SetLinkage(llvm.ExternalLinkage)
	c.runtimeDecls[name] = fn
	return fn, true
}
