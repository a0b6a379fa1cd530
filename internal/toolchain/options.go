// Package toolchain drives the external LLVM toolchain (opt, llc, clang,
// llvm-cov, llvm-profdata) to turn a serialized IR file into the
// requested build artifact, and reports code-coverage summaries. Grounded
// on the teacher's own os/exec driving pattern (it shells out to `as` and
// the system linker from src/main.go) generalized to a multi-tool
// pipeline with per-step options.
package toolchain

import "fmt"

// OptLevel mirrors clang/opt/llc's -O0..-O3 levels.
type OptLevel int

const (
	OptNone OptLevel = iota
	OptBasic
	OptStandard
	OptAggressive
)

func (o OptLevel) ClangFlag() string {
	switch o {
	case OptNone:
		return "-O0"
	case OptBasic:
		return "-O1"
	case OptStandard:
		return "-O2"
	case OptAggressive:
		return "-O3"
	}
	return "-O0"
}

// TargetArch selects the output target triple.
type TargetArch int

const (
	ArchNative TargetArch = iota
	ArchX86_64
	ArchArm64
	ArchWasm32
)

// Triple returns the target triple, or "" for ArchNative (omit -target).
func (a TargetArch) Triple() string {
	switch a {
	case ArchX86_64:
		return "x86_64-pc-linux-gnu"
	case ArchArm64:
		return "aarch64-unknown-linux-gnu"
	case ArchWasm32:
		return "wasm32-unknown-unknown"
	default:
		return ""
	}
}

// OutputFormat selects the pipeline's final artifact.
type OutputFormat int

const (
	FormatLLVMIR OutputFormat = iota
	FormatLLVMBC
	FormatAssembly
	FormatObject
	FormatExecutable
)

func (f OutputFormat) Extension() string {
	switch f {
	case FormatLLVMIR:
		return ".ll"
	case FormatLLVMBC:
		return ".bc"
	case FormatAssembly:
		return ".s"
	case FormatObject:
		return ".o"
	case FormatExecutable:
		return ""
	}
	return ""
}

// PIEMode selects position-independent-executable codegen.
type PIEMode int

const (
	PIEDefault PIEMode = iota
	PIEForceOn
	PIEForceOff
)

// Options configures one compile_pipeline invocation (spec.md §4.6).
type Options struct {
	OptLevel      OptLevel
	TargetArch    TargetArch
	OutputFormat  OutputFormat
	DebugInfo     bool
	PIEMode       PIEMode
	Coverage      bool
	Verbose       bool
	PassPipeline  string // custom -passes= for opt; empty uses opt's defaults
	RuntimeLibDir []string
}

// ToolResult is the outcome of one external process invocation.
type ToolResult struct {
	Success    bool
	ExitCode   int
	Stdout     string
	Stderr     string
	ElapsedMS  int64
	freed      bool
}

// Free releases any resources ToolResult holds. It currently holds none
// (Stdout/Stderr are plain Go strings), but the method exists - and is
// idempotent - so callers can mirror the teacher's own explicit
// resource-release discipline and spec.md's `tool_result_free` contract
// without this module needing to grow a native handle later to support it.
func (r *ToolResult) Free() {
	r.freed = true
}

func (r *ToolResult) String() string {
	return fmt.Sprintf("exit=%d success=%v elapsed=%dms", r.ExitCode, r.Success, r.ElapsedMS)
}
