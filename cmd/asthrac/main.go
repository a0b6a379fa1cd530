// Command asthrac wires the backend together: load driver defaults, lower
// a typed AST to an LLVM module, and drive the external toolchain to
// produce the requested artifact. It is deliberately not a CLI front end
// (lexing, parsing, flag handling, and project configuration are out of
// scope for this module) - it accepts an already-serialized typed AST and
// a small positional argument list, and exists so the backend is
// independently runnable while its real front-end collaborator is absent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"asthra/internal/ast"
	"asthra/internal/config"
	"asthra/internal/diag"
	"asthra/internal/lower"
	"asthra/internal/toolchain"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: asthrac <typed-ast.json> <output-file> [format]")
		os.Exit(2)
	}
	astPath := os.Args[1]
	outPath := os.Args[2]
	format := "llvm_ir"
	if len(os.Args) > 3 {
		format = os.Args[3]
	}

	if err := run(astPath, outPath, format); err != nil {
		fmt.Fprintln(os.Stderr, "asthrac:", err)
		os.Exit(1)
	}
}

func run(astPath, outPath, format string) error {
	root, err := readTypedAST(astPath)
	if err != nil {
		return fmt.Errorf("reading typed AST: %w", err)
	}

	cfg, err := config.Load(os.Getenv("ASTHRAC_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	diags := &diag.Collector{}
	mod, err := lower.LowerProgram(lower.Options{
		ModuleName: astPath,
		Arch:       lower.ArchNative,
		Threads:    4,
	}, diags, root)
	if err != nil {
		return err
	}
	diags.Print()
	if diags.HasErrors() {
		return fmt.Errorf("lowering failed with errors")
	}

	irPath := outPath + ".ll"
	if err := os.WriteFile(irPath, []byte(mod.String()), 0o644); err != nil {
		return fmt.Errorf("writing IR file: %w", err)
	}
	defer os.Remove(irPath)

	driver := toolchain.NewDriver(cfg)
	opts := toolchain.Options{
		OptLevel:     toolchain.OptStandard,
		TargetArch:   toolchain.ArchNative,
		OutputFormat: parseFormat(format),
		Verbose:      os.Getenv("ASTHRAC_VERBOSE") != "",
	}
	res, err := driver.CompilePipeline(context.Background(), irPath, outPath, opts)
	if err != nil {
		return fmt.Errorf("toolchain: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("toolchain: pipeline exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

func parseFormat(s string) toolchain.OutputFormat {
	switch s {
	case "llvm_bc":
		return toolchain.FormatLLVMBC
	case "assembly":
		return toolchain.FormatAssembly
	case "object":
		return toolchain.FormatObject
	case "executable":
		return toolchain.FormatExecutable
	default:
		return toolchain.FormatLLVMIR
	}
}

// readTypedAST decodes the JSON-serialized typed AST the front-end
// collaborator would otherwise hand the core as in-memory values. Data
// payloads are decoded generically (map[string]interface{}) rather than
// into their concrete ast.*Data structs, since a wire format for the
// input contract is outside this module's scope - the lowering engine
// only ever reads Data through type assertions the real in-process
// front-end would satisfy directly.
func readTypedAST(path string) (*ast.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var root ast.Node
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, err
	}
	return &root, nil
}
