package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
)

// CompilePipeline implements spec.md §4.6's single entry point. It turns
// irFile (a serialized LLVM IR or bitcode file produced by internal/lower)
// into outFile per opts.OutputFormat, composing opt/llc/clang as needed,
// and removes its own intermediate files on return.
func (d *Driver) CompilePipeline(ctx context.Context, irFile, outFile string, opts Options) (ToolResult, error) {
	var tmp []string
	defer func() {
		for _, p := range tmp {
			os.Remove(p)
		}
	}()

	if opts.Coverage {
		return d.compileWithCoverage(ctx, irFile, outFile, opts)
	}

	if opts.OutputFormat == FormatLLVMIR && opts.OptLevel == OptNone {
		if err := copyFile(irFile, outFile); err != nil {
			return ToolResult{}, err
		}
		return ToolResult{Success: true}, nil
	}

	current := irFile
	if opts.OptLevel != OptNone {
		optOut := outFile + ".opt.bc"
		tmp = append(tmp, optOut)
		res, err := d.runOpt(ctx, current, optOut, opts)
		if err != nil || !res.Success {
			return res, err
		}
		current = optOut
	}

	switch opts.OutputFormat {
	case FormatLLVMIR:
		if err := copyFile(current, outFile); err != nil {
			return ToolResult{}, err
		}
		return ToolResult{Success: true}, nil

	case FormatLLVMBC:
		if err := copyFile(current, outFile); err != nil {
			return ToolResult{}, err
		}
		return ToolResult{Success: true}, nil

	case FormatAssembly, FormatObject:
		return d.runLLC(ctx, current, outFile, opts)

	case FormatExecutable:
		objOut := outFile + ".o"
		tmp = append(tmp, objOut)
		llcOpts := opts
		llcOpts.OutputFormat = FormatObject
		res, err := d.runLLC(ctx, current, objOut, llcOpts)
		if err != nil || !res.Success {
			return res, err
		}
		return d.runLink(ctx, objOut, outFile, opts)

	default:
		return ToolResult{}, fmt.Errorf("toolchain: unknown output format %d", opts.OutputFormat)
	}
}

func (d *Driver) runOpt(ctx context.Context, in, out string, opts Options) (ToolResult, error) {
	path, err := d.resolve("opt")
	if err != nil {
		return ToolResult{}, err
	}
	args := []string{in, "-o", out}
	if opts.PassPipeline != "" {
		args = append(args, "-passes="+opts.PassPipeline)
	} else {
		args = append(args, optLevelPassesFlag(opts.OptLevel))
	}
	if opts.DebugInfo {
		args = append(args, "-debugify")
	}
	return d.run(ctx, opts.Verbose, path, args...)
}

func optLevelPassesFlag(o OptLevel) string {
	switch o {
	case OptBasic:
		return "-passes=default<O1>"
	case OptStandard:
		return "-passes=default<O2>"
	case OptAggressive:
		return "-passes=default<O3>"
	default:
		return "-passes=default<O0>"
	}
}

func (d *Driver) runLLC(ctx context.Context, in, out string, opts Options) (ToolResult, error) {
	path, err := d.resolve("llc")
	if err != nil {
		return ToolResult{}, err
	}
	args := []string{in, "-o", out}
	if t := opts.TargetArch.Triple(); t != "" {
		args = append(args, "-mtriple="+t)
	}
	if opts.OutputFormat == FormatObject {
		args = append(args, "-filetype=obj")
	} else {
		args = append(args, "-filetype=asm")
	}
	switch opts.PIEMode {
	case PIEForceOn:
		args = append(args, "-relocation-model=pic")
	case PIEForceOff:
		args = append(args, "-relocation-model=static")
	}
	return d.run(ctx, opts.Verbose, path, args...)
}

func (d *Driver) runLink(ctx context.Context, objFile, outFile string, opts Options) (ToolResult, error) {
	path, err := d.resolve("clang")
	if err != nil {
		return ToolResult{}, err
	}
	runtimeLib, err := d.resolveRuntimeLib()
	if err != nil {
		return ToolResult{}, err
	}
	args := []string{objFile, "-o", outFile, runtimeLib}
	if t := opts.TargetArch.Triple(); t != "" {
		args = append(args, "-target", t)
	}
	switch opts.PIEMode {
	case PIEForceOn:
		args = append(args, "-pie", "-fPIE")
	case PIEForceOff:
		args = append(args, "-no-pie", "-fno-PIE")
	}
	return d.run(ctx, opts.Verbose, path, args...)
}

// compileWithCoverage drives IR straight to the final artifact through
// clang alone, skipping opt/llc, so instrumentation counters survive
// (spec.md §4.6: "routes IR→executable via direct clang invocation").
func (d *Driver) compileWithCoverage(ctx context.Context, irFile, outFile string, opts Options) (ToolResult, error) {
	path, err := d.resolve("clang")
	if err != nil {
		return ToolResult{}, err
	}
	runtimeLib, err := d.resolveRuntimeLib()
	if err != nil {
		return ToolResult{}, err
	}
	args := []string{
		irFile, "-o", outFile, runtimeLib,
		"-fprofile-instr-generate", "-fcoverage-mapping",
		opts.OptLevel.ClangFlag(),
	}
	if opts.DebugInfo {
		args = append(args, "-g")
	}
	if t := opts.TargetArch.Triple(); t != "" {
		args = append(args, "-target", t)
	}
	return d.run(ctx, opts.Verbose, path, args...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("toolchain: copy %s -> %s: %w", src, dst, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("toolchain: copy %s -> %s: %w", src, dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("toolchain: copy %s -> %s: %w", src, dst, err)
	}
	return nil
}
