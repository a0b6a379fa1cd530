package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// run executes one external tool invocation, capturing stdout/stderr and
// timing it. Output is only echoed to the parent process when verbose is
// set, matching spec.md §4.6's "no output is directly forwarded to the
// parent unless verbose was set."
func (d *Driver) run(ctx context.Context, verbose bool, path string, args ...string) (ToolResult, error) {
	if verbose {
		fmt.Fprintln(os.Stderr, append([]string{path}, args...))
	}
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	res := ToolResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ElapsedMS: elapsed,
	}
	if err == nil {
		res.Success = true
		res.ExitCode = 0
		return res, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.Success = false
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, fmt.Errorf("toolchain: failed to execute %s: %w", path, err)
}
