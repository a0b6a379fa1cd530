package toolchain

import (
	"fmt"
	"os/exec"
	"sync"

	"asthra/internal/config"
)

// Driver resolves and caches external tool paths and the runtime library
// location, and drives compile_pipeline/coverage invocations against them.
// One Driver is shared across a build; tool-path resolution happens once
// per tool name.
type Driver struct {
	cfg config.Driver

	mu    sync.Mutex
	paths map[string]string
}

// NewDriver constructs a Driver from resolved configuration defaults.
func NewDriver(cfg config.Driver) *Driver {
	return &Driver{cfg: cfg, paths: make(map[string]string, 8)}
}

// resolve searches cfg.ToolCandidates[name] on PATH in order and caches
// the first hit's absolute path. Grounded on the teacher's own `exec.LookPath`
// use when invoking the system assembler/linker (src/main.go).
func (d *Driver) resolve(name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.paths[name]; ok {
		return p, nil
	}
	candidates, ok := d.cfg.ToolCandidates[name]
	if !ok || len(candidates) == 0 {
		return "", fmt.Errorf("toolchain: no candidates configured for %q", name)
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			d.paths[name] = p
			return p, nil
		}
	}
	return "", fmt.Errorf("toolchain: required tool %q not found on PATH (tried %v)", name, candidates)
}

// resolveRuntimeLib searches cfg.RuntimeLibCandidates for the first path
// that exists on disk.
func (d *Driver) resolveRuntimeLib() (string, error) {
	for _, p := range d.cfg.RuntimeLibCandidates {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("toolchain: libasthra_runtime.a not found in any candidate path %v", d.cfg.RuntimeLibCandidates)
}
