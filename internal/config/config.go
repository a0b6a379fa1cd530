// Package config loads the small set of static defaults the toolchain
// driver (internal/toolchain) and object-file writer (internal/objfile)
// need: candidate tool names, runtime-library search paths, the coverage
// report's ignore regex, and the Asthra metadata section version.
//
// This is deliberately narrow: it is not the project/user configuration
// surface (out of scope per spec.md §1), only build-time defaults for the
// two components in this module that would otherwise hard-code them.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Driver holds toolchain-driver and object-writer defaults.
type Driver struct {
	// ToolCandidates maps a logical tool name ("opt", "llc", "clang",
	// "llvm-cov", "llvm-profdata") to the ordered list of binary names to
	// search for on PATH.
	ToolCandidates map[string][]string `toml:"tool_candidates"`

	// RuntimeLibCandidates lists relative paths searched, in order, for
	// libasthra_runtime.a.
	RuntimeLibCandidates []string `toml:"runtime_lib_candidates"`

	// CoverageIgnoreRegex excludes tests, third-party and build trees from
	// llvm-cov reports.
	CoverageIgnoreRegex []string `toml:"coverage_ignore_regex"`

	// MetadataVersion is the version field stamped into every Asthra
	// object-file metadata section.
	MetadataVersion uint32 `toml:"metadata_version"`
}

// Default returns the built-in defaults used when no config file is
// present or one isn't supplied.
func Default() Driver {
	return Driver{
		ToolCandidates: map[string][]string{
			"opt":           {"opt", "opt-17", "opt-16", "opt-15", "opt-14"},
			"llc":           {"llc", "llc-17", "llc-16", "llc-15", "llc-14"},
			"clang":         {"clang", "clang-17", "clang-16", "clang-15", "clang-14"},
			"llvm-cov":      {"llvm-cov", "llvm-cov-17", "llvm-cov-16"},
			"llvm-profdata": {"llvm-profdata", "llvm-profdata-17", "llvm-profdata-16"},
		},
		RuntimeLibCandidates: []string{
			"./build/lib/libasthra_runtime.a",
			"../build/lib/libasthra_runtime.a",
			"./lib/libasthra_runtime.a",
		},
		CoverageIgnoreRegex: []string{
			".*_test\\.asthra$",
			".*/third_party/.*",
			".*/build/.*",
		},
		MetadataVersion: 1,
	}
}

// Load reads a TOML defaults file at path, applying it on top of Default().
// A missing file is not an error: Load returns the unmodified defaults.
//
// Grounded on Creative-Workz-Studio-LLC/cpi-si's
// system/runtime/lib/config/config.go, which uses the identical
// toml.DecodeFile-into-struct, missing-file-is-not-fatal pattern.
func Load(path string) (Driver, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Driver{}, err
	}
	return cfg, nil
}
