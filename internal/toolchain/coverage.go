package toolchain

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// defaultIgnoreRegex excludes tests, third-party, and build trees from
// coverage reports (spec.md §4.6); overridden by config.Driver's
// CoverageIgnoreRegex when non-empty.
var defaultIgnoreRegex = []string{
	".*_test\\.asthra$",
	".*/third_party/.*",
	".*/build/.*",
}

// MergeProfiles merges a set of raw profile files into a single .profdata
// via `llvm-profdata merge -sparse`.
func (d *Driver) MergeProfiles(ctx context.Context, profraw []string, outProfdata string, verbose bool) (ToolResult, error) {
	path, err := d.resolve("llvm-profdata")
	if err != nil {
		return ToolResult{}, err
	}
	args := append([]string{"merge", "-sparse", "-o", outProfdata}, profraw...)
	return d.run(ctx, verbose, path, args...)
}

// ignorePatterns returns the configured ignore regexes, falling back to
// defaultIgnoreRegex when the driver's config has none.
func (d *Driver) ignorePatterns() []string {
	if len(d.cfg.CoverageIgnoreRegex) > 0 {
		return d.cfg.CoverageIgnoreRegex
	}
	return defaultIgnoreRegex
}

// ShowCoverage runs `llvm-cov show` (text or html) over a binary + profdata.
func (d *Driver) ShowCoverage(ctx context.Context, binary, profdata string, html bool, verbose bool) (ToolResult, error) {
	path, err := d.resolve("llvm-cov")
	if err != nil {
		return ToolResult{}, err
	}
	args := []string{"show", binary, "-instr-profile=" + profdata}
	if html {
		args = append(args, "-format=html")
	}
	for _, p := range d.ignorePatterns() {
		args = append(args, "-ignore-filename-regex="+p)
	}
	return d.run(ctx, verbose, path, args...)
}

// ExportCoverage runs `llvm-cov export` (lcov or json).
func (d *Driver) ExportCoverage(ctx context.Context, binary, profdata, format string, verbose bool) (ToolResult, error) {
	path, err := d.resolve("llvm-cov")
	if err != nil {
		return ToolResult{}, err
	}
	args := []string{"export", binary, "-instr-profile=" + profdata, "-format=" + format}
	for _, p := range d.ignorePatterns() {
		args = append(args, "-ignore-filename-regex="+p)
	}
	return d.run(ctx, verbose, path, args...)
}

// CoverageSummary is the parsed TOTAL row of `llvm-cov report` output.
type CoverageSummary struct {
	LinesPercent     float64
	FunctionsPercent float64
	RegionsPercent   float64
}

var totalRowRe = regexp.MustCompile(`^TOTAL\s+(.*)$`)
var percentRe = regexp.MustCompile(`([0-9]+\.[0-9]+)%`)

// Report runs `llvm-cov report` and parses its TOTAL row into a
// CoverageSummary, scanning for three percentages in column order
// (regions, functions, lines per llvm-cov's default column layout - the
// summary parser here reads them out positionally rather than by header
// name, since llvm-cov's report header text varies across versions).
func (d *Driver) Report(ctx context.Context, binary, profdata string, verbose bool) (CoverageSummary, ToolResult, error) {
	path, err := d.resolve("llvm-cov")
	if err != nil {
		return CoverageSummary{}, ToolResult{}, err
	}
	args := []string{"report", binary, "-instr-profile=" + profdata}
	for _, p := range d.ignorePatterns() {
		args = append(args, "-ignore-filename-regex="+p)
	}
	res, err := d.run(ctx, verbose, path, args...)
	if err != nil || !res.Success {
		return CoverageSummary{}, res, err
	}
	summary, err := parseCoverageSummary(res.Stdout)
	return summary, res, err
}

func parseCoverageSummary(output string) (CoverageSummary, error) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		m := totalRowRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		percents := percentRe.FindAllStringSubmatch(m[1], -1)
		if len(percents) < 3 {
			return CoverageSummary{}, fmt.Errorf("toolchain: TOTAL row has %d percentages, want >= 3", len(percents))
		}
		regions, err := strconv.ParseFloat(percents[0][1], 64)
		if err != nil {
			return CoverageSummary{}, err
		}
		functions, err := strconv.ParseFloat(percents[1][1], 64)
		if err != nil {
			return CoverageSummary{}, err
		}
		lines, err := strconv.ParseFloat(percents[2][1], 64)
		if err != nil {
			return CoverageSummary{}, err
		}
		return CoverageSummary{
			RegionsPercent:   regions,
			FunctionsPercent: functions,
			LinesPercent:     lines,
		}, nil
	}
	return CoverageSummary{}, fmt.Errorf("toolchain: no TOTAL row found in llvm-cov report output")
}
