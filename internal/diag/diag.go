// Package diag accumulates and reports lowering and toolchain diagnostics.
//
// The propagation policy in spec.md §7 requires that a failing top-level
// declaration does not abort the whole compilation unit: lowering continues
// into the next declaration so that as many errors as possible surface in a
// single run. Collector implements that accumulate-then-drain shape.
package diag

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Severity classifies a reported diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// Diagnostic is one reported error or warning, optionally located in the
// typed AST (Line/Pos 0 means "not associated with a source location", e.g.
// toolchain or object-file diagnostics).
type Diagnostic struct {
	Severity Severity
	Line     int
	Pos      int
	Message  string
}

func (d Diagnostic) String() string {
	if d.Line == 0 && d.Pos == 0 {
		return d.Message
	}
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Pos, d.Message)
}

// Collector is a thread-safe diagnostic accumulator. The zero value is
// ready to use. One Collector is created per compilation unit and shared
// across the worker goroutines that lower top-level declarations in
// parallel (see internal/lower's concurrent header/body passes).
//
// Grounded on src/util/perror.go's accumulate-then-drain shape; kept as a
// plain mutex-guarded slice rather than perror's channel-fed goroutine,
// since every call site here is synchronous.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// Append records a diagnostic. Safe for concurrent use.
func (c *Collector) Append(sev Severity, line, pos int, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, Diagnostic{
		Severity: sev,
		Line:     line,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Error is a convenience for Append(SeverityError, ...) that also returns a
// plain error value carrying the same message, for lowering functions that
// both want to accumulate *and* signal failure to their immediate caller.
func (c *Collector) Error(line, pos int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	c.Append(SeverityError, line, pos, "%s", msg)
	return fmt.Errorf("%s", msg)
}

// HasErrors reports whether any SeverityError diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Diagnostics returns a snapshot of all diagnostics recorded so far, in
// insertion order.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// Reset clears all recorded diagnostics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = c.diags[:0]
}

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgCyan)
)

// Print writes every accumulated diagnostic to stderr, colorized by
// severity, the same way the toolchain driver's verbose mode and the
// object-file writer's compatibility pass report anomalies.
func (c *Collector) Print() {
	for _, d := range c.Diagnostics() {
		switch d.Severity {
		case SeverityError:
			_, _ = errColor.Fprintf(os.Stderr, "error: %s\n", d)
		case SeverityWarning:
			_, _ = warnColor.Fprintf(os.Stderr, "warning: %s\n", d)
		default:
			_, _ = infoColor.Fprintf(os.Stderr, "note: %s\n", d)
		}
	}
}
