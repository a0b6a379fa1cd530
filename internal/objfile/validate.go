package objfile

import (
	"fmt"
	"regexp"
)

// ValidationResult is the outcome of Validate: Warnings never fail the
// write; a non-nil Err does (spec.md §4.7: "structural errors fail the
// write; compatibility anomalies are warnings only, except missing
// required runtime entry which is fatal").
type ValidationResult struct {
	Warnings []string
	Err      error
}

var requiredELFSections = []string{".text", ".symtab", ".strtab", ".shstrtab"}

// requiredRuntimeInitSymbol is the symbol the object-file validator
// treats as load-bearing: its absence is the sole compatibility-pass
// finding promoted to a fatal error (spec.md §4.7).
const requiredRuntimeInitSymbol = "asthra_runtime_init_with_args"

var cIdentifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate runs the structural pass, the C-compatibility pass, and the
// debug-symbol pass over obj, in that order. The structural pass failing
// returns immediately with Err set; the other two only ever append
// warnings, except for the missing-runtime-init-symbol check.
func Validate(obj *Object) ValidationResult {
	if err := validateStructural(obj); err != nil {
		return ValidationResult{Err: err}
	}

	var warnings []string
	warnings = append(warnings, compatibilityWarnings(obj)...)

	if err := checkRuntimeInitSymbol(obj); err != nil {
		return ValidationResult{Warnings: warnings, Err: err}
	}

	warnings = append(warnings, debugSymbolWarnings(obj)...)

	return ValidationResult{Warnings: warnings}
}

// validateStructural checks the object has the mandatory sections, that
// every symbol's section index (when non-zero) is in range, and - for
// ELF specifically - that declared alignments are honored by every
// section's file offset conventions (enforced structurally here by
// requiring Align to be a power of two, since actual file offsets are
// only known at write time).
func validateStructural(obj *Object) error {
	if obj.Format == FormatELF {
		present := make(map[string]bool, len(obj.Sections))
		for _, s := range obj.Sections {
			present[s.Name] = true
		}
		for _, want := range requiredELFSections {
			if !present[want] {
				return fmt.Errorf("objfile: missing required section %q", want)
			}
		}
	}

	for _, s := range obj.Sections {
		if s.Align != 0 && s.Align&(s.Align-1) != 0 {
			return fmt.Errorf("objfile: section %q has non-power-of-two alignment %d", s.Name, s.Align)
		}
	}

	for _, sym := range obj.Symbols {
		if int(sym.SectionIndex) >= len(obj.Sections) {
			return fmt.Errorf("objfile: symbol %q references out-of-range section index %d", sym.Name, sym.SectionIndex)
		}
	}

	for _, magic := range []struct {
		logical string
		magic   [4]byte
	}{
		{"ffi", MagicFFI}, {"gc", MagicGC}, {"security_meta", MagicSecurityMeta},
		{"pattern_matching", MagicPatternMatching}, {"string_ops", MagicStringOps},
		{"slice_meta", MagicSliceMeta}, {"concurrency", MagicConcurrency},
	} {
		sec := obj.SectionByName(metadataSectionName(magic.logical))
		if sec == nil {
			continue // metadata sections are optional per object
		}
		if len(sec.Data) < 4 || [4]byte{sec.Data[0], sec.Data[1], sec.Data[2], sec.Data[3]} != magic.magic {
			return fmt.Errorf("objfile: metadata section %q has an invalid magic", sec.Name)
		}
	}

	return nil
}

// compatibilityWarnings implements the C-compatibility pass: non-C
// identifiers and the absence of any System-V-ABI (BindGlobal TypeFunc)
// function are both warnings, not errors.
func compatibilityWarnings(obj *Object) []string {
	var warnings []string
	hasSysVFunc := false
	for _, sym := range obj.Symbols {
		if sym.Name != "" && !cIdentifierRe.MatchString(sym.Name) {
			warnings = append(warnings, fmt.Sprintf("symbol %q is not a valid C identifier", sym.Name))
		}
		if sym.Type == TypeFunc && sym.Binding == BindGlobal {
			hasSysVFunc = true
		}
	}
	if !hasSysVFunc {
		warnings = append(warnings, "no System V ABI (global function) symbols present")
	}
	for _, sym := range obj.Symbols {
		if sym.Type == TypeFunc && sym.Value == 0 && sym.SectionIndex != 0 {
			warnings = append(warnings, fmt.Sprintf("function symbol %q has a zero address despite being defined", sym.Name))
		}
	}
	return warnings
}

func checkRuntimeInitSymbol(obj *Object) error {
	for _, sym := range obj.Symbols {
		if sym.Name == requiredRuntimeInitSymbol {
			return nil
		}
	}
	return fmt.Errorf("objfile: required runtime entry symbol %q is missing", requiredRuntimeInitSymbol)
}

// debugSymbolWarnings warns when no debug-info sections (conventionally
// prefixed ".debug_") are present.
func debugSymbolWarnings(obj *Object) []string {
	for _, s := range obj.Sections {
		if len(s.Name) > 7 && s.Name[:7] == ".debug_" {
			return nil
		}
	}
	return []string{"no debug sections present"}
}
