package objfile

import "testing"

func withRuntimeInitSymbol(obj *Object) *Object {
	obj.Symbols = append(obj.Symbols, Symbol{
		Name: requiredRuntimeInitSymbol, Binding: BindGlobal, Type: TypeFunc,
		SectionIndex: uint16(obj.sectionIdx[".text"]), Value: 0x10,
	})
	return obj
}

func TestValidateStructuralMissingSectionFails(t *testing.T) {
	obj := &Object{Format: FormatELF}
	res := Validate(obj)
	if res.Err == nil {
		t.Error("expected a structural error for an object with no sections")
	}
}

func TestValidateMissingRuntimeInitSymbolIsFatal(t *testing.T) {
	obj := NewStandardELF(ArchX86_64)
	res := Validate(obj)
	if res.Err == nil {
		t.Error("expected a fatal error when asthra_runtime_init_with_args is missing")
	}
}

func TestValidateSucceedsWithRuntimeInitSymbol(t *testing.T) {
	obj := withRuntimeInitSymbol(NewStandardELF(ArchX86_64))
	res := Validate(obj)
	if res.Err != nil {
		t.Fatalf("Validate failed: %v", res.Err)
	}
}

func TestValidateWarnsOnNonCIdentifierSymbol(t *testing.T) {
	obj := withRuntimeInitSymbol(NewStandardELF(ArchX86_64))
	obj.Symbols = append(obj.Symbols, Symbol{Name: "1bad-name", Type: TypeObject, SectionIndex: uint16(obj.sectionIdx[".data"])})
	res := Validate(obj)
	if res.Err != nil {
		t.Fatalf("non-C-identifier names must only warn, not fail: %v", res.Err)
	}
	found := false
	for _, w := range res.Warnings {
		if w == `symbol "1bad-name" is not a valid C identifier` {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a non-C-identifier warning", res.Warnings)
	}
}

func TestValidateWarnsWhenNoDebugSections(t *testing.T) {
	obj := withRuntimeInitSymbol(NewStandardELF(ArchX86_64))
	res := Validate(obj)
	found := false
	for _, w := range res.Warnings {
		if w == "no debug sections present" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a missing-debug-sections warning", res.Warnings)
	}
}

func TestValidateRejectsNonPowerOfTwoAlignment(t *testing.T) {
	obj := withRuntimeInitSymbol(NewStandardELF(ArchX86_64))
	obj.SectionByName(".text").Align = 3
	res := Validate(obj)
	if res.Err == nil {
		t.Error("expected a structural error for a non-power-of-two alignment")
	}
}
