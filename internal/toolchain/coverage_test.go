package toolchain

import (
	"testing"

	"asthra/internal/config"
)

func TestParseCoverageSummaryTotalRow(t *testing.T) {
	output := `Filename            Regions  Missed Regions  Cover   Functions  Missed Functions  Executed   Lines  Missed Lines  Cover
------------------------------------------------------------------------------------------------------------------------
foo.asthra               12               1  91.67%          4                 0   100.00%      40             2  95.00%
------------------------------------------------------------------------------------------------------------------------
TOTAL                     12               1  91.67%          4                 0   100.00%      40             2  95.00%
`
	summary, err := parseCoverageSummary(output)
	if err != nil {
		t.Fatalf("parseCoverageSummary failed: %v", err)
	}
	if summary.RegionsPercent != 91.67 {
		t.Errorf("RegionsPercent = %v, want 91.67", summary.RegionsPercent)
	}
	if summary.FunctionsPercent != 100.00 {
		t.Errorf("FunctionsPercent = %v, want 100.00", summary.FunctionsPercent)
	}
	if summary.LinesPercent != 95.00 {
		t.Errorf("LinesPercent = %v, want 95.00", summary.LinesPercent)
	}
}

func TestParseCoverageSummaryNoTotalRow(t *testing.T) {
	if _, err := parseCoverageSummary("nothing here"); err == nil {
		t.Error("expected an error when no TOTAL row is present")
	}
}

func TestIgnorePatternsFallsBackToDefault(t *testing.T) {
	d := NewDriver(config.Driver{})
	got := d.ignorePatterns()
	if len(got) != len(defaultIgnoreRegex) {
		t.Errorf("ignorePatterns() = %v, want the default set", got)
	}
}

func TestIgnorePatternsUsesConfigOverride(t *testing.T) {
	d := NewDriver(config.Driver{CoverageIgnoreRegex: []string{".*/vendor/.*"}})
	got := d.ignorePatterns()
	if len(got) != 1 || got[0] != ".*/vendor/.*" {
		t.Errorf("ignorePatterns() = %v, want config override", got)
	}
}
