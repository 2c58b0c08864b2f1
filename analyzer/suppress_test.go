package analyzer

import (
	"testing"

	"github.com/hannajonsd/await-analysis/parser"
)

func TestFilterSuppressed(t *testing.T) {
	comments := []parser.Comment{
		{Line: 3, Text: "// await-analysis:ignore"},
		{Line: 7, Text: "/* await-analysis:ignore because the result is polled */"},
		{Line: 10, Text: "// unrelated"},
	}
	diags := []Diagnostic{{Line: 1}, {Line: 3}, {Line: 4}, {Line: 5}, {Line: 8}, {Line: 11}}

	kept, suppressed := filterSuppressed(diags, buildIgnoreLines(comments))

	if suppressed != 3 {
		t.Errorf("expected 3 suppressed, got %d", suppressed)
	}
	want := []int{1, 5, 11}
	got := diagnosticLines(kept)
	if len(got) != len(want) {
		t.Fatalf("expected lines %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected lines %v, got %v", want, got)
			break
		}
	}
}

func TestFilterSuppressed_NoDirectives(t *testing.T) {
	diags := []Diagnostic{{Line: 1}, {Line: 2}}
	kept, suppressed := filterSuppressed(diags, buildIgnoreLines(nil))
	if suppressed != 0 || len(kept) != 2 {
		t.Errorf("expected diagnostics untouched, got %v (%d suppressed)", kept, suppressed)
	}
}
