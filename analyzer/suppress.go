package analyzer

import (
	"strings"

	"github.com/hannajonsd/await-analysis/parser"
)

// IgnoreDirective suppresses a diagnostic on the same line or the line below.
//
//	// await-analysis:ignore
//	startPolling();
//
//	startPolling(); // await-analysis:ignore
const IgnoreDirective = "await-analysis:ignore"

// ignoreLines maps each line carrying an ignore directive to true
type ignoreLines map[int]bool

func buildIgnoreLines(comments []parser.Comment) ignoreLines {
	lines := make(ignoreLines)
	for _, c := range comments {
		if strings.Contains(c.Text, IgnoreDirective) {
			lines[c.Line] = true
		}
	}
	return lines
}

func (il ignoreLines) covers(line int) bool {
	return il[line] || il[line-1]
}

// filterSuppressed drops diagnostics covered by an ignore directive and
// returns the kept ones with the number dropped
func filterSuppressed(diags []Diagnostic, il ignoreLines) ([]Diagnostic, int) {
	if len(il) == 0 {
		return diags, 0
	}

	kept := diags[:0]
	suppressed := 0
	for _, d := range diags {
		if il.covers(d.Line) {
			suppressed++
			continue
		}
		kept = append(kept, d)
	}
	return kept, suppressed
}
