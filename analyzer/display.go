package analyzer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hannajonsd/await-analysis/asynccall"
)

const toolName = "await-analysis"

// snippetWidth bounds the source excerpt printed under each console diagnostic
const snippetWidth = 100

// WriteReport writes result to w as console, json or sarif output
func WriteReport(w io.Writer, result *Result, format string, colors bool) error {
	switch format {
	case "json":
		return writeJSON(w, result)
	case "sarif":
		return writeSARIF(w, result)
	case "console", "":
		return writeConsole(w, result, colors)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

type palette struct {
	file    func(a ...interface{}) string
	loc     func(a ...interface{}) string
	reason  func(a ...interface{}) string
	rule    func(a ...interface{}) string
	ok      func(a ...interface{}) string
	warning func(a ...interface{}) string
}

func newPalette(colors bool) palette {
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		c := color.New(attrs...)
		if colors {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return palette{
		file:    mk(color.FgCyan, color.Bold),
		loc:     mk(color.FgWhite),
		reason:  mk(color.FgRed),
		rule:    mk(color.FgHiBlack),
		ok:      mk(color.FgGreen),
		warning: mk(color.FgYellow),
	}
}

// writeConsole groups diagnostics by file and ends with a summary line
func writeConsole(w io.Writer, result *Result, colors bool) error {
	p := newPalette(colors)
	var out strings.Builder

	filesWithDiags := 0
	for _, fr := range result.Files {
		if fr.Err != nil {
			out.WriteString(p.warning(fmt.Sprintf("%s: %v", fr.FilePath, fr.Err)))
			out.WriteString("\n")
			continue
		}
		if len(fr.Diagnostics) == 0 {
			continue
		}
		filesWithDiags++

		out.WriteString(p.file(fr.FilePath))
		out.WriteString("\n")
		for _, d := range fr.Diagnostics {
			reason, snippet, _ := strings.Cut(d.Message, ":  ")
			fmt.Fprintf(&out, "  %s  %s  %s\n",
				p.loc(fmt.Sprintf("%d:%d", d.Line, d.Column)),
				p.reason(reason),
				p.rule(d.Rule))
			if snippet != "" {
				fmt.Fprintf(&out, "      %s\n", truncate(snippet, snippetWidth))
			}
		}
		out.WriteString("\n")
	}

	// counts are grouped by thousands
	printer := message.NewPrinter(language.English)
	analyzed := len(result.Files) - result.Failed
	if result.Flagged == 0 {
		out.WriteString(p.ok(printer.Sprintf("No unawaited calls found in %d files (%d calls checked)", analyzed, result.CallsChecked)))
	} else {
		out.WriteString(p.reason(printer.Sprintf("Found %d flagged calls in %d files (%d calls checked)", result.Flagged, filesWithDiags, result.CallsChecked)))
	}
	if result.Suppressed > 0 {
		out.WriteString(printer.Sprintf(", %d suppressed", result.Suppressed))
	}
	if result.Failed > 0 {
		out.WriteString(p.warning(printer.Sprintf(", %d files could not be analyzed", result.Failed)))
	}
	out.WriteString("\n")

	_, err := io.WriteString(w, out.String())
	return err
}

func truncate(value string, width int) string {
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

type jsonReport struct {
	Tool         string       `json:"tool"`
	Files        int          `json:"files"`
	Failed       int          `json:"failed"`
	CallsChecked int          `json:"callsChecked"`
	Flagged      int          `json:"flagged"`
	Suppressed   int          `json:"suppressed"`
	Diagnostics  []Diagnostic `json:"diagnostics"`
}

func writeJSON(w io.Writer, result *Result) error {
	diags := result.Diagnostics()
	if diags == nil {
		diags = []Diagnostic{}
	}
	report := jsonReport{
		Tool:         toolName,
		Files:        len(result.Files),
		Failed:       result.Failed,
		CallsChecked: result.CallsChecked,
		Flagged:      result.Flagged,
		Suppressed:   result.Suppressed,
		Diagnostics:  diags,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

type sarif struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID string `json:"id"`
}

type sarifResult struct {
	RuleID    string       `json:"ruleId"`
	Level     string       `json:"level"`
	Message   sarifMessage `json:"message"`
	Locations []sarifLoc   `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLoc struct {
	Physical sarifPhys `json:"physicalLocation"`
}

type sarifPhys struct {
	ArtifactLocation sarifArt    `json:"artifactLocation"`
	Region           sarifRegion `json:"region"`
}

type sarifArt struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

func writeSARIF(w io.Writer, result *Result) error {
	var rules []sarifRule
	for _, name := range asynccall.RuleNames() {
		rules = append(rules, sarifRule{ID: name})
	}

	results := []sarifResult{}
	for _, d := range result.Diagnostics() {
		results = append(results, sarifResult{
			RuleID:  d.Rule,
			Level:   "warning",
			Message: sarifMessage{Text: d.Message},
			Locations: []sarifLoc{{Physical: sarifPhys{
				ArtifactLocation: sarifArt{URI: strings.ReplaceAll(d.FilePath, "\\", "/")},
				Region: sarifRegion{
					StartLine:   d.Line,
					StartColumn: d.Column,
					EndLine:     d.EndLine,
					EndColumn:   d.EndColumn,
				},
			}}},
		})
	}

	s := sarif{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool:    sarifTool{Driver: sarifDriver{Name: toolName, Rules: rules}},
			Results: results,
		}},
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode SARIF report: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
