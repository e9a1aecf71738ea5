// Package report renders analysis results for people and for machines.
//
// JSON output collapses long text fields to "<N characters>" so a report
// stays readable; the console summary lists findings grouped by entity type
// (documents and images) or per column (tables).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ironsheep/pii-redactor/internal/analyzer"
	"github.com/ironsheep/pii-redactor/internal/pii"
)

// MaxInlineText is the longest text kept verbatim in JSON output.
const MaxInlineText = 500

// PerTypeLimit is the number of findings listed per entity type in a summary.
const PerTypeLimit = 5

// Collapse returns text unchanged when it is at most MaxInlineText characters
// and "<N characters>" otherwise.
func Collapse(text string) string {
	if n := utf8.RuneCountInString(text); n > MaxInlineText {
		return fmt.Sprintf("<%d characters>", n)
	}
	return text
}

// Compact returns a copy of res with its long text fields collapsed.
func Compact(res *analyzer.FileResult) *analyzer.FileResult {
	out := *res
	out.OriginalText = Collapse(res.OriginalText)
	out.ExtractedText = Collapse(res.ExtractedText)
	out.AnonymizedText = Collapse(res.AnonymizedText)
	return &out
}

// WriteJSON writes the compacted result as indented JSON. Placeholders such
// as <PERSON> are written verbatim, not HTML-escaped.
func WriteJSON(w io.Writer, res *analyzer.FileResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Compact(res)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// SaveJSON writes the compacted result to path.
func SaveJSON(path string, res *analyzer.FileResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteJSON(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

const rule = "----------------------------------------------------------------------"

// WriteSummary prints a human-readable summary of res.
func WriteSummary(w io.Writer, res *analyzer.FileResult) {
	p := &printer{w: w}
	p.line("Analysis Results:")
	p.line(rule)
	p.line("File: %s", res.FilePath)

	if res.FileType == analyzer.FileCSV && res.Analysis != nil {
		writeTableSummary(p, res)
	} else {
		writeFindings(p, res)
	}

	for _, f := range res.MaskedFiles {
		p.line("Masked file: %s", f)
	}
	if len(res.Warnings) > 0 {
		p.line("")
		p.line("Warnings:")
		for _, warn := range res.Warnings {
			p.line("  - %s", warn)
		}
	}
	p.line(rule)
}

func writeFindings(p *printer, res *analyzer.FileResult) {
	p.line("PII Found: %t", res.PIIFound)
	p.line("Total PII Instances: %d", res.PIICount)
	if len(res.Findings) == 0 {
		return
	}

	p.line("")
	p.line("PII Details:")
	for _, group := range GroupByType(res.Findings) {
		p.line("")
		p.line("  %s:", group.EntityType)
		for _, s := range group.Spans[:min(len(group.Spans), PerTypeLimit)] {
			p.line("    - %s (confidence: %.2f)", s.Text, s.Score)
		}
		if extra := len(group.Spans) - PerTypeLimit; extra > 0 {
			p.line("    ... and %d more", extra)
		}
	}
	if len(res.Unmatched) > 0 {
		p.line("")
		p.line("Not located in the image: %d value(s)", len(res.Unmatched))
	}
}

func writeTableSummary(p *printer, res *analyzer.FileResult) {
	a := res.Analysis
	p.line("Total Rows: %d", a.TotalRows)
	p.line("Total Columns: %d", a.TotalColumns)
	if a.IsSampled {
		p.line("Analyzed Rows: %d (sampled, seed %d)", a.AnalyzedRows, a.Seed)
	} else {
		p.line("Analyzed Rows: %d", a.AnalyzedRows)
	}
	if res.Summary != nil {
		p.line("")
		p.line("PII Summary:")
		p.line("  Columns with PII: %d", res.Summary.ColumnsWithPII)
		p.line("  Total PII instances: %d", res.Summary.TotalPIIInstances)
	}

	for _, col := range a.Columns {
		if !col.HasPII {
			continue
		}
		p.line("")
		p.line("Column: %s", col.Column)
		p.line("  PII Count: %d row(s)", col.PIICount)
		p.line("  PII Types Detected: %s", strings.Join(sortedKeys(col.PIITypes), ", "))
		if len(col.Findings) == 0 {
			continue
		}
		p.line("  Detailed Findings:")
		for _, f := range col.Findings {
			p.line("")
			p.line("    Row %d: %s", f.RowIndex, f.Value)
			for _, s := range f.Spans {
				p.line("      -> %s: %q (confidence: %.2f)", s.EntityType, s.Text, s.Score)
			}
		}
		if col.FindingsTruncated {
			p.line("    ... more findings omitted")
		}
	}
}

// TypeGroup is the findings of one entity type, in text order.
type TypeGroup struct {
	EntityType string
	Spans      []pii.Span
}

// GroupByType groups spans by entity type in order of first appearance.
func GroupByType(spans pii.ResolvedSet) []TypeGroup {
	var groups []TypeGroup
	index := make(map[string]int)
	for _, s := range spans {
		i, ok := index[s.EntityType]
		if !ok {
			i = len(groups)
			index[s.EntityType] = i
			groups = append(groups, TypeGroup{EntityType: s.EntityType})
		}
		groups[i].Spans = append(groups[i].Spans, s)
	}
	return groups
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type printer struct {
	w io.Writer
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
