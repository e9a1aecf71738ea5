package tabular

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

// DefaultMaxFindings bounds the findings kept per column.
const DefaultMaxFindings = 1000

// DetectFunc runs detection, resolution and filtering over one cell value.
type DetectFunc func(ctx context.Context, text string) (pii.ResolvedSet, []pii.Warning, error)

// Finding is one cell with PII.
type Finding struct {
	RowIndex int             `json:"row_index"`
	Value    string          `json:"value"`
	Spans    pii.ResolvedSet `json:"spans"`
}

// ColumnAnalysis summarizes one column. PIICount is the number of selected
// rows with at least one span; PIITypes counts spans per entity type.
type ColumnAnalysis struct {
	Column            string         `json:"column_name"`
	HasPII            bool           `json:"has_pii"`
	PIICount          int            `json:"pii_count"`
	PIITypes          map[string]int `json:"pii_types"`
	Findings          []Finding      `json:"findings"`
	FindingsTruncated bool           `json:"findings_truncated,omitempty"`
}

// ScanOptions tunes Scan. Zero values mean DefaultMaxFindings and one worker.
type ScanOptions struct {
	MaxFindings int
	Workers     int
}

// ScanResult holds one ColumnAnalysis per source column, in column order.
type ScanResult struct {
	Columns  []ColumnAnalysis `json:"columns"`
	Warnings []pii.Warning    `json:"warnings,omitempty"`
}

// ByColumn indexes the analyses by column name.
func (r *ScanResult) ByColumn() map[string]ColumnAnalysis {
	out := make(map[string]ColumnAnalysis, len(r.Columns))
	for _, c := range r.Columns {
		out[c.Column] = c
	}
	return out
}

// ColumnsWithPII lists the columns that have at least one finding.
func (r *ScanResult) ColumnsWithPII() []string {
	var out []string
	for _, c := range r.Columns {
		if c.HasPII {
			out = append(out, c.Column)
		}
	}
	return out
}

// TotalPIIInstances sums PIICount over all columns.
func (r *ScanResult) TotalPIIInstances() int {
	total := 0
	for _, c := range r.Columns {
		total += c.PIICount
	}
	return total
}

// Scan runs detect over every selected, non-blank cell. Columns are
// processed by up to opts.Workers goroutines. If any cell fails or ctx is
// cancelled, Scan returns the error and no result.
func Scan(ctx context.Context, src Source, sel Selection, detect DetectFunc, opts ScanOptions) (*ScanResult, error) {
	if opts.MaxFindings <= 0 {
		opts.MaxFindings = DefaultMaxFindings
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	for _, r := range sel.Indices {
		if r < 0 || r >= src.RowCount() {
			return nil, pii.NewInputError("selection", "row %d outside table of %d rows", r, src.RowCount())
		}
	}

	cols := src.Columns()
	analyses := make([]ColumnAnalysis, len(cols))
	warnings := make([][]pii.Warning, len(cols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for c := range cols {
		g.Go(func() error {
			a, w, err := scanColumn(gctx, src, c, sel, detect, opts.MaxFindings)
			if err != nil {
				return err
			}
			analyses[c], warnings[c] = a, w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &ScanResult{Columns: analyses, Warnings: pii.MergeWarnings(warnings...)}, nil
}

func scanColumn(ctx context.Context, src Source, col int, sel Selection, detect DetectFunc, maxFindings int) (ColumnAnalysis, []pii.Warning, error) {
	a := ColumnAnalysis{
		Column:   src.Columns()[col],
		PIITypes: map[string]int{},
		Findings: []Finding{},
	}
	var warnings []pii.Warning

	for _, row := range sel.Indices {
		if err := ctx.Err(); err != nil {
			return ColumnAnalysis{}, nil, err
		}
		value := src.Cell(row, col)
		if strings.TrimSpace(value) == "" {
			continue
		}

		spans, w, err := detect(ctx, value)
		if err != nil {
			return ColumnAnalysis{}, nil, err
		}
		warnings = append(warnings, w...)
		if len(spans) == 0 {
			continue
		}

		a.HasPII = true
		a.PIICount++
		for _, s := range spans {
			a.PIITypes[s.EntityType]++
		}
		if len(a.Findings) < maxFindings {
			a.Findings = append(a.Findings, Finding{RowIndex: row, Value: value, Spans: spans})
		} else {
			a.FindingsTruncated = true
		}
	}
	return a, warnings, nil
}
