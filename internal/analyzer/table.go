package analyzer

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/pii-redactor/internal/fileutil"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/tabular"
)

// PreviewRows is the number of anonymized rows included in a table result.
const PreviewRows = 10

// AnalyzeTable reads a CSV file, scans the sampled rows column by column and,
// with req.Anonymize, writes a copy with every cell of every row redacted.
func (e *Engine) AnalyzeTable(ctx context.Context, req FileRequest) (*FileResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	tbl, warnings, err := tabular.ReadCSVFile(req.Path)
	if err != nil {
		return nil, err
	}
	sel, err := tabular.Sample(tbl.RowCount(), req.SampleSize, req.Seed)
	if err != nil {
		return nil, err
	}

	detect := e.cellDetector(req.Options)
	scan, err := tabular.Scan(ctx, tbl, sel, detect, tabular.ScanOptions{
		MaxFindings: e.settings.MaxFindings,
		Workers:     e.settings.Workers,
	})
	if err != nil {
		return nil, err
	}

	res := newResult(req, FileCSV)
	res.Analysis = &TableAnalysis{
		TotalColumns: len(tbl.Columns()),
		TotalRows:    tbl.RowCount(),
		AnalyzedRows: sel.Len(),
		IsSampled:    sel.Sampled,
		Seed:         req.Seed,
		Columns:      scan.Columns,
	}
	withPII := scan.ColumnsWithPII()
	res.Summary = &TableSummary{
		ColumnsWithPII:    len(withPII),
		ColumnNames:       withPII,
		TotalPIIInstances: scan.TotalPIIInstances(),
	}
	res.PIICount = res.Summary.TotalPIIInstances
	res.PIIFound = res.PIICount > 0
	res.Warnings = pii.MergeWarnings(warnings, scan.Warnings)

	if !req.Anonymize {
		return res, nil
	}

	masked, maskWarnings, err := tabular.Anonymize(ctx, tbl, detect, e.settings.Workers)
	if err != nil {
		return nil, err
	}
	res.Warnings = pii.MergeWarnings(res.Warnings, maskWarnings)

	out := req.output(FileCSV)
	if err := writeTable(out, masked); err != nil {
		return nil, err
	}
	res.MaskedFiles = []string{out}
	res.AnonymizedPreview = tabular.Records(tabular.Head(masked, PreviewRows))
	log.Info().Str("file", req.Path).Str("masked", out).Int("rows", masked.RowCount()).Msg("table masked")
	return res, nil
}

func writeTable(path string, t *tabular.Table) error {
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		return tabular.WriteCSV(w, t)
	})
	if err != nil {
		return fmt.Errorf("write masked csv: %w", err)
	}
	return nil
}
