package tabular

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/redact"
)

// Anonymize returns a copy of src with every cell's spans replaced by
// placeholders. All rows are processed, not only a sample. The copy is
// returned only when every cell succeeded.
func Anonymize(ctx context.Context, src Source, detect DetectFunc, workers int) (*Table, []pii.Warning, error) {
	if workers <= 0 {
		workers = 1
	}
	cols := src.Columns()
	rows := src.RowCount()

	out := &Table{Header: append([]string(nil), cols...), Rows: make([][]string, rows)}
	for r := range out.Rows {
		out.Rows[r] = make([]string, len(cols))
	}
	warnings := make([][]pii.Warning, len(cols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range cols {
		g.Go(func() error {
			for r := 0; r < rows; r++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				value := src.Cell(r, c)
				if strings.TrimSpace(value) == "" {
					out.Rows[r][c] = value
					continue
				}
				spans, w, err := detect(gctx, value)
				if err != nil {
					return err
				}
				warnings[c] = append(warnings[c], w...)
				masked, err := redact.Text(value, spans)
				if err != nil {
					return err
				}
				out.Rows[r][c] = masked
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return out, pii.MergeWarnings(warnings...), nil
}
