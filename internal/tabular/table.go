// Package tabular scans tables column by column for PII.
//
// A table is read from CSV (UTF-8, falling back to Latin-1), optionally
// sampled down to a reproducible subset of rows, and scanned cell by cell
// with a caller-supplied detection function. Scan results are published only
// when every selected cell has been processed. Anonymization produces a new
// table and never touches the source.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Source is a read-only table. Cell returns "" for missing values.
type Source interface {
	Columns() []string
	RowCount() int
	Cell(row, col int) string
}

// Table is an in-memory Source. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t *Table) Columns() []string { return t.Header }

func (t *Table) RowCount() int { return len(t.Rows) }

func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Head returns a table holding the first n rows of src.
func Head(src Source, n int) *Table {
	n = max(0, min(n, src.RowCount()))
	out := &Table{Header: append([]string(nil), src.Columns()...), Rows: make([][]string, n)}
	for r := 0; r < n; r++ {
		out.Rows[r] = make([]string, len(out.Header))
		for c := range out.Header {
			out.Rows[r][c] = src.Cell(r, c)
		}
	}
	return out
}

// Records returns the rows of src as column-name keyed maps.
func Records(src Source) []map[string]string {
	cols := src.Columns()
	out := make([]map[string]string, src.RowCount())
	for r := range out {
		rec := make(map[string]string, len(cols))
		for c, name := range cols {
			rec[name] = src.Cell(r, c)
		}
		out[r] = rec
	}
	return out
}

// WriteCSV writes src with its header row.
func WriteCSV(w io.Writer, src Source) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(src.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(src.Columns()))
	for r := 0; r < src.RowCount(); r++ {
		for c := range row {
			row[c] = src.Cell(r, c)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
