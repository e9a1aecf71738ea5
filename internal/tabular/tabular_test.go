package tabular

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

var emailRe = regexp.MustCompile(`[a-z]+@[a-z]+\.com`)

// emailDetect finds lower-case emails and also flags the literal word "Bob" as
// a PERSON, so a cell can carry two types.
func emailDetect(_ context.Context, text string) (pii.ResolvedSet, []pii.Warning, error) {
	var spans []pii.Span
	for _, loc := range emailRe.FindAllStringIndex(text, -1) {
		s, err := pii.NewSpan(text, loc[0], loc[1], "EMAIL_ADDRESS", 1.0, "test")
		if err != nil {
			return nil, nil, err
		}
		spans = append(spans, s)
	}
	if i := strings.Index(text, "Bob"); i >= 0 {
		s, err := pii.NewSpan(text, i, i+3, "PERSON", 0.85, "test")
		if err != nil {
			return nil, nil, err
		}
		spans = append(spans, s)
	}
	return pii.Resolve(spans), nil, nil
}

func peopleTable() *Table {
	return &Table{
		Header: []string{"name", "contact", "notes"},
		Rows: [][]string{
			{"Bob", "bob@example.com", ""},
			{"Alice", "", "nothing here"},
			{"Bob", "bob@mail.com and al@mail.com", "  "},
		},
	}
}

func TestSample_Identity(t *testing.T) {
	for _, size := range []int{0, 3, 10} {
		sel, err := Sample(3, size, DefaultSeed)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, sel.Indices, "size %d", size)
		assert.False(t, sel.Sampled, "size %d", size)
	}
}

func TestSample_Reproducible(t *testing.T) {
	a, err := Sample(3, 2, 42)
	require.NoError(t, err)
	b, err := Sample(3, 2, 42)
	require.NoError(t, err)

	assert.True(t, a.Sampled)
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, a, b)
	assert.Less(t, a.Indices[0], a.Indices[1])
	for _, i := range a.Indices {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 3)
	}
}

func TestSample_SeedChangesSelection(t *testing.T) {
	a, err := Sample(10000, 50, 1)
	require.NoError(t, err)
	b, err := Sample(10000, 50, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a.Indices, b.Indices)
}

func TestSample_Invalid(t *testing.T) {
	_, err := Sample(3, -1, 42)
	assert.True(t, pii.IsInputError(err))
	_, err = Sample(-1, 2, 42)
	assert.True(t, pii.IsInputError(err))
}

func TestParseSampleSize(t *testing.T) {
	n, err := ParseSampleSize("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = ParseSampleSize(" 25 ")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	_, err = ParseSampleSize("ten")
	assert.True(t, pii.IsInputError(err))
	_, err = ParseSampleSize("-4")
	assert.True(t, pii.IsInputError(err))
}

func TestReadCSV(t *testing.T) {
	in := "\xEF\xBB\xBFname,email,name,\nBob,bob@example.com\nAl,al@x.com,Al2,extra,more\n"
	tbl, warnings, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []string{"name", "email", "name.1", "Unnamed: 3"}, tbl.Columns())
	require.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, []string{"Bob", "bob@example.com", "", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"Al", "al@x.com", "Al2", "extra"}, tbl.Rows[1])
	assert.Equal(t, "", tbl.Cell(5, 0))
}

func TestReadCSV_Latin1Fallback(t *testing.T) {
	in := []byte("name,city\nJos\xE9,M\xFCnchen\n")
	tbl, warnings, err := ReadCSV(bytes.NewReader(in))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, pii.WarnEncodingFallback, warnings[0].Kind)
	assert.Equal(t, "José", tbl.Cell(0, 0))
	assert.Equal(t, "München", tbl.Cell(0, 1))
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.True(t, pii.IsInputError(err))
}

func TestWriteCSVAndHead(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Head(peopleTable(), 1)))
	assert.Equal(t, "name,contact,notes\nBob,bob@example.com,\n", buf.String())

	recs := Records(Head(peopleTable(), 2))
	require.Len(t, recs, 2)
	assert.Equal(t, "Alice", recs[1]["name"])
}

func TestScan(t *testing.T) {
	tbl := peopleTable()
	sel, err := Sample(tbl.RowCount(), 0, DefaultSeed)
	require.NoError(t, err)

	res, err := Scan(context.Background(), tbl, sel, emailDetect, ScanOptions{Workers: 2})
	require.NoError(t, err)
	require.Len(t, res.Columns, 3)

	cols := res.ByColumn()
	name := cols["name"]
	assert.True(t, name.HasPII)
	assert.Equal(t, 2, name.PIICount)
	assert.Equal(t, map[string]int{"PERSON": 2}, name.PIITypes)
	require.Len(t, name.Findings, 2)
	assert.Equal(t, 0, name.Findings[0].RowIndex)
	assert.Equal(t, 2, name.Findings[1].RowIndex)

	contact := cols["contact"]
	assert.Equal(t, 2, contact.PIICount)
	assert.Equal(t, map[string]int{"EMAIL_ADDRESS": 3}, contact.PIITypes)

	notes := cols["notes"]
	assert.False(t, notes.HasPII)
	assert.Empty(t, notes.Findings)

	assert.Equal(t, []string{"name", "contact"}, res.ColumnsWithPII())
	assert.Equal(t, 4, res.TotalPIIInstances())
}

func TestScan_SkipsBlankCells(t *testing.T) {
	var calls atomic.Int32
	counting := func(ctx context.Context, text string) (pii.ResolvedSet, []pii.Warning, error) {
		calls.Add(1)
		return emailDetect(ctx, text)
	}
	tbl := peopleTable()
	sel, _ := Sample(tbl.RowCount(), 0, DefaultSeed)
	_, err := Scan(context.Background(), tbl, sel, counting, ScanOptions{})
	require.NoError(t, err)
	// 9 cells, 3 of them blank.
	assert.Equal(t, int32(6), calls.Load())
}

func TestScan_BoundedFindings(t *testing.T) {
	tbl := &Table{Header: []string{"email"}}
	for i := 0; i < 5; i++ {
		tbl.Rows = append(tbl.Rows, []string{"x@y.com"})
	}
	sel, _ := Sample(tbl.RowCount(), 0, DefaultSeed)
	res, err := Scan(context.Background(), tbl, sel, emailDetect, ScanOptions{MaxFindings: 2})
	require.NoError(t, err)

	col := res.Columns[0]
	assert.Equal(t, 5, col.PIICount)
	assert.Len(t, col.Findings, 2)
	assert.True(t, col.FindingsTruncated)
}

func TestScan_FailurePublishesNothing(t *testing.T) {
	boom := errors.New("boom")
	failing := func(ctx context.Context, text string) (pii.ResolvedSet, []pii.Warning, error) {
		if text == "Alice" {
			return nil, nil, boom
		}
		return emailDetect(ctx, text)
	}
	tbl := peopleTable()
	sel, _ := Sample(tbl.RowCount(), 0, DefaultSeed)
	res, err := Scan(context.Background(), tbl, sel, failing, ScanOptions{Workers: 3})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tbl := peopleTable()
	sel, _ := Sample(tbl.RowCount(), 0, DefaultSeed)
	res, err := Scan(ctx, tbl, sel, emailDetect, ScanOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestScan_SelectionOutOfRange(t *testing.T) {
	_, err := Scan(context.Background(), peopleTable(), Selection{Indices: []int{7}}, emailDetect, ScanOptions{})
	assert.True(t, pii.IsInputError(err))
}

func TestScan_DeduplicatesWarnings(t *testing.T) {
	warn := pii.Warning{Kind: pii.WarnRecognizerFailure, Source: "ner", Message: "down"}
	warning := func(ctx context.Context, text string) (pii.ResolvedSet, []pii.Warning, error) {
		spans, _, err := emailDetect(ctx, text)
		return spans, []pii.Warning{warn}, err
	}
	tbl := peopleTable()
	sel, _ := Sample(tbl.RowCount(), 0, DefaultSeed)
	res, err := Scan(context.Background(), tbl, sel, warning, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []pii.Warning{warn}, res.Warnings)
}

func TestAnonymize(t *testing.T) {
	src := peopleTable()
	before := Head(src, src.RowCount())

	out, _, err := Anonymize(context.Background(), src, emailDetect, 2)
	require.NoError(t, err)

	assert.Equal(t, before, Head(src, src.RowCount()), "source must not change")
	assert.Equal(t, src.Columns(), out.Columns())
	assert.Equal(t, []string{"<PERSON>", "<EMAIL_ADDRESS>", ""}, out.Rows[0])
	assert.Equal(t, []string{"Alice", "", "nothing here"}, out.Rows[1])
	assert.Equal(t, "<EMAIL_ADDRESS> and <EMAIL_ADDRESS>", out.Rows[2][1])
	assert.Equal(t, "  ", out.Rows[2][2])
}

func TestAnonymize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, _, err := Anonymize(ctx, peopleTable(), emailDetect, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out)
}
