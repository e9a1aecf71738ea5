package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/charmap"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSVFile reads a CSV file. See ReadCSV.
func ReadCSVFile(path string) (*Table, []pii.Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return decodeCSV(data, filepath.Base(path))
}

// ReadCSV parses a CSV stream whose first record is the header. Input that
// is not valid UTF-8 is decoded as Latin-1 and an encoding_fallback warning
// is returned. Short rows are padded with empty cells and long rows
// truncated to the header width. Repeated header names get ".1", ".2", ...
// suffixes.
func ReadCSV(r io.Reader) (*Table, []pii.Warning, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return decodeCSV(data, "")
}

func decodeCSV(data []byte, name string) (*Table, []pii.Warning, error) {
	var warnings []pii.Warning
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, nil, pii.NewInputError("csv", "not UTF-8 and not Latin-1: %v", err)
		}
		log.Warn().Str("file", name).Msg("csv is not valid UTF-8, decoded as Latin-1")
		warnings = append(warnings, pii.Warning{
			Kind:    pii.WarnEncodingFallback,
			Source:  name,
			Message: "input is not valid UTF-8; decoded as Latin-1",
		})
		data = decoded
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, pii.NewInputError("csv", "file is empty")
	}
	if err != nil {
		return nil, nil, pii.NewInputError("csv", "%v", err)
	}

	t := &Table{Header: uniqueNames(header)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, pii.NewInputError("csv", "%v", err)
		}
		row := make([]string, len(t.Header))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, warnings, nil
}

func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}
