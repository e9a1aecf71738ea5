package analyzer

import (
	"encoding/json"
	"strings"

	"github.com/ironsheep/pii-redactor/internal/geometry"
	"github.com/ironsheep/pii-redactor/internal/imaging"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/tabular"
)

// FileType is the workflow a file is routed to.
type FileType string

const (
	FileDocument FileType = "document"
	FilePDF      FileType = "pdf"
	FileImage    FileType = "image"
	FileCSV      FileType = "csv"
)

// EntityFilter is the entity restriction echoed back in results. It encodes
// as the string "all" when empty and as a list otherwise.
type EntityFilter []string

func (f EntityFilter) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return json.Marshal("all")
	}
	return json.Marshal([]string(f))
}

func (f *EntityFilter) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*f = list
	return nil
}

func (f EntityFilter) String() string {
	if len(f) == 0 {
		return "all"
	}
	return strings.Join(f, ",")
}

// TableAnalysis is the per-column part of a CSV result.
type TableAnalysis struct {
	TotalColumns int                      `json:"total_columns"`
	TotalRows    int                      `json:"total_rows"`
	AnalyzedRows int                      `json:"analyzed_rows"`
	IsSampled    bool                     `json:"is_sampled"`
	Seed         uint64                   `json:"seed"`
	Columns      []tabular.ColumnAnalysis `json:"column_results"`
}

// TableSummary totals a TableAnalysis.
type TableSummary struct {
	ColumnsWithPII    int      `json:"columns_with_pii"`
	ColumnNames       []string `json:"columns_with_pii_names,omitempty"`
	TotalPIIInstances int      `json:"total_pii_instances"`
}

// FileResult is the outcome of one file workflow. Fields that do not apply
// to the file's type are left empty.
type FileResult struct {
	FilePath       string       `json:"file_path"`
	FileType       FileType     `json:"file_type"`
	EntitiesFilter EntityFilter `json:"entities_filter"`
	Threshold      float64      `json:"threshold"`

	// Documents.
	OriginalText string `json:"original_text,omitempty"`

	// Images.
	ImageInfo     *imaging.Info     `json:"image_info,omitempty"`
	ExtractedText string            `json:"extracted_text,omitempty"`
	Regions       []geometry.Region `json:"masked_regions,omitempty"`
	Unmatched     []geometry.Target `json:"unmatched_values,omitempty"`

	AnonymizedText string `json:"anonymized_text,omitempty"`

	PIIFound bool            `json:"pii_found"`
	PIICount int             `json:"pii_count"`
	Findings pii.ResolvedSet `json:"pii_findings"`

	// Tables.
	Analysis          *TableAnalysis      `json:"analysis,omitempty"`
	Summary           *TableSummary       `json:"summary,omitempty"`
	AnonymizedPreview []map[string]string `json:"anonymized_preview,omitempty"`

	// MaskedFiles lists the files written when anonymizing. Rendered
	// documents may span several pages.
	MaskedFiles []string `json:"masked_files,omitempty"`

	Warnings []pii.Warning `json:"warnings,omitempty"`
}

// MaskedFile is the first masked file, or "".
func (r *FileResult) MaskedFile() string {
	if len(r.MaskedFiles) == 0 {
		return ""
	}
	return r.MaskedFiles[0]
}

func (r *FileResult) setFindings(spans pii.ResolvedSet) {
	if spans == nil {
		spans = pii.ResolvedSet{}
	}
	r.Findings = spans
	r.PIICount = len(spans)
	r.PIIFound = len(spans) > 0
}
