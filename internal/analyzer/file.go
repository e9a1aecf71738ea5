package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ironsheep/pii-redactor/internal/document"
	"github.com/ironsheep/pii-redactor/internal/imaging"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/tabular"
)

// FileRequest describes one file workflow run.
type FileRequest struct {
	Options

	// Path is the input file.
	Path string
	// Anonymize writes a masked copy of the file.
	Anonymize bool
	// Output overrides the masked file path. Empty means "<base>_masked<ext>"
	// next to Path (see MaskedPath).
	Output string
	// SampleSize limits the rows scanned in a table. 0 scans every row.
	SampleSize int
	// Seed drives table sampling.
	Seed uint64
}

// NewFileRequest returns a request for path with default options.
func NewFileRequest(path string) FileRequest {
	return FileRequest{Options: DefaultOptions(), Path: path, Seed: tabular.DefaultSeed}
}

// DetectFileType routes path by extension. Unsupported files are an
// InputError.
func DetectFileType(path string) (FileType, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return FilePDF, nil
	case ext == ".csv":
		return FileCSV, nil
	case imaging.IsImagePath(path):
		return FileImage, nil
	}
	if _, ok := document.KindOf(path); ok {
		return FileDocument, nil
	}
	return "", pii.NewInputError("file", "unsupported file type %q", ext)
}

// MaskedPath is where the masked copy of path is written by default.
// Documents become text, tables stay CSV, and images keep their extension
// unless no encoder exists for it, in which case they become PNG.
func MaskedPath(path string, ft FileType) string {
	switch ft {
	case FilePDF, FileDocument:
		return document.MaskedPath(path, ".txt")
	case FileCSV:
		return document.MaskedPath(path, ".csv")
	case FileImage:
		if !imaging.CanEncode(path) {
			return document.MaskedPath(path, ".png")
		}
	}
	return document.MaskedPath(path, "")
}

// AnalyzeFile runs the workflow matching req.Path's extension.
func (e *Engine) AnalyzeFile(ctx context.Context, req FileRequest) (*FileResult, error) {
	ft, err := DetectFileType(req.Path)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, pii.NewInputError("file", "%s not found", req.Path)
		}
		return nil, err
	}

	var res *FileResult
	switch ft {
	case FileImage:
		res, err = e.AnalyzeImage(ctx, req)
	case FileCSV:
		res, err = e.AnalyzeTable(ctx, req)
	default:
		res, err = e.AnalyzeDocument(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	logWarnings(req.Path, res.Warnings)
	return res, nil
}

func (r FileRequest) validate() error {
	if err := r.Options.validate(); err != nil {
		return err
	}
	if r.SampleSize < 0 {
		return pii.NewInputError("sample size", "%d is negative", r.SampleSize)
	}
	return nil
}

func (r FileRequest) output(ft FileType) string {
	if r.Output != "" {
		return r.Output
	}
	return MaskedPath(r.Path, ft)
}

func newResult(req FileRequest, ft FileType) *FileResult {
	return &FileResult{
		FilePath:       req.Path,
		FileType:       ft,
		EntitiesFilter: EntityFilter(normalizeEntities(req.Entities)),
		Threshold:      req.Threshold,
		Findings:       pii.ResolvedSet{},
	}
}

func normalizeEntities(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.ToUpper(strings.TrimSpace(n)); n != "" {
			out = append(out, n)
		}
	}
	return out
}
