package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ironsheep/pii-redactor/internal/analyzer"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/report"
	"github.com/ironsheep/pii-redactor/internal/tabular"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "PII Redactor API",
		"version": s.version,
		"health":  "/health",
		"endpoints": map[string]string{
			"text_analysis":  "/api/analyze/text",
			"pdf_analysis":   "/api/analyze/pdf",
			"image_analysis": "/api/analyze/image",
			"csv_analysis":   "/api/analyze/csv",
			"entities":       "/api/entities",
			"download":       "/api/download/{filename}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var entities []string
	if s.engine != nil {
		entities = s.engine.ListEntities().Entities
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "healthy",
		"analyzer_loaded":    s.engine != nil,
		"supported_entities": entities,
		"uptime":             time.Since(s.startTime).String(),
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ListEntities())
}

// textResponse is the POST /api/analyze/text body.
type textResponse struct {
	PIIFound       bool                  `json:"pii_found"`
	PIICount       int                   `json:"pii_count"`
	Findings       pii.ResolvedSet       `json:"pii_findings"`
	EntitiesFilter analyzer.EntityFilter `json:"entities_filter"`
	Warnings       []pii.Warning         `json:"warnings,omitempty"`
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	opts, err := s.formOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.engine.AnalyzeText(r.Context(), r.FormValue("text"), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	spans := res.Spans
	if spans == nil {
		spans = pii.ResolvedSet{}
	}
	writeJSON(w, http.StatusOK, textResponse{
		PIIFound:       len(spans) > 0,
		PIICount:       len(spans),
		Findings:       spans,
		EntitiesFilter: analyzer.EntityFilter(opts.Entities),
		Warnings:       res.Warnings,
	})
}

// fileResponse adds download details to a file result.
type fileResponse struct {
	*analyzer.FileResult
	Masked       string `json:"masked_file,omitempty"`
	DownloadURL  string `json:"download_url,omitempty"`
	DownloadPath string `json:"download_path,omitempty"`
}

var kinds = map[string]analyzer.FileType{
	"pdf":   analyzer.FilePDF,
	"image": analyzer.FileImage,
	"csv":   analyzer.FileCSV,
}

func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	want, ok := kinds[chi.URLParam(r, "kind")]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "unknown analysis kind")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "file is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if ft, err := analyzer.DetectFileType(name); err != nil || ft != want {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("%q is not a supported %s file", name, chi.URLParam(r, "kind")))
		return
	}

	req, err := s.fileRequest(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tmp, err := os.MkdirTemp("", "pii-upload-")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer os.RemoveAll(tmp)

	req.Path = filepath.Join(tmp, name)
	if err := saveUpload(req.Path, file); err != nil {
		s.fail(w, r, err)
		return
	}

	var masked string
	if req.Anonymize {
		if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
			s.fail(w, r, err)
			return
		}
		masked = filepath.Base(analyzer.MaskedPath(req.Path, want))
		req.Output = filepath.Join(s.downloadDir, masked)
	}

	res, err := s.engine.AnalyzeFile(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res.FilePath = name

	out := fileResponse{FileResult: report.Compact(res)}
	if req.Anonymize && len(res.MaskedFiles) > 0 {
		out.Masked = filepath.Base(res.MaskedFile())
		out.DownloadURL = "/api/download/" + out.Masked
		out.DownloadPath = res.MaskedFile()
		zerolog.Ctx(r.Context()).Info().Str("file", name).Str("masked", out.Masked).Msg("masked file ready")
	}
	writeJSON(w, http.StatusOK, out)
}

var mediaTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
	".csv":  "text/csv",
	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusBadRequest, "invalid_request", "filename must be a plain file name")
		return
	}

	f, err := os.Open(filepath.Join(s.downloadDir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "not_found", "file not found; it may have been deleted or never created")
			return
		}
		s.fail(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(name))]
	if !ok {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// formOptions reads threshold and entities from the request form.
func (s *Server) formOptions(r *http.Request) (analyzer.Options, error) {
	opts := s.options
	if v := strings.TrimSpace(r.FormValue("threshold")); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, pii.NewInputError("threshold", "%q is not a number", v)
		}
		if err := pii.ValidateThreshold(t); err != nil {
			return opts, err
		}
		opts.Threshold = t
	}
	if v := r.FormValue("entities"); strings.TrimSpace(v) != "" {
		opts.Entities = nil
		for _, e := range strings.Split(v, ",") {
			if e = strings.ToUpper(strings.TrimSpace(e)); e != "" {
				opts.Entities = append(opts.Entities, e)
			}
		}
	}
	return opts, nil
}

func (s *Server) fileRequest(r *http.Request) (analyzer.FileRequest, error) {
	req := analyzer.FileRequest{Seed: s.seed}
	opts, err := s.formOptions(r)
	if err != nil {
		return req, err
	}
	req.Options = opts

	if v := strings.TrimSpace(r.FormValue("anonymize")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, pii.NewInputError("anonymize", "%q is not a boolean", v)
		}
		req.Anonymize = b
	}
	if req.SampleSize, err = tabular.ParseSampleSize(r.FormValue("sample_size")); err != nil {
		return req, err
	}
	return req, nil
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("save upload: %w", err)
	}
	return dst.Close()
}

// fail maps InputErrors to 400 and everything else to 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if pii.IsInputError(err) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
		return
	}
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}
