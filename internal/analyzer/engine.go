// Package analyzer ties the detection pipeline to files.
//
// An [Engine] owns the long-lived, read-only pieces (recognizer registry,
// OCR transcriber, masking settings) and runs one synchronous pipeline per
// call: compose recognizers, resolve overlaps, filter by threshold and entity
// type, then redact. One Engine serves any number of concurrent calls.
//
// The file workflows mirror each other:
//
//	AnalyzeDocument  .pdf .html .htm .txt .md  -> text findings, masked text or PNG pages
//	AnalyzeImage     .png .jpg ...             -> OCR findings, occluded image
//	AnalyzeTable     .csv                      -> per-column findings, masked CSV
//
// AnalyzeFile picks the workflow from the file extension.
package analyzer

import (
	"context"
	"errors"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/pii-redactor/internal/geometry"
	"github.com/ironsheep/pii-redactor/internal/imaging"
	"github.com/ironsheep/pii-redactor/internal/ocr"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/redact"
	"github.com/ironsheep/pii-redactor/internal/tabular"
)

// ErrNoTranscriber is returned by image workflows when the engine was built
// without OCR.
var ErrNoTranscriber = errors.New("image analysis requires an OCR transcriber")

// Detector produces candidate spans. *recognizer.Registry implements it.
type Detector interface {
	Detect(ctx context.Context, text string, enabled []string) ([]pii.Span, []pii.Warning, error)
	EntityTypes() []string
}

// Settings are the engine-wide knobs that do not change per request.
type Settings struct {
	// MaxFindings bounds the findings kept per table column.
	MaxFindings int
	// Workers is the number of table columns scanned concurrently.
	Workers int
	// Padding is added around every occluded OCR region, in pixels.
	Padding int
	// Mask selects how image regions are hidden.
	Mask imaging.MaskOptions
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		MaxFindings: tabular.DefaultMaxFindings,
		Workers:     runtime.NumCPU(),
		Padding:     geometry.DefaultPadding,
		Mask: imaging.MaskOptions{
			Style:      imaging.StyleFill,
			Color:      imaging.Black,
			BlurRadius: imaging.DefaultBlurRadius,
		},
	}
}

// Engine runs the detection pipeline.
type Engine struct {
	detector    Detector
	transcriber ocr.Transcriber
	settings    Settings
}

// New builds an Engine. transcriber may be nil, in which case image workflows
// fail with ErrNoTranscriber.
func New(detector Detector, transcriber ocr.Transcriber, settings Settings) *Engine {
	if settings.MaxFindings <= 0 {
		settings.MaxFindings = tabular.DefaultMaxFindings
	}
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	if settings.Padding < 0 {
		settings.Padding = 0
	}
	return &Engine{detector: detector, transcriber: transcriber, settings: settings}
}

// Options are the per-request detection parameters.
type Options struct {
	// Threshold is the inclusive minimum score, in [0,1].
	Threshold float64
	// Entities restricts detection to these types. Empty means all.
	Entities []string
}

// DefaultOptions returns threshold 0.35 with every entity type enabled.
func DefaultOptions() Options {
	return Options{Threshold: pii.DefaultThreshold}
}

func (o Options) validate() error {
	return pii.ValidateThreshold(o.Threshold)
}

// TextResult is the outcome of analyzing one text.
type TextResult struct {
	Spans    pii.ResolvedSet `json:"pii_findings"`
	Warnings []pii.Warning   `json:"warnings,omitempty"`
}

// AnalyzeText runs composition, resolution and filtering over text. Empty or
// blank text and an out-of-range threshold are InputErrors.
func (e *Engine) AnalyzeText(ctx context.Context, text string, opts Options) (*TextResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, pii.NewInputError("text", "text is empty")
	}
	spans, warnings, err := e.detect(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	return &TextResult{Spans: spans, Warnings: warnings}, nil
}

// detect is AnalyzeText without input checks.
func (e *Engine) detect(ctx context.Context, text string, opts Options) (pii.ResolvedSet, []pii.Warning, error) {
	candidates, warnings, err := e.detector.Detect(ctx, text, opts.Entities)
	if err != nil {
		return nil, nil, err
	}
	spans, err := pii.Filter(pii.Resolve(candidates), opts.Threshold, opts.Entities)
	if err != nil {
		return nil, nil, err
	}
	return spans, warnings, nil
}

// RedactText analyzes text and returns it with every kept span replaced by
// its placeholder.
func (e *Engine) RedactText(ctx context.Context, text string, opts Options) (string, *TextResult, error) {
	res, err := e.AnalyzeText(ctx, text, opts)
	if err != nil {
		return "", nil, err
	}
	masked, err := redact.Text(text, res.Spans)
	if err != nil {
		return "", nil, err
	}
	return masked, res, nil
}

// cellDetector adapts the pipeline for table cells.
func (e *Engine) cellDetector(opts Options) tabular.DetectFunc {
	return func(ctx context.Context, text string) (pii.ResolvedSet, []pii.Warning, error) {
		return e.detect(ctx, text, opts)
	}
}

// CommonEntities are the entity types most callers ask for.
var CommonEntities = []string{
	"PERSON", "EMAIL_ADDRESS", "PHONE_NUMBER", "CREDIT_CARD",
	"US_SSN", "LOCATION", "DATE_TIME", "IP_ADDRESS", "URL",
}

// EntityList describes the entity types the engine can detect.
type EntityList struct {
	Total    int      `json:"total"`
	Entities []string `json:"entities"`
	Common   []string `json:"common_entities"`
}

// ListEntities reports every supported entity type, sorted.
func (e *Engine) ListEntities() EntityList {
	types := e.detector.EntityTypes()
	return EntityList{Total: len(types), Entities: types, Common: CommonEntities}
}

func logWarnings(path string, warnings []pii.Warning) {
	for _, w := range warnings {
		log.Debug().Str("file", path).Str("kind", string(w.Kind)).Str("source", w.Source).Msg(w.Message)
	}
}
