package analyzer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/pii-redactor/internal/document"
	"github.com/ironsheep/pii-redactor/internal/redact"
)

// AnalyzeDocument extracts the text of a PDF, HTML, text or markdown file and
// analyzes it. With req.Anonymize the redacted text is returned and written
// to the output path (.txt/.md as text, .png as rendered pages).
func (e *Engine) AnalyzeDocument(ctx context.Context, req FileRequest) (*FileResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	ft := FileDocument
	if kind, _ := document.KindOf(req.Path); kind == document.KindPDF {
		ft = FilePDF
	}

	text, err := document.Extract(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	spans, warnings, err := e.detect(ctx, text, req.Options)
	if err != nil {
		return nil, err
	}

	res := newResult(req, ft)
	res.OriginalText = text
	res.setFindings(spans)
	res.Warnings = warnings

	if !req.Anonymize {
		return res, nil
	}

	masked, err := redact.Text(text, spans)
	if err != nil {
		return nil, fmt.Errorf("redact document: %w", err)
	}
	res.AnonymizedText = masked

	written, err := document.WriteMasked(req.output(ft), masked)
	if err != nil {
		return nil, err
	}
	res.MaskedFiles = written
	log.Info().Str("file", req.Path).Strs("masked", written).Int("pii", res.PIICount).Msg("document masked")
	return res, nil
}
