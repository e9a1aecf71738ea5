package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/pii-redactor/internal/geometry"
	"github.com/ironsheep/pii-redactor/internal/imaging"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/redact"
)

// AnalyzeImage transcribes an image and analyzes the recognized text.
//
// With req.Anonymize every kept span is located among the OCR word boxes
// and occluded; values that cannot be located are listed in
// FileResult.Unmatched and reported as unmatched_region warnings. An image
// without any recognized text yields an empty result, not an error.
func (e *Engine) AnalyzeImage(ctx context.Context, req FileRequest) (*FileResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if e.transcriber == nil {
		return nil, ErrNoTranscriber
	}

	info, err := imaging.LoadInfo(req.Path)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Load(req.Path)
	if err != nil {
		return nil, pii.NewInputError("image", "%v", err)
	}

	tr, err := e.transcriber.Transcribe(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	text := strings.TrimSpace(tr.Text)

	res := newResult(req, FileImage)
	res.ImageInfo = info
	res.ExtractedText = text

	var spans pii.ResolvedSet
	if text != "" {
		spans, res.Warnings, err = e.detect(ctx, text, req.Options)
		if err != nil {
			return nil, err
		}
	}
	res.setFindings(spans)

	if !req.Anonymize {
		return res, nil
	}

	masked, err := redact.Text(text, spans)
	if err != nil {
		return nil, fmt.Errorf("redact transcription: %w", err)
	}
	res.AnonymizedText = masked

	located := geometry.Locate(tr.Tokens, targets(spans), e.settings.Padding)
	res.Regions = located.Regions
	res.Unmatched = located.Unmatched
	for _, u := range located.Unmatched {
		log.Warn().Str("file", req.Path).Str("entity", u.EntityType).Msg("value not found among OCR words, left visible")
		res.Warnings = append(res.Warnings, pii.Warning{
			Kind:    pii.WarnUnmatchedRegion,
			Source:  u.EntityType,
			Message: fmt.Sprintf("%q was not found among the recognized words", u.Value),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	boxes := make([]geometry.Box, len(located.Regions))
	for i, r := range located.Regions {
		boxes[i] = r.Box
	}
	out := req.output(FileImage)
	if err := imaging.Save(imaging.Mask(img, boxes, e.settings.Mask), out); err != nil {
		return nil, err
	}
	res.MaskedFiles = []string{out}
	log.Info().Str("file", req.Path).Str("masked", out).Int("regions", len(boxes)).Msg("image masked")
	return res, nil
}

func targets(spans pii.ResolvedSet) []geometry.Target {
	out := make([]geometry.Target, len(spans))
	for i, s := range spans {
		out[i] = geometry.Target{Value: s.Text, EntityType: s.EntityType}
	}
	return out
}
