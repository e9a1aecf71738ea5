package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/pii-redactor/internal/geometry"
)

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Transcription is the text recognized in an image and the words it is
// made of, in reading order.
type Transcription struct {
	// Text is all recognized text with original spacing and newlines.
	Text string `json:"text"`

	// Tokens are the recognized words with their bounding boxes.
	// May be empty if word-level extraction fails; Text is still set.
	Tokens []geometry.Token `json:"tokens"`
}

// Transcriber turns an image into a Transcription.
type Transcriber interface {
	Transcribe(ctx context.Context, img image.Image) (*Transcription, error)
}

// Tesseract is a Transcriber backed by a local Tesseract installation.
// A new Tesseract client is created per call, so one value can be shared.
type Tesseract struct {
	Language string
}

// NewTesseract returns a transcriber for language ("eng" when empty).
func NewTesseract(language string) *Tesseract {
	if strings.TrimSpace(language) == "" {
		language = DefaultLanguage
	}
	return &Tesseract{Language: language}
}

// Transcribe performs OCR on img and returns its text and word boxes.
//
// Parameters:
//   - ctx: Checked before the (uninterruptible) OCR run starts.
//   - img: The decoded image. It is handed to Tesseract as PNG bytes.
//
// Returns:
//   - *Transcription: Full text plus RIL_WORD-level tokens. Empty words are
//     skipped and confidence is scaled to 0..1.
//   - error: Non-nil if the language cannot be set or OCR fails.
func (t *Tesseract) Transcribe(ctx context.Context, img image.Image) (*Transcription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Text alone is still useful for detection.
		return &Transcription{Text: text, Tokens: []geometry.Token{}}, nil
	}
	return &Transcription{Text: text, Tokens: tokensFromBoxes(boxes, img.Bounds().Min)}, nil
}

// tokensFromBoxes converts Tesseract word boxes to tokens relative to the
// image origin.
func tokensFromBoxes(boxes []gosseract.BoundingBox, origin image.Point) []geometry.Token {
	tokens := make([]geometry.Token, 0, len(boxes))
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		r := b.Box.Sub(origin)
		tokens = append(tokens, geometry.Token{
			Text:       word,
			Index:      len(tokens),
			Confidence: b.Confidence / 100.0,
			Box:        geometry.Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()},
		})
	}
	return tokens
}

// Version reports the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
