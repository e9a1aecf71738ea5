package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/pii-redactor/internal/fileutil"
	"github.com/ironsheep/pii-redactor/internal/geometry"
	"github.com/ironsheep/pii-redactor/internal/pii"
)

// Style selects how a region is hidden.
type Style string

const (
	// StyleFill paints the region with a solid color.
	StyleFill Style = "fill"

	// StyleBlur replaces the region with a heavy Gaussian blur of itself.
	StyleBlur Style = "blur"
)

// DefaultBlurRadius is the Gaussian radius used by StyleBlur.
const DefaultBlurRadius = 12.0

// Black is the default fill color.
var Black = color.NRGBA{A: 255}

// MaskOptions controls Mask.
type MaskOptions struct {
	Style      Style
	Color      color.NRGBA
	BlurRadius float64
}

// ParseStyle validates a style name. An empty name means StyleFill.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleFill:
		return StyleFill, nil
	case StyleBlur:
		return StyleBlur, nil
	}
	return "", pii.NewInputError("mask style", "%q is not one of fill, blur", s)
}

// ParseColor parses "#RRGGBB", "#RGB" or "#RRGGBBAA".
//
// Parameters:
//   - hex: The color string. The leading '#' is optional.
//
// Returns:
//   - color.NRGBA: The parsed color, always opaque.
//   - error: An InputError for malformed input or an alpha below FF.
func ParseColor(hex string) (color.NRGBA, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 8 {
		a, err := strconv.ParseUint(s[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, pii.NewInputError("mask color", "%q: %v", hex, err)
		}
		if a != 255 {
			return color.NRGBA{}, pii.NewInputError("mask color", "%q is translucent; mask colors must be opaque", hex)
		}
		s = s[:6]
	}
	if len(s) != 3 && len(s) != 6 {
		return color.NRGBA{}, pii.NewInputError("mask color", "%q is not #RGB, #RRGGBB or #RRGGBBAA", hex)
	}
	c, err := colorful.Hex("#" + s)
	if err != nil {
		return color.NRGBA{}, pii.NewInputError("mask color", "%q: %v", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// Mask returns a copy of img with every box hidden. Boxes are clipped to the
// image bounds; boxes entirely outside it are ignored. img is not modified.
// Fills replace the region with an opaque color whatever opts.Color's alpha.
func Mask(img image.Image, boxes []geometry.Box, opts MaskOptions) *image.NRGBA {
	out := imaging.Clone(img)
	bounds := out.Bounds()

	fill := opts.Color
	fill.A = 255

	radius := opts.BlurRadius
	if radius <= 0 {
		radius = DefaultBlurRadius
	}

	for _, b := range boxes {
		r := image.Rect(b.X, b.Y, b.Right(), b.Bottom()).Add(bounds.Min).Intersect(bounds)
		if r.Empty() {
			continue
		}
		switch opts.Style {
		case StyleBlur:
			region := imaging.Crop(out, r)
			blurred := blur.Gaussian(region, radius)
			draw.Draw(out, r, blurred, blurred.Bounds().Min, draw.Src)
		default:
			draw.Draw(out, r, &image.Uniform{C: fill}, image.Point{}, draw.Src)
		}
	}
	return out
}

// CanEncode reports whether Save can write path's extension.
func CanEncode(path string) bool {
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}

// Save encodes img to path, choosing the format from the extension.
// Extensions without an encoder (such as .webp) are an InputError. The
// file appears at path only once it is completely written.
func Save(img image.Image, path string) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return pii.NewInputError("output", "cannot write %s images", filepath.Ext(path))
	}
	err = fileutil.WriteAtomic(path, func(w io.Writer) error {
		return imaging.Encode(w, img, format)
	})
	if err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
