package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder

	"github.com/ironsheep/pii-redactor/internal/pii"
)

// Extensions lists the image file extensions accepted for transcription.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tif", ".webp"}

// IsImagePath reports whether path has one of Extensions.
func IsImagePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Load decodes an image from disk, applying any EXIF orientation so pixel
// coordinates match what OCR reports.
//
// Parameters:
//   - path: File path to a PNG, JPEG, GIF, BMP, TIFF or WebP image.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: Non-nil if the file cannot be opened or decoded.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return img, nil
}

// Info contains metadata about an image file.
type Info struct {
	// Format is the decoder name: "png", "jpeg", "gif", "bmp", "tiff" or "webp".
	Format string `json:"format"`

	// Mode names the color model the way image tooling usually does:
	// "RGB", "RGBA", "L", "LA", "P", "CMYK" or "YCbCr".
	Mode string `json:"mode"`

	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadInfo reads an image header and returns its metadata without decoding
// the pixel data.
//
// Parameters:
//   - path: Path to the image file.
//
// Returns:
//   - *Info: Metadata about the image.
//   - error: An InputError if the file is not a decodable image; other errors
//     for I/O failures.
//
// # Color Depth Detection
//
// Color depth is determined by the header's color model:
//   - RGBA64, NRGBA64, Gray16 -> "16-bit"
//   - All other models -> "8-bit"
func LoadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, pii.NewInputError("image", "%s: %v", filepath.Base(path), err)
	}

	mode, hasAlpha, depth := describeModel(cfg.ColorModel)
	return &Info{
		Format:        format,
		Mode:          mode,
		Width:         cfg.Width,
		Height:        cfg.Height,
		ColorDepth:    depth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}, nil
}

func describeModel(m color.Model) (mode string, hasAlpha bool, depth string) {
	depth = "8-bit"
	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return "P", true, depth
			}
		}
		return "P", false, depth
	}
	switch m {
	case color.RGBAModel, color.NRGBAModel:
		return "RGBA", true, depth
	case color.RGBA64Model, color.NRGBA64Model:
		return "RGBA", true, "16-bit"
	case color.GrayModel:
		return "L", false, depth
	case color.Gray16Model:
		return "L", false, "16-bit"
	case color.AlphaModel, color.Alpha16Model:
		return "LA", true, depth
	case color.CMYKModel:
		return "CMYK", false, depth
	case color.YCbCrModel:
		return "RGB", false, depth
	case color.NYCbCrAModel:
		return "RGBA", true, depth
	}
	return "RGB", false, depth
}
