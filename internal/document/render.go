package document

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/pii-redactor/internal/fileutil"
	"github.com/ironsheep/pii-redactor/internal/imaging"
	"github.com/ironsheep/pii-redactor/internal/pii"
)

// Page geometry: US letter at 100 dpi with half-inch margins.
const (
	PageWidth  = 850
	PageHeight = 1100
	pageMargin = 50
	lineHeight = 16
	glyphWidth = 7
)

// Layout splits text into rendered lines. Paragraphs are separated by blank
// lines and followed by an empty line. Runs of whitespace inside a line
// collapse to one space and long lines wrap at word boundaries; words longer
// than a line are cut.
func Layout(text string, columns int) []string {
	if columns < 1 {
		columns = 1
	}
	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		for _, line := range strings.Split(para, "\n") {
			words := strings.Fields(line)
			if len(words) == 0 {
				continue
			}
			out = append(out, wrap(words, columns)...)
		}
		out = append(out, "")
	}
	if n := len(out); n > 0 && out[n-1] == "" {
		out = out[:n-1]
	}
	return out
}

func wrap(words []string, columns int) []string {
	var lines []string
	var cur []rune
	for _, w := range words {
		r := []rune(w)
		for len(r) > columns {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(r[:columns]))
			r = r[columns:]
		}
		switch {
		case len(cur) == 0:
			cur = r
		case len(cur)+1+len(r) <= columns:
			cur = append(append(cur, ' '), r...)
		default:
			lines = append(lines, string(cur))
			cur = r
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// RenderPages draws text in black on white letter-size pages.
func RenderPages(text string) []*image.RGBA {
	columns := (PageWidth - 2*pageMargin) / glyphWidth
	perPage := (PageHeight - 2*pageMargin) / lineHeight
	lines := Layout(text, columns)

	var pages []*image.RGBA
	for start := 0; start < len(lines) || len(pages) == 0; start += perPage {
		end := min(start+perPage, len(lines))
		pages = append(pages, renderPage(lines[start:end]))
	}
	return pages
}

func renderPage(lines []string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, PageWidth, PageHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	for i, line := range lines {
		d.Dot = fixed.Point26_6{X: fixed.I(pageMargin), Y: fixed.I(pageMargin + (i+1)*lineHeight)}
		d.DrawString(line)
	}
	return img
}

// MaskedPath returns "<dir>/<base>_masked<ext>" for path. An empty ext keeps
// path's own extension.
func MaskedPath(path, ext string) string {
	if ext == "" {
		ext = filepath.Ext(path)
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + "_masked" + ext
}

// WriteMasked writes masked text to path and returns the files written.
// A .txt or .md path gets the text itself; a .png path gets rendered pages,
// the first at path and later ones at "<base>_page<N>.png". On error no
// output file is left behind: pages already written are removed.
func WriteMasked(path, text string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		err := fileutil.WriteAtomic(path, func(w io.Writer) error {
			_, err := io.WriteString(w, text)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("write masked text: %w", err)
		}
		return []string{path}, nil
	case ".png":
		base := strings.TrimSuffix(path, filepath.Ext(path))
		var written []string
		for i, page := range RenderPages(text) {
			out := path
			if i > 0 {
				out = fmt.Sprintf("%s_page%d.png", base, i+1)
			}
			if err := imaging.Save(page, out); err != nil {
				fileutil.RemoveAll(written)
				return nil, err
			}
			written = append(written, out)
		}
		return written, nil
	}
	return nil, pii.NewInputError("output", "masked documents are written as .txt, .md or .png, not %q", filepath.Ext(path))
}
