// Package document extracts text from documents and writes their masked
// counterparts.
//
// PDF text comes from MuPDF (go-fitz), HTML is reduced to its text with a
// strict bluemonday policy, and .txt/.md files are read as-is. Masked output
// is either plain text or PNG pages rendered with a fixed-width font.
package document

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

// Kind is a supported document type.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindHTML Kind = "html"
	KindText Kind = "text"
)

// KindOf maps a file extension to a Kind. ok is false for unsupported files.
func KindOf(path string) (kind Kind, ok bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF, true
	case ".html", ".htm":
		return KindHTML, true
	case ".txt", ".md":
		return KindText, true
	}
	return "", false
}

// Extract returns the text of the document at path. PDF pages are joined
// with a blank line. Unsupported extensions and documents without any text
// are an InputError.
func Extract(ctx context.Context, path string) (string, error) {
	kind, ok := KindOf(path)
	if !ok {
		return "", pii.NewInputError("file", "unsupported document type %q", filepath.Ext(path))
	}

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(ctx, path)
	case KindHTML:
		text, err = extractHTML(path)
	default:
		text, err = extractText(path)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", pii.NewInputError("file", "no text could be extracted from %s", filepath.Base(path))
	}
	return text, nil
}

func extractPDF(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", pii.NewInputError("file", "cannot open pdf: %v", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", n+1, err)
		}
		if page = strings.TrimSpace(page); page != "" {
			pages = append(pages, page)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func extractHTML(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return HTMLText(string(data)), nil
}

// HTMLText strips every tag (and script/style content) from markup and
// unescapes entities. Block boundaries become line breaks.
func HTMLText(markup string) string {
	markup = blockBreaks.Replace(markup)
	stripped := bluemonday.StrictPolicy().Sanitize(markup)
	stripped = html.UnescapeString(stripped)

	var lines []string
	for _, line := range strings.Split(stripped, "\n") {
		lines = append(lines, strings.Join(strings.Fields(line), " "))
	}
	return collapseBlankLines(strings.Join(lines, "\n"))
}

var blockBreaks = strings.NewReplacer(
	"</p>", "</p>\n\n", "</P>", "</P>\n\n",
	"<br>", "<br>\n", "<br/>", "<br/>\n", "<br />", "<br />\n",
	"</div>", "</div>\n", "</li>", "</li>\n", "</tr>", "</tr>\n",
	"</h1>", "</h1>\n\n", "</h2>", "</h2>\n\n", "</h3>", "</h3>\n\n",
)

func collapseBlankLines(s string) string {
	var b strings.Builder
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteString("\n")
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return b.String()
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		return "", pii.NewInputError("file", "%s is not UTF-8 text", filepath.Base(path))
	}
	return string(data), nil
}
