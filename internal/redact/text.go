// Package redact replaces resolved spans in text with entity placeholders.
package redact

import (
	"strings"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

// Region is a redacted byte range of the source text.
type Region struct {
	Start      int    `json:"start"`
	End        int    `json:"end"`
	EntityType string `json:"entity_type"`
}

// Placeholder is the replacement for a span of entityType: "<ENTITY_TYPE>".
func Placeholder(entityType string) string {
	return "<" + strings.ToUpper(entityType) + ">"
}

// Text copies text with each span replaced by its placeholder. Spans must
// come from text and be ordered and disjoint, which every pii.ResolvedSet
// is; anything else is an InputError.
func Text(text string, spans pii.ResolvedSet) (string, error) {
	var b strings.Builder
	b.Grow(len(text))

	cursor := 0
	for _, s := range spans {
		if s.Start < cursor || !s.ValidFor(text) {
			return "", pii.NewInputError("spans", "span [%d,%d) does not fit the text", s.Start, s.End)
		}
		b.WriteString(text[cursor:s.Start])
		b.WriteString(Placeholder(s.EntityType))
		cursor = s.End
	}
	b.WriteString(text[cursor:])
	return b.String(), nil
}

// Regions lists the redacted ranges of spans.
func Regions(spans pii.ResolvedSet) []Region {
	out := make([]Region, len(spans))
	for i, s := range spans {
		out[i] = Region{Start: s.Start, End: s.End, EntityType: strings.ToUpper(s.EntityType)}
	}
	return out
}
