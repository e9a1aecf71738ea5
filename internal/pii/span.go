package pii

import (
	"strings"
	"unicode/utf8"
)

// DefaultThreshold is the minimum score a span needs to be reported when the
// caller does not choose one.
const DefaultThreshold = 0.35

// Span is a scored claim that Text, found at source[Start:End], is an
// instance of EntityType.
type Span struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	EntityType string  `json:"entity_type"`
	Score      float64 `json:"score"`
	Source     string  `json:"source,omitempty"`
}

// NewSpan validates the range against source and returns the span.
// Zero-length ranges, ranges outside source, ranges that split a UTF-8
// sequence and scores outside [0,1] are rejected.
func NewSpan(source string, start, end int, entityType string, score float64, recognizer string) (Span, error) {
	if start < 0 || end > len(source) || start >= end {
		return Span{}, NewInputError("span", "range [%d,%d) invalid for text of length %d", start, end, len(source))
	}
	if !boundary(source, start) || !boundary(source, end) {
		return Span{}, NewInputError("span", "range [%d,%d) splits a UTF-8 sequence", start, end)
	}
	if !(score >= 0 && score <= 1) {
		return Span{}, NewInputError("score", "%v outside [0,1]", score)
	}
	entityType = strings.TrimSpace(entityType)
	if entityType == "" {
		return Span{}, NewInputError("entity_type", "must not be empty")
	}
	return Span{
		Text:       source[start:end],
		Start:      start,
		End:        end,
		EntityType: entityType,
		Score:      score,
		Source:     recognizer,
	}, nil
}

// Len is the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether the two half-open ranges share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// ValidFor reports whether s still describes source: in range and with Text
// equal to the covered substring.
func (s Span) ValidFor(source string) bool {
	if s.Start < 0 || s.End > len(source) || s.Start >= s.End {
		return false
	}
	return source[s.Start:s.End] == s.Text && s.Score >= 0 && s.Score <= 1
}

func boundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return utf8.RuneStart(s[i])
}
