// Package geometry maps redacted text values back onto the pixel boxes of
// transcribed tokens.
//
// OCR output is noisy: words pick up punctuation, get split or merged, and
// change case. Matching is therefore partial. A target value is split into
// words, and a contiguous run of tokens matches when each token and the
// corresponding word contain one another in either direction after
// normalization (see [WordMatches]). This tolerates "Doe," for "Doe" but can
// also over-match a short token that happens to sit inside a target word,
// such as "ohn" for "John"; callers that need exact matches should compare
// [Normalize]d strings themselves.
package geometry

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// DefaultPadding is the pixel margin added around matched tokens.
const DefaultPadding = 2

// Box is a pixel rectangle.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right is the exclusive right edge.
func (b Box) Right() int { return b.X + b.Width }

// Bottom is the exclusive bottom edge.
func (b Box) Bottom() int { return b.Y + b.Height }

// Union is the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	x, y := min(b.X, o.X), min(b.Y, o.Y)
	return Box{X: x, Y: y, Width: max(b.Right(), o.Right()) - x, Height: max(b.Bottom(), o.Bottom()) - y}
}

// Pad grows b by p pixels on every side.
func (b Box) Pad(p int) Box {
	return Box{X: b.X - p, Y: b.Y - p, Width: b.Width + 2*p, Height: b.Height + 2*p}
}

// Contains reports whether o lies entirely within b.
func (b Box) Contains(o Box) bool {
	return o.X >= b.X && o.Y >= b.Y && o.Right() <= b.Right() && o.Bottom() <= b.Bottom()
}

func (b Box) overlapsVertically(o Box) bool {
	return b.Y < o.Bottom() && o.Y < b.Bottom()
}

// Token is one transcribed word and where it was drawn. Index is the
// token's position in transcription order.
type Token struct {
	Text       string  `json:"text"`
	Box        Box     `json:"box"`
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Target is a text value to hide.
type Target struct {
	Value      string `json:"value"`
	EntityType string `json:"entity_type"`
}

// Region is an area to occlude.
type Region struct {
	Box        Box    `json:"box"`
	EntityType string `json:"entity_type"`
	Value      string `json:"value"`
}

// Result holds the regions found and the targets that matched nothing.
type Result struct {
	Regions   []Region `json:"regions"`
	Unmatched []Target `json:"unmatched,omitempty"`
}

// Normalize case-folds s and removes all whitespace.
func Normalize(s string) string {
	folded := cases.Fold().String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
}

// WordMatches is the partial-match policy between one normalized target word
// and one normalized token: either contains the other. Empty strings never
// match.
func WordMatches(word, token string) bool {
	if word == "" || token == "" {
		return false
	}
	return strings.Contains(token, word) || strings.Contains(word, token)
}

// Locate finds every occurrence of each distinct target value in tokens and
// returns one padded region per matched line of tokens. Targets with no
// occurrence are reported in Result.Unmatched.
func Locate(tokens []Token, targets []Target, padding int) Result {
	norm := make([]string, len(tokens))
	for i, t := range tokens {
		norm[i] = Normalize(t.Text)
	}

	res := Result{Regions: []Region{}}
	seen := make(map[string]bool)
	for _, target := range targets {
		full := Normalize(target.Value)
		if seen[full] {
			continue
		}
		seen[full] = true

		words := targetWords(target.Value)
		found := false
		if full != "" && len(words) > 0 {
			for i := 0; i < len(tokens); {
				n := matchAt(norm, i, full, words)
				if n == 0 {
					i++
					continue
				}
				found = true
				for _, box := range lineBoxes(tokens[i : i+n]) {
					res.Regions = append(res.Regions, Region{
						Box:        box.Pad(padding),
						EntityType: target.EntityType,
						Value:      target.Value,
					})
				}
				i += n
			}
		}
		if !found {
			res.Unmatched = append(res.Unmatched, target)
		}
	}
	return res
}

func targetWords(value string) []string {
	var words []string
	for _, w := range strings.Fields(value) {
		if n := Normalize(w); n != "" {
			words = append(words, n)
		}
	}
	return words
}

// matchAt returns how many tokens starting at i match the target, or 0.
func matchAt(norm []string, i int, full string, words []string) int {
	if norm[i] == "" {
		return 0
	}
	// A single token that carries the whole value, e.g. a name OCR'd
	// without its space.
	if len(words) > 1 && strings.Contains(norm[i], full) {
		return 1
	}
	if i+len(words) > len(norm) {
		return 0
	}
	for j, w := range words {
		if !WordMatches(w, norm[i+j]) {
			return 0
		}
	}
	return len(words)
}

// lineBoxes unions consecutive tokens that share a text line. A value that
// wraps onto the next line yields one box per line.
func lineBoxes(run []Token) []Box {
	var boxes []Box
	for i, t := range run {
		if i > 0 && boxes[len(boxes)-1].overlapsVertically(t.Box) {
			boxes[len(boxes)-1] = boxes[len(boxes)-1].Union(t.Box)
			continue
		}
		boxes = append(boxes, t.Box)
	}
	return boxes
}
