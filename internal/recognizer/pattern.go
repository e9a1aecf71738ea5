package recognizer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

const (
	// ContextBoost is added to a match's score when a context word appears
	// near it.
	ContextBoost = 0.35

	// ContextWindow is how many bytes before and after a match are searched
	// for context words.
	ContextWindow = 100
)

// Validator names accepted in Config.Validator.
const (
	ValidatorLuhn = "luhn"
	ValidatorIBAN = "iban"
)

type compiledPattern struct {
	name  string
	re    *regexp.Regexp
	score float64
}

// Pattern is a regex and deny-list recognizer for a single entity type.
type Pattern struct {
	name      string
	entity    string
	patterns  []compiledPattern
	deny      *regexp.Regexp
	denyScore float64
	context   []string
	validate  func(string) bool
}

// NewPattern compiles a recognizer definition.
func NewPattern(c Config) (*Pattern, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	p := &Pattern{
		name:      c.Name,
		entity:    strings.ToUpper(strings.TrimSpace(c.SupportedEntity)),
		denyScore: c.DenyListScore,
	}
	for _, pc := range c.Patterns {
		re, err := regexp.Compile(pc.Regex)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %q in recognizer %q: %w", pc.Name, c.Name, err)
		}
		p.patterns = append(p.patterns, compiledPattern{name: pc.Name, re: re, score: pc.Score})
	}

	if len(c.DenyList) > 0 {
		quoted := make([]string, 0, len(c.DenyList))
		for _, d := range c.DenyList {
			if d = strings.TrimSpace(d); d != "" {
				quoted = append(quoted, regexp.QuoteMeta(d))
			}
		}
		if len(quoted) > 0 {
			p.deny = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
		}
		if p.denyScore == 0 {
			p.denyScore = 1.0
		}
	}

	for _, w := range c.Context {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			p.context = append(p.context, w)
		}
	}

	switch c.Validator {
	case ValidatorLuhn:
		p.validate = func(v string) bool { return luhnValid(digitsOnly(v)) }
	case ValidatorIBAN:
		p.validate = func(v string) bool {
			clean := strings.ToUpper(strings.ReplaceAll(v, " ", ""))
			return ibanLengthValid(clean) && ibanChecksumValid(clean)
		}
	}
	return p, nil
}

func (p *Pattern) Name() string { return p.name }

func (p *Pattern) SupportedEntities() []string { return []string{p.entity} }

// Detect reports every regex and deny-list match. Matches failing the
// validator are skipped; matches near a context word get ContextBoost.
func (p *Pattern) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	var spans []pii.Span
	for _, cp := range p.patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, m := range cp.re.FindAllStringIndex(text, -1) {
			if m[0] == m[1] {
				continue
			}
			if p.validate != nil && !p.validate(text[m[0]:m[1]]) {
				continue
			}
			score := p.boost(text, m[0], m[1], cp.score)
			s, err := pii.NewSpan(text, m[0], m[1], p.entity, score, p.name)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", cp.name, err)
			}
			spans = append(spans, s)
		}
	}

	if p.deny != nil {
		for _, m := range p.deny.FindAllStringIndex(text, -1) {
			s, err := pii.NewSpan(text, m[0], m[1], p.entity, p.denyScore, p.name)
			if err != nil {
				return nil, fmt.Errorf("deny list: %w", err)
			}
			spans = append(spans, s)
		}
	}
	return spans, nil
}

func (p *Pattern) boost(text string, start, end int, base float64) float64 {
	if len(p.context) == 0 {
		return base
	}
	lo := max(start-ContextWindow, 0)
	hi := min(end+ContextWindow, len(text))
	window := strings.ToLower(text[lo:start] + " " + text[end:hi])
	for _, w := range p.context {
		if strings.Contains(window, w) {
			return math.Min(base+ContextBoost, 1.0)
		}
	}
	return base
}
