// Package recognizer runs independent PII detectors over a text and collects
// their candidate spans.
//
// Each detector implements [Recognizer]. A [Registry] is built once at startup
// from a fixed list of recognizers and is read-only afterwards, so one
// registry can serve concurrent requests. A recognizer that returns an error
// or panics does not abort the run: its failure is logged and surfaced as a
// [pii.Warning] while the other recognizers' spans are kept.
package recognizer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

// Recognizer detects spans of one or more entity types in text.
type Recognizer interface {
	Name() string
	SupportedEntities() []string
	Detect(ctx context.Context, text string) ([]pii.Span, error)
}

// Registry is an immutable, ordered set of recognizers.
type Registry struct {
	recognizers []Recognizer
}

// NewRegistry builds a registry. Nil entries are ignored.
func NewRegistry(recognizers ...Recognizer) *Registry {
	r := &Registry{}
	for _, rec := range recognizers {
		if rec != nil {
			r.recognizers = append(r.recognizers, rec)
		}
	}
	return r
}

// Len is the number of registered recognizers.
func (r *Registry) Len() int { return len(r.recognizers) }

// Names lists recognizer names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.recognizers))
	for i, rec := range r.recognizers {
		names[i] = rec.Name()
	}
	return names
}

// EntityTypes lists every entity type some recognizer can emit, sorted.
func (r *Registry) EntityTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for _, rec := range r.recognizers {
		for _, t := range rec.SupportedEntities() {
			t = strings.ToUpper(t)
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Detect runs every recognizer that supports at least one enabled entity type
// and concatenates their spans in registration order. An empty enabled list
// enables every type.
//
// Recognizer failures become warnings. Spans that do not describe text are
// dropped with a warning. If ctx is cancelled the run stops and only the
// context error is returned.
func (r *Registry) Detect(ctx context.Context, text string, enabled []string) ([]pii.Span, []pii.Warning, error) {
	allowed := pii.EntitySet(enabled)

	var (
		spans    []pii.Span
		warnings []pii.Warning
	)
	for _, rec := range r.recognizers {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !supportsAny(rec, allowed) {
			continue
		}

		found, err := runIsolated(ctx, rec, text)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			log.Warn().Err(err).Str("recognizer", rec.Name()).Msg("recognizer failed, continuing without it")
			warnings = append(warnings, pii.Warning{
				Kind:    pii.WarnRecognizerFailure,
				Source:  rec.Name(),
				Message: err.Error(),
			})
			continue
		}

		dropped := 0
		for _, s := range found {
			if !s.ValidFor(text) {
				dropped++
				continue
			}
			spans = append(spans, s)
		}
		if dropped > 0 {
			log.Warn().Int("dropped", dropped).Str("recognizer", rec.Name()).Msg("recognizer returned invalid spans")
			warnings = append(warnings, pii.Warning{
				Kind:    pii.WarnRecognizerFailure,
				Source:  rec.Name(),
				Message: fmt.Sprintf("%d span(s) outside the input were discarded", dropped),
			})
		}
	}
	return spans, warnings, nil
}

func supportsAny(rec Recognizer, allowed map[string]bool) bool {
	if allowed == nil {
		return true
	}
	for _, t := range rec.SupportedEntities() {
		if allowed[strings.ToUpper(t)] {
			return true
		}
	}
	return false
}

func runIsolated(ctx context.Context, rec Recognizer, text string) (spans []pii.Span, err error) {
	defer func() {
		if p := recover(); p != nil {
			spans = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return rec.Detect(ctx, text)
}
