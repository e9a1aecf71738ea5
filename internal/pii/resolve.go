package pii

import (
	"sort"
	"strings"
)

// ResolvedSet is an ordered list of pairwise non-overlapping spans, sorted by
// Start. Only Resolve and Filter produce one.
type ResolvedSet []Span

// Resolve orders candidates by (start asc, score desc, length desc) and keeps
// every candidate that does not overlap one already kept. The input slice is
// not modified.
func Resolve(candidates []Span) ResolvedSet {
	if len(candidates) == 0 {
		return ResolvedSet{}
	}

	ordered := make([]Span, 0, len(candidates))
	for _, c := range candidates {
		if c.End > c.Start {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if a.EntityType != b.EntityType {
			return a.EntityType < b.EntityType
		}
		return a.Source < b.Source
	})

	// Kept spans are sorted and disjoint, so the last one has the largest End.
	out := make(ResolvedSet, 0, len(ordered))
	for _, c := range ordered {
		if n := len(out); n > 0 && c.Start < out[n-1].End {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Filter keeps spans with Score >= threshold whose entity type is in allowed.
// An empty allowed list admits every type. Entity types compare
// case-insensitively.
func Filter(set ResolvedSet, threshold float64, allowed []string) (ResolvedSet, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	types := EntitySet(allowed)

	out := make(ResolvedSet, 0, len(set))
	for _, s := range set {
		if s.Score < threshold {
			continue
		}
		if types != nil && !types[strings.ToUpper(s.EntityType)] {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ValidateThreshold rejects thresholds outside [0,1] (NaN included).
func ValidateThreshold(threshold float64) error {
	if !(threshold >= 0 && threshold <= 1) {
		return NewInputError("threshold", "%v outside [0,1]", threshold)
	}
	return nil
}

// EntitySet upper-cases and trims names into a lookup set. It returns nil
// when no non-blank names are given, meaning "all types".
func EntitySet(names []string) map[string]bool {
	var set map[string]bool
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if set == nil {
			set = make(map[string]bool)
		}
		set[n] = true
	}
	return set
}

// ParseEntityList splits a comma separated list such as "person, email_address"
// into upper-cased names. Blank items are dropped.
func ParseEntityList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// CountByType tallies spans per entity type.
func CountByType(spans []Span) map[string]int {
	counts := make(map[string]int)
	for _, s := range spans {
		counts[s.EntityType]++
	}
	return counts
}
