package pii

import (
	"errors"
	"fmt"
	"sort"
)

// InputError reports a caller-supplied value that cannot be processed:
// a threshold outside [0,1], empty text, a malformed sample size, an
// unsupported file.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// NewInputError builds an InputError for field with a formatted reason.
func NewInputError(field, format string, args ...any) error {
	return &InputError{Field: field, Err: fmt.Errorf(format, args...)}
}

// IsInputError reports whether err or anything it wraps is an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// WarningKind classifies a non-fatal condition.
type WarningKind string

const (
	WarnRecognizerFailure WarningKind = "recognizer_failure"
	WarnUnmatchedRegion   WarningKind = "unmatched_region"
	WarnEncodingFallback  WarningKind = "encoding_fallback"
)

// Warning is a degraded-but-successful condition attached to a result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Source  string      `json:"source,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Source == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s (%s): %s", w.Kind, w.Source, w.Message)
}

// MergeWarnings concatenates warning lists, keeping one copy of each
// distinct warning, ordered by kind then source.
func MergeWarnings(lists ...[]Warning) []Warning {
	seen := make(map[Warning]bool)
	var out []Warning
	for _, l := range lists {
		for _, w := range l {
			if !seen[w] {
				seen[w] = true
				out = append(out, w)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Source < out[j].Source
	})
	return out
}
