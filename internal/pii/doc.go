// Package pii holds the detection data model shared by every stage of the
// redaction pipeline.
//
// # Spans
//
// A [Span] is a half-open byte range [Start, End) over a source string,
// labeled with an entity type (PERSON, EMAIL_ADDRESS, ...) and a confidence
// score in [0, 1]. Spans are built with [NewSpan], which rejects empty and
// out-of-range ranges so that every downstream stage can slice the source
// without further checks.
//
// # Resolution
//
// Recognizers run independently and may report overlapping spans. [Resolve]
// turns an arbitrary candidate list into a [ResolvedSet]: ordered by start,
// pairwise non-overlapping, where an earlier-starting candidate always wins
// and ties at the same start go to the higher score and then the longer span.
//
// [Filter] then applies the score threshold (inclusive) and the allowed entity
// types. It only ever removes spans, so its output is still a ResolvedSet.
//
// # Errors and warnings
//
// Bad caller input is reported as [*InputError]. Conditions that degrade a
// result without failing it (a recognizer that crashed, an OCR value that
// could not be located, a file decoded with a fallback encoding) are carried
// as [Warning] values next to the result.
package pii
