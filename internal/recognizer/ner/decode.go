package ner

import (
	"math"
	"strings"
)

// tokenLabel is the winning label for one piece.
type tokenLabel struct {
	label string
	prob  float64
	start int
	end   int
}

type entity struct {
	typ   string
	start int
	end   int
	score float64
}

func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(v))
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(float64(v) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmaxLabels picks the most probable label per position of a flattened
// [seqLen x numLabels] logits buffer, skipping positions without a source
// range.
func argmaxLabels(logits []float32, numLabels int, labels []string, offsets []Piece) []tokenLabel {
	var out []tokenLabel
	for i, off := range offsets {
		if off.Start < 0 || off.End <= off.Start {
			continue
		}
		base := i * numLabels
		if base+numLabels > len(logits) {
			break
		}
		probs := softmax(logits[base : base+numLabels])
		best := 0
		for j := range probs {
			if probs[j] > probs[best] {
				best = j
			}
		}
		lbl := "O"
		if best < len(labels) {
			lbl = labels[best]
		}
		out = append(out, tokenLabel{label: lbl, prob: probs[best], start: off.Start, end: off.End})
	}
	return out
}

// decodeBIO groups consecutive labeled pieces into entities. A B- prefix or a
// type change starts a new entity; I- extends the current one. The score is
// the mean winning probability of the grouped pieces.
func decodeBIO(tokens []tokenLabel) []entity {
	var (
		out   []entity
		cur   *entity
		probs float64
		count int
	)
	flush := func() {
		if cur != nil {
			cur.score = probs / float64(count)
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, tk := range tokens {
		prefix, typ := splitLabel(tk.label)
		if typ == "" || strings.EqualFold(tk.label, "O") {
			flush()
			continue
		}
		if prefix == "B" || cur == nil || !strings.EqualFold(cur.typ, typ) {
			flush()
			cur = &entity{typ: typ, start: tk.start, end: tk.end}
			probs, count = tk.prob, 1
			continue
		}
		if tk.end > cur.end {
			cur.end = tk.end
		}
		probs += tk.prob
		count++
	}
	flush()
	return out
}

func splitLabel(lbl string) (prefix, typ string) {
	lbl = strings.TrimSpace(lbl)
	if lbl == "" {
		return "", ""
	}
	if p, t, ok := strings.Cut(lbl, "-"); ok && len(p) == 1 {
		return strings.ToUpper(p), strings.ToUpper(t)
	}
	return "", strings.ToUpper(lbl)
}
