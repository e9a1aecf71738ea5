package ner

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Piece is one WordPiece token and the byte range of the source it covers.
type Piece struct {
	ID    int64
	Start int
	End   int
}

// WordPiece is a BERT-style tokenizer that keeps byte offsets back into the
// original text.
type WordPiece struct {
	vocab        map[string]int64
	lowerCase    bool
	continuation string
	clsID        int64
	sepID        int64
	padID        int64
	unkID        int64
	maxWordBytes int
}

// LoadWordPiece reads a vocab.txt (one token per line, id = line number).
func LoadWordPiece(path string, lowerCase bool) (*WordPiece, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()

	vocab := make(map[string]int64)
	sc := bufio.NewScanner(f)
	var id int64
	for sc.Scan() {
		vocab[strings.TrimRight(sc.Text(), "\r")] = id
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan vocab: %w", err)
	}
	return NewWordPiece(vocab, lowerCase), nil
}

// NewWordPiece builds a tokenizer from an in-memory vocabulary.
func NewWordPiece(vocab map[string]int64, lowerCase bool) *WordPiece {
	return &WordPiece{
		vocab:        vocab,
		lowerCase:    lowerCase,
		continuation: "##",
		clsID:        vocab["[CLS]"],
		sepID:        vocab["[SEP]"],
		padID:        vocab["[PAD]"],
		unkID:        vocab["[UNK]"],
		maxWordBytes: 100,
	}
}

// Tokenize splits text into words (whitespace separated, punctuation as its
// own word) and word-pieces each one.
func (t *WordPiece) Tokenize(text string) []Piece {
	var pieces []Piece
	for _, w := range splitWords(text) {
		pieces = append(pieces, t.wordPieces(text[w[0]:w[1]], w[0])...)
	}
	return pieces
}

// Encode frames window with [CLS]/[SEP] and pads to seqLen. Offsets for the
// special and padding positions are (-1,-1).
func (t *WordPiece) Encode(window []Piece, seqLen int) (ids, mask []int64, offsets []Piece) {
	ids = make([]int64, seqLen)
	mask = make([]int64, seqLen)
	offsets = make([]Piece, seqLen)
	for i := range ids {
		ids[i] = t.padID
		offsets[i] = Piece{ID: t.padID, Start: -1, End: -1}
	}
	if seqLen < 2 {
		return ids, mask, offsets
	}
	if len(window) > seqLen-2 {
		window = window[:seqLen-2]
	}

	ids[0], mask[0] = t.clsID, 1
	offsets[0] = Piece{ID: t.clsID, Start: -1, End: -1}
	for i, p := range window {
		ids[i+1], mask[i+1] = p.ID, 1
		offsets[i+1] = p
	}
	n := len(window) + 1
	ids[n], mask[n] = t.sepID, 1
	offsets[n] = Piece{ID: t.sepID, Start: -1, End: -1}
	return ids, mask, offsets
}

func (t *WordPiece) wordPieces(word string, base int) []Piece {
	token := word
	if t.lowerCase {
		// Keep offsets exact: only lower-case when it does not change length.
		if lower := strings.ToLower(word); len(lower) == len(word) {
			token = lower
		}
	}
	whole := Piece{ID: t.unkID, Start: base, End: base + len(word)}
	if len(token) > t.maxWordBytes {
		return []Piece{whole}
	}
	if id, ok := t.vocab[token]; ok {
		whole.ID = id
		return []Piece{whole}
	}

	var pieces []Piece
	start := 0
	for start < len(token) {
		end := len(token)
		found := false
		for end > start {
			if end < len(token) && !utf8.RuneStart(token[end]) {
				end--
				continue
			}
			sub := token[start:end]
			if start > 0 {
				sub = t.continuation + sub
			}
			if id, ok := t.vocab[sub]; ok {
				pieces = append(pieces, Piece{ID: id, Start: base + start, End: base + end})
				start = end
				found = true
				break
			}
			end--
		}
		if !found {
			return []Piece{whole}
		}
	}
	return pieces
}

// splitWords returns [start,end) byte ranges of whitespace separated words,
// with each punctuation rune split out as its own word.
func splitWords(text string) [][2]int {
	var words [][2]int
	start := -1
	flush := func(end int) {
		if start >= 0 {
			words = append(words, [2]int{start, end})
			start = -1
		}
	}
	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush(i)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush(i)
			_, size := utf8.DecodeRuneInString(text[i:])
			words = append(words, [2]int{i, i + size})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))
	return words
}
