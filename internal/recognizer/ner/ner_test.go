package ner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pii-redactor/internal/recognizer"
)

func testVocab() map[string]int64 {
	words := []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "contact", "john", "doe", "at", "par", "##is", ","}
	v := make(map[string]int64, len(words))
	for i, w := range words {
		v[w] = int64(i)
	}
	return v
}

func TestTokenize_Offsets(t *testing.T) {
	tok := NewWordPiece(testVocab(), true)
	text := "Contact John Doe, Paris"

	pieces := tok.Tokenize(text)
	require.Len(t, pieces, 6)

	want := []string{"Contact", "John", "Doe", ",", "Par", "is"}
	for i, p := range pieces {
		assert.Equal(t, want[i], text[p.Start:p.End])
	}
	assert.Equal(t, int64(8), pieces[4].ID)
	assert.Equal(t, int64(9), pieces[5].ID)
}

func TestTokenize_UnknownWord(t *testing.T) {
	tok := NewWordPiece(testVocab(), true)
	pieces := tok.Tokenize("Zoë")
	require.Len(t, pieces, 1)
	assert.Equal(t, int64(1), pieces[0].ID)
	assert.Equal(t, 0, pieces[0].Start)
	assert.Equal(t, len("Zoë"), pieces[0].End)
}

func TestEncode(t *testing.T) {
	tok := NewWordPiece(testVocab(), true)
	pieces := tok.Tokenize("john doe")

	ids, mask, offsets := tok.Encode(pieces, 6)
	assert.Equal(t, []int64{2, 5, 6, 3, 0, 0}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0}, mask)
	assert.Equal(t, -1, offsets[0].Start)
	assert.Equal(t, 0, offsets[1].Start)
	assert.Equal(t, -1, offsets[3].Start)

	ids, _, _ = tok.Encode(pieces, 3)
	assert.Equal(t, []int64{2, 5, 3}, ids, "window is truncated to fit")
}

func TestDecodeBIO(t *testing.T) {
	tokens := []tokenLabel{
		{label: "O", prob: 0.9, start: 0, end: 7},
		{label: "B-PER", prob: 0.8, start: 8, end: 12},
		{label: "I-PER", prob: 0.6, start: 13, end: 16},
		{label: "O", prob: 0.9, start: 16, end: 17},
		{label: "B-LOC", prob: 0.7, start: 18, end: 21},
		{label: "I-LOC", prob: 0.9, start: 21, end: 23},
		{label: "B-PER", prob: 0.5, start: 24, end: 27},
		{label: "B-PER", prob: 0.5, start: 28, end: 30},
	}

	got := decodeBIO(tokens)
	require.Len(t, got, 4)
	assert.Equal(t, entity{typ: "PER", start: 8, end: 16, score: 0.7}, roundScore(got[0]))
	assert.Equal(t, entity{typ: "LOC", start: 18, end: 23, score: 0.8}, roundScore(got[1]))
	assert.Equal(t, 24, got[2].start)
	assert.Equal(t, 28, got[3].start)
}

func roundScore(e entity) entity {
	e.score = float64(int(e.score*1000+0.5)) / 1000
	return e
}

func TestArgmaxLabels(t *testing.T) {
	labels := []string{"O", "B-PER", "I-PER"}
	offsets := []Piece{{Start: -1, End: -1}, {Start: 0, End: 4}, {Start: 5, End: 8}}
	logits := []float32{
		9, 0, 0,
		0, 5, 0,
		0, 0, 5,
	}
	got := argmaxLabels(logits, 3, labels, offsets)
	require.Len(t, got, 2)
	assert.Equal(t, "B-PER", got[0].label)
	assert.Equal(t, "I-PER", got[1].label)
	assert.Greater(t, got[0].prob, 0.9)
}

func TestSoftmax(t *testing.T) {
	p := softmax([]float32{1, 1})
	assert.InDelta(t, 0.5, p[0], 1e-9)
	assert.Nil(t, softmax(nil))
}

func TestLabelsAndSupportedEntities(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"id2label":{"0":"O","1":"B-PER","2":"I-PER","3":"B-LOC","4":"I-LOC","5":"B-FOO"}}`), 0644))

	labels, err := loadLabels(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, "B-LOC", labels[3])

	m := &Model{labels: labels, entityMap: recognizer.DefaultLabels}
	assert.Equal(t, []string{"LOCATION", "PERSON"}, m.SupportedEntities())

	_, err = labelsFromIDMap(map[string]string{"7": "O"})
	assert.Error(t, err)

	assert.True(t, lowerCaseSetting(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tokenizer_config.json"), []byte(`{"do_lower_case": false}`), 0644))
	assert.False(t, lowerCaseSetting(dir))
}

func TestToSpans(t *testing.T) {
	m := &Model{entityMap: recognizer.DefaultLabels}
	text := "Contact John Doe"
	spans, err := m.toSpans(text, []entity{{typ: "PER", start: 8, end: 16, score: 0.9}, {typ: "FOO", start: 0, end: 7, score: 1}})
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "John Doe", spans[0].Text)
	assert.Equal(t, "PERSON", spans[0].EntityType)
	assert.Equal(t, "onnx_ner", spans[0].Source)

	_, err = Load(Options{})
	assert.Error(t, err)
}
