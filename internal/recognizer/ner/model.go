// Package ner is a statistical, context-aware recognizer backed by an ONNX
// token-classification model (BERT-style, BIO labels).
//
// A model directory holds:
//
//	model.onnx             token classification graph (input_ids, attention_mask -> logits)
//	vocab.txt              WordPiece vocabulary
//	config.json            {"id2label": {"0": "O", "1": "B-PER", ...}}
//	tokenizer_config.json  optional, {"do_lower_case": false}
//
// Long texts are split into windows of SeqLen-2 pieces. Sessions are pooled,
// so one Model serves concurrent Detect calls.
package ner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/recognizer"
)

// Options configures Load.
type Options struct {
	ModelDir    string
	LibraryPath string
	SeqLen      int
	Sessions    int
	// Labels maps model entity labels (PER, LOC, ...) to entity types.
	// Defaults to recognizer.DefaultLabels.
	Labels map[string]string
}

type session struct {
	session       *ort.AdvancedSession
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

// Model is a loaded NER model. It implements recognizer.Recognizer.
type Model struct {
	tok       *WordPiece
	labels    []string
	entityMap map[string]string
	seqLen    int
	sessions  chan *session
	all       []*session
}

var _ recognizer.Recognizer = (*Model)(nil)

// Load reads the model directory and opens opts.Sessions onnxruntime
// sessions.
func Load(opts Options) (*Model, error) {
	if strings.TrimSpace(opts.ModelDir) == "" {
		return nil, errors.New("ner: model dir is empty")
	}
	if opts.SeqLen <= 2 {
		opts.SeqLen = 256
	}
	if opts.Sessions <= 0 {
		opts.Sessions = 1
	}
	if opts.Labels == nil {
		opts.Labels = recognizer.DefaultLabels
	}

	labels, err := loadLabels(filepath.Join(opts.ModelDir, "config.json"))
	if err != nil {
		return nil, err
	}
	tok, err := LoadWordPiece(filepath.Join(opts.ModelDir, "vocab.txt"), lowerCaseSetting(opts.ModelDir))
	if err != nil {
		return nil, err
	}

	if opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("ner: init onnxruntime: %w", err)
		}
	}

	m := &Model{
		tok:       tok,
		labels:    labels,
		entityMap: opts.Labels,
		seqLen:    opts.SeqLen,
		sessions:  make(chan *session, opts.Sessions),
	}
	modelPath := filepath.Join(opts.ModelDir, "model.onnx")
	for i := 0; i < opts.Sessions; i++ {
		s, err := newSession(modelPath, opts.SeqLen, len(labels))
		if err != nil {
			m.Close()
			return nil, err
		}
		m.all = append(m.all, s)
		m.sessions <- s
	}
	return m, nil
}

func newSession(modelPath string, seqLen, numLabels int) (*session, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("ner: session options: %w", err)
	}
	defer opts.Destroy()

	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("ner: allocate input_ids: %w", err)
	}
	attn, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		inputIDs.Destroy()
		return nil, fmt.Errorf("ner: allocate attention_mask: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(seqLen), int64(numLabels)))
	if err != nil {
		inputIDs.Destroy()
		attn.Destroy()
		return nil, fmt.Errorf("ner: allocate logits: %w", err)
	}

	s, err := ort.NewAdvancedSession(modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attn},
		[]ort.Value{output},
		opts,
	)
	if err != nil {
		inputIDs.Destroy()
		attn.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("ner: create session: %w", err)
	}
	return &session{session: s, inputIDs: inputIDs, attentionMask: attn, output: output}, nil
}

// Close releases every session. The Model must not be used afterwards.
func (m *Model) Close() {
	for _, s := range m.all {
		s.session.Destroy()
		s.inputIDs.Destroy()
		s.attentionMask.Destroy()
		s.output.Destroy()
	}
	m.all = nil
}

func (m *Model) Name() string { return "onnx_ner" }

func (m *Model) SupportedEntities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, lbl := range m.labels {
		_, typ := splitLabel(lbl)
		if e, ok := m.entityMap[typ]; ok && !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	sort.Strings(out)
	return out
}

// Detect runs the model over every window of text.
func (m *Model) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	pieces := m.tok.Tokenize(text)
	window := m.seqLen - 2

	var spans []pii.Span
	for lo := 0; lo < len(pieces); lo += window {
		hi := min(lo+window, len(pieces))
		found, err := m.runWindow(ctx, text, pieces[lo:hi])
		if err != nil {
			return nil, err
		}
		spans = append(spans, found...)
	}
	return spans, nil
}

func (m *Model) runWindow(ctx context.Context, text string, window []Piece) ([]pii.Span, error) {
	var s *session
	select {
	case s = <-m.sessions:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { m.sessions <- s }()

	ids, mask, offsets := m.tok.Encode(window, m.seqLen)
	copy(s.inputIDs.GetData(), ids)
	copy(s.attentionMask.GetData(), mask)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("ner: run: %w", err)
	}

	tokens := argmaxLabels(s.output.GetData(), len(m.labels), m.labels, offsets)
	return m.toSpans(text, decodeBIO(tokens))
}

func (m *Model) toSpans(text string, entities []entity) ([]pii.Span, error) {
	var spans []pii.Span
	for _, e := range entities {
		typ, ok := m.entityMap[e.typ]
		if !ok {
			continue
		}
		s, err := pii.NewSpan(text, e.start, e.end, typ, e.score, m.Name())
		if err != nil {
			return nil, fmt.Errorf("ner: %w", err)
		}
		spans = append(spans, s)
	}
	return spans, nil
}

type modelConfig struct {
	ID2Label map[string]string `json:"id2label"`
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ner: read labels: %w", err)
	}
	var cfg modelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("ner: parse %s: %w", path, err)
	}
	return labelsFromIDMap(cfg.ID2Label)
}

func labelsFromIDMap(id2label map[string]string) ([]string, error) {
	if len(id2label) == 0 {
		return nil, errors.New("ner: id2label is empty")
	}
	labels := make([]string, len(id2label))
	for k, v := range id2label {
		id, err := strconv.Atoi(k)
		if err != nil || id < 0 || id >= len(labels) {
			return nil, fmt.Errorf("ner: bad label id %q", k)
		}
		labels[id] = v
	}
	return labels, nil
}

func lowerCaseSetting(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "tokenizer_config.json"))
	if err != nil {
		return true
	}
	var cfg struct {
		DoLowerCase *bool `json:"do_lower_case"`
	}
	if json.Unmarshal(data, &cfg) != nil || cfg.DoLowerCase == nil {
		return true
	}
	return *cfg.DoLowerCase
}
