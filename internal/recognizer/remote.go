package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

// DefaultLabels maps common NER model labels to entity types.
var DefaultLabels = map[string]string{
	"PER":    "PERSON",
	"PERSON": "PERSON",
	"LOC":    "LOCATION",
	"GPE":    "LOCATION",
	"ORG":    "ORGANIZATION",
	"MISC":   "NRP",
}

// Remote calls a NER sidecar's /classify endpoint. The sidecar receives
// {"text": ...} and answers {"spans": [{"start","end","label","score"}]} with
// byte offsets.
type Remote struct {
	url    string
	labels map[string]string
	http   *http.Client
}

// NewRemote points a Remote at baseURL (e.g. "http://ner:8001").
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		url:    strings.TrimRight(baseURL, "/") + "/classify",
		labels: DefaultLabels,
		http:   &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Spans []remoteSpan `json:"spans"`
}

type remoteSpan struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Label string   `json:"label"`
	Score *float64 `json:"score,omitempty"`
}

func (r *Remote) Name() string { return "remote_ner" }

func (r *Remote) SupportedEntities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range r.labels {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Detect posts text to the sidecar. Spans with labels outside the label map
// are ignored.
func (r *Remote) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("remote ner: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote ner: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote ner: sidecar unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote ner: unexpected status %d", resp.StatusCode)
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("remote ner: decode: %w", err)
	}

	spans := make([]pii.Span, 0, len(result.Spans))
	for _, rs := range result.Spans {
		entity, ok := r.labels[strings.ToUpper(rs.Label)]
		if !ok {
			continue
		}
		score := 1.0
		if rs.Score != nil {
			score = *rs.Score
		}
		s, err := pii.NewSpan(text, rs.Start, rs.End, entity, score, r.Name())
		if err != nil {
			return nil, fmt.Errorf("remote ner: %w", err)
		}
		spans = append(spans, s)
	}
	return spans, nil
}
