package recognizer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pii-redactor/internal/pii"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	recs, err := LoadPatterns("")
	require.NoError(t, err)
	return NewRegistry(recs...)
}

func detectTypes(t *testing.T, reg *Registry, text string) map[string][]string {
	t.Helper()
	spans, warnings, err := reg.Detect(context.Background(), text, nil)
	require.NoError(t, err)
	require.Empty(t, warnings)
	out := make(map[string][]string)
	for _, s := range spans {
		out[s.EntityType] = append(out[s.EntityType], s.Text)
	}
	return out
}

func TestDefaultPatterns(t *testing.T) {
	reg := defaultRegistry(t)

	tests := []struct {
		name   string
		text   string
		entity string
		want   string
	}{
		{"email", "write to john@example.com today", "EMAIL_ADDRESS", "john@example.com"},
		{"phone", "call (555) 123-4567 now", "PHONE_NUMBER", "(555) 123-4567"},
		{"credit card passes luhn", "card 4111 1111 1111 1111", "CREDIT_CARD", "4111 1111 1111 1111"},
		{"iban", "IBAN DE89370400440532013000 please", "IBAN_CODE", "DE89370400440532013000"},
		{"ssn", "ssn 123-45-6789", "US_SSN", "123-45-6789"},
		{"ip", "host 192.168.1.20 down", "IP_ADDRESS", "192.168.1.20"},
		{"url", "see https://example.org/a?b=c", "URL", "https://example.org/a?b=c"},
		{"date", "born 1990-04-12", "DATE_TIME", "1990-04-12"},
		{"titled person", "ask Dr. Jane Smith", "PERSON", "Dr. Jane Smith"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectTypes(t, reg, tt.text)
			assert.Contains(t, got[tt.entity], tt.want)
		})
	}
}

func TestDefaultPatterns_ValidatorsReject(t *testing.T) {
	reg := defaultRegistry(t)

	got := detectTypes(t, reg, "card 4111 1111 1111 1112")
	assert.Empty(t, got["CREDIT_CARD"], "luhn failure")

	got = detectTypes(t, reg, "IBAN DE00370400440532013000")
	assert.Empty(t, got["IBAN_CODE"], "checksum failure")
}

func TestPattern_ContextBoost(t *testing.T) {
	p, err := NewPattern(Config{
		Name:            "ssn",
		SupportedEntity: "US_SSN",
		Patterns:        []PatternConfig{{Name: "ssn", Regex: `\b\d{3}-\d{2}-\d{4}\b`, Score: 0.5}},
		Context:         []string{"SSN"},
	})
	require.NoError(t, err)

	plain, err := p.Detect(context.Background(), "number 123-45-6789")
	require.NoError(t, err)
	require.Len(t, plain, 1)
	assert.InDelta(t, 0.5, plain[0].Score, 1e-9)

	boosted, err := p.Detect(context.Background(), "my ssn is 123-45-6789")
	require.NoError(t, err)
	require.Len(t, boosted, 1)
	assert.InDelta(t, 0.85, boosted[0].Score, 1e-9)
}

func TestPattern_ContextBoostIsCapped(t *testing.T) {
	p, err := NewPattern(Config{
		Name:            "email",
		SupportedEntity: "EMAIL_ADDRESS",
		Patterns:        []PatternConfig{{Name: "e", Regex: `\S+@\S+`, Score: 0.9}},
		Context:         []string{"email"},
	})
	require.NoError(t, err)

	spans, err := p.Detect(context.Background(), "email a@b.c")
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, 1.0, spans[0].Score)
}

func TestPattern_DenyList(t *testing.T) {
	p, err := NewPattern(Config{
		Name:            "names",
		SupportedEntity: "person",
		DenyList:        []string{"John Doe", "Alice"},
	})
	require.NoError(t, err)

	spans, err := p.Detect(context.Background(), "Contact JOHN DOE and alice, not Alicetown")
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "JOHN DOE", spans[0].Text)
	assert.Equal(t, "PERSON", spans[0].EntityType)
	assert.Equal(t, 1.0, spans[0].Score)
	assert.Equal(t, "alice", spans[1].Text)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no name", Config{SupportedEntity: "X", DenyList: []string{"a"}}},
		{"no entity", Config{Name: "x", DenyList: []string{"a"}}},
		{"no patterns", Config{Name: "x", SupportedEntity: "X"}},
		{"bad score", Config{Name: "x", SupportedEntity: "X", Patterns: []PatternConfig{{Regex: "a", Score: 2}}}},
		{"bad validator", Config{Name: "x", SupportedEntity: "X", DenyList: []string{"a"}, Validator: "crc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}

	_, err := NewPattern(Config{Name: "x", SupportedEntity: "X", Patterns: []PatternConfig{{Name: "p", Regex: "(", Score: 1}}})
	assert.Error(t, err)
}

func TestLoadPatterns_MergesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns.yaml")
	content := `recognizers:
  - name: email_recognizer
    supported_entity: EMAIL_ADDRESS
    enabled: false
    patterns:
      - name: email
        regex: 'x'
        score: 1.0
  - name: employee_id
    supported_entity: EMPLOYEE_ID
    patterns:
      - name: emp
        regex: '\bEMP-\d{5}\b'
        score: 0.9
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	recs, err := LoadPatterns(path)
	require.NoError(t, err)
	reg := NewRegistry(recs...)

	assert.NotContains(t, reg.Names(), "email_recognizer")
	assert.Contains(t, reg.EntityTypes(), "EMPLOYEE_ID")

	got := detectTypes(t, reg, "badge EMP-12345 for john@example.com")
	assert.Equal(t, []string{"EMP-12345"}, got["EMPLOYEE_ID"])
	assert.Empty(t, got["EMAIL_ADDRESS"])

	_, err = LoadPatterns(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	a := []Config{{Name: "one", SupportedEntity: "A"}, {Name: "two", SupportedEntity: "B"}}
	b := []Config{{Name: "two", SupportedEntity: "C"}, {Name: "three", SupportedEntity: "D"}}

	got := Merge(a, b)
	require.Len(t, got, 3)
	assert.Equal(t, "C", got[1].SupportedEntity)
	assert.Equal(t, "three", got[2].Name)
}

func TestLuhnAndIBAN(t *testing.T) {
	assert.True(t, luhnValid("4111111111111111"))
	assert.False(t, luhnValid("4111111111111112"))
	assert.False(t, luhnValid("4"))
	assert.True(t, ibanLengthValid("GB82WEST12345698765432"))
	assert.True(t, ibanChecksumValid("GB82WEST12345698765432"))
	assert.False(t, ibanChecksumValid("GB83WEST12345698765432"))
}

func TestRemote(t *testing.T) {
	text := "Contact John Doe in Paris"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify", r.URL.Path)
		var req classifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, text, req.Text)
		score := 0.9
		_ = json.NewEncoder(w).Encode(classifyResponse{Spans: []remoteSpan{
			{Start: 8, End: 16, Label: "PER", Score: &score},
			{Start: 20, End: 25, Label: "LOC"},
			{Start: 0, End: 7, Label: "VERB"},
		}})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, time.Second)
	spans, err := r.Detect(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "PERSON", spans[0].EntityType)
	assert.InDelta(t, 0.9, spans[0].Score, 1e-9)
	assert.Equal(t, "Paris", spans[1].Text)
	assert.Equal(t, 1.0, spans[1].Score)
}

func TestRemote_UnreachableIsAWarning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	reg := NewRegistry(NewRemote(url, time.Second))
	spans, warnings, err := reg.Detect(context.Background(), "John", nil)
	require.NoError(t, err)
	assert.Empty(t, spans)
	require.Len(t, warnings, 1)
	assert.Equal(t, pii.WarnRecognizerFailure, warnings[0].Kind)
}
