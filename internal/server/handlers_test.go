package server

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	params, _ := json.Marshal(ToolCallParams{Name: name, Arguments: raw})
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// toolResult decodes the JSON text content of a successful tool call.
func toolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v", content[0]["type"])
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

// createTestImageFile writes a small white PNG and returns its path.
func createTestImageFile(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.White)
		}
	}
	path := filepath.Join(dir, "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode image: %v", err)
	}
	return path
}

func TestToolAnalyzeText(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "pii_analyze_text", map[string]interface{}{
		"text": "Mail john@example.com today",
	})

	var got TextResponse
	toolResult(t, resp, &got)
	if !got.PIIFound || got.PIICount != 1 {
		t.Fatalf("got %+v, want one finding", got)
	}
	if got.Findings[0].EntityType != "EMAIL_ADDRESS" || got.Findings[0].Start != 5 {
		t.Errorf("finding: got %+v", got.Findings[0])
	}
	if got.AnonymizedText != nil {
		t.Errorf("anonymized_text should be absent, got %q", *got.AnonymizedText)
	}
}

func TestToolAnalyzeText_Anonymize(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "pii_analyze_text", map[string]interface{}{
		"text":      "Mail john@example.com today",
		"anonymize": true,
	})

	var got TextResponse
	toolResult(t, resp, &got)
	if got.AnonymizedText == nil || *got.AnonymizedText != "Mail <EMAIL_ADDRESS> today" {
		t.Errorf("anonymized_text: got %v", got.AnonymizedText)
	}
}

func TestToolAnalyzeText_EntityFilter(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "pii_analyze_text", map[string]interface{}{
		"text":     "Mail john@example.com today",
		"entities": []string{"phone_number"},
	})

	var got TextResponse
	toolResult(t, resp, &got)
	if got.PIIFound || len(got.Findings) != 0 {
		t.Errorf("email should be filtered out, got %+v", got)
	}
}

func TestToolCall_InputErrors(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		tool string
		args interface{}
	}{
		{"empty text", "pii_analyze_text", map[string]interface{}{"text": "  "}},
		{"threshold out of range", "pii_analyze_text", map[string]interface{}{"text": "hi", "threshold": 1.5}},
		{"wrong argument type", "pii_analyze_text", map[string]interface{}{"text": 12}},
		{"missing path", "pii_analyze_file", map[string]interface{}{}},
		{"missing file", "pii_analyze_file", map[string]interface{}{"path": "/nonexistent/file.txt"}},
		{"unsupported type", "pii_analyze_file", map[string]interface{}{"path": "/tmp/archive.zip"}},
		{"not an image", "pii_redact_image", map[string]interface{}{"path": "/tmp/notes.txt"}},
		{"unknown tool", "image_crop", map[string]interface{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected an error response")
			}
			if resp.Error.Code != -32602 {
				t.Errorf("Error.Code: got %d, want -32602 (%v)", resp.Error.Code, resp.Error.Data)
			}
		})
	}
}

func TestToolCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", resp.Error)
	}
}

func TestToolAnalyzeFile(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("Reach me at jane@example.org today."), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := callTool(t, s, "pii_analyze_file", map[string]interface{}{
		"path":      path,
		"anonymize": true,
	})

	var got struct {
		FileType    string   `json:"file_type"`
		PIICount    int      `json:"pii_count"`
		MaskedFiles []string `json:"masked_files"`
	}
	toolResult(t, resp, &got)
	if got.FileType != "document" || got.PIICount != 1 {
		t.Errorf("got %+v", got)
	}
	if len(got.MaskedFiles) != 1 {
		t.Fatalf("masked files: got %v", got.MaskedFiles)
	}
	data, err := os.ReadFile(got.MaskedFiles[0])
	if err != nil {
		t.Fatalf("read masked file: %v", err)
	}
	if !strings.Contains(string(data), "<EMAIL_ADDRESS>") || strings.Contains(string(data), "jane@example.org") {
		t.Errorf("masked text: got %q", data)
	}
}

func TestToolAnalyzeFile_CSV(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "people.csv")
	csv := "id,email\n1,a@example.com\n2,none\n3,b@example.com\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := callTool(t, s, "pii_analyze_file", map[string]interface{}{"path": path, "sample_size": 2, "seed": 7})

	var got struct {
		Analysis struct {
			AnalyzedRows int    `json:"analyzed_rows"`
			IsSampled    bool   `json:"is_sampled"`
			Seed         uint64 `json:"seed"`
		} `json:"analysis"`
	}
	toolResult(t, resp, &got)
	if got.Analysis.AnalyzedRows != 2 || !got.Analysis.IsSampled || got.Analysis.Seed != 7 {
		t.Errorf("analysis: got %+v", got.Analysis)
	}
}

func TestToolRedactImage_NoOCR(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, t.TempDir())

	resp := callTool(t, s, "pii_redact_image", map[string]interface{}{"path": path})
	if resp.Error == nil {
		t.Fatal("expected an error without a transcriber")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error.Code: got %d, want -32000", resp.Error.Code)
	}
}

func TestToolListEntities(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "pii_list_entities", map[string]interface{}{})

	var got struct {
		Total    int      `json:"total"`
		Entities []string `json:"entities"`
	}
	toolResult(t, resp, &got)
	if got.Total == 0 || got.Total != len(got.Entities) {
		t.Errorf("got %+v", got)
	}
	found := false
	for _, e := range got.Entities {
		if e == "EMAIL_ADDRESS" {
			found = true
		}
	}
	if !found {
		t.Errorf("EMAIL_ADDRESS missing from %v", got.Entities)
	}
}

func TestGetToolDefinitions(t *testing.T) {
	want := map[string]bool{
		"pii_analyze_text":  true,
		"pii_analyze_file":  true,
		"pii_redact_image":  true,
		"pii_list_entities": true,
	}
	tools := GetToolDefinitions()
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}
	for _, tool := range tools {
		if !want[tool.Name] {
			t.Errorf("unexpected tool %s", tool.Name)
		}
		if tool.Description == "" {
			t.Errorf("%s: empty description", tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Errorf("%s: schema type %v", tool.Name, tool.InputSchema["type"])
		}
	}
}

func TestFileRequest_Seed(t *testing.T) {
	seven := uint64(7)

	tests := []struct {
		name     string
		defaults uint64
		arg      *uint64
		want     uint64
	}{
		{"configured zero is kept", 0, nil, 0},
		{"configured seed", 9, nil, 9},
		{"argument wins", 9, &seven, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil, Defaults{Seed: tt.defaults}, "test")
			req, err := s.fileRequest(analyzeFileArgs{Path: "people.csv", Seed: tt.arg})
			if err != nil {
				t.Fatalf("fileRequest failed: %v", err)
			}
			if req.Seed != tt.want {
				t.Errorf("Seed = %d, want %d", req.Seed, tt.want)
			}
		})
	}
}
