package server

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/pii-redactor/internal/analyzer"
	"github.com/ironsheep/pii-redactor/internal/pii"
	"github.com/ironsheep/pii-redactor/internal/report"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "pii_analyze_text").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments return code -32602; any other failure returns -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		log.Warn().Err(err).Str("tool", params.Name).Msg("tool call failed")
		if pii.IsInputError(err) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "pii_analyze_text":
		return s.handleAnalyzeText(ctx, args)
	case "pii_analyze_file":
		return s.handleAnalyzeFile(ctx, args)
	case "pii_redact_image":
		return s.handleRedactImage(ctx, args)
	case "pii_list_entities":
		return s.engine.ListEntities(), nil
	default:
		return nil, pii.NewInputError("tool", "unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return pii.NewInputError("arguments", "%v", err)
	}
	return nil
}

// detectionArgs are shared by every analysis tool. Pointers tell "absent"
// apart from zero.
type detectionArgs struct {
	Threshold *float64 `json:"threshold"`
	Entities  []string `json:"entities"`
}

func (s *Server) options(a detectionArgs) analyzer.Options {
	opts := s.defaults.Options
	if a.Threshold != nil {
		opts.Threshold = *a.Threshold
	}
	if a.Entities != nil {
		opts.Entities = a.Entities
	}
	return opts
}

// === Text ===

type analyzeTextArgs struct {
	detectionArgs
	Text      string `json:"text"`
	Anonymize bool   `json:"anonymize"`
}

// TextResponse is the pii_analyze_text result.
type TextResponse struct {
	PIIFound       bool            `json:"pii_found"`
	PIICount       int             `json:"pii_count"`
	Findings       pii.ResolvedSet `json:"pii_findings"`
	AnonymizedText *string         `json:"anonymized_text,omitempty"`
	Warnings       []pii.Warning   `json:"warnings,omitempty"`
}

func (s *Server) handleAnalyzeText(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a analyzeTextArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	opts := s.options(a.detectionArgs)

	if a.Anonymize {
		redacted, res, err := s.engine.RedactText(ctx, a.Text, opts)
		if err != nil {
			return nil, err
		}
		out := textResponse(res)
		out.AnonymizedText = &redacted
		return out, nil
	}

	res, err := s.engine.AnalyzeText(ctx, a.Text, opts)
	if err != nil {
		return nil, err
	}
	return textResponse(res), nil
}

func textResponse(res *analyzer.TextResult) *TextResponse {
	spans := res.Spans
	if spans == nil {
		spans = pii.ResolvedSet{}
	}
	return &TextResponse{
		PIIFound: len(spans) > 0,
		PIICount: len(spans),
		Findings: spans,
		Warnings: res.Warnings,
	}
}

// === Files ===

type analyzeFileArgs struct {
	detectionArgs
	Path       string  `json:"path"`
	Anonymize  bool    `json:"anonymize"`
	Output     string  `json:"output"`
	SampleSize *int    `json:"sample_size"`
	Seed       *uint64 `json:"seed"`
}

func (s *Server) fileRequest(a analyzeFileArgs) (analyzer.FileRequest, error) {
	if a.Path == "" {
		return analyzer.FileRequest{}, pii.NewInputError("path", "path is required")
	}
	req := analyzer.NewFileRequest(a.Path)
	req.Options = s.options(a.detectionArgs)
	req.Anonymize = a.Anonymize
	req.Output = a.Output
	req.SampleSize = s.defaults.SampleSize
	if a.SampleSize != nil {
		req.SampleSize = *a.SampleSize
	}
	req.Seed = s.defaults.Seed
	if a.Seed != nil {
		req.Seed = *a.Seed
	}
	return req, nil
}

func (s *Server) handleAnalyzeFile(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a analyzeFileArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	req, err := s.fileRequest(a)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.AnalyzeFile(ctx, req)
	if err != nil {
		return nil, err
	}
	return report.Compact(res), nil
}

type redactImageArgs struct {
	detectionArgs
	Path   string `json:"path"`
	Output string `json:"output"`
}

func (s *Server) handleRedactImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a redactImageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if ft, err := analyzer.DetectFileType(a.Path); err != nil || ft != analyzer.FileImage {
		return nil, pii.NewInputError("path", "%q is not a supported image", a.Path)
	}
	req, err := s.fileRequest(analyzeFileArgs{detectionArgs: a.detectionArgs, Path: a.Path, Output: a.Output})
	if err != nil {
		return nil, err
	}
	req.Anonymize = true
	res, err := s.engine.AnalyzeFile(ctx, req)
	if err != nil {
		return nil, err
	}
	return report.Compact(res), nil
}
