package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var (
	thresholdProp = map[string]interface{}{
		"type":        "number",
		"description": "Minimum confidence score, inclusive (0-1). Default: 0.35",
		"minimum":     0,
		"maximum":     1,
	}
	entitiesProp = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Entity types to detect (e.g. PERSON, EMAIL_ADDRESS). Omit for all types",
	}
	pathProp = map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the input file",
	}
	outputProp = map[string]interface{}{
		"type":        "string",
		"description": "Path for the masked copy. Default: <name>_masked<ext> next to the input",
	}
)

// GetToolDefinitions returns all available tool definitions
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "pii_analyze_text",
			Description: "Detect PII in a piece of text. Returns each finding with its entity type, byte offsets and confidence score. With anonymize, also returns the text with every finding replaced by <ENTITY_TYPE>.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text to analyze",
					},
					"threshold": thresholdProp,
					"entities":  entitiesProp,
					"anonymize": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the redacted text. Default: false",
					},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "pii_analyze_file",
			Description: "Detect PII in a file. PDF, HTML, text and markdown files are analyzed as documents, CSV files column by column, and images through OCR. With anonymize, writes a masked copy and reports its path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProp,
					"threshold": thresholdProp,
					"entities":  entitiesProp,
					"anonymize": map[string]interface{}{
						"type":        "boolean",
						"description": "Write a masked copy of the file. Default: false",
					},
					"output": outputProp,
					"sample_size": map[string]interface{}{
						"type":        "integer",
						"description": "CSV only: number of rows to sample. 0 analyzes every row",
						"minimum":     0,
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "CSV only: sampling seed. Default: 42",
						"minimum":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pii_redact_image",
			Description: "OCR an image, detect PII in the recognized text, and write a copy with every located value blacked out. Returns the masked regions in pixel coordinates and any values that could not be located.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProp,
					"output":    outputProp,
					"threshold": thresholdProp,
					"entities":  entitiesProp,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "pii_list_entities",
			Description: "List the entity types the configured recognizers can detect.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}
