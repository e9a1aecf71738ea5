// Package server implements the MCP (Model Context Protocol) server for PII
// detection and redaction.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr so they never interleave with responses.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - pii_analyze_text: Detect (and optionally redact) PII in text
//   - pii_analyze_file: Analyze a PDF, HTML, text, CSV or image file
//   - pii_redact_image: OCR an image and black out located PII
//   - pii_list_entities: List detectable entity types
//
// # Error Handling
//
// Invalid arguments (bad JSON, empty text, an out-of-range threshold, a
// missing or unsupported file) return code -32602. Any other failure
// returns -32000. The data field carries the Go error string.
package server
