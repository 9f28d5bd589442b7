package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewTool builds an MCP tool descriptor.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// SimpleSchema builds an object schema from property names mapped to Go
// type names, for example {"path": "string", "lines": "[]int"}. Every
// property is required.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = schemaFor(goType)
		required = append(required, name)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func schemaFor(goType string) *jsonschema.Schema {
	if item, ok := strings.CutPrefix(goType, "[]"); ok && item != "" {
		return &jsonschema.Schema{Type: "array", Items: schemaFor(item)}
	}

	switch goType {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		return &jsonschema.Schema{Type: "string"}
	}
}

// TextResult is a successful tool result with one text item.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// ErrorResult is a failed tool result with one text item.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

// ParseArguments decodes tool-call arguments. Missing arguments decode to an
// empty map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	args := make(map[string]any)
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return args, nil
	}

	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return args, nil
}
