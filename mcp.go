package claudesession

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/claude-session-go/internal/mcp"
)

// Re-export MCP SDK types for public API.
type (
	// CallToolRequest is the request passed to tool handlers.
	CallToolRequest = mcp.CallToolRequest

	// CallToolResult is a tool handler's reply.
	// Use TextResult or ErrorResult to build one.
	CallToolResult = mcp.CallToolResult

	// ToolHandler is the signature of a tool implementation.
	ToolHandler = mcp.ToolHandler

	// ToolAnnotations are optional hints about tool behavior, such as
	// ReadOnlyHint and DestructiveHint.
	ToolAnnotations = mcp.ToolAnnotations

	// Schema is a JSON Schema for tool input.
	Schema = jsonschema.Schema

	// ToolServer is the in-process MCP server built by NewMCPServer.
	ToolServer = internalmcp.ToolServer
)

// Tool is a tool definition for NewMCPServer.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     ToolHandler
	Annotations *mcp.ToolAnnotations
}

// ToolOption configures a Tool during construction.
type ToolOption func(*Tool)

// WithAnnotations sets MCP tool annotations.
func WithAnnotations(annotations *mcp.ToolAnnotations) ToolOption {
	return func(t *Tool) {
		t.Annotations = annotations
	}
}

// NewTool creates a tool definition.
//
//	add := claudesession.NewTool("add", "Add two numbers",
//	    claudesession.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    func(ctx context.Context, req *claudesession.CallToolRequest) (*claudesession.CallToolResult, error) {
//	        args, _ := claudesession.ParseArguments(req)
//	        return claudesession.TextResult(fmt.Sprint(args["a"].(float64) + args["b"].(float64))), nil
//	    },
//	)
func NewTool(
	name, description string,
	inputSchema *jsonschema.Schema,
	handler ToolHandler,
	opts ...ToolOption,
) *Tool {
	t := &Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
		Handler:     handler,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// NewMCPServer builds an in-process MCP server from tools. Register it with
// WithMCPServer; the peer's mcp_message requests for it are answered
// without leaving the process.
func NewMCPServer(name, version string, tools ...*Tool) *ToolServer {
	server := internalmcp.NewToolServer(name, version)

	for _, tool := range tools {
		mcpTool := internalmcp.NewTool(tool.Name, tool.Description, tool.InputSchema)
		mcpTool.Annotations = tool.Annotations
		server.AddTool(mcpTool, tool.Handler)
	}

	return server
}

// SimpleSchema creates an object schema from a property-to-type map such as
// {"a": "float64", "path": "string"}.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return internalmcp.SimpleSchema(props)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return internalmcp.TextResult(text)
}

// ErrorResult creates a CallToolResult indicating an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return internalmcp.ErrorResult(message)
}

// ParseArguments decodes tool-call arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	return internalmcp.ParseArguments(req)
}
