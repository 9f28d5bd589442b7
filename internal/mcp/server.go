package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerInstance is an in-process tool server the router can serve.
type ServerInstance interface {
	Name() string
	Version() string
	// ListTools returns tool descriptors in MCP wire shape.
	ListTools() []map[string]any
	// CallTool runs a tool. Tool failures are reported inside the result
	// with "is_error"; the error return is reserved for unusable input.
	CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error)
}

// Compile-time verification that ToolServer implements ServerInstance.
var _ ServerInstance = (*ToolServer)(nil)

// ToolServer keeps a registry of MCP SDK tools and invokes their handlers
// directly.
type ToolServer struct {
	name    string
	version string

	mu    sync.RWMutex
	tools map[string]registeredTool
}

type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
}

// NewToolServer creates an empty tool server.
func NewToolServer(name, version string) *ToolServer {
	return &ToolServer{
		name:    name,
		version: version,
		tools:   make(map[string]registeredTool, 8),
	}
}

// AddTool registers or replaces a tool.
func (s *ToolServer) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools[tool.Name] = registeredTool{tool: tool, handler: handler}
}

// Name implements ServerInstance.
func (s *ToolServer) Name() string { return s.name }

// Version implements ServerInstance.
func (s *ToolServer) Version() string { return s.version }

// ListTools implements ServerInstance. Tools are ordered by name.
func (s *ToolServer) ListTools() []map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]map[string]any, 0, len(s.tools))

	for _, rt := range s.tools {
		descriptor := map[string]any{
			"name":        rt.tool.Name,
			"description": rt.tool.Description,
		}

		if schema := asObject(rt.tool.InputSchema); schema != nil {
			descriptor["inputSchema"] = schema
		}

		if rt.tool.Annotations != nil {
			if annotations := asObject(rt.tool.Annotations); annotations != nil {
				descriptor["annotations"] = annotations
			}
		}

		result = append(result, descriptor)
	}

	slices.SortFunc(result, func(a, b map[string]any) int {
		return cmp.Compare(a["name"].(string), b["name"].(string))
	})

	return result
}

// CallTool implements ServerInstance.
func (s *ToolServer) CallTool(ctx context.Context, name string, input map[string]any) (map[string]any, error) {
	s.mu.RLock()
	rt, ok := s.tools[name]
	s.mu.RUnlock()

	if !ok {
		return errorContent("Tool not found: " + name), nil
	}

	args, err := json.Marshal(input)
	if err != nil {
		return errorContent("Failed to marshal input: " + err.Error()), nil //nolint:nilerr // reported in the result
	}

	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: args},
	}

	result, err := rt.handler(ctx, req)
	if err != nil {
		return errorContent("Tool execution failed: " + err.Error()), nil //nolint:nilerr // reported in the result
	}

	return resultToWire(result), nil
}

func errorContent(text string) map[string]any {
	return map[string]any{
		"content":  []map[string]any{{"type": "text", "text": text}},
		"is_error": true,
	}
}

func resultToWire(result *mcp.CallToolResult) map[string]any {
	content := make([]map[string]any, 0)
	if result == nil {
		return map[string]any{"content": content}
	}

	for _, c := range result.Content {
		if item := contentToWire(c); item != nil {
			content = append(content, item)
		}
	}

	out := map[string]any{"content": content}
	if result.IsError {
		out["is_error"] = true
	}

	return out
}

func contentToWire(c mcp.Content) map[string]any {
	switch v := c.(type) {
	case *mcp.TextContent:
		return map[string]any{"type": "text", "text": v.Text}
	case *mcp.ImageContent:
		return map[string]any{"type": "image", "data": v.Data, "mimeType": v.MIMEType}
	case *mcp.AudioContent:
		return map[string]any{"type": "audio", "data": v.Data, "mimeType": v.MIMEType}
	case *mcp.ResourceLink:
		return map[string]any{"type": "resource_link", "uri": v.URI, "name": v.Name}
	case *mcp.EmbeddedResource:
		if v.Resource == nil {
			return nil
		}

		return map[string]any{
			"type": "resource",
			"resource": map[string]any{
				"uri":      v.Resource.URI,
				"mimeType": v.Resource.MIMEType,
				"text":     v.Resource.Text,
			},
		}
	default:
		return nil
	}
}

// asObject converts a JSON-marshalable value to a generic object, or nil.
func asObject(v any) map[string]any {
	if v == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var obj map[string]any
	if json.Unmarshal(raw, &obj) != nil {
		return nil
	}

	return obj
}
