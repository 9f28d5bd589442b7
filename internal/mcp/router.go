package mcp

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/wagiedev/claude-session-go/internal/errors"
)

// JSON-RPC error codes used in mcp_response errors.
const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

const protocolVersion = "2024-11-05"

// Router answers mcp_message control requests for registered servers.
// The server set is fixed at construction.
type Router struct {
	servers map[string]ServerInstance
}

// NewRouter creates a router over the given servers. Nil entries are ignored.
func NewRouter(servers map[string]ServerInstance) *Router {
	r := &Router{servers: make(map[string]ServerInstance, len(servers))}

	for name, srv := range servers {
		if srv != nil {
			r.servers[name] = srv
		}
	}

	return r
}

// Names returns the registered server names, sorted.
func (r *Router) Names() []string {
	return slices.Sorted(maps.Keys(r.servers))
}

// Len returns the number of registered servers.
func (r *Router) Len() int { return len(r.servers) }

// Handle answers one tunnelled JSON-RPC message. The returned payload is
// {"mcp_response": <JSON-RPC reply>}. Messages for an unregistered server
// fail with an error wrapping errors.ErrNotSupported.
func (r *Router) Handle(ctx context.Context, serverName string, message map[string]any) (map[string]any, error) {
	server, ok := r.servers[serverName]
	if !ok {
		return nil, fmt.Errorf("MCP server '%s' not found: %w", serverName, errors.ErrNotSupported)
	}

	if message == nil {
		return nil, fmt.Errorf("mcp_message for '%s' is missing 'message'", serverName)
	}

	id := message["id"]
	if f, ok := id.(float64); ok && f == float64(int64(f)) {
		id = int64(f)
	}

	method, _ := message["method"].(string)
	params, _ := message["params"].(map[string]any)

	switch method {
	case "initialize":
		return reply(id, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    server.Name(),
				"version": server.Version(),
			},
		}), nil

	case "notifications/initialized":
		return reply(id, map[string]any{}), nil

	case "tools/list":
		return reply(id, map[string]any{"tools": server.ListTools()}), nil

	case "tools/call":
		name, _ := params["name"].(string)
		if name == "" {
			return replyError(id, codeInvalidParams, "Missing tool name in params"), nil
		}

		args, _ := params["arguments"].(map[string]any)

		result, err := server.CallTool(ctx, name, args)
		if err != nil {
			return replyError(id, codeInternalError, err.Error()), nil
		}

		return reply(id, result), nil

	default:
		return replyError(id, codeMethodNotFound, "Method not found: "+method), nil
	}
}

func reply(id any, result map[string]any) map[string]any {
	return map[string]any{
		"mcp_response": map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"result":  result,
		},
	}
}

func replyError(id any, code int, message string) map[string]any {
	return map[string]any{
		"mcp_response": map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
	}
}
