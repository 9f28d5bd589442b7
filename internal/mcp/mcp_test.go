package mcp

import (
	"context"
	"errors"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/wagiedev/claude-session-go/internal/errors"
)

func echoServer() *ToolServer {
	server := NewToolServer("tools", "1.0.0")
	server.AddTool(
		NewTool("echo", "echoes text", SimpleSchema(map[string]string{"text": "string"})),
		func(_ context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			text, _ := args["text"].(string)

			return TextResult("echo: " + text), nil
		},
	)
	server.AddTool(
		NewTool("fail", "always fails", nil),
		func(context.Context, *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			return nil, errors.New("boom")
		},
	)

	return server
}

func TestToolServer_ListTools(t *testing.T) {
	tools := echoServer().ListTools()
	require.Len(t, tools, 2)
	require.Equal(t, "echo", tools[0]["name"])
	require.Equal(t, "fail", tools[1]["name"])

	schema, ok := tools[0]["inputSchema"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "object", schema["type"])
	require.NotContains(t, tools[1], "inputSchema")
}

func TestToolServer_CallTool(t *testing.T) {
	server := echoServer()
	ctx := context.Background()

	result, err := server.CallTool(ctx, "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"content": []map[string]any{{"type": "text", "text": "echo: hi"}},
	}, result)

	failed, err := server.CallTool(ctx, "fail", nil)
	require.NoError(t, err)
	require.Equal(t, true, failed["is_error"])

	missing, err := server.CallTool(ctx, "nope", nil)
	require.NoError(t, err)
	require.Equal(t, true, missing["is_error"])
}

func TestResultToWire(t *testing.T) {
	require.Equal(t, map[string]any{"content": []map[string]any{}}, resultToWire(nil))

	got := resultToWire(&mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: "hello"},
			&mcpsdk.ImageContent{Data: []byte("img"), MIMEType: "image/png"},
			&mcpsdk.ResourceLink{URI: "file:///a.txt", Name: "a.txt"},
			&mcpsdk.EmbeddedResource{},
		},
		IsError: true,
	})

	content, ok := got["content"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, content, 3)
	require.Equal(t, "image", content[1]["type"])
	require.Equal(t, "resource_link", content[2]["type"])
	require.Equal(t, true, got["is_error"])
}

func TestRouter_Handle(t *testing.T) {
	router := NewRouter(map[string]ServerInstance{"tools": echoServer(), "empty": nil})
	ctx := context.Background()

	require.Equal(t, []string{"tools"}, router.Names())

	t.Run("initialize", func(t *testing.T) {
		resp, err := router.Handle(ctx, "tools", map[string]any{
			"jsonrpc": "2.0", "id": float64(1), "method": "initialize",
		})
		require.NoError(t, err)

		inner := resp["mcp_response"].(map[string]any)
		require.Equal(t, int64(1), inner["id"])

		result := inner["result"].(map[string]any)
		require.Equal(t, map[string]any{"name": "tools", "version": "1.0.0"}, result["serverInfo"])
	})

	t.Run("tools/call", func(t *testing.T) {
		resp, err := router.Handle(ctx, "tools", map[string]any{
			"jsonrpc": "2.0",
			"id":      "call-1",
			"method":  "tools/call",
			"params":  map[string]any{"name": "echo", "arguments": map[string]any{"text": "x"}},
		})
		require.NoError(t, err)

		inner := resp["mcp_response"].(map[string]any)
		require.Equal(t, "call-1", inner["id"])
		require.NotContains(t, inner, "error")
	})

	t.Run("tools/call without name", func(t *testing.T) {
		resp, err := router.Handle(ctx, "tools", map[string]any{"id": float64(2), "method": "tools/call"})
		require.NoError(t, err)

		rpcErr := resp["mcp_response"].(map[string]any)["error"].(map[string]any)
		require.Equal(t, codeInvalidParams, rpcErr["code"])
	})

	t.Run("unknown method", func(t *testing.T) {
		resp, err := router.Handle(ctx, "tools", map[string]any{"id": float64(3), "method": "prompts/list"})
		require.NoError(t, err)

		rpcErr := resp["mcp_response"].(map[string]any)["error"].(map[string]any)
		require.Equal(t, codeMethodNotFound, rpcErr["code"])
	})

	t.Run("unknown server is not supported", func(t *testing.T) {
		_, err := router.Handle(ctx, "missing", map[string]any{"method": "tools/list"})
		require.ErrorIs(t, err, sdkerrors.ErrNotSupported)
		require.ErrorContains(t, err, "MCP server 'missing' not found")
	})
}

func TestSimpleSchema(t *testing.T) {
	schema := SimpleSchema(map[string]string{
		"name":   "string",
		"active": "bool",
		"scores": "[]float64",
		"count":  "int64",
	})

	require.Equal(t, "object", schema.Type)
	require.ElementsMatch(t, []string{"name", "active", "scores", "count"}, schema.Required)
	require.Equal(t, "boolean", schema.Properties["active"].Type)
	require.Equal(t, "integer", schema.Properties["count"].Type)
	require.Equal(t, "array", schema.Properties["scores"].Type)
	require.Equal(t, "number", schema.Properties["scores"].Items.Type)
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(map[string]any{
		"mcpServers": []any{
			map[string]any{"name": "tools", "status": "connected"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, []ServerStatus{{Name: "tools", Status: "connected"}}, status.MCPServers)
}
