// Package mcp hosts in-process Model Context Protocol tool servers and routes
// the peer's mcp_message control requests to them.
//
// Tools are declared with the official MCP Go SDK types. Calls arrive as
// JSON-RPC messages tunnelled through the control protocol rather than over
// an MCP transport, so the server keeps its own registry and invokes tool
// handlers directly.
package mcp
