package mcp

import (
	"encoding/json"
	"fmt"
)

// ServerStatus is the connection state of one MCP server as reported by the peer.
type ServerStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // e.g. "connected", "failed", "pending"
}

// Status is the reply payload of an mcp_status control request.
type Status struct {
	MCPServers []ServerStatus `json:"mcpServers"`
}

// ParseStatus decodes an mcp_status reply payload.
func ParseStatus(payload map[string]any) (*Status, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode mcp status: %w", err)
	}

	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode mcp status: %w", err)
	}

	return &status, nil
}
