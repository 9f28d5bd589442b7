package message

import (
	"encoding/json"
	"fmt"
)

// Content block types.
const (
	BlockTypeText       = "text"
	BlockTypeThinking   = "thinking"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// Block is one element of message content.
type Block interface {
	BlockType() string
}

// Compile-time verification that all content block types implement Block.
var (
	_ Block = (*TextBlock)(nil)
	_ Block = (*ThinkingBlock)(nil)
	_ Block = (*ToolUseBlock)(nil)
	_ Block = (*ToolResultBlock)(nil)
	_ Block = (*UnknownBlock)(nil)
)

// TextBlock is plain text.
type TextBlock struct {
	Text string `json:"text"`
}

// BlockType implements Block.
func (*TextBlock) BlockType() string { return BlockTypeText }

// ThinkingBlock is extended reasoning.
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

// BlockType implements Block.
func (*ThinkingBlock) BlockType() string { return BlockTypeThinking }

// ToolUseBlock is a tool invocation by the model.
type ToolUseBlock struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// BlockType implements Block.
func (*ToolUseBlock) BlockType() string { return BlockTypeToolUse }

// ToolResultBlock is the result of a tool call. Content is either a string
// or a list of raw content objects, as sent by the peer.
//
//nolint:tagliatelle // peer uses snake_case
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   any    `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// BlockType implements Block.
func (*ToolResultBlock) BlockType() string { return BlockTypeToolResult }

// UnknownBlock keeps a block type this package does not model.
type UnknownBlock struct {
	Type string
	Raw  map[string]any
}

// BlockType implements Block.
func (b *UnknownBlock) BlockType() string { return b.Type }

func decodeBlocks(items []any) ([]Block, error) {
	blocks := make([]Block, 0, len(items))

	for i, item := range items {
		data, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("content block %d: not an object", i)
		}

		block, err := decodeBlock(data)
		if err != nil {
			return nil, fmt.Errorf("content block %d: %w", i, err)
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

func decodeBlock(data map[string]any) (Block, error) {
	blockType, ok := data["type"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'type' field")
	}

	var block Block

	switch blockType {
	case BlockTypeText:
		block = &TextBlock{}
	case BlockTypeThinking:
		block = &ThinkingBlock{}
	case BlockTypeToolUse:
		block = &ToolUseBlock{}
	case BlockTypeToolResult:
		block = &ToolResultBlock{}
	default:
		return &UnknownBlock{Type: blockType, Raw: data}, nil
	}

	if err := remarshal(data, block); err != nil {
		return nil, fmt.Errorf("%s block: %w", blockType, err)
	}

	return block, nil
}

func remarshal(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, dst)
}
