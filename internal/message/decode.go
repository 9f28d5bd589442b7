package message

import (
	"fmt"
	"maps"

	"github.com/wagiedev/claude-session-go/internal/errors"
)

type decoder func(data map[string]any) (Message, error)

var decoders = map[string]decoder{
	TypeUser:        decodeUser,
	TypeAssistant:   decodeAssistant,
	TypeSystem:      decodeSystem,
	TypeResult:      decodeResult,
	TypeStreamEvent: decodeStreamEvent,
}

// Decode maps one decoded event line onto a typed Message. It holds no
// state and may be called concurrently.
//
// Failures are *errors.MessageParseError. An unrecognised "type" wraps
// errors.ErrUnknownMessageType so consumers can choose to skip it.
func Decode(data map[string]any) (Message, error) {
	msgType, ok := data["type"].(string)
	if !ok {
		return nil, &errors.MessageParseError{
			Message: "missing or invalid 'type' field",
			Data:    data,
		}
	}

	decode, ok := decoders[msgType]
	if !ok {
		return nil, &errors.MessageParseError{
			Message: fmt.Sprintf("unknown message type: %s", msgType),
			Err:     errors.ErrUnknownMessageType,
			Data:    data,
		}
	}

	msg, err := decode(data)
	if err != nil {
		return nil, &errors.MessageParseError{
			Message: err.Error(),
			Err:     err,
			Data:    data,
		}
	}

	return msg, nil
}

// The peer nests user and assistant content under "message".
func nested(data map[string]any, kind string) (map[string]any, error) {
	inner, ok := data["message"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s message: missing or invalid 'message' field", kind)
	}

	return inner, nil
}

func decodeUser(data map[string]any) (Message, error) {
	inner, err := nested(data, TypeUser)
	if err != nil {
		return nil, err
	}

	msg := &UserMessage{}
	msg.UUID, _ = data["uuid"].(string)
	msg.ParentToolUseID, _ = data["parent_tool_use_id"].(string)
	msg.ToolUseResult, _ = data["tool_use_result"].(map[string]any)

	switch content := inner["content"].(type) {
	case string:
		msg.Text = content
	case []any:
		blocks, err := decodeBlocks(content)
		if err != nil {
			return nil, fmt.Errorf("user message: %w", err)
		}

		msg.Blocks = blocks
	default:
		return nil, fmt.Errorf("user message: content must be a string or an array")
	}

	return msg, nil
}

func decodeAssistant(data map[string]any) (Message, error) {
	inner, err := nested(data, TypeAssistant)
	if err != nil {
		return nil, err
	}

	msg := &AssistantMessage{}
	msg.Model, _ = inner["model"].(string)
	msg.ParentToolUseID, _ = data["parent_tool_use_id"].(string)
	msg.Error, _ = data["error"].(string)

	if items, ok := inner["content"].([]any); ok {
		blocks, err := decodeBlocks(items)
		if err != nil {
			return nil, fmt.Errorf("assistant message: %w", err)
		}

		msg.Content = blocks
	}

	return msg, nil
}

func decodeSystem(data map[string]any) (Message, error) {
	subtype, ok := data["subtype"].(string)
	if !ok {
		return nil, fmt.Errorf("system message: missing or invalid 'subtype' field")
	}

	// "init" and friends put their fields at the top level.
	payload, ok := data["data"].(map[string]any)
	if !ok {
		payload = maps.Clone(data)
		delete(payload, "type")
		delete(payload, "subtype")
	}

	return &SystemMessage{Subtype: subtype, Data: payload}, nil
}

func decodeResult(data map[string]any) (Message, error) {
	if _, ok := data["subtype"].(string); !ok {
		return nil, fmt.Errorf("result message: missing or invalid 'subtype' field")
	}

	msg := &ResultMessage{}
	if err := remarshal(data, msg); err != nil {
		return nil, fmt.Errorf("result message: %w", err)
	}

	return msg, nil
}

func decodeStreamEvent(data map[string]any) (Message, error) {
	msg := &StreamEvent{}
	if err := remarshal(data, msg); err != nil {
		return nil, fmt.Errorf("stream_event: %w", err)
	}

	if msg.UUID == "" || msg.SessionID == "" || msg.Event == nil {
		return nil, fmt.Errorf("stream_event: requires uuid, session_id and event")
	}

	return msg, nil
}
