package message

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	sdkerrors "github.com/wagiedev/claude-session-go/internal/errors"
)

func TestDecode_Result(t *testing.T) {
	msg, err := Decode(map[string]any{
		"type":            "result",
		"subtype":         "success",
		"duration_ms":     float64(1200),
		"duration_api_ms": float64(900),
		"is_error":        false,
		"num_turns":       float64(3),
		"session_id":      "sess-9",
		"total_cost_usd":  0.0125,
		"result":          "done",
	})
	require.NoError(t, err)

	result, ok := msg.(*ResultMessage)
	require.True(t, ok)
	require.Equal(t, "success", result.Subtype)
	require.Equal(t, int64(1200), result.DurationMs)
	require.Equal(t, 3, result.NumTurns)
	require.Equal(t, "sess-9", result.SessionID)
	require.InDelta(t, 0.0125, *result.TotalCostUSD, 1e-9)
	require.Equal(t, "done", result.Result)
}

func TestDecode_Assistant(t *testing.T) {
	msg, err := Decode(map[string]any{
		"type":  "assistant",
		"error": "rate_limit",
		"message": map[string]any{
			"model": "claude-sonnet-4-5",
			"content": []any{
				map[string]any{"type": "text", "text": "Hello "},
				map[string]any{"type": "thinking", "thinking": "hmm", "signature": "sig"},
				map[string]any{"type": "tool_use", "id": "toolu_1", "name": "Bash", "input": map[string]any{"command": "ls"}},
				map[string]any{"type": "text", "text": "world"},
				map[string]any{"type": "server_tool_use", "id": "x"},
			},
		},
	})
	require.NoError(t, err)

	assistant, ok := msg.(*AssistantMessage)
	require.True(t, ok)
	require.Equal(t, "claude-sonnet-4-5", assistant.Model)
	require.Equal(t, "rate_limit", assistant.Error)
	require.Len(t, assistant.Content, 5)
	require.Equal(t, "Hello world", assistant.TextContent())

	toolUse, ok := assistant.Content[2].(*ToolUseBlock)
	require.True(t, ok)
	require.Equal(t, "Bash", toolUse.Name)

	unknown, ok := assistant.Content[4].(*UnknownBlock)
	require.True(t, ok)
	require.Equal(t, "server_tool_use", unknown.BlockType())
}

func TestDecode_User(t *testing.T) {
	t.Run("string content", func(t *testing.T) {
		msg, err := Decode(map[string]any{
			"type":    "user",
			"uuid":    "u-1",
			"message": map[string]any{"role": "user", "content": "hi"},
		})
		require.NoError(t, err)

		user, ok := msg.(*UserMessage)
		require.True(t, ok)
		require.Equal(t, "hi", user.Text)
		require.Equal(t, "u-1", user.UUID)
		require.Nil(t, user.Blocks)
	})

	t.Run("tool result blocks", func(t *testing.T) {
		msg, err := Decode(map[string]any{
			"type": "user",
			"message": map[string]any{
				"content": []any{
					map[string]any{"type": "tool_result", "tool_use_id": "toolu_1", "content": "ok", "is_error": true},
				},
			},
		})
		require.NoError(t, err)

		user, ok := msg.(*UserMessage)
		require.True(t, ok)
		require.Len(t, user.Blocks, 1)

		result, ok := user.Blocks[0].(*ToolResultBlock)
		require.True(t, ok)
		require.Equal(t, "toolu_1", result.ToolUseID)
		require.Equal(t, "ok", result.Content)
		require.True(t, result.IsError)
	})

	t.Run("invalid content", func(t *testing.T) {
		_, err := Decode(map[string]any{
			"type":    "user",
			"message": map[string]any{"content": 42.0},
		})
		require.Error(t, err)
	})
}

func TestDecode_System(t *testing.T) {
	msg, err := Decode(map[string]any{
		"type":       "system",
		"subtype":    "init",
		"session_id": "sess-1",
		"tools":      []any{"Bash"},
	})
	require.NoError(t, err)

	system, ok := msg.(*SystemMessage)
	require.True(t, ok)
	require.Equal(t, "init", system.Subtype)
	require.Equal(t, map[string]any{"session_id": "sess-1", "tools": []any{"Bash"}}, system.Data)
}

func TestDecode_StreamEvent(t *testing.T) {
	msg, err := Decode(map[string]any{
		"type":       "stream_event",
		"uuid":       "e-1",
		"session_id": "sess-1",
		"event":      map[string]any{"type": "content_block_delta"},
	})
	require.NoError(t, err)
	require.Equal(t, TypeStreamEvent, msg.MessageType())

	_, err = Decode(map[string]any{"type": "stream_event", "uuid": "e-1"})
	require.Error(t, err)
}

func TestDecode_Failures(t *testing.T) {
	t.Run("unknown type wraps sentinel", func(t *testing.T) {
		_, err := Decode(map[string]any{"type": "rate_limit_event"})
		require.ErrorIs(t, err, sdkerrors.ErrUnknownMessageType)

		parseErr, ok := errors.AsType[*sdkerrors.MessageParseError](err)
		require.True(t, ok)
		require.Equal(t, "rate_limit_event", parseErr.Data["type"])
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := Decode(map[string]any{"subtype": "success"})
		require.Error(t, err)
		require.NotErrorIs(t, err, sdkerrors.ErrUnknownMessageType)
	})

	t.Run("result without subtype", func(t *testing.T) {
		_, err := Decode(map[string]any{"type": "result"})
		require.ErrorContains(t, err, "subtype")
	})

	t.Run("assistant without message", func(t *testing.T) {
		_, err := Decode(map[string]any{"type": "assistant"})
		require.ErrorContains(t, err, "'message'")
	})
}

func TestNewUserInput(t *testing.T) {
	data, err := json.Marshal(NewUserInput("hello", ""))
	require.NoError(t, err)
	require.JSONEq(t, `{
		"type": "user",
		"message": {"role": "user", "content": "hello"},
		"parent_tool_use_id": null,
		"session_id": "default"
	}`, string(data))

	require.Equal(t, "s-2", NewUserInput("x", "s-2").SessionID)
}
