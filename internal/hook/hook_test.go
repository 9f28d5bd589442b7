package hook

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func baseFields(event Event) map[string]any {
	return map[string]any{
		"hook_event_name": string(event),
		"session_id":      "sess-1",
		"transcript_path": "/tmp/t.jsonl",
		"cwd":             "/work",
	}
}

func with(m map[string]any, kv ...any) map[string]any {
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}

	return m
}

func TestDecodeInput_Variants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		data  map[string]any
		check func(t *testing.T, in Input)
	}{
		{
			name: "pre tool use",
			data: with(baseFields(EventPreToolUse),
				"tool_name", "Bash",
				"tool_input", map[string]any{"command": "ls"},
				"tool_use_id", "toolu_1"),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*PreToolUseInput)
				require.True(t, ok)
				require.Equal(t, "Bash", got.ToolName)
				require.Equal(t, "ls", got.ToolInput["command"])
				require.Equal(t, "toolu_1", got.ToolUseID)
			},
		},
		{
			name: "post tool use",
			data: with(baseFields(EventPostToolUse),
				"tool_name", "Read",
				"tool_input", map[string]any{},
				"tool_response", "contents"),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*PostToolUseInput)
				require.True(t, ok)
				require.Equal(t, "contents", got.ToolResponse)
			},
		},
		{
			name: "post tool use failure",
			data: with(baseFields(EventPostToolUseFailure),
				"tool_name", "Write",
				"error", "disk full",
				"is_interrupt", true),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*PostToolUseFailureInput)
				require.True(t, ok)
				require.Equal(t, "disk full", got.Error)
				require.NotNil(t, got.IsInterrupt)
				require.True(t, *got.IsInterrupt)
			},
		},
		{
			name: "user prompt submit",
			data: with(baseFields(EventUserPromptSubmit), "prompt", "hello"),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*UserPromptSubmitInput)
				require.True(t, ok)
				require.Equal(t, "hello", got.Prompt)
			},
		},
		{
			name: "stop",
			data: with(baseFields(EventStop), "stop_hook_active", true),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*StopInput)
				require.True(t, ok)
				require.True(t, got.StopHookActive)
			},
		},
		{
			name: "subagent stop",
			data: with(baseFields(EventSubagentStop), "stop_hook_active", false, "agent_id", "a-1"),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*SubagentStopInput)
				require.True(t, ok)
				require.Equal(t, "a-1", got.AgentID)
			},
		},
		{
			name: "pre compact",
			data: with(baseFields(EventPreCompact), "trigger", "auto", "custom_instructions", "keep tests"),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*PreCompactInput)
				require.True(t, ok)
				require.Equal(t, CompactTriggerAuto, got.Trigger)
				require.Equal(t, "keep tests", *got.CustomInstructions)
			},
		},
		{
			name: "notification",
			data: with(baseFields(EventNotification), "message", "idle", "notification_type", "idle_prompt"),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*NotificationInput)
				require.True(t, ok)
				require.Equal(t, "idle", got.Message)
			},
		},
		{
			name: "unknown event keeps raw fields",
			data: with(baseFields("SessionStart"), "source", "startup"),
			check: func(t *testing.T, in Input) {
				got, ok := in.(*GenericInput)
				require.True(t, ok)
				require.Equal(t, Event("SessionStart"), got.EventName())
				require.Equal(t, "startup", got.Raw["source"])
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in, err := DecodeInput(tc.data)
			require.NoError(t, err)
			require.Equal(t, "sess-1", in.Common().SessionID)
			require.Equal(t, "/work", in.Common().Cwd)
			tc.check(t, in)
		})
	}
}

func TestDecodeInput_Errors(t *testing.T) {
	_, err := DecodeInput(nil)
	require.Error(t, err)

	_, err = DecodeInput(with(baseFields(EventPreToolUse), "tool_input", "not-an-object"))
	require.ErrorContains(t, err, "PreToolUse")
}

func TestEncodeOutput_WireNames(t *testing.T) {
	t.Run("async", func(t *testing.T) {
		got, err := EncodeOutput(&AsyncOutput{Async: true, AsyncTimeout: ptr(5000)})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"async": true, "asyncTimeout": float64(5000)}, got)
	})

	t.Run("sync", func(t *testing.T) {
		got, err := EncodeOutput(&SyncOutput{
			Continue:   ptr(false),
			StopReason: ptr("blocked by policy"),
		})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"continue": false, "stopReason": "blocked by policy"}, got)
	})

	t.Run("nil output is empty", func(t *testing.T) {
		got, err := EncodeOutput(nil)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("specific output carries event name", func(t *testing.T) {
		got, err := EncodeOutput(&SyncOutput{
			HookSpecificOutput: &PreToolUseOutput{
				PermissionDecision:       "deny",
				PermissionDecisionReason: "rm is not allowed",
			},
		})
		require.NoError(t, err)
		require.Equal(t, map[string]any{
			"hookSpecificOutput": map[string]any{
				"hookEventName":            "PreToolUse",
				"permissionDecision":       "deny",
				"permissionDecisionReason": "rm is not allowed",
			},
		}, got)
	})

	t.Run("nil context output is dropped", func(t *testing.T) {
		var specific *ContextOutput

		got, err := EncodeOutput(&SyncOutput{Continue: ptr(true), HookSpecificOutput: specific})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"continue": true}, got)
	})
}

func TestOutput_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		out  Output
	}{
		{name: "async", out: &AsyncOutput{Async: true, AsyncTimeout: ptr(250)}},
		{name: "async without timeout", out: &AsyncOutput{Async: true}},
		{name: "empty sync", out: &SyncOutput{}},
		{
			name: "full sync",
			out: &SyncOutput{
				Continue:       ptr(false),
				SuppressOutput: ptr(true),
				Decision:       ptr("block"),
				SystemMessage:  ptr("stopping"),
				Reason:         ptr("policy"),
				HookSpecificOutput: &PreToolUseOutput{
					PermissionDecision: "allow",
					UpdatedInput:       map[string]any{"command": "ls -la"},
				},
			},
		},
		{
			name: "context output",
			out: &SyncOutput{
				Continue:           ptr(true),
				HookSpecificOutput: &ContextOutput{Event: EventUserPromptSubmit, AdditionalContext: "today is Monday"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wire, err := EncodeOutput(tc.out)
			require.NoError(t, err)

			decoded, err := DecodeOutput(wire)
			require.NoError(t, err)
			require.Equal(t, tc.out, decoded)
		})
	}
}

func TestEvents(t *testing.T) {
	events := Events()
	require.Len(t, events, 10)
	require.True(t, EventPreCompact.Known())
	require.False(t, Event("Bogus").Known())

	events[0] = "mutated"
	require.Equal(t, EventPreToolUse, Events()[0])
}
