package hook

import (
	"encoding/json"
	"fmt"
)

// Input is the decoded payload the peer sends with a hook callback request.
// Use a type switch on the concrete variant to reach event-specific fields.
type Input interface {
	EventName() Event
	Common() *BaseInput
}

// Compile-time verification that all hook input variants implement Input.
var (
	_ Input = (*PreToolUseInput)(nil)
	_ Input = (*PostToolUseInput)(nil)
	_ Input = (*PostToolUseFailureInput)(nil)
	_ Input = (*UserPromptSubmitInput)(nil)
	_ Input = (*StopInput)(nil)
	_ Input = (*SubagentStopInput)(nil)
	_ Input = (*PreCompactInput)(nil)
	_ Input = (*NotificationInput)(nil)
	_ Input = (*SubagentStartInput)(nil)
	_ Input = (*PermissionRequestInput)(nil)
	_ Input = (*GenericInput)(nil)
)

// BaseInput holds the fields shared by every hook input.
//
//nolint:tagliatelle // peer uses snake_case
type BaseInput struct {
	HookEventName  Event  `json:"hook_event_name"`
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	PermissionMode string `json:"permission_mode,omitempty"`
}

// EventName implements Input.
func (b *BaseInput) EventName() Event { return b.HookEventName }

// Common implements Input.
func (b *BaseInput) Common() *BaseInput { return b }

// PreToolUseInput is sent before a tool runs.
//
//nolint:tagliatelle // peer uses snake_case
type PreToolUseInput struct {
	BaseInput
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// PostToolUseInput is sent after a tool completes.
//
//nolint:tagliatelle // peer uses snake_case
type PostToolUseInput struct {
	BaseInput
	ToolName     string         `json:"tool_name"`
	ToolInput    map[string]any `json:"tool_input"`
	ToolResponse any            `json:"tool_response"`
	ToolUseID    string         `json:"tool_use_id,omitempty"`
}

// PostToolUseFailureInput is sent after a tool fails.
//
//nolint:tagliatelle // peer uses snake_case
type PostToolUseFailureInput struct {
	BaseInput
	ToolName    string         `json:"tool_name"`
	ToolInput   map[string]any `json:"tool_input"`
	ToolUseID   string         `json:"tool_use_id,omitempty"`
	Error       string         `json:"error"`
	IsInterrupt *bool          `json:"is_interrupt,omitempty"`
}

// UserPromptSubmitInput is sent when a prompt is submitted.
type UserPromptSubmitInput struct {
	BaseInput
	Prompt string `json:"prompt"`
}

// StopInput is sent when the agent stops.
//
//nolint:tagliatelle // peer uses snake_case
type StopInput struct {
	BaseInput
	StopHookActive bool `json:"stop_hook_active"`
}

// SubagentStopInput is sent when a subagent stops.
//
//nolint:tagliatelle // peer uses snake_case
type SubagentStopInput struct {
	BaseInput
	StopHookActive      bool   `json:"stop_hook_active"`
	AgentID             string `json:"agent_id,omitempty"`
	AgentType           string `json:"agent_type,omitempty"`
	AgentTranscriptPath string `json:"agent_transcript_path,omitempty"`
}

// PreCompactInput is sent before compaction.
//
//nolint:tagliatelle // peer uses snake_case
type PreCompactInput struct {
	BaseInput
	Trigger            CompactTrigger `json:"trigger"`
	CustomInstructions *string        `json:"custom_instructions,omitempty"`
}

// NotificationInput is sent when the peer emits a notification.
//
//nolint:tagliatelle // peer uses snake_case
type NotificationInput struct {
	BaseInput
	Message          string `json:"message"`
	Title            string `json:"title,omitempty"`
	NotificationType string `json:"notification_type,omitempty"`
}

// SubagentStartInput is sent when a subagent starts.
//
//nolint:tagliatelle // peer uses snake_case
type SubagentStartInput struct {
	BaseInput
	AgentID   string `json:"agent_id"`
	AgentType string `json:"agent_type"`
}

// PermissionRequestInput is sent before the peer asks for a tool permission.
//
//nolint:tagliatelle // peer uses snake_case
type PermissionRequestInput struct {
	BaseInput
	ToolName              string           `json:"tool_name"`
	ToolInput             map[string]any   `json:"tool_input"`
	PermissionSuggestions []map[string]any `json:"permission_suggestions,omitempty"`
}

// GenericInput carries an event this package does not model.
// Raw holds every field the peer sent.
type GenericInput struct {
	BaseInput
	Raw map[string]any `json:"-"`
}

// DecodeInput selects the input variant by the "hook_event_name" tag and
// decodes the payload into it. Unknown event names yield a *GenericInput.
func DecodeInput(data map[string]any) (Input, error) {
	if data == nil {
		return nil, fmt.Errorf("hook input is missing")
	}

	name, _ := data["hook_event_name"].(string)

	var target Input

	switch Event(name) {
	case EventPreToolUse:
		target = &PreToolUseInput{}
	case EventPostToolUse:
		target = &PostToolUseInput{}
	case EventPostToolUseFailure:
		target = &PostToolUseFailureInput{}
	case EventUserPromptSubmit:
		target = &UserPromptSubmitInput{}
	case EventStop:
		target = &StopInput{}
	case EventSubagentStop:
		target = &SubagentStopInput{}
	case EventPreCompact:
		target = &PreCompactInput{}
	case EventNotification:
		target = &NotificationInput{}
	case EventSubagentStart:
		target = &SubagentStartInput{}
	case EventPermissionRequest:
		target = &PermissionRequestInput{}
	default:
		target = &GenericInput{Raw: data}
	}

	if err := remarshal(data, target); err != nil {
		return nil, fmt.Errorf("decode %s hook input: %w", name, err)
	}

	return target, nil
}

// remarshal converts between a generic JSON value and a typed struct.
func remarshal(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, dst)
}
