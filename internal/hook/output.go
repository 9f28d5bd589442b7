package hook

import (
	"fmt"
	"maps"
)

// Output is the result a hook callback hands back to the peer.
// It is either *SyncOutput or *AsyncOutput.
type Output interface {
	hookOutput()
}

// AsyncOutput defers the hook: the peer continues without waiting.
type AsyncOutput struct {
	Async        bool `json:"async"`
	AsyncTimeout *int `json:"asyncTimeout,omitempty"` // milliseconds
}

func (*AsyncOutput) hookOutput() {}

// SyncOutput controls execution immediately.
// A nil Continue leaves the peer's default (continue) in place.
type SyncOutput struct {
	Continue           *bool          `json:"continue,omitempty"`
	SuppressOutput     *bool          `json:"suppressOutput,omitempty"`
	StopReason         *string        `json:"stopReason,omitempty"`
	Decision           *string        `json:"decision,omitempty"` // "block"
	SystemMessage      *string        `json:"systemMessage,omitempty"`
	Reason             *string        `json:"reason,omitempty"`
	HookSpecificOutput SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

func (*SyncOutput) hookOutput() {}

// SpecificOutput is the event-specific part of a SyncOutput.
// Its "hookEventName" wire field is filled from EventName on encode.
type SpecificOutput interface {
	EventName() Event
}

// Compile-time verification of the event-specific outputs.
var (
	_ SpecificOutput = (*PreToolUseOutput)(nil)
	_ SpecificOutput = (*PostToolUseOutput)(nil)
	_ SpecificOutput = (*ContextOutput)(nil)
	_ SpecificOutput = (*PermissionRequestOutput)(nil)
)

// PreToolUseOutput can allow, deny or rewrite a pending tool call.
type PreToolUseOutput struct {
	PermissionDecision       string         `json:"permissionDecision,omitempty"` // "allow", "deny" or "ask"
	PermissionDecisionReason string         `json:"permissionDecisionReason,omitempty"`
	UpdatedInput             map[string]any `json:"updatedInput,omitempty"`
	AdditionalContext        string         `json:"additionalContext,omitempty"`
}

// EventName implements SpecificOutput.
func (*PreToolUseOutput) EventName() Event { return EventPreToolUse }

// PostToolUseOutput adds context after a tool ran.
type PostToolUseOutput struct {
	AdditionalContext    string `json:"additionalContext,omitempty"`
	UpdatedMCPToolOutput any    `json:"updatedMCPToolOutput,omitempty"` //nolint:tagliatelle // wire name uses the MCP acronym
}

// EventName implements SpecificOutput.
func (*PostToolUseOutput) EventName() Event { return EventPostToolUse }

// ContextOutput adds context for events whose only specific output is
// additionalContext (UserPromptSubmit, PostToolUseFailure, Notification,
// SubagentStart).
type ContextOutput struct {
	Event             Event  `json:"-"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// EventName implements SpecificOutput. A nil receiver has no event.
func (c *ContextOutput) EventName() Event {
	if c == nil {
		return ""
	}

	return c.Event
}

// PermissionRequestOutput answers a PermissionRequest hook.
type PermissionRequestOutput struct {
	Decision map[string]any `json:"decision,omitempty"`
}

// EventName implements SpecificOutput.
func (*PermissionRequestOutput) EventName() Event { return EventPermissionRequest }

// EncodeOutput converts a callback result to its wire object. The async and
// continue flags are emitted under their wire names. A nil output encodes as
// an empty object.
func EncodeOutput(out Output) (map[string]any, error) {
	result := make(map[string]any, 8)
	if out == nil {
		return result, nil
	}

	if err := remarshal(out, &result); err != nil {
		return nil, fmt.Errorf("encode hook output: %w", err)
	}

	if so, ok := out.(*SyncOutput); ok && so.HookSpecificOutput != nil {
		// Dropped when there is no event name to tag it with.
		if so.HookSpecificOutput.EventName() == "" {
			delete(result, "hookSpecificOutput")

			return result, nil
		}

		specific, _ := result["hookSpecificOutput"].(map[string]any)
		if specific == nil {
			specific = make(map[string]any, 1)
		}

		specific["hookEventName"] = string(so.HookSpecificOutput.EventName())
		result["hookSpecificOutput"] = specific
	}

	return result, nil
}

// DecodeOutput is the inverse of EncodeOutput. An object carrying an
// "async" key decodes as *AsyncOutput, anything else as *SyncOutput.
func DecodeOutput(data map[string]any) (Output, error) {
	if _, ok := data["async"]; ok {
		out := &AsyncOutput{}
		if err := remarshal(data, out); err != nil {
			return nil, fmt.Errorf("decode async hook output: %w", err)
		}

		return out, nil
	}

	rest := maps.Clone(data)
	specificData, hasSpecific := rest["hookSpecificOutput"].(map[string]any)
	delete(rest, "hookSpecificOutput")

	out := &SyncOutput{}
	if err := remarshal(rest, out); err != nil {
		return nil, fmt.Errorf("decode hook output: %w", err)
	}

	if hasSpecific {
		specific, err := decodeSpecific(specificData)
		if err != nil {
			return nil, err
		}

		out.HookSpecificOutput = specific
	}

	return out, nil
}

func decodeSpecific(data map[string]any) (SpecificOutput, error) {
	name, _ := data["hookEventName"].(string)

	var target SpecificOutput

	switch Event(name) {
	case EventPreToolUse:
		target = &PreToolUseOutput{}
	case EventPostToolUse:
		target = &PostToolUseOutput{}
	case EventPermissionRequest:
		target = &PermissionRequestOutput{}
	default:
		target = &ContextOutput{Event: Event(name)}
	}

	if err := remarshal(data, target); err != nil {
		return nil, fmt.Errorf("decode %s specific output: %w", name, err)
	}

	return target, nil
}
