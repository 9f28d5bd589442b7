// Package hook provides the lifecycle hook types a session registers with the
// peer: event kinds, matchers, decoded hook inputs and wire-encoded outputs.
//
// Matchers are evaluated by the peer. The engine only registers callbacks
// under generated ids and invokes them when the peer references an id.
package hook

import "slices"

// Event names a lifecycle point at which the peer may invoke a hook.
type Event string

const (
	// EventPreToolUse fires before a tool runs.
	EventPreToolUse Event = "PreToolUse"
	// EventPostToolUse fires after a tool completes.
	EventPostToolUse Event = "PostToolUse"
	// EventPostToolUseFailure fires after a tool fails.
	EventPostToolUseFailure Event = "PostToolUseFailure"
	// EventUserPromptSubmit fires when a prompt is submitted.
	EventUserPromptSubmit Event = "UserPromptSubmit"
	// EventStop fires when the agent stops.
	EventStop Event = "Stop"
	// EventSubagentStop fires when a subagent stops.
	EventSubagentStop Event = "SubagentStop"
	// EventPreCompact fires before the conversation is compacted.
	EventPreCompact Event = "PreCompact"

	// EventNotification fires when the peer emits a notification.
	EventNotification Event = "Notification"
	// EventSubagentStart fires when a subagent starts.
	EventSubagentStart Event = "SubagentStart"
	// EventPermissionRequest fires when the peer is about to ask for a permission.
	EventPermissionRequest Event = "PermissionRequest"
)

var knownEvents = []Event{
	EventPreToolUse,
	EventPostToolUse,
	EventPostToolUseFailure,
	EventUserPromptSubmit,
	EventStop,
	EventSubagentStop,
	EventPreCompact,
	EventNotification,
	EventSubagentStart,
	EventPermissionRequest,
}

// Events returns every event kind this package decodes, in a stable order.
func Events() []Event {
	return slices.Clone(knownEvents)
}

// Known reports whether e is one of the decoded event kinds.
func (e Event) Known() bool {
	return slices.Contains(knownEvents, e)
}

// CompactTrigger says what started a compaction.
type CompactTrigger string

const (
	// CompactTriggerManual is a user-requested compaction.
	CompactTriggerManual CompactTrigger = "manual"
	// CompactTriggerAuto is an automatic compaction.
	CompactTriggerAuto CompactTrigger = "auto"
)
