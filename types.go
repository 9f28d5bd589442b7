package claudesession

import (
	"github.com/wagiedev/claude-session-go/internal/hook"
	"github.com/wagiedev/claude-session-go/internal/mcp"
	"github.com/wagiedev/claude-session-go/internal/message"
	"github.com/wagiedev/claude-session-go/internal/permission"
)

// ===== Messages =====

// Message is an event message from the peer.
type Message = message.Message

type (
	// UserMessage echoes user input or carries tool results.
	UserMessage = message.UserMessage
	// AssistantMessage carries model output blocks.
	AssistantMessage = message.AssistantMessage
	// SystemMessage carries peer status such as the init announcement.
	SystemMessage = message.SystemMessage
	// ResultMessage ends a turn with cost and usage figures.
	ResultMessage = message.ResultMessage
	// StreamEvent is a raw partial-output event.
	StreamEvent = message.StreamEvent
)

// ContentBlock is one block of a user or assistant message.
type ContentBlock = message.Block

type (
	TextBlock       = message.TextBlock
	ThinkingBlock   = message.ThinkingBlock
	ToolUseBlock    = message.ToolUseBlock
	ToolResultBlock = message.ToolResultBlock
)

// ===== Hooks =====

// HookEvent names a point in the agent loop where hooks run.
type HookEvent = hook.Event

const (
	HookEventPreToolUse         = hook.EventPreToolUse
	HookEventPostToolUse        = hook.EventPostToolUse
	HookEventPostToolUseFailure = hook.EventPostToolUseFailure
	HookEventUserPromptSubmit   = hook.EventUserPromptSubmit
	HookEventStop               = hook.EventStop
	HookEventSubagentStop       = hook.EventSubagentStop
	HookEventPreCompact         = hook.EventPreCompact
	HookEventNotification       = hook.EventNotification
	HookEventSubagentStart      = hook.EventSubagentStart
	HookEventPermissionRequest  = hook.EventPermissionRequest
)

type (
	// HookMatcher groups hook callbacks under a tool-name filter.
	HookMatcher = hook.Matcher
	// HookCallback is invoked when the peer fires a registered hook.
	HookCallback = hook.Callback
	// HookContext accompanies each hook invocation.
	HookContext = hook.Context
	// HookInput is the decoded event payload handed to a hook.
	HookInput = hook.Input
	// HookOutput is what a hook returns: *SyncHookOutput or *AsyncHookOutput.
	HookOutput = hook.Output
)

type (
	BaseHookInput               = hook.BaseInput
	PreToolUseHookInput         = hook.PreToolUseInput
	PostToolUseHookInput        = hook.PostToolUseInput
	PostToolUseFailureHookInput = hook.PostToolUseFailureInput
	UserPromptSubmitHookInput   = hook.UserPromptSubmitInput
	StopHookInput               = hook.StopInput
	SubagentStopHookInput       = hook.SubagentStopInput
	PreCompactHookInput         = hook.PreCompactInput
	NotificationHookInput       = hook.NotificationInput
	SubagentStartHookInput      = hook.SubagentStartInput
	PermissionRequestHookInput  = hook.PermissionRequestInput
	GenericHookInput            = hook.GenericInput
)

type (
	SyncHookOutput              = hook.SyncOutput
	AsyncHookOutput             = hook.AsyncOutput
	PreToolUseHookOutput        = hook.PreToolUseOutput
	PostToolUseHookOutput       = hook.PostToolUseOutput
	ContextHookOutput           = hook.ContextOutput
	PermissionRequestHookOutput = hook.PermissionRequestOutput
)

// ===== Tool permission =====

// CanUseToolFunc decides whether the peer may run a tool.
type CanUseToolFunc = permission.Callback

type (
	ToolPermissionContext = permission.Context
	PermissionResult      = permission.Result
	PermissionResultAllow = permission.ResultAllow
	PermissionResultDeny  = permission.ResultDeny
	PermissionUpdate      = permission.Update
	PermissionRule        = permission.Rule
	PermissionMode        = permission.Mode
)

const (
	PermissionModeDefault           = permission.ModeDefault
	PermissionModeAcceptEdits       = permission.ModeAcceptEdits
	PermissionModePlan              = permission.ModePlan
	PermissionModeBypassPermissions = permission.ModeBypassPermissions
	PermissionModeDontAsk           = permission.ModeDontAsk
)

// ===== MCP =====

// MCPServer is an in-process tool server registered with WithMCPServer.
type MCPServer = mcp.ServerInstance

type (
	// MCPStatus is the reply of MCPStatus.
	MCPStatus = mcp.Status
	// MCPServerStatus is the state of one server within MCPStatus.
	MCPServerStatus = mcp.ServerStatus
)
