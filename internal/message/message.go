// Package message maps decoded event lines from the peer onto typed
// messages, and builds the outgoing user-input envelope.
package message

import "strings"

// Message types on the wire.
const (
	TypeUser        = "user"
	TypeAssistant   = "assistant"
	TypeSystem      = "system"
	TypeResult      = "result"
	TypeStreamEvent = "stream_event"
)

// Message is one event message. Use a type switch on the concrete type.
type Message interface {
	MessageType() string
}

// Compile-time verification that all message types implement Message.
var (
	_ Message = (*UserMessage)(nil)
	_ Message = (*AssistantMessage)(nil)
	_ Message = (*SystemMessage)(nil)
	_ Message = (*ResultMessage)(nil)
	_ Message = (*StreamEvent)(nil)
)

// UserMessage echoes user input or carries tool results back to the model.
// Exactly one of Text and Blocks is set.
type UserMessage struct {
	Text            string
	Blocks          []Block
	UUID            string
	ParentToolUseID string
	ToolUseResult   map[string]any
}

// MessageType implements Message.
func (*UserMessage) MessageType() string { return TypeUser }

// AssistantMessage is model output.
type AssistantMessage struct {
	Content         []Block
	Model           string
	ParentToolUseID string
	// Error is set when the turn failed, e.g. "rate_limit" or "authentication_failed".
	Error string
}

// MessageType implements Message.
func (*AssistantMessage) MessageType() string { return TypeAssistant }

// TextContent joins the text blocks of the message.
func (m *AssistantMessage) TextContent() string {
	var sb strings.Builder

	for _, b := range m.Content {
		if tb, ok := b.(*TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}

	return sb.String()
}

// SystemMessage is session metadata such as the "init" announcement.
type SystemMessage struct {
	Subtype string
	Data    map[string]any
}

// MessageType implements Message.
func (*SystemMessage) MessageType() string { return TypeSystem }

// ResultMessage ends a turn.
//
//nolint:tagliatelle // peer uses snake_case
type ResultMessage struct {
	Subtype          string         `json:"subtype"`
	DurationMs       int64          `json:"duration_ms"`
	DurationAPIMs    int64          `json:"duration_api_ms"`
	IsError          bool           `json:"is_error"`
	NumTurns         int            `json:"num_turns"`
	SessionID        string         `json:"session_id"`
	TotalCostUSD     *float64       `json:"total_cost_usd,omitempty"`
	Usage            map[string]any `json:"usage,omitempty"`
	Result           string         `json:"result,omitempty"`
	StructuredOutput any            `json:"structured_output,omitempty"`
}

// MessageType implements Message.
func (*ResultMessage) MessageType() string { return TypeResult }

// StreamEvent wraps a raw partial-output event.
//
//nolint:tagliatelle // peer uses snake_case
type StreamEvent struct {
	UUID            string         `json:"uuid"`
	SessionID       string         `json:"session_id"`
	Event           map[string]any `json:"event"`
	ParentToolUseID string         `json:"parent_tool_use_id,omitempty"`
}

// MessageType implements Message.
func (*StreamEvent) MessageType() string { return TypeStreamEvent }

// UserInput is the envelope written to the peer for a new user turn.
//
//nolint:tagliatelle // peer uses snake_case
type UserInput struct {
	Type            string        `json:"type"`
	Message         UserInputBody `json:"message"`
	ParentToolUseID *string       `json:"parent_tool_use_id"`
	SessionID       string        `json:"session_id"`
}

// UserInputBody is the nested message of a UserInput.
type UserInputBody struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DefaultSessionID is used when the caller does not name a session.
const DefaultSessionID = "default"

// NewUserInput builds the envelope for one user turn.
func NewUserInput(text, sessionID string) *UserInput {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	return &UserInput{
		Type:      TypeUser,
		Message:   UserInputBody{Role: "user", Content: text},
		SessionID: sessionID,
	}
}
