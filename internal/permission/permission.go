// Package permission holds the tool-permission callback contract: the
// context the peer supplies, suggested rule updates, and allow/deny results.
package permission

import (
	"context"
	"encoding/json"
	"fmt"
)

// Mode is a session-wide permission mode.
type Mode string

const (
	// ModeDefault prompts on sensitive operations.
	ModeDefault Mode = "default"
	// ModeAcceptEdits accepts file edits automatically.
	ModeAcceptEdits Mode = "acceptEdits"
	// ModePlan only plans, never executes.
	ModePlan Mode = "plan"
	// ModeBypassPermissions skips all permission checks.
	ModeBypassPermissions Mode = "bypassPermissions"
	// ModeDontAsk denies anything that would prompt.
	ModeDontAsk Mode = "dontAsk"
)

// NormalizeMode maps legacy mode names onto the current ones:
// "acceptAll" becomes "bypassPermissions" and "prompt" becomes "default".
func NormalizeMode(mode string) Mode {
	switch mode {
	case "acceptAll":
		return ModeBypassPermissions
	case "prompt":
		return ModeDefault
	default:
		return Mode(mode)
	}
}

// UpdateType is the kind of change a permission update applies.
type UpdateType string

const (
	UpdateTypeAddRules          UpdateType = "addRules"
	UpdateTypeReplaceRules      UpdateType = "replaceRules"
	UpdateTypeRemoveRules       UpdateType = "removeRules"
	UpdateTypeSetMode           UpdateType = "setMode"
	UpdateTypeAddDirectories    UpdateType = "addDirectories"
	UpdateTypeRemoveDirectories UpdateType = "removeDirectories"
)

// Destination is where a permission update is persisted.
type Destination string

const (
	DestinationUserSettings    Destination = "userSettings"
	DestinationProjectSettings Destination = "projectSettings"
	DestinationLocalSettings   Destination = "localSettings"
	DestinationSession         Destination = "session"
)

// Behavior is the decision attached to a rule.
type Behavior string

const (
	BehaviorAllow Behavior = "allow"
	BehaviorDeny  Behavior = "deny"
	BehaviorAsk   Behavior = "ask"
)

// Rule matches one tool, optionally narrowed by rule content.
type Rule struct {
	ToolName    string `json:"toolName"`
	RuleContent string `json:"ruleContent,omitempty"`
}

// Update is a permission change, either suggested by the peer or returned
// by the host alongside an allow result.
type Update struct {
	Type        UpdateType  `json:"type"`
	Rules       []Rule      `json:"rules,omitempty"`
	Behavior    Behavior    `json:"behavior,omitempty"`
	Mode        Mode        `json:"mode,omitempty"`
	Directories []string    `json:"directories,omitempty"`
	Destination Destination `json:"destination,omitempty"`
}

// ToWire converts the update to its wire object.
func (u *Update) ToWire() map[string]any {
	result := make(map[string]any, 6)
	result["type"] = string(u.Type)

	if len(u.Rules) > 0 {
		rules := make([]any, len(u.Rules))
		for i, rule := range u.Rules {
			r := map[string]any{"toolName": rule.ToolName}
			if rule.RuleContent != "" {
				r["ruleContent"] = rule.RuleContent
			}

			rules[i] = r
		}

		result["rules"] = rules
	}

	if u.Behavior != "" {
		result["behavior"] = string(u.Behavior)
	}

	if u.Mode != "" {
		result["mode"] = string(u.Mode)
	}

	if len(u.Directories) > 0 {
		dirs := make([]any, len(u.Directories))
		for i, d := range u.Directories {
			dirs[i] = d
		}

		result["directories"] = dirs
	}

	if u.Destination != "" {
		result["destination"] = string(u.Destination)
	}

	return result
}

// ParseUpdates decodes a suggestion list from the peer. Entries that are
// not objects or do not decode are skipped.
func ParseUpdates(raw []any) []*Update {
	if len(raw) == 0 {
		return nil
	}

	updates := make([]*Update, 0, len(raw))

	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		data, err := json.Marshal(obj)
		if err != nil {
			continue
		}

		var u Update
		if err := json.Unmarshal(data, &u); err != nil || u.Type == "" {
			continue
		}

		updates = append(updates, &u)
	}

	return updates
}

// Context accompanies a permission request.
type Context struct {
	// Suggestions are updates the peer proposes the host could apply.
	Suggestions []*Update
	// BlockedPath is the path that triggered the request, if any.
	BlockedPath string
	// ToolUseID identifies the pending tool call, if the peer sent one.
	ToolUseID string
}

// Result is the host's decision: *ResultAllow or *ResultDeny.
type Result interface {
	Behavior() Behavior
}

// Compile-time verification that permission result types implement Result.
var (
	_ Result = (*ResultAllow)(nil)
	_ Result = (*ResultDeny)(nil)
)

// ResultAllow lets the tool run, optionally with rewritten input.
type ResultAllow struct {
	UpdatedInput       map[string]any
	UpdatedPermissions []*Update
}

// Behavior implements Result.
func (*ResultAllow) Behavior() Behavior { return BehaviorAllow }

// ResultDeny blocks the tool.
type ResultDeny struct {
	Message   string
	Interrupt bool
}

// Behavior implements Result.
func (*ResultDeny) Behavior() Behavior { return BehaviorDeny }

// Callback decides whether a tool may run. It may block, for example to
// prompt a user; ctx is cancelled if the peer withdraws the request.
type Callback func(
	ctx context.Context,
	toolName string,
	input map[string]any,
	permCtx *Context,
) (Result, error)

// AllowAll is the wire outcome used when no callback is configured.
func AllowAll() map[string]any {
	return map[string]any{"behavior": string(BehaviorAllow)}
}

// EncodeResult converts a decision to its wire object.
func EncodeResult(result Result) (map[string]any, error) {
	switch r := result.(type) {
	case *ResultAllow:
		out := map[string]any{"behavior": string(BehaviorAllow)}

		if r.UpdatedInput != nil {
			out["updatedInput"] = r.UpdatedInput
		}

		if len(r.UpdatedPermissions) > 0 {
			updates := make([]any, len(r.UpdatedPermissions))
			for i, u := range r.UpdatedPermissions {
				updates[i] = u.ToWire()
			}

			out["updatedPermissions"] = updates
		}

		return out, nil

	case *ResultDeny:
		out := map[string]any{
			"behavior": string(BehaviorDeny),
			"message":  r.Message,
		}

		if r.Interrupt {
			out["interrupt"] = true
		}

		return out, nil

	default:
		return nil, fmt.Errorf(
			"tool permission callback must return *ResultAllow or *ResultDeny, got %T", result)
	}
}
