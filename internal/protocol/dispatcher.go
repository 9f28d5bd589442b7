package protocol

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wagiedev/claude-session-go/internal/config"
	"github.com/wagiedev/claude-session-go/internal/errors"
	"github.com/wagiedev/claude-session-go/internal/hook"
	"github.com/wagiedev/claude-session-go/internal/mcp"
	"github.com/wagiedev/claude-session-go/internal/permission"
	"github.com/wagiedev/claude-session-go/internal/wire"
)

// Dispatcher answers peer-issued control requests by invoking host
// callbacks.
type Dispatcher struct {
	log        *slog.Logger
	canUseTool permission.Callback
	registry   *Registry
	router     *mcp.Router
}

// NewDispatcher creates a dispatcher for the callbacks in opts. Hook
// callbacks are added to Registry during initialization.
func NewDispatcher(log *slog.Logger, opts *config.Options) *Dispatcher {
	d := &Dispatcher{
		log:      log.With("component", "dispatcher"),
		registry: NewRegistry(),
		router:   mcp.NewRouter(nil),
	}

	if opts != nil {
		d.canUseTool = opts.CanUseTool
		d.router = mcp.NewRouter(opts.MCPServers)
	}

	return d
}

// Registry returns the hook callback table.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Dispatch produces the reply payload for req. It never panics: a
// panicking callback becomes an *errors.CallbackError. Kinds this engine
// does not serve fail with an error wrapping errors.ErrNotSupported.
func (d *Dispatcher) Dispatch(ctx context.Context, req *wire.ControlRequest) (payload map[string]any, err error) {
	subtype := req.Subtype()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Callback panicked", "subtype", subtype, "request_id", req.RequestID, "panic", r)

			payload = nil
			err = &errors.CallbackError{Subtype: subtype, Panic: r}
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.log.Debug("Dispatching control request", "subtype", subtype, "request_id", req.RequestID)

	switch subtype {
	case wire.SubtypeCanUseTool:
		return d.canUseToolRequest(ctx, req)

	case wire.SubtypeHookCallback:
		return d.hookCallback(ctx, req)

	case wire.SubtypeInitialize:
		return map[string]any{"initialized": true}, nil

	case wire.SubtypeMCPMessage:
		return d.router.Handle(ctx, req.String("server_name"), req.Map("message"))

	default:
		// Unknown subtypes get an error reply, not an empty success.
		return nil, fmt.Errorf("control request subtype %q: %w", subtype, errors.ErrNotSupported)
	}
}

// canUseToolRequest allows the tool when no callback is configured,
// matching the peer's own default.
func (d *Dispatcher) canUseToolRequest(ctx context.Context, req *wire.ControlRequest) (map[string]any, error) {
	if d.canUseTool == nil {
		return permission.AllowAll(), nil
	}

	toolName := req.String("tool_name")

	input := req.Map("input")
	if input == nil {
		input = make(map[string]any)
	}

	suggestions, ok := req.Request["permission_suggestions"].([]any)
	if !ok {
		suggestions, _ = req.Request["suggestions"].([]any)
	}

	permCtx := &permission.Context{
		Suggestions: permission.ParseUpdates(suggestions),
		BlockedPath: req.String("blocked_path"),
		ToolUseID:   req.String("tool_use_id"),
	}

	result, err := d.canUseTool(ctx, toolName, input, permCtx)
	if err != nil {
		return nil, &errors.CallbackError{Subtype: wire.SubtypeCanUseTool, Err: err}
	}

	d.log.Debug("Tool permission decided", "tool", toolName, "behavior", behaviorOf(result))

	return permission.EncodeResult(result)
}

// hookCallback answers an unknown callback id with an empty object; the
// peer may still hold ids from an earlier session.
func (d *Dispatcher) hookCallback(ctx context.Context, req *wire.ControlRequest) (map[string]any, error) {
	callbackID := req.String("callback_id")

	callback, ok := d.registry.Lookup(callbackID)
	if !ok {
		d.log.Warn("Unknown hook callback id", "callback_id", callbackID, "request_id", req.RequestID)

		return map[string]any{}, nil
	}

	input, err := hook.DecodeInput(req.Map("input"))
	if err != nil {
		return nil, err
	}

	var toolUseID *string
	if id := req.String("tool_use_id"); id != "" {
		toolUseID = &id
	}

	out, err := callback(ctx, input, toolUseID, &hook.Context{CallbackID: callbackID})
	if err != nil {
		return nil, &errors.CallbackError{Subtype: wire.SubtypeHookCallback, Err: err}
	}

	return hook.EncodeOutput(out)
}

func behaviorOf(result permission.Result) string {
	if result == nil {
		return "<nil>"
	}

	return string(result.Behavior())
}
