package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/wagiedev/claude-session-go/internal/hook"
	"github.com/wagiedev/claude-session-go/internal/mcp"
	"github.com/wagiedev/claude-session-go/internal/permission"
	"github.com/wagiedev/claude-session-go/internal/transport"
)

// Defaults applied when the matching option is unset.
const (
	DefaultControlTimeout    = 300 * time.Second
	DefaultInitializeTimeout = 60 * time.Second
	DefaultShutdownGrace     = 2 * time.Second
	DefaultMessageBufferSize = 100
)

// EnvInitializeTimeout overrides the initialize timeout, in whole seconds,
// when Options.InitializeTimeout is nil.
const EnvInitializeTimeout = "CLAUDE_CODE_STREAM_CLOSE_TIMEOUT"

// Options configures a session.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Hooks registers hook callbacks per event.
	Hooks map[hook.Event][]*hook.Matcher

	// CanUseTool is consulted on can_use_tool requests.
	// If nil, every tool use is allowed.
	CanUseTool permission.Callback

	// MCPServers are in-process MCP servers answering mcp_message requests.
	MCPServers map[string]mcp.ServerInstance

	// ControlTimeout bounds each host-issued control request.
	// nil uses DefaultControlTimeout; zero waits indefinitely.
	ControlTimeout *time.Duration

	// InitializeTimeout bounds the initialize handshake.
	// nil falls back to EnvInitializeTimeout, then DefaultInitializeTimeout.
	InitializeTimeout *time.Duration

	// ShutdownGrace is how long Stop waits for in-flight work before
	// closing the transport. nil uses DefaultShutdownGrace.
	ShutdownGrace *time.Duration

	// MessageBufferSize is the capacity of the event channel.
	// Zero or less uses DefaultMessageBufferSize.
	MessageBufferSize int

	// Transport allows injecting a custom transport implementation.
	// If nil, a process transport is built from Process.
	Transport transport.Transport `json:"-"`

	// Process describes the peer process for the default transport.
	Process transport.ProcessConfig
}

// ResolvedLogger returns the configured logger or a silent one.
func (o *Options) ResolvedLogger() *slog.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ResolvedControlTimeout returns the per-request timeout. Zero means none.
func (o *Options) ResolvedControlTimeout() time.Duration {
	if o != nil && o.ControlTimeout != nil {
		return max(*o.ControlTimeout, 0)
	}

	return DefaultControlTimeout
}

// ResolvedInitializeTimeout returns the initialize timeout from options,
// the environment, or the default, in that order.
func (o *Options) ResolvedInitializeTimeout() time.Duration {
	if o != nil && o.InitializeTimeout != nil {
		return max(*o.InitializeTimeout, 0)
	}

	if raw := os.Getenv(EnvInitializeTimeout); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	return DefaultInitializeTimeout
}

// ResolvedShutdownGrace returns the stop grace period.
func (o *Options) ResolvedShutdownGrace() time.Duration {
	if o != nil && o.ShutdownGrace != nil {
		return max(*o.ShutdownGrace, 0)
	}

	return DefaultShutdownGrace
}

// ResolvedMessageBufferSize returns the event channel capacity.
func (o *Options) ResolvedMessageBufferSize() int {
	if o != nil && o.MessageBufferSize > 0 {
		return o.MessageBufferSize
	}

	return DefaultMessageBufferSize
}

// NewTransport returns the injected transport, or a process transport for
// o.Process.
func (o *Options) NewTransport(log *slog.Logger) transport.Transport {
	if o.Transport != nil {
		return o.Transport
	}

	return transport.NewProcessTransport(log, o.Process)
}
