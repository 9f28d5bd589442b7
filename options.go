package claudesession

import (
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/wagiedev/claude-session-go/internal/config"
)

// Options is the resolved session configuration. Most callers use the
// With* functions instead of filling it directly.
type Options = config.Options

// Option configures a session using the functional options pattern.
type Option func(*options)

type options struct {
	config.Options

	settingsFiles []string
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o
}

// resolveOptions loads settings files first and then replays opts on top,
// so explicit options win over file values.
func resolveOptions(opts []Option) (*config.Options, error) {
	first := applyOptions(opts)
	if len(first.settingsFiles) == 0 {
		return &first.Options, nil
	}

	base := &options{}

	for _, path := range first.settingsFiles {
		settings, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}

		if err := settings.Apply(&base.Options); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(base)
		}
	}

	return &base.Options, nil
}

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ===== Logging =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.Logger = logger
	}
}

// ===== Callbacks =====

// WithHooks configures hook callbacks. They are registered with the peer
// during Initialize.
func WithHooks(hooks map[HookEvent][]*HookMatcher) Option {
	return func(o *options) {
		o.Hooks = hooks
	}
}

// WithCanUseTool sets the tool permission callback.
// Without one, every tool use the peer asks about is allowed.
func WithCanUseTool(callback CanUseToolFunc) Option {
	return func(o *options) {
		o.CanUseTool = callback
	}
}

// WithMCPServer registers an in-process MCP server under name. The peer
// reaches its tools as mcp__<name>__<tool>.
func WithMCPServer(name string, server MCPServer) Option {
	return func(o *options) {
		if o.MCPServers == nil {
			o.MCPServers = make(map[string]MCPServer, 1)
		}

		o.MCPServers[name] = server
	}
}

// ===== Timeouts =====

// WithControlTimeout bounds each host-issued control request.
// Zero waits indefinitely.
func WithControlTimeout(d time.Duration) Option {
	return func(o *options) {
		o.ControlTimeout = &d
	}
}

// WithInitializeTimeout bounds the initialize handshake. It takes
// precedence over the CLAUDE_CODE_STREAM_CLOSE_TIMEOUT environment variable.
func WithInitializeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.InitializeTimeout = &d
	}
}

// WithShutdownGrace sets how long Stop waits for in-flight callbacks.
func WithShutdownGrace(d time.Duration) Option {
	return func(o *options) {
		o.ShutdownGrace = &d
	}
}

// WithMessageBufferSize sets the capacity of the event buffer.
func WithMessageBufferSize(size int) Option {
	return func(o *options) {
		o.MessageBufferSize = size
	}
}

// ===== Transport =====

// WithTransport injects a custom transport. Process options are ignored
// when one is set.
func WithTransport(t Transport) Option {
	return func(o *options) {
		o.Transport = t
	}
}

// WithCommand sets the peer executable and its arguments.
// If not set, "claude" is searched in PATH.
func WithCommand(command string, args ...string) Option {
	return func(o *options) {
		o.Process.Command = command
		o.Process.Args = args
	}
}

// WithEnv adds environment variables for the peer process. Repeated calls
// merge.
func WithEnv(env map[string]string) Option {
	return func(o *options) {
		if o.Process.Env == nil {
			o.Process.Env = make(map[string]string, len(env))
		}

		maps.Copy(o.Process.Env, env)
	}
}

// WithCwd sets the working directory of the peer process.
func WithCwd(cwd string) Option {
	return func(o *options) {
		o.Process.Cwd = cwd
	}
}

// WithStderr sets a callback that receives each stderr line of the peer.
func WithStderr(handler func(line string)) Option {
	return func(o *options) {
		o.Process.Stderr = handler
	}
}

// ===== Settings files =====

// WithSettingsFile loads settings from a .toml, .yaml or .yml file when
// the session starts. Explicit options take precedence over the file.
func WithSettingsFile(path string) Option {
	return func(o *options) {
		o.settingsFiles = append(o.settingsFiles, path)
	}
}
