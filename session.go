package claudesession

import (
	"context"
	stderrors "errors"
	"fmt"
	"iter"
	"runtime"
	"sync"

	"github.com/wagiedev/claude-session-go/internal/config"
	"github.com/wagiedev/claude-session-go/internal/errors"
	"github.com/wagiedev/claude-session-go/internal/mcp"
	"github.com/wagiedev/claude-session-go/internal/message"
	"github.com/wagiedev/claude-session-go/internal/permission"
	"github.com/wagiedev/claude-session-go/internal/protocol"
	"github.com/wagiedev/claude-session-go/internal/wire"
)

// Session is a stateful control-protocol session with an agent peer.
//
// Lifecycle: sessions are single-use. After Stop, create a new one with New.
// A session that is dropped without Stop is abandoned when it is garbage
// collected: its read loop is cancelled and its transport closed.
//
// Example usage:
//
//	session := claudesession.New(
//	    claudesession.WithLogger(slog.Default()),
//	    claudesession.WithCanUseTool(decide),
//	)
//	defer session.Stop()
//
//	if err := session.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := session.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := session.Send(ctx, "What is 2+2?"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for msg, err := range session.ReceiveResponse(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    // Process message...
//	}
type Session interface {
	// Start connects the transport and launches the read loop.
	// Settings files named with WithSettingsFile are loaded here.
	// Starting a running session is a no-op.
	Start(ctx context.Context) error

	// Initialize registers hook callbacks with the peer and performs the
	// handshake. The reply is returned and kept as the server info.
	Initialize(ctx context.Context) (map[string]any, error)

	// Send writes a user message to the peer. It does not wait for a reply;
	// use Receive or ReceiveResponse for the resulting events.
	Send(ctx context.Context, prompt string) error

	// SendControlRequest issues an arbitrary control request and waits for
	// the peer's reply payload.
	SendControlRequest(ctx context.Context, subtype string, payload map[string]any) (map[string]any, error)

	// ServerInfo returns the initialize reply, or nil before Initialize.
	ServerInfo() map[string]any

	// Receive yields event messages until the stream ends, an error occurs,
	// or ctx is cancelled. Event types this package does not model are
	// skipped.
	Receive(ctx context.Context) iter.Seq2[Message, error]

	// ReceiveResponse is Receive that stops after a ResultMessage.
	ReceiveResponse(ctx context.Context) iter.Seq2[Message, error]

	// Interrupt asks the peer to stop its current turn.
	Interrupt(ctx context.Context) error

	// SetPermissionMode changes the permission mode. The legacy names
	// "acceptAll" and "prompt" are accepted.
	SetPermissionMode(ctx context.Context, mode string) error

	// SetModel changes the model. Pass nil to restore the default.
	SetModel(ctx context.Context, model *string) error

	// RewindFiles restores tracked files to their state at a user message.
	RewindFiles(ctx context.Context, userMessageID string) error

	// MCPStatus reports the connection state of every MCP server, including
	// the in-process ones served by this session.
	MCPStatus(ctx context.Context) (*MCPStatus, error)

	// Stop fails pending requests, gives in-flight callbacks the shutdown
	// grace period, and closes the transport. Safe to call multiple times.
	Stop() error
}

// New creates a session. Nothing is started until Start.
func New(opts ...Option) Session {
	return &sessionHandle{opts: opts}
}

// sessionHandle is what callers hold. The engine never points back to it,
// so an unreachable handle can be cleaned up while the read loop runs.
type sessionHandle struct {
	opts []Option

	mu      sync.Mutex
	inner   *protocol.Session
	options *config.Options
	cleanup runtime.Cleanup
	stopped bool
}

// Compile-time check that *sessionHandle implements the Session interface.
var _ Session = (*sessionHandle)(nil)

func (h *sessionHandle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return &errors.ClosedError{}
	}

	if h.inner != nil {
		return nil
	}

	options, err := resolveOptions(h.opts)
	if err != nil {
		return err
	}

	log := options.ResolvedLogger()
	inner := protocol.NewSession(log, options.NewTransport(log), options)

	if err := inner.Start(ctx); err != nil {
		inner.Abandon()

		return err
	}

	h.inner = inner
	h.options = options
	h.cleanup = runtime.AddCleanup(h, func(s *protocol.Session) { s.Abandon() }, inner)

	return nil
}

func (h *sessionHandle) session() (*protocol.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch {
	case h.stopped:
		return nil, &errors.ClosedError{}
	case h.inner == nil:
		return nil, errors.ErrSessionNotStarted
	default:
		return h.inner, nil
	}
}

func (h *sessionHandle) Initialize(ctx context.Context) (map[string]any, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}

	return s.Initialize(ctx)
}

func (h *sessionHandle) Send(ctx context.Context, prompt string) error {
	s, err := h.session()
	if err != nil {
		return err
	}

	return s.SendEventMessage(ctx, prompt)
}

func (h *sessionHandle) SendControlRequest(
	ctx context.Context,
	subtype string,
	payload map[string]any,
) (map[string]any, error) {
	s, err := h.session()
	if err != nil {
		return nil, err
	}

	return s.SendControlRequest(ctx, subtype, payload)
}

func (h *sessionHandle) ServerInfo() map[string]any {
	s, err := h.session()
	if err != nil {
		return nil
	}

	return s.ServerInfo()
}

func (h *sessionHandle) Receive(ctx context.Context) iter.Seq2[Message, error] {
	return h.receive(ctx, false)
}

func (h *sessionHandle) ReceiveResponse(ctx context.Context) iter.Seq2[Message, error] {
	return h.receive(ctx, true)
}

func (h *sessionHandle) receive(ctx context.Context, untilResult bool) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		s, err := h.session()
		if err != nil {
			yield(nil, err)

			return
		}

		events := s.Events()

		for {
			select {
			case <-ctx.Done():
				yield(nil, ctx.Err())

				return

			case ev, ok := <-events:
				if !ok {
					return
				}

				if ev.Err != nil {
					if stderrors.Is(ev.Err, errors.ErrUnknownMessageType) {
						continue
					}

					if !yield(nil, ev.Err) {
						return
					}

					continue
				}

				if !yield(ev.Message, nil) {
					return
				}

				if _, done := ev.Message.(*message.ResultMessage); done && untilResult {
					return
				}
			}
		}
	}
}

func (h *sessionHandle) Interrupt(ctx context.Context) error {
	if _, err := h.SendControlRequest(ctx, wire.SubtypeInterrupt, nil); err != nil {
		return fmt.Errorf("interrupt: %w", err)
	}

	return nil
}

func (h *sessionHandle) SetPermissionMode(ctx context.Context, mode string) error {
	normalized := permission.NormalizeMode(mode)

	payload := map[string]any{"mode": string(normalized)}
	if _, err := h.SendControlRequest(ctx, wire.SubtypeSetPermissionMode, payload); err != nil {
		return fmt.Errorf("set permission mode to %q: %w", normalized, err)
	}

	return nil
}

func (h *sessionHandle) SetModel(ctx context.Context, model *string) error {
	var value any
	if model != nil {
		value = *model
	}

	if _, err := h.SendControlRequest(ctx, wire.SubtypeSetModel, map[string]any{"model": value}); err != nil {
		return fmt.Errorf("set model: %w", err)
	}

	return nil
}

func (h *sessionHandle) RewindFiles(ctx context.Context, userMessageID string) error {
	payload := map[string]any{"user_message_id": userMessageID}
	if _, err := h.SendControlRequest(ctx, wire.SubtypeRewindFiles, payload); err != nil {
		return fmt.Errorf("rewind files: %w", err)
	}

	return nil
}

func (h *sessionHandle) MCPStatus(ctx context.Context) (*MCPStatus, error) {
	resp, err := h.SendControlRequest(ctx, wire.SubtypeMCPStatus, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp status: %w", err)
	}

	status, err := mcp.ParseStatus(resp)
	if err != nil {
		return nil, err
	}

	// The peer does not list servers that live in this process.
	h.mu.Lock()
	servers := h.options.MCPServers
	h.mu.Unlock()

	for _, name := range mcp.NewRouter(servers).Names() {
		status.MCPServers = append(status.MCPServers, mcp.ServerStatus{Name: name, Status: "connected"})
	}

	return status, nil
}

func (h *sessionHandle) Stop() error {
	h.mu.Lock()

	if h.stopped {
		h.mu.Unlock()

		return nil
	}

	h.stopped = true
	inner := h.inner
	h.mu.Unlock()

	if inner == nil {
		return nil
	}

	h.cleanup.Stop()

	return inner.Stop()
}
