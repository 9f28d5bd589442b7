package protocol

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/claude-session-go/internal/config"
	"github.com/wagiedev/claude-session-go/internal/errors"
	"github.com/wagiedev/claude-session-go/internal/message"
	"github.com/wagiedev/claude-session-go/internal/transport"
	"github.com/wagiedev/claude-session-go/internal/wire"
)

// State is the session lifecycle: NotStarted, Running, Stopped.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event is one item on the consumer stream: a decoded event message or a
// failure. A failure wrapping errors.ErrConnectionClosed is terminal and
// is followed by the channel closing.
type Event struct {
	Message message.Message
	Err     error
}

// inFlightOperation tracks a peer-issued request while its callback runs.
type inFlightOperation struct {
	cancel    context.CancelFunc
	completed bool
}

// Session is the protocol engine for one transport: it owns the read loop,
// correlates host-issued control requests, and answers the peer's.
type Session struct {
	log        *slog.Logger
	transport  transport.Transport
	options    *config.Options
	correlator *Correlator
	dispatcher *Dispatcher
	events     chan Event

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	group    *errgroup.Group
	shutdown chan struct{}

	inFlightMu sync.Mutex
	inFlight   map[string]*inFlightOperation

	initMu     sync.RWMutex
	serverInfo map[string]any
}

// NewSession creates a session over tr. opts may be nil.
func NewSession(log *slog.Logger, tr transport.Transport, opts *config.Options) *Session {
	if opts == nil {
		opts = &config.Options{}
	}

	log = log.With("component", "session")

	return &Session{
		log:        log,
		transport:  tr,
		options:    opts,
		correlator: NewCorrelator(log, tr, opts.ResolvedControlTimeout()),
		dispatcher: NewDispatcher(log, opts),
		events:     make(chan Event, opts.ResolvedMessageBufferSize()),
		shutdown:   make(chan struct{}),
		inFlight:   make(map[string]*inFlightOperation, 8),
	}
}

// Start connects the transport, takes its inbound stream and launches the
// read loop. Starting a running session is a no-op. The loop is detached
// from ctx; only Stop or Abandon end it.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return nil
	case StateStopped:
		return &errors.ClosedError{}
	}

	if err := s.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect transport: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	frames, err := s.transport.ReadFrames(runCtx)
	if err != nil {
		cancel()

		return fmt.Errorf("take inbound stream: %w", err)
	}

	group, groupCtx := errgroup.WithContext(runCtx)

	// handleRequest reads s.group from the loop goroutine.
	s.cancel = cancel
	s.group = group
	s.state = StateRunning

	group.Go(func() error {
		s.readLoop(groupCtx, frames)

		return nil
	})

	s.log.Info("Session started")

	return nil
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Events returns the consumer stream. It is closed when the read loop ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Initialize performs the handshake: it registers the configured hook
// callbacks, sends the initialize request and stores the reply as the
// server info. Calling it twice sends the request twice.
func (s *Session) Initialize(ctx context.Context) (map[string]any, error) {
	if err := s.checkRunning(); err != nil {
		return nil, err
	}

	for event := range s.options.Hooks {
		if !event.Known() {
			s.log.Warn("Registering hooks for unrecognized event", "event", event)
		}
	}

	payload := map[string]any{"hooks": s.dispatcher.Registry().BuildConfig(s.options.Hooks)}

	timeout := s.options.ResolvedInitializeTimeout()
	s.log.Debug("Sending initialize request", "timeout", timeout, "hook_callbacks", s.dispatcher.Registry().Len())

	resp, err := s.correlator.SendWithTimeout(ctx, wire.SubtypeInitialize, payload, timeout)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	if resp == nil {
		resp = make(map[string]any)
	}

	s.initMu.Lock()
	s.serverInfo = resp
	s.initMu.Unlock()

	return maps.Clone(resp), nil
}

// ServerInfo returns a copy of the initialize reply, or nil before a
// successful Initialize.
func (s *Session) ServerInfo() map[string]any {
	s.initMu.RLock()
	defer s.initMu.RUnlock()

	if s.serverInfo == nil {
		return nil
	}

	return maps.Clone(s.serverInfo)
}

// SendEventMessage writes a user message with the default session id.
func (s *Session) SendEventMessage(ctx context.Context, text string) error {
	return s.SendUserInput(ctx, message.NewUserInput(text, message.DefaultSessionID))
}

// SendUserInput writes a prepared user message.
func (s *Session) SendUserInput(ctx context.Context, input *message.UserInput) error {
	if err := s.checkRunning(); err != nil {
		return err
	}

	data, err := wire.Encode(input)
	if err != nil {
		return err
	}

	if err := s.transport.Write(ctx, data); err != nil {
		return fmt.Errorf("send user message: %w", err)
	}

	return nil
}

// SendControlRequest issues a control request and waits for its reply.
func (s *Session) SendControlRequest(ctx context.Context, subtype string, payload map[string]any) (map[string]any, error) {
	if err := s.checkRunning(); err != nil {
		return nil, err
	}

	return s.correlator.Send(ctx, subtype, payload)
}

// PendingRequests returns the number of host-issued requests awaiting a reply.
func (s *Session) PendingRequests() int {
	return s.correlator.Pending()
}

// Stop shuts the session down. Pending requests fail with an
// *errors.ClosedError, in-flight callbacks get the shutdown grace period
// to finish, and the transport is closed regardless. Stop is idempotent.
func (s *Session) Stop() error {
	group, ok := s.beginStop()
	if !ok {
		return nil
	}

	s.log.Debug("Stopping session")

	if group != nil {
		grace := s.options.ResolvedShutdownGrace()
		if !waitGroup(group, grace) {
			s.log.Warn("Read loop did not stop within grace period", "grace", grace)
		}
	}

	s.cancelRun()

	err := s.transport.Close()

	if group != nil && !waitGroup(group, s.options.ResolvedShutdownGrace()) {
		s.log.Warn("Callbacks still running after transport close")
	}

	s.log.Info("Session stopped")

	if err != nil {
		return fmt.Errorf("close transport: %w", err)
	}

	return nil
}

// Abandon is the forced variant of Stop for a session that is being
// discarded: nothing is awaited.
func (s *Session) Abandon() {
	if _, ok := s.beginStop(); !ok {
		return
	}

	s.log.Debug("Abandoning session")

	s.cancelRun()

	if err := s.transport.Close(); err != nil {
		s.log.Debug("Transport close failed during abandon", "error", err)
	}
}

// beginStop moves the session to Stopped and fails pending requests. It
// reports false if the session was already stopped.
func (s *Session) beginStop() (*errgroup.Group, bool) {
	s.mu.Lock()

	prev := s.state
	if prev == StateStopped {
		s.mu.Unlock()

		return nil, false
	}

	s.state = StateStopped
	group := s.group
	close(s.shutdown)

	s.mu.Unlock()

	s.correlator.AbortAll(nil)

	if prev == StateNotStarted {
		// No read loop will ever close the stream.
		close(s.events)
	}

	return group, true
}

func (s *Session) cancelRun() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *Session) checkRunning() error {
	switch s.State() {
	case StateRunning:
		return nil
	case StateNotStarted:
		return errors.ErrSessionNotStarted
	default:
		return &errors.ClosedError{}
	}
}

// readLoop is the only reader of frames and the only sender on events.
func (s *Session) readLoop(ctx context.Context, frames <-chan transport.Frame) {
	defer close(s.events)
	defer s.log.Debug("Read loop stopped")

	for {
		// Shutdown wins over a ready frame.
		select {
		case <-s.shutdown:
			return
		case <-ctx.Done():
			return
		default:
		}

		select {
		case <-s.shutdown:
			return

		case <-ctx.Done():
			return

		case frame, ok := <-frames:
			if !ok {
				s.log.Debug("Transport stream ended")
				s.terminate(ctx, io.EOF)

				return
			}

			if frame.Err != nil {
				if _, ok := stderrors.AsType[*errors.JSONDecodeError](frame.Err); ok {
					s.log.Warn("Skipping undecodable line", "error", frame.Err)
					s.emit(ctx, Event{Err: frame.Err})

					continue
				}

				s.log.Error("Transport failed", "error", frame.Err)
				s.terminate(ctx, frame.Err)

				return
			}

			s.route(ctx, frame.Data)
		}
	}
}

// terminate fails pending requests and forwards the terminal failure.
func (s *Session) terminate(ctx context.Context, cause error) {
	s.correlator.AbortAll(cause)
	s.emit(ctx, Event{Err: &errors.ClosedError{Cause: cause}})
}

// emit delivers ev unless the session is shutting down.
func (s *Session) emit(ctx context.Context, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.shutdown:
		return false
	case <-ctx.Done():
		return false
	}
}

// route dispatches one decoded value by its type discriminator.
func (s *Session) route(ctx context.Context, raw map[string]any) {
	kind := wire.Classify(raw)

	switch kind {
	case wire.KindControlResponse:
		resp, err := wire.DecodeControlResponse(raw)
		if err != nil {
			s.log.Warn("Skipping malformed control response", "error", err)

			return
		}

		s.correlator.Resolve(resp)

	case wire.KindControlRequest:
		req, err := wire.DecodeControlRequest(raw)
		if err != nil {
			s.log.Warn("Skipping malformed control request", "error", err)

			return
		}

		s.handleRequest(ctx, req)

	case wire.KindCancelRequest:
		s.handleCancel(ctx, raw)

	case wire.KindEvent:
		msg, err := message.Decode(raw)
		if err != nil {
			s.log.Debug("Event message did not decode", "error", err)
			s.emit(ctx, Event{Err: err})

			return
		}

		s.emit(ctx, Event{Message: msg})

	default:
		s.log.Warn("Skipping envelope without type discriminator", "keys", slices.Sorted(maps.Keys(raw)))
	}
}

// handleRequest runs the callback on its own goroutine so the loop keeps
// reading, which is what lets a control_cancel_request reach it.
func (s *Session) handleRequest(ctx context.Context, req *wire.ControlRequest) {
	opCtx, cancel := context.WithCancel(ctx)
	op := &inFlightOperation{cancel: cancel}

	s.inFlightMu.Lock()
	s.inFlight[req.RequestID] = op
	s.inFlightMu.Unlock()

	s.group.Go(func() error {
		defer func() {
			s.inFlightMu.Lock()
			delete(s.inFlight, req.RequestID)
			s.inFlightMu.Unlock()

			cancel()
		}()

		payload, err := s.dispatcher.Dispatch(opCtx, req)

		s.inFlightMu.Lock()
		op.completed = true
		s.inFlightMu.Unlock()

		// Only the peer cancels opCtx while ctx is still live.
		if opCtx.Err() != nil && ctx.Err() == nil {
			s.log.Debug("Control request cancelled by peer", "request_id", req.RequestID)

			payload, err = nil, errors.ErrOperationCancelled
		}

		s.reply(ctx, req, payload, err)

		return nil
	})
}

func (s *Session) reply(ctx context.Context, req *wire.ControlRequest, payload map[string]any, err error) {
	var resp *wire.ControlResponse

	if err != nil {
		s.log.Warn("Control request failed", "request_id", req.RequestID, "subtype", req.Subtype(), "error", err)
		resp = wire.Failure(req.RequestID, err.Error())
	} else {
		resp = wire.Success(req.RequestID, payload)
	}

	s.write(ctx, resp)
}

// handleCancel cancels an in-flight callback and acknowledges.
func (s *Session) handleCancel(ctx context.Context, raw map[string]any) {
	requestID, _ := raw["request_id"].(string)
	if requestID == "" {
		s.log.Warn("Cancel request missing request_id")

		return
	}

	s.inFlightMu.Lock()

	op, found := s.inFlight[requestID]

	alreadyCompleted := found && op.completed
	if found && !alreadyCompleted {
		op.cancel()
	}

	s.inFlightMu.Unlock()

	s.log.Debug("Cancel request processed",
		"request_id", requestID,
		"found", found,
		"already_completed", alreadyCompleted,
	)

	s.write(ctx, wire.CancelAcknowledgment(requestID, found, alreadyCompleted))
}

func (s *Session) write(ctx context.Context, v any) {
	data, err := wire.Encode(v)
	if err != nil {
		s.log.Error("Failed to encode reply", "error", err)

		return
	}

	if err := s.transport.Write(ctx, data); err != nil {
		if ctx.Err() != nil {
			s.log.Debug("Could not send reply during shutdown", "error", err)

			return
		}

		s.log.Error("Failed to send reply", "error", err)
	}
}

// waitGroup waits for g up to d and reports whether it finished.
func waitGroup(g *errgroup.Group, d time.Duration) bool {
	done := make(chan struct{})

	go func() {
		_ = g.Wait()

		close(done)
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
