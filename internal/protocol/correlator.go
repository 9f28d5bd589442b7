package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/claude-session-go/internal/errors"
	"github.com/wagiedev/claude-session-go/internal/wire"
)

// LineWriter is the outbound half of a transport.
type LineWriter interface {
	Write(ctx context.Context, data []byte) error
}

// outcome is the single result delivered to a pending request.
type outcome struct {
	payload map[string]any
	err     error
}

// pendingRequest tracks a host-issued request awaiting its reply. reply is
// buffered so whoever claims the entry can deliver without blocking.
type pendingRequest struct {
	subtype string
	reply   chan outcome
}

// Correlator matches host-issued control requests to their replies.
//
// Each request is resolved exactly once: by its reply, by its timeout or
// context, or by AbortAll. Whichever path removes the entry from the
// pending table owns the outcome.
type Correlator struct {
	log     *slog.Logger
	out     LineWriter
	timeout time.Duration
	counter atomic.Uint64

	mu      sync.Mutex
	pending map[string]*pendingRequest
	aborted *errors.ClosedError
}

// NewCorrelator creates a correlator writing through out. A zero timeout
// waits indefinitely.
func NewCorrelator(log *slog.Logger, out LineWriter, timeout time.Duration) *Correlator {
	return &Correlator{
		log:     log.With("component", "correlator"),
		out:     out,
		timeout: timeout,
		pending: make(map[string]*pendingRequest, 8),
	}
}

// Send issues a control request with the default timeout and waits for
// its reply.
func (c *Correlator) Send(ctx context.Context, subtype string, payload map[string]any) (map[string]any, error) {
	return c.SendWithTimeout(ctx, subtype, payload, c.timeout)
}

// SendWithTimeout issues a control request and waits for its reply.
//
// Failures are distinguishable: an error reply is an
// *errors.ControlProtocolError, an expired timeout an *errors.TimeoutError,
// and a stopped session an *errors.ClosedError.
func (c *Correlator) SendWithTimeout(
	ctx context.Context,
	subtype string,
	payload map[string]any,
	timeout time.Duration,
) (map[string]any, error) {
	requestID := c.nextID()
	req := &pendingRequest{subtype: subtype, reply: make(chan outcome, 1)}

	c.mu.Lock()
	if c.aborted != nil {
		err := c.aborted
		c.mu.Unlock()

		return nil, err
	}

	c.pending[requestID] = req
	c.mu.Unlock()

	data, err := wire.Encode(wire.NewControlRequest(requestID, subtype, payload))
	if err != nil {
		c.claim(requestID)

		return nil, err
	}

	c.log.Debug("Sending control request", "request_id", requestID, "subtype", subtype)

	if err := c.out.Write(ctx, data); err != nil {
		if c.claim(requestID) == nil {
			// AbortAll got there first; its outcome wins.
			return c.await(req)
		}

		return nil, fmt.Errorf("send %s request: %w", subtype, err)
	}

	var expired <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		expired = timer.C
	}

	select {
	case res := <-req.reply:
		return res.payload, res.err

	case <-expired:
		if c.claim(requestID) == nil {
			return c.await(req)
		}

		c.log.Warn("Control request timed out", "request_id", requestID, "subtype", subtype, "timeout", timeout)

		return nil, &errors.TimeoutError{RequestID: requestID, Subtype: subtype, Timeout: timeout}

	case <-ctx.Done():
		if c.claim(requestID) == nil {
			return c.await(req)
		}

		c.log.Debug("Control request cancelled", "request_id", requestID)

		return nil, ctx.Err()
	}
}

// await collects an outcome already owned by another path.
func (c *Correlator) await(req *pendingRequest) (map[string]any, error) {
	res := <-req.reply

	return res.payload, res.err
}

// Resolve delivers a reply to its waiter. It reports false, and changes
// nothing, when no request with that id is pending; the peer may answer a
// request that already timed out.
func (c *Correlator) Resolve(resp *wire.ControlResponse) bool {
	requestID := resp.RequestID()

	req := c.claim(requestID)
	if req == nil {
		c.log.Warn("No pending request for control response", "request_id", requestID)

		return false
	}

	if resp.IsError() {
		c.log.Debug("Control request failed", "request_id", requestID, "error", resp.ErrorMessage())

		req.reply <- outcome{err: &errors.ControlProtocolError{RequestID: requestID, Message: resp.ErrorMessage()}}

		return true
	}

	c.log.Debug("Control request resolved", "request_id", requestID, "subtype", req.subtype)

	req.reply <- outcome{payload: resp.Payload()}

	return true
}

// AbortAll fails every pending request with an *errors.ClosedError carrying
// cause, and makes later sends fail the same way.
func (c *Correlator) AbortAll(cause error) {
	c.mu.Lock()

	if c.aborted == nil {
		c.aborted = &errors.ClosedError{Cause: cause}
	}

	closed := c.aborted
	pending := c.pending
	c.pending = make(map[string]*pendingRequest)

	c.mu.Unlock()

	if len(pending) > 0 {
		c.log.Debug("Aborting pending control requests", "count", len(pending), "cause", cause)
	}

	for _, req := range pending {
		req.reply <- outcome{err: closed}
	}
}

// Pending returns the number of requests awaiting a reply.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// claim removes and returns the pending entry, or nil if another path
// already took it.
func (c *Correlator) claim(requestID string) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.pending[requestID]
	if !ok {
		return nil
	}

	delete(c.pending, requestID)

	return req
}

// nextID combines a session-wide counter with a ULID, so ids stay unique
// even across sessions sharing a peer.
func (c *Correlator) nextID() string {
	return fmt.Sprintf("req_%d_%s", c.counter.Add(1), ulid.Make())
}
