package protocol

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sdkerrors "github.com/wagiedev/claude-session-go/internal/errors"
	"github.com/wagiedev/claude-session-go/internal/wire"
)

// captureWriter records every control request written through it.
type captureWriter struct {
	requests chan *wire.ControlRequest
	err      error
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{requests: make(chan *wire.ControlRequest, 64)}
}

func (w *captureWriter) Write(_ context.Context, data []byte) error {
	if w.err != nil {
		return w.err
	}

	raw, err := wire.Decode(data)
	if err != nil {
		return err
	}

	req, err := wire.DecodeControlRequest(raw)
	if err != nil {
		return err
	}

	w.requests <- req

	return nil
}

func (w *captureWriter) next(t *testing.T) *wire.ControlRequest {
	t.Helper()

	select {
	case req := <-w.requests:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no control request written")

		return nil
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type sendResult struct {
	payload map[string]any
	err     error
}

func sendAsync(c *Correlator, subtype string, payload map[string]any, timeout time.Duration) <-chan sendResult {
	ch := make(chan sendResult, 1)

	go func() {
		p, err := c.SendWithTimeout(context.Background(), subtype, payload, timeout)
		ch <- sendResult{payload: p, err: err}
	}()

	return ch
}

func receive(t *testing.T, ch <-chan sendResult) sendResult {
	t.Helper()

	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("send did not complete")

		return sendResult{}
	}
}

func TestCorrelator_IDsAreUnique(t *testing.T) {
	c := NewCorrelator(discardLogger(), newCaptureWriter(), 0)

	const n = 2000

	ids := make(chan string, n)

	var wg sync.WaitGroup
	for range n {
		wg.Go(func() { ids <- c.nextID() })
	}

	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)

	for id := range ids {
		require.True(t, strings.HasPrefix(id, "req_"), id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}

	require.Len(t, seen, n)
}

func TestCorrelator_OutOfOrderReplies(t *testing.T) {
	w := newCaptureWriter()
	c := NewCorrelator(discardLogger(), w, time.Minute)

	results := map[string]<-chan sendResult{}
	ids := map[string]string{}

	for _, tag := range []string{"A", "B", "C"} {
		results[tag] = sendAsync(c, wire.SubtypeSetModel, map[string]any{"model": tag}, time.Minute)

		req := w.next(t)
		ids[req.String("model")] = req.RequestID
	}

	require.Equal(t, 3, c.Pending())

	for _, tag := range []string{"C", "A", "B"} {
		require.True(t, c.Resolve(wire.Success(ids[tag], map[string]any{"model": tag})))
	}

	for _, tag := range []string{"A", "B", "C"} {
		res := receive(t, results[tag])
		require.NoError(t, res.err)
		require.Equal(t, tag, res.payload["model"])
	}

	require.Zero(t, c.Pending())
}

func TestCorrelator_Timeout(t *testing.T) {
	w := newCaptureWriter()
	c := NewCorrelator(discardLogger(), w, time.Minute)

	start := time.Now()
	_, err := c.SendWithTimeout(context.Background(), wire.SubtypeInterrupt, nil, 50*time.Millisecond)
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.ErrorIs(t, err, sdkerrors.ErrRequestTimeout)
	require.NotErrorIs(t, err, sdkerrors.ErrConnectionClosed)
	require.ErrorContains(t, err, "50ms")

	timeoutErr, ok := errors.AsType[*sdkerrors.TimeoutError](err)
	require.True(t, ok)
	require.Equal(t, wire.SubtypeInterrupt, timeoutErr.Subtype)

	require.Zero(t, c.Pending())

	// A late reply is dropped.
	require.False(t, c.Resolve(wire.Success(w.next(t).RequestID, nil)))
}

func TestCorrelator_ZeroTimeoutWaits(t *testing.T) {
	w := newCaptureWriter()
	c := NewCorrelator(discardLogger(), w, 0)

	res := sendAsync(c, wire.SubtypeMCPStatus, nil, 0)
	req := w.next(t)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, c.Pending())

	require.True(t, c.Resolve(wire.Success(req.RequestID, map[string]any{"ok": true})))
	require.Equal(t, true, receive(t, res).payload["ok"])
}

func TestCorrelator_UnknownIDDoesNotResolveOthers(t *testing.T) {
	w := newCaptureWriter()
	c := NewCorrelator(discardLogger(), w, time.Minute)

	res := sendAsync(c, wire.SubtypeInterrupt, nil, time.Minute)
	req := w.next(t)

	require.False(t, c.Resolve(wire.Success("req_999_unknown", nil)))
	require.Equal(t, 1, c.Pending())

	select {
	case <-res:
		t.Fatal("request resolved by an unrelated reply")
	case <-time.After(20 * time.Millisecond):
	}

	require.True(t, c.Resolve(wire.Success(req.RequestID, nil)))
	require.NoError(t, receive(t, res).err)
}

func TestCorrelator_ErrorReply(t *testing.T) {
	w := newCaptureWriter()
	c := NewCorrelator(discardLogger(), w, time.Minute)

	res := sendAsync(c, wire.SubtypeSetPermissionMode, map[string]any{"mode": "plan"}, time.Minute)
	req := w.next(t)

	require.True(t, c.Resolve(wire.Failure(req.RequestID, "mode not allowed")))

	err := receive(t, res).err
	protoErr, ok := errors.AsType[*sdkerrors.ControlProtocolError](err)
	require.True(t, ok, "got %v", err)
	require.Equal(t, "mode not allowed", protoErr.Message)
	require.Equal(t, req.RequestID, protoErr.RequestID)
}

func TestCorrelator_AbortAll(t *testing.T) {
	w := newCaptureWriter()
	c := NewCorrelator(discardLogger(), w, time.Minute)

	first := sendAsync(c, wire.SubtypeInterrupt, nil, time.Minute)
	second := sendAsync(c, wire.SubtypeMCPStatus, nil, time.Minute)

	w.next(t)
	w.next(t)
	require.Equal(t, 2, c.Pending())

	c.AbortAll(nil)

	for _, ch := range []<-chan sendResult{first, second} {
		err := receive(t, ch).err
		require.ErrorIs(t, err, sdkerrors.ErrConnectionClosed)
		require.NotErrorIs(t, err, sdkerrors.ErrRequestTimeout)
	}

	require.Zero(t, c.Pending())

	_, err := c.Send(context.Background(), wire.SubtypeInterrupt, nil)
	require.ErrorIs(t, err, sdkerrors.ErrConnectionClosed)
}

func TestCorrelator_ContextCancel(t *testing.T) {
	w := newCaptureWriter()
	c := NewCorrelator(discardLogger(), w, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		_, err := c.Send(ctx, wire.SubtypeInterrupt, nil)
		done <- err
	}()

	w.next(t)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Send ignored cancellation")
	}

	require.Zero(t, c.Pending())
}

func TestCorrelator_WriteFailure(t *testing.T) {
	w := newCaptureWriter()
	w.err = sdkerrors.ErrStdinClosed

	c := NewCorrelator(discardLogger(), w, time.Minute)

	_, err := c.Send(context.Background(), wire.SubtypeInterrupt, nil)
	require.ErrorIs(t, err, sdkerrors.ErrStdinClosed)
	require.Zero(t, c.Pending())
}
