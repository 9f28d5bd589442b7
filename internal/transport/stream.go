package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/wagiedev/claude-session-go/internal/errors"
)

// StreamTransport speaks the line protocol over an existing reader/writer
// pair, such as pipes to an already running peer or an in-process fake.
type StreamTransport struct {
	log *slog.Logger
	r   io.Reader
	w   io.WriteCloser
	out lineWriter

	mu        sync.Mutex
	connected bool
	taken     bool
	closed    bool
}

// Compile-time verification that StreamTransport implements Transport.
var _ Transport = (*StreamTransport)(nil)

// NewStreamTransport creates a transport reading frames from r and writing
// lines to w. Close closes w, and r as well when it is an io.Closer.
func NewStreamTransport(log *slog.Logger, r io.Reader, w io.WriteCloser) *StreamTransport {
	log = log.With("component", "stream_transport")

	return &StreamTransport{
		log: log,
		r:   r,
		w:   w,
		out: lineWriter{log: log},
	}
}

// Connect marks the transport usable. The streams are already open.
func (t *StreamTransport) Connect(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.ErrConnectionClosed
	}

	if t.connected {
		return nil
	}

	t.connected = true
	t.out.attach(t.w)

	return nil
}

// Write sends one line.
func (t *StreamTransport) Write(ctx context.Context, data []byte) error {
	return t.out.write(ctx, data)
}

// ReadFrames starts the reader goroutine. Frames stop at EOF, on a read
// error (delivered as a terminal frame) or when ctx ends.
func (t *StreamTransport) ReadFrames(ctx context.Context) (<-chan Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil, errors.ErrTransportNotConnected
	}

	if t.taken {
		return nil, &errors.InternalError{Message: "ReadFrames called twice", Err: errors.ErrInboundTaken}
	}

	t.taken = true

	frames := make(chan Frame)

	go func() {
		defer close(frames)
		defer t.log.Debug("Stream reader stopped")

		if err := scanFrames(ctx, t.log, t.r, frames); err != nil {
			t.mu.Lock()
			closing := t.closed
			t.mu.Unlock()

			if closing {
				return
			}

			t.log.Error("Stream read failed", "error", err)
			emit(ctx, frames, Frame{Err: &errors.TransportError{Err: err}})
		}
	}()

	return frames, nil
}

// EndInput closes the writer.
func (t *StreamTransport) EndInput() error {
	return t.out.close()
}

// IsReady reports whether lines can still be written.
func (t *StreamTransport) IsReady() bool {
	return t.out.ready()
}

// Close closes both streams. Safe to call more than once.
func (t *StreamTransport) Close() error {
	t.mu.Lock()

	if t.closed {
		t.mu.Unlock()

		return nil
	}

	t.closed = true
	connected := t.connected
	t.mu.Unlock()

	var werr error
	if connected {
		werr = t.out.close()
	} else {
		werr = t.w.Close()
	}

	if rc, ok := t.r.(io.Closer); ok {
		if err := rc.Close(); err != nil && werr == nil {
			return err
		}
	}

	return werr
}
