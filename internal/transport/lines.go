package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/claude-session-go/internal/errors"
)

// MaxLineSize bounds a single inbound line.
const MaxLineSize = 1024 * 1024

// writeAbandonTimeout bounds how long a cancelled write waits for the
// blocked writer goroutine after the pipe is closed under it.
const writeAbandonTimeout = time.Second

// lineWriter serializes line writes to an io.WriteCloser.
type lineWriter struct {
	log *slog.Logger

	mu     sync.Mutex
	w      io.WriteCloser
	closed bool
}

func (lw *lineWriter) attach(w io.WriteCloser) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.w = w
	lw.closed = false
}

func (lw *lineWriter) ready() bool {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	return lw.w != nil && !lw.closed
}

// write holds the lock for the whole line so concurrent writers never
// interleave. If ctx ends during a blocked write the pipe is closed to
// unblock it, and later writes fail with errors.ErrStdinClosed.
func (lw *lineWriter) write(ctx context.Context, data []byte) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.w == nil {
		return errors.ErrTransportNotConnected
	}

	if lw.closed {
		return errors.ErrStdinClosed
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if len(data) == 0 || data[len(data)-1] != '\n' {
		line := make([]byte, len(data)+1)
		copy(line, data)
		line[len(data)] = '\n'
		data = line
	}

	done := make(chan error, 1)

	go func() {
		_, err := lw.w.Write(data)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			lw.log.Error("Write to peer failed", "error", err)

			return &errors.TransportError{Err: fmt.Errorf("write: %w", err)}
		}

		lw.log.Debug("Wrote line to peer", "bytes", len(data))

		return nil

	case <-ctx.Done():
		lw.log.Debug("Write cancelled, closing input pipe")

		_ = lw.w.Close()
		lw.closed = true

		select {
		case <-done:
		case <-time.After(writeAbandonTimeout):
			lw.log.Warn("Blocked write did not return after pipe close")
		}

		return ctx.Err()
	}
}

func (lw *lineWriter) close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.w == nil || lw.closed {
		return nil
	}

	lw.closed = true

	return lw.w.Close()
}

// scanFrames decodes newline-delimited JSON from r onto out until EOF, a
// read error or ctx cancellation. Blank lines are skipped. A line longer
// than MaxLineSize is discarded and reported as a *errors.JSONDecodeError
// frame; reading continues with the next line. It returns the read error,
// or nil on EOF or cancellation.
func scanFrames(ctx context.Context, log *slog.Logger, r io.Reader, out chan<- Frame) error {
	reader := bufio.NewReaderSize(r, 64*1024)

	lines := 0

	for {
		line, truncated, readErr := readLine(reader, MaxLineSize)

		if len(line) > 0 || truncated {
			lines++

			frame := decodeFrame(line, truncated)
			if frame.Err != nil {
				log.Debug("Undecodable line from peer", "error", frame.Err, "line", lines)
			}

			if !emit(ctx, out, frame) {
				return nil
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}

			return fmt.Errorf("read: %w", readErr)
		}
	}
}

func decodeFrame(line []byte, truncated bool) Frame {
	if truncated {
		raw := line[:min(len(line), rawPreviewSize)]

		return Frame{Err: &errors.JSONDecodeError{
			RawData: string(raw),
			Err:     fmt.Errorf("line exceeds %d bytes: %w", MaxLineSize, bufio.ErrTooLong),
		}}
	}

	var data map[string]any
	if err := json.Unmarshal(line, &data); err != nil || data == nil {
		if err == nil {
			err = fmt.Errorf("line is not a JSON object")
		}

		return Frame{Err: &errors.JSONDecodeError{RawData: string(line), Err: err}}
	}

	return Frame{Data: data}
}

// rawPreviewSize caps RawData on an oversized line.
const rawPreviewSize = 256

// readLine returns the next line without its line terminator. At most limit
// bytes are kept; the rest of an oversized line is consumed and dropped,
// and truncated is set. A final line without a newline is returned together
// with io.EOF.
func readLine(r *bufio.Reader, limit int) (line []byte, truncated bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')

		if !truncated {
			if len(line)+len(chunk) > limit+1 {
				truncated = true
				line = append(line, chunk[:max(0, min(len(chunk), limit-len(line)))]...)
			} else {
				line = append(line, chunk...)
			}
		}

		if readErr == bufio.ErrBufferFull {
			continue
		}

		line = bytes.TrimSuffix(line, []byte("\n"))
		line = bytes.TrimSuffix(line, []byte("\r"))

		return line, truncated, readErr
	}
}

// emit delivers a frame unless ctx ends first.
func emit(ctx context.Context, out chan<- Frame, frame Frame) bool {
	select {
	case out <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}
