package claudesession

import (
	"io"
	"log/slog"

	"github.com/wagiedev/claude-session-go/internal/transport"
)

// Transport carries newline-delimited JSON between the session and the
// peer. Implement it to run a session over something other than a child
// process, or to script a peer in tests.
type Transport = transport.Transport

// Frame is one decoded inbound line, or a read failure.
type Frame = transport.Frame

// ProcessConfig describes the peer process of the default transport.
type ProcessConfig = transport.ProcessConfig

// NewStreamTransport returns a transport over an already connected reader
// and writer, such as a socket or a pair of pipes. Close closes both.
func NewStreamTransport(log *slog.Logger, r io.Reader, w io.WriteCloser) Transport {
	if log == nil {
		log = NopLogger()
	}

	return transport.NewStreamTransport(log, r, w)
}

// NewProcessTransport returns a transport that runs the peer as a child
// process.
func NewProcessTransport(log *slog.Logger, cfg ProcessConfig) Transport {
	if log == nil {
		log = NopLogger()
	}

	return transport.NewProcessTransport(log, cfg)
}
