// Package transport provides the duplex line channel between the session
// engine and its peer: a subprocess transport speaking over stdio and a
// stream transport over any reader/writer pair.
package transport

import "context"

// Frame is one inbound item. Exactly one of Data and Err is set.
//
// A Frame whose Err is an *errors.JSONDecodeError reports a single bad
// line; reading continues after it. Any other Err is terminal and is the
// last frame before the channel closes. A channel closed without a
// terminal frame means clean EOF.
type Frame struct {
	Data map[string]any
	Err  error
}

// Transport is the engine's view of the peer connection.
type Transport interface {
	// Connect establishes the connection. It is called once, before any
	// other method.
	Connect(ctx context.Context) error

	// Write sends one JSON value as a line. A trailing newline is added if
	// missing. Safe for concurrent use; concurrent lines never interleave.
	Write(ctx context.Context, data []byte) error

	// ReadFrames hands over the inbound stream. It may be called once; a
	// second call fails with an error wrapping errors.ErrInboundTaken.
	// The reader stops and closes the channel when ctx is cancelled.
	ReadFrames(ctx context.Context) (<-chan Frame, error)

	// EndInput closes the write side, signalling no more input.
	EndInput() error

	// Close releases the connection. Safe to call more than once.
	Close() error

	// IsReady reports whether the transport is connected and writable.
	IsReady() bool
}
