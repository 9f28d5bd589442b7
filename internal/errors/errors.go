package errors

import (
	"errors"
	"fmt"
	"time"
)

// SessionError is the base interface for all structured session errors.
type SessionError interface {
	error
	IsSessionError() bool
}

// Compile-time verification that all error types implement SessionError.
var (
	_ SessionError = (*TimeoutError)(nil)
	_ SessionError = (*ClosedError)(nil)
	_ SessionError = (*ControlProtocolError)(nil)
	_ SessionError = (*TransportError)(nil)
	_ SessionError = (*ProcessError)(nil)
	_ SessionError = (*JSONDecodeError)(nil)
	_ SessionError = (*MessageParseError)(nil)
	_ SessionError = (*CallbackError)(nil)
	_ SessionError = (*InternalError)(nil)
	_ SessionError = (*CLINotFoundError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrRequestTimeout indicates a control request received no reply in time.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrConnectionClosed indicates the session stopped, or the transport
	// ended, before a reply arrived.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSessionNotStarted indicates an operation that needs a running read loop.
	ErrSessionNotStarted = errors.New("session not started")

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.New("transport not connected")

	// ErrStdinClosed indicates the write side of the transport was closed.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrOperationCancelled indicates a callback was cancelled by the peer.
	ErrOperationCancelled = errors.New("operation cancelled")

	// ErrUnknownMessageType indicates an event message type the mapper does not know.
	// Consumers may skip these rather than treating them as fatal.
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrNotSupported indicates a control request kind this engine does not serve.
	ErrNotSupported = errors.New("not supported")

	// ErrInboundTaken indicates the transport's inbound stream was already claimed.
	ErrInboundTaken = errors.New("inbound stream already taken")
)

// TimeoutError indicates a host-issued control request timed out.
type TimeoutError struct {
	RequestID string
	Subtype   string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("control request %q (%s) timed out after %s", e.Subtype, e.RequestID, e.Timeout)
}

// Unwrap makes errors.Is(err, ErrRequestTimeout) hold.
func (e *TimeoutError) Unwrap() error { return ErrRequestTimeout }

// IsSessionError implements SessionError.
func (e *TimeoutError) IsSessionError() bool { return true }

// ClosedError is delivered to requests that were pending when the session
// stopped or the transport ended. Cause is the terminal transport failure, if any.
type ClosedError struct {
	Cause error
}

func (e *ClosedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection closed: %v", e.Cause)
	}

	return "connection closed"
}

// Unwrap exposes both ErrConnectionClosed and the underlying cause.
func (e *ClosedError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrConnectionClosed, e.Cause}
	}

	return []error{ErrConnectionClosed}
}

// IsSessionError implements SessionError.
func (e *ClosedError) IsSessionError() bool { return true }

// ControlProtocolError carries an error reply from the peer.
type ControlProtocolError struct {
	RequestID string
	Message   string
}

func (e *ControlProtocolError) Error() string {
	return fmt.Sprintf("control protocol error (request %s): %s", e.RequestID, e.Message)
}

// IsSessionError implements SessionError.
func (e *ControlProtocolError) IsSessionError() bool { return true }

// TransportError indicates the byte channel to the peer broke.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *TransportError) IsSessionError() bool { return true }

// ProcessError indicates the peer process exited abnormally.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("peer process failed (exit %d): %s", e.ExitCode, e.Stderr)
	}

	return fmt.Sprintf("peer process failed (exit %d): %v", e.ExitCode, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *ProcessError) IsSessionError() bool { return true }

// JSONDecodeError indicates one inbound line was not valid JSON.
// The session keeps running after one of these.
type JSONDecodeError struct {
	RawData string
	Err     error
}

func (e *JSONDecodeError) Error() string {
	return fmt.Sprintf("failed to decode JSON line: %v", e.Err)
}

func (e *JSONDecodeError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *JSONDecodeError) IsSessionError() bool { return true }

// MessageParseError indicates a JSON value could not be mapped to an event message.
type MessageParseError struct {
	Message string
	Err     error
	Data    map[string]any
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("failed to parse message: %s", e.Message)
}

func (e *MessageParseError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *MessageParseError) IsSessionError() bool { return true }

// CallbackError indicates a host callback failed or panicked while serving
// a peer-issued control request.
type CallbackError struct {
	Subtype string
	Err     error
	Panic   any
}

func (e *CallbackError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s callback panicked: %v", e.Subtype, e.Panic)
	}

	return fmt.Sprintf("%s callback failed: %v", e.Subtype, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *CallbackError) IsSessionError() bool { return true }

// InternalError reports an invariant violation. It should not occur in correct use.
type InternalError struct {
	Message string
	Err     error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal error: %s: %v", e.Message, e.Err)
	}

	return "internal error: " + e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *InternalError) IsSessionError() bool { return true }

// CLINotFoundError indicates the peer executable could not be located.
type CLINotFoundError struct {
	Path string
	Err  error
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("peer executable %q not found: %v", e.Path, e.Err)
}

func (e *CLINotFoundError) Unwrap() error {
	return e.Err
}

// IsSessionError implements SessionError.
func (e *CLINotFoundError) IsSessionError() bool { return true }
