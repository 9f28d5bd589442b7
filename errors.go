package claudesession

import "github.com/wagiedev/claude-session-go/internal/errors"

// Re-export error types from internal package

// SessionError is the base interface for all structured session errors.
type SessionError = errors.SessionError

type (
	// TimeoutError indicates a control request got no reply in time.
	TimeoutError = errors.TimeoutError
	// ClosedError indicates the session stopped or the peer went away.
	ClosedError = errors.ClosedError
	// ControlProtocolError carries an error reply from the peer.
	ControlProtocolError = errors.ControlProtocolError
	// TransportError indicates a read or write failure on the transport.
	TransportError = errors.TransportError
	// ProcessError indicates the peer process exited abnormally.
	ProcessError = errors.ProcessError
	// JSONDecodeError indicates a line from the peer was not a JSON object.
	JSONDecodeError = errors.JSONDecodeError
	// MessageParseError indicates an event message did not decode.
	MessageParseError = errors.MessageParseError
	// CallbackError indicates a host callback failed or panicked.
	CallbackError = errors.CallbackError
	// CLINotFoundError indicates the peer executable was not found.
	CLINotFoundError = errors.CLINotFoundError
)

// Re-export sentinel errors from internal package.
var (
	// ErrRequestTimeout matches every TimeoutError.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrConnectionClosed matches every ClosedError.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrSessionNotStarted indicates an operation before Start.
	ErrSessionNotStarted = errors.ErrSessionNotStarted

	// ErrTransportNotConnected indicates the transport is not connected.
	ErrTransportNotConnected = errors.ErrTransportNotConnected

	// ErrOperationCancelled indicates the peer cancelled a callback.
	ErrOperationCancelled = errors.ErrOperationCancelled

	// ErrNotSupported indicates a control request this package does not serve.
	ErrNotSupported = errors.ErrNotSupported
)
