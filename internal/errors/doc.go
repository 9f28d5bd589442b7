// Package errors defines error types for the session protocol engine.
//
// Failures fall into a small taxonomy: transport failures (terminal for the
// session), decode failures (local to one line), control-protocol failures
// (answered gracefully), per-request timeouts, connection-closed outcomes for
// requests abandoned by Stop, and internal invariant violations. All
// structured types support unwrapping and can be checked with errors.Is,
// errors.As and errors.AsType.
package errors
