// Package protocol is the session engine for the peer control protocol.
//
// A Session owns one transport. Its read loop classifies every inbound
// line and routes it:
//   - control_response lines resolve the matching request in the Correlator
//   - control_request lines go to the Dispatcher, whose result is written
//     back as a control_response with the same request id
//   - control_cancel_request lines cancel the callback serving that request
//   - anything else is decoded as an event message and sent to Events
//
// Example usage:
//
//	tr := transport.NewProcessTransport(log, transport.ProcessConfig{Command: "claude"})
//	session := protocol.NewSession(log, tr, opts)
//
//	if err := session.Start(ctx); err != nil {
//		return err
//	}
//	defer session.Stop()
//
//	if _, err := session.Initialize(ctx); err != nil {
//		return err
//	}
//
//	_, err := session.SendControlRequest(ctx, wire.SubtypeInterrupt, nil)
package protocol
