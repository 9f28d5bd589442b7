// Package claudesession drives the control protocol spoken by an agent CLI
// over stdio.
//
// The peer and the host exchange newline-delimited JSON. Event messages
// (assistant output, results, system notices) flow to the host. Control
// requests flow both ways: the host asks the peer to interrupt, switch
// model or permission mode, while the peer asks the host whether a tool
// may run, invokes registered hooks, and tunnels MCP traffic to in-process
// tool servers.
//
// # Basic Usage
//
//	session := claudesession.New(
//	    claudesession.WithLogger(slog.Default()),
//	    claudesession.WithCommand("claude", "--input-format", "stream-json", "--output-format", "stream-json"),
//	)
//	defer session.Stop()
//
//	if err := session.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := session.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := session.Send(ctx, "What is 2+2?"); err != nil {
//	    log.Fatal(err)
//	}
//
//	for msg, err := range session.ReceiveResponse(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if m, ok := msg.(*claudesession.AssistantMessage); ok {
//	        fmt.Println(m.TextContent())
//	    }
//	}
//
// # Callbacks
//
// WithCanUseTool answers the peer's permission questions, WithHooks
// registers hook callbacks, and WithMCPServer serves tools in process.
// Callbacks run on their own goroutine; their context is cancelled when the
// peer withdraws the request or the session stops.
//
// # Error Handling
//
// Control requests fail with a *TimeoutError (matching ErrRequestTimeout)
// when the peer does not answer in time, and with a *ClosedError (matching
// ErrConnectionClosed) when the session stops or the peer goes away first:
//
//	if err := session.Interrupt(ctx); err != nil {
//	    if errors.Is(err, claudesession.ErrRequestTimeout) {
//	        // peer is busy
//	    }
//	    if procErr, ok := errors.AsType[*claudesession.ProcessError](err); ok {
//	        log.Printf("peer exited with %d: %s", procErr.ExitCode, procErr.Stderr)
//	    }
//	}
package claudesession
