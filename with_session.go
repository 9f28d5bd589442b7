package claudesession

import (
	"context"
	"fmt"
)

// WithSession manages the session lifecycle with automatic cleanup.
//
// It creates a session, starts it, performs the initialize handshake, runs
// fn, and stops the session when fn returns. A Stop failure is logged and
// does not override fn's error.
//
//	err := claudesession.WithSession(ctx, func(s claudesession.Session) error {
//	    if err := s.Send(ctx, "Hello"); err != nil {
//	        return err
//	    }
//	    for msg, err := range s.ReceiveResponse(ctx) {
//	        if err != nil {
//	            return err
//	        }
//	        // process message...
//	    }
//	    return nil
//	},
//	    claudesession.WithLogger(log),
//	)
func WithSession(ctx context.Context, fn func(Session) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	log := applyOptions(opts).Logger
	if log == nil {
		log = NopLogger()
	}

	session := New(opts...)

	defer func() {
		if err := session.Stop(); err != nil {
			log.Warn("failed to stop session", "error", err)
		}
	}()

	if err := session.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	if _, err := session.Initialize(ctx); err != nil {
		return err
	}

	return fn(session)
}
