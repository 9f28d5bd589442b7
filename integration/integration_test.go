//go:build integration

package integration

import (
	"context"
	"errors"
	"strings"
	"testing"

	claudesession "github.com/wagiedev/claude-session-go"
)

// streamArgs put the CLI into the stream-json control protocol.
var streamArgs = []string{
	"--input-format", "stream-json",
	"--output-format", "stream-json",
	"--verbose",
	"--model", "haiku",
}

// skipIfCLINotInstalled skips the test if the error indicates the CLI is not found.
func skipIfCLINotInstalled(t *testing.T, err error) {
	t.Helper()

	if _, ok := errors.AsType[*claudesession.CLINotFoundError](err); ok {
		t.Skip("Claude CLI not installed")
	}
}

// startSession starts and initializes a session against the real CLI.
// Extra CLI flags are appended to streamArgs.
func startSession(
	ctx context.Context,
	t *testing.T,
	extraArgs []string,
	opts ...claudesession.Option,
) claudesession.Session {
	t.Helper()

	args := append(append([]string(nil), streamArgs...), extraArgs...)
	opts = append([]claudesession.Option{claudesession.WithCommand("claude", args...)}, opts...)

	session := claudesession.New(opts...)
	t.Cleanup(func() { _ = session.Stop() })

	if err := session.Start(ctx); err != nil {
		skipIfCLINotInstalled(t, err)
		t.Fatalf("Start failed: %v", err)
	}

	if _, err := session.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	return session
}

// collectTurn drains one turn and returns the assistant text and the result.
func collectTurn(ctx context.Context, t *testing.T, session claudesession.Session) (string, *claudesession.ResultMessage) {
	t.Helper()

	var (
		text   strings.Builder
		result *claudesession.ResultMessage
	)

	for msg, err := range session.ReceiveResponse(ctx) {
		if err != nil {
			t.Fatalf("ReceiveResponse failed: %v", err)
		}

		switch m := msg.(type) {
		case *claudesession.AssistantMessage:
			text.WriteString(m.TextContent())
		case *claudesession.ResultMessage:
			result = m
		}
	}

	return text.String(), result
}

// contains42 checks if a string contains "42" in various formats.
func contains42(s string) bool {
	lower := strings.ToLower(s)

	return strings.Contains(lower, "42") ||
		strings.Contains(lower, "forty-two") ||
		strings.Contains(lower, "forty two")
}
