//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	claudesession "github.com/wagiedev/claude-session-go"
)

func TestControl_SetPermissionMode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	session := startSession(ctx, t, nil)

	require.NoError(t, session.SetPermissionMode(ctx, string(claudesession.PermissionModePlan)))
	require.NoError(t, session.SetPermissionMode(ctx, string(claudesession.PermissionModeDefault)))
}

func TestControl_SetModel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	session := startSession(ctx, t, []string{"--max-turns", "1"})

	model := "sonnet"
	require.NoError(t, session.SetModel(ctx, &model))
	require.NoError(t, session.SetModel(ctx, nil))

	require.NoError(t, session.Send(ctx, "Reply with OK."))

	_, result := collectTurn(ctx, t, session)
	require.NotNil(t, result)
}

func TestControl_InterruptDuringTurn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	session := startSession(ctx, t, []string{"--max-turns", "5"})

	require.NoError(t, session.Send(ctx, "Count slowly from 1 to 200, one number per line."))

	var sawResult bool

	for msg, err := range session.ReceiveResponse(ctx) {
		require.NoError(t, err)

		switch msg.(type) {
		case *claudesession.AssistantMessage:
			if !sawResult {
				require.NoError(t, session.Interrupt(ctx))
			}
		case *claudesession.ResultMessage:
			sawResult = true
		}
	}

	require.True(t, sawResult, "interrupted turn should still end with a result")
}

func TestControl_MCPStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	session := startSession(ctx, t, nil)

	status, err := session.MCPStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, status)
}
