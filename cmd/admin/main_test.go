package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"familyeats/backend/internal/api/handler"
	"familyeats/backend/internal/config"
	"familyeats/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCommand(t *testing.T) {
	t.Setenv("MODERATION_AUTH_JWT_SECRET", "cli-secret")
	t.Setenv("MODERATION_AUTH_ISSUER", "familyeats-test")

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"token", "mod-7", "--role", "moderator"})
	require.NoError(t, root.Execute())

	p, err := handler.ParseToken(config.AuthConfig{JWTSecret: "cli-secret", Issuer: "familyeats-test"}, strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "mod-7", p.UserID)
	assert.Equal(t, "moderator", p.Role)
}

func TestTokenCommand_UnknownRole(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"token", "mod-7", "--role", "owner"})
	assert.ErrorContains(t, root.Execute(), `unknown role "owner"`)
}

func TestUserRoleCommand_RejectsUnknownRoleBeforeConnecting(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"user", "role", "u1", "superuser"})
	assert.ErrorContains(t, root.Execute(), "unknown role")
}

func TestUserTelegramCommand_RejectsBadChatIDBeforeConnecting(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"user", "telegram", "admin-1", "@me"})
	assert.ErrorContains(t, root.Execute(), `invalid chat id "@me"`)
}

func TestPrintDecisions(t *testing.T) {
	at := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	var out bytes.Buffer
	require.NoError(t, printDecisions(&out, []models.ModerationDecision{
		{QueueID: "q1", ReviewerID: models.SystemReviewer, Verdict: models.VerdictRemove, ActionTaken: models.ContentRemoved, Notes: "auto-moderation: spam", CreatedAt: at},
		{QueueID: "q2", ReviewerID: "mod-1", Verdict: models.VerdictApprove, CreatedAt: at},
	}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"WHEN", "REVIEWER", "VERDICT", "ACTION", "QUEUE", "NOTES"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2026-10-01T09:30:00Z", "auto-moderation", "remove", "removed", "q1", "auto-moderation:", "spam"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2026-10-01T09:30:00Z", "mod-1", "approve", "-", "q2"}, strings.Fields(lines[2]))
}
