package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/events"
)

func TestAuditServiceLogsEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewAuditService(dispatcher, zap.New(core)).RegisterHandlers()

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventSessionStarted, "u1", at, nil)))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventTokenRevoked, "u1", at,
		events.TokenRevokedPayload{TokenID: "jti-1", Kind: domain.TokenKindRefresh, ExpiresAt: at.Add(time.Hour)})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventSessionTerminated, "u1", at,
		events.SessionTerminatedPayload{Reason: "token_mismatch"})))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, string(events.EventSessionStarted), entries[0].Message)
	assert.Equal(t, "audit", entries[0].LoggerName)
	assert.Equal(t, "u1", entries[0].ContextMap()["user_id"])

	assert.Equal(t, "jti-1", entries[1].ContextMap()["token_id"])
	assert.Equal(t, "refresh", entries[1].ContextMap()["kind"])

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "token_mismatch", entries[2].ContextMap()["reason"])
}

func TestAuditServiceWithoutDispatcher(t *testing.T) {
	assert.NotPanics(t, func() { NewAuditService(nil, nil).RegisterHandlers() })
}
