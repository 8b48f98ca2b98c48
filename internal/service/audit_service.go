package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/book-store-service/internal/events"
)

// AuditService writes an audit log line for every session and account event.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleEvent)
	a.dispatcher.Subscribe(events.EventSessionStarted, a.handleEvent)
	a.dispatcher.Subscribe(events.EventSessionRefreshed, a.handleEvent)
	a.dispatcher.Subscribe(events.EventSessionEnded, a.handleEvent)
	a.dispatcher.Subscribe(events.EventSessionTerminated, a.handleSessionTerminated)
	a.dispatcher.Subscribe(events.EventTokenRevoked, a.handleTokenRevoked)
}

func (a *AuditService) handleEvent(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), baseFields(event)...)
	return nil
}

func (a *AuditService) handleSessionTerminated(_ context.Context, event events.Event) error {
	fields := baseFields(event)
	if payload, ok := event.Payload.(events.SessionTerminatedPayload); ok {
		fields = append(fields, zap.String("reason", payload.Reason))
	}
	a.logger.Warn(string(event.Type), fields...)
	return nil
}

func (a *AuditService) handleTokenRevoked(_ context.Context, event events.Event) error {
	fields := baseFields(event)
	if payload, ok := event.Payload.(events.TokenRevokedPayload); ok {
		fields = append(fields,
			zap.String("token_id", payload.TokenID),
			zap.String("kind", string(payload.Kind)),
			zap.Time("expires_at", payload.ExpiresAt))
	}
	a.logger.Info(string(event.Type), fields...)
	return nil
}

func baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.Time("at", event.Timestamp),
	}
}
