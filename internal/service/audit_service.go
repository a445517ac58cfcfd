package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/mdd-api/internal/events"
)

// AuditService writes an audit trail of account and authentication events.
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
	a.dispatcher.Subscribe(events.EventUserRegistered, a.handleUserRegistered)
	a.dispatcher.Subscribe(events.EventUserLoggedIn, a.handleUserLoggedIn)
	a.dispatcher.Subscribe(events.EventProfileUpdated, a.handleProfileUpdated)
	a.dispatcher.Subscribe(events.EventAuthRejected, a.handleAuthRejected)
}

func (a *AuditService) handleUserRegistered(_ context.Context, event events.Event) error {
	a.logger.Info("UserRegistered", a.fields(event)...)
	return nil
}

func (a *AuditService) handleUserLoggedIn(_ context.Context, event events.Event) error {
	a.logger.Info("UserLoggedIn", a.fields(event)...)
	return nil
}

func (a *AuditService) handleProfileUpdated(_ context.Context, event events.Event) error {
	a.logger.Info("ProfileUpdated", a.fields(event)...)
	return nil
}

func (a *AuditService) handleAuthRejected(_ context.Context, event events.Event) error {
	a.logger.Debug("AuthRejected", a.fields(event)...)
	return nil
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.Int64("user_id", event.Actor.UserID),
		zap.String("subject", event.Actor.Subject),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	}
}
