package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, principalID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("principal_id", principalID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLoginSucceeded logs admin.auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	payload := map[string]any{
		"kind":          event.Kind,
		"email":         event.Email,
		"ip":            event.IP,
		"second_factor": event.SecondFactor,
		"metadata":      event.Metadata,
	}
	p.logEvent("admin.auth.login.succeeded", event.PrincipalID, event.At, payload)
	return nil
}

// PublishLoginFailed logs admin.auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	payload := map[string]any{
		"kind":     event.Kind,
		"email":    event.Email,
		"ip":       event.IP,
		"stage":    event.Stage,
		"reason":   event.Reason,
		"metadata": event.Metadata,
	}
	p.logEvent("admin.auth.login.failed", event.PrincipalID, event.At, payload)
	return nil
}

// PublishLockoutTriggered logs admin.auth.lockout.triggered events.
func (p *StubPublisher) PublishLockoutTriggered(_ context.Context, event domain.LockoutTriggeredEvent) error {
	payload := map[string]any{
		"kind":         event.Kind,
		"scope":        event.Scope,
		"locked_until": event.LockedUntil,
		"metadata":     event.Metadata,
	}
	p.logEvent("admin.auth.lockout.triggered", event.PrincipalID, event.At, payload)
	return nil
}

// PublishCodeDispatched logs admin.auth.code.dispatched events.
func (p *StubPublisher) PublishCodeDispatched(_ context.Context, event domain.CodeDispatchedEvent) error {
	payload := map[string]any{
		"kind":        event.Kind,
		"destination": event.Destination,
		"expires_at":  event.ExpiresAt,
		"metadata":    event.Metadata,
	}
	p.logEvent("admin.auth.code.dispatched", event.PrincipalID, event.At, payload)
	return nil
}

// PublishSessionRevoked logs admin.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"kind":     event.Kind,
		"reason":   event.Reason,
		"metadata": event.Metadata,
	}
	p.logEvent("admin.session.revoked", event.PrincipalID, event.At, payload)
	return nil
}

// PublishPasswordResetRequested logs admin.auth.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"kind":               event.Kind,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent("admin.auth.password.reset_requested", event.PrincipalID, event.At, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
