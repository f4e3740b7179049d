package port

import (
	"context"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
)

// EventPublisher publishes authentication lifecycle events to the message bus.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishLockoutTriggered(ctx context.Context, event domain.LockoutTriggeredEvent) error
	PublishCodeDispatched(ctx context.Context, event domain.CodeDispatchedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
}
