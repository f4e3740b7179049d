package port

import (
	"context"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
)

// DeviceRepository persists push-notification device registrations.
type DeviceRepository interface {
	GetByToken(ctx context.Context, deviceToken string) (*domain.Device, error)
	Upsert(ctx context.Context, device domain.Device) (*domain.Device, error)
}

// ClientUserDirectory resolves client users and their agent association.
// Device registration is refused for users without a servicing agent.
type ClientUserDirectory interface {
	ResolveUser(ctx context.Context, email string) (userID string, agentID *string, err error)
}
