package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/infra/logger"
	"github.com/ehevelone/vitalink-app/internal/repository"
)

// ErrNoServicingAgent is returned when a client user has no agent assigned;
// push registration is pointless without someone to notify.
var ErrNoServicingAgent = errors.New("user has no servicing agent")

// RegisterDeviceInput identifies a client user and the push token to bind.
type RegisterDeviceInput struct {
	Email       string
	DeviceToken string
	Platform    string
}

// DeviceService binds client push-notification tokens to users. A device
// token is unique across the fleet: re-registering an existing token moves it
// to the submitting user.
type DeviceService struct {
	devices   port.DeviceRepository
	directory port.ClientUserDirectory
	logger    *zap.Logger
	now       func() time.Time
}

// NewDeviceService constructs a DeviceService instance.
func NewDeviceService(devices port.DeviceRepository, directory port.ClientUserDirectory, log *zap.Logger) *DeviceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceService{devices: devices, directory: directory, logger: log, now: time.Now}
}

// WithClock overrides the internal clock, used in tests.
func (s *DeviceService) WithClock(clock func() time.Time) *DeviceService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Register upserts the device token for the user behind the given email.
func (s *DeviceService) Register(ctx context.Context, input RegisterDeviceInput) (*domain.Device, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	token := strings.TrimSpace(input.DeviceToken)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if token == "" {
		return nil, fmt.Errorf("device token is required")
	}

	userID, agentID, err := s.directory.ResolveUser(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	if agentID == nil || strings.TrimSpace(*agentID) == "" {
		return nil, ErrNoServicingAgent
	}

	now := s.now()
	device := domain.Device{
		ID:          uuid.NewString(),
		UserID:      userID,
		AgentID:     *agentID,
		DeviceToken: token,
		Platform:    strings.ToLower(strings.TrimSpace(input.Platform)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	stored, err := s.devices.Upsert(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("store device: %w", err)
	}

	s.logger.Info("device registered",
		zap.String("user_id", userID),
		zap.String("platform", stored.Platform),
		zap.String("email", logger.MaskEmail(email)),
	)
	return stored, nil
}
