package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/infra/config"
	"github.com/ehevelone/vitalink-app/internal/infra/security"
)

// TOTPService manages authenticator enrollment. An enrolled secret lets a
// principal answer the second-factor step with an authenticator code instead
// of waiting for a dispatched one-time code.
type TOTPService struct {
	cfg        *config.AppConfig
	principals port.PrincipalRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewTOTPService constructs a TOTPService instance.
func NewTOTPService(cfg *config.AppConfig, principals port.PrincipalRepository, log *zap.Logger) *TOTPService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TOTPService{cfg: cfg, principals: principals, logger: log, now: time.Now}
}

// Setup generates a fresh secret for the principal, stores it, and returns
// the provisioning URL for the authenticator app. Calling Setup again rotates
// the secret; the previous one stops working immediately.
func (s *TOTPService) Setup(ctx context.Context, principal *domain.Principal) (*security.TOTPProvisioning, error) {
	issuer := s.cfg.Auth.TOTPIssuer
	if issuer == "" {
		issuer = "VitaLink Admin"
	}

	provisioning, err := security.GenerateTOTPSecret(issuer, principal.Email)
	if err != nil {
		return nil, fmt.Errorf("generate authenticator secret: %w", err)
	}

	if err := s.principals.UpdateTOTPSecret(ctx, principal.ID, &provisioning.Secret); err != nil {
		return nil, fmt.Errorf("store authenticator secret: %w", err)
	}

	s.logger.Info("authenticator enrolled", zap.String("principal_id", principal.ID))
	return provisioning, nil
}

// Disable removes the principal's authenticator secret. Subsequent logins
// fall back to dispatched one-time codes.
func (s *TOTPService) Disable(ctx context.Context, principal *domain.Principal) error {
	if err := s.principals.UpdateTOTPSecret(ctx, principal.ID, nil); err != nil {
		return fmt.Errorf("clear authenticator secret: %w", err)
	}
	s.logger.Info("authenticator removed", zap.String("principal_id", principal.ID))
	return nil
}
