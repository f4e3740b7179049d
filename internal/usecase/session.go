package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/core/port"
	"github.com/ehevelone/vitalink-app/internal/infra/config"
	"github.com/ehevelone/vitalink-app/internal/infra/security"
	"github.com/ehevelone/vitalink-app/internal/repository"
)

// SessionService issues, validates, and revokes opaque session tokens.
//
// Exactly one session may be live per principal: issuance overwrites the
// previous token in place, so the old value stops validating the moment a new
// login completes.
type SessionService struct {
	cfg        *config.AppConfig
	principals port.PrincipalRepository
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(cfg *config.AppConfig, principals port.PrincipalRepository, events port.EventPublisher, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		cfg:        cfg,
		principals: principals,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *SessionService) WithClock(clock func() time.Time) *SessionService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// TTLFor returns the session lifetime for the given account kind:
// administrators get a short working-day session, regional managers a
// week-long one.
func (s *SessionService) TTLFor(kind domain.AccountKind) time.Duration {
	if kind == domain.KindManager {
		if ttl := s.cfg.Auth.ManagerSessionTTL; ttl > 0 {
			return ttl
		}
		return 7 * 24 * time.Hour
	}
	if ttl := s.cfg.Auth.AdminSessionTTL; ttl > 0 {
		return ttl
	}
	return 8 * time.Hour
}

// NewToken generates a fresh opaque session token.
func (s *SessionService) NewToken() (string, error) {
	return security.GenerateSessionToken()
}

// Validate resolves a session token to its principal. An expired session is
// reported distinctly from an unknown token; both are rejected.
func (s *SessionService) Validate(ctx context.Context, token string) (*domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrSessionInvalid
	}

	principal, err := s.principals.GetBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	if principal.SessionExpiresAt == nil || !principal.SessionExpiresAt.After(s.now()) {
		return nil, ErrSessionExpired
	}

	return principal, nil
}

// Revoke clears the session matching the token. Revoking an unknown or
// already-cleared token is a no-op, not an error, so logout never leaks
// whether a session existed.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	principal, err := s.principals.GetBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	if err := s.principals.ClearSessionByToken(ctx, token); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	if s.events != nil {
		_ = s.events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
			PrincipalID: principal.ID,
			Kind:        principal.Kind,
			Reason:      "logout",
			At:          s.now().UTC(),
		})
	}

	return nil
}
