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
	"github.com/ehevelone/vitalink-app/internal/infra/logger"
	"github.com/ehevelone/vitalink-app/internal/infra/security"
	"github.com/ehevelone/vitalink-app/internal/repository"
)

// PasswordResetService issues short-lived reset codes and applies confirmed
// password changes. Requests for unknown emails succeed silently so the
// endpoint cannot be used to enumerate accounts.
type PasswordResetService struct {
	cfg        *config.AppConfig
	principals port.PrincipalRepository
	channel    port.MessagingChannel
	mailer     port.Mailer
	events     port.EventPublisher
	validator  *security.PasswordValidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService instance.
func NewPasswordResetService(
	cfg *config.AppConfig,
	principals port.PrincipalRepository,
	channel port.MessagingChannel,
	mailer port.Mailer,
	events port.EventPublisher,
	validator *security.PasswordValidator,
	log *zap.Logger,
) *PasswordResetService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordResetService{
		cfg:        cfg,
		principals: principals,
		channel:    channel,
		mailer:     mailer,
		events:     events,
		validator:  validator,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *PasswordResetService) WithClock(clock func() time.Time) *PasswordResetService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// RequestReset stores a fresh reset code for the account and delivers it over
// SMS when a phone is on file, by email otherwise. A destination hint for the
// caller is returned; it is empty when no account matched.
func (s *PasswordResetService) RequestReset(ctx context.Context, kind domain.AccountKind, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("email is required")
	}

	principal, err := s.principals.GetByEmail(ctx, kind, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup principal: %w", err)
	}
	if !principal.Active {
		return "", nil
	}

	code, err := security.GenerateOneTimeCode()
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}

	ttl := s.cfg.Auth.ResetCodeTTL
	if ttl <= 0 {
		ttl = 20 * time.Minute
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	if err := s.principals.UpdateResetCode(ctx, principal.ID, &code, &expiresAt); err != nil {
		return "", fmt.Errorf("store reset code: %w", err)
	}

	destination, err := s.deliver(ctx, principal, code, ttl)
	if err != nil {
		s.logger.Error("reset code delivery failed",
			zap.String("principal_id", principal.ID),
			zap.Error(err),
		)
		return "", ErrCodeDispatchFailed
	}

	if s.events != nil {
		_ = s.events.PublishPasswordResetRequested(ctx, domain.PasswordResetRequestedEvent{
			PrincipalID:       principal.ID,
			Kind:              principal.Kind,
			MaskedDestination: destination,
			ExpiresAt:         expiresAt.UTC(),
			At:                now.UTC(),
		})
	}

	return destination, nil
}

// ConfirmReset validates the submitted code and replaces the password. The
// stored reset code is cleared on success so it cannot be replayed, and any
// live session is revoked.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, kind domain.AccountKind, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrResetCodeInvalid
	}

	principal, err := s.principals.GetByEmail(ctx, kind, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetCodeInvalid
		}
		return fmt.Errorf("lookup principal: %w", err)
	}
	if !principal.Active {
		return ErrResetCodeInvalid
	}

	if principal.ResetCode == nil || strings.TrimSpace(*principal.ResetCode) != code {
		return ErrResetCodeInvalid
	}
	if principal.ResetExpiresAt == nil || !principal.ResetExpiresAt.After(s.now()) {
		return ErrResetCodeExpired
	}

	if s.validator != nil {
		if err := s.validator.Validate(newPassword); err != nil {
			return err
		}
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.principals.UpdatePassword(ctx, principal.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.principals.UpdateResetCode(ctx, principal.ID, nil, nil); err != nil {
		return fmt.Errorf("clear reset code: %w", err)
	}

	if principal.SessionToken != nil {
		if err := s.principals.ClearSessionByToken(ctx, *principal.SessionToken); err != nil {
			return fmt.Errorf("revoke session after reset: %w", err)
		}
		if s.events != nil {
			_ = s.events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
				PrincipalID: principal.ID,
				Kind:        principal.Kind,
				Reason:      "password_reset",
				At:          s.now().UTC(),
			})
		}
	}

	return nil
}

func (s *PasswordResetService) deliver(ctx context.Context, principal *domain.Principal, code string, ttl time.Duration) (string, error) {
	minutes := int(ttl.Minutes())
	if principal.HasContactPhone() && s.channel != nil {
		phone := strings.TrimSpace(*principal.Phone)
		body := fmt.Sprintf("Your VitaLink password reset code is %s. It expires in %d minutes.", code, minutes)
		if err := s.channel.Send(ctx, phone, body); err != nil {
			return "", err
		}
		return logger.MaskPhone(phone), nil
	}

	if s.mailer == nil {
		return "", ErrNoContactMethod
	}
	body := fmt.Sprintf(
		"We received a request to reset your VitaLink password.\n\nYour reset code is %s. It expires in %d minutes.\n\nIf you did not request this, you can ignore this message.",
		code, minutes,
	)
	if err := s.mailer.Send(ctx, principal.Email, "VitaLink password reset", body); err != nil {
		return "", err
	}
	return logger.MaskEmail(principal.Email), nil
}
