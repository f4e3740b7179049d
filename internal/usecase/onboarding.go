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
	"github.com/ehevelone/vitalink-app/internal/infra/config"
	"github.com/ehevelone/vitalink-app/internal/infra/logger"
	"github.com/ehevelone/vitalink-app/internal/infra/security"
	"github.com/ehevelone/vitalink-app/internal/repository"
)

// ErrAccountExists is returned when an invite targets an email that already
// has an account of the same kind.
var ErrAccountExists = errors.New("account already exists")

// InviteInput describes a new manager account to provision.
type InviteInput struct {
	Email  string
	Name   string
	Region string
	Phone  string
}

// InviteResult reports the provisioned account and its onboarding deadline.
type InviteResult struct {
	PrincipalID    string
	Email          string
	TokenExpiresAt time.Time
}

// CompleteInput carries the fields a manager submits to finish onboarding.
type CompleteInput struct {
	Token    string
	Name     string
	Region   string
	Password string
}

// OnboardingService provisions manager accounts in a credential-less pending
// state and later binds their first password. Accounts cannot log in until
// onboarding completes: the password hash holds a sentinel the verifier
// rejects as not configured.
type OnboardingService struct {
	cfg        *config.AppConfig
	principals port.PrincipalRepository
	mailer     port.Mailer
	validator  *security.PasswordValidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewOnboardingService constructs an OnboardingService instance.
func NewOnboardingService(
	cfg *config.AppConfig,
	principals port.PrincipalRepository,
	mailer port.Mailer,
	validator *security.PasswordValidator,
	log *zap.Logger,
) *OnboardingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &OnboardingService{
		cfg:        cfg,
		principals: principals,
		mailer:     mailer,
		validator:  validator,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *OnboardingService) WithClock(clock func() time.Time) *OnboardingService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Invite creates a pending manager account and emails a one-hour onboarding
// link. The account is created even when the email fails; the invite can be
// re-sent by issuing another one.
func (s *OnboardingService) Invite(ctx context.Context, input InviteInput) (*InviteResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if _, err := s.principals.GetByEmail(ctx, domain.KindManager, email); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	token, err := security.GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate onboard token: %w", err)
	}

	ttl := s.cfg.Auth.OnboardTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	principal := domain.Principal{
		ID:                    uuid.NewString(),
		Kind:                  domain.KindManager,
		Email:                 email,
		Name:                  strings.TrimSpace(input.Name),
		Active:                true,
		PasswordHash:          domain.PasswordHashPendingSetup,
		SecondFactorRequired:  true,
		OnboardToken:          &token,
		OnboardTokenExpiresAt: &expiresAt,
		CreatedAt:             now,
	}
	if region := strings.TrimSpace(input.Region); region != "" {
		principal.Region = &region
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		principal.Phone = &phone
	}

	if err := s.principals.Create(ctx, principal); err != nil {
		return nil, fmt.Errorf("create principal: %w", err)
	}

	link := fmt.Sprintf("%s/onboard?token=%s", strings.TrimRight(s.cfg.App.PortalURL, "/"), token)
	body := fmt.Sprintf(
		"You have been invited to manage a VitaLink region.\n\nFinish setting up your account here:\n%s\n\nThe link expires in %d minutes.",
		link, int(ttl.Minutes()),
	)
	if err := s.mailer.Send(ctx, email, "Your VitaLink manager invitation", body); err != nil {
		s.logger.Error("invite email delivery failed",
			zap.String("principal_id", principal.ID),
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
	}

	return &InviteResult{
		PrincipalID:    principal.ID,
		Email:          email,
		TokenExpiresAt: expiresAt,
	}, nil
}

// Complete redeems an onboarding token: it validates and hashes the chosen
// password, fills in profile fields, and clears the token so the link is
// single-use.
func (s *OnboardingService) Complete(ctx context.Context, input CompleteInput) (*domain.Principal, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return nil, ErrOnboardTokenInvalid
	}

	principal, err := s.principals.GetByOnboardToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOnboardTokenInvalid
		}
		return nil, fmt.Errorf("lookup onboard token: %w", err)
	}
	if principal.OnboardTokenExpiresAt == nil || !principal.OnboardTokenExpiresAt.After(s.now()) {
		return nil, ErrOnboardTokenExpired
	}

	if s.validator != nil {
		if err := s.validator.Validate(input.Password); err != nil {
			return nil, err
		}
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = principal.Name
	}
	region := strings.TrimSpace(input.Region)
	if region == "" && principal.Region != nil {
		region = *principal.Region
	}

	if err := s.principals.CompleteOnboarding(ctx, principal.ID, name, region, hash); err != nil {
		return nil, fmt.Errorf("complete onboarding: %w", err)
	}

	principal.Name = name
	if region != "" {
		principal.Region = &region
	}
	principal.PasswordHash = ""
	principal.OnboardToken = nil
	principal.OnboardTokenExpiresAt = nil
	return principal, nil
}
