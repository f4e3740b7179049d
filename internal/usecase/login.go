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

const (
	lockScopePassword = "password"
	lockScopeCode     = "code"

	stagePassword     = "password"
	stageSecondFactor = "second_factor"

	// casRetries bounds the re-read/retry loop when a concurrent request for
	// the same principal wins the compare-and-set race.
	casRetries = 3
)

// LoginStatus reports how far a login attempt progressed.
type LoginStatus string

const (
	// StatusNeedsSecondFactor means the password was accepted and a one-time
	// code has been dispatched.
	StatusNeedsSecondFactor LoginStatus = "needs_second_factor"
	// StatusAuthenticated means a session token was issued.
	StatusAuthenticated LoginStatus = "authenticated"
)

// LoginInput carries the fields for a password submission.
type LoginInput struct {
	Kind     domain.AccountKind
	Email    string
	Password string
	IP       string
}

// VerifyInput carries the fields for a second-factor submission.
type VerifyInput struct {
	Kind  domain.AccountKind
	Email string
	Code  string
	IP    string
}

// LoginResult describes a successful transition out of either login step.
// Token and ExpiresAt are set only when Status is StatusAuthenticated.
type LoginResult struct {
	Status      LoginStatus
	Token       string
	ExpiresAt   time.Time
	Principal   domain.Principal
	MaskedPhone string
}

// LoginService orchestrates the two-step login protocol: password check with
// progressive lockout, one-time-code second factor with its own lockout and
// send cooldown, then session issuance.
//
// Every state transition is written back through an optimistic compare-and-set
// so concurrent submissions for the same principal cannot lose counter
// updates; on conflict the whole decision is re-derived from a fresh read.
type LoginService struct {
	cfg        *config.AppConfig
	principals port.PrincipalRepository
	channel    port.MessagingChannel
	sessions   *SessionService
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time

	passwordLockout LockoutPolicy
	codeLockout     LockoutPolicy
}

// NewLoginService constructs a LoginService instance.
func NewLoginService(
	cfg *config.AppConfig,
	principals port.PrincipalRepository,
	channel port.MessagingChannel,
	sessions *SessionService,
	events port.EventPublisher,
	log *zap.Logger,
) *LoginService {
	if log == nil {
		log = zap.NewNop()
	}

	passwordPolicy := LockoutPolicy{MaxAttempts: cfg.Auth.PasswordMaxAttempts, LockDuration: cfg.Auth.PasswordLockDuration}
	if passwordPolicy.MaxAttempts <= 0 {
		passwordPolicy.MaxAttempts = 5
	}
	if passwordPolicy.LockDuration <= 0 {
		passwordPolicy.LockDuration = 15 * time.Minute
	}

	codePolicy := LockoutPolicy{MaxAttempts: cfg.Auth.CodeMaxAttempts, LockDuration: cfg.Auth.CodeLockDuration}
	if codePolicy.MaxAttempts <= 0 {
		codePolicy.MaxAttempts = 5
	}
	if codePolicy.LockDuration <= 0 {
		codePolicy.LockDuration = 30 * time.Minute
	}

	return &LoginService{
		cfg:             cfg,
		principals:      principals,
		channel:         channel,
		sessions:        sessions,
		events:          events,
		logger:          log,
		now:             time.Now,
		passwordLockout: passwordPolicy,
		codeLockout:     codePolicy,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *LoginService) WithClock(clock func() time.Time) *LoginService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login validates the password step. On success it either dispatches a
// one-time code (second factor required) or issues a session directly.
func (s *LoginService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if input.Kind != domain.KindAdministrator && input.Kind != domain.KindManager {
		return nil, fmt.Errorf("account kind is required")
	}

	for attempt := 0; ; attempt++ {
		principal, err := s.principals.GetByEmail(ctx, input.Kind, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Unknown email and wrong password are indistinguishable to
				// the caller.
				return nil, ErrInvalidCredentials
			}
			return nil, fmt.Errorf("lookup principal: %w", err)
		}
		if !principal.Active {
			return nil, ErrInvalidCredentials
		}

		now := s.now()

		if s.passwordLockout.IsLocked(principal.PasswordLockedUntil, now) {
			return nil, newLockedError(ErrAccountLocked, s.passwordLockout.RetryAfter(principal.PasswordLockedUntil, now))
		}

		check, err := security.CheckPassword(principal.PasswordHash, input.Password)
		if err != nil {
			return nil, fmt.Errorf("verify password: %w", err)
		}

		switch check {
		case security.PasswordNotConfigured:
			return nil, ErrAccountNotConfigured

		case security.PasswordMismatch:
			state := domain.AuthStateOf(*principal)
			state.PasswordFailCount, state.PasswordLockedUntil = s.passwordLockout.RecordFailure(principal.PasswordFailCount, now)

			if err := s.principals.UpdateAuthState(ctx, principal.ID, principal.Version, state); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) && attempt < casRetries-1 {
					continue
				}
				return nil, fmt.Errorf("record password failure: %w", err)
			}

			s.publishLoginFailed(ctx, principal, input.IP, stagePassword, "invalid_credentials", now)
			if state.PasswordLockedUntil != nil {
				s.publishLockout(ctx, principal, lockScopePassword, *state.PasswordLockedUntil, now)
			}
			return nil, ErrInvalidCredentials
		}

		// Password accepted.
		if principal.SecondFactorRequired {
			result, err := s.issueCode(ctx, principal, now)
			if err != nil {
				if errors.Is(err, repository.ErrVersionConflict) && attempt < casRetries-1 {
					continue
				}
				return nil, err
			}
			return result, nil
		}

		result, err := s.issueSession(ctx, principal, input.IP, now, false)
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) && attempt < casRetries-1 {
				continue
			}
			return nil, err
		}
		return result, nil
	}
}

// VerifySecondFactor validates a submitted one-time code (or a TOTP code when
// an authenticator secret is enrolled) and issues a session on acceptance.
func (s *LoginService) VerifySecondFactor(ctx context.Context, input VerifyInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	code := strings.TrimSpace(input.Code)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	if input.Kind != domain.KindAdministrator && input.Kind != domain.KindManager {
		return nil, fmt.Errorf("account kind is required")
	}

	for attempt := 0; ; attempt++ {
		principal, err := s.principals.GetByEmail(ctx, input.Kind, email)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidCredentials
			}
			return nil, fmt.Errorf("lookup principal: %w", err)
		}
		if !principal.Active {
			return nil, ErrInvalidCredentials
		}

		now := s.now()

		if s.codeLockout.IsLocked(principal.CodeLockedUntil, now) {
			return nil, newLockedError(ErrCodeLocked, s.codeLockout.RetryAfter(principal.CodeLockedUntil, now))
		}

		// An authenticator code is only an alternative way to answer an
		// outstanding challenge. Without a stored pending code there is no
		// challenge, and enrollment alone must not shortcut the password step.
		if principal.PendingCode != nil && principal.TOTPSecret != nil && security.ValidateTOTP(*principal.TOTPSecret, code) {
			result, err := s.issueSession(ctx, principal, input.IP, now, true)
			if err != nil {
				if errors.Is(err, repository.ErrVersionConflict) && attempt < casRetries-1 {
					continue
				}
				return nil, err
			}
			return result, nil
		}

		// Expiry is checked before the code value. now == expiresAt counts as
		// expired. The source system counted expired submissions toward the
		// code lockout; that behavior is kept.
		expired := principal.PendingCode == nil ||
			principal.PendingCodeExpiresAt == nil ||
			!principal.PendingCodeExpiresAt.After(now)

		if expired || strings.TrimSpace(*principal.PendingCode) != code {
			state := domain.AuthStateOf(*principal)
			state.CodeFailCount, state.CodeLockedUntil = s.codeLockout.RecordFailure(principal.CodeFailCount, now)

			if err := s.principals.UpdateAuthState(ctx, principal.ID, principal.Version, state); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) && attempt < casRetries-1 {
					continue
				}
				return nil, fmt.Errorf("record code failure: %w", err)
			}

			reason := "code_invalid"
			outcome := ErrCodeInvalid
			if expired {
				reason = "code_expired"
				outcome = ErrCodeExpired
			}
			s.publishLoginFailed(ctx, principal, input.IP, stageSecondFactor, reason, now)
			if state.CodeLockedUntil != nil {
				s.publishLockout(ctx, principal, lockScopeCode, *state.CodeLockedUntil, now)
			}
			return nil, outcome
		}

		result, err := s.issueSession(ctx, principal, input.IP, now, true)
		if err != nil {
			if errors.Is(err, repository.ErrVersionConflict) && attempt < casRetries-1 {
				continue
			}
			return nil, err
		}
		return result, nil
	}
}

// Logout revokes the session for the supplied token. It reports success even
// when the token matched nothing, so callers cannot probe session existence.
func (s *LoginService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// issueCode stores a fresh one-time code under compare-and-set and then hands
// it to the messaging channel. The code is durably stored before dispatch so a
// crash mid-send still allows a later re-issue. The password check already
// succeeded by the time this runs, so the password lockout is reset even when
// issuance stops on a cooldown or a missing phone number. Code lockout state
// is deliberately left alone: locks persist across reissue.
func (s *LoginService) issueCode(ctx context.Context, principal *domain.Principal, now time.Time) (*LoginResult, error) {
	if !principal.HasContactPhone() {
		if err := s.clearPasswordFailures(ctx, principal); err != nil {
			return nil, err
		}
		return nil, ErrNoContactMethod
	}

	cooldown := s.cfg.Auth.CodeSendCooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	if principal.LastCodeSentAt != nil {
		if elapsed := now.Sub(*principal.LastCodeSentAt); elapsed < cooldown {
			if err := s.clearPasswordFailures(ctx, principal); err != nil {
				return nil, err
			}
			return nil, newLockedError(ErrSendCooldown, cooldown-elapsed)
		}
	}

	codeTTL := s.cfg.Auth.CodeTTL
	if codeTTL <= 0 {
		codeTTL = 5 * time.Minute
	}

	code, err := security.GenerateOneTimeCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	expiresAt := now.Add(codeTTL)
	state := domain.AuthStateOf(*principal)
	state.PasswordFailCount, state.PasswordLockedUntil = s.passwordLockout.RecordSuccess()
	state.PendingCode = &code
	state.PendingCodeExpiresAt = &expiresAt
	sentAt := now
	state.LastCodeSentAt = &sentAt

	if err := s.principals.UpdateAuthState(ctx, principal.ID, principal.Version, state); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("store one-time code: %w", err)
	}

	phone := strings.TrimSpace(*principal.Phone)
	body := fmt.Sprintf("Your VitaLink verification code is %s. It expires in %d minutes.", code, int(codeTTL.Minutes()))
	if err := s.channel.Send(ctx, phone, body); err != nil {
		// The stored code stays in place so the principal can retry delivery.
		s.logger.Error("one-time code dispatch failed",
			zap.String("principal_id", principal.ID),
			zap.String("destination", logger.MaskPhone(phone)),
			zap.Error(err),
		)
		return nil, ErrCodeDispatchFailed
	}

	if s.events != nil {
		_ = s.events.PublishCodeDispatched(ctx, domain.CodeDispatchedEvent{
			PrincipalID: principal.ID,
			Kind:        principal.Kind,
			Destination: logger.MaskPhone(phone),
			ExpiresAt:   expiresAt.UTC(),
			At:          now.UTC(),
		})
	}

	sanitized := *principal
	sanitized.PasswordHash = ""

	return &LoginResult{
		Status:      StatusNeedsSecondFactor,
		Principal:   sanitized,
		MaskedPhone: logger.MaskPhone(phone),
	}, nil
}

// clearPasswordFailures persists the password lockout reset when code issuance
// stops before its own compare-and-set write. Version conflicts are returned
// unwrapped so the Login retry loop re-reads and tries again.
func (s *LoginService) clearPasswordFailures(ctx context.Context, principal *domain.Principal) error {
	if principal.PasswordFailCount == 0 && principal.PasswordLockedUntil == nil {
		return nil
	}

	state := domain.AuthStateOf(*principal)
	state.PasswordFailCount, state.PasswordLockedUntil = s.passwordLockout.RecordSuccess()

	if err := s.principals.UpdateAuthState(ctx, principal.ID, principal.Version, state); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("reset password failures: %w", err)
	}
	return nil
}

// issueSession writes the success state in a single compare-and-set: lockout
// reset, pending-code cleanup, the new token overwriting any prior session,
// and the audit fields.
func (s *LoginService) issueSession(ctx context.Context, principal *domain.Principal, ip string, now time.Time, secondFactor bool) (*LoginResult, error) {
	token, err := s.sessions.NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	hadSession := principal.HasActiveSession(now)
	expiresAt := now.Add(s.sessions.TTLFor(principal.Kind))

	state := domain.AuthStateOf(*principal)
	state.PasswordFailCount, state.PasswordLockedUntil = s.passwordLockout.RecordSuccess()
	if secondFactor {
		state.CodeFailCount, state.CodeLockedUntil = s.codeLockout.RecordSuccess()
		state.PendingCode = nil
		state.PendingCodeExpiresAt = nil
	}
	state.SessionToken = &token
	state.SessionExpiresAt = &expiresAt
	loginAt := now
	state.LastLoginAt = &loginAt
	if ip = strings.TrimSpace(ip); ip != "" {
		state.LastLoginIP = &ip
	}

	if err := s.principals.UpdateAuthState(ctx, principal.ID, principal.Version, state); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("issue session: %w", err)
	}

	if s.events != nil {
		if hadSession {
			_ = s.events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
				PrincipalID: principal.ID,
				Kind:        principal.Kind,
				Reason:      "superseded",
				At:          now.UTC(),
			})
		}
		_ = s.events.PublishLoginSucceeded(ctx, domain.LoginSucceededEvent{
			PrincipalID:  principal.ID,
			Kind:         principal.Kind,
			Email:        logger.MaskEmail(principal.Email),
			IP:           logger.MaskIP(ip),
			SecondFactor: secondFactor,
			At:           now.UTC(),
		})
	}

	sanitized := *principal
	sanitized.PasswordHash = ""
	sanitized.SessionToken = &token
	sanitized.SessionExpiresAt = &expiresAt

	return &LoginResult{
		Status:    StatusAuthenticated,
		Token:     token,
		ExpiresAt: expiresAt,
		Principal: sanitized,
	}, nil
}

func (s *LoginService) publishLoginFailed(ctx context.Context, principal *domain.Principal, ip, stage, reason string, now time.Time) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishLoginFailed(ctx, domain.LoginFailedEvent{
		PrincipalID: principal.ID,
		Kind:        principal.Kind,
		Email:       logger.MaskEmail(principal.Email),
		IP:          logger.MaskIP(ip),
		Stage:       stage,
		Reason:      reason,
		At:          now.UTC(),
	})
}

func (s *LoginService) publishLockout(ctx context.Context, principal *domain.Principal, scope string, until, now time.Time) {
	if s.events == nil {
		return
	}
	_ = s.events.PublishLockoutTriggered(ctx, domain.LockoutTriggeredEvent{
		PrincipalID: principal.ID,
		Kind:        principal.Kind,
		Scope:       scope,
		LockedUntil: until.UTC(),
		At:          now.UTC(),
	})
}
