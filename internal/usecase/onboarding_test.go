package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/infra/security"
)

func newOnboardingFixture(t *testing.T, at time.Time, principals ...*domain.Principal) (*OnboardingService, *memPrincipalRepo, *fakeMailer) {
	t.Helper()
	repo := newMemPrincipalRepo(principals...)
	mailer := &fakeMailer{}
	validator := security.NewPasswordValidator(
		security.MinLengthRule(8),
		security.RequireLetterRule(),
		security.RequireDigitRule(),
	)
	service := NewOnboardingService(testAuthConfig(), repo, mailer, validator, nil).WithClock(fixedClock(at))
	return service, repo, mailer
}

func TestOnboardingService_Invite_CreatesPendingAccount(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	service, repo, mailer := newOnboardingFixture(t, now)

	result, err := service.Invite(context.Background(), InviteInput{
		Email:  "Dana@MyVitaLink.app",
		Name:   "Dana",
		Region: "midwest",
		Phone:  "+15551230099",
	})
	if err != nil {
		t.Fatalf("Invite returned error: %v", err)
	}
	if result.Email != "dana@myvitalink.app" {
		t.Fatalf("expected normalized email, got %s", result.Email)
	}
	if !result.TokenExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected one-hour token window, got %v", result.TokenExpiresAt)
	}

	stored := repo.principals[result.PrincipalID]
	if stored == nil {
		t.Fatalf("expected principal persisted")
	}
	if stored.Kind != domain.KindManager {
		t.Fatalf("invites provision managers, got %s", stored.Kind)
	}
	if stored.PasswordHash != domain.PasswordHashPendingSetup {
		t.Fatalf("expected pending-setup sentinel, got %q", stored.PasswordHash)
	}
	if stored.OnboardToken == nil || len(*stored.OnboardToken) != 48 {
		t.Fatalf("expected 48-char hex onboard token, got %v", stored.OnboardToken)
	}
	if !stored.SecondFactorRequired {
		t.Fatalf("managers require the second factor")
	}

	if len(mailer.sent) != 1 {
		t.Fatalf("expected one invite email, got %d", len(mailer.sent))
	}
	if !strings.Contains(mailer.sent[0].body, *stored.OnboardToken) {
		t.Fatalf("invite email must carry the onboarding link token")
	}
}

func TestOnboardingService_Invite_DuplicateEmail(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	existing := &domain.Principal{
		ID:           "mgr-1",
		Kind:         domain.KindManager,
		Email:        "dana@myvitalink.app",
		Active:       true,
		PasswordHash: "some-hash",
	}
	service, _, _ := newOnboardingFixture(t, now, existing)

	_, err := service.Invite(context.Background(), InviteInput{Email: "dana@myvitalink.app"})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestOnboardingService_Invite_SurvivesMailFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	service, repo, mailer := newOnboardingFixture(t, now)
	mailer.err = errors.New("smtp unavailable")

	result, err := service.Invite(context.Background(), InviteInput{Email: "dana@myvitalink.app"})
	if err != nil {
		t.Fatalf("mail failure must not fail the invite, got %v", err)
	}
	if repo.principals[result.PrincipalID] == nil {
		t.Fatalf("expected principal persisted despite mail failure")
	}
}

func pendingManager(now time.Time) *domain.Principal {
	token := "ffeeddccbbaa99887766554433221100ffeeddccbbaa9988"
	expires := now.Add(30 * time.Minute)
	return &domain.Principal{
		ID:                    "mgr-1",
		Kind:                  domain.KindManager,
		Email:                 "dana@myvitalink.app",
		Name:                  "Dana",
		Active:                true,
		Version:               1,
		PasswordHash:          domain.PasswordHashPendingSetup,
		SecondFactorRequired:  true,
		OnboardToken:          &token,
		OnboardTokenExpiresAt: &expires,
	}
}

func TestOnboardingService_Complete_SetsPasswordAndConsumesToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := pendingManager(now)
	service, repo, _ := newOnboardingFixture(t, now, principal)

	result, err := service.Complete(context.Background(), CompleteInput{
		Token:    *principal.OnboardToken,
		Name:     "Dana W",
		Region:   "midwest",
		Password: "a sturdy pw 42",
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if result.Name != "Dana W" {
		t.Fatalf("expected updated name, got %s", result.Name)
	}

	stored := repo.principals[principal.ID]
	check, err := security.CheckPassword(stored.PasswordHash, "a sturdy pw 42")
	if err != nil || check != security.PasswordMatch {
		t.Fatalf("chosen password must verify, got check=%v err=%v", check, err)
	}
	if stored.OnboardToken != nil || stored.OnboardTokenExpiresAt != nil {
		t.Fatalf("onboarding link must be single-use")
	}
}

func TestOnboardingService_Complete_UnknownToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	service, _, _ := newOnboardingFixture(t, now, pendingManager(now))

	_, err := service.Complete(context.Background(), CompleteInput{Token: "never-issued", Password: "a sturdy pw 42"})
	if !errors.Is(err, ErrOnboardTokenInvalid) {
		t.Fatalf("expected ErrOnboardTokenInvalid, got %v", err)
	}
}

func TestOnboardingService_Complete_ExpiredToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := pendingManager(now)
	principal.OnboardTokenExpiresAt = timePtr(now)
	service, repo, _ := newOnboardingFixture(t, now, principal)

	_, err := service.Complete(context.Background(), CompleteInput{
		Token:    *principal.OnboardToken,
		Password: "a sturdy pw 42",
	})
	if !errors.Is(err, ErrOnboardTokenExpired) {
		t.Fatalf("expected ErrOnboardTokenExpired at boundary, got %v", err)
	}
	if stored := repo.principals[principal.ID]; stored.PasswordHash != domain.PasswordHashPendingSetup {
		t.Fatalf("expired completion must not set a password")
	}
}

func TestOnboardingService_Complete_WeakPasswordRejected(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := pendingManager(now)
	service, repo, _ := newOnboardingFixture(t, now, principal)

	_, err := service.Complete(context.Background(), CompleteInput{
		Token:    *principal.OnboardToken,
		Password: "short",
	})
	var violation *security.PasswordValidationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected a password policy violation, got %v", err)
	}
	if stored := repo.principals[principal.ID]; stored.OnboardToken == nil {
		t.Fatalf("rejected completion must keep the token usable")
	}
}
