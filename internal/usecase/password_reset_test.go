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

func newResetFixture(t *testing.T, principal *domain.Principal, at time.Time) (*PasswordResetService, *memPrincipalRepo, *fakeChannel, *fakeMailer) {
	t.Helper()
	repo := newMemPrincipalRepo(principal)
	channel := &fakeChannel{}
	mailer := &fakeMailer{}
	validator := security.NewPasswordValidator(
		security.MinLengthRule(8),
		security.RequireLetterRule(),
		security.RequireDigitRule(),
	)
	service := NewPasswordResetService(testAuthConfig(), repo, channel, mailer, &recordingPublisher{}, validator, nil).
		WithClock(fixedClock(at))
	return service, repo, channel, mailer
}

func TestPasswordResetService_Request_UnknownEmailSilent(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := adminPrincipal(mustHash(t, "correct horse"))
	service, _, channel, mailer := newResetFixture(t, principal, now)

	destination, err := service.RequestReset(context.Background(), domain.KindAdministrator, "nobody@myvitalink.app")
	if err != nil {
		t.Fatalf("unknown email must not error, got %v", err)
	}
	if destination != "" {
		t.Fatalf("unknown email must yield no destination hint, got %s", destination)
	}
	if len(channel.sent) != 0 || len(mailer.sent) != 0 {
		t.Fatalf("unknown email must not trigger delivery")
	}
}

func TestPasswordResetService_Request_PrefersSMS(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := adminPrincipal(mustHash(t, "correct horse"))
	principal.Phone = stringPtr("+15551230042")
	service, repo, channel, mailer := newResetFixture(t, principal, now)

	destination, err := service.RequestReset(context.Background(), domain.KindAdministrator, principal.Email)
	if err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	if strings.Contains(destination, "1230042") {
		t.Fatalf("destination hint must be masked, got %s", destination)
	}
	if len(channel.sent) != 1 || len(mailer.sent) != 0 {
		t.Fatalf("expected one SMS and no email, got %d/%d", len(channel.sent), len(mailer.sent))
	}

	stored := repo.principals[principal.ID]
	if stored.ResetCode == nil || len(*stored.ResetCode) != 6 {
		t.Fatalf("expected a six-digit reset code stored, got %v", stored.ResetCode)
	}
	if !strings.Contains(channel.sent[0].body, *stored.ResetCode) {
		t.Fatalf("SMS body must carry the stored code")
	}
	wantExpiry := now.Add(20 * time.Minute)
	if stored.ResetExpiresAt == nil || !stored.ResetExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected reset expiry %v, got %v", wantExpiry, stored.ResetExpiresAt)
	}
}

func TestPasswordResetService_Request_FallsBackToEmail(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := adminPrincipal(mustHash(t, "correct horse"))
	service, repo, channel, mailer := newResetFixture(t, principal, now)

	if _, err := service.RequestReset(context.Background(), domain.KindAdministrator, principal.Email); err != nil {
		t.Fatalf("RequestReset returned error: %v", err)
	}
	if len(channel.sent) != 0 || len(mailer.sent) != 1 {
		t.Fatalf("expected email delivery without a phone on file")
	}
	stored := repo.principals[principal.ID]
	if !strings.Contains(mailer.sent[0].body, *stored.ResetCode) {
		t.Fatalf("email body must carry the stored code")
	}
}

func TestPasswordResetService_Confirm_Success(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := adminPrincipal(mustHash(t, "old password 1"))
	principal.ResetCode = stringPtr("583204")
	principal.ResetExpiresAt = timePtr(now.Add(10 * time.Minute))
	principal.SessionToken = stringPtr("aabbccddee00112233445566778899aabbccddee00112233")
	principal.SessionExpiresAt = timePtr(now.Add(time.Hour))
	service, repo, _, _ := newResetFixture(t, principal, now)

	err := service.ConfirmReset(context.Background(), domain.KindAdministrator, principal.Email, "583204", "brand new pw 9")
	if err != nil {
		t.Fatalf("ConfirmReset returned error: %v", err)
	}

	stored := repo.principals[principal.ID]
	check, err := security.CheckPassword(stored.PasswordHash, "brand new pw 9")
	if err != nil || check != security.PasswordMatch {
		t.Fatalf("new password must verify, got check=%v err=%v", check, err)
	}
	if stored.ResetCode != nil || stored.ResetExpiresAt != nil {
		t.Fatalf("reset code must be single-use")
	}
	if stored.SessionToken != nil {
		t.Fatalf("live session must be revoked after a reset")
	}
}

func TestPasswordResetService_Confirm_WrongCode(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := adminPrincipal(mustHash(t, "old password 1"))
	principal.ResetCode = stringPtr("583204")
	principal.ResetExpiresAt = timePtr(now.Add(10 * time.Minute))
	service, repo, _, _ := newResetFixture(t, principal, now)

	err := service.ConfirmReset(context.Background(), domain.KindAdministrator, principal.Email, "111111", "brand new pw 9")
	if !errors.Is(err, ErrResetCodeInvalid) {
		t.Fatalf("expected ErrResetCodeInvalid, got %v", err)
	}
	if stored := repo.principals[principal.ID]; stored.ResetCode == nil {
		t.Fatalf("wrong guess must not consume the reset code")
	}
}

func TestPasswordResetService_Confirm_ExpiredCode(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := adminPrincipal(mustHash(t, "old password 1"))
	principal.ResetCode = stringPtr("583204")
	principal.ResetExpiresAt = timePtr(now)
	service, _, _, _ := newResetFixture(t, principal, now)

	err := service.ConfirmReset(context.Background(), domain.KindAdministrator, principal.Email, "583204", "brand new pw 9")
	if !errors.Is(err, ErrResetCodeExpired) {
		t.Fatalf("expected ErrResetCodeExpired at boundary, got %v", err)
	}
}

func TestPasswordResetService_Confirm_WeakPasswordRejected(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	principal := adminPrincipal(mustHash(t, "old password 1"))
	principal.ResetCode = stringPtr("583204")
	principal.ResetExpiresAt = timePtr(now.Add(10 * time.Minute))
	service, repo, _, _ := newResetFixture(t, principal, now)

	err := service.ConfirmReset(context.Background(), domain.KindAdministrator, principal.Email, "583204", "short")
	var violation *security.PasswordValidationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected a password policy violation, got %v", err)
	}

	stored := repo.principals[principal.ID]
	check, _ := security.CheckPassword(stored.PasswordHash, "old password 1")
	if check != security.PasswordMatch {
		t.Fatalf("rejected confirmation must leave the old password in place")
	}
}
