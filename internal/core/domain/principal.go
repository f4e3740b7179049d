package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccountKind enumerates the principal types that may authenticate.
type AccountKind string

const (
	KindAdministrator AccountKind = "administrator"
	KindManager       AccountKind = "manager"
)

// ParseAccountKind validates a caller-supplied kind string. Storage targets are
// always selected through this enum, never through raw caller input.
func ParseAccountKind(raw string) (AccountKind, error) {
	switch AccountKind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindAdministrator:
		return KindAdministrator, nil
	case KindManager:
		return KindManager, nil
	default:
		return "", fmt.Errorf("unknown account kind %q", raw)
	}
}

// PasswordHashPendingSetup marks an account created by onboarding that has not
// completed setup yet. Login must refuse such accounts distinctly from a wrong
// password.
const PasswordHashPendingSetup = "PENDING_SETUP"

// Principal mirrors the persisted representation in the principals table.
// Version backs optimistic compare-and-set on all auth-state mutations.
type Principal struct {
	ID      string
	Kind    AccountKind
	Email   string
	Name    string
	Region  *string
	Phone   *string
	Active  bool
	Version int64

	PasswordHash         string
	SecondFactorRequired bool
	TOTPSecret           *string

	PasswordFailCount   int
	PasswordLockedUntil *time.Time
	CodeFailCount       int
	CodeLockedUntil     *time.Time

	PendingCode          *string
	PendingCodeExpiresAt *time.Time
	LastCodeSentAt       *time.Time

	SessionToken     *string
	SessionExpiresAt *time.Time
	LastLoginAt      *time.Time
	LastLoginIP      *string

	ResetCode      *string
	ResetExpiresAt *time.Time

	OnboardToken          *string
	OnboardTokenExpiresAt *time.Time

	CreatedAt time.Time
}

// HasPassword reports whether a usable password hash is stored.
func (p Principal) HasPassword() bool {
	return p.PasswordHash != "" && p.PasswordHash != PasswordHashPendingSetup
}

// HasContactPhone reports whether a second-factor code can be delivered.
func (p Principal) HasContactPhone() bool {
	return p.Phone != nil && strings.TrimSpace(*p.Phone) != ""
}

// HasActiveSession reports whether a non-expired session token exists at the
// supplied moment.
func (p Principal) HasActiveSession(at time.Time) bool {
	if p.SessionToken == nil || p.SessionExpiresAt == nil {
		return false
	}
	return p.SessionExpiresAt.After(at)
}

// AuthState carries the mutable authentication fields written back through the
// repository's compare-and-set update. Pointer fields set to nil clear the
// corresponding column.
type AuthState struct {
	PasswordFailCount   int
	PasswordLockedUntil *time.Time
	CodeFailCount       int
	CodeLockedUntil     *time.Time

	PendingCode          *string
	PendingCodeExpiresAt *time.Time
	LastCodeSentAt       *time.Time

	SessionToken     *string
	SessionExpiresAt *time.Time
	LastLoginAt      *time.Time
	LastLoginIP      *string
}

// AuthStateOf extracts the current auth state from a principal snapshot.
func AuthStateOf(p Principal) AuthState {
	return AuthState{
		PasswordFailCount:    p.PasswordFailCount,
		PasswordLockedUntil:  p.PasswordLockedUntil,
		CodeFailCount:        p.CodeFailCount,
		CodeLockedUntil:      p.CodeLockedUntil,
		PendingCode:          p.PendingCode,
		PendingCodeExpiresAt: p.PendingCodeExpiresAt,
		LastCodeSentAt:       p.LastCodeSentAt,
		SessionToken:         p.SessionToken,
		SessionExpiresAt:     p.SessionExpiresAt,
		LastLoginAt:          p.LastLoginAt,
		LastLoginIP:          p.LastLoginIP,
	}
}
