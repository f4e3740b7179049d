package port

import (
	"context"
	"time"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
)

// PrincipalRepository exposes persistence behavior for authenticating accounts.
//
// All auth-state writes are optimistic compare-and-set updates keyed on the
// principal's version column; callers receive repository.ErrVersionConflict
// when a concurrent writer got there first and are expected to re-read and
// retry. This keeps read-modify-write of lockout counters safe without
// row-level locks.
type PrincipalRepository interface {
	Create(ctx context.Context, principal domain.Principal) error
	GetByEmail(ctx context.Context, kind domain.AccountKind, email string) (*domain.Principal, error)
	GetBySessionToken(ctx context.Context, token string) (*domain.Principal, error)
	GetByOnboardToken(ctx context.Context, token string) (*domain.Principal, error)

	// UpdateAuthState replaces the mutable authentication fields iff the
	// stored version still equals expectedVersion.
	UpdateAuthState(ctx context.Context, id string, expectedVersion int64, state domain.AuthState) error

	// ClearSessionByToken removes the session fields for whichever principal
	// holds the token. Clearing an unknown token is a no-op.
	ClearSessionByToken(ctx context.Context, token string) error

	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	UpdateResetCode(ctx context.Context, id string, code *string, expiresAt *time.Time) error
	UpdateTOTPSecret(ctx context.Context, id string, secret *string) error
	CompleteOnboarding(ctx context.Context, id string, name, region, passwordHash string) error
}
