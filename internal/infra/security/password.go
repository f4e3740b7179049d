package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
)

const bcryptCost = 12

// PasswordCheck is the outcome of verifying a submitted password.
type PasswordCheck int

const (
	// PasswordMatch means the submitted password matches the stored hash.
	PasswordMatch PasswordCheck = iota
	// PasswordMismatch means the submitted password is wrong.
	PasswordMismatch
	// PasswordNotConfigured means the account never completed setup; callers
	// must refuse login distinctly from a wrong password.
	PasswordNotConfigured
)

// HashPassword derives a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a submitted password against the stored hash. The
// comparison is constant-time; no lockout bookkeeping happens here.
func CheckPassword(storedHash, submitted string) (PasswordCheck, error) {
	if storedHash == "" || storedHash == domain.PasswordHashPendingSetup {
		return PasswordNotConfigured, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(submitted))
	switch {
	case err == nil:
		return PasswordMatch, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return PasswordMismatch, nil
	default:
		return PasswordMismatch, fmt.Errorf("compare password hash: %w", err)
	}
}
