package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials indicates an unknown account or a wrong password;
	// callers never learn which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates an active password lock window.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrAccountNotConfigured indicates the account never completed setup.
	ErrAccountNotConfigured = errors.New("account setup incomplete")
	// ErrNoContactMethod indicates no phone is on file for code delivery.
	ErrNoContactMethod = errors.New("no contact method on file")
	// ErrSendCooldown indicates a code was dispatched too recently.
	ErrSendCooldown = errors.New("code resend cooldown active")
	// ErrCodeDispatchFailed indicates the messaging channel rejected the send.
	// The stored code is kept so a later re-issue remains possible.
	ErrCodeDispatchFailed = errors.New("code dispatch failed")
	// ErrCodeExpired indicates the pending code is absent or past expiry.
	ErrCodeExpired = errors.New("code expired")
	// ErrCodeInvalid indicates the submitted code does not match.
	ErrCodeInvalid = errors.New("code invalid")
	// ErrCodeLocked indicates an active code lock window.
	ErrCodeLocked = errors.New("code verification temporarily locked")
	// ErrSessionInvalid indicates the token matches no stored session.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionExpired indicates the session exists but is past expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrOnboardTokenInvalid indicates an unknown onboarding token.
	ErrOnboardTokenInvalid = errors.New("onboarding token invalid")
	// ErrOnboardTokenExpired indicates the onboarding token is past expiry.
	ErrOnboardTokenExpired = errors.New("onboarding token expired")
	// ErrResetCodeInvalid indicates the submitted reset code does not match.
	ErrResetCodeInvalid = errors.New("reset code invalid")
	// ErrResetCodeExpired indicates the reset code is absent or past expiry.
	ErrResetCodeExpired = errors.New("reset code expired")
	// ErrAccountNotFound indicates no account exists for the identifier; only
	// surfaced by flows where that is safe to reveal (password reset).
	ErrAccountNotFound = errors.New("account not found")
)

// LockedError wraps a lock sentinel with the remaining wait so callers may
// surface a retry-after hint.
type LockedError struct {
	Err        error
	RetryAfter time.Duration
}

// Error implements error.
func (e *LockedError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", e.Err, e.RetryAfter)
}

// Unwrap exposes the lock sentinel for errors.Is checks.
func (e *LockedError) Unwrap() error {
	return e.Err
}

func newLockedError(sentinel error, retryAfter time.Duration) error {
	return &LockedError{Err: sentinel, RetryAfter: retryAfter}
}
