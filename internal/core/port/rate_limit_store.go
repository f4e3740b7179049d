package port

import (
	"context"
	"time"
)

// RateLimitStore records login and reset attempts for sliding-window
// throttling. Identifiers are rule-qualified, for example "auth_login_ip:"
// followed by the caller address, so rules never share counters.
type RateLimitStore interface {
	// RecordAttempt stores one attempt at the given instant.
	RecordAttempt(ctx context.Context, identifier string, at time.Time) error
	// CountAttempts reports attempts inside the window ending at reference.
	CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error)
	// TrimWindow discards attempts that fell out of the window.
	TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error
	// OldestAttempt returns the earliest attempt still inside the window,
	// used to compute Retry-After.
	OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error)
}
