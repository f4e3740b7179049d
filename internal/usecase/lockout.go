package usecase

import "time"

// LockoutPolicy is a progressive-lockout rule applied independently to
// password attempts and one-time-code attempts.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// IsLocked reports whether an active lock window forbids the attempt. The fail
// count alone never blocks; only a lock deadline strictly in the future does.
func (p LockoutPolicy) IsLocked(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// RetryAfter returns how long an active lock has left, or zero when unlocked.
func (p LockoutPolicy) RetryAfter(lockedUntil *time.Time, now time.Time) time.Duration {
	if !p.IsLocked(lockedUntil, now) {
		return 0
	}
	return lockedUntil.Sub(now)
}

// RecordFailure increments the fail count and, once the threshold is reached,
// opens a lock window. The count resets to zero at lock time so a principal
// whose lock just expired starts with a full fresh attempt budget instead of
// re-locking on the first mistake.
func (p LockoutPolicy) RecordFailure(failCount int, now time.Time) (int, *time.Time) {
	failCount++
	if p.MaxAttempts > 0 && failCount >= p.MaxAttempts {
		until := now.Add(p.LockDuration)
		return 0, &until
	}
	return failCount, nil
}

// RecordSuccess resets the lockout state unconditionally.
func (p LockoutPolicy) RecordSuccess() (int, *time.Time) {
	return 0, nil
}
