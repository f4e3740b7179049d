package domain

import "time"

// LoginSucceededEvent is published when a principal completes the full login
// flow and a session is issued.
type LoginSucceededEvent struct {
	PrincipalID  string
	Kind         AccountKind
	Email        string
	IP           string
	SecondFactor bool
	At           time.Time
	Metadata     map[string]any
}

// LoginFailedEvent is published for rejected password or code submissions.
type LoginFailedEvent struct {
	PrincipalID string
	Kind        AccountKind
	Email       string
	IP          string
	Stage       string
	Reason      string
	At          time.Time
	Metadata    map[string]any
}

// LockoutTriggeredEvent is published when a failure threshold trips a lock
// window. Scope distinguishes password locks from code locks.
type LockoutTriggeredEvent struct {
	PrincipalID string
	Kind        AccountKind
	Scope       string
	LockedUntil time.Time
	At          time.Time
	Metadata    map[string]any
}

// CodeDispatchedEvent is published after a one-time code has been stored and
// handed to the messaging channel.
type CodeDispatchedEvent struct {
	PrincipalID string
	Kind        AccountKind
	Destination string
	ExpiresAt   time.Time
	At          time.Time
	Metadata    map[string]any
}

// SessionRevokedEvent is published when a session token is cleared, whether by
// logout or by a new login overwriting it.
type SessionRevokedEvent struct {
	PrincipalID string
	Kind        AccountKind
	Reason      string
	At          time.Time
	Metadata    map[string]any
}

// PasswordResetRequestedEvent is published when a reset code is issued.
type PasswordResetRequestedEvent struct {
	PrincipalID       string
	Kind              AccountKind
	MaskedDestination string
	ExpiresAt         time.Time
	At                time.Time
	Metadata          map[string]any
}
