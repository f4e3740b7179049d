package domain

import "time"

// Device represents a registered push-notification device bound to a client
// user and their servicing agent.
type Device struct {
	ID          string
	UserID      string
	AgentID     string
	DeviceToken string
	Platform    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
