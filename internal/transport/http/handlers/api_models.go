package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error      string `json:"error"`
	Reason     string `json:"reason,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
	TraceID    string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// PrincipalSummary describes a minimal view of an account returned by the API.
type PrincipalSummary struct {
	ID     string  `json:"id"`
	Kind   string  `json:"kind"`
	Email  string  `json:"email"`
	Name   string  `json:"name,omitempty"`
	Region *string `json:"region,omitempty"`
}

// LoginRequest defines the payload for the password step of login.
type LoginRequest struct {
	Kind     string `json:"kind" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginPendingResponse is returned when the password was accepted but a
// one-time code must still be verified.
type LoginPendingResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Destination string `json:"destination,omitempty"`
}

// LoginResponse describes an authenticated session.
type LoginResponse struct {
	Status    string           `json:"status"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Principal PrincipalSummary `json:"principal"`
}

// VerifyRequest defines the payload for the second-factor step of login.
type VerifyRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// PasswordResetRequest initiates a password reset for an account.
type PasswordResetRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// PasswordResetResponse acknowledges a reset request without revealing
// whether the account exists.
type PasswordResetResponse struct {
	Message     string `json:"message"`
	Destination string `json:"destination,omitempty"`
}

// PasswordResetConfirmRequest completes a password reset.
type PasswordResetConfirmRequest struct {
	Kind        string `json:"kind" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// InviteRequest provisions a pending manager account.
type InviteRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Name   string `json:"name"`
	Region string `json:"region"`
	Phone  string `json:"phone"`
}

// InviteResponse reports the provisioned account and its onboarding deadline.
type InviteResponse struct {
	PrincipalID    string    `json:"principal_id"`
	Email          string    `json:"email"`
	TokenExpiresAt time.Time `json:"token_expires_at"`
}

// OnboardCompleteRequest finishes manager onboarding with a first password.
type OnboardCompleteRequest struct {
	Token    string `json:"token" binding:"required"`
	Name     string `json:"name"`
	Region   string `json:"region"`
	Password string `json:"password" binding:"required"`
}

// OnboardCompleteResponse confirms the activated account.
type OnboardCompleteResponse struct {
	Message   string           `json:"message"`
	Principal PrincipalSummary `json:"principal"`
}

// TOTPSetupResponse carries authenticator provisioning material. The secret
// and URL are shown once; only a hash-free reference is retained server side.
type TOTPSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// DeviceRegisterRequest binds a push token to a client user.
type DeviceRegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	DeviceToken string `json:"device_token" binding:"required"`
	Platform    string `json:"platform" binding:"required"`
}

// DeviceRegisterResponse reports the stored device binding.
type DeviceRegisterResponse struct {
	DeviceID string `json:"device_id"`
	UserID   string `json:"user_id"`
	AgentID  string `json:"agent_id"`
	Platform string `json:"platform"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newPrincipalSummary converts a domain principal to an API summary.
func newPrincipalSummary(principal domain.Principal) PrincipalSummary {
	summary := PrincipalSummary{
		ID:    principal.ID,
		Kind:  string(principal.Kind),
		Email: principal.Email,
		Name:  principal.Name,
	}

	if principal.Region != nil {
		region := strings.TrimSpace(*principal.Region)
		if region != "" {
			summary.Region = &region
		}
	}

	return summary
}
