package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/transport/http/middleware"
	"github.com/ehevelone/vitalink-app/internal/usecase"
)

// AuthHandler exposes the two-step login, logout and session endpoints.
type AuthHandler struct {
	login *usecase.LoginService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(login *usecase.LoginService) *AuthHandler {
	return &AuthHandler{login: login}
}

// RegisterRoutes binds authentication routes, applying optional middleware ahead of handlers.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		r.POST("/login", append(chain, h.handleLogin)...)
		r.POST("/verify", append(append([]gin.HandlerFunc{}, loginMiddlewares...), h.handleVerify)...)
	} else {
		r.POST("/login", h.handleLogin)
		r.POST("/verify", h.handleVerify)
	}

	r.POST("/logout", h.handleLogout)
}

// Login godoc
// @Summary Submit account credentials
// @Description Verifies the password. Accounts with a second factor receive a one-time code; others get a session token immediately.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse "Session issued or code dispatched"
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 403 {object} ErrorResponse "Account setup incomplete"
// @Failure 423 {object} ErrorResponse "Account temporarily locked"
// @Failure 429 {object} ErrorResponse "Resend cooldown active"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) handleLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	kind, err := domain.ParseAccountKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "kind must be administrator or manager"))
		return
	}

	result, err := h.login.Login(c.Request.Context(), usecase.LoginInput{
		Kind:     kind,
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		IP:       strings.TrimSpace(c.ClientIP()),
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	respondLoginResult(c, result)
}

// Verify godoc
// @Summary Submit the second-factor code
// @Description Completes login by checking the one-time code or an authenticator code and issues a session token.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verification request"
// @Success 200 {object} LoginResponse "Session issued"
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 401 {object} ErrorResponse "Code invalid or expired"
// @Failure 423 {object} ErrorResponse "Code entry temporarily locked"
// @Router /api/v1/auth/verify [post]
func (h *AuthHandler) handleVerify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	kind, err := domain.ParseAccountKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "kind must be administrator or manager"))
		return
	}

	result, err := h.login.VerifySecondFactor(c.Request.Context(), usecase.VerifyInput{
		Kind:  kind,
		Email: strings.TrimSpace(req.Email),
		Code:  strings.TrimSpace(req.Code),
		IP:    strings.TrimSpace(c.ClientIP()),
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	respondLoginResult(c, result)
}

// Logout godoc
// @Summary Revoke the current session
// @Description Clears the presented session token. Unknown tokens are treated as already revoked.
// @Tags Authentication
// @Produce json
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse "Missing session token"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) handleLogout(c *gin.Context) {
	token := middleware.GetSessionToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing session token"))
		return
	}

	if err := h.login.Logout(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke session"))
		return
	}

	c.Status(http.StatusNoContent)
}

func respondLoginResult(c *gin.Context, result *usecase.LoginResult) {
	if result.Status == usecase.StatusNeedsSecondFactor {
		c.JSON(http.StatusOK, LoginPendingResponse{
			Status:      string(result.Status),
			Message:     "verification code sent",
			Destination: result.MaskedPhone,
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Status:    string(result.Status),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Principal: newPrincipalSummary(result.Principal),
	})
}

// respondAuthError maps login-flow errors onto HTTP statuses. Every body
// carries a stable machine-readable reason alongside the human message. Lock
// and cooldown sentinels also carry a retry hint, surfaced both in the body
// and the Retry-After header.
func respondAuthError(c *gin.Context, err error) {
	var locked *usecase.LockedError
	if errors.As(err, &locked) {
		retryAfter := int(locked.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))

		status := http.StatusLocked
		message := "account temporarily locked"
		reason := "account_locked"
		switch {
		case errors.Is(err, usecase.ErrCodeLocked):
			message = "code entry temporarily locked"
			reason = "code_locked"
		case errors.Is(err, usecase.ErrSendCooldown):
			status = http.StatusTooManyRequests
			message = fmt.Sprintf("code already sent, retry in %d seconds", retryAfter)
			reason = "send_cooldown"
		}

		c.JSON(status, ErrorResponse{
			Error:      message,
			Reason:     reason,
			RetryAfter: retryAfter,
			TraceID:    middleware.GetTraceID(c),
		})
		return
	}

	status := http.StatusInternalServerError
	message := "authentication failed"
	reason := "server_error"
	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		status, message, reason = http.StatusUnauthorized, "invalid credentials", "invalid_credentials"
	case errors.Is(err, usecase.ErrAccountNotConfigured):
		status, message, reason = http.StatusForbidden, "account setup incomplete", "account_not_configured"
	case errors.Is(err, usecase.ErrNoContactMethod):
		status, message, reason = http.StatusConflict, "no phone number on file for code delivery", "no_contact_method"
	case errors.Is(err, usecase.ErrCodeExpired):
		status, message, reason = http.StatusUnauthorized, "code expired, log in again", "code_expired"
	case errors.Is(err, usecase.ErrCodeInvalid):
		status, message, reason = http.StatusUnauthorized, "invalid code", "code_invalid"
	case errors.Is(err, usecase.ErrCodeDispatchFailed):
		status, message, reason = http.StatusBadGateway, "code delivery failed, try again", "code_dispatch_failed"
	}

	c.JSON(status, ErrorResponse{
		Error:   message,
		Reason:  reason,
		TraceID: middleware.GetTraceID(c),
	})
}
