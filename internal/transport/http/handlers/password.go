package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ehevelone/vitalink-app/internal/core/domain"
	"github.com/ehevelone/vitalink-app/internal/infra/security"
	"github.com/ehevelone/vitalink-app/internal/usecase"
)

// PasswordHandler exposes the password reset endpoints.
type PasswordHandler struct {
	reset *usecase.PasswordResetService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(reset *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{reset: reset}
}

// RegisterRoutes binds reset routes, applying optional middleware ahead of handlers.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, resetMiddlewares ...gin.HandlerFunc) {
	request := append(append([]gin.HandlerFunc{}, resetMiddlewares...), h.handleRequest)
	confirm := append(append([]gin.HandlerFunc{}, resetMiddlewares...), h.handleConfirm)
	r.POST("/reset/request", request...)
	r.POST("/reset/confirm", confirm...)
}

// RequestReset godoc
// @Summary Request a password reset code
// @Description Sends a short-lived reset code to the account's phone or email. The response is identical for unknown accounts.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetRequest true "Reset request"
// @Success 200 {object} PasswordResetResponse
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 502 {object} ErrorResponse "Code delivery failed"
// @Router /api/v1/auth/reset/request [post]
func (h *PasswordHandler) handleRequest(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	kind, err := domain.ParseAccountKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "kind must be administrator or manager"))
		return
	}

	destination, err := h.reset.RequestReset(c.Request.Context(), kind, strings.TrimSpace(req.Email))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNoContactMethod):
			c.JSON(http.StatusConflict, NewErrorResponse(c, "no contact method on file"))
		case errors.Is(err, usecase.ErrCodeDispatchFailed):
			c.JSON(http.StatusBadGateway, NewErrorResponse(c, "code delivery failed, try again"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process reset request"))
		}
		return
	}

	c.JSON(http.StatusOK, PasswordResetResponse{
		Message:     "if the account exists, a reset code has been sent",
		Destination: destination,
	})
}

// ConfirmReset godoc
// @Summary Complete a password reset
// @Description Validates the reset code, applies the new password and revokes any active session.
// @Tags Password
// @Accept json
// @Produce json
// @Param request body PasswordResetConfirmRequest true "Reset confirmation"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "Invalid payload or weak password"
// @Failure 401 {object} ErrorResponse "Code invalid or expired"
// @Router /api/v1/auth/reset/confirm [post]
func (h *PasswordHandler) handleConfirm(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid reset payload"))
		return
	}

	kind, err := domain.ParseAccountKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "kind must be administrator or manager"))
		return
	}

	err = h.reset.ConfirmReset(c.Request.Context(), kind,
		strings.TrimSpace(req.Email), strings.TrimSpace(req.Code), req.NewPassword)
	if err != nil {
		var validationErr *security.PasswordValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, validationErr.Error()))
			return
		}

		switch {
		case errors.Is(err, usecase.ErrResetCodeInvalid):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "reset code invalid"))
		case errors.Is(err, usecase.ErrResetCodeExpired):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "reset code expired, request a new one"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to reset password"))
		}
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
