package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ehevelone/vitalink-app/internal/transport/http/middleware"
	"github.com/ehevelone/vitalink-app/internal/usecase"
)

// TOTPHandler exposes authenticator enrollment for the logged-in principal.
type TOTPHandler struct {
	totp *usecase.TOTPService
}

// NewTOTPHandler constructs TOTPHandler.
func NewTOTPHandler(totp *usecase.TOTPService) *TOTPHandler {
	return &TOTPHandler{totp: totp}
}

// RegisterRoutes binds authenticator routes onto a session-guarded group.
func (h *TOTPHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/totp/setup", h.handleSetup)
	r.DELETE("/totp", h.handleDisable)
}

// Setup godoc
// @Summary Enroll an authenticator app
// @Description Generates a TOTP secret and provisioning URL for the current account. Replaces any previous secret.
// @Tags Authentication
// @Produce json
// @Success 200 {object} TOTPSetupResponse
// @Failure 401 {object} ErrorResponse "Authentication required"
// @Router /api/v1/auth/totp/setup [post]
func (h *TOTPHandler) handleSetup(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	provisioning, err := h.totp.Setup(c.Request.Context(), principal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to enroll authenticator"))
		return
	}

	c.JSON(http.StatusOK, TOTPSetupResponse{
		Secret: provisioning.Secret,
		URL:    provisioning.URL,
	})
}

// Disable godoc
// @Summary Remove the enrolled authenticator
// @Description Clears the stored TOTP secret; subsequent logins fall back to one-time codes.
// @Tags Authentication
// @Produce json
// @Success 204 {string} string ""
// @Failure 401 {object} ErrorResponse "Authentication required"
// @Router /api/v1/auth/totp [delete]
func (h *TOTPHandler) handleDisable(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.totp.Disable(c.Request.Context(), principal); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to remove authenticator"))
		return
	}

	c.Status(http.StatusNoContent)
}
