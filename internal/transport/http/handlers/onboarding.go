package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ehevelone/vitalink-app/internal/infra/security"
	"github.com/ehevelone/vitalink-app/internal/usecase"
)

// OnboardingHandler exposes manager provisioning endpoints. Invites are
// restricted to administrators; completion is reached through the emailed link
// and needs no session.
type OnboardingHandler struct {
	onboarding *usecase.OnboardingService
}

// NewOnboardingHandler constructs OnboardingHandler.
func NewOnboardingHandler(onboarding *usecase.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding}
}

// RegisterInviteRoutes binds the admin-only invite endpoint.
func (h *OnboardingHandler) RegisterInviteRoutes(r *gin.RouterGroup) {
	r.POST("/invites", h.handleInvite)
}

// RegisterPublicRoutes binds the token-gated completion endpoint.
func (h *OnboardingHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/complete", h.handleComplete)
}

// Invite godoc
// @Summary Invite a new manager
// @Description Creates a pending manager account and emails a time-limited onboarding link.
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param request body InviteRequest true "Invite request"
// @Success 201 {object} InviteResponse
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 409 {object} ErrorResponse "Account already exists"
// @Router /api/v1/onboarding/invites [post]
func (h *OnboardingHandler) handleInvite(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid invite payload"))
		return
	}

	result, err := h.onboarding.Invite(c.Request.Context(), usecase.InviteInput{
		Email:  strings.TrimSpace(req.Email),
		Name:   strings.TrimSpace(req.Name),
		Region: strings.TrimSpace(req.Region),
		Phone:  strings.TrimSpace(req.Phone),
	})
	if err != nil {
		if errors.Is(err, usecase.ErrAccountExists) {
			c.JSON(http.StatusConflict, NewErrorResponse(c, "an account with this email already exists"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to create invite"))
		return
	}

	c.JSON(http.StatusCreated, InviteResponse{
		PrincipalID:    result.PrincipalID,
		Email:          result.Email,
		TokenExpiresAt: result.TokenExpiresAt,
	})
}

// Complete godoc
// @Summary Complete manager onboarding
// @Description Exchanges the onboarding token for an active account with the submitted password.
// @Tags Onboarding
// @Accept json
// @Produce json
// @Param request body OnboardCompleteRequest true "Completion request"
// @Success 200 {object} OnboardCompleteResponse
// @Failure 400 {object} ErrorResponse "Invalid payload or weak password"
// @Failure 401 {object} ErrorResponse "Token invalid or expired"
// @Router /api/v1/onboarding/complete [post]
func (h *OnboardingHandler) handleComplete(c *gin.Context) {
	var req OnboardCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid completion payload"))
		return
	}

	principal, err := h.onboarding.Complete(c.Request.Context(), usecase.CompleteInput{
		Token:    strings.TrimSpace(req.Token),
		Name:     strings.TrimSpace(req.Name),
		Region:   strings.TrimSpace(req.Region),
		Password: req.Password,
	})
	if err != nil {
		var validationErr *security.PasswordValidationError
		if errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, validationErr.Error()))
			return
		}

		switch {
		case errors.Is(err, usecase.ErrOnboardTokenInvalid):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "onboarding token invalid"))
		case errors.Is(err, usecase.ErrOnboardTokenExpired):
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "onboarding token expired, ask for a new invite"))
		default:
			c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to complete onboarding"))
		}
		return
	}

	c.JSON(http.StatusOK, OnboardCompleteResponse{
		Message:   "account activated, you can now log in",
		Principal: newPrincipalSummary(*principal),
	})
}
