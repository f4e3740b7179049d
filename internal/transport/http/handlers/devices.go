package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ehevelone/vitalink-app/internal/repository"
	"github.com/ehevelone/vitalink-app/internal/usecase"
)

// DeviceHandler exposes push-token registration for client app users.
type DeviceHandler struct {
	devices *usecase.DeviceService
}

// NewDeviceHandler constructs DeviceHandler.
func NewDeviceHandler(devices *usecase.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// RegisterRoutes binds device routes.
func (h *DeviceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", h.handleRegister)
}

// Register godoc
// @Summary Register a push-notification device
// @Description Binds the device token to the client user's servicing agent. Re-registering a known token moves it to the submitting user.
// @Tags Devices
// @Accept json
// @Produce json
// @Param request body DeviceRegisterRequest true "Device registration"
// @Success 200 {object} DeviceRegisterResponse
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Failure 404 {object} ErrorResponse "Unknown client user"
// @Failure 409 {object} ErrorResponse "No servicing agent assigned"
// @Router /api/v1/devices [post]
func (h *DeviceHandler) handleRegister(c *gin.Context) {
	var req DeviceRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid device payload"))
		return
	}

	device, err := h.devices.Register(c.Request.Context(), usecase.RegisterDeviceInput{
		Email:       strings.TrimSpace(req.Email),
		DeviceToken: strings.TrimSpace(req.DeviceToken),
		Platform:    strings.TrimSpace(req.Platform),
	})
	if err != nil {
		RespondWithMappedError(c, err, http.StatusInternalServerError, "failed to register device",
			ErrorCase{Err: repository.ErrNotFound, Status: http.StatusNotFound, Message: "unknown client user"},
			ErrorCase{Err: usecase.ErrNoServicingAgent, Status: http.StatusConflict, Message: "user has no servicing agent assigned"},
		)
		return
	}

	c.JSON(http.StatusOK, DeviceRegisterResponse{
		DeviceID: device.ID,
		UserID:   device.UserID,
		AgentID:  device.AgentID,
		Platform: device.Platform,
	})
}
