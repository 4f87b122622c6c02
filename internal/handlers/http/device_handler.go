package http

import (
	"net/http"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
	"streamgate/pkg/errors"

	"github.com/gin-gonic/gin"
)

// DeviceHandler lets account owners inspect and prune their device bindings.
// Removing a binding is the only way to free a quota slot.
type DeviceHandler struct {
	accounts ports.AccountRepository
}

func NewDeviceHandler(accounts ports.AccountRepository) *DeviceHandler {
	return &DeviceHandler{accounts: accounts}
}

func (h *DeviceHandler) SetupRoutes(router *gin.Engine, requireAuth gin.HandlerFunc) {
	api := router.Group("/api/v1/devices")
	api.Use(requireAuth)
	{
		api.GET("", h.ListDevices)
		api.DELETE("/:id", h.RemoveDevice)
	}
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	accountID := c.MustGet("account_id").(domain.AccountID)

	devices, err := h.accounts.ListDevices(c.Request.Context(), accountID)
	if err != nil {
		c.Error(errors.NewInternalError("failed to list devices"))
		return
	}
	if devices == nil {
		devices = []domain.DeviceBinding{}
	}

	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (h *DeviceHandler) RemoveDevice(c *gin.Context) {
	accountID := c.MustGet("account_id").(domain.AccountID)
	deviceID := domain.DeviceID(c.Param("id"))
	if deviceID == "" {
		c.Error(errors.NewInvalidInputError("device id required"))
		return
	}

	err := h.accounts.RemoveDevice(c.Request.Context(), accountID, deviceID)
	if err != nil {
		if err == domain.ErrDeviceNotFound {
			c.Error(errors.NewNotFoundError("device"))
			return
		}
		c.Error(errors.NewInternalError("failed to remove device"))
		return
	}

	c.Status(http.StatusNoContent)
}
