package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errGetState      = "failed to load state"
	errGetCredential = "failed to load saved networks"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get device state
// @Description  Connectivity, last reading, actuator command, held advisory decision and status message
// @Tags         device
// @Produce      json
// @Success      200  {object}  models.DeviceSnapshot
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/device/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "device_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      List saved networks
// @Description  Network names in both credential slots; secrets are never returned. Admin operators only.
// @Tags         device
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "slots"
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/device/credentials [get]
// @Security     BearerAuth
func (h *Handler) getSavedNetworks(c *gin.Context) {
	slots, err := h.services.Monitoring.SavedNetworks(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetCredential, "device_saved_networks_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}
