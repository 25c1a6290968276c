package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"climate_guard/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK       = "ok"
	statusArmed    = "armed"
	statusDisarmed = "disarmed"
	statusLimits   = "limits_set"

	errArmGuard     = "failed to arm guard"
	errDisarmGuard  = "failed to disarm guard"
	errGetStatus    = "failed to load status"
	errListStatuses = "failed to list devices"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// guardErrorCode maps service errors to HTTP status codes.
func guardErrorCode(err error) int {
	if errors.Is(err, service.ErrUnknownDevice) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Respond with a status and include the device snapshot (best-effort).
func (h *Handler) respondWithDeviceStatus(c *gin.Context, deviceID, status string) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status, "device_id": deviceID}
	if snap, err := h.services.Monitoring.Status(ctx, deviceID); err == nil {
		resp["state"] = snap
	}
	c.JSON(http.StatusOK, resp)
}

// LimitsRequest is the payload for runtime limit overrides. Omitted fields
// are left unchanged; zero disables the corresponding limit.
type LimitsRequest struct {
	// Maximum continuous run in minutes (0 = unlimited)
	RunLimitMinutes *int `json:"run_limit_minutes,omitempty" example:"10"`
	// Quiet period between runs in minutes (0 = disabled)
	CooldownMinutes *int `json:"cooldown_minutes,omitempty" example:"40"`
	// On-command re-assertion interval in seconds (0 = disabled)
	HeartbeatSeconds *int `json:"heartbeat_seconds,omitempty" example:"10"`
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

// @Summary      List guard devices
// @Tags         guard
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, devices"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	snaps, err := h.services.Monitoring.List(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListStatuses, "guard_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(snaps),
		"devices": snaps,
	})
}

// @Summary      Get guard status
// @Tags         guard
// @Produce      json
// @Param        id   path      string  true  "Device ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id}/status [get]
// @Security     BearerAuth
func (h *Handler) deviceStatus(c *gin.Context) {
	deviceID := c.Param("id")
	snap, err := h.services.Monitoring.Status(c.Request.Context(), deviceID)
	if err != nil {
		h.logAndJSONError(c, guardErrorCode(err), errGetStatus, "guard_status_failed", err, "device", deviceID)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary      Arm guard
// @Description  Enables automatic management of the target. Idempotent.
// @Tags         guard
// @Produce      json
// @Param        id   path      string  true  "Device ID"
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id}/arm [post]
// @Security     BearerAuth
func (h *Handler) armDevice(c *gin.Context) {
	deviceID := c.Param("id")
	if err := h.services.Guard.Arm(c.Request.Context(), deviceID); err != nil {
		h.logAndJSONError(c, guardErrorCode(err), errArmGuard, "guard_arm_failed", err, "device", deviceID)
		return
	}
	h.respondWithDeviceStatus(c, deviceID, statusArmed)
}

// @Summary      Disarm guard
// @Description  Disables automatic management; a running target is stopped. Idempotent.
// @Tags         guard
// @Produce      json
// @Param        id   path      string  true  "Device ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id}/disarm [post]
// @Security     BearerAuth
func (h *Handler) disarmDevice(c *gin.Context) {
	deviceID := c.Param("id")
	if err := h.services.Guard.Disarm(c.Request.Context(), deviceID); err != nil {
		h.logAndJSONError(c, guardErrorCode(err), errDisarmGuard, "guard_disarm_failed", err, "device", deviceID)
		return
	}
	h.respondWithDeviceStatus(c, deviceID, statusDisarmed)
}

// @Summary      Override runtime limits
// @Description  Applies on the next evaluation; an in-flight run keeps its current timers.
// @Tags         guard
// @Accept       json
// @Produce      json
// @Param        id    path   string         true  "Device ID"
// @Param        body  body   LimitsRequest  true  "Limit overrides"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/devices/{id}/limits [patch]
// @Security     BearerAuth
func (h *Handler) setLimits(c *gin.Context) {
	deviceID := c.Param("id")
	var req LimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	params := service.OverrideParams{
		RunLimitMinutes:  req.RunLimitMinutes,
		CooldownMinutes:  req.CooldownMinutes,
		HeartbeatSeconds: req.HeartbeatSeconds,
	}
	if err := h.services.Guard.SetLimits(c.Request.Context(), deviceID, params); err != nil {
		if errors.Is(err, service.ErrUnknownDevice) {
			h.logAndJSONError(c, http.StatusNotFound, err.Error(), "guard_set_limits_failed", err, "device", deviceID)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondWithDeviceStatus(c, deviceID, statusLimits)
}
