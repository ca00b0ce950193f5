package handlers

import (
	"errors"
	"net/http"

	"enclosure_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK   = "ok"
	statusSent = "sent"

	errInvalidCommand = "invalid command"
	errSendCommand    = "failed to send command"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// CommandResponse is the body of a successful command request.
type CommandResponse struct {
	Status  string `json:"status" example:"sent"`
	Command string `json:"command" example:"open-door"`
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

// @Summary      Current device state
// @Description  Placeholders ("unknown", 0, "closed") until the first telemetry arrives.
// @Tags         enclosure
// @Produce      json
// @Success      200  {object}  models.DeviceState
// @Router       /api/v1/data [get]
func (h *Handler) getData(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.GetState(c.Request.Context()))
}

// @Summary      Send a command to the controller
// @Tags         enclosure
// @Produce      json
// @Param        type  query     string  true  "Command token"  Enums(open-door,close-door,open-canopy,close-canopy)
// @Success      200   {object}  CommandResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/command [get]
// @Router       /api/v1/command [post]
// @Security     BearerAuth
func (h *Handler) sendCommand(c *gin.Context) {
	token := c.Query("type")
	err := h.services.Commands.Dispatch(c.Request.Context(), token)
	switch {
	case err == nil:
		if id, ok := c.Get(operatorIDKey); ok && h.log != nil {
			h.log.Infow("operator_command", "command", token, "operator_id", id)
		}
		c.JSON(http.StatusOK, CommandResponse{Status: statusSent, Command: token})
	case errors.Is(err, service.ErrInvalidCommand):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCommand})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errSendCommand, "command_failed", err, "command", token)
	}
}
