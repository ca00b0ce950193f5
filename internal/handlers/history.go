package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Audit log
// @Description  Every log entry in append order. An unreadable store yields an empty list.
// @Tags         history
// @Produce      json
// @Success      200  {array}  models.LogEntry
// @Router       /api/v1/history [get]
func (h *Handler) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.History.List(c.Request.Context()))
}
