package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// operatorIDKey holds the verified operator id in the gin context.
const operatorIDKey = "operatorId"

// requireOperator admits requests carrying a valid operator bearer token.
func (h *Handler) requireOperator(c *gin.Context) {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	switch {
	case scheme == "":
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
		return
	case !ok || scheme != "Bearer" || token == "":
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header format"})
		return
	}

	id, err := h.services.Verify(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("operator_token_rejected", "client_ip", c.ClientIP(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	c.Set(operatorIDKey, id)
	c.Next()
}

// commandRateLimit rejects commands beyond the configured rate with 429.
func (h *Handler) commandRateLimit(c *gin.Context) {
	if h.opts.CommandLimiter != nil && !h.opts.CommandLimiter.Allow() {
		if h.log != nil {
			h.log.Warnw("command_rate_limited", "client_ip", c.ClientIP())
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "too many commands",
		})
		return
	}
	c.Next()
}
