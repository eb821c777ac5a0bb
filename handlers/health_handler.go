package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck handles the health check endpoint.
func (h *LinkHandler) HealthCheck(c *gin.Context) {
	h.logger.Debug("Health check request",
		zap.String("ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()))
	c.String(http.StatusOK, "OK")
}
