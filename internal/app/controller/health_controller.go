package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/catalog-review-backend/pkg/logger"
)

const healthCheckTimeout = 2 * time.Second

type HealthController struct {
	ping func(ctx context.Context) error
}

// NewHealthController takes the store ping used to report readiness.
func NewHealthController(ping func(ctx context.Context) error) *HealthController {
	return &HealthController{ping: ping}
}

// Health GET /health
func (ctrl *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := ctrl.ping(ctx); err != nil {
		logger.Error("Health check failed", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"database": "down",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}
