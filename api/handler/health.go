package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitepulse/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports browser session utilisation and degrades status when > 80% of
// sessions are active.
func Health(pa PerformanceAnalyzer, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pa.Stats()

		status := "healthy"
		if stats.MaxSessions > 0 && stats.ActiveSessions > int(float64(stats.MaxSessions)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   status,
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			Sessions: stats,
			Version:  Version,
		})
	}
}
