package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitepulse/models"
)

// Performance returns a handler for GET /api/v1/performance.
//
// Every call launches a fresh browser; results are never cached.
func Performance(pa PerformanceAnalyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PerformanceRequest
		if !bindURLQuery(c, &req) {
			return
		}

		report, err := pa.Analyze(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, report.Response())
	}
}
