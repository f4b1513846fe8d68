package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitepulse/api/middleware"
	"github.com/use-agent/sitepulse/models"
)

// respondError maps an AnalysisError to the correct HTTP status code and
// writes a JSON error body. The code is logged, not returned.
func respondError(c *gin.Context, err error) {
	ae := asAnalysisError(err)

	slog.Warn("request failed",
		"path", c.FullPath(),
		"request_id", c.GetString(middleware.RequestIDKey),
		"code", ae.Code,
		"error", err,
	)

	c.JSON(mapErrorToStatus(ae), models.ErrorResponse{Error: ae.Summary()})
}

func asAnalysisError(err error) *models.AnalysisError {
	var ae *models.AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	return models.NewAnalysisError(models.ErrCodeInternal, "internal error", err)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.AnalysisError) int {
	switch e.Code {
	case models.ErrCodeNavigationTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

// bindURLQuery binds the query string into req. A missing url parameter
// gets the short message clients already match on.
func bindURLQuery(c *gin.Context, req any) bool {
	if c.Query("url") == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "URL is required"})
		return false
	}
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request",
			Details: err.Error(),
		})
		return false
	}
	return true
}
