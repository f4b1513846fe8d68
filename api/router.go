package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/sitepulse/api/handler"
	"github.com/use-agent/sitepulse/api/middleware"
	"github.com/use-agent/sitepulse/cache"
	"github.com/use-agent/sitepulse/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → RequestID → CORS
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics endpoints are intentionally outside auth so monitoring
// health checks always work. reg may be nil to disable /metrics. ctx bounds the rate
// limiter's background cleanup.
func NewRouter(ctx context.Context, f handler.Fetcher, pa handler.PerformanceAnalyzer, cfg *config.Config, cc *cache.Cache, reg *prometheus.Registry, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(pa, startTime))

	// Protected routes: auth + rate limit.
	protect := []gin.HandlerFunc{}
	if cfg.Auth.Enabled {
		protect = append(protect, middleware.Auth(cfg.Auth.APIKeys))
	}
	protect = append(protect, middleware.RateLimit(ctx, cfg.RateLimit))

	analyze := handler.Analyze(f, pa, cc, cfg.Fetch.Timeout)

	protected := v1.Group("", protect...)
	protected.GET("/analyze", analyze)
	protected.GET("/performance", handler.Performance(pa))

	// Unversioned route kept for existing clients.
	r.Group("", protect...).GET("/analyze", analyze)

	return r
}
