package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sitepulse/api/middleware"
	"github.com/use-agent/sitepulse/audit"
	"github.com/use-agent/sitepulse/cache"
	"github.com/use-agent/sitepulse/engine"
	"github.com/use-agent/sitepulse/models"
	"github.com/use-agent/sitepulse/perf"
	"golang.org/x/sync/errgroup"
)

// Analyze returns a handler for GET /api/v1/analyze (and the legacy
// GET /analyze).
//
// Orchestration flow:
//  1. Parse & validate query, apply defaults.
//  2. Audit: cache lookup, else fetch via the dispatcher and score.
//  3. In parallel, when performance=true, run the browser measurement.
//  4. Merge; a failed measurement is reported next to the audit.
func Analyze(f Fetcher, pa PerformanceAnalyzer, cc *cache.Cache, fetchTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.AnalyzeRequest
		if !bindURLQuery(c, &req) {
			return
		}
		req.Defaults()

		// ── 2-3. Audit and measurement ──────────────────────────────
		var (
			report  *models.AnalyzeResponse
			perfRep perf.PerformanceReport
			perfErr error
		)

		g, ctx := errgroup.WithContext(c.Request.Context())
		g.Go(func() error {
			var err error
			report, err = auditPage(ctx, f, cc, &req, fetchTimeout)
			return err
		})
		if req.Performance {
			// Never returns an error: a failed measurement must not
			// cancel the audit.
			g.Go(func() error {
				perfRep, perfErr = pa.Analyze(ctx, req.URL)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			respondError(c, err)
			return
		}

		// ── 4. Merge ────────────────────────────────────────────────
		if req.Performance {
			if perfErr != nil {
				ae := asAnalysisError(perfErr)
				slog.Warn("performance analysis failed",
					"url", req.URL,
					"request_id", c.GetString(middleware.RequestIDKey),
					"code", ae.Code,
					"error", perfErr,
				)
				report.PerformanceError = ae.Summary()
			} else {
				m := perfRep.Metrics()
				report.Performance = &m
			}
		}

		c.JSON(http.StatusOK, report)
	}
}

// auditPage returns the scored report for req.URL, from cache when allowed.
func auditPage(ctx context.Context, f Fetcher, cc *cache.Cache, req *models.AnalyzeRequest, timeout time.Duration) (*models.AnalyzeResponse, error) {
	useCache := cc != nil && req.MaxAge > 0
	key := cache.Key(req.URL, req.FetchMode)

	if useCache {
		if cached, hit := cc.Get(key, req.MaxAge); hit {
			cached.CacheStatus = "hit"
			return cached, nil
		}
	}

	result, err := f.Dispatch(ctx, &engine.FetchRequest{URL: req.URL, Timeout: timeout}, req.FetchMode)
	if err != nil {
		return nil, models.NewAnalysisError(models.ErrCodeFetch, "failed to fetch the URL", err)
	}

	report, err := audit.Build(result.HTML, req.URL)
	if err != nil {
		return nil, models.NewAnalysisError(models.ErrCodeInternal, "failed to analyze the URL", err)
	}
	report.FetchEngine = result.EngineName

	if useCache {
		cc.Set(key, report)
		report.CacheStatus = "miss"
	}
	return report, nil
}
