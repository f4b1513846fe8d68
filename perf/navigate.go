package perf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/use-agent/sitepulse/models"
)

// NavigationTiming is what the page's own performance timeline reports
// once the load event fired. All values are milliseconds since navigation
// start.
type NavigationTiming struct {
	// FirstContentfulPaintMs is 0 when the page never reported an FCP entry.
	FirstContentfulPaintMs float64
	DOMContentLoadedMs     int64
	LoadMs                 int64
}

// timingJS reads the navigation entry and the first-contentful-paint entry.
// loadEventEnd is still 0 while load handlers run, so loadEventStart is the
// fallback.
const timingJS = `() => {
	const out = { fcp: 0, domContentLoaded: 0, load: 0 };
	try {
		const nav = performance.getEntriesByType("navigation")[0];
		if (nav) {
			out.domContentLoaded = nav.domContentLoadedEventEnd || 0;
			out.load = nav.loadEventEnd || nav.loadEventStart || 0;
		}
		const fcp = performance.getEntriesByName("first-contentful-paint")[0];
		if (fcp) out.fcp = fcp.startTime;
	} catch (e) {}
	return out;
}`

// Navigate drives page to url and returns once its load event fired.
// A deadline hit within timeout yields NAVIGATION_TIMEOUT; every other
// failure yields NAVIGATION_FAILED carrying the browser's message.
func Navigate(ctx context.Context, page PageContext, url string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := page.Navigate(navCtx, url)
	if err == nil {
		return nil
	}
	if errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		err = errors.Join(err, context.DeadlineExceeded)
	}
	return categorizeError(err, timeout)
}

// ReadTiming queries the page's performance timeline. Call it only after
// Navigate succeeded.
func ReadTiming(ctx context.Context, page PageContext) (NavigationTiming, error) {
	v, err := page.Eval(ctx, timingJS)
	if err != nil {
		return NavigationTiming{}, models.NewAnalysisError(
			models.ErrCodeNavigation,
			"failed to read the page performance timeline",
			err,
		)
	}

	return NavigationTiming{
		FirstContentfulPaintMs: nonNegative(v.Get("fcp").Num()),
		DOMContentLoadedMs:     int64(math.Round(nonNegative(v.Get("domContentLoaded").Num()))),
		LoadMs:                 int64(math.Round(nonNegative(v.Get("load").Num()))),
	}, nil
}

// categorizeError wraps raw navigation errors into typed AnalysisErrors so
// the API layer can map them to HTTP status codes.
func categorizeError(err error, timeout time.Duration) *models.AnalysisError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewAnalysisError(
			models.ErrCodeNavigationTimeout,
			fmt.Sprintf("page did not finish loading within %s", timeout),
			err,
		)
	case errors.Is(err, context.Canceled):
		return models.NewAnalysisError(models.ErrCodeNavigation, "request canceled", err)
	default:
		return models.NewAnalysisError(models.ErrCodeNavigation, "navigation to target URL failed", err)
	}
}

func nonNegative(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}
