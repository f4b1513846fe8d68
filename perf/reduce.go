package perf

import (
	"fmt"
	"math"

	"github.com/use-agent/sitepulse/models"
)

// PerformanceReport is the result of one successful analysis.
type PerformanceReport struct {
	URL                    string
	FirstContentfulPaintMs float64
	DOMContentLoadedMs     int64
	LoadMs                 int64
	RequestCount           int
	PageSizeKB             float64
}

// Reduce combines a response log and the page timing into a report.
// It is a pure function of its inputs.
func Reduce(url string, log []ResponseRecord, timing NavigationTiming) PerformanceReport {
	var total int64
	for _, r := range log {
		total += r.ByteSize
	}

	return PerformanceReport{
		URL:                    url,
		FirstContentfulPaintMs: timing.FirstContentfulPaintMs,
		DOMContentLoadedMs:     timing.DOMContentLoadedMs,
		LoadMs:                 timing.LoadMs,
		RequestCount:           len(log),
		PageSizeKB:             round2(float64(total) / 1024),
	}
}

// Metrics formats the report the way API clients receive it.
func (r PerformanceReport) Metrics() models.PerformanceMetrics {
	return models.PerformanceMetrics{
		FCP:              fmt.Sprintf("%.2f ms", r.FirstContentfulPaintMs),
		DOMContentLoaded: fmt.Sprintf("%d ms", r.DOMContentLoadedMs),
		LoadTime:         fmt.Sprintf("%d ms", r.LoadMs),
		Requests:         r.RequestCount,
		PageSizeKB:       fmt.Sprintf("%.2f KB", r.PageSizeKB),
	}
}

// Response wraps Metrics with the analyzed URL.
func (r PerformanceReport) Response() models.PerformanceResponse {
	return models.PerformanceResponse{
		URL:         r.URL,
		Performance: r.Metrics(),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
