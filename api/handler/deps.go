package handler

import (
	"context"

	"github.com/use-agent/sitepulse/engine"
	"github.com/use-agent/sitepulse/models"
	"github.com/use-agent/sitepulse/perf"
)

// PerformanceAnalyzer measures one page load. *perf.Analyzer satisfies it.
type PerformanceAnalyzer interface {
	Analyze(ctx context.Context, url string) (perf.PerformanceReport, error)
	Stats() models.SessionStats
}

// Fetcher retrieves page HTML for auditing. *engine.Dispatcher satisfies it.
type Fetcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest, mode string) (*engine.FetchResult, error)
}
