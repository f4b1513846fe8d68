// Package metrics exposes Prometheus counters for performance analyses and
// audit fetches.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/use-agent/sitepulse/engine"
	"github.com/use-agent/sitepulse/models"
	"github.com/use-agent/sitepulse/perf"
)

const namespace = "sitepulse"

// Metrics holds the sitepulse collectors on their own registry.
type Metrics struct {
	registry        *prometheus.Registry
	AnalysesTotal   *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	FetchesTotal    *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "performance_analyses_total",
			Help:      "Performance analyses by outcome (ok or error code)",
		}, []string{"outcome"}),
		AnalysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "performance_analysis_seconds",
			Help:      "Wall time of a performance analysis including browser launch",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_fetches_total",
			Help:      "Audit page fetches by winning engine and outcome",
		}, []string{"engine", "outcome"}),
	}
	r.MustRegister(m.AnalysesTotal, m.AnalysisSeconds, m.FetchesTotal)
	return m
}

// Registry returns the registry to serve on the metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Analyzer is the measured surface of *perf.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (perf.PerformanceReport, error)
	Stats() models.SessionStats
}

// Fetcher is the measured surface of *engine.Dispatcher.
type Fetcher interface {
	Dispatch(ctx context.Context, req *engine.FetchRequest, mode string) (*engine.FetchResult, error)
}

// InstrumentAnalyzer wraps a and registers an active-sessions gauge backed
// by a.Stats. Call it at most once per Metrics.
func (m *Metrics) InstrumentAnalyzer(a Analyzer) Analyzer {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Browser sessions currently running, analyses and rendered fetches together",
	}, func() float64 { return float64(a.Stats().ActiveSessions) }))
	return &analyzer{next: a, m: m}
}

// InstrumentFetcher wraps f.
func (m *Metrics) InstrumentFetcher(f Fetcher) Fetcher {
	return &fetcher{next: f, m: m}
}

type analyzer struct {
	next Analyzer
	m    *Metrics
}

func (a *analyzer) Analyze(ctx context.Context, url string) (perf.PerformanceReport, error) {
	start := time.Now()
	report, err := a.next.Analyze(ctx, url)
	a.m.AnalysisSeconds.Observe(time.Since(start).Seconds())
	a.m.AnalysesTotal.WithLabelValues(outcome(err)).Inc()
	return report, err
}

func (a *analyzer) Stats() models.SessionStats { return a.next.Stats() }

type fetcher struct {
	next Fetcher
	m    *Metrics
}

func (f *fetcher) Dispatch(ctx context.Context, req *engine.FetchRequest, mode string) (*engine.FetchResult, error) {
	result, err := f.next.Dispatch(ctx, req, mode)
	name := "none"
	if result != nil {
		name = result.EngineName
	}
	f.m.FetchesTotal.WithLabelValues(name, outcome(err)).Inc()
	return result, err
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var ae *models.AnalysisError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return "error"
}
