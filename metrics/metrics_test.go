package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/use-agent/sitepulse/engine"
	"github.com/use-agent/sitepulse/models"
	"github.com/use-agent/sitepulse/perf"
)

type stubAnalyzer struct {
	err    error
	active int
}

func (s stubAnalyzer) Analyze(ctx context.Context, url string) (perf.PerformanceReport, error) {
	return perf.PerformanceReport{URL: url}, s.err
}

func (s stubAnalyzer) Stats() models.SessionStats {
	return models.SessionStats{ActiveSessions: s.active}
}

type stubFetcher struct{ err error }

func (s stubFetcher) Dispatch(ctx context.Context, req *engine.FetchRequest, mode string) (*engine.FetchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &engine.FetchResult{EngineName: "http"}, nil
}

func TestRegistry(t *testing.T) {
	m := New()
	m.InstrumentAnalyzer(stubAnalyzer{active: 3})

	n, err := testutil.GatherAndCount(m.Registry(),
		"sitepulse_performance_analysis_seconds",
		"sitepulse_active_sessions",
	)
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("gathered %d series, want 2", n)
	}
	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")); got != 0 {
		t.Errorf("fresh registry has %v ok analyses", got)
	}
}

func TestInstrumentAnalyzer(t *testing.T) {
	m := New()
	ok := m.InstrumentAnalyzer(stubAnalyzer{active: 2})

	if _, err := ok.Analyze(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok analyses = %v, want 1", got)
	}
	if got := ok.Stats().ActiveSessions; got != 2 {
		t.Errorf("Stats() not forwarded: %d", got)
	}

	failing := &analyzer{next: stubAnalyzer{err: models.NewAnalysisError(models.ErrCodeNavigationTimeout, "slow", nil)}, m: m}
	_, _ = failing.Analyze(context.Background(), "https://slow.example.com")
	if got := testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(models.ErrCodeNavigationTimeout)); got != 1 {
		t.Errorf("timeout analyses = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.AnalysisSeconds); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}

func TestInstrumentFetcher(t *testing.T) {
	m := New()
	_, _ = m.InstrumentFetcher(stubFetcher{}).Dispatch(context.Background(), &engine.FetchRequest{}, "auto")
	_, _ = m.InstrumentFetcher(stubFetcher{err: errors.New("boom")}).Dispatch(context.Background(), &engine.FetchRequest{}, "auto")

	if got := testutil.ToFloat64(m.FetchesTotal.WithLabelValues("http", "ok")); got != 1 {
		t.Errorf("http ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FetchesTotal.WithLabelValues("none", "error")); got != 1 {
		t.Errorf("failed fetches = %v, want 1", got)
	}
}
