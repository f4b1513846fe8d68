package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/use-agent/sitepulse/config"
	"github.com/use-agent/sitepulse/perf"
)

// The browser is never launched here: the shared limit is held elsewhere,
// so Fetch must give up before starting a process.
func TestBrowserEngine_WaitsForSharedLimit(t *testing.T) {
	limit := perf.NewSessionLimit(1)
	if err := limit.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer limit.Release()

	e := NewBrowserEngine(config.BrowserConfig{BrowserBin: "/nonexistent/chromium"}, nil, limit)
	_, err := e.Fetch(context.Background(), &FetchRequest{
		URL:     "https://example.com",
		Timeout: 20 * time.Millisecond,
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Fetch() = %v, want deadline exceeded waiting for the shared limit", err)
	}
	if s := limit.Stats(); s.ActiveSessions != 1 {
		t.Errorf("ActiveSessions = %d, want 1", s.ActiveSessions)
	}
}
