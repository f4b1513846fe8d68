package perf

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/sitepulse/models"
)

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var ae *models.AnalysisError
	if !errors.As(err, &ae) {
		t.Fatalf("error %v is not an *models.AnalysisError", err)
	}
	return ae.Code
}

func TestNavigate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		if err := Navigate(ctx, newFakePage(), "https://example.com", time.Second); err != nil {
			t.Fatalf("Navigate() = %v, want nil", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		page := newFakePage()
		page.blockNav = true
		err := Navigate(ctx, page, "https://slow.example.com", time.Millisecond)
		if got := codeOf(t, err); got != models.ErrCodeNavigationTimeout {
			t.Errorf("code = %s, want %s", got, models.ErrCodeNavigationTimeout)
		}
	})

	t.Run("timeout reported by the browser as a plain error", func(t *testing.T) {
		page := newFakePage()
		page.navErr = errors.New("navigation failed")
		page.blockNav = true
		err := Navigate(ctx, page, "https://slow.example.com", time.Millisecond)
		if got := codeOf(t, err); got != models.ErrCodeNavigationTimeout {
			t.Errorf("code = %s, want %s", got, models.ErrCodeNavigationTimeout)
		}
	})

	t.Run("dns failure", func(t *testing.T) {
		page := newFakePage()
		page.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
		err := Navigate(ctx, page, "https://nope.invalid", time.Second)
		if got := codeOf(t, err); got != models.ErrCodeNavigation {
			t.Errorf("code = %s, want %s", got, models.ErrCodeNavigation)
		}
		if !strings.Contains(err.Error(), "ERR_NAME_NOT_RESOLVED") {
			t.Errorf("error %q lost the underlying message", err)
		}
	})

	t.Run("caller canceled", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		page := newFakePage()
		page.blockNav = true
		err := Navigate(canceled, page, "https://example.com", time.Second)
		if got := codeOf(t, err); got != models.ErrCodeNavigation {
			t.Errorf("code = %s, want %s", got, models.ErrCodeNavigation)
		}
	})
}

func TestReadTiming(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		timing string
		want   NavigationTiming
	}{
		{
			name:   "full timeline",
			timing: `{"fcp": 812.456, "domContentLoaded": 640.4, "load": 1200.6}`,
			want:   NavigationTiming{FirstContentfulPaintMs: 812.456, DOMContentLoadedMs: 640, LoadMs: 1201},
		},
		{
			name:   "no fcp entry",
			timing: `{"fcp": 0, "domContentLoaded": 10, "load": 20}`,
			want:   NavigationTiming{DOMContentLoadedMs: 10, LoadMs: 20},
		},
		{
			name:   "missing fields",
			timing: `{}`,
			want:   NavigationTiming{},
		},
		{
			name:   "negative values clamp to zero",
			timing: `{"fcp": -1, "domContentLoaded": -5, "load": 3}`,
			want:   NavigationTiming{LoadMs: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage()
			page.timing = tt.timing
			got, err := ReadTiming(ctx, page)
			if err != nil {
				t.Fatalf("ReadTiming() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadTiming() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReadTiming_EvalError(t *testing.T) {
	page := newFakePage()
	page.evalErr = errors.New("execution context was destroyed")
	_, err := ReadTiming(context.Background(), page)
	if got := codeOf(t, err); got != models.ErrCodeNavigation {
		t.Errorf("code = %s, want %s", got, models.ErrCodeNavigation)
	}
}
