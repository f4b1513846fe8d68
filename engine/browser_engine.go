package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/sitepulse/config"
	"github.com/use-agent/sitepulse/perf"
)

// pageCloseTimeout bounds the tab close during teardown.
const pageCloseTimeout = 5 * time.Second

// BrowserEngine renders the page in a headless browser and returns the
// resulting DOM. Each fetch launches and releases its own browser process.
type BrowserEngine struct {
	browserCfg config.BrowserConfig
	blocked    []string
	limit      *perf.SessionLimit
}

// NewBrowserEngine creates a BrowserEngine. blocked lists resource types
// skipped while rendering. limit is the session limit shared with the
// performance analyzer; nil means uncapped.
func NewBrowserEngine(browserCfg config.BrowserConfig, blocked []string, limit *perf.SessionLimit) *BrowserEngine {
	if limit == nil {
		limit = perf.NewSessionLimit(0)
	}
	return &BrowserEngine{browserCfg: browserCfg, blocked: blocked, limit: limit}
}

func (e *BrowserEngine) Name() string { return "browser" }

// Fetch lifecycle:
//
//  1. Timeout guard – hard deadline on the whole fetch
//  2. Acquire       – own browser process, DEFER release
//  3. Open tab      – DEFER close
//  4. Block         – images/fonts/media (before navigation!)
//  5. Navigate      – then wait for load and a stable DOM
//  6. Extract       – rendered HTML, title, final URL
func (e *BrowserEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	if err := e.limit.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("browser: waiting for a free session: %w", err)
	}
	defer e.limit.Release()

	// ── 2. Acquire session ────────────────────────────────────────────
	session, err := perf.Acquire(ctx, e.browserCfg)
	if err != nil {
		return nil, fmt.Errorf("browser: %w", err)
	}
	defer session.Release()

	// ── 3. Open tab ───────────────────────────────────────────────────
	page, err := session.NewRodPage()
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	defer func() { _ = page.Timeout(pageCloseTimeout).Close() }()

	// ── 4. Block heavy resources ──────────────────────────────────────
	if router := blockResources(page, e.blocked); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 5. Navigate ───────────────────────────────────────────────────
	p := page.Context(ctx)
	if err := p.Navigate(req.URL); err != nil {
		return nil, fmt.Errorf("browser: navigate: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("browser: wait load: %w", err)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"url", req.URL, "error", err)
	}

	// ── 6. Extract ────────────────────────────────────────────────────
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: extract html: %w", err)
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &FetchResult{
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: navigationStatus(p),
		FinalURL:   finalURL,
		EngineName: e.Name(),
	}, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string
// result, swallowing errors (optional metadata only).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// navigationStatus reads the HTTP status of the main document from the
// navigation timing entry; 0 when the browser does not expose it.
func navigationStatus(page *rod.Page) int {
	res, err := page.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}
