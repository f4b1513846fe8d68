package perf

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/sitepulse/config"
	"github.com/use-agent/sitepulse/models"
)

// State is a step of one analysis.
type State int

const (
	StateIdle State = iota
	StateSessionAcquired
	StatePageOpen
	StateTapAttached
	StateNavigating
	StateCollected
	StateReleased
	StateFailed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateSessionAcquired: "session_acquired",
	StatePageOpen:        "page_open",
	StateTapAttached:     "tap_attached",
	StateNavigating:      "navigating",
	StateCollected:       "collected",
	StateReleased:        "released",
	StateFailed:          "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Analyzer measures page load performance in a real browser. Every call
// to Analyze launches its own browser process, so concurrent calls share
// nothing but the optional session limit.
type Analyzer struct {
	cfg          config.PerformanceConfig
	newSession   SessionFactory
	limit        *SessionLimit
	closeTimeout time.Duration
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithSessionFactory replaces the browser launcher.
func WithSessionFactory(f SessionFactory) Option {
	return func(a *Analyzer) { a.newSession = f }
}

// WithSessionLimit shares limit with other browser users instead of a
// private limit sized from MaxSessions.
func WithSessionLimit(limit *SessionLimit) Option {
	return func(a *Analyzer) { a.limit = limit }
}

// NewAnalyzer creates an Analyzer that launches browsers with browserCfg.
func NewAnalyzer(browserCfg config.BrowserConfig, perfCfg config.PerformanceConfig, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg: perfCfg,
		newSession: func(ctx context.Context) (BrowserSession, error) {
			s, err := Acquire(ctx, browserCfg)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		closeTimeout: closeTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.limit == nil {
		a.limit = NewSessionLimit(perfCfg.MaxSessions)
	}
	return a
}

// Stats reports session usage of the analyzer's session limit.
func (a *Analyzer) Stats() models.SessionStats {
	return a.limit.Stats()
}

// analysis tracks the state of one Analyze call for logging.
type analysis struct {
	url   string
	state State
	start time.Time
}

func (r *analysis) to(s State) {
	slog.Debug("performance analysis transition",
		"url", r.url,
		"from", r.state.String(),
		"to", s.String(),
	)
	r.state = s
}

func (r *analysis) fail(err error) error {
	code := models.ErrCodeInternal
	var ae *models.AnalysisError
	if errors.As(err, &ae) {
		code = ae.Code
	}
	slog.Warn("performance analysis failed",
		"url", r.url,
		"state", r.state.String(),
		"code", code,
		"error", err,
		"elapsed_ms", time.Since(r.start).Milliseconds(),
	)
	r.state = StateFailed
	return err
}

// Analyze measures targetURL. It returns either a complete report or a
// single *models.AnalysisError; never both.
//
// Lifecycle:
//
//  1. Acquire session   – launch a browser process          (LAUNCH_FAILED)
//  2. DEFER: release    – runs on every exit path, exactly once
//  3. Open page         – new tab                           (PAGE_CREATE_FAILED)
//  4. Attach tap        – MUST precede navigation or early responses are lost
//  5. Navigate          – wait for the load event           (NAVIGATION_TIMEOUT / NAVIGATION_FAILED)
//  6. Read timing       – in-page performance timeline
//  7. Settle + snapshot – join in-flight body reads, copy the log
//  8. Reduce            – pure metrics computation
func (a *Analyzer) Analyze(ctx context.Context, targetURL string) (PerformanceReport, error) {
	run := &analysis{url: targetURL, state: StateIdle, start: time.Now()}

	if err := a.limit.Acquire(ctx); err != nil {
		return PerformanceReport{}, run.fail(models.NewAnalysisError(
			models.ErrCodeLaunch,
			"no browser session available",
			err,
		))
	}
	defer a.limit.Release()

	// ── 1. Acquire session ──────────────────────────────────────────
	session, err := a.newSession(ctx)
	if err != nil {
		return PerformanceReport{}, run.fail(asAnalysisError(err, models.ErrCodeLaunch, "failed to launch browser"))
	}
	run.to(StateSessionAcquired)

	// ── 2. Release unconditionally ──────────────────────────────────
	defer func() {
		session.Release()
		if run.state != StateFailed {
			run.to(StateReleased)
		}
	}()

	// ── 3. Open page ────────────────────────────────────────────────
	page, err := session.OpenPage(ctx)
	if err != nil {
		return PerformanceReport{}, run.fail(asAnalysisError(err, models.ErrCodePageCreate, "failed to create page"))
	}
	defer func() {
		if closeErr := closeWithin(a.closeTimeout, page.Close); closeErr != nil {
			slog.Warn("page close failed", "url", targetURL, "error", closeErr)
		}
	}()
	run.to(StatePageOpen)

	// ── 4. Attach tap ───────────────────────────────────────────────
	tap := Attach(ctx, page)
	defer tap.Detach()
	run.to(StateTapAttached)

	// ── 5. Navigate ─────────────────────────────────────────────────
	run.to(StateNavigating)
	if err := Navigate(ctx, page, targetURL, a.cfg.NavigationTimeout); err != nil {
		return PerformanceReport{}, run.fail(err)
	}

	// ── 6. Read timing ──────────────────────────────────────────────
	timing, err := ReadTiming(ctx, page)
	if err != nil {
		return PerformanceReport{}, run.fail(err)
	}

	// ── 7. Settle + snapshot ────────────────────────────────────────
	settleCtx, cancel := context.WithTimeout(ctx, a.settleTimeout())
	if err := tap.Settle(settleCtx); err != nil {
		slog.Debug("response tap did not settle, using partial log",
			"url", targetURL, "error", err)
	}
	cancel()
	records := tap.Snapshot()
	run.to(StateCollected)

	// ── 8. Reduce ───────────────────────────────────────────────────
	report := Reduce(targetURL, records, timing)
	slog.Info("performance analysis complete",
		"url", targetURL,
		"requests", report.RequestCount,
		"dropped", tap.Dropped(),
		"page_kb", report.PageSizeKB,
		"load_ms", report.LoadMs,
		"elapsed_ms", time.Since(run.start).Milliseconds(),
	)
	return report, nil
}

// errCloseTimeout reports a tab that did not close within the teardown
// budget. The close keeps running in the background; the session is
// released regardless.
var errCloseTimeout = errors.New("page close timed out")

// closeWithin runs closeFn and gives up waiting after d.
func closeWithin(d time.Duration, closeFn func() error) error {
	done := make(chan error, 1)
	go func() { done <- closeFn() }()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return errCloseTimeout
	}
}

func (a *Analyzer) settleTimeout() time.Duration {
	if a.cfg.SettleTimeout > 0 {
		return a.cfg.SettleTimeout
	}
	return 2 * time.Second
}

// asAnalysisError keeps an existing AnalysisError and wraps anything else
// under the given code.
func asAnalysisError(err error, code, msg string) *models.AnalysisError {
	var ae *models.AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	return models.NewAnalysisError(code, msg, err)
}
