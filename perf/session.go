package perf

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/sitepulse/config"
	"github.com/use-agent/sitepulse/models"
)

// closeTimeout bounds every close call sent to a browser or tab during
// teardown.
const closeTimeout = 5 * time.Second

// BrowserSession is one browser process owned by a single request.
type BrowserSession interface {
	// OpenPage creates a new tab in the session.
	OpenPage(ctx context.Context) (PageContext, error)

	// Release terminates the process. It is idempotent and never fails.
	Release()
}

// SessionFactory acquires a fresh BrowserSession.
type SessionFactory func(ctx context.Context) (BrowserSession, error)

// Session is the rod-backed BrowserSession. Each Session launches and
// owns exactly one Chromium process.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	stealth  bool
	once     sync.Once
}

// Acquire launches a headless browser process and connects to it.
// The returned Session must be released by the caller.
func Acquire(ctx context.Context, cfg config.BrowserConfig) (*Session, error) {
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// Measurement flags: no background throttling, nothing extra on the wire.
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		// Cleanup waits for process exit, which never comes if the
		// process did not start; Kill alone is safe here.
		l.Kill()
		return nil, models.NewAnalysisError(
			models.ErrCodeLaunch,
			"failed to launch browser",
			err,
		)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, models.NewAnalysisError(
			models.ErrCodeLaunch,
			"failed to connect to browser",
			err,
		)
	}
	slog.Debug("browser session acquired", "pid", l.PID(), "controlURL", controlURL)

	return &Session{
		launcher: l,
		browser:  browser,
		stealth:  cfg.Stealth,
	}, nil
}

// NewRodPage creates a raw rod tab, with the stealth evasions installed
// when the session was configured for them.
func (s *Session) NewRodPage() (*rod.Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	if s.stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}
	return page, nil
}

// OpenPage implements BrowserSession.
func (s *Session) OpenPage(ctx context.Context) (PageContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := s.NewRodPage()
	if err != nil {
		return nil, err
	}
	return &rodPage{page: page}, nil
}

// Release closes the browser, kills the process and removes its profile
// directory. Failures are logged, never returned. Safe to call repeatedly.
// It takes no context and still runs after the request deadline expired;
// a browser that does not answer the close within closeTimeout is killed.
func (s *Session) Release() {
	s.once.Do(func() {
		if err := s.browser.Timeout(closeTimeout).Close(); err != nil {
			slog.Warn("session release: browser close failed", "error", err)
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
		slog.Debug("browser session released")
	})
}
