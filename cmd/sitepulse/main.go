package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/use-agent/sitepulse/api"
	"github.com/use-agent/sitepulse/cache"
	"github.com/use-agent/sitepulse/config"
	"github.com/use-agent/sitepulse/engine"
	"github.com/use-agent/sitepulse/metrics"
	"github.com/use-agent/sitepulse/perf"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	// A missing .env is normal in containers; real variables win.
	envErr := godotenv.Load()
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", envErr)
	}
	slog.Info("sitepulse starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxSessions", cfg.Performance.MaxSessions,
		"navTimeout", cfg.Performance.NavigationTimeout,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── 3. Performance analyzer ─────────────────────────────────────
	// One session limit covers every browser process the server launches.
	limit := perf.NewSessionLimit(cfg.Performance.MaxSessions)
	m := metrics.New()
	analyzer := m.InstrumentAnalyzer(perf.NewAnalyzer(cfg.Browser, cfg.Performance, perf.WithSessionLimit(limit)))

	// ── 4. Fetch engines for the page audit ─────────────────────────
	engines := []engine.Engine{
		engine.NewHTTPEngine(),
		engine.NewBrowserEngine(cfg.Browser, cfg.Fetch.BlockedResourceTypes, limit),
	}
	memory := engine.NewDomainMemory(cfg.Fetch.MemoryTTL)
	go memory.PruneLoop(ctx, time.Hour)
	dispatcher := m.InstrumentFetcher(engine.NewDispatcher(engines, cfg.Fetch.EscalationDelays, memory))
	slog.Info("fetch dispatcher ready",
		"engines", len(engines),
		"delays", cfg.Fetch.EscalationDelays,
	)

	// ── 5. Audit cache ──────────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	go cc.SweepLoop(ctx)

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	var reg *prometheus.Registry
	if cfg.Server.Metrics {
		reg = m.Registry()
	}
	router := api.NewRouter(ctx, dispatcher, analyzer, cfg, cc, reg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// In-flight measurements get one navigation timeout to finish, so
	// their browsers are released rather than orphaned.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Performance.NavigationTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	stop()
	slog.Info("sitepulse stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
