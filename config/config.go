package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Browser     BrowserConfig
	Performance PerformanceConfig
	Fetch       FetchConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig
	Log         LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"

	// AllowedOrigins feeds the CORS middleware. "*" allows any origin.
	AllowedOrigins []string // default: ["*"]

	// Metrics serves Prometheus metrics on GET /metrics.
	Metrics bool // default: true
}

// BrowserConfig controls how each per-request browser process is launched.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DefaultProxy is the proxy URL handed to every launched browser.
	DefaultProxy string

	// Stealth injects the go-rod/stealth evasions into every new page.
	Stealth bool // default: false
}

// PerformanceConfig controls the page performance analyzer.
type PerformanceConfig struct {
	// NavigationTimeout bounds the wait for the page "load" event.
	NavigationTimeout time.Duration // default: 30s

	// SettleTimeout bounds the wait for response body reads still in
	// flight when navigation completes.
	SettleTimeout time.Duration // default: 2s

	// MaxSessions caps concurrently running browser processes. 0 means no cap.
	MaxSessions int // default: 4
}

// FetchConfig controls the HTML fetch engines used by the page audit.
type FetchConfig struct {
	// EscalationDelays is the staged start delay for each engine tier
	// (http, browser).
	EscalationDelays []time.Duration // default: [0s, 3s]

	// Timeout is the deadline for a single audit fetch.
	Timeout time.Duration // default: 20s

	// MemoryTTL is how long the winning engine is remembered per domain.
	MemoryTTL time.Duration // default: 24h

	// BlockedResourceTypes lists resource types the browser engine skips
	// while rendering HTML for the audit.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per identity.
	Burst int // default: 5
}

// CacheConfig controls the audit report cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached reports.
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           envOr("SITEPULSE_HOST", "0.0.0.0"),
			Port:           envIntOr("PORT", envIntOr("SITEPULSE_PORT", 3000)),
			Mode:           envOr("SITEPULSE_MODE", "release"),
			AllowedOrigins: envSliceOr("SITEPULSE_ALLOWED_ORIGINS", []string{"*"}),
			Metrics:        envBoolOr("SITEPULSE_METRICS", true),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("SITEPULSE_HEADLESS", true),
			NoSandbox:    envBoolOr("SITEPULSE_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("SITEPULSE_BROWSER_BIN"),
			DefaultProxy: os.Getenv("SITEPULSE_PROXY"),
			Stealth:      envBoolOr("SITEPULSE_STEALTH", false),
		},
		Performance: PerformanceConfig{
			NavigationTimeout: envDurationOr("SITEPULSE_NAV_TIMEOUT", 30*time.Second),
			SettleTimeout:     envDurationOr("SITEPULSE_SETTLE_TIMEOUT", 2*time.Second),
			MaxSessions:       envIntOr("SITEPULSE_MAX_SESSIONS", 4),
		},
		Fetch: FetchConfig{
			EscalationDelays: envDurationSliceOr("SITEPULSE_ESCALATION_DELAYS", []time.Duration{0, 3 * time.Second}),
			Timeout:          envDurationOr("SITEPULSE_FETCH_TIMEOUT", 20*time.Second),
			MemoryTTL:        envDurationOr("SITEPULSE_ENGINE_MEMORY_TTL", 24*time.Hour),
			BlockedResourceTypes: envSliceOr("SITEPULSE_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SITEPULSE_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SITEPULSE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SITEPULSE_RATE_RPS", 2.0),
			Burst:             envIntOr("SITEPULSE_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SITEPULSE_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			Level:  envOr("SITEPULSE_LOG_LEVEL", "info"),
			Format: envOr("SITEPULSE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		var result []time.Duration
		for _, p := range splitTrim(v) {
			if d, err := time.ParseDuration(p); err == nil {
				result = append(result, d)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return splitTrim(v)
	}
	return fallback
}

func splitTrim(v string) []string {
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
