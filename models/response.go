package models

// PerformanceResponse is the response for GET /api/v1/performance.
type PerformanceResponse struct {
	URL         string             `json:"url"`
	Performance PerformanceMetrics `json:"performance"`
}

// PerformanceMetrics is the formatted view of a performance report.
// Timing and size fields are strings with their unit attached
// ("812.40 ms", "1532 ms", "245.17 KB").
type PerformanceMetrics struct {
	FCP              string `json:"FCP"`
	DOMContentLoaded string `json:"DOMContentLoaded"`
	LoadTime         string `json:"LoadTime"`
	Requests         int    `json:"Requests"`
	PageSizeKB       string `json:"PageSizeKB"`
}

// AnalyzeResponse is the response for GET /api/v1/analyze.
type AnalyzeResponse struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	MetaDesc       string   `json:"metaDesc"`
	H1Count        int      `json:"h1Count"`
	WordCount      int      `json:"wordCount"`
	SEOScore       int      `json:"seoScore"`
	GEOScore       int      `json:"geoScore"`
	SEOSuggestions []string `json:"seoSuggestions"`
	GEOSuggestions []string `json:"geoSuggestions"`

	// AIReadability describes how cheaply an LLM can consume the page.
	AIReadability *ContentMetrics `json:"aiReadability,omitempty"`

	// Performance is set when the request asked for a browser measurement
	// and it succeeded.
	Performance *PerformanceMetrics `json:"performance,omitempty"`

	// PerformanceError is set when the measurement was requested but failed.
	// The audit fields above are still valid.
	PerformanceError string `json:"performanceError,omitempty"`

	// FetchEngine names the engine that produced the audited HTML
	// ("http" or "browser").
	FetchEngine string `json:"fetchEngine,omitempty"`

	// CacheStatus is "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cacheStatus,omitempty"`
}

// ContentMetrics compares the raw HTML with its main content rendered as
// Markdown.
type ContentMetrics struct {
	// MainContentWords is the word count of the readability-extracted body.
	MainContentWords int `json:"mainContentWords"`

	// HTMLTokens is the estimated token count of the raw HTML.
	HTMLTokens int `json:"htmlTokens"`

	// MarkdownTokens is the estimated token count of the Markdown rendering.
	MarkdownTokens int `json:"markdownTokens"`

	// SavingsPercent is the share of tokens removed by the conversion (0-100).
	SavingsPercent float64 `json:"savingsPercent"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status   string       `json:"status"` // "healthy" or "degraded"
	Uptime   string       `json:"uptime"`
	Sessions SessionStats `json:"sessions"`
	Version  string       `json:"version"`
}

// SessionStats reports browser process usage.
type SessionStats struct {
	// MaxSessions is the configured cap; 0 means uncapped.
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
}
