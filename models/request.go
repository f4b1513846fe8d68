package models

// AnalyzeRequest is the query string of GET /api/v1/analyze.
type AnalyzeRequest struct {
	// URL is the absolute page URL to analyze. Required.
	URL string `form:"url" binding:"required,url"`

	// Performance also runs the browser performance analysis and embeds
	// its result in the report. Default: false.
	Performance bool `form:"performance"`

	// FetchMode controls how the HTML for the audit is fetched.
	// "auto" (default): HTTP first, escalate to a rendering browser.
	// "http": pure HTTP only. "browser": rendering browser only.
	FetchMode string `form:"fetch_mode" binding:"omitempty,oneof=auto http browser"`

	// MaxAge allows serving a cached audit younger than this many
	// milliseconds. 0 (default) disables the cache for this request.
	MaxAge int `form:"max_age" binding:"omitempty,min=0"`
}

// Defaults applies default values to unset fields.
func (r *AnalyzeRequest) Defaults() {
	if r.FetchMode == "" {
		r.FetchMode = "auto"
	}
}

// PerformanceRequest is the query string of GET /api/v1/performance.
type PerformanceRequest struct {
	URL string `form:"url" binding:"required,url"`
}
