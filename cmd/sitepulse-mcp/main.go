package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// performanceMetrics mirrors the SitePulse performance block.
type performanceMetrics struct {
	FCP              string `json:"FCP"`
	DOMContentLoaded string `json:"DOMContentLoaded"`
	LoadTime         string `json:"LoadTime"`
	Requests         int    `json:"Requests"`
	PageSizeKB       string `json:"PageSizeKB"`
}

// performanceResponse mirrors GET /api/v1/performance.
type performanceResponse struct {
	URL         string             `json:"url"`
	Performance performanceMetrics `json:"performance"`
	Error       string             `json:"error"`
}

// analyzeResponse mirrors GET /api/v1/analyze.
type analyzeResponse struct {
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	MetaDesc       string   `json:"metaDesc"`
	H1Count        int      `json:"h1Count"`
	WordCount      int      `json:"wordCount"`
	SEOScore       int      `json:"seoScore"`
	GEOScore       int      `json:"geoScore"`
	SEOSuggestions []string `json:"seoSuggestions"`
	GEOSuggestions []string `json:"geoSuggestions"`
	AIReadability  *struct {
		MainContentWords int     `json:"mainContentWords"`
		HTMLTokens       int     `json:"htmlTokens"`
		MarkdownTokens   int     `json:"markdownTokens"`
		SavingsPercent   float64 `json:"savingsPercent"`
	} `json:"aiReadability"`
	Performance      *performanceMetrics `json:"performance"`
	PerformanceError string              `json:"performanceError"`
	Error            string              `json:"error"`
	Details          string              `json:"details"`
}

func main() {
	apiURL := os.Getenv("SITEPULSE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	apiKey := os.Getenv("SITEPULSE_API_KEY")

	s := newServer(apiURL, apiKey)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"sitepulse",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	// Browser measurements can take a full navigation timeout plus launch.
	client := &http.Client{Timeout: 120 * time.Second}

	analyzeTool := mcp.NewTool("analyze_page",
		mcp.WithDescription("Audit a web page for search engines (SEO) and AI answer engines (GEO). Returns scores, suggestions and AI readability metrics, optionally with load performance."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL of the page to analyze"),
		),
		mcp.WithBoolean("performance",
			mcp.Description("Also measure load performance in a headless browser (slower)"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("How to fetch the HTML: 'auto' (default), 'http' or 'browser'"),
			mcp.Enum("auto", "http", "browser"),
		),
	)
	s.AddTool(analyzeTool, handleAnalyze(client, apiURL, apiKey))

	perfTool := mcp.NewTool("measure_performance",
		mcp.WithDescription("Load a page in a fresh headless browser and report first contentful paint, DOMContentLoaded, load time, request count and transferred size."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL of the page to measure"),
		),
	)
	s.AddTool(perfTool, handlePerformance(client, apiURL, apiKey))

	return s
}

// apiGet sends a GET request to the SitePulse API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleAnalyze(client *http.Client, apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		q := url.Values{"url": {target}}
		if request.GetBool("performance", false) {
			q.Set("performance", "true")
		}
		if mode := request.GetString("fetch_mode", ""); mode != "" {
			q.Set("fetch_mode", mode)
		}

		body, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/analyze", q)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var r analyzeResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if r.Error != "" {
			msg := r.Error
			if r.Details != "" {
				msg += ": " + r.Details
			}
			return mcp.NewToolResultError(msg), nil
		}

		return mcp.NewToolResultText(formatAnalysis(&r)), nil
	}
}

func handlePerformance(client *http.Client, apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/performance", url.Values{"url": {target}})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var r performanceResponse
		if err := json.Unmarshal(body, &r); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if r.Error != "" {
			return mcp.NewToolResultError(r.Error), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Performance of %s\n%s", r.URL, formatPerformance(r.Performance))), nil
	}
}

func formatAnalysis(r *analyzeResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nSource: %s\n", r.Title, r.URL)
	fmt.Fprintf(&b, "SEO score: %d/100\nGEO score: %d/100\n", r.SEOScore, r.GEOScore)
	fmt.Fprintf(&b, "H1 tags: %d, words: %d\n", r.H1Count, r.WordCount)

	writeList(&b, "SEO suggestions", r.SEOSuggestions)
	writeList(&b, "GEO suggestions", r.GEOSuggestions)

	if a := r.AIReadability; a != nil {
		fmt.Fprintf(&b, "\nAI readability: %d main-content words, %d HTML tokens -> %d markdown tokens (saved %.0f%%)\n",
			a.MainContentWords, a.HTMLTokens, a.MarkdownTokens, a.SavingsPercent)
	}

	switch {
	case r.Performance != nil:
		b.WriteString("\n" + formatPerformance(*r.Performance))
	case r.PerformanceError != "":
		fmt.Fprintf(&b, "\nPerformance unavailable: %s\n", r.PerformanceError)
	}
	return b.String()
}

func formatPerformance(m performanceMetrics) string {
	return fmt.Sprintf("FCP: %s\nDOMContentLoaded: %s\nLoad time: %s\nRequests: %d\nPage size: %s\n",
		m.FCP, m.DOMContentLoaded, m.LoadTime, m.Requests, m.PageSizeKB)
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
