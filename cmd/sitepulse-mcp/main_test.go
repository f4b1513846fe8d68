package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := r.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", r.Content[0])
	}
	return tc.Text
}

func TestHandlePerformance(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-API-Key")
		w.Write([]byte(`{"url":"https://example.com","performance":{"FCP":"812.46 ms","DOMContentLoaded":"640 ms","LoadTime":"1201 ms","Requests":3,"PageSizeKB":"6.00 KB"}}`))
	}))
	defer srv.Close()

	h := handlePerformance(&http.Client{Timeout: time.Second}, srv.URL, "k")
	res, err := h(context.Background(), callTool(map[string]any{"url": "https://example.com"}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, "FCP: 812.46 ms") || !strings.Contains(text, "Requests: 3") {
		t.Errorf("text = %q", text)
	}
	if gotQuery != "url=https%3A%2F%2Fexample.com" || gotKey != "k" {
		t.Errorf("query = %q, key = %q", gotQuery, gotKey)
	}
}

func TestHandleAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("performance") != "true" {
			t.Errorf("performance flag not forwarded: %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"url":"https://example.com","title":"Bread","seoScore":70,"geoScore":60,
			"seoSuggestions":["Add more body content."],"geoSuggestions":[],
			"performanceError":"failed to launch browser"}`))
	}))
	defer srv.Close()

	h := handleAnalyze(&http.Client{Timeout: time.Second}, srv.URL, "")
	res, err := h(context.Background(), callTool(map[string]any{"url": "https://example.com", "performance": true}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	text := resultText(t, res)
	for _, want := range []string{"SEO score: 70/100", "- Add more body content.", "Performance unavailable: failed to launch browser"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestHandleAnalyze_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"failed to fetch the URL"}`))
	}))
	defer srv.Close()

	h := handleAnalyze(&http.Client{Timeout: time.Second}, srv.URL, "")
	res, _ := h(context.Background(), callTool(map[string]any{"url": "https://example.com"}))
	if !res.IsError {
		t.Fatal("IsError = false for an API error")
	}
	if got := resultText(t, res); got != "failed to fetch the URL" {
		t.Errorf("text = %q", got)
	}
}

func TestHandleAnalyze_MissingURL(t *testing.T) {
	h := handleAnalyze(http.DefaultClient, "http://unused", "")
	res, _ := h(context.Background(), callTool(map[string]any{}))
	if !res.IsError {
		t.Error("IsError = false without url")
	}
}
