// Package audit scores a fetched HTML document for classic search engines
// (SEO) and for AI answer engines (GEO).
package audit

import (
	"log/slog"

	"github.com/use-agent/sitepulse/models"
)

// Build inspects and scores rawHTML. Content metrics are best effort: a
// conversion failure leaves AIReadability nil instead of failing the audit.
func Build(rawHTML, sourceURL string) (*models.AnalyzeResponse, error) {
	facts, err := Inspect(rawHTML)
	if err != nil {
		return nil, err
	}
	scores := Score(facts)

	content, err := MeasureContent(rawHTML, sourceURL)
	if err != nil {
		slog.Warn("content metrics unavailable", "url", sourceURL, "error", err)
		content = nil
	}

	return &models.AnalyzeResponse{
		URL:            sourceURL,
		Title:          facts.Title,
		MetaDesc:       facts.MetaDescription,
		H1Count:        facts.H1Count,
		WordCount:      facts.WordCount,
		SEOScore:       scores.SEO,
		GEOScore:       scores.GEO,
		SEOSuggestions: scores.SEOSuggestions,
		GEOSuggestions: scores.GEOSuggestions,
		AIReadability:  content,
	}, nil
}
