package audit

import (
	"fmt"
	"log/slog"
	"math"
	nurl "net/url"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/sitepulse/models"
)

// minContentLength is the shortest readability text accepted as the main
// content. Anything shorter falls back to the whole document.
const minContentLength = 50

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// MeasureContent estimates how much of the page an LLM crawler would keep:
// the readability main content rendered as Markdown versus the raw HTML.
func MeasureContent(rawHTML, sourceURL string) (*models.ContentMetrics, error) {
	htmlTokens := EstimateTokens(rawHTML)

	mainHTML, mainText := extractMain(rawHTML, sourceURL)

	md, err := mdConverter.ConvertString(mainHTML, converter.WithDomain(sourceURL))
	if err != nil {
		return nil, fmt.Errorf("audit: markdown conversion: %w", err)
	}
	mdTokens := EstimateTokens(md)

	savings := 0.0
	if htmlTokens > 0 {
		savings = float64(htmlTokens-mdTokens) / float64(htmlTokens) * 100
		savings = math.Round(savings*100) / 100
	}

	return &models.ContentMetrics{
		MainContentWords: len(strings.Fields(mainText)),
		HTMLTokens:       htmlTokens,
		MarkdownTokens:   mdTokens,
		SavingsPercent:   savings,
	}, nil
}

// extractMain runs Readability and returns the article HTML and text. It
// never fails: on any problem the raw document stands in for the article.
func extractMain(rawHTML, sourceURL string) (string, string) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return rawHTML, rawHTML
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return rawHTML, rawHTML
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Debug("readability: content too short", "url", sourceURL, "length", len(article.TextContent))
		return rawHTML, rawHTML
	}
	return article.Content, article.TextContent
}

// EstimateTokens approximates a token count as runes / 3, at least 1 for
// non-empty text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return max(n/3, 1)
}
