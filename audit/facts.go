package audit

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// PageFacts are the raw observations the scoring rules run on.
type PageFacts struct {
	Title           string
	MetaDescription string
	H1Count         int
	BodyText        string // whitespace collapsed to single spaces
	WordCount       int
	HasFAQSchema    bool
}

var (
	titleSel    = cascadia.MustCompile("title")
	metaDescSel = cascadia.MustCompile(`meta[name="description"]`)
	h1Sel       = cascadia.MustCompile("h1")
	ldJSONSel   = cascadia.MustCompile(`script[type="application/ld+json"]`)
	bodySel     = cascadia.MustCompile("body")
)

// Inspect parses rawHTML and extracts the facts used for scoring.
func Inspect(rawHTML string) (PageFacts, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return PageFacts{}, fmt.Errorf("audit: parse html: %w", err)
	}

	// Only the first title counts; inline SVGs carry <title> elements too.
	title := strings.TrimSpace(doc.FindMatcher(titleSel).First().Text())
	// The description is kept verbatim: its length rule counts padding.
	meta := doc.FindMatcher(metaDescSel).First().AttrOr("content", "")

	words := strings.Fields(doc.FindMatcher(bodySel).Text())

	return PageFacts{
		Title:           title,
		MetaDescription: meta,
		H1Count:         doc.FindMatcher(h1Sel).Length(),
		BodyText:        strings.Join(words, " "),
		WordCount:       len(words),
		HasFAQSchema:    strings.Contains(doc.FindMatcher(ldJSONSel).Text(), "FAQPage"),
	}, nil
}
