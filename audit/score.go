package audit

import (
	"regexp"
	"unicode/utf8"
)

// Scores is the outcome of running every rule against a page.
type Scores struct {
	SEO            int
	GEO            int
	SEOSuggestions []string
	GEOSuggestions []string
}

const (
	baseScore  = 50
	rulePoints = 10

	minMetaLength = 80
)

var (
	aiMetaTopics    = regexp.MustCompile(`(?i)AI|machine learning|FAQ|guide|how to`)
	aiMetaKeywords  = regexp.MustCompile(`(?i)AI|FAQ|how to|guide`)
	questionTitle   = regexp.MustCompile(`(?i)\b(what|how|why|guide|tips)\b`)
	questionLead    = regexp.MustCompile(`(?i)\bhow|why|what\b`)
	definitionStyle = regexp.MustCompile(`(?i)\b(who is|how does|what is)\b`)
)

// rule awards points when pass holds. A rule with a suggestion emits it
// when fail holds; fail is not always !pass (thresholds differ).
type rule struct {
	pass       func(PageFacts) bool
	fail       func(PageFacts) bool
	suggestion string
}

var seoRules = []rule{
	{
		pass:       func(f PageFacts) bool { return f.Title != "" },
		fail:       func(f PageFacts) bool { return f.Title == "" },
		suggestion: "Add a page title.",
	},
	{
		pass:       func(f PageFacts) bool { return utf8.RuneCountInString(f.MetaDescription) >= minMetaLength },
		fail:       func(f PageFacts) bool { return utf8.RuneCountInString(f.MetaDescription) < minMetaLength },
		suggestion: "Use a meta description with 80–160 characters.",
	},
	{
		pass:       func(f PageFacts) bool { return f.H1Count > 0 },
		fail:       func(f PageFacts) bool { return f.H1Count == 0 },
		suggestion: "Add at least one <h1> tag.",
	},
	{
		pass:       func(f PageFacts) bool { return f.WordCount > 300 },
		fail:       func(f PageFacts) bool { return f.WordCount < 300 },
		suggestion: "Add more body content.",
	},
	{
		pass: func(f PageFacts) bool { return f.HasFAQSchema },
	},
}

var geoRules = []rule{
	{
		pass:       func(f PageFacts) bool { return f.HasFAQSchema },
		fail:       func(f PageFacts) bool { return !f.HasFAQSchema },
		suggestion: "Add FAQ schema using JSON-LD for AI visibility.",
	},
	{
		pass:       func(f PageFacts) bool { return aiMetaTopics.MatchString(f.MetaDescription) },
		fail:       func(f PageFacts) bool { return !aiMetaKeywords.MatchString(f.MetaDescription) },
		suggestion: "Use AI-friendly keywords in meta description.",
	},
	{
		pass:       func(f PageFacts) bool { return questionTitle.MatchString(f.Title) },
		fail:       func(f PageFacts) bool { return !questionLead.MatchString(f.Title) },
		suggestion: "Use question-style titles to attract AI and search bots.",
	},
	{
		pass: func(f PageFacts) bool { return definitionStyle.MatchString(f.BodyText) },
	},
	{
		pass:       func(f PageFacts) bool { return f.WordCount > 500 },
		fail:       func(f PageFacts) bool { return f.WordCount < 500 },
		suggestion: "Expand your content to improve AI understanding.",
	},
}

// Score evaluates the SEO and GEO rule sets. Both scores start at 50 and
// gain 10 per passing rule, so each tops out at 100.
func Score(f PageFacts) Scores {
	seo, seoTips := evaluate(seoRules, f)
	geo, geoTips := evaluate(geoRules, f)
	return Scores{
		SEO:            seo,
		GEO:            geo,
		SEOSuggestions: seoTips,
		GEOSuggestions: geoTips,
	}
}

func evaluate(rules []rule, f PageFacts) (int, []string) {
	score := baseScore
	tips := []string{}
	for _, r := range rules {
		if r.pass(f) {
			score += rulePoints
		}
		if r.fail != nil && r.fail(f) {
			tips = append(tips, r.suggestion)
		}
	}
	return score, tips
}
