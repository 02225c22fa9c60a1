package ingestion

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

const (
	maxTitleRunes   = 200
	maxSummaryRunes = 800
	minSummaryRunes = 50
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	leadingJunk       = regexp.MustCompile(`^[:\-\s\.]+`)
	trailingJunk      = regexp.MustCompile(`[:\-\s\.]+$`)

	// Promotional blurbs and syndication footers that feeds append to
	// descriptions. Matched case-insensitively, each eats to end of string.
	boilerplatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Read more.*`),
		regexp.MustCompile(`(?i)Click here.*`),
		regexp.MustCompile(`(?i)Learn more.*`),
		regexp.MustCompile(`(?i)Continue reading.*`),
		regexp.MustCompile(`(?i)Full article.*`),
		regexp.MustCompile(`(?i)View original.*`),
		regexp.MustCompile(`(?i)\[.*?\]`),
		regexp.MustCompile(`(?i)Source:.*`),
		regexp.MustCompile(`(?i)Via:.*`),
		regexp.MustCompile(`(?i)From:.*`),
		regexp.MustCompile(`(?i)Share this:.*`),
		regexp.MustCompile(`(?i)Subscribe to.*`),
		regexp.MustCompile(`(?i)Follow us.*`),
		regexp.MustCompile(`(?i)More information.*`),
	}

	// Label prefixes some publishers prepend to headlines.
	titlePrefixes = []string{"New:", "New |", "Latest:", "Breaking:", "Study:"}
)

// cleanHTML strips markup and entities from a fragment of feed text,
// collapsing whitespace runs into single spaces.
func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeTitle cleans a feed entry title for storage: markup and entities
// removed, known label prefixes dropped, capped at 200 runes. Entries
// without a usable title get the placeholder.
func NormalizeTitle(raw string) string {
	title := cleanHTML(raw)

	for _, prefix := range titlePrefixes {
		if strings.HasPrefix(title, prefix) {
			title = strings.TrimSpace(title[len(prefix):])
			break
		}
	}

	if title == "" {
		return models.PlaceholderTitle
	}
	return truncateRunes(title, maxTitleRunes)
}

// NormalizeSummary cleans a feed entry description and blanks it when it
// carries no information beyond the title. Callers treat an empty return as
// "synthesize a summary instead".
func NormalizeSummary(raw, title string) string {
	summary := cleanHTML(raw)
	if summary == "" {
		return ""
	}

	// Feeds often restate the headline at the front of the description.
	if title != "" && strings.HasPrefix(strings.ToLower(summary), strings.ToLower(title)) {
		summary = strings.TrimLeft(summary[len(title):], " .-:")
	}

	for _, p := range boilerplatePatterns {
		summary = p.ReplaceAllString(summary, "")
	}
	summary = whitespacePattern.ReplaceAllString(summary, " ")
	summary = leadingJunk.ReplaceAllString(summary, "")
	summary = trailingJunk.ReplaceAllString(summary, "")

	if isTitleEcho(summary, title) {
		return ""
	}
	if len([]rune(summary)) < minSummaryRunes {
		return ""
	}
	if jaccard(summary, title) > 0.9 {
		return ""
	}

	if len([]rune(summary)) > maxSummaryRunes {
		summary = truncateRunes(summary, maxSummaryRunes) + "..."
	}
	return summary
}

// isTitleEcho reports whether the summary is just the title again, possibly
// with a few characters of decoration around it.
func isTitleEcho(summary, title string) bool {
	if summary == "" || title == "" {
		return false
	}
	s := strings.ToLower(summary)
	t := strings.ToLower(title)
	if s != t && !strings.Contains(s, t) && !strings.Contains(t, s) {
		return false
	}
	return len(summary)-len(title) < 20
}

// jaccard computes word-set overlap between two strings in [0, 1].
func jaccard(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// feedDateLayouts covers the formats seen across RSS and Atom feeds in the
// wild, tried in order.
var feedDateLayouts = []string{
	time.RFC1123Z,
	"Mon, 02 Jan 2006 15:04:05 GMT",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFeedDate parses a publish date from a feed, falling back to the
// current time when no known layout matches. Feeds with broken dates still
// get ingested, they just sort as fresh.
func ParseFeedDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC()
	}
	for _, layout := range feedDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// CleanURL undoes the HTML-entity escaping some aggregators leave in link
// fields.
func CleanURL(raw string) string {
	url := strings.TrimSpace(raw)
	url = strings.ReplaceAll(url, "&amp;", "&")
	url = strings.ReplaceAll(url, "&#39;", "'")
	url = strings.ReplaceAll(url, "&quot;", `"`)
	return url
}
