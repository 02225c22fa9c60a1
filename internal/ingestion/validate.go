package ingestion

import (
	"fmt"
	"net/url"
	"strings"
)

// placeholderDomains are substrings of URLs that mark test or placeholder
// content occasionally found in real feeds. Articles pointing at them are
// rejected before persistence.
var placeholderDomains = []string{
	"example.com",
	"example.org",
	"example.net",
	"test.com",
	"placeholder.com",
	"dummy.com",
	"fake.com",
	"localhost",
	"127.0.0.1",
	"sample.com",
}

// ValidationError rejects an article before persistence. Validation
// failures are dropped silently and only counted, never propagated.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid article url %q: %s", e.URL, e.Reason)
}

// ValidateArticleURL checks that a parsed entry's URL is worth persisting:
// non-empty, http(s), host present, not a placeholder or test domain, and
// not pointing at an error page.
func ValidateArticleURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &ValidationError{URL: raw, Reason: "missing url"}
	}

	lower := strings.ToLower(raw)
	for _, domain := range placeholderDomains {
		if strings.Contains(lower, domain) {
			return &ValidationError{URL: raw, Reason: "placeholder or test domain"}
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{URL: raw, Reason: "unparseable url"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{URL: raw, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return &ValidationError{URL: raw, Reason: "missing host"}
	}

	// Some CMSes emit their error page as an entry link when a story cannot
	// be resolved. Whole segments only, so /errors-in-medicine survives.
	for _, segment := range strings.Split(strings.ToLower(u.Path), "/") {
		switch segment {
		case "404", "not-found", "error", "article-not-found":
			return &ValidationError{URL: raw, Reason: "error page url"}
		}
	}

	return nil
}
