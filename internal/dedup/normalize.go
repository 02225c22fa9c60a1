package dedup

import (
	"strings"
	"unicode"
)

// boilerplatePrefixes are leading tags that feeds prepend to otherwise
// identical headlines. They are stripped before hashing so "Breaking: X"
// and "X" collapse to the same fingerprint.
var boilerplatePrefixes = []string{
	"new study:",
	"study:",
	"research:",
	"scientists:",
	"researchers:",
	"breaking:",
	"news:",
	"alert:",
	"update:",
}

// NormalizeTitle canonicalizes a title for fingerprinting: lower-case,
// boilerplate prefixes removed, punctuation stripped, whitespace collapsed.
func NormalizeTitle(title string) string {
	normalized := strings.ToLower(strings.TrimSpace(title))

	// Prefixes can stack ("update: breaking: ..."), so strip repeatedly.
	for {
		stripped := false
		for _, prefix := range boilerplatePrefixes {
			if strings.HasPrefix(normalized, prefix) {
				normalized = strings.TrimSpace(normalized[len(prefix):])
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
		// Punctuation is dropped entirely.
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens splits a normalized string into comparison tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
