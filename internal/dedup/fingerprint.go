package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// URLFingerprint hashes an article URL for exact duplicate lookup. URLs are
// compared as given (minus surrounding whitespace); variants of the same
// story with different tracking parameters are caught by TitleFingerprint
// instead.
func URLFingerprint(url string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(sum[:])
}

// TitleFingerprint hashes the normalized form of a title.
func TitleFingerprint(title string) string {
	sum := md5.Sum([]byte(NormalizeTitle(title)))
	return hex.EncodeToString(sum[:])
}
