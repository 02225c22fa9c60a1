package models

import "time"

// FailureClass categorizes a terminal fetch failure and determines how long
// the source stays blacklisted before it is retried.
type FailureClass string

const (
	FailurePermanent   FailureClass = "permanent"    // HTTP 404/410, feed is gone
	FailureRateLimited FailureClass = "rate_limited" // HTTP 429
	FailureServerError FailureClass = "server_error" // HTTP 5xx
	FailureNetwork     FailureClass = "network"      // DNS, refused, reset
	FailureMalformed   FailureClass = "malformed"    // unparseable after fallback
)

// RetryWindow returns how long a source blacklisted with this class waits
// before the next fetch attempt. Permanent failures get the longest window
// so dead feeds are still rechecked eventually rather than excluded forever.
func (c FailureClass) RetryWindow() time.Duration {
	switch c {
	case FailurePermanent:
		return 30 * 24 * time.Hour
	case FailureRateLimited:
		return 12 * time.Hour
	default:
		return 6 * time.Hour
	}
}

// BlacklistEntry records a source excluded from fetching. At most one active
// entry exists per source URL; entries expire lazily once RetryAfter passes.
type BlacklistEntry struct {
	SourceURL     string       `json:"source_url"`
	Reason        string       `json:"reason"`
	FailureClass  FailureClass `json:"failure_class"`
	FirstFailedAt time.Time    `json:"first_failed_at"`
	RetryAfter    time.Time    `json:"retry_after"`
}

// Expired reports whether the entry's retry window has passed.
func (e *BlacklistEntry) Expired(now time.Time) bool {
	return !now.Before(e.RetryAfter)
}
