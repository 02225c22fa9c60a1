package ingestion

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// ErrBlacklisted is returned by Fetch when a source is skipped because an
// active blacklist entry excludes it from this run.
var ErrBlacklisted = errors.New("source is blacklisted")

// FetchError is a classified feed fetch failure. Transient failures are
// retried with backoff before they become terminal; terminal failures carry
// the failure class that determines the source's blacklist window.
type FetchError struct {
	URL       string
	Status    int // HTTP status, zero for network and parse failures
	Class     models.FailureClass
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Reason returns the human-readable explanation recorded with the blacklist
// entry when this failure becomes terminal.
func (e *FetchError) Reason() string {
	switch {
	case e.Status == http.StatusNotFound:
		return "404 Not Found - feed discontinued"
	case e.Status == http.StatusGone:
		return "410 Gone - feed permanently removed"
	case e.Status == http.StatusTooManyRequests:
		return "429 Too Many Requests - rate limited"
	case e.Status >= 500:
		return fmt.Sprintf("%d server error", e.Status)
	case e.Status != 0:
		return fmt.Sprintf("unexpected status %d", e.Status)
	case e.Class == models.FailureMalformed:
		return fmt.Sprintf("unparseable feed: %v", e.Err)
	default:
		var dnsErr *net.DNSError
		if errors.As(e.Err, &dnsErr) {
			return fmt.Sprintf("dns resolution failure: %v", e.Err)
		}
		return fmt.Sprintf("network failure: %v", e.Err)
	}
}

// newStatusError classifies a non-success HTTP status. 404/410 mean the feed
// is gone for good; 429 means back off for longer than a retry loop can
// afford; 5xx and anything else unexpected are worth retrying.
func newStatusError(url string, status int) *FetchError {
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		return &FetchError{URL: url, Status: status, Class: models.FailurePermanent}
	case status == http.StatusTooManyRequests:
		return &FetchError{URL: url, Status: status, Class: models.FailureRateLimited}
	case status >= 500:
		return &FetchError{URL: url, Status: status, Class: models.FailureServerError, Transient: true}
	default:
		return &FetchError{URL: url, Status: status, Class: models.FailureNetwork, Transient: true}
	}
}

// newNetworkError classifies a transport-level failure. DNS failures are not
// retried: a host that does not resolve now will not resolve two seconds
// from now, so the source goes straight to the blacklist.
func newNetworkError(url string, err error) *FetchError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{URL: url, Class: models.FailureNetwork, Err: err}
	}
	return &FetchError{URL: url, Class: models.FailureNetwork, Transient: true, Err: err}
}

// newTimeoutError marks a request that exceeded its per-request deadline.
func newTimeoutError(url string, err error) *FetchError {
	return &FetchError{URL: url, Class: models.FailureNetwork, Transient: true, Err: err}
}

// newMalformedError marks a feed document that neither the structured nor
// the lenient parser could extract items from.
func newMalformedError(url string, err error) *FetchError {
	return &FetchError{URL: url, Class: models.FailureMalformed, Err: err}
}

// IsTransient reports whether err is a fetch failure worth retrying.
func IsTransient(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.Transient
}
