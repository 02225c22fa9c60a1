package ingestion

import (
	"context"
	"sync"
	"time"
)

// rateWindow is the trailing window over which per-domain budgets apply.
const rateWindow = time.Minute

// RateLimiter enforces a per-domain request budget over a trailing
// 60-second window. Acquire blocks the calling worker until its request
// fits, so fetch code stays free of pacing arithmetic.
//
// Safe for concurrent use; domains are tracked independently.
type RateLimiter struct {
	defaultLimit int

	mu     sync.Mutex
	stamps map[string][]time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewRateLimiter creates a limiter whose default budget applies whenever
// Acquire is called with a non-positive limit.
func NewRateLimiter(defaultLimit int) *RateLimiter {
	if defaultLimit <= 0 {
		defaultLimit = 15
	}
	return &RateLimiter{
		defaultLimit: defaultLimit,
		stamps:       make(map[string][]time.Time),
		now:          time.Now,
		sleep:        sleepContext,
	}
}

// Acquire blocks until a request to domain would not exceed limitPerMinute
// in the trailing window, then records the request. After waiting for the
// oldest request to age out it loops and rechecks rather than claiming a
// slot, because a concurrent caller may have taken it first. Returns the
// context error if the caller is cancelled while waiting.
func (l *RateLimiter) Acquire(ctx context.Context, domain string, limitPerMinute int) error {
	if limitPerMinute <= 0 {
		limitPerMinute = l.defaultLimit
	}

	for {
		l.mu.Lock()
		now := l.now()
		recent := pruneStamps(l.stamps[domain], now)

		if len(recent) < limitPerMinute {
			l.stamps[domain] = append(recent, now)
			l.mu.Unlock()
			return nil
		}

		wait := rateWindow - now.Sub(recent[0])
		l.stamps[domain] = recent
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// pruneStamps drops timestamps that have aged out of the window. Stamps are
// appended in order, so the live suffix starts at the first recent entry.
func pruneStamps(stamps []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rateWindow)
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	return stamps[i:]
}
