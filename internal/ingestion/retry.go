package ingestion

import (
	"context"
	"math/rand"
	"time"
)

// retryDelay returns the backoff before retry number attempt (1-based):
// 2^attempt seconds plus up to one second of jitter so concurrent workers
// retrying the same window do not align their requests.
func retryDelay(attempt int) time.Duration {
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return backoff + jitter
}

// sleepContext waits for d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
