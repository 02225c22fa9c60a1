package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

const (
	acceptHeader = "application/rss+xml, application/xml, text/xml, */*"

	// maxFeedBytes caps how much of a response body is read. Feeds past
	// this size are almost certainly not feeds.
	maxFeedBytes = 10 << 20
)

// userAgents is rotated per request. Several publishers serve empty or
// degraded feeds to clients that look like bots.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/117.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// FetchConfig carries the fetcher's tunables.
type FetchConfig struct {
	// MaxRetries is the number of attempts per feed, including the first.
	MaxRetries int
	// RequestsPerMinute bounds requests per source domain.
	RequestsPerMinute int
	// Timeout applies per request unless the source sets its own.
	Timeout time.Duration
}

// Fetcher downloads feeds with retry, rate limiting and blacklist
// enforcement, and hands the bytes to the parser chain.
type Fetcher struct {
	client   *http.Client
	primary  Parser
	fallback Parser
	limiter  *RateLimiter
	health   *HealthRegistry
	logger   *slog.Logger

	maxRetries int
	perMinute  int
	timeout    time.Duration

	sleep func(context.Context, time.Duration) error
}

// NewFetcher wires a fetcher with the standard parser chain.
func NewFetcher(cfg FetchConfig, limiter *RateLimiter, health *HealthRegistry, logger *slog.Logger) *Fetcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Fetcher{
		client:     &http.Client{},
		primary:    NewFeedParser(),
		fallback:   NewLenientParser(),
		limiter:    limiter,
		health:     health,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		perMinute:  cfg.RequestsPerMinute,
		timeout:    cfg.Timeout,
		sleep:      sleepContext,
	}
}

// Fetch downloads and parses one source's feed. Blacklisted sources are
// refused up front with ErrBlacklisted. Transient failures are retried with
// backoff; when retries run out, or the failure is final on first sight, the
// source is blacklisted under its failure class and the classified error is
// returned.
func (f *Fetcher) Fetch(ctx context.Context, source models.Source) ([]models.RawArticle, error) {
	if blocked, reason := f.health.IsBlacklisted(ctx, source.URL); blocked {
		return nil, fmt.Errorf("%w: %s", ErrBlacklisted, reason)
	}

	timeout := f.timeout
	if source.Timeout > 0 {
		timeout = source.Timeout
	}

	var lastErr *FetchError
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
		}

		articles, err := f.fetchOnce(ctx, source, timeout)
		if err == nil {
			return articles, nil
		}

		var fetchErr *FetchError
		if !errors.As(err, &fetchErr) {
			// Context cancellation and rate limiter interruptions are
			// not source failures.
			return nil, err
		}
		lastErr = fetchErr
		if !fetchErr.Transient {
			break
		}
		f.logger.Debug("transient fetch failure",
			"url", source.URL, "attempt", attempt+1, "error", fetchErr)
	}

	if err := f.health.Blacklist(ctx, source.URL, lastErr.Reason(), lastErr.Class); err != nil {
		f.logger.Warn("failed to record blacklist entry", "url", source.URL, "error", err)
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, source models.Source, timeout time.Duration) ([]models.RawArticle, error) {
	if err := f.limiter.Acquire(ctx, source.Domain(), f.perMinute); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, newNetworkError(source.URL, err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return nil, newTimeoutError(source.URL, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newNetworkError(source.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(source.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		if reqCtx.Err() != nil && ctx.Err() == nil {
			return nil, newTimeoutError(source.URL, err)
		}
		return nil, newNetworkError(source.URL, err)
	}

	articles, primaryErr := f.primary.Parse(body)
	if primaryErr == nil {
		return articles, nil
	}
	f.logger.Debug("strict parse failed, trying lenient parser",
		"url", source.URL, "error", primaryErr)

	articles, fallbackErr := f.fallback.Parse(body)
	if fallbackErr == nil {
		f.logger.Info("lenient parser recovered feed",
			"url", source.URL, "entries", len(articles))
		return articles, nil
	}
	return nil, newMalformedError(source.URL, fmt.Errorf("strict: %v; lenient: %v", primaryErr, fallbackErr))
}
