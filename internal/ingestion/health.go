package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// HealthRegistry tracks feeds that have failed fetches recently and keeps
// them out of rotation until their retry window passes. Entries are mirrored
// in memory for cheap lookups and written through to the store so a restart
// does not forget which sources were failing.
type HealthRegistry struct {
	store  BlacklistStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]models.BlacklistEntry
}

// NewHealthRegistry creates a registry backed by the given store.
func NewHealthRegistry(store BlacklistStore, logger *slog.Logger) *HealthRegistry {
	return &HealthRegistry{
		store:   store,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]models.BlacklistEntry),
	}
}

// Load prunes expired rows from the store and refreshes the in-memory mirror
// from the surviving entries. Called at the start of each run.
func (h *HealthRegistry) Load(ctx context.Context) error {
	now := h.now()

	if _, err := h.store.DeleteExpired(ctx, now); err != nil {
		return fmt.Errorf("pruning expired blacklist entries: %w", err)
	}

	active, err := h.store.ListActive(ctx, now)
	if err != nil {
		return fmt.Errorf("loading blacklist: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = make(map[string]models.BlacklistEntry, len(active))
	for _, e := range active {
		h.entries[e.SourceURL] = e
	}
	return nil
}

// IsBlacklisted reports whether the URL is currently blocked, with a
// human-readable reason when it is. Expired entries are evicted from the
// mirror and the store on first sight.
func (h *HealthRegistry) IsBlacklisted(ctx context.Context, url string) (bool, string) {
	h.mu.Lock()
	entry, ok := h.entries[url]
	if ok && entry.Expired(h.now()) {
		delete(h.entries, url)
		ok = false
		h.mu.Unlock()

		if err := h.store.Delete(ctx, url); err != nil {
			h.logger.Warn("failed to delete expired blacklist entry", "url", url, "error", err)
		}
		h.logger.Info("blacklist entry expired, source eligible again", "url", url)
		return false, ""
	}
	h.mu.Unlock()

	if !ok {
		return false, ""
	}
	reason := fmt.Sprintf("blacklisted until %s: %s", entry.RetryAfter.Format(time.RFC3339), entry.Reason)
	return true, reason
}

// Blacklist records a failure for the URL, replacing any existing entry. The
// retry horizon is derived from the failure class, so repeated failures of
// the same class always push the horizon forward, never back. The first
// failure time survives replacement so the entry records how long the source
// has been unhealthy.
func (h *HealthRegistry) Blacklist(ctx context.Context, url, reason string, class models.FailureClass) error {
	now := h.now()
	entry := models.BlacklistEntry{
		SourceURL:     url,
		Reason:        reason,
		FailureClass:  class,
		FirstFailedAt: now,
		RetryAfter:    now.Add(class.RetryWindow()),
	}

	h.mu.Lock()
	if prev, ok := h.entries[url]; ok && !prev.FirstFailedAt.IsZero() {
		entry.FirstFailedAt = prev.FirstFailedAt
	}
	h.entries[url] = entry
	h.mu.Unlock()

	if err := h.store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("persisting blacklist entry for %s: %w", url, err)
	}

	h.logger.Warn("source blacklisted",
		"url", url,
		"reason", reason,
		"failure_class", string(class),
		"retry_after", entry.RetryAfter.Format(time.RFC3339))
	return nil
}

// ActiveEntries returns a snapshot of entries still inside their retry
// window, sorted by source URL.
func (h *HealthRegistry) ActiveEntries() []models.BlacklistEntry {
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.BlacklistEntry, 0, len(h.entries))
	for _, e := range h.entries {
		if !e.Expired(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceURL < out[j].SourceURL })
	return out
}

// Size returns the number of mirrored entries, expired or not.
func (h *HealthRegistry) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
