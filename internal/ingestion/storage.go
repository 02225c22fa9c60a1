package ingestion

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// ArticleStore is the persistence surface the pipeline writes to. The
// Postgres repository satisfies it in production; MemoryArticleStore covers
// tests and database-free runs.
type ArticleStore interface {
	// InsertIfAbsent stores an article unless its URL already exists,
	// reporting whether a new row was written.
	InsertIfAbsent(ctx context.Context, article models.Article) (bool, error)

	// RecentURLsAndTitles returns the URL and title of every article
	// ingested since the given time, used to seed duplicate fingerprints.
	RecentURLsAndTitles(ctx context.Context, since time.Time) ([]models.URLTitle, error)

	// CountByCategorySince returns per-category article counts for rows
	// ingested since the given time.
	CountByCategorySince(ctx context.Context, since time.Time) (map[string]int, error)

	// PromoteRecent refreshes the publish date on up to limit recent
	// articles in a category, re-surfacing them in recency-ordered views.
	PromoteRecent(ctx context.Context, category string, since time.Time, limit int) (int64, error)

	// DeleteDuplicateTitles removes articles sharing a title with an
	// earlier row, keeping the oldest.
	DeleteDuplicateTitles(ctx context.Context) (int64, error)
}

// BlacklistStore is the durable backing for the feed health registry.
type BlacklistStore interface {
	Upsert(ctx context.Context, entry models.BlacklistEntry) error
	ListActive(ctx context.Context, now time.Time) ([]models.BlacklistEntry, error)
	Delete(ctx context.Context, sourceURL string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MemoryArticleStore is a map-backed ArticleStore.
type MemoryArticleStore struct {
	mu     sync.Mutex
	byURL  map[string]models.Article
	nextID int64
}

// NewMemoryArticleStore creates an empty in-memory article store.
func NewMemoryArticleStore() *MemoryArticleStore {
	return &MemoryArticleStore{
		byURL:  make(map[string]models.Article),
		nextID: 1,
	}
}

// InsertIfAbsent stores the article keyed by URL.
func (s *MemoryArticleStore) InsertIfAbsent(ctx context.Context, article models.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byURL[article.URL]; exists {
		return false, nil
	}

	article.ID = s.nextID
	s.nextID++
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}
	s.byURL[article.URL] = article
	return true, nil
}

// RecentURLsAndTitles returns fingerprint seeds for articles ingested since
// the given time.
func (s *MemoryArticleStore) RecentURLsAndTitles(ctx context.Context, since time.Time) ([]models.URLTitle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.URLTitle
	for _, a := range s.byURL {
		if !a.CreatedAt.Before(since) {
			out = append(out, models.URLTitle{URL: a.URL, Title: a.Title})
		}
	}
	return out, nil
}

// CountByCategorySince counts recent articles per category.
func (s *MemoryArticleStore) CountByCategorySince(ctx context.Context, since time.Time) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, a := range s.byURL {
		if !a.CreatedAt.Before(since) {
			counts[a.Category]++
		}
	}
	return counts, nil
}

// PromoteRecent refreshes publish dates on up to limit recent articles in a
// category, newest first.
func (s *MemoryArticleStore) PromoteRecent(ctx context.Context, category string, since time.Time, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []models.Article
	for _, a := range s.byURL {
		if a.Category == category && !a.CreatedAt.Before(since) {
			candidates = append(candidates, a)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	now := time.Now().UTC()
	for _, a := range candidates {
		a.PublishedAt = now
		s.byURL[a.URL] = a
	}
	return int64(len(candidates)), nil
}

// DeleteDuplicateTitles removes articles whose title matches an earlier row
// case-insensitively, keeping the lowest ID.
func (s *MemoryArticleStore) DeleteDuplicateTitles(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keeper := make(map[string]models.Article)
	for _, a := range s.byURL {
		key := strings.ToLower(strings.TrimSpace(a.Title))
		best, seen := keeper[key]
		if !seen || a.ID < best.ID {
			keeper[key] = a
		}
	}

	var removed int64
	for url, a := range s.byURL {
		key := strings.ToLower(strings.TrimSpace(a.Title))
		if keeper[key].ID != a.ID {
			delete(s.byURL, url)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored articles.
func (s *MemoryArticleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byURL)
}

// All returns a snapshot of every stored article, unordered.
func (s *MemoryArticleStore) All() []models.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Article, 0, len(s.byURL))
	for _, a := range s.byURL {
		out = append(out, a)
	}
	return out
}

// MemoryBlacklistStore is a map-backed BlacklistStore.
type MemoryBlacklistStore struct {
	mu      sync.Mutex
	entries map[string]models.BlacklistEntry
}

// NewMemoryBlacklistStore creates an empty in-memory blacklist store.
func NewMemoryBlacklistStore() *MemoryBlacklistStore {
	return &MemoryBlacklistStore{
		entries: make(map[string]models.BlacklistEntry),
	}
}

// Upsert inserts or replaces the entry for its source URL.
func (s *MemoryBlacklistStore) Upsert(ctx context.Context, entry models.BlacklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.SourceURL] = entry
	return nil
}

// ListActive returns entries whose retry horizon is still in the future,
// ordered by source URL.
func (s *MemoryBlacklistStore) ListActive(ctx context.Context, now time.Time) ([]models.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.BlacklistEntry
	for _, e := range s.entries {
		if !e.Expired(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceURL < out[j].SourceURL })
	return out, nil
}

// Delete removes the entry for the source URL if present.
func (s *MemoryBlacklistStore) Delete(ctx context.Context, sourceURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sourceURL)
	return nil
}

// DeleteExpired removes entries whose retry window has passed.
func (s *MemoryBlacklistStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for url, e := range s.entries {
		if e.Expired(now) {
			delete(s.entries, url)
			removed++
		}
	}
	return removed, nil
}

// Get returns the entry for a source URL, if any.
func (s *MemoryBlacklistStore) Get(sourceURL string) (models.BlacklistEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[sourceURL]
	return e, ok
}
