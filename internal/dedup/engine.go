package dedup

import (
	"sync"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// Duplicate rejection reasons reported by Admit.
const (
	ReasonDuplicateURL   = "duplicate url"
	ReasonDuplicateTitle = "duplicate title"
	ReasonSimilarTitle   = "similar title"
	ReasonSimilarSummary = "similar summary"
)

// Config holds the fuzzy-matching thresholds. The defaults are empirically
// chosen; both are tunable through configuration.
type Config struct {
	TitleThreshold   float64
	SummaryThreshold float64
}

// DefaultConfig returns the standard dedup thresholds.
func DefaultConfig() Config {
	return Config{
		TitleThreshold:   0.85,
		SummaryThreshold: 0.90,
	}
}

type acceptedItem struct {
	titleTokens   []string
	summaryTokens []string
}

// Engine suppresses duplicate articles within a single scrape run. It is
// two-tiered: an O(1) fingerprint check against URLs and normalized titles
// seen this run (or seeded from recent history), then a fuzzy comparison
// against the titles and summaries accepted earlier in the run.
//
// An Engine belongs to exactly one run. It is safe for the run's concurrent
// workers, but must not be shared across runs.
type Engine struct {
	cfg Config

	mu          sync.Mutex
	urlHashes   map[string]struct{}
	titleHashes map[string]struct{}
	accepted    []acceptedItem
}

// NewEngine creates an empty dedup engine for one run.
func NewEngine(cfg Config) *Engine {
	if cfg.TitleThreshold <= 0 {
		cfg.TitleThreshold = DefaultConfig().TitleThreshold
	}
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = DefaultConfig().SummaryThreshold
	}
	return &Engine{
		cfg:         cfg,
		urlHashes:   make(map[string]struct{}),
		titleHashes: make(map[string]struct{}),
	}
}

// Seed preloads fingerprints from persisted history so the run rejects
// articles that were already stored by earlier runs. Seeded entries join
// the fast path only; the fuzzy tier compares within the current run.
func (e *Engine) Seed(history []models.URLTitle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, item := range history {
		if item.URL != "" {
			e.urlHashes[URLFingerprint(item.URL)] = struct{}{}
		}
		if item.Title != "" {
			e.titleHashes[TitleFingerprint(item.Title)] = struct{}{}
		}
	}
}

// Admit checks an article against everything seen so far. If it is new, the
// engine records its fingerprints and returns true; otherwise it returns
// false with a rejection reason. Check-and-record is atomic, so two workers
// admitting the same article concurrently cannot both succeed.
func (e *Engine) Admit(article models.RawArticle) (bool, string) {
	urlHash := URLFingerprint(article.URL)
	normTitle := NormalizeTitle(article.Title)
	titleHash := TitleFingerprint(article.Title)
	titleTokens := Tokens(normTitle)
	summaryTokens := Tokens(NormalizeTitle(article.Summary))

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, seen := e.urlHashes[urlHash]; seen {
		return false, ReasonDuplicateURL
	}
	if _, seen := e.titleHashes[titleHash]; seen {
		return false, ReasonDuplicateTitle
	}

	for _, item := range e.accepted {
		if TokenRatio(titleTokens, item.titleTokens) >= e.cfg.TitleThreshold {
			return false, ReasonSimilarTitle
		}
		if len(summaryTokens) > 0 && len(item.summaryTokens) > 0 &&
			TokenRatio(summaryTokens, item.summaryTokens) >= e.cfg.SummaryThreshold {
			return false, ReasonSimilarSummary
		}
	}

	e.urlHashes[urlHash] = struct{}{}
	e.titleHashes[titleHash] = struct{}{}
	e.accepted = append(e.accepted, acceptedItem{
		titleTokens:   titleTokens,
		summaryTokens: summaryTokens,
	})

	return true, ""
}

// AcceptedCount returns how many articles the engine has admitted this run.
func (e *Engine) AcceptedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.accepted)
}
