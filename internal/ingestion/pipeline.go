package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nexus-development01/metabolical-backend/internal/dedup"
	"github.com/nexus-development01/metabolical-backend/internal/enrichment"
	"github.com/nexus-development01/metabolical-backend/internal/metrics"
	"github.com/nexus-development01/metabolical-backend/internal/models"
	"github.com/nexus-development01/metabolical-backend/internal/relevance"
)

// ErrRunInProgress is returned by Run when another run holds the
// orchestrator.
var ErrRunInProgress = errors.New("an ingestion run is already in progress")

// Phase identifies where in its lifecycle a run currently is.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseValidating   Phase = "validating_sources"
	PhaseFetchingTier Phase = "fetching_tier"
	PhaseSupplement   Phase = "keyword_supplement"
	PhaseFallback     Phase = "category_fallback"
	PhaseReporting    Phase = "reporting"
)

// mainCategories are the portal's top-level sections. The fallback phase
// guarantees each one has fresh coverage after a run.
var mainCategories = []string{"news", "diseases", "solutions", "food", "audience", "trending"}

// FeedFetcher fetches and parses one source's feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, source models.Source) ([]models.RawArticle, error)
}

// Classifier assigns a category and subcategory to an article.
type Classifier interface {
	Classify(title, summary, sourceHint string) (string, string)
}

// Tagger derives topic tags from article text. A nil Tagger means articles
// carry only their source and classification tags.
type Tagger interface {
	Derive(title, summary string) []string
}

// SourceSet is the orchestrator's view of the configured inputs. It mirrors
// config.Sources field for field, so a loaded source list converts directly.
type SourceSet struct {
	Feeds            []models.Source
	SearchKeywords   []string
	FallbackKeywords map[string][]string
}

// ModeParams are the knobs that differ between quick and full runs. The two
// modes share every code path; only these numbers change.
type ModeParams struct {
	// MaxPriority limits which source tiers run; zero means all.
	MaxPriority int
	// TierCaps overrides the per-tier article cap; DefaultCap fills gaps.
	TierCaps   map[int]int
	DefaultCap int
	// SearchKeywords is how many configured keywords the supplement phase
	// issues; SearchCap limits articles kept per keyword.
	SearchKeywords int
	SearchCap      int
	// FallbackCap limits articles kept per category-fallback search.
	FallbackCap int
	// DuplicateSweep enables the corpus-wide title sweep after ingestion.
	DuplicateSweep bool
}

func paramsForMode(mode models.RunMode) ModeParams {
	if mode == models.RunModeQuick {
		return ModeParams{
			MaxPriority:    2,
			DefaultCap:     12,
			SearchKeywords: 3,
			SearchCap:      15,
			FallbackCap:    5,
		}
	}
	return ModeParams{
		TierCaps:       map[int]int{1: 25, 2: 20, 3: 15},
		DefaultCap:     15,
		SearchKeywords: 5,
		SearchCap:      15,
		FallbackCap:    5,
		DuplicateSweep: true,
	}
}

func (p ModeParams) tierCap(priority int) int {
	if c, ok := p.TierCaps[priority]; ok {
		return c
	}
	return p.DefaultCap
}

// OrchestratorConfig wires the orchestrator's collaborators and tunables.
// Fetcher, Store and Health are required; the rest have working defaults.
type OrchestratorConfig struct {
	Sources    SourceSet
	Fetcher    FeedFetcher
	Health     *HealthRegistry
	Store      ArticleStore
	Classifier Classifier
	Tagger     Tagger
	Filter     relevance.Filter
	Writer     enrichment.Writer
	Metrics    *metrics.Collector
	Logger     *slog.Logger

	Dedup      dedup.Config
	DedupOff   bool
	SeedWindow time.Duration

	MaxConcurrency    int
	SearchConcurrency int
	SearchRPS         float64
	RunTimeout        time.Duration
}

// Orchestrator drives a complete ingestion run: tiered source fetches,
// keyword supplementation, fallback coverage for empty categories, and the
// final report.
type Orchestrator struct {
	sources    SourceSet
	fetcher    FeedFetcher
	health     *HealthRegistry
	store      ArticleStore
	classifier Classifier
	tagger     Tagger
	filter     relevance.Filter
	writer     enrichment.Writer
	metrics    *metrics.Collector
	logger     *slog.Logger

	dedupCfg   dedup.Config
	dedupOn    bool
	seedWindow time.Duration

	maxConcurrency    int
	searchConcurrency int
	searchLimiter     *rate.Limiter
	runTimeout        time.Duration

	mu         sync.Mutex
	phase      Phase
	tier       int
	runID      string
	lastReport *models.RunReport
}

// NewOrchestrator builds an orchestrator from the given wiring.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Filter == nil {
		cfg.Filter = relevance.PassThrough{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Dedup == (dedup.Config{}) {
		cfg.Dedup = dedup.DefaultConfig()
	}
	if cfg.SeedWindow <= 0 {
		cfg.SeedWindow = 72 * time.Hour
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 5
	}
	if cfg.SearchConcurrency <= 0 {
		cfg.SearchConcurrency = 3
	}
	if cfg.SearchRPS <= 0 {
		cfg.SearchRPS = 1
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	return &Orchestrator{
		sources:           cfg.Sources,
		fetcher:           cfg.Fetcher,
		health:            cfg.Health,
		store:             cfg.Store,
		classifier:        cfg.Classifier,
		tagger:            cfg.Tagger,
		filter:            cfg.Filter,
		writer:            cfg.Writer,
		metrics:           cfg.Metrics,
		logger:            cfg.Logger,
		dedupCfg:          cfg.Dedup,
		dedupOn:           !cfg.DedupOff,
		seedWindow:        cfg.SeedWindow,
		maxConcurrency:    cfg.MaxConcurrency,
		searchConcurrency: cfg.SearchConcurrency,
		searchLimiter:     rate.NewLimiter(rate.Limit(cfg.SearchRPS), 1),
		runTimeout:        cfg.RunTimeout,
		phase:             PhaseIdle,
	}
}

// Run executes one ingestion pass and returns its report. Only one run may
// be active at a time; a second caller gets ErrRunInProgress.
func (o *Orchestrator) Run(ctx context.Context, mode models.RunMode, runID string) (models.RunReport, error) {
	if !mode.Valid() {
		return models.RunReport{}, fmt.Errorf("unknown run mode %q", mode)
	}
	if err := o.begin(runID); err != nil {
		return models.RunReport{}, err
	}
	defer o.setPhase(PhaseIdle, 0, "")

	logger := o.logger.With("run_id", runID, "mode", string(mode))
	params := paramsForMode(mode)
	started := time.Now().UTC()
	logger.Info("ingestion run starting")

	// Refresh blacklist state so this run sees entries recorded by earlier
	// runs and forgets expired ones.
	if err := o.health.Load(ctx); err != nil {
		logger.Warn("failed to refresh blacklist, continuing with mirror", "error", err)
	}
	o.setBlacklistGauge()

	run := o.newRunState(ctx, logger)

	for _, tier := range o.tiers(params) {
		if ctx.Err() != nil {
			break
		}
		o.setPhase(PhaseFetchingTier, tier.priority, runID)
		logger.Info("fetching source tier", "tier", tier.priority, "sources", len(tier.sources))
		o.fetchTier(ctx, run, tier.sources, params.tierCap(tier.priority), logger)
	}

	// The search phases share one deadline so a slow supplement cannot
	// stall the scheduler.
	if ctx.Err() == nil {
		searchCtx, cancel := context.WithTimeout(ctx, o.runTimeout)
		o.setPhase(PhaseSupplement, 0, runID)
		o.keywordSupplement(searchCtx, run, params, logger)
		if searchCtx.Err() == nil {
			o.setPhase(PhaseFallback, 0, runID)
			o.categoryFallback(searchCtx, run, params, logger)
		} else {
			logger.Warn("search budget exhausted before fallback phase")
		}
		cancel()
	}

	o.setPhase(PhaseReporting, 0, runID)
	if params.DuplicateSweep && ctx.Err() == nil {
		if removed, err := o.store.DeleteDuplicateTitles(ctx); err != nil {
			logger.Warn("duplicate sweep failed", "error", err)
		} else if removed > 0 {
			logger.Info("duplicate sweep removed articles", "count", removed)
		}
	}

	report := models.RunReport{
		RunID:       runID,
		Mode:        mode,
		StartedAt:   started,
		CompletedAt: time.Now().UTC(),
		Stats:       run.snapshot(),
	}

	o.mu.Lock()
	o.lastReport = &report
	o.mu.Unlock()

	o.recordRunMetrics(ctx, report)

	logger.Info("ingestion run complete",
		"duration", report.Duration().Round(time.Millisecond),
		"scraped", report.Stats.Scraped,
		"saved", report.Stats.Saved,
		"duplicates", report.Stats.Duplicates,
		"errors", report.Stats.Errors,
		"validation_failures", report.Stats.ValidationFailures,
		"sources_skipped", report.Stats.SourcesSkipped)

	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	Phase   Phase             `json:"phase"`
	Tier    int               `json:"tier,omitempty"`
	RunID   string            `json:"run_id,omitempty"`
	LastRun *models.RunReport `json:"last_run,omitempty"`
}

// Status reports the current phase and the last completed run.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{Phase: o.phase, Tier: o.tier, RunID: o.runID, LastRun: o.lastReport}
}

// begin claims the orchestrator for one run, refusing overlap.
func (o *Orchestrator) begin(runID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseIdle {
		return fmt.Errorf("%w: %s", ErrRunInProgress, o.runID)
	}
	o.phase = PhaseValidating
	o.runID = runID
	return nil
}

func (o *Orchestrator) setPhase(phase Phase, tier int, runID string) {
	o.mu.Lock()
	o.phase = phase
	o.tier = tier
	o.runID = runID
	o.mu.Unlock()
}

func (o *Orchestrator) newRunState(ctx context.Context, logger *slog.Logger) *runState {
	run := &runState{dedupOn: o.dedupOn}
	if !o.dedupOn {
		return run
	}
	run.engine = dedup.NewEngine(o.dedupCfg)
	history, err := o.store.RecentURLsAndTitles(ctx, time.Now().Add(-o.seedWindow))
	if err != nil {
		logger.Warn("fingerprint seeding failed, run starts cold", "error", err)
		return run
	}
	run.engine.Seed(history)
	logger.Debug("seeded duplicate fingerprints", "count", len(history))
	return run
}

type sourceTier struct {
	priority int
	sources  []models.Source
}

// tiers groups the configured feeds by priority, ascending, dropping tiers
// past the mode's reach.
func (o *Orchestrator) tiers(params ModeParams) []sourceTier {
	byPriority := make(map[int][]models.Source)
	for _, src := range o.sources.Feeds {
		if params.MaxPriority > 0 && src.Priority > params.MaxPriority {
			continue
		}
		byPriority[src.Priority] = append(byPriority[src.Priority], src)
	}

	priorities := make([]int, 0, len(byPriority))
	for p := range byPriority {
		priorities = append(priorities, p)
	}
	sort.Ints(priorities)

	tiers := make([]sourceTier, 0, len(priorities))
	for _, p := range priorities {
		tiers = append(tiers, sourceTier{priority: p, sources: byPriority[p]})
	}
	return tiers
}

func (o *Orchestrator) fetchTier(ctx context.Context, run *runState, sources []models.Source, limit int, logger *slog.Logger) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrency)
	for _, source := range sources {
		source := source
		g.Go(func() error {
			o.fetchSource(gctx, run, source, limit, source.Tags, logger)
			return nil
		})
	}
	_ = g.Wait()
}

// keywordSupplement issues topical searches through the news aggregator,
// covering stories the configured feeds miss.
func (o *Orchestrator) keywordSupplement(ctx context.Context, run *runState, params ModeParams, logger *slog.Logger) {
	keywords := o.sources.SearchKeywords
	if len(keywords) > params.SearchKeywords {
		keywords = keywords[:params.SearchKeywords]
	}
	if len(keywords) == 0 {
		return
	}
	logger.Info("supplementing from keyword searches", "keywords", len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.searchConcurrency)
	for _, keyword := range keywords {
		keyword := keyword
		g.Go(func() error {
			if err := o.searchLimiter.Wait(gctx); err != nil {
				return nil
			}
			o.fetchSource(gctx, run, searchSource(keyword, ""), params.SearchCap, []string{keyword, "google_news"}, logger)
			return nil
		})
	}
	_ = g.Wait()
}

// categoryFallback finds main categories with no fresh articles and fills
// them: recent history is re-promoted and targeted searches are issued.
func (o *Orchestrator) categoryFallback(ctx context.Context, run *runState, params ModeParams, logger *slog.Logger) {
	now := time.Now().UTC()
	counts, err := o.store.CountByCategorySince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		logger.Warn("category census failed, skipping fallback", "error", err)
		return
	}

	var empty []string
	for _, category := range mainCategories {
		if counts[category] == 0 {
			empty = append(empty, category)
		}
	}
	if len(empty) == 0 {
		return
	}
	logger.Info("categories without fresh articles", "categories", strings.Join(empty, ","))

	for _, category := range empty {
		if ctx.Err() != nil {
			return
		}
		if promoted, err := o.store.PromoteRecent(ctx, category, now.AddDate(0, 0, -7), 5); err != nil {
			logger.Warn("re-promoting recent articles failed", "category", category, "error", err)
		} else if promoted > 0 {
			logger.Info("re-promoted recent articles", "category", category, "count", promoted)
		}

		for _, keyword := range o.sources.FallbackKeywords[category] {
			if ctx.Err() != nil {
				return
			}
			if err := o.searchLimiter.Wait(ctx); err != nil {
				return
			}
			o.fetchSource(ctx, run, searchSource(keyword, category), params.FallbackCap, []string{keyword, category, "fallback"}, logger)
		}
	}
}

// fetchSource pulls one feed and runs every entry through the article
// pipeline. Failures are counted against the run, never fatal to it.
func (o *Orchestrator) fetchSource(ctx context.Context, run *runState, source models.Source, limit int, baseTags []string, logger *slog.Logger) {
	started := time.Now()
	articles, err := o.fetcher.Fetch(ctx, source)
	elapsed := time.Since(started)

	switch {
	case errors.Is(err, ErrBlacklisted):
		run.addSkipped()
		logger.Info("source skipped", "source", source.DisplayName(), "reason", err)
		o.observeFetch("skipped", elapsed)
		return
	case err != nil && ctx.Err() != nil:
		logger.Debug("fetch canceled", "source", source.DisplayName())
		return
	case err != nil:
		run.addError()
		logger.Warn("source fetch failed", "source", source.DisplayName(), "error", err)
		o.observeFetch("error", elapsed)
		return
	}
	o.observeFetch("ok", elapsed)

	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	for _, raw := range articles {
		o.processArticle(ctx, run, raw, source, baseTags, logger)
	}
}

// processArticle takes one feed entry through validation, relevance,
// classification and dedup, and persists it when everything admits it.
func (o *Orchestrator) processArticle(ctx context.Context, run *runState, raw models.RawArticle, source models.Source, baseTags []string, logger *slog.Logger) {
	run.addScraped()

	if strings.TrimSpace(raw.Title) == "" {
		run.addValidationFailure()
		logger.Debug("article dropped by validation", "url", raw.URL, "error", "missing title")
		return
	}
	if err := ValidateArticleURL(raw.URL); err != nil {
		run.addValidationFailure()
		logger.Debug("article dropped by validation", "url", raw.URL, "error", err)
		return
	}

	if res := o.filter.Evaluate(raw.Title, raw.Summary, ""); !res.Relevant {
		logger.Debug("article dropped as off-topic", "title", raw.Title)
		return
	}

	category, subcategory := o.classifier.Classify(raw.Title, raw.Summary, source.CategoryHint)
	// Stored labels use underscores even when a taxonomy override spells
	// subcategory names with spaces.
	subcategory = strings.ReplaceAll(subcategory, " ", "_")

	if ok, match := run.admit(raw); !ok {
		run.addDuplicate()
		logger.Debug("article dropped as duplicate", "title", raw.Title, "match", match)
		return
	}

	summary := raw.Summary
	if summary == "" && o.writer != nil {
		generated, err := o.writer.WriteSummary(ctx, raw.Title, category, source.DisplayName())
		if err != nil {
			logger.Debug("summary synthesis failed", "title", raw.Title, "error", err)
		} else {
			summary = generated
		}
	}

	labels := []string{category, subcategory}
	if o.tagger != nil {
		labels = append(labels, o.tagger.Derive(raw.Title, raw.Summary)...)
	}
	article := models.Article{
		Title:       raw.Title,
		URL:         raw.URL,
		Summary:     summary,
		Source:      source.DisplayName(),
		Category:    category,
		Subcategory: subcategory,
		Tags:        mergeTags(baseTags, labels...),
		Author:      raw.Author,
		ImageURL:    raw.ImageURL,
		PublishedAt: raw.PublishedAt,
	}
	inserted, err := o.store.InsertIfAbsent(ctx, article)
	if err != nil {
		run.addError()
		logger.Warn("article insert failed", "url", raw.URL, "error", err)
		return
	}
	if !inserted {
		run.addDuplicate()
		return
	}
	run.addSaved()
	logger.Debug("article saved", "title", raw.Title, "category", category)
}

func (o *Orchestrator) observeFetch(outcome string, d time.Duration) {
	if o.metrics != nil {
		o.metrics.ObserveFetch(outcome, d)
	}
}

func (o *Orchestrator) setBlacklistGauge() {
	if o.metrics != nil {
		o.metrics.SetBlacklistedFeeds(len(o.health.ActiveEntries()))
	}
}

func (o *Orchestrator) recordRunMetrics(ctx context.Context, report models.RunReport) {
	if o.metrics == nil {
		return
	}
	status := "completed"
	if ctx.Err() != nil {
		status = "canceled"
	}
	o.metrics.ObserveRun(string(report.Mode), status, report.CompletedAt)
	o.metrics.AddArticles("saved", report.Stats.Saved)
	o.metrics.AddArticles("duplicate", report.Stats.Duplicates)
	o.metrics.AddArticles("error", report.Stats.Errors)
	o.metrics.AddArticles("validation_failure", report.Stats.ValidationFailures)
	o.setBlacklistGauge()
}

// googleNewsURL builds the aggregator search feed URL for a keyword.
func googleNewsURL(keyword string) string {
	return "https://news.google.com/rss/search?q=" + url.QueryEscape(keyword) + "&hl=en-US&gl=US&ceid=US:en"
}

// searchSource wraps a keyword search as a synthetic source.
func searchSource(keyword, categoryHint string) models.Source {
	return models.Source{
		Name:         fmt.Sprintf("Google News (%s)", keyword),
		URL:          googleNewsURL(keyword),
		CategoryHint: categoryHint,
		Priority:     3,
	}
}

// mergeTags combines source tags with classification and topic labels,
// lowercased, first occurrence winning.
func mergeTags(baseTags []string, extra ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tag := range append(append([]string{}, baseTags...), extra...) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// runState carries the per-run dedup engine and counters. Counter methods
// are safe for the run's concurrent workers.
type runState struct {
	engine  *dedup.Engine
	dedupOn bool

	mu    sync.Mutex
	stats models.RunStats
}

// admit applies the two-tier duplicate check when dedup is enabled.
func (r *runState) admit(article models.RawArticle) (bool, string) {
	if !r.dedupOn || r.engine == nil {
		return true, ""
	}
	return r.engine.Admit(article)
}

func (r *runState) addScraped() { r.mu.Lock(); r.stats.Scraped++; r.mu.Unlock() }

func (r *runState) addSaved() { r.mu.Lock(); r.stats.Saved++; r.mu.Unlock() }

func (r *runState) addDuplicate() { r.mu.Lock(); r.stats.Duplicates++; r.mu.Unlock() }

func (r *runState) addError() { r.mu.Lock(); r.stats.Errors++; r.mu.Unlock() }

func (r *runState) addValidationFailure() { r.mu.Lock(); r.stats.ValidationFailures++; r.mu.Unlock() }

func (r *runState) addSkipped() { r.mu.Lock(); r.stats.SourcesSkipped++; r.mu.Unlock() }

func (r *runState) snapshot() models.RunStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
