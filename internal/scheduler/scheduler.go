// Package scheduler drives the recurring background jobs: full and quick
// ingestion runs, the daily retention cleanup, and the optional keepalive
// self-ping. It owns the single-run policy for scrapes, so manual triggers
// and cron firings contend for the same slot.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// ErrAlreadyRunning is returned by Trigger when a scrape is in flight.
var ErrAlreadyRunning = errors.New("a scrape is already running")

// Job names as they appear in status reports and logs.
const (
	jobFullScrape  = "full_scrape"
	jobQuickScrape = "quick_scrape"
	jobCleanup     = "cleanup"
	jobKeepalive   = "keepalive"
)

// Pipeline is the ingestion surface the scheduler drives.
type Pipeline interface {
	Run(ctx context.Context, mode models.RunMode, runID string) (models.RunReport, error)
}

// MaintenanceStore is the slice of the article store the cleanup job uses.
type MaintenanceStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteDuplicateTitles(ctx context.Context) (int64, error)
}

// HealthView exposes the feed blacklist snapshot for status reports.
type HealthView interface {
	ActiveEntries() []models.BlacklistEntry
}

// Config holds the job timings. Zero ScrapeInterval or QuickInterval
// disables the corresponding job; an empty KeepaliveURL disables the ping.
type Config struct {
	ScrapeInterval time.Duration
	QuickInterval  time.Duration
	StartupDelay   time.Duration
	CleanupHourUTC int
	RetentionDays  int
	KeepaliveURL   string
}

// Scheduler registers the background jobs on a UTC cron engine and tracks
// their outcomes. Scrapes launched by cron and by Trigger share one
// in-flight slot; whoever arrives second is skipped rather than queued.
type Scheduler struct {
	cfg      Config
	pipeline Pipeline
	store    MaintenanceStore
	health   HealthView
	logger   *slog.Logger
	cron     *cron.Cron
	client   *http.Client

	mu          sync.Mutex
	jobs        map[string]*jobRecord
	activeRunID string
	activeMode  models.RunMode
	lastReport  *models.RunReport
	started     bool

	runCtx       context.Context
	runCancel    context.CancelFunc
	startupTimer *time.Timer
	wg           sync.WaitGroup
}

// jobRecord tracks one cron entry and its last outcome.
type jobRecord struct {
	entryID  cron.EntryID
	schedule string
	lastRun  *time.Time
	lastErr  string
}

// New creates a scheduler. Call Start to register and begin the jobs.
func New(cfg Config, pipeline Pipeline, store MaintenanceStore, health HealthView, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		pipeline: pipeline,
		store:    store,
		health:   health,
		logger:   logger,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		client:   &http.Client{Timeout: 10 * time.Second},
		jobs:     make(map[string]*jobRecord),
	}
	s.runCtx, s.runCancel = context.WithCancel(context.Background())
	return s
}

// Start registers the cron jobs, begins scheduling, and arms the one-shot
// startup scrape. The given context bounds every job run; cancelling it has
// the same effect as Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runCtx, s.runCancel = context.WithCancel(ctx)

	if s.cfg.ScrapeInterval > 0 {
		if err := s.addJob(jobFullScrape, everySpec(s.cfg.ScrapeInterval), func() {
			s.scheduledScrape(jobFullScrape, models.RunModeFull)
		}); err != nil {
			return err
		}
	}
	if s.cfg.QuickInterval > 0 {
		if err := s.addJob(jobQuickScrape, everySpec(s.cfg.QuickInterval), func() {
			s.scheduledScrape(jobQuickScrape, models.RunModeQuick)
		}); err != nil {
			return err
		}
	}
	if err := s.addJob(jobCleanup, fmt.Sprintf("0 %d * * *", s.cfg.CleanupHourUTC), s.runCleanup); err != nil {
		return err
	}
	if s.cfg.KeepaliveURL != "" {
		if err := s.addJob(jobKeepalive, "@every 1h", s.runKeepalive); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.mu.Lock()
	s.started = true
	for name, rec := range s.jobs {
		s.logger.Info("job scheduled",
			"job", name,
			"schedule", rec.schedule,
			"next_run", s.cron.Entry(rec.entryID).Next.Format(time.RFC3339))
	}
	s.mu.Unlock()

	if s.cfg.StartupDelay > 0 {
		s.startupTimer = time.AfterFunc(s.cfg.StartupDelay, func() {
			s.logger.Info("startup scrape starting", "delay", s.cfg.StartupDelay)
			if _, err := s.launchScrape(models.RunModeFull, "startup"); err != nil {
				s.logger.Warn("startup scrape skipped", "error", err)
			}
		})
		s.logger.Info("startup scrape armed", "delay", s.cfg.StartupDelay)
	}
	return nil
}

// Stop halts scheduling and waits for any in-flight scrape to unwind.
func (s *Scheduler) Stop() {
	if s.startupTimer != nil {
		s.startupTimer.Stop()
	}
	<-s.cron.Stop().Done()
	s.runCancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Trigger launches a manual scrape and returns its run ID without waiting
// for completion. It fails with ErrAlreadyRunning when a scrape is active.
func (s *Scheduler) Trigger(mode models.RunMode) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("unknown run mode %q", mode)
	}
	return s.launchScrape(mode, "manual")
}

// JobStatus describes one scheduled job.
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Status is a point-in-time snapshot of the scheduler and the feed
// blacklist, served by the scheduler status endpoint.
type Status struct {
	Running          bool                    `json:"running"`
	ActiveRunID      string                  `json:"active_run_id,omitempty"`
	ActiveMode       string                  `json:"active_mode,omitempty"`
	LastRun          *models.RunReport       `json:"last_run,omitempty"`
	Jobs             []JobStatus             `json:"jobs"`
	BlacklistedFeeds []models.BlacklistEntry `json:"blacklisted_feeds"`
}

// Status reports the scheduler's jobs, the active scrape if any, and the
// currently blacklisted feeds.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:          s.activeRunID != "",
		ActiveRunID:      s.activeRunID,
		ActiveMode:       string(s.activeMode),
		LastRun:          s.lastReport,
		Jobs:             make([]JobStatus, 0, len(s.jobs)),
		BlacklistedFeeds: s.health.ActiveEntries(),
	}
	for _, name := range []string{jobFullScrape, jobQuickScrape, jobCleanup, jobKeepalive} {
		rec, ok := s.jobs[name]
		if !ok {
			continue
		}
		js := JobStatus{
			Name:      name,
			Schedule:  rec.schedule,
			LastRun:   rec.lastRun,
			LastError: rec.lastErr,
		}
		if s.started {
			next := s.cron.Entry(rec.entryID).Next
			if !next.IsZero() {
				js.NextRun = &next
			}
		}
		status.Jobs = append(status.Jobs, js)
	}
	return status
}

// addJob registers a cron entry with panic recovery and outcome tracking.
func (s *Scheduler) addJob(name, spec string, fn func()) error {
	id, err := s.cron.AddFunc(spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduled job panicked", "job", name, "panic", r)
			}
		}()
		now := time.Now().UTC()
		s.mu.Lock()
		s.jobs[name].lastRun = &now
		s.mu.Unlock()
		fn()
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%s): %w", name, spec, err)
	}
	s.mu.Lock()
	s.jobs[name] = &jobRecord{entryID: id, schedule: spec}
	s.mu.Unlock()
	return nil
}

// scheduledScrape is the cron entry point for both scrape jobs. An overlap
// with an already-running scrape is logged and dropped, not queued, so a
// slow full run absorbs the quick firings it overlaps.
func (s *Scheduler) scheduledScrape(job string, mode models.RunMode) {
	runID, err := s.launchScrape(mode, job)
	if err != nil {
		s.logger.Info("scheduled scrape skipped", "job", job, "error", err)
		return
	}
	s.logger.Info("scheduled scrape started", "job", job, "run_id", runID)
}

// launchScrape claims the scrape slot and runs the pipeline in the
// background, returning the new run's ID immediately.
func (s *Scheduler) launchScrape(mode models.RunMode, trigger string) (string, error) {
	s.mu.Lock()
	if s.activeRunID != "" {
		active := s.activeRunID
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrAlreadyRunning, active)
	}
	runID := uuid.NewString()
	s.activeRunID = runID
	s.activeMode = mode
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scrape panicked", "run_id", runID, "panic", r)
			}
			s.mu.Lock()
			s.activeRunID = ""
			s.activeMode = ""
			s.mu.Unlock()
		}()

		report, err := s.pipeline.Run(s.runCtx, mode, runID)
		s.mu.Lock()
		s.lastReport = &report
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("scrape failed", "run_id", runID, "mode", string(mode), "trigger", trigger, "error", err)
			return
		}
	}()
	return runID, nil
}

// runCleanup deletes articles past the retention window and sweeps
// duplicate titles that slipped through per-run dedup.
func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(s.runCtx, 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays)
	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	s.recordJobErr(jobCleanup, err)
	if err != nil {
		s.logger.Error("retention cleanup failed", "error", err)
		return
	}

	dupes, err := s.store.DeleteDuplicateTitles(ctx)
	s.recordJobErr(jobCleanup, err)
	if err != nil {
		s.logger.Error("duplicate sweep failed", "error", err)
		return
	}
	s.logger.Info("cleanup complete",
		"retention_days", s.cfg.RetentionDays,
		"expired_removed", removed,
		"duplicates_removed", dupes)
}

// runKeepalive pings the configured URL so free-tier hosts do not idle the
// service out between scrapes.
func (s *Scheduler) runKeepalive() {
	ctx, cancel := context.WithTimeout(s.runCtx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.KeepaliveURL, nil)
	if err != nil {
		s.recordJobErr(jobKeepalive, err)
		s.logger.Warn("keepalive request invalid", "url", s.cfg.KeepaliveURL, "error", err)
		return
	}
	resp, err := s.client.Do(req)
	s.recordJobErr(jobKeepalive, err)
	if err != nil {
		s.logger.Warn("keepalive ping failed", "url", s.cfg.KeepaliveURL, "error", err)
		return
	}
	resp.Body.Close()
	s.logger.Debug("keepalive ping ok", "status", resp.StatusCode)
}

// recordJobErr stores the outcome of a job's latest run for Status.
func (s *Scheduler) recordJobErr(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[name]
	if !ok {
		return
	}
	if err != nil {
		rec.lastErr = err.Error()
	} else {
		rec.lastErr = ""
	}
}

// everySpec renders a duration as a cron @every descriptor.
func everySpec(d time.Duration) string {
	return "@every " + d.String()
}
