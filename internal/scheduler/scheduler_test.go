package scheduler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

type fakePipeline struct {
	mu       sync.Mutex
	runs     int
	lastMode models.RunMode
	block    chan struct{} // when set, Run waits on it
}

func (f *fakePipeline) Run(ctx context.Context, mode models.RunMode, runID string) (models.RunReport, error) {
	f.mu.Lock()
	f.runs++
	f.lastMode = mode
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}
	now := time.Now().UTC()
	return models.RunReport{RunID: runID, Mode: mode, StartedAt: now, CompletedAt: now}, nil
}

func (f *fakePipeline) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeMaintenance struct {
	mu         sync.Mutex
	cutoff     time.Time
	expired    int64
	duplicates int64
	dupeCalls  int
}

func (f *fakeMaintenance) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoff = cutoff
	return f.expired, nil
}

func (f *fakeMaintenance) DeleteDuplicateTitles(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dupeCalls++
	return f.duplicates, nil
}

type fakeHealth struct {
	entries []models.BlacklistEntry
}

func (f *fakeHealth) ActiveEntries() []models.BlacklistEntry {
	return f.entries
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		ScrapeInterval: time.Hour,
		QuickInterval:  30 * time.Minute,
		CleanupHourUTC: 2,
		RetentionDays:  180,
	}
}

func waitIdle(t *testing.T, s *Scheduler) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st := s.Status(); !st.Running {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scheduler did not return to idle")
}

func TestTriggerRunsPipelineAndReportsRunID(t *testing.T) {
	pipeline := &fakePipeline{}
	s := New(testConfig(), pipeline, &fakeMaintenance{}, &fakeHealth{}, testLogger())

	runID, err := s.Trigger(models.RunModeQuick)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if runID == "" {
		t.Fatal("expected a run ID")
	}

	waitIdle(t, s)
	if pipeline.runCount() != 1 {
		t.Errorf("expected 1 pipeline run, got %d", pipeline.runCount())
	}

	status := s.Status()
	if status.LastRun == nil {
		t.Fatal("expected last run report after completion")
	}
	if status.LastRun.RunID != runID {
		t.Errorf("last run ID = %q, want %q", status.LastRun.RunID, runID)
	}
	if status.LastRun.Mode != models.RunModeQuick {
		t.Errorf("last run mode = %q, want %q", status.LastRun.Mode, models.RunModeQuick)
	}
}

func TestTriggerRejectsOverlappingScrape(t *testing.T) {
	pipeline := &fakePipeline{block: make(chan struct{})}
	s := New(testConfig(), pipeline, &fakeMaintenance{}, &fakeHealth{}, testLogger())

	first, err := s.Trigger(models.RunModeFull)
	if err != nil {
		t.Fatalf("first Trigger: %v", err)
	}

	if _, err := s.Trigger(models.RunModeQuick); err == nil {
		t.Error("expected second trigger to fail while first is running")
	}

	status := s.Status()
	if !status.Running {
		t.Error("status should report a running scrape")
	}
	if status.ActiveRunID != first {
		t.Errorf("active run ID = %q, want %q", status.ActiveRunID, first)
	}

	close(pipeline.block)
	waitIdle(t, s)

	// The slot frees up once the run completes.
	if _, err := s.Trigger(models.RunModeQuick); err != nil {
		t.Errorf("trigger after completion: %v", err)
	}
	waitIdle(t, s)
}

func TestTriggerRejectsUnknownMode(t *testing.T) {
	s := New(testConfig(), &fakePipeline{}, &fakeMaintenance{}, &fakeHealth{}, testLogger())

	if _, err := s.Trigger(models.RunMode("hourly")); err == nil {
		t.Error("expected error for unknown run mode")
	}
}

func TestScheduledScrapeIsSkippedWhileBusy(t *testing.T) {
	pipeline := &fakePipeline{block: make(chan struct{})}
	s := New(testConfig(), pipeline, &fakeMaintenance{}, &fakeHealth{}, testLogger())

	if _, err := s.Trigger(models.RunModeFull); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	// A cron firing during the manual run must be dropped, not queued.
	s.scheduledScrape(jobQuickScrape, models.RunModeQuick)

	close(pipeline.block)
	waitIdle(t, s)

	if pipeline.runCount() != 1 {
		t.Errorf("expected 1 pipeline run, got %d", pipeline.runCount())
	}
}

func TestCleanupAppliesRetentionWindow(t *testing.T) {
	store := &fakeMaintenance{expired: 12, duplicates: 3}
	s := New(testConfig(), &fakePipeline{}, store, &fakeHealth{}, testLogger())

	s.runCleanup()

	store.mu.Lock()
	defer store.mu.Unlock()
	want := time.Now().UTC().AddDate(0, 0, -180)
	if diff := store.cutoff.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", store.cutoff, want)
	}
	if store.dupeCalls != 1 {
		t.Errorf("expected 1 duplicate sweep, got %d", store.dupeCalls)
	}
}

func TestStartRegistersConfiguredJobs(t *testing.T) {
	cfg := testConfig()
	s := New(cfg, &fakePipeline{}, &fakeMaintenance{}, &fakeHealth{}, testLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	status := s.Status()
	if len(status.Jobs) != 3 {
		t.Fatalf("expected 3 jobs without keepalive, got %d", len(status.Jobs))
	}

	byName := make(map[string]JobStatus, len(status.Jobs))
	for _, job := range status.Jobs {
		byName[job.Name] = job
	}
	if job, ok := byName[jobCleanup]; !ok {
		t.Error("cleanup job missing")
	} else if job.Schedule != "0 2 * * *" {
		t.Errorf("cleanup schedule = %q, want daily at 02:00", job.Schedule)
	}
	for _, name := range []string{jobFullScrape, jobQuickScrape, jobCleanup} {
		if job := byName[name]; job.NextRun == nil {
			t.Errorf("job %s has no next run", name)
		}
	}
}

func TestStartRegistersKeepaliveWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.KeepaliveURL = "http://localhost:9/health"
	s := New(cfg, &fakePipeline{}, &fakeMaintenance{}, &fakeHealth{}, testLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if got := len(s.Status().Jobs); got != 4 {
		t.Errorf("expected 4 jobs with keepalive, got %d", got)
	}
}

func TestKeepalivePingsConfiguredURL(t *testing.T) {
	hits := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.KeepaliveURL = server.URL
	s := New(cfg, &fakePipeline{}, &fakeMaintenance{}, &fakeHealth{}, testLogger())

	s.runKeepalive()

	select {
	case <-hits:
	default:
		t.Error("keepalive did not reach the configured URL")
	}
}

func TestStatusIncludesBlacklistedFeeds(t *testing.T) {
	health := &fakeHealth{entries: []models.BlacklistEntry{
		{SourceURL: "https://broken.example.com/feed", FailureClass: models.FailurePermanent},
	}}
	s := New(testConfig(), &fakePipeline{}, &fakeMaintenance{}, health, testLogger())

	status := s.Status()
	if len(status.BlacklistedFeeds) != 1 {
		t.Fatalf("expected 1 blacklisted feed, got %d", len(status.BlacklistedFeeds))
	}
	if status.BlacklistedFeeds[0].SourceURL != "https://broken.example.com/feed" {
		t.Errorf("unexpected blacklisted feed %q", status.BlacklistedFeeds[0].SourceURL)
	}
}
