package config

import (
	"os"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("expected default port %q, got %q", defaultPort, cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout %v, got %v", defaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != defaultWriteTimeout {
		t.Errorf("expected default write timeout %v, got %v", defaultWriteTimeout, cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout %v, got %v", defaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != slog.LevelInfo {
		t.Errorf("expected default log level %v, got %v", slog.LevelInfo, cfg.Logging.Level)
	}
	if cfg.Logging.Format != defaultLogFormat {
		t.Errorf("expected default log format %q, got %q", defaultLogFormat, cfg.Logging.Format)
	}
	if cfg.Scrape.MaxConcurrency != defaultMaxConcurrency {
		t.Errorf("expected default max concurrency %d, got %d", defaultMaxConcurrency, cfg.Scrape.MaxConcurrency)
	}
	if cfg.Scrape.RequestsPerMinute != defaultRequestsPerMinute {
		t.Errorf("expected default rate limit %d, got %d", defaultRequestsPerMinute, cfg.Scrape.RequestsPerMinute)
	}
	if cfg.Scrape.FetchTimeout != defaultFetchTimeout {
		t.Errorf("expected default fetch timeout %v, got %v", defaultFetchTimeout, cfg.Scrape.FetchTimeout)
	}
	if cfg.Scrape.SeedWindow != defaultSeedWindowDays*24*time.Hour {
		t.Errorf("expected default seed window %v, got %v", defaultSeedWindowDays*24*time.Hour, cfg.Scrape.SeedWindow)
	}
	if !cfg.Dedup.Enabled {
		t.Error("deduplication should be enabled by default")
	}
	if cfg.Dedup.TitleThreshold != defaultTitleThreshold {
		t.Errorf("expected default title threshold %v, got %v", defaultTitleThreshold, cfg.Dedup.TitleThreshold)
	}
	if cfg.Dedup.SummaryThreshold != defaultSummaryThreshold {
		t.Errorf("expected default summary threshold %v, got %v", defaultSummaryThreshold, cfg.Dedup.SummaryThreshold)
	}
	if cfg.Relevance.Enabled {
		t.Error("relevance filter should be disabled by default")
	}
	if cfg.Jobs.ScrapeInterval != defaultScrapeInterval {
		t.Errorf("expected default scrape interval %v, got %v", defaultScrapeInterval, cfg.Jobs.ScrapeInterval)
	}
	if cfg.Jobs.RetentionDays != defaultRetentionDays {
		t.Errorf("expected default retention %d days, got %d", defaultRetentionDays, cfg.Jobs.RetentionDays)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	clearConfigEnv(t)

	overrides := map[string]string{
		"SERVER_PORT":                     "9090",
		"SERVER_READ_TIMEOUT_SECONDS":     "30",
		"SERVER_WRITE_TIMEOUT_SECONDS":    "45",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS": "15",
		"LOG_LEVEL":                       "debug",
		"LOG_FORMAT":                      "text",
	}
	for key, value := range overrides {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != overrides["SERVER_PORT"] {
		t.Errorf("expected overridden port %q, got %q", overrides["SERVER_PORT"], cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected read timeout %v, got %v", 30*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 45*time.Second {
		t.Errorf("expected write timeout %v, got %v", 45*time.Second, cfg.Server.WriteTimeout)
	}
	if cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("expected shutdown timeout %v, got %v", 15*time.Second, cfg.Server.ShutdownTimeout)
	}
	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("expected log level %v, got %v", slog.LevelDebug, cfg.Logging.Level)
	}
	if cfg.Logging.Format != overrides["LOG_FORMAT"] {
		t.Errorf("expected log format %q, got %q", overrides["LOG_FORMAT"], cfg.Logging.Format)
	}
}

func TestLoadCloudRunPortWins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != "8081" {
		t.Errorf("expected PORT to take precedence, got %q", cfg.Server.Port)
	}
}

func TestLoadScrapeOverrides(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("SCRAPE_MAX_CONCURRENCY", "10")
	t.Setenv("SEARCH_MAX_CONCURRENCY", "2")
	t.Setenv("SEARCH_RATE_PER_SECOND", "0.5")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "20")
	t.Setenv("FETCH_MAX_RETRIES", "0")
	t.Setenv("RUN_TIMEOUT_MINUTES", "45")
	t.Setenv("FINGERPRINT_SEED_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Scrape.MaxConcurrency != 10 {
		t.Errorf("MaxConcurrency = %d, want 10", cfg.Scrape.MaxConcurrency)
	}
	if cfg.Scrape.SearchConcurrency != 2 {
		t.Errorf("SearchConcurrency = %d, want 2", cfg.Scrape.SearchConcurrency)
	}
	if cfg.Scrape.SearchRPS != 0.5 {
		t.Errorf("SearchRPS = %v, want 0.5", cfg.Scrape.SearchRPS)
	}
	if cfg.Scrape.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want 30", cfg.Scrape.RequestsPerMinute)
	}
	if cfg.Scrape.FetchTimeout != 20*time.Second {
		t.Errorf("FetchTimeout = %v, want 20s", cfg.Scrape.FetchTimeout)
	}
	if cfg.Scrape.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.Scrape.MaxRetries)
	}
	if cfg.Scrape.RunTimeout != 45*time.Minute {
		t.Errorf("RunTimeout = %v, want 45m", cfg.Scrape.RunTimeout)
	}
	if cfg.Scrape.SeedWindow != 30*24*time.Hour {
		t.Errorf("SeedWindow = %v, want 720h", cfg.Scrape.SeedWindow)
	}
}

func TestLoadDedupAndRelevanceOverrides(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("ENABLE_DEDUPLICATION", "false")
	t.Setenv("DEDUP_TITLE_THRESHOLD", "0.7")
	t.Setenv("DEDUP_SUMMARY_THRESHOLD", "0.95")
	t.Setenv("ENABLE_RELEVANCE_FILTER", "true")
	t.Setenv("RELEVANCE_MIN_SCORE", "0.2")
	t.Setenv("RELEVANCE_MIN_RAW_SCORE", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Dedup.Enabled {
		t.Error("expected deduplication disabled")
	}
	if cfg.Dedup.TitleThreshold != 0.7 {
		t.Errorf("TitleThreshold = %v, want 0.7", cfg.Dedup.TitleThreshold)
	}
	if cfg.Dedup.SummaryThreshold != 0.95 {
		t.Errorf("SummaryThreshold = %v, want 0.95", cfg.Dedup.SummaryThreshold)
	}
	if !cfg.Relevance.Enabled {
		t.Error("expected relevance filter enabled")
	}
	if cfg.Relevance.MinScore != 0.2 {
		t.Errorf("MinScore = %v, want 0.2", cfg.Relevance.MinScore)
	}
	if cfg.Relevance.MinRawScore != 2.5 {
		t.Errorf("MinRawScore = %v, want 2.5", cfg.Relevance.MinRawScore)
	}
}

func TestLoadJobOverrides(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("SCRAPE_INTERVAL_HOURS", "6")
	t.Setenv("QUICK_SCRAPE_INTERVAL_MINUTES", "15")
	t.Setenv("STARTUP_SCRAPE_DELAY_MINUTES", "0")
	t.Setenv("CLEANUP_HOUR_UTC", "23")
	t.Setenv("ARTICLE_RETENTION_DAYS", "90")
	t.Setenv("KEEPALIVE_URL", "https://api.healthwire.org/health")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Jobs.ScrapeInterval != 6*time.Hour {
		t.Errorf("ScrapeInterval = %v, want 6h", cfg.Jobs.ScrapeInterval)
	}
	if cfg.Jobs.QuickInterval != 15*time.Minute {
		t.Errorf("QuickInterval = %v, want 15m", cfg.Jobs.QuickInterval)
	}
	if cfg.Jobs.StartupDelay != 0 {
		t.Errorf("StartupDelay = %v, want 0", cfg.Jobs.StartupDelay)
	}
	if cfg.Jobs.CleanupHourUTC != 23 {
		t.Errorf("CleanupHourUTC = %d, want 23", cfg.Jobs.CleanupHourUTC)
	}
	if cfg.Jobs.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", cfg.Jobs.RetentionDays)
	}
	if cfg.Jobs.KeepaliveURL != "https://api.healthwire.org/health" {
		t.Errorf("KeepaliveURL = %q, want the configured URL", cfg.Jobs.KeepaliveURL)
	}
}

func TestLoadPartialOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("expected overridden read timeout %v, got %v", 5*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != defaultWriteTimeout {
		t.Errorf("expected default write timeout %v, got %v", defaultWriteTimeout, cfg.Server.WriteTimeout)
	}
}

func TestLoadWithInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_READ_TIMEOUT_SECONDS":     "-1",
		"SERVER_WRITE_TIMEOUT_SECONDS":    "abc",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS": "3.5",
		"LOG_LEVEL":                       "verbose",
		"LOG_FORMAT":                      "xml",
		"SCRAPE_MAX_CONCURRENCY":          "0",
		"SEARCH_RATE_PER_SECOND":          "-1",
		"RATE_LIMIT_PER_MINUTE":           "none",
		"FETCH_MAX_RETRIES":               "-2",
		"ENABLE_DEDUPLICATION":            "maybe",
		"DEDUP_TITLE_THRESHOLD":           "1.5",
		"DEDUP_SUMMARY_THRESHOLD":         "0",
		"RELEVANCE_MIN_SCORE":             "0",
		"CLEANUP_HOUR_UTC":                "24",
		"ARTICLE_RETENTION_DAYS":          "0",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			t.Setenv(key, value)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error when %s=%q", key, value)
			}
		})
	}
}

func TestParseLogLevelAliases(t *testing.T) {
	tests := map[string]slog.Level{
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
	}

	for input, expected := range tests {
		level, err := parseLogLevel(input)
		if err != nil {
			t.Fatalf("parseLogLevel(%q) returned error: %v", input, err)
		}

		if level != expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, level, expected)
		}
	}
}

func TestParseSecondsRejectsInvalidInput(t *testing.T) {
	cases := []string{"-1", "abc"}

	for _, input := range cases {
		if _, err := parseSeconds(input); err == nil {
			t.Fatalf("expected error for input %q", input)
		}
	}
}

func TestParseRatioBounds(t *testing.T) {
	valid := []string{"0.5", "1", "0.001"}
	for _, input := range valid {
		if _, err := parseRatio(input); err != nil {
			t.Errorf("parseRatio(%q) returned error: %v", input, err)
		}
	}

	invalid := []string{"0", "-0.5", "1.01", "high"}
	for _, input := range invalid {
		if _, err := parseRatio(input); err == nil {
			t.Errorf("expected error for parseRatio(%q)", input)
		}
	}
}

func TestLoadDoesNotPersistEnvBetweenRuns(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("SERVER_READ_TIMEOUT_SECONDS", "5")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := os.Unsetenv("SERVER_READ_TIMEOUT_SECONDS"); err != nil {
		t.Fatalf("failed to unset env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.ReadTimeout != defaultReadTimeout {
		t.Errorf("expected default read timeout after reset, got %v", cfg.Server.ReadTimeout)
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT",
		"SERVER_PORT",
		"SERVER_READ_TIMEOUT_SECONDS",
		"SERVER_WRITE_TIMEOUT_SECONDS",
		"SERVER_SHUTDOWN_TIMEOUT_SECONDS",
		"LOG_LEVEL",
		"LOG_FORMAT",
		"SOURCES_FILE",
		"TAXONOMY_FILE",
		"SCRAPE_MAX_CONCURRENCY",
		"SEARCH_MAX_CONCURRENCY",
		"SEARCH_RATE_PER_SECOND",
		"RATE_LIMIT_PER_MINUTE",
		"FETCH_TIMEOUT_SECONDS",
		"FETCH_MAX_RETRIES",
		"RUN_TIMEOUT_MINUTES",
		"FINGERPRINT_SEED_DAYS",
		"ENABLE_DEDUPLICATION",
		"DEDUP_TITLE_THRESHOLD",
		"DEDUP_SUMMARY_THRESHOLD",
		"ENABLE_RELEVANCE_FILTER",
		"RELEVANCE_MIN_SCORE",
		"RELEVANCE_MIN_RAW_SCORE",
		"SCRAPE_INTERVAL_HOURS",
		"QUICK_SCRAPE_INTERVAL_MINUTES",
		"STARTUP_SCRAPE_DELAY_MINUTES",
		"CLEANUP_HOUR_UTC",
		"ARTICLE_RETENTION_DAYS",
		"KEEPALIVE_URL",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
	}

	for _, key := range keys {
		t.Setenv(key, "")
	}
}
