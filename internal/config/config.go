package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Scrape    ScrapeConfig
	Dedup     DedupConfig
	Relevance RelevanceConfig
	Jobs      JobsConfig
	OpenAI    OpenAIConfig
}

// ServerConfig holds HTTP server runtime parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// ScrapeConfig holds fetch-pipeline parameters shared by all run modes.
type ScrapeConfig struct {
	SourcesFile       string        // optional override for the embedded source list
	TaxonomyFile      string        // optional override for the embedded taxonomy
	MaxConcurrency    int           // parallel source fetches per tier
	SearchConcurrency int           // parallel keyword-search fetches
	SearchRPS         float64       // token-bucket pacing for search feeds
	RequestsPerMinute int           // per-domain sliding-window limit
	FetchTimeout      time.Duration // per-request HTTP timeout
	MaxRetries        int           // transient-failure retry attempts
	RunTimeout        time.Duration // bounds the supplement/fallback phases
	SeedWindow        time.Duration // history window for fingerprint seeding
}

// DedupConfig holds duplicate-detection thresholds.
type DedupConfig struct {
	Enabled          bool
	TitleThreshold   float64
	SummaryThreshold float64
}

// RelevanceConfig controls the optional domain-relevance gate.
type RelevanceConfig struct {
	Enabled     bool
	MinScore    float64 // normalized-score acceptance floor
	MinRawScore float64 // raw weighted-score acceptance floor
}

// JobsConfig holds background job timing.
type JobsConfig struct {
	ScrapeInterval time.Duration // full scrape cadence
	QuickInterval  time.Duration // quick scrape cadence
	StartupDelay   time.Duration // delay before the first scrape after boot
	CleanupHourUTC int           // daily retention cleanup hour (UTC)
	RetentionDays  int           // articles older than this are deleted
	KeepaliveURL   string        // self-ping target; empty disables keepalive
}

// OpenAIConfig configures the optional AI summary writer.
type OpenAIConfig struct {
	APIKey string
	Model  string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	defaultLogFormat = "json"

	defaultMaxConcurrency    = 5
	defaultSearchConcurrency = 3
	defaultSearchRPS         = 1.0
	defaultRequestsPerMinute = 15
	defaultFetchTimeout      = 15 * time.Second
	defaultMaxRetries        = 3
	defaultRunTimeout        = 30 * time.Minute
	defaultSeedWindowDays    = 90

	defaultTitleThreshold   = 0.85
	defaultSummaryThreshold = 0.90
	defaultRelevanceMin     = 0.1
	defaultRelevanceRawMin  = 1.0

	defaultScrapeInterval = 4 * time.Hour
	defaultQuickInterval  = 30 * time.Minute
	defaultStartupDelay   = 2 * time.Minute
	defaultCleanupHourUTC = 2
	defaultRetentionDays  = 180

	defaultOpenAIModel = "gpt-4o-mini"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	// Cloud Run sets PORT, but allow SERVER_PORT override for local dev
	port := getEnv("PORT", "")
	if port == "" {
		port = getEnv("SERVER_PORT", defaultPort)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            port,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Scrape: ScrapeConfig{
			SourcesFile:       os.Getenv("SOURCES_FILE"),
			TaxonomyFile:      os.Getenv("TAXONOMY_FILE"),
			MaxConcurrency:    defaultMaxConcurrency,
			SearchConcurrency: defaultSearchConcurrency,
			SearchRPS:         defaultSearchRPS,
			RequestsPerMinute: defaultRequestsPerMinute,
			FetchTimeout:      defaultFetchTimeout,
			MaxRetries:        defaultMaxRetries,
			RunTimeout:        defaultRunTimeout,
			SeedWindow:        defaultSeedWindowDays * 24 * time.Hour,
		},
		Dedup: DedupConfig{
			Enabled:          true,
			TitleThreshold:   defaultTitleThreshold,
			SummaryThreshold: defaultSummaryThreshold,
		},
		Relevance: RelevanceConfig{
			Enabled:     false,
			MinScore:    defaultRelevanceMin,
			MinRawScore: defaultRelevanceRawMin,
		},
		Jobs: JobsConfig{
			ScrapeInterval: defaultScrapeInterval,
			QuickInterval:  defaultQuickInterval,
			StartupDelay:   defaultStartupDelay,
			CleanupHourUTC: defaultCleanupHourUTC,
			RetentionDays:  defaultRetentionDays,
			KeepaliveURL:   os.Getenv("KEEPALIVE_URL"),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnv("OPENAI_MODEL", defaultOpenAIModel),
		},
	}

	if v := os.Getenv("SERVER_READ_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_READ_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ReadTimeout = d
	}

	if v := os.Getenv("SERVER_WRITE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_WRITE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.WriteTimeout = d
	}

	if v := os.Getenv("SERVER_SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Server.ShutdownTimeout = d
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("SCRAPE_MAX_CONCURRENCY"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCRAPE_MAX_CONCURRENCY: %w", err)
		}
		cfg.Scrape.MaxConcurrency = n
	}

	if v := os.Getenv("SEARCH_MAX_CONCURRENCY"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SEARCH_MAX_CONCURRENCY: %w", err)
		}
		cfg.Scrape.SearchConcurrency = n
	}

	if v := os.Getenv("SEARCH_RATE_PER_SECOND"); v != "" {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SEARCH_RATE_PER_SECOND: %w", err)
		}
		cfg.Scrape.SearchRPS = f
	}

	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.Scrape.RequestsPerMinute = n
	}

	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FETCH_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Scrape.FetchTimeout = d
	}

	if v := os.Getenv("FETCH_MAX_RETRIES"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FETCH_MAX_RETRIES: %w", err)
		}
		cfg.Scrape.MaxRetries = n
	}

	if v := os.Getenv("RUN_TIMEOUT_MINUTES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RUN_TIMEOUT_MINUTES: %w", err)
		}
		cfg.Scrape.RunTimeout = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("FINGERPRINT_SEED_DAYS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid FINGERPRINT_SEED_DAYS: %w", err)
		}
		cfg.Scrape.SeedWindow = time.Duration(n) * 24 * time.Hour
	}

	if v := os.Getenv("ENABLE_DEDUPLICATION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ENABLE_DEDUPLICATION: %w", err)
		}
		cfg.Dedup.Enabled = b
	}

	if v := os.Getenv("DEDUP_TITLE_THRESHOLD"); v != "" {
		f, err := parseRatio(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEDUP_TITLE_THRESHOLD: %w", err)
		}
		cfg.Dedup.TitleThreshold = f
	}

	if v := os.Getenv("DEDUP_SUMMARY_THRESHOLD"); v != "" {
		f, err := parseRatio(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DEDUP_SUMMARY_THRESHOLD: %w", err)
		}
		cfg.Dedup.SummaryThreshold = f
	}

	if v := os.Getenv("ENABLE_RELEVANCE_FILTER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ENABLE_RELEVANCE_FILTER: %w", err)
		}
		cfg.Relevance.Enabled = b
	}

	if v := os.Getenv("RELEVANCE_MIN_SCORE"); v != "" {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELEVANCE_MIN_SCORE: %w", err)
		}
		cfg.Relevance.MinScore = f
	}

	if v := os.Getenv("RELEVANCE_MIN_RAW_SCORE"); v != "" {
		f, err := parsePositiveFloat(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELEVANCE_MIN_RAW_SCORE: %w", err)
		}
		cfg.Relevance.MinRawScore = f
	}

	if v := os.Getenv("SCRAPE_INTERVAL_HOURS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCRAPE_INTERVAL_HOURS: %w", err)
		}
		cfg.Jobs.ScrapeInterval = time.Duration(n) * time.Hour
	}

	if v := os.Getenv("QUICK_SCRAPE_INTERVAL_MINUTES"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid QUICK_SCRAPE_INTERVAL_MINUTES: %w", err)
		}
		cfg.Jobs.QuickInterval = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("STARTUP_SCRAPE_DELAY_MINUTES"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid STARTUP_SCRAPE_DELAY_MINUTES: %w", err)
		}
		cfg.Jobs.StartupDelay = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("CLEANUP_HOUR_UTC"); v != "" {
		n, err := parseNonNegativeInt(v)
		if err != nil || n > 23 {
			return Config{}, fmt.Errorf("invalid CLEANUP_HOUR_UTC: must be 0-23")
		}
		cfg.Jobs.CleanupHourUTC = n
	}

	if v := os.Getenv("ARTICLE_RETENTION_DAYS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ARTICLE_RETENTION_DAYS: %w", err)
		}
		cfg.Jobs.RetentionDays = n
	}

	return cfg, nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func parseNonNegativeInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

func parsePositiveFloat(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("must be a positive number")
	}
	return f, nil
}

func parseRatio(raw string) (float64, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 || f > 1 {
		return 0, fmt.Errorf("must be a number in (0, 1]")
	}
	return f, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
