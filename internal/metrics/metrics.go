package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Article outcome labels recorded by the pipeline.
const (
	OutcomeSaved            = "saved"
	OutcomeDuplicate        = "duplicate"
	OutcomeError            = "error"
	OutcomeValidationFailed = "validation_failed"
)

// Collector exposes Prometheus metrics for inbound HTTP requests and
// scrape pipeline activity.
type Collector struct {
	registry         *prometheus.Registry
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	runsTotal        *prometheus.CounterVec
	articlesTotal    *prometheus.CounterVec
	fetchDuration    *prometheus.HistogramVec
	blacklistedFeeds prometheus.Gauge
	lastRun          *prometheus.GaugeVec
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metabolical",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metabolical",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metabolical",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Total number of scrape runs by mode and final status.",
	}, []string{"mode", "status"})

	articlesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metabolical",
		Subsystem: "pipeline",
		Name:      "articles_total",
		Help:      "Articles processed by the pipeline, labelled by outcome.",
	}, []string{"outcome"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metabolical",
		Subsystem: "pipeline",
		Name:      "fetch_duration_seconds",
		Help:      "Latency distribution for outbound feed fetches.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"})

	blacklistedFeeds := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "metabolical",
		Subsystem: "pipeline",
		Name:      "blacklisted_feeds",
		Help:      "Number of feeds currently held out of rotation.",
	})

	lastRun := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "metabolical",
		Subsystem: "pipeline",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed run per mode.",
	}, []string{"mode"})

	collectors := []prometheus.Collector{
		requestDuration,
		requestTotal,
		runsTotal,
		articlesTotal,
		fetchDuration,
		blacklistedFeeds,
		lastRun,
	}

	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	collector := &Collector{
		registry:         registry,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		runsTotal:        runsTotal,
		articlesTotal:    articlesTotal,
		fetchDuration:    fetchDuration,
		blacklistedFeeds: blacklistedFeeds,
		lastRun:          lastRun,
	}

	return collector, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// ObserveRun records a completed scrape run with its final status.
func (c *Collector) ObserveRun(mode, status string, completedAt time.Time) {
	c.runsTotal.WithLabelValues(mode, status).Inc()
	c.lastRun.WithLabelValues(mode).Set(float64(completedAt.Unix()))
}

// AddArticles increments the article counter for the given outcome.
func (c *Collector) AddArticles(outcome string, n int) {
	if n <= 0 {
		return
	}
	c.articlesTotal.WithLabelValues(outcome).Add(float64(n))
}

// ObserveFetch records the duration of a single feed fetch.
func (c *Collector) ObserveFetch(outcome string, duration time.Duration) {
	c.fetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// SetBlacklistedFeeds records the current number of held-out feeds.
func (c *Collector) SetBlacklistedFeeds(n int) {
	c.blacklistedFeeds.Set(float64(n))
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
