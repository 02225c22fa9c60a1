package models

import "time"

// RunMode selects the parameter set for an ingestion run. Quick runs cover
// only high-priority sources with small caps; full runs cover everything and
// finish with a corpus-wide duplicate sweep.
type RunMode string

const (
	RunModeQuick RunMode = "quick"
	RunModeFull  RunMode = "full"
)

// Valid reports whether the mode is one of the supported run modes.
func (m RunMode) Valid() bool {
	return m == RunModeQuick || m == RunModeFull
}

// RunStats accumulates counters over one orchestrator run.
type RunStats struct {
	Scraped            int `json:"scraped"`
	Saved              int `json:"saved"`
	Duplicates         int `json:"duplicates"`
	Errors             int `json:"errors"`
	ValidationFailures int `json:"validation_failures"`
	SourcesSkipped     int `json:"sources_skipped"`
}

// RunReport is the per-run summary surfaced through logs and the status API.
type RunReport struct {
	RunID       string    `json:"run_id"`
	Mode        RunMode   `json:"mode"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	Stats       RunStats  `json:"stats"`
}

// Duration returns the wall-clock length of the run.
func (r *RunReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
