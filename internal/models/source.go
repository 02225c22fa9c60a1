package models

import (
	"net/url"
	"strings"
	"time"
)

// Source is a configured external feed endpoint. Sources are loaded once at
// startup and identified by URL; Priority 1 is the highest tier.
type Source struct {
	Name         string        `json:"name"`
	URL          string        `json:"url"`
	CategoryHint string        `json:"category,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	Priority     int           `json:"priority"`
	Timeout      time.Duration `json:"timeout,omitempty"`
}

// Domain returns the hostname component of the source URL, used as the
// rate-limiting key. Falls back to the raw URL when parsing fails.
func (s *Source) Domain() string {
	u, err := url.Parse(s.URL)
	if err != nil || u.Hostname() == "" {
		return s.URL
	}
	return strings.ToLower(u.Hostname())
}

// DisplayName returns a human-readable identifier for the source.
func (s *Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Domain()
}
