package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSourcesYAML []byte

// Sources is the scrape source document: the fixed feed list plus the keyword
// lists driving the supplemental and fallback search phases.
type Sources struct {
	Feeds            []models.Source
	SearchKeywords   []string
	FallbackKeywords map[string][]string
}

type sourcesDocument struct {
	Sources []sourceEntry `yaml:"sources"`
	// SearchKeywords feed the keyword-supplement phase in declaration order.
	SearchKeywords []string `yaml:"search_keywords"`
	// FallbackKeywords map a category to the targeted searches issued when
	// that category produced no fresh articles in a run.
	FallbackKeywords map[string][]string `yaml:"fallback_keywords"`
}

type sourceEntry struct {
	Name           string   `yaml:"name"`
	URL            string   `yaml:"url"`
	Category       string   `yaml:"category"`
	Tags           []string `yaml:"tags"`
	Priority       int      `yaml:"priority"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// LoadSources reads the source document from path, or from the embedded
// default when path is empty. Entries missing a per-source timeout inherit
// fetchTimeout.
func LoadSources(path string, fetchTimeout time.Duration) (*Sources, error) {
	data := defaultSourcesYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading sources file %s: %w", path, err)
		}
		data = b
	}

	var doc sourcesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing sources document: %w", err)
	}

	if len(doc.Sources) == 0 {
		return nil, fmt.Errorf("sources document contains no sources")
	}

	feeds := make([]models.Source, 0, len(doc.Sources))
	for i, entry := range doc.Sources {
		if entry.Name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		if entry.URL == "" {
			return nil, fmt.Errorf("source %q: url is required", entry.Name)
		}
		u, err := url.Parse(entry.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("source %q: invalid url %q", entry.Name, entry.URL)
		}
		if entry.Priority < 1 {
			return nil, fmt.Errorf("source %q: priority must be >= 1", entry.Name)
		}

		timeout := fetchTimeout
		if entry.TimeoutSeconds > 0 {
			timeout = time.Duration(entry.TimeoutSeconds) * time.Second
		}

		feeds = append(feeds, models.Source{
			Name:         entry.Name,
			URL:          entry.URL,
			CategoryHint: entry.Category,
			Tags:         entry.Tags,
			Priority:     entry.Priority,
			Timeout:      timeout,
		})
	}

	return &Sources{
		Feeds:            feeds,
		SearchKeywords:   doc.SearchKeywords,
		FallbackKeywords: doc.FallbackKeywords,
	}, nil
}
