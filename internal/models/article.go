package models

import (
	"time"
)

// PlaceholderTitle is stored when a feed entry arrives without a usable title.
const PlaceholderTitle = "Untitled Article"

// RawArticle is a parsed feed entry before filtering, classification and
// persistence. It is transient: only entries that survive validation,
// relevance and deduplication become Articles.
type RawArticle struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary,omitempty"`
	Author      string    `json:"author,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Article is the persisted unit of the pipeline. URL is globally unique in
// the store; rows are never mutated after insert except by maintenance jobs.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory"`
	Tags        []string  `json:"tags,omitempty"`
	Author      string    `json:"author,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// URLTitle is a minimal projection used to seed duplicate fingerprints from
// the store's recent history.
type URLTitle struct {
	URL   string
	Title string
}

// StoreStats summarizes the persisted article corpus.
type StoreStats struct {
	TotalArticles int            `json:"total_articles"`
	ByCategory    map[string]int `json:"by_category"`
	OldestArticle *time.Time     `json:"oldest_article,omitempty"`
	NewestArticle *time.Time     `json:"newest_article,omitempty"`
}
