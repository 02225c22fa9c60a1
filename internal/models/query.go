package models

import (
	"strings"
	"time"
)

// SortOrder controls result ordering for article queries.
type SortOrder string

const (
	SortDescending SortOrder = "desc"
	SortAscending  SortOrder = "asc"
)

const (
	// DefaultPageSize is applied when a query omits a limit.
	DefaultPageSize = 20
	// MaxPageSize caps the per-page limit for article queries.
	MaxPageSize = 100
)

// ArticleQuery holds filter and pagination parameters for article retrieval.
type ArticleQuery struct {
	Search      string     `json:"search,omitempty"`
	Category    string     `json:"category,omitempty"`
	Subcategory string     `json:"subcategory,omitempty"`
	Tag         string     `json:"tag,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	Sort        SortOrder  `json:"sort_by,omitempty"`
	Page        int        `json:"page"`
	Limit       int        `json:"limit"`
}

// Normalize clamps pagination values into their allowed ranges and applies
// defaults for missing fields.
func (q *ArticleQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Sort != SortAscending {
		q.Sort = SortDescending
	}
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	q.Subcategory = strings.ToLower(strings.TrimSpace(q.Subcategory))
	q.Tag = strings.ToLower(strings.TrimSpace(q.Tag))
}

// Offset returns the SQL offset for the query's page.
func (q *ArticleQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// PaginatedArticles is the standard envelope for paged article responses.
type PaginatedArticles struct {
	Articles    []Article `json:"articles"`
	Total       int       `json:"total"`
	Page        int       `json:"page"`
	Limit       int       `json:"limit"`
	TotalPages  int       `json:"total_pages"`
	HasNext     bool      `json:"has_next"`
	HasPrevious bool      `json:"has_previous"`
}

// NewPaginatedArticles computes the pagination envelope for a result page.
func NewPaginatedArticles(articles []Article, total int, query ArticleQuery) PaginatedArticles {
	totalPages := 0
	if query.Limit > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}
	return PaginatedArticles{
		Articles:    articles,
		Total:       total,
		Page:        query.Page,
		Limit:       query.Limit,
		TotalPages:  totalPages,
		HasNext:     query.Page < totalPages,
		HasPrevious: query.Page > 1,
	}
}
