package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/nexus-development01/metabolical-backend/internal/classify"
	"github.com/nexus-development01/metabolical-backend/internal/database"
	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// ArticleReader is the slice of the article store the read API uses.
type ArticleReader interface {
	Search(ctx context.Context, query models.ArticleQuery) (*models.PaginatedArticles, error)
	Stats(ctx context.Context) (*models.StoreStats, error)
	Tags(ctx context.Context) ([]string, error)
}

// ArticleHandler serves the public read endpoints.
type ArticleHandler struct {
	articles  ArticleReader
	taxonomy  *classify.Taxonomy
	db        *sql.DB
	logger    *slog.Logger
	startTime time.Time
}

// NewArticleHandler creates the read-side handler set.
func NewArticleHandler(articles ArticleReader, taxonomy *classify.Taxonomy, db *sql.DB, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		articles:  articles,
		taxonomy:  taxonomy,
		db:        db,
		logger:    logger,
		startTime: time.Now(),
	}
}

// SearchHandler handles GET /api/v1/search
func (h *ArticleHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query, verr := parseArticleQuery(r)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}
	query.Category = strings.TrimSpace(r.URL.Query().Get("category"))
	query.Tag = strings.TrimSpace(r.URL.Query().Get("tag"))
	query.Normalize()

	h.respondWithPage(w, r, query)
}

// CategoryHandler handles GET /api/v1/category/{category}. An optional
// second path segment or a subcategory query parameter narrows the result.
func (h *ArticleHandler) CategoryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	suffix := pathSuffix(r.URL.Path, categoryPathPrefix(r.URL.Path))
	if suffix == "" {
		http.Error(w, "Category required", http.StatusBadRequest)
		return
	}

	query, verr := parseArticleQuery(r)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}

	parts := strings.SplitN(suffix, "/", 2)
	query.Category = parts[0]
	if len(parts) == 2 && parts[1] != "" {
		query.Subcategory = parts[1]
	}
	query.Normalize()

	if !h.knownCategory(query.Category) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown category", "category": query.Category})
		return
	}

	h.respondWithPage(w, r, query)
}

// TagHandler handles GET /api/v1/tag/{tag}
func (h *ArticleHandler) TagHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tag := pathSuffix(r.URL.Path, tagPathPrefix(r.URL.Path))
	if tag == "" {
		http.Error(w, "Tag required", http.StatusBadRequest)
		return
	}

	query, verr := parseArticleQuery(r)
	if verr != nil {
		writeValidationError(w, verr)
		return
	}
	query.Tag = tag
	query.Normalize()

	h.respondWithPage(w, r, query)
}

// CategoriesHandler handles GET /api/v1/categories
func (h *ArticleHandler) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	type categoryEntry struct {
		Name          string   `json:"name"`
		Subcategories []string `json:"subcategories"`
	}
	entries := make([]categoryEntry, 0, len(h.taxonomy.Categories))
	for _, category := range h.taxonomy.Categories {
		entries = append(entries, categoryEntry{
			Name:          category.Name,
			Subcategories: h.taxonomy.SubcategoryNames(category.Name),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"categories": entries}); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// TagsHandler handles GET /api/v1/tags
func (h *ArticleHandler) TagsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tags, err := h.articles.Tags(r.Context())
	if err != nil {
		h.logger.Error("failed to list tags", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]any{"tags": tags, "count": len(tags)}); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// StatsResponse is the payload of the stats endpoint.
type StatsResponse struct {
	TotalArticles int            `json:"total_articles"`
	ByCategory    map[string]int `json:"by_category"`
	OldestArticle *time.Time     `json:"oldest_article,omitempty"`
	NewestArticle *time.Time     `json:"newest_article,omitempty"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds int64          `json:"uptime_seconds"`
}

// StatsHandler handles GET /api/v1/stats
func (h *ArticleHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.articles.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	uptime := time.Since(h.startTime)
	response := StatsResponse{
		TotalArticles: stats.TotalArticles,
		ByCategory:    stats.ByCategory,
		OldestArticle: stats.OldestArticle,
		NewestArticle: stats.NewestArticle,
		Uptime:        formatUptime(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// HealthHandler handles GET and HEAD /health
func (h *ArticleHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ok"
	dbStatus := "connected"
	code := http.StatusOK
	if err := database.HealthCheck(r.Context(), h.db); err != nil {
		h.logger.Warn("health check database ping failed", "error", err)
		status = "degraded"
		dbStatus = "unreachable"
		code = http.StatusServiceUnavailable
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":   status,
		"database": dbStatus,
		"uptime":   formatUptime(time.Since(h.startTime)),
	})
}

// respondWithPage runs the query and writes the pagination envelope.
func (h *ArticleHandler) respondWithPage(w http.ResponseWriter, r *http.Request, query models.ArticleQuery) {
	page, err := h.articles.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("article query failed", "error", err,
			"category", query.Category, "tag", query.Tag, "search", query.Search)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(page); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// knownCategory reports whether the taxonomy declares the category.
func (h *ArticleHandler) knownCategory(name string) bool {
	for _, category := range h.taxonomy.Categories {
		if category.Name == name {
			return true
		}
	}
	return false
}

// categoryPathPrefix returns the mount point the request came through,
// since category routes are exposed both bare and under /api/v1.
func categoryPathPrefix(path string) string {
	if strings.HasPrefix(path, "/api/v1/category/") {
		return "/api/v1/category/"
	}
	return "/category/"
}

func tagPathPrefix(path string) string {
	if strings.HasPrefix(path, "/api/v1/tag/") {
		return "/api/v1/tag/"
	}
	return "/tag/"
}

// formatUptime renders a duration as HH:MM:SS matching the status pages.
func formatUptime(uptime time.Duration) string {
	seconds := int64(uptime.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}
