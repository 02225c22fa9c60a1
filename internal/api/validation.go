package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-development01/metabolical-backend/internal/models"
)

// ValidationError represents a rejected request parameter.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// dateLayouts are the accepted formats for start_date/end_date parameters.
var dateLayouts = []string{"2006-01-02", time.RFC3339}

// parseArticleQuery extracts the listing parameters shared by the search,
// category, and tag endpoints. Values are validated here; Normalize later
// applies defaults and clamps.
func parseArticleQuery(r *http.Request) (models.ArticleQuery, *ValidationError) {
	values := r.URL.Query()
	query := models.ArticleQuery{
		Search:      strings.TrimSpace(values.Get("q")),
		Subcategory: strings.TrimSpace(values.Get("subcategory")),
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return query, &ValidationError{Field: "page", Message: "must be a positive integer"}
		}
		query.Page = page
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > models.MaxPageSize {
			return query, &ValidationError{
				Field:   "limit",
				Message: fmt.Sprintf("must be between 1 and %d", models.MaxPageSize),
			}
		}
		query.Limit = limit
	}

	switch values.Get("sort_by") {
	case "", "newest", "desc":
		query.Sort = models.SortDescending
	case "oldest", "asc":
		query.Sort = models.SortAscending
	default:
		return query, &ValidationError{Field: "sort_by", Message: "must be one of newest, oldest"}
	}

	if raw := values.Get("start_date"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			return query, &ValidationError{Field: "start_date", Message: "must be YYYY-MM-DD or RFC 3339"}
		}
		query.StartDate = &t
	}
	if raw := values.Get("end_date"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			return query, &ValidationError{Field: "end_date", Message: "must be YYYY-MM-DD or RFC 3339"}
		}
		query.EndDate = &t
	}
	if query.StartDate != nil && query.EndDate != nil && query.StartDate.After(*query.EndDate) {
		return query, &ValidationError{Field: "start_date", Message: "must not be after end_date"}
	}

	return query, nil
}

func parseDateParam(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// writeValidationError sends a 400 with a JSON error body.
func writeValidationError(w http.ResponseWriter, verr *ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{
		"error": verr.Message,
		"field": verr.Field,
	})
}

// pathSuffix returns the path element after the given prefix, URL-decoded
// by the mux. An empty result means the path carried no value.
func pathSuffix(path, prefix string) string {
	suffix := strings.TrimPrefix(path, prefix)
	suffix = strings.Trim(suffix, "/")
	return suffix
}
