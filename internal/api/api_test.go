package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/nexus-development01/metabolical-backend/internal/auth"
	"github.com/nexus-development01/metabolical-backend/internal/classify"
	"github.com/nexus-development01/metabolical-backend/internal/models"
	"github.com/nexus-development01/metabolical-backend/internal/scheduler"
)

type fakeArticleReader struct {
	lastQuery models.ArticleQuery
	page      *models.PaginatedArticles
	stats     *models.StoreStats
	tags      []string
	err       error
}

func (f *fakeArticleReader) Search(ctx context.Context, query models.ArticleQuery) (*models.PaginatedArticles, error) {
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	if f.page != nil {
		return f.page, nil
	}
	page := models.NewPaginatedArticles(nil, 0, query)
	return &page, nil
}

func (f *fakeArticleReader) Stats(ctx context.Context) (*models.StoreStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.stats != nil {
		return f.stats, nil
	}
	return &models.StoreStats{ByCategory: map[string]int{}}, nil
}

func (f *fakeArticleReader) Tags(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tags, nil
}

type fakeSchedulerControl struct {
	mode   models.RunMode
	runID  string
	err    error
	status scheduler.Status
}

func (f *fakeSchedulerControl) Trigger(mode models.RunMode) (string, error) {
	f.mode = mode
	if f.err != nil {
		return "", f.err
	}
	if f.runID == "" {
		return "run-1", nil
	}
	return f.runID, nil
}

func (f *fakeSchedulerControl) Status() scheduler.Status {
	return f.status
}

func testAuthConfig(t *testing.T) auth.Config {
	t.Helper()
	hash, err := auth.HashPassword("letmein")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return auth.Config{
		JWTSecret:     "test-secret",
		PasswordHash:  hash,
		TokenDuration: time.Hour,
	}
}

func newTestMux(t *testing.T, reader *fakeArticleReader, control *fakeSchedulerControl, authConfig auth.Config) *http.ServeMux {
	t.Helper()
	taxonomy, err := classify.LoadTaxonomy("")
	if err != nil {
		t.Fatalf("load taxonomy: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mux := http.NewServeMux()
	SetupRoutes(mux, reader, nil, taxonomy, control, authConfig, logger)
	return mux
}

func TestSearchHandlerAppliesQueryParameters(t *testing.T) {
	reader := &fakeArticleReader{}
	mux := newTestMux(t, reader, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=sugar&page=2&limit=5&sort_by=oldest", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if reader.lastQuery.Search != "sugar" {
		t.Errorf("search term = %q, want %q", reader.lastQuery.Search, "sugar")
	}
	if reader.lastQuery.Page != 2 || reader.lastQuery.Limit != 5 {
		t.Errorf("pagination = page %d limit %d, want 2/5", reader.lastQuery.Page, reader.lastQuery.Limit)
	}
	if reader.lastQuery.Sort != models.SortAscending {
		t.Errorf("sort = %q, want ascending", reader.lastQuery.Sort)
	}

	var page models.PaginatedArticles
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if page.Page != 2 || page.Limit != 5 {
		t.Errorf("envelope page/limit = %d/%d, want 2/5", page.Page, page.Limit)
	}
}

func TestSearchHandlerRejectsInvalidPage(t *testing.T) {
	mux := newTestMux(t, &fakeArticleReader{}, &fakeSchedulerControl{}, testAuthConfig(t))

	for _, raw := range []string{"abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search?page="+raw, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("page=%q: status = %d, want 400", raw, rec.Code)
			continue
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("page=%q: decode error body: %v", raw, err)
		}
		if body["field"] != "page" {
			t.Errorf("page=%q: error field = %q, want page", raw, body["field"])
		}
	}
}

func TestSearchHandlerRejectsInvertedDateRange(t *testing.T) {
	mux := newTestMux(t, &fakeArticleReader{}, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?start_date=2026-02-01&end_date=2026-01-01", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCategoryHandlerFiltersByPathSegment(t *testing.T) {
	reader := &fakeArticleReader{}
	mux := newTestMux(t, reader, &fakeSchedulerControl{}, testAuthConfig(t))

	tests := []struct {
		path            string
		wantCategory    string
		wantSubcategory string
	}{
		{"/api/v1/category/news", "news", ""},
		{"/api/v1/category/diseases/diabetes", "diseases", "diabetes"},
		{"/category/food", "food", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if reader.lastQuery.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", reader.lastQuery.Category, tt.wantCategory)
			}
			if reader.lastQuery.Subcategory != tt.wantSubcategory {
				t.Errorf("subcategory = %q, want %q", reader.lastQuery.Subcategory, tt.wantSubcategory)
			}
		})
	}
}

func TestCategoryHandlerRejectsUnknownCategory(t *testing.T) {
	mux := newTestMux(t, &fakeArticleReader{}, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/category/astrology", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestTagHandlerFiltersByTag(t *testing.T) {
	reader := &fakeArticleReader{}
	mux := newTestMux(t, reader, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tag/nutrition", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if reader.lastQuery.Tag != "nutrition" {
		t.Errorf("tag = %q, want nutrition", reader.lastQuery.Tag)
	}
}

func TestCategoriesHandlerListsTaxonomy(t *testing.T) {
	mux := newTestMux(t, &fakeArticleReader{}, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Categories []struct {
			Name          string   `json:"name"`
			Subcategories []string `json:"subcategories"`
		} `json:"categories"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Categories) == 0 {
		t.Fatal("expected at least one category")
	}
	found := false
	for _, c := range body.Categories {
		if c.Name == "news" && len(c.Subcategories) > 0 {
			found = true
		}
	}
	if !found {
		t.Error("news category with subcategories missing from listing")
	}
}

func TestTagsHandlerListsTags(t *testing.T) {
	reader := &fakeArticleReader{tags: []string{"diet", "nutrition"}}
	mux := newTestMux(t, reader, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tags", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Tags  []string `json:"tags"`
		Count int      `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 || len(body.Tags) != 2 {
		t.Errorf("got %d tags (count %d), want 2", len(body.Tags), body.Count)
	}
}

func TestStatsHandlerReportsTotals(t *testing.T) {
	newest := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	reader := &fakeArticleReader{stats: &models.StoreStats{
		TotalArticles: 42,
		ByCategory:    map[string]int{"news": 40, "food": 2},
		NewestArticle: &newest,
	}}
	mux := newTestMux(t, reader, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalArticles != 42 {
		t.Errorf("total = %d, want 42", body.TotalArticles)
	}
	if body.ByCategory["news"] != 40 {
		t.Errorf("news count = %d, want 40", body.ByCategory["news"])
	}
	if body.Uptime == "" {
		t.Error("uptime missing")
	}
}

func TestTriggerRequiresAuthentication(t *testing.T) {
	control := &fakeSchedulerControl{}
	mux := newTestMux(t, &fakeArticleReader{}, control, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/trigger?scrape_type=quick", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", rec.Code)
	}
	if control.mode != "" {
		t.Error("trigger should not reach the scheduler without auth")
	}
}

func TestTriggerStartsScrapeWithValidToken(t *testing.T) {
	authConfig := testAuthConfig(t)
	control := &fakeSchedulerControl{runID: "run-42"}
	mux := newTestMux(t, &fakeArticleReader{}, control, authConfig)

	token, err := auth.GenerateToken("admin", authConfig.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/trigger?scrape_type=quick", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if control.mode != models.RunModeQuick {
		t.Errorf("mode = %q, want quick", control.mode)
	}
	var body TriggerResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID != "run-42" || body.Status != "started" {
		t.Errorf("unexpected trigger response %+v", body)
	}
}

func TestTriggerConflictsWhileScrapeActive(t *testing.T) {
	authConfig := testAuthConfig(t)
	control := &fakeSchedulerControl{err: fmt.Errorf("%w: run-1", scheduler.ErrAlreadyRunning)}
	mux := newTestMux(t, &fakeArticleReader{}, control, authConfig)

	token, err := auth.GenerateToken("admin", authConfig.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/trigger", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestTriggerRejectsUnknownScrapeType(t *testing.T) {
	authConfig := testAuthConfig(t)
	mux := newTestMux(t, &fakeArticleReader{}, &fakeSchedulerControl{}, authConfig)

	token, err := auth.GenerateToken("admin", authConfig.JWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/trigger?scrape_type=hourly", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSchedulerStatusHandler(t *testing.T) {
	control := &fakeSchedulerControl{status: scheduler.Status{
		Running:     true,
		ActiveRunID: "run-7",
		ActiveMode:  "full",
		Jobs: []scheduler.JobStatus{
			{Name: "full_scrape", Schedule: "@every 4h0m0s"},
		},
	}}
	mux := newTestMux(t, &fakeArticleReader{}, control, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body scheduler.Status
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Running || body.ActiveRunID != "run-7" {
		t.Errorf("unexpected status %+v", body)
	}
	if len(body.Jobs) != 1 || body.Jobs[0].Name != "full_scrape" {
		t.Errorf("unexpected jobs %+v", body.Jobs)
	}
}

func TestLoginIssuesValidToken(t *testing.T) {
	authConfig := testAuthConfig(t)
	mux := newTestMux(t, &fakeArticleReader{}, &fakeSchedulerControl{}, authConfig)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"letmein"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	userID, err := auth.ValidateToken(body.Token, authConfig.JWTSecret)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if userID != "admin" {
		t.Errorf("token user = %q, want admin", userID)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	mux := newTestMux(t, &fakeArticleReader{}, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"guess"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHealthHandlerRejectsPost(t *testing.T) {
	mux := newTestMux(t, &fakeArticleReader{}, &fakeSchedulerControl{}, testAuthConfig(t))

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
