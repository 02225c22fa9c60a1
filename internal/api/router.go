// Package api exposes the read endpoints over stored articles plus the
// admin surface for triggering and inspecting scrapes.
package api

import (
	"database/sql"
	"net/http"

	"log/slog"

	"github.com/nexus-development01/metabolical-backend/internal/auth"
	"github.com/nexus-development01/metabolical-backend/internal/classify"
)

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, articles ArticleReader, db *sql.DB, taxonomy *classify.Taxonomy, control SchedulerControl, authConfig auth.Config, logger *slog.Logger) {
	articleHandler := NewArticleHandler(articles, taxonomy, db, logger)
	schedulerHandler := NewSchedulerHandler(control, logger)
	authHandler := NewAuthHandler(authConfig, logger)

	// Auth middleware
	authMiddleware := auth.AuthMiddleware(authConfig)

	// Authentication routes (public)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(authHandler.ValidateToken)).ServeHTTP(w, r)
	})

	// Read routes, mounted bare and under /api/v1 since clients predating
	// the versioned prefix still call the bare paths.
	for _, prefix := range []string{"", "/api/v1"} {
		mux.HandleFunc(prefix+"/search", articleHandler.SearchHandler)
		mux.HandleFunc(prefix+"/category/", articleHandler.CategoryHandler)
		mux.HandleFunc(prefix+"/tag/", articleHandler.TagHandler)
		mux.HandleFunc(prefix+"/categories", articleHandler.CategoriesHandler)
		mux.HandleFunc(prefix+"/tags", articleHandler.TagsHandler)
		mux.HandleFunc(prefix+"/stats", articleHandler.StatsHandler)
		mux.HandleFunc(prefix+"/health", articleHandler.HealthHandler)
	}

	// Scheduler routes (status public, trigger requires auth)
	mux.HandleFunc("/api/v1/scheduler/status", schedulerHandler.StatusHandler)
	mux.HandleFunc("/api/v1/scheduler/trigger", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(schedulerHandler.TriggerHandler)).ServeHTTP(w, r)
	})
}
