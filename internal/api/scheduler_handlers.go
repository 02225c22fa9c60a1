package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/nexus-development01/metabolical-backend/internal/auth"
	"github.com/nexus-development01/metabolical-backend/internal/models"
	"github.com/nexus-development01/metabolical-backend/internal/scheduler"
)

// SchedulerControl is the scheduler surface exposed over the API.
type SchedulerControl interface {
	Trigger(mode models.RunMode) (string, error)
	Status() scheduler.Status
}

// SchedulerHandler serves scheduler status and the manual trigger.
type SchedulerHandler struct {
	control SchedulerControl
	logger  *slog.Logger
}

// NewSchedulerHandler creates a new scheduler handler.
func NewSchedulerHandler(control SchedulerControl, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{control: control, logger: logger}
}

// StatusHandler handles GET /api/v1/scheduler/status
func (h *SchedulerHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(h.control.Status()); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// TriggerResponse acknowledges a manual scrape request.
type TriggerResponse struct {
	RunID      string `json:"run_id"`
	ScrapeType string `json:"scrape_type"`
	Status     string `json:"status"`
}

// TriggerHandler handles POST /api/v1/scheduler/trigger?scrape_type=quick|full.
// The route is wrapped by the auth middleware; an active scrape makes this a
// 409 rather than queueing a second run.
func (h *SchedulerHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	scrapeType := r.URL.Query().Get("scrape_type")
	if scrapeType == "" {
		scrapeType = string(models.RunModeFull)
	}
	mode := models.RunMode(scrapeType)
	if !mode.Valid() {
		writeValidationError(w, &ValidationError{Field: "scrape_type", Message: "must be one of quick, full"})
		return
	}

	runID, err := h.control.Trigger(mode)
	if err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to trigger scrape", "scrape_type", scrapeType, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	user, _ := auth.GetUserIDFromContext(r.Context())
	h.logger.Info("manual scrape triggered", "scrape_type", scrapeType, "run_id", runID, "user", user)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(TriggerResponse{
		RunID:      runID,
		ScrapeType: scrapeType,
		Status:     "started",
	}); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
