package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dpaiva/centavo/internal/alerts"
	"github.com/dpaiva/centavo/internal/api/middleware"
	"github.com/dpaiva/centavo/internal/insights"
	"github.com/dpaiva/centavo/internal/jobs"
)

// AlertsHandler handles alert evaluation endpoints.
type AlertsHandler struct {
	svc       *alerts.Service
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAlertsHandler creates a new alerts handler.
func NewAlertsHandler(svc *alerts.Service, publisher jobs.Publisher, log zerolog.Logger) *AlertsHandler {
	return &AlertsHandler{
		svc:       svc,
		publisher: publisher,
		log:       log,
	}
}

// ListAlerts handles GET /api/alerts
// Evaluation always runs fresh; alerts are derived data, never stored state.
func (h *AlertsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	today, ok := parseDateParam(r, "date")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date format, want YYYY-MM-DD")
		return
	}

	alertList, err := h.svc.EvaluateUser(ctx, userID, today)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to evaluate alerts")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alertList,
		"count":  len(alertList),
	})
}

// EnqueueEvaluation handles POST /api/alerts/evaluate
// It queues one background evaluation job per user for the worker.
func (h *AlertsHandler) EnqueueEvaluation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	job := &jobs.EvaluateAlertsJob{UserID: req.UserID}
	if err := h.publisher.PublishEvaluateAlerts(ctx, job); err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to enqueue evaluation job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue evaluation job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", req.UserID).Msg("Evaluation job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"user_id": req.UserID,
		"status":  string(job.Status),
	})
}

// InsightsHandler handles AI insight endpoints.
type InsightsHandler struct {
	gen *insights.Generator
	log zerolog.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(gen *insights.Generator, log zerolog.Logger) *InsightsHandler {
	return &InsightsHandler{
		gen: gen,
		log: log,
	}
}

// Generate handles POST /api/insights
func (h *InsightsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Kind    insights.Kind   `json:"kind"`
		Context json.RawMessage `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Context) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "context is required")
		return
	}

	insight, err := h.gen.Generate(ctx, req.Kind, req.Context)
	if err != nil {
		h.log.Error().Err(err).Str("kind", string(req.Kind)).Msg("Failed to generate insight")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, insight)
}
