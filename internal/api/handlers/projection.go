package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dpaiva/centavo/internal/api/middleware"
	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/projection"
)

// ProjectionHandler handles month projection and simulation endpoints.
type ProjectionHandler struct {
	engine *projection.Engine
	log    zerolog.Logger
}

// NewProjectionHandler creates a new projection handler.
func NewProjectionHandler(engine *projection.Engine, log zerolog.Logger) *ProjectionHandler {
	return &ProjectionHandler{
		engine: engine,
		log:    log,
	}
}

// GetMonth handles GET /api/projection
func (h *ProjectionHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	month, ok := parseMonthParam(r, "month")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "month is required in YYYY-MM format")
		return
	}

	today, ok := parseDateParam(r, "today")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid today format, want YYYY-MM-DD")
		return
	}

	view, err := h.engine.MonthProjection(ctx, userID, month, today)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute month projection")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, view)
}

type simulateRequest struct {
	UserID      string                `json:"user_id"`
	BaseMonth   string                `json:"base_month"`   // YYYY-MM
	TargetMonth string                `json:"target_month"` // YYYY-MM
	Items       []domain.ScenarioItem `json:"items"`
	Today       *civil.Date           `json:"today"`
}

// Simulate handles POST /api/projection/simulate
func (h *ProjectionHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	baseMonth, err := parseMonth(req.BaseMonth)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "base_month must be YYYY-MM")
		return
	}
	targetMonth, err := parseMonth(req.TargetMonth)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "target_month must be YYYY-MM")
		return
	}

	today := datemath.Today(time.Local)
	if req.Today != nil {
		today = *req.Today
	}

	sim, err := h.engine.Simulate(ctx, req.UserID, baseMonth, targetMonth, req.Items, today)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to run simulation")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sim)
}

func parseMonth(raw string) (civil.Date, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return civil.Date{}, err
	}
	return civil.Date{Year: t.Year(), Month: t.Month(), Day: 1}, nil
}
