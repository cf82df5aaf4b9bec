package handlers

import (
	"encoding/json"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/api/middleware"
	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/installments"
)

// InstallmentsHandler handles installment group endpoints.
type InstallmentsHandler struct {
	sched *installments.Scheduler
	log   zerolog.Logger
}

// NewInstallmentsHandler creates a new installments handler.
func NewInstallmentsHandler(sched *installments.Scheduler, log zerolog.Logger) *InstallmentsHandler {
	return &InstallmentsHandler{
		sched: sched,
		log:   log,
	}
}

type createInstallmentsRequest struct {
	UserID              string          `json:"user_id"`
	Description         string          `json:"description"`
	Category            string          `json:"category"`
	AmountMode          string          `json:"amount_mode"` // "total" or "per_installment"
	Amount              decimal.Decimal `json:"amount"`
	TotalInstallments   int             `json:"total_installments"`
	StartingInstallment int             `json:"starting_installment"`
	Frequency           string          `json:"frequency"`
	FirstDate           civil.Date      `json:"first_date"`
	AccountID           string          `json:"account_id"`
	CardID              string          `json:"card_id"`
}

// Create handles POST /api/installments
func (h *InstallmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createInstallmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	mode := installments.AmountMode(req.AmountMode)
	if mode == "" {
		mode = installments.AmountPerInstallment
	}
	if req.StartingInstallment == 0 {
		req.StartingInstallment = 1
	}

	group, invalidation, err := h.sched.Create(ctx, installments.CreateInput{
		UserID:              req.UserID,
		Description:         req.Description,
		Category:            req.Category,
		AmountMode:          mode,
		Amount:              req.Amount,
		TotalInstallments:   req.TotalInstallments,
		StartingInstallment: req.StartingInstallment,
		Frequency:           datemath.Frequency(req.Frequency),
		FirstDate:           req.FirstDate,
		AccountID:           req.AccountID,
		CardID:              req.CardID,
	})
	if err != nil {
		h.log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to create installment group")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"group":       group,
		"invalidates": invalidation.Views,
	})
}

type editInstallmentsRequest struct {
	Description              *string          `json:"description"`
	Category                 *string          `json:"category"`
	Amount                   *decimal.Decimal `json:"amount"`
	AccountID                *string          `json:"account_id"`
	CardID                   *string          `json:"card_id"`
	NewStarting              *int             `json:"new_starting"`
	NewTotal                 *int             `json:"new_total"`
	UpdateFutureTransactions bool             `json:"update_future_transactions"`
}

// Edit handles PUT /api/installments/{id}
func (h *InstallmentsHandler) Edit(w http.ResponseWriter, r *http.Request, groupID string) {
	ctx := r.Context()

	var req editInstallmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	group, invalidation, err := h.sched.Edit(ctx, groupID, installments.EditInput{
		Description:              req.Description,
		Category:                 req.Category,
		Amount:                   req.Amount,
		AccountID:                req.AccountID,
		CardID:                   req.CardID,
		NewStarting:              req.NewStarting,
		NewTotal:                 req.NewTotal,
		UpdateFutureTransactions: req.UpdateFutureTransactions,
	})
	if err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("Failed to edit installment group")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"group":       group,
		"invalidates": invalidation.Views,
	})
}

// Delete handles DELETE /api/installments/{id}
func (h *InstallmentsHandler) Delete(w http.ResponseWriter, r *http.Request, groupID string) {
	ctx := r.Context()

	invalidation, err := h.sched.Delete(ctx, groupID)
	if err != nil {
		h.log.Error().Err(err).Str("group_id", groupID).Msg("Failed to delete installment group")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":     groupID,
		"invalidates": invalidation.Views,
	})
}
