// Package handlers implements the HTTP endpoints of the engine API.
// Handlers decode and validate input, call one engine operation, and map
// typed errors to status codes; no ledger math lives here.
package handlers

import (
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dpaiva/centavo/internal/api/middleware"
	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/ledger"
	"github.com/dpaiva/centavo/internal/store"
)

// parseDateParam reads an optional YYYY-MM-DD query parameter, falling
// back to today in the server's location.
func parseDateParam(r *http.Request, name string) (civil.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return datemath.Today(time.Local), true
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

// parseMonthParam reads a required YYYY-MM query parameter as the first
// day of that month.
func parseMonthParam(r *http.Request, name string) (civil.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return civil.Date{}, false
	}
	d, err := parseMonth(raw)
	if err != nil {
		return civil.Date{}, false
	}
	return d, true
}

// BalancesHandler handles account balance endpoints.
type BalancesHandler struct {
	accounts store.AccountReader
	calc     *ledger.Calculator
	log      zerolog.Logger
}

// NewBalancesHandler creates a new balances handler.
func NewBalancesHandler(accounts store.AccountReader, calc *ledger.Calculator, log zerolog.Logger) *BalancesHandler {
	return &BalancesHandler{
		accounts: accounts,
		calc:     calc,
		log:      log,
	}
}

// ListBalances handles GET /api/accounts/balances
func (h *BalancesHandler) ListBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	asOf, ok := parseDateParam(r, "as_of")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid as_of format, want YYYY-MM-DD")
		return
	}
	includePending := r.URL.Query().Get("include_pending") == "true"

	accounts, err := h.accounts.ListAccounts(ctx, userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list accounts")
		middleware.WriteDomainError(w, err)
		return
	}

	results, err := h.calc.ComputeAccountBalances(ctx, accounts, asOf, includePending)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute balances")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"as_of":        asOf.String(),
		"balances":     results,
		"liquid_total": ledger.LiquidTotal(results),
	})
}

// CardsHandler handles credit-card endpoints.
type CardsHandler struct {
	resolver *ledger.Resolver
	log      zerolog.Logger
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(resolver *ledger.Resolver, log zerolog.Logger) *CardsHandler {
	return &CardsHandler{
		resolver: resolver,
		log:      log,
	}
}

// GetExposure handles GET /api/cards/{id}/exposure
func (h *CardsHandler) GetExposure(w http.ResponseWriter, r *http.Request, cardID string) {
	ctx := r.Context()

	today, ok := parseDateParam(r, "date")
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date format, want YYYY-MM-DD")
		return
	}

	exposure, err := h.resolver.ResolveCardExposure(ctx, cardID, today)
	if err != nil {
		h.log.Error().Err(err).Str("card_id", cardID).Msg("Failed to resolve card exposure")
		middleware.WriteDomainError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, exposure)
}
