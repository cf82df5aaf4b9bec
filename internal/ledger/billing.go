package ledger

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
	"github.com/dpaiva/centavo/internal/store"
)

// BillingMonth maps a purchase date to the first day of the billing month
// it belongs to. A purchase after the card's closing day rolls into the
// next calendar month's cycle; on or before the closing day it stays in
// the current one. Closing days partition the calendar, so every date
// lands in exactly one cycle.
func BillingMonth(date civil.Date, closingDay int) civil.Date {
	month := datemath.MonthStart(date)
	if date.Day > closingDay {
		month = datemath.AddMonths(month, 1)
	}
	return month
}

// CardExposure is a card's derived credit position.
type CardExposure struct {
	CardID string `json:"card_id"`
	// CurrentInvoiceTotal is the display figure for the cycle containing
	// today: the current invoice plus orphans the closing-day rule assigns
	// to it.
	CurrentInvoiceTotal decimal.Decimal `json:"current_invoice_total"`
	// TotalCommitted reflects true limit usage: every non-paid invoice
	// plus every orphan regardless of month.
	TotalCommitted decimal.Decimal `json:"total_committed"`
	AvailableLimit decimal.Decimal `json:"available_limit"`
}

// Exposure derives a card's committed and available credit from its
// invoices and its orphan transactions (card purchases with no generated
// invoice yet). Orphans always count toward committed credit; each one is
// additionally bucketed into the current cycle's display figure only when
// the closing-day rule puts it there, so no orphan is ever double-counted
// across two months.
func Exposure(card domain.CreditCard, invoices []domain.Invoice, orphans []domain.Transaction, today civil.Date) (CardExposure, error) {
	if err := card.Validate(); err != nil {
		return CardExposure{}, err
	}

	currentCycle := BillingMonth(today, card.ClosingDay)

	committed := decimal.Zero
	current := decimal.Zero

	for _, inv := range invoices {
		if inv.Status == domain.InvoicePaid {
			continue
		}
		committed = committed.Add(inv.Total)
		if datemath.SameMonth(inv.ReferenceMonth, currentCycle) {
			current = current.Add(inv.Total)
		}
	}

	for _, tx := range orphans {
		if tx.CardID != card.ID {
			return CardExposure{}, errs.Validation("transaction %s does not belong to card %s", tx.ID, card.ID)
		}
		committed = committed.Add(tx.Amount)
		if datemath.SameMonth(BillingMonth(tx.Date, card.ClosingDay), currentCycle) {
			current = current.Add(tx.Amount)
		}
	}

	return CardExposure{
		CardID:              card.ID,
		CurrentInvoiceTotal: current,
		TotalCommitted:      committed,
		AvailableLimit:      card.CreditLimit.Sub(committed),
	}, nil
}

// Resolver fetches a card's records and derives its exposure.
type Resolver struct {
	cards store.CardStore
	txs   store.TransactionStore
}

// NewResolver creates a Resolver over the storage collaborator.
func NewResolver(cards store.CardStore, txs store.TransactionStore) *Resolver {
	return &Resolver{cards: cards, txs: txs}
}

// ResolveCardExposure loads the card, its invoices and its orphan
// transactions, then derives the exposure. Any failed read fails the
// computation rather than producing numbers from partial data.
func (r *Resolver) ResolveCardExposure(ctx context.Context, cardID string, today civil.Date) (CardExposure, error) {
	card, err := r.cards.GetCard(ctx, cardID)
	if err != nil {
		return CardExposure{}, err
	}
	if card == nil {
		return CardExposure{}, errs.NotFound("credit card", cardID)
	}

	invoices, err := r.cards.ListInvoices(ctx, cardID)
	if err != nil {
		return CardExposure{}, errs.Upstream("listing invoices for card "+cardID, err)
	}

	orphans, err := r.txs.ListTransactions(ctx, store.TransactionFilter{
		CardID:      cardID,
		OrphansOnly: true,
	})
	if err != nil {
		return CardExposure{}, errs.Upstream("listing orphan transactions for card "+cardID, err)
	}

	return Exposure(*card, invoices, orphans, today)
}
