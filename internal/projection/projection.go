// Package projection composes balances and pending transactions into
// month-scoped views and hypothetical multi-month scenarios.
package projection

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
	"github.com/dpaiva/centavo/internal/ledger"
	"github.com/dpaiva/centavo/internal/store"
)

// MonthView is one month's balance picture.
type MonthView struct {
	Month civil.Date `json:"month"`
	// InitialBalance is the confirmed position at the month's start:
	// included accounts' opening balances plus all confirmed movement
	// strictly before the month.
	InitialBalance decimal.Decimal `json:"initial_balance"`
	// CurrentBalance depends on where the month sits relative to today:
	// a future month has no confirmed activity yet, a past month counts
	// the whole month, the current month counts up to today only.
	CurrentBalance decimal.Decimal `json:"current_balance"`
	// ProjectedBalance is today's liquid balance plus the month's pending
	// income minus its pending expenses.
	ProjectedBalance decimal.Decimal      `json:"projected_balance"`
	Income           []domain.Transaction `json:"income"`
	Expenses         []domain.Transaction `json:"expenses"`
}

// countsForProjection reports whether the transaction participates in
// account-level month math at all.
func countsForProjection(tx domain.Transaction) bool {
	return !tx.IsCardPurchase() && !tx.IsGoalMovement()
}

// confirmedNet folds the confirmed, account-affecting movement across
// included accounts for transactions dated in [from, to].
func confirmedNet(included map[string]bool, txs []domain.Transaction, from, to civil.Date) (decimal.Decimal, error) {
	net := decimal.Zero
	for _, tx := range txs {
		if tx.Status != domain.StatusConfirmed || !countsForProjection(tx) {
			continue
		}
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		switch tx.Type {
		case domain.TypeIncome, domain.TypeAdjustment:
			if included[tx.AccountID] {
				net = net.Add(tx.Amount)
			}
		case domain.TypeExpense:
			if included[tx.AccountID] {
				net = net.Sub(tx.Amount)
			}
		case domain.TypeTransfer:
			if included[tx.AccountID] {
				net = net.Sub(tx.Amount)
			}
			if included[tx.DestinationAccountID] {
				net = net.Add(tx.Amount)
			}
		default:
			return decimal.Zero, errs.Validation("unknown transaction type %q on transaction %s", tx.Type, tx.ID)
		}
	}
	return net, nil
}

// pendingNet returns pending income minus pending expenses dated inside
// the given month.
func pendingNet(txs []domain.Transaction, month civil.Date) decimal.Decimal {
	start, end := datemath.MonthStart(month), datemath.MonthEnd(month)
	net := decimal.Zero
	for _, tx := range txs {
		if tx.Status != domain.StatusPending || !countsForProjection(tx) {
			continue
		}
		if tx.Date.Before(start) || tx.Date.After(end) {
			continue
		}
		switch tx.Type {
		case domain.TypeIncome:
			net = net.Add(tx.Amount)
		case domain.TypeExpense:
			net = net.Sub(tx.Amount)
		}
	}
	return net
}

// ComputeMonthView derives a month view from fully fetched records.
// Archived accounts contribute nothing; accounts excluded from totals are
// left out of every figure.
func ComputeMonthView(accounts []domain.Account, txs []domain.Transaction, month, today civil.Date) (*MonthView, error) {
	start := datemath.MonthStart(month)
	end := datemath.MonthEnd(month)

	included := make(map[string]bool, len(accounts))
	opening := decimal.Zero
	for _, acct := range accounts {
		if acct.Archived || !acct.IncludeInTotal {
			continue
		}
		included[acct.ID] = true
		opening = opening.Add(acct.OpeningBalance)
	}

	before, err := confirmedNet(included, txs, civil.Date{Year: 1, Month: 1, Day: 1}, start.AddDays(-1))
	if err != nil {
		return nil, err
	}
	initial := opening.Add(before)

	// Temporal bucket of the month relative to today.
	current := initial
	switch {
	case start.After(today):
		// Future month: no confirmed activity yet.
	case end.Before(today):
		net, err := confirmedNet(included, txs, start, end)
		if err != nil {
			return nil, err
		}
		current = initial.Add(net)
	default:
		// Current month: future-dated confirmed rows are excluded.
		net, err := confirmedNet(included, txs, start, today)
		if err != nil {
			return nil, err
		}
		current = initial.Add(net)
	}

	// Liquid balance today, pending excluded, across included accounts.
	liquid := decimal.Zero
	for _, acct := range accounts {
		if acct.Archived || !acct.IncludeInTotal {
			continue
		}
		bal, err := ledger.Balance(acct, txs, today, false)
		if err != nil {
			return nil, err
		}
		liquid = liquid.Add(bal)
	}
	projected := liquid.Add(pendingNet(txs, month))

	view := &MonthView{
		Month:            start,
		InitialBalance:   initial,
		CurrentBalance:   current,
		ProjectedBalance: projected,
	}
	for _, tx := range txs {
		if tx.Date.Before(start) || tx.Date.After(end) || tx.IsGoalMovement() {
			continue
		}
		switch tx.Type {
		case domain.TypeIncome:
			view.Income = append(view.Income, tx)
		case domain.TypeExpense:
			view.Expenses = append(view.Expenses, tx)
		}
	}
	return view, nil
}

// Engine fetches a user's records and computes projections over them.
type Engine struct {
	accounts store.AccountReader
	txs      store.TransactionStore
	log      zerolog.Logger
}

// NewEngine creates an Engine over the storage collaborator.
func NewEngine(accounts store.AccountReader, txs store.TransactionStore, log zerolog.Logger) *Engine {
	return &Engine{accounts: accounts, txs: txs, log: log}
}

func (e *Engine) fetch(ctx context.Context, userID string) ([]domain.Account, []domain.Transaction, error) {
	accounts, err := e.accounts.ListAccounts(ctx, userID)
	if err != nil {
		return nil, nil, errs.Upstream("listing accounts", err)
	}
	txs, err := e.txs.ListTransactions(ctx, store.TransactionFilter{UserID: userID})
	if err != nil {
		return nil, nil, errs.Upstream("listing transactions", err)
	}
	return accounts, txs, nil
}

// MonthProjection computes the view for one month. A failed fetch fails
// the projection; it never computes on partial data.
func (e *Engine) MonthProjection(ctx context.Context, userID string, month, today civil.Date) (*MonthView, error) {
	accounts, txs, err := e.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ComputeMonthView(accounts, txs, month, today)
}
