package alerts

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
	"github.com/dpaiva/centavo/internal/ledger"
	"github.com/dpaiva/centavo/internal/store"
)

// Service assembles snapshots from the store and evaluates them. It is the
// entry point shared by the API's on-demand evaluation and the worker's
// batch runs.
type Service struct {
	ledger store.Ledger
	calc   *ledger.Calculator
	eval   *Evaluator
	log    zerolog.Logger
}

// NewService creates a Service. calc should share the same store.
func NewService(ldg store.Ledger, calc *ledger.Calculator, log zerolog.Logger) *Service {
	return &Service{
		ledger: ldg,
		calc:   calc,
		eval:   NewEvaluator(log),
		log:    log,
	}
}

// BuildSnapshot fetches everything one evaluation needs. Reads are plain
// filtered lists; a failed read fails the snapshot rather than producing
// alerts over partial data.
func (s *Service) BuildSnapshot(ctx context.Context, userID string, today civil.Date) (Snapshot, error) {
	snap := Snapshot{UserID: userID, Today: today}

	accounts, err := s.ledger.ListAccounts(ctx, userID)
	if err != nil {
		return snap, errs.Upstream("listing accounts", err)
	}

	snap.Balances, err = s.calc.ComputeAccountBalances(ctx, accounts, today, false)
	if err != nil {
		return snap, err
	}

	snap.Goals, err = s.ledger.ListGoals(ctx, userID)
	if err != nil {
		return snap, errs.Upstream("listing goals", err)
	}

	snap.Budgets, err = s.ledger.ListBudgets(ctx, userID, datemath.MonthStart(today))
	if err != nil {
		return snap, errs.Upstream("listing budgets", err)
	}

	snap.MonthTransactions, err = s.ledger.ListTransactions(ctx, store.TransactionFilter{
		UserID: userID,
		From:   datemath.MonthStart(today),
		To:     datemath.MonthEnd(today),
	})
	if err != nil {
		return snap, errs.Upstream("listing month transactions", err)
	}

	// One pending read feeds both the obligations horizon and the
	// installment rules.
	pending, err := s.ledger.ListTransactions(ctx, store.TransactionFilter{
		UserID: userID,
		Status: domain.StatusPending,
	})
	if err != nil {
		return snap, errs.Upstream("listing pending transactions", err)
	}
	for _, tx := range pending {
		if !tx.Date.Before(today) {
			snap.Upcoming = append(snap.Upcoming, tx)
		}
		if tx.InstallmentGroupID != "" {
			snap.PendingInstallments = append(snap.PendingInstallments, tx)
		}
	}

	cards, err := s.ledger.ListCards(ctx, userID)
	if err != nil {
		return snap, errs.Upstream("listing cards", err)
	}
	for _, card := range cards {
		invoices, err := s.ledger.ListInvoices(ctx, card.ID)
		if err != nil {
			return snap, errs.Upstream("listing invoices for card "+card.ID, err)
		}
		for _, inv := range invoices {
			if inv.Status == domain.InvoicePaid || inv.DueDate.Before(today) {
				continue
			}
			snap.DueInvoices = append(snap.DueInvoices, inv)
		}
	}

	snap.Recurrences, err = s.ledger.ListRecurrences(ctx, userID)
	if err != nil {
		return snap, errs.Upstream("listing recurrences", err)
	}

	snap.InstallmentGroups, err = s.ledger.ListInstallmentGroups(ctx, userID)
	if err != nil {
		return snap, errs.Upstream("listing installment groups", err)
	}

	return snap, nil
}

// EvaluateUser builds a snapshot and runs the rule set over it.
func (s *Service) EvaluateUser(ctx context.Context, userID string, today civil.Date) ([]domain.Alert, error) {
	snap, err := s.BuildSnapshot(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return s.eval.Evaluate(snap), nil
}
