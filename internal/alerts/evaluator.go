// Package alerts runs threshold rules over a ledger snapshot and emits
// severity-ranked alerts.
package alerts

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/ledger"
)

// Snapshot is the fully fetched input to one evaluation. The evaluator
// never reaches back to the store: whoever builds the snapshot decides
// how fresh it is.
type Snapshot struct {
	UserID   string
	Today    civil.Date
	Balances []ledger.BalanceResult
	Goals    []domain.SavingsGoal
	Budgets  []domain.Budget
	// MonthTransactions covers the current month (confirmed and pending).
	MonthTransactions []domain.Transaction
	// Upcoming holds pending transactions dated today or later, out to the
	// snapshot builder's horizon.
	Upcoming []domain.Transaction
	// DueInvoices are non-paid invoices with a due date today or later.
	DueInvoices       []domain.Invoice
	Recurrences       []domain.Recurrence
	InstallmentGroups []domain.InstallmentGroup
	// PendingInstallments are the unpaid child transactions of all groups.
	PendingInstallments []domain.Transaction
}

// LiquidBalance sums the included account balances.
func (s Snapshot) LiquidBalance() decimal.Decimal {
	return ledger.LiquidTotal(s.Balances)
}

// Reserves sums the savings-goal balances.
func (s Snapshot) Reserves() decimal.Decimal {
	total := decimal.Zero
	for _, g := range s.Goals {
		total = total.Add(g.CurrentAmount)
	}
	return total
}

// ObligationsWithin sums pending expenses and invoice totals due inside
// the next n days. Card purchases are skipped: they reach the user as
// their invoice's total, so counting the row and the invoice would bill
// the same debt twice.
func (s Snapshot) ObligationsWithin(days int) decimal.Decimal {
	limit := s.Today.AddDays(days)
	total := decimal.Zero
	for _, tx := range s.Upcoming {
		if tx.Type != domain.TypeExpense || tx.IsGoalMovement() || tx.IsCardPurchase() {
			continue
		}
		if tx.Date.Before(s.Today) || tx.Date.After(limit) {
			continue
		}
		total = total.Add(tx.Amount)
	}
	for _, inv := range s.DueInvoices {
		if inv.Status == domain.InvoicePaid {
			continue
		}
		if inv.DueDate.Before(s.Today) || inv.DueDate.After(limit) {
			continue
		}
		total = total.Add(inv.Total)
	}
	return total
}

// rule is one independent evaluation. Rules append alerts; a panic inside
// one rule is contained so the others still run.
type rule struct {
	id  string
	run func(Snapshot) []domain.Alert
}

// Evaluator runs the fixed rule set over snapshots.
type Evaluator struct {
	rules []rule
	log   zerolog.Logger
}

// NewEvaluator creates an Evaluator with the full rule set.
func NewEvaluator(log zerolog.Logger) *Evaluator {
	return &Evaluator{
		log: log,
		rules: []rule{
			{id: ruleLowBalance, run: evalLowBalance},
			{id: ruleUpcomingObligations, run: evalUpcomingObligations},
			{id: ruleBudget, run: evalBudgets},
			{id: ruleInvoiceDue, run: evalInvoicesDue},
			{id: ruleConcentration, run: evalConcentration},
			{id: ruleGoal, run: evalGoals},
			{id: ruleRecurrenceDue, run: evalRecurrencesDue},
			{id: ruleInstallmentFinishing, run: evalInstallmentsFinishing},
			{id: ruleInstallmentDue, run: evalInstallmentsDue},
		},
	}
}

// Evaluate runs every rule and returns the fresh alert set, sorted by
// severity (critical first) with rule id as the tiebreaker so repeated
// evaluations are diffable. Positive insights are appended only when
// nothing critical or warning surfaced.
func (e *Evaluator) Evaluate(snap Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, r := range e.rules {
		out = append(out, e.runRule(r, snap)...)
	}

	calm := true
	for _, a := range out {
		if a.Severity == domain.SeverityCritical || a.Severity == domain.SeverityWarning {
			calm = false
			break
		}
	}
	if calm {
		out = append(out, e.runRule(rule{id: rulePositive, run: evalPositive}, snap)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() < out[j].Severity.Rank()
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// runRule isolates one rule: a panic or bad input in it must not stop the
// other rules from evaluating.
func (e *Evaluator) runRule(r rule, snap Snapshot) (alerts []domain.Alert) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error().
				Str("rule", r.id).
				Str("user_id", snap.UserID).
				Interface("panic", rec).
				Msg("Alert rule panicked, skipping")
			alerts = nil
		}
	}()
	return r.run(snap)
}

func alertID(ruleID, key string) string {
	if key == "" {
		return ruleID
	}
	return fmt.Sprintf("%s:%s", ruleID, key)
}
