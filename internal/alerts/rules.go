package alerts

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
)

// Stable rule identifiers. These never change between releases so alert
// sets stay diffable.
const (
	ruleLowBalance           = "low-balance"
	ruleUpcomingObligations  = "upcoming-obligations"
	ruleBudget               = "budget"
	ruleInvoiceDue           = "invoice-due"
	ruleConcentration        = "category-concentration"
	ruleGoal                 = "savings-goal"
	ruleRecurrenceDue        = "recurrence-due"
	ruleInstallmentFinishing = "installment-finishing"
	ruleInstallmentDue       = "installment-due"
	rulePositive             = "positive"
)

var (
	lowBalanceFloor    = decimal.NewFromInt(100)
	two                = decimal.NewFromInt(2)
	hundred            = decimal.NewFromInt(100)
	eightyPct          = decimal.NewFromFloat(0.8)
	fortyPct           = decimal.NewFromFloat(0.4)
	ninetyPct          = decimal.NewFromFloat(0.9)
	paceOverrunPoints  = decimal.NewFromInt(20)
)

// evalLowBalance compares the liquid balance against a small absolute
// floor, graded by how far the savings reserves stretch over the next
// week's obligations.
func evalLowBalance(snap Snapshot) []domain.Alert {
	liquid := snap.LiquidBalance()
	if liquid.GreaterThanOrEqual(lowBalanceFloor) {
		return nil
	}

	reserves := snap.Reserves()
	obligations := snap.ObligationsWithin(7)

	severity := domain.SeverityInfo
	message := fmt.Sprintf("Available balance is %s. Your savings reserves (%s) fully cover upcoming obligations.", liquid, reserves)
	switch {
	case reserves.LessThan(obligations):
		severity = domain.SeverityCritical
		message = fmt.Sprintf("Available balance is %s and reserves (%s) cannot cover the next 7 days of obligations (%s).", liquid, reserves, obligations)
	case reserves.LessThan(obligations.Mul(two)):
		severity = domain.SeverityWarning
		message = fmt.Sprintf("Available balance is %s and reserves (%s) are thin against upcoming obligations (%s).", liquid, reserves, obligations)
	}

	return []domain.Alert{{
		ID:       alertID(ruleLowBalance, ""),
		Rule:     ruleLowBalance,
		Severity: severity,
		Title:    "Low available balance",
		Message:  message,
		Action:   "review-accounts",
	}}
}

// evalUpcomingObligations weighs the next 7 days of bills against what
// the user actually has.
func evalUpcomingObligations(snap Snapshot) []domain.Alert {
	obligations := snap.ObligationsWithin(7)
	if obligations.IsZero() {
		return nil
	}

	liquid := snap.LiquidBalance()
	reserves := snap.Reserves()
	assets := liquid.Add(reserves)

	var severity domain.AlertSeverity
	var message string
	switch {
	case obligations.GreaterThan(assets):
		severity = domain.SeverityCritical
		message = fmt.Sprintf("Obligations of %s in the next 7 days exceed your total assets (%s).", obligations, assets)
	case obligations.GreaterThan(liquid):
		severity = domain.SeverityWarning
		message = fmt.Sprintf("Obligations of %s in the next 7 days exceed your liquid balance (%s); reserves cover the gap.", obligations, liquid)
	case obligations.GreaterThan(liquid.Mul(eightyPct)):
		severity = domain.SeverityInfo
		message = fmt.Sprintf("Obligations of %s in the next 7 days take over 80%% of your liquid balance (%s).", obligations, liquid)
	default:
		return nil
	}

	return []domain.Alert{{
		ID:       alertID(ruleUpcomingObligations, ""),
		Rule:     ruleUpcomingObligations,
		Severity: severity,
		Title:    "Upcoming obligations",
		Message:  message,
		Action:   "review-upcoming",
	}}
}

// evalBudgets grades each budget by usage, falling back to a pace check:
// an on-track-looking budget still alerts when its extrapolated month-end
// usage runs 20+ points over.
func evalBudgets(snap Snapshot) []domain.Alert {
	spent := make(map[string]decimal.Decimal)
	for _, tx := range snap.MonthTransactions {
		if tx.Type != domain.TypeExpense || tx.IsGoalMovement() {
			continue
		}
		spent[tx.Category] = spent[tx.Category].Add(tx.Amount)
	}

	daysInMonth := decimal.NewFromInt(int64(datemath.DaysInMonth(snap.Today.Year, snap.Today.Month)))
	elapsed := decimal.NewFromInt(int64(snap.Today.Day))

	var out []domain.Alert
	for _, b := range snap.Budgets {
		if !b.Amount.IsPositive() {
			continue
		}
		usedPct := spent[b.Category].Div(b.Amount).Mul(hundred)

		switch {
		case usedPct.GreaterThanOrEqual(hundred):
			out = append(out, domain.Alert{
				ID:       alertID(ruleBudget, b.Category),
				Rule:     ruleBudget,
				Severity: domain.SeverityCritical,
				Title:    fmt.Sprintf("Budget exceeded: %s", b.Category),
				Message:  fmt.Sprintf("You have used %s%% of the %s budget (%s of %s).", usedPct.Round(0), b.Category, spent[b.Category], b.Amount),
				Action:   "review-budget",
			})
		case usedPct.GreaterThanOrEqual(hundred.Mul(eightyPct)):
			out = append(out, domain.Alert{
				ID:       alertID(ruleBudget, b.Category),
				Rule:     ruleBudget,
				Severity: domain.SeverityWarning,
				Title:    fmt.Sprintf("Budget almost used: %s", b.Category),
				Message:  fmt.Sprintf("You have used %s%% of the %s budget.", usedPct.Round(0), b.Category),
				Action:   "review-budget",
			})
		default:
			if elapsed.IsZero() {
				continue
			}
			projected := usedPct.Div(elapsed).Mul(daysInMonth)
			if projected.Sub(hundred).GreaterThanOrEqual(paceOverrunPoints) {
				out = append(out, domain.Alert{
					ID:       alertID(ruleBudget, b.Category),
					Rule:     ruleBudget,
					Severity: domain.SeverityInfo,
					Title:    fmt.Sprintf("Spending pace high: %s", b.Category),
					Message: fmt.Sprintf("At the current pace the %s budget will end the month at %s%%.",
						b.Category, projected.Round(0)),
					Action: "review-budget",
				})
			}
		}
	}
	return out
}

// evalInvoicesDue flags card invoices due inside 3 days.
func evalInvoicesDue(snap Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, inv := range snap.DueInvoices {
		if inv.Status == domain.InvoicePaid {
			continue
		}
		days := datemath.DaysBetween(snap.Today, inv.DueDate)
		if days < 0 || days > 3 {
			continue
		}
		severity := domain.SeverityWarning
		if days <= 1 {
			severity = domain.SeverityCritical
		}
		out = append(out, domain.Alert{
			ID:       alertID(ruleInvoiceDue, inv.ID),
			Rule:     ruleInvoiceDue,
			Severity: severity,
			Title:    "Card invoice due",
			Message:  fmt.Sprintf("Invoice of %s is due in %d day(s).", inv.Total, days),
			Action:   "pay-invoice",
		})
	}
	return out
}

// evalConcentration flags a single category eating over 40% of the
// month's expenses.
func evalConcentration(snap Snapshot) []domain.Alert {
	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	for _, tx := range snap.MonthTransactions {
		if tx.Type != domain.TypeExpense || tx.IsGoalMovement() {
			continue
		}
		total = total.Add(tx.Amount)
		byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
	}
	if total.IsZero() {
		return nil
	}

	var out []domain.Alert
	for category, amount := range byCategory {
		if category == "" {
			continue
		}
		share := amount.Div(total)
		if share.GreaterThan(fortyPct) {
			out = append(out, domain.Alert{
				ID:       alertID(ruleConcentration, category),
				Rule:     ruleConcentration,
				Severity: domain.SeverityInfo,
				Title:    fmt.Sprintf("Spending concentrated in %s", category),
				Message:  fmt.Sprintf("%s accounts for %s%% of this month's expenses.", category, share.Mul(hundred).Round(0)),
			})
		}
	}
	return out
}

// evalGoals nudges on goals near completion and warns on imminent
// deadlines with low progress.
func evalGoals(snap Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, g := range snap.Goals {
		progress := g.Progress()

		if g.Deadline != nil {
			days := datemath.DaysBetween(snap.Today, *g.Deadline)
			if days >= 0 && days <= 7 && progress.LessThan(eightyPct) {
				out = append(out, domain.Alert{
					ID:       alertID(ruleGoal, g.ID),
					Rule:     ruleGoal,
					Severity: domain.SeverityWarning,
					Title:    fmt.Sprintf("Goal deadline near: %s", g.Name),
					Message:  fmt.Sprintf("%q is due in %d day(s) at %s%% progress.", g.Name, days, progress.Mul(hundred).Round(0)),
					Action:   "review-goal",
				})
				continue
			}
		}

		if progress.GreaterThanOrEqual(ninetyPct) && progress.LessThan(decimal.NewFromInt(1)) {
			out = append(out, domain.Alert{
				ID:       alertID(ruleGoal, g.ID),
				Rule:     ruleGoal,
				Severity: domain.SeverityInfo,
				Title:    fmt.Sprintf("Goal almost there: %s", g.Name),
				Message:  fmt.Sprintf("%q is at %s%% of its target.", g.Name, progress.Mul(hundred).Round(0)),
			})
		}
	}
	return out
}

// evalRecurrencesDue flags active expense recurrences landing inside 3
// days.
func evalRecurrencesDue(snap Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, rec := range snap.Recurrences {
		if !rec.Active || rec.Type != domain.TypeExpense || rec.NextOccurrence.IsZero() {
			continue
		}
		days := datemath.DaysBetween(snap.Today, rec.NextOccurrence)
		if days < 0 || days > 3 {
			continue
		}
		out = append(out, domain.Alert{
			ID:       alertID(ruleRecurrenceDue, rec.ID),
			Rule:     ruleRecurrenceDue,
			Severity: domain.SeverityInfo,
			Title:    fmt.Sprintf("Recurring expense due: %s", rec.Description),
			Message:  fmt.Sprintf("%q (%s) lands in %d day(s).", rec.Description, rec.Amount, days),
		})
	}
	return out
}

// evalInstallmentsFinishing celebrates groups with 1 or 2 unpaid
// installments left.
func evalInstallmentsFinishing(snap Snapshot) []domain.Alert {
	unpaid := make(map[string]int)
	for _, tx := range snap.PendingInstallments {
		if tx.Status == domain.StatusPending && tx.InstallmentGroupID != "" {
			unpaid[tx.InstallmentGroupID]++
		}
	}

	var out []domain.Alert
	for _, g := range snap.InstallmentGroups {
		remaining := unpaid[g.ID]
		if remaining != 1 && remaining != 2 {
			continue
		}
		out = append(out, domain.Alert{
			ID:       alertID(ruleInstallmentFinishing, g.ID),
			Rule:     ruleInstallmentFinishing,
			Severity: domain.SeverityInfo,
			Title:    fmt.Sprintf("Almost paid off: %s", g.Description),
			Message:  fmt.Sprintf("%q has %d installment(s) left.", g.Description, remaining),
		})
	}
	return out
}

// evalInstallmentsDue flags unpaid installments landing inside 3 days.
func evalInstallmentsDue(snap Snapshot) []domain.Alert {
	var out []domain.Alert
	for _, tx := range snap.PendingInstallments {
		if tx.Status != domain.StatusPending || tx.InstallmentGroupID == "" {
			continue
		}
		days := datemath.DaysBetween(snap.Today, tx.Date)
		if days < 0 || days > 3 {
			continue
		}
		severity := domain.SeverityInfo
		if days <= 1 {
			severity = domain.SeverityWarning
		}
		out = append(out, domain.Alert{
			ID:       alertID(ruleInstallmentDue, tx.ID),
			Rule:     ruleInstallmentDue,
			Severity: severity,
			Title:    "Installment due",
			Message:  fmt.Sprintf("%q (%s) is due in %d day(s).", tx.Description, tx.Amount, days),
		})
	}
	return out
}

// evalPositive emits the good-news insights. Only reached when nothing
// critical or warning fired, to keep the feed quiet.
func evalPositive(snap Snapshot) []domain.Alert {
	var out []domain.Alert

	liquid := snap.LiquidBalance()
	if liquid.IsPositive() {
		out = append(out, domain.Alert{
			ID:       alertID(rulePositive, "positive-balance"),
			Rule:     rulePositive,
			Severity: domain.SeverityInfo,
			Title:    "Balance in the green",
			Message:  fmt.Sprintf("Your available balance is %s.", liquid),
		})
	}

	reserves := snap.Reserves()
	obligations := snap.ObligationsWithin(30)
	if reserves.IsPositive() && reserves.GreaterThanOrEqual(obligations) {
		out = append(out, domain.Alert{
			ID:       alertID(rulePositive, "healthy-reserves"),
			Rule:     rulePositive,
			Severity: domain.SeverityInfo,
			Title:    "Healthy reserves",
			Message:  fmt.Sprintf("Your reserves (%s) cover the next 30 days of obligations.", reserves),
		})
	}
	return out
}
