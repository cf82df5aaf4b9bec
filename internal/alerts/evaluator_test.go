package alerts

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/ledger"
	"github.com/dpaiva/centavo/internal/logger"
)

func d(y int, m time.Month, day int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: day}
}

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func expense(category, amount string, date civil.Date) domain.Transaction {
	return domain.Transaction{
		Type:      domain.TypeExpense,
		Status:    domain.StatusConfirmed,
		Category:  category,
		Amount:    dec(amount),
		Date:      date,
		AccountID: "acc-1",
	}
}

func findByRule(alerts []domain.Alert, rule string) []domain.Alert {
	var out []domain.Alert
	for _, a := range alerts {
		if a.Rule == rule {
			out = append(out, a)
		}
	}
	return out
}

func pendingExpense(id, amount string, date civil.Date) domain.Transaction {
	return domain.Transaction{
		ID:        id,
		Type:      domain.TypeExpense,
		Status:    domain.StatusPending,
		Amount:    dec(amount),
		Date:      date,
		AccountID: "acc-1",
	}
}

func TestLowBalanceTiers(t *testing.T) {
	today := d(2025, time.June, 15)

	tests := []struct {
		name         string
		liquid       string
		reserves     string
		wantSeverity domain.AlertSeverity
		wantNone     bool
	}{
		{name: "reserves below obligations", liquid: "50", reserves: "40", wantSeverity: domain.SeverityCritical},
		{name: "reserves under twice obligations", liquid: "50", reserves: "150", wantSeverity: domain.SeverityWarning},
		{name: "reserves comfortable", liquid: "50", reserves: "300", wantSeverity: domain.SeverityInfo},
		{name: "balance above floor", liquid: "500", reserves: "0", wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				UserID: "user-1",
				Today:  today,
				Balances: []ledger.BalanceResult{
					{AccountID: "acc-1", Balance: dec(tt.liquid), IncludeInTotal: true},
				},
				Goals:    []domain.SavingsGoal{{ID: "g1", Name: "Emergency", CurrentAmount: dec(tt.reserves)}},
				Upcoming: []domain.Transaction{pendingExpense("tx-1", "100", d(2025, time.June, 17))},
			}
			got := findByRule(NewEvaluator(logger.New()).Evaluate(snap), ruleLowBalance)
			if tt.wantNone {
				if len(got) != 0 {
					t.Fatalf("expected no low-balance alert, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one low-balance alert, got %d", len(got))
			}
			if got[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", got[0].Severity, tt.wantSeverity)
			}
		})
	}
}

func TestUpcomingObligationsTiers(t *testing.T) {
	today := d(2025, time.June, 15)

	tests := []struct {
		name         string
		obligations  string
		reserves     string
		wantSeverity domain.AlertSeverity
		wantNone     bool
	}{
		{name: "over total assets", obligations: "1500", reserves: "0", wantSeverity: domain.SeverityCritical},
		{name: "over liquid, reserves cover", obligations: "1200", reserves: "500", wantSeverity: domain.SeverityWarning},
		{name: "over 80% of liquid", obligations: "900", reserves: "0", wantSeverity: domain.SeverityInfo},
		{name: "comfortably covered", obligations: "500", reserves: "0", wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				UserID: "user-1",
				Today:  today,
				Balances: []ledger.BalanceResult{
					{AccountID: "acc-1", Balance: dec("1000"), IncludeInTotal: true},
				},
				Goals:    []domain.SavingsGoal{{ID: "g1", Name: "Emergency", CurrentAmount: dec(tt.reserves)}},
				Upcoming: []domain.Transaction{pendingExpense("tx-1", tt.obligations, d(2025, time.June, 17))},
			}
			got := findByRule(NewEvaluator(logger.New()).Evaluate(snap), ruleUpcomingObligations)
			if tt.wantNone {
				if len(got) != 0 {
					t.Fatalf("expected no obligations alert, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one obligations alert, got %d", len(got))
			}
			if got[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", got[0].Severity, tt.wantSeverity)
			}
		})
	}
}

// A purchase already billed on a due invoice must count once, through the
// invoice, never again through its pending row.
func TestObligationsExcludeCardPurchases(t *testing.T) {
	today := d(2025, time.June, 15)
	cardPurchase := domain.Transaction{
		ID:        "tx-1",
		Type:      domain.TypeExpense,
		Status:    domain.StatusPending,
		Amount:    dec("100"),
		Date:      d(2025, time.June, 16),
		CardID:    "card-1",
		InvoiceID: "inv-1",
	}
	snap := Snapshot{
		UserID: "user-1",
		Today:  today,
		Balances: []ledger.BalanceResult{
			{AccountID: "acc-1", Balance: dec("150"), IncludeInTotal: true},
		},
		Upcoming: []domain.Transaction{cardPurchase},
		DueInvoices: []domain.Invoice{
			{ID: "inv-1", Status: domain.InvoiceClosed, Total: dec("100"), DueDate: d(2025, time.June, 17)},
		},
	}

	if got := snap.ObligationsWithin(7); !got.Equal(dec("100")) {
		t.Fatalf("ObligationsWithin(7) = %s, want 100", got)
	}

	// 100 owed against 150 liquid is not critical.
	for _, a := range findByRule(NewEvaluator(logger.New()).Evaluate(snap), ruleUpcomingObligations) {
		if a.Severity == domain.SeverityCritical {
			t.Fatalf("double-counted card debt produced a critical alert: %+v", a)
		}
	}
}

func TestBudgetThresholds(t *testing.T) {
	// June 15 of a 30-day month: exactly half elapsed.
	today := d(2025, time.June, 15)

	tests := []struct {
		name         string
		spent        string
		wantSeverity domain.AlertSeverity
		wantNone     bool
	}{
		{name: "exactly 100% used", spent: "500", wantSeverity: domain.SeverityCritical},
		{name: "85% used", spent: "425", wantSeverity: domain.SeverityWarning},
		{name: "60% used at 50% elapsed paces to 120%", spent: "300", wantSeverity: domain.SeverityInfo},
		{name: "50% used on pace", spent: "250", wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				UserID:            "user-1",
				Today:             today,
				Budgets:           []domain.Budget{{Category: "groceries", Amount: dec("500"), Month: d(2025, time.June, 1)}},
				MonthTransactions: []domain.Transaction{expense("groceries", tt.spent, d(2025, time.June, 10))},
			}
			got := findByRule(NewEvaluator(logger.New()).Evaluate(snap), ruleBudget)
			if tt.wantNone {
				if len(got) != 0 {
					t.Fatalf("expected no budget alert, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one budget alert, got %d", len(got))
			}
			if got[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", got[0].Severity, tt.wantSeverity)
			}
		})
	}
}

func TestInvoiceDue(t *testing.T) {
	today := d(2025, time.June, 10)
	snap := Snapshot{
		UserID: "user-1",
		Today:  today,
		Balances: []ledger.BalanceResult{
			{AccountID: "acc-1", Balance: dec("10000"), IncludeInTotal: true},
		},
		DueInvoices: []domain.Invoice{
			{ID: "inv-1", Status: domain.InvoiceClosed, Total: dec("400"), DueDate: d(2025, time.June, 11)},
			{ID: "inv-2", Status: domain.InvoiceClosed, Total: dec("200"), DueDate: d(2025, time.June, 13)},
			{ID: "inv-3", Status: domain.InvoiceClosed, Total: dec("100"), DueDate: d(2025, time.June, 25)},
			{ID: "inv-4", Status: domain.InvoicePaid, Total: dec("999"), DueDate: d(2025, time.June, 11)},
		},
	}

	got := findByRule(NewEvaluator(logger.New()).Evaluate(snap), ruleInvoiceDue)
	if len(got) != 2 {
		t.Fatalf("expected 2 invoice alerts, got %d", len(got))
	}
	bySeverity := map[domain.AlertSeverity]int{}
	for _, a := range got {
		bySeverity[a.Severity]++
	}
	if bySeverity[domain.SeverityCritical] != 1 || bySeverity[domain.SeverityWarning] != 1 {
		t.Errorf("severities = %v, want one critical and one warning", bySeverity)
	}
}

func TestConcentration(t *testing.T) {
	snap := Snapshot{
		UserID: "user-1",
		Today:  d(2025, time.June, 20),
		MonthTransactions: []domain.Transaction{
			expense("dining", "450", d(2025, time.June, 5)),
			expense("transport", "300", d(2025, time.June, 6)),
			expense("other", "250", d(2025, time.June, 7)),
		},
	}
	got := findByRule(NewEvaluator(logger.New()).Evaluate(snap), ruleConcentration)
	if len(got) != 1 {
		t.Fatalf("expected one concentration alert, got %d", len(got))
	}
	if got[0].Severity != domain.SeverityInfo {
		t.Errorf("severity = %s, want info", got[0].Severity)
	}
}

func TestGoalRules(t *testing.T) {
	today := d(2025, time.June, 15)
	target := dec("1000")
	nearDeadline := d(2025, time.June, 20)
	farDeadline := d(2025, time.June, 30)

	tests := []struct {
		name         string
		goal         domain.SavingsGoal
		wantSeverity domain.AlertSeverity
		wantNone     bool
	}{
		{
			name:         "deadline near with low progress",
			goal:         domain.SavingsGoal{ID: "g1", Name: "Trip", CurrentAmount: dec("300"), TargetAmount: &target, Deadline: &nearDeadline},
			wantSeverity: domain.SeverityWarning,
		},
		{
			name:         "almost complete",
			goal:         domain.SavingsGoal{ID: "g1", Name: "Trip", CurrentAmount: dec("950"), TargetAmount: &target},
			wantSeverity: domain.SeverityInfo,
		},
		{
			name:     "fully funded",
			goal:     domain.SavingsGoal{ID: "g1", Name: "Trip", CurrentAmount: dec("1000"), TargetAmount: &target},
			wantNone: true,
		},
		{
			name:     "deadline far and mid progress",
			goal:     domain.SavingsGoal{ID: "g1", Name: "Trip", CurrentAmount: dec("500"), TargetAmount: &target, Deadline: &farDeadline},
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				UserID: "user-1",
				Today:  today,
				Balances: []ledger.BalanceResult{
					{AccountID: "acc-1", Balance: dec("5000"), IncludeInTotal: true},
				},
				Goals: []domain.SavingsGoal{tt.goal},
			}
			got := findByRule(NewEvaluator(logger.New()).Evaluate(snap), ruleGoal)
			if tt.wantNone {
				if len(got) != 0 {
					t.Fatalf("expected no goal alert, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one goal alert, got %d", len(got))
			}
			if got[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", got[0].Severity, tt.wantSeverity)
			}
		})
	}
}

func TestRecurrenceDue(t *testing.T) {
	today := d(2025, time.June, 15)
	snap := Snapshot{
		UserID: "user-1",
		Today:  today,
		Recurrences: []domain.Recurrence{
			{ID: "r1", Description: "Rent", Type: domain.TypeExpense, Amount: dec("1200"), Active: true, NextOccurrence: d(2025, time.June, 17)},
			{ID: "r2", Description: "Old gym", Type: domain.TypeExpense, Amount: dec("50"), Active: false, NextOccurrence: d(2025, time.June, 17)},
			{ID: "r3", Description: "Salary", Type: domain.TypeIncome, Amount: dec("4000"), Active: true, NextOccurrence: d(2025, time.June, 17)},
			{ID: "r4", Description: "Insurance", Type: domain.TypeExpense, Amount: dec("90"), Active: true, NextOccurrence: d(2025, time.June, 25)},
			{ID: "r5", Description: "Never run", Type: domain.TypeExpense, Amount: dec("30"), Active: true},
		},
	}

	got := findByRule(NewEvaluator(logger.New()).Evaluate(snap), ruleRecurrenceDue)
	if len(got) != 1 {
		t.Fatalf("expected one recurrence alert, got %d: %+v", len(got), got)
	}
	if got[0].ID != "recurrence-due:r1" {
		t.Errorf("alert ID = %s, want recurrence-due:r1", got[0].ID)
	}
	if got[0].Severity != domain.SeverityInfo {
		t.Errorf("severity = %s, want info", got[0].Severity)
	}
}

func TestInstallmentRules(t *testing.T) {
	today := d(2025, time.June, 10)
	snap := Snapshot{
		UserID: "user-1",
		Today:  today,
		InstallmentGroups: []domain.InstallmentGroup{
			{ID: "g1", Description: "Sofa"},
			{ID: "g2", Description: "Phone"},
		},
		PendingInstallments: []domain.Transaction{
			{ID: "i1", Status: domain.StatusPending, InstallmentGroupID: "g1", Description: "Sofa (9/10)", Amount: dec("150"), Date: d(2025, time.June, 11)},
			{ID: "i2", Status: domain.StatusPending, InstallmentGroupID: "g1", Description: "Sofa (10/10)", Amount: dec("150"), Date: d(2025, time.July, 11)},
			{ID: "i3", Status: domain.StatusPending, InstallmentGroupID: "g2", Description: "Phone (2/12)", Amount: dec("80"), Date: d(2025, time.June, 12)},
			{ID: "i4", Status: domain.StatusPending, InstallmentGroupID: "g2", Description: "Phone (3/12)", Amount: dec("80"), Date: d(2025, time.July, 12)},
			{ID: "i5", Status: domain.StatusPending, InstallmentGroupID: "g2", Description: "Phone (4/12)", Amount: dec("80"), Date: d(2025, time.August, 12)},
		},
	}

	alerts := NewEvaluator(logger.New()).Evaluate(snap)

	finishing := findByRule(alerts, ruleInstallmentFinishing)
	if len(finishing) != 1 {
		t.Fatalf("expected one finishing alert (g1 only), got %d", len(finishing))
	}

	due := findByRule(alerts, ruleInstallmentDue)
	if len(due) != 2 {
		t.Fatalf("expected two due alerts, got %d", len(due))
	}
	for _, a := range due {
		switch a.ID {
		case "installment-due:i1":
			if a.Severity != domain.SeverityWarning {
				t.Errorf("i1 (1 day out) severity = %s, want warning", a.Severity)
			}
		case "installment-due:i3":
			if a.Severity != domain.SeverityInfo {
				t.Errorf("i3 (2 days out) severity = %s, want info", a.Severity)
			}
		}
	}
}

func TestPositiveSuppressedByWarnings(t *testing.T) {
	base := Snapshot{
		UserID: "user-1",
		Today:  d(2025, time.June, 15),
		Balances: []ledger.BalanceResult{
			{AccountID: "acc-1", Balance: dec("5000"), IncludeInTotal: true},
		},
		Goals: []domain.SavingsGoal{{ID: "g1", Name: "Emergency", CurrentAmount: dec("2000")}},
	}

	// Quiet snapshot: positive insights appear.
	alerts := NewEvaluator(logger.New()).Evaluate(base)
	if got := findByRule(alerts, rulePositive); len(got) == 0 {
		t.Fatal("expected positive insights on a quiet snapshot")
	}

	// A warning suppresses them.
	noisy := base
	noisy.Budgets = []domain.Budget{{Category: "dining", Amount: dec("100")}}
	noisy.MonthTransactions = []domain.Transaction{expense("dining", "90", d(2025, time.June, 10))}
	alerts = NewEvaluator(logger.New()).Evaluate(noisy)
	if got := findByRule(alerts, rulePositive); len(got) != 0 {
		t.Fatalf("positive insights leaked next to a warning: %+v", got)
	}
}

func TestEvaluateSortsBySeverity(t *testing.T) {
	snap := Snapshot{
		UserID: "user-1",
		Today:  d(2025, time.June, 15),
		Balances: []ledger.BalanceResult{
			{AccountID: "acc-1", Balance: dec("3000"), IncludeInTotal: true},
		},
		Budgets: []domain.Budget{
			{Category: "dining", Amount: dec("100")},   // will be critical
			{Category: "transport", Amount: dec("100")}, // will be warning
		},
		MonthTransactions: []domain.Transaction{
			expense("dining", "120", d(2025, time.June, 10)),
			expense("transport", "85", d(2025, time.June, 10)),
		},
		DueInvoices: []domain.Invoice{
			{ID: "inv-1", Status: domain.InvoiceClosed, Total: dec("50"), DueDate: d(2025, time.June, 17)},
		},
	}

	alerts := NewEvaluator(logger.New()).Evaluate(snap)
	if len(alerts) < 3 {
		t.Fatalf("expected at least 3 alerts, got %d", len(alerts))
	}
	for i := 1; i < len(alerts); i++ {
		if alerts[i-1].Severity.Rank() > alerts[i].Severity.Rank() {
			t.Fatalf("alerts out of order at %d: %s before %s", i, alerts[i-1].Severity, alerts[i].Severity)
		}
	}
	if alerts[0].Severity != domain.SeverityCritical {
		t.Errorf("first alert severity = %s, want critical", alerts[0].Severity)
	}
}

// A rule panicking over weird input must not take the others down.
func TestRuleIsolation(t *testing.T) {
	e := NewEvaluator(logger.New())
	e.rules = append([]rule{{id: "exploding", run: func(Snapshot) []domain.Alert {
		panic("boom")
	}}}, e.rules...)

	snap := Snapshot{
		UserID: "user-1",
		Today:  d(2025, time.June, 15),
		DueInvoices: []domain.Invoice{
			{ID: "inv-1", Status: domain.InvoiceClosed, Total: dec("50"), DueDate: d(2025, time.June, 16)},
		},
	}
	alerts := e.Evaluate(snap)
	if len(findByRule(alerts, ruleInvoiceDue)) != 1 {
		t.Error("panicking rule prevented later rules from running")
	}
}
