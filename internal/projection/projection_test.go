package projection

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/domain"
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

// The end-to-end example: opening 1000, confirmed expense 200 before the
// month, confirmed income 500 and pending expense 300 inside the current
// month up to today.
func TestComputeMonthViewExample(t *testing.T) {
	today := d(2025, time.June, 20)
	month := d(2025, time.June, 1)

	accounts := []domain.Account{
		{ID: "acc-1", OpeningBalance: dec("1000"), IncludeInTotal: true},
	}
	txs := []domain.Transaction{
		{ID: "t1", Type: domain.TypeExpense, Status: domain.StatusConfirmed, Amount: dec("200"), Date: d(2025, time.May, 10), AccountID: "acc-1"},
		{ID: "t2", Type: domain.TypeIncome, Status: domain.StatusConfirmed, Amount: dec("500"), Date: d(2025, time.June, 5), AccountID: "acc-1"},
		{ID: "t3", Type: domain.TypeExpense, Status: domain.StatusPending, Amount: dec("300"), Date: d(2025, time.June, 25), AccountID: "acc-1"},
	}

	view, err := ComputeMonthView(accounts, txs, month, today)
	if err != nil {
		t.Fatalf("ComputeMonthView: %v", err)
	}

	if want := dec("800"); !view.InitialBalance.Equal(want) {
		t.Errorf("InitialBalance = %s, want %s", view.InitialBalance, want)
	}
	if want := dec("1300"); !view.CurrentBalance.Equal(want) {
		t.Errorf("CurrentBalance = %s, want %s", view.CurrentBalance, want)
	}
	if want := dec("1000"); !view.ProjectedBalance.Equal(want) {
		t.Errorf("ProjectedBalance = %s, want %s", view.ProjectedBalance, want)
	}
	if len(view.Income) != 1 || len(view.Expenses) != 1 {
		t.Errorf("lists: %d income, %d expenses, want 1 and 1", len(view.Income), len(view.Expenses))
	}
}

func TestComputeMonthViewTemporalBuckets(t *testing.T) {
	accounts := []domain.Account{
		{ID: "acc-1", OpeningBalance: dec("100"), IncludeInTotal: true},
	}
	txs := []domain.Transaction{
		{ID: "t1", Type: domain.TypeIncome, Status: domain.StatusConfirmed, Amount: dec("40"), Date: d(2025, time.June, 5), AccountID: "acc-1"},
		// Confirmed but dated after "today" inside the same month.
		{ID: "t2", Type: domain.TypeIncome, Status: domain.StatusConfirmed, Amount: dec("60"), Date: d(2025, time.June, 25), AccountID: "acc-1"},
	}

	// Current month, today = June 10: only t1 counts.
	view, err := ComputeMonthView(accounts, txs, d(2025, time.June, 1), d(2025, time.June, 10))
	if err != nil {
		t.Fatal(err)
	}
	if want := dec("140"); !view.CurrentBalance.Equal(want) {
		t.Errorf("current-month CurrentBalance = %s, want %s", view.CurrentBalance, want)
	}

	// Past month (today in July): the whole month counts.
	view, err = ComputeMonthView(accounts, txs, d(2025, time.June, 1), d(2025, time.July, 15))
	if err != nil {
		t.Fatal(err)
	}
	if want := dec("200"); !view.CurrentBalance.Equal(want) {
		t.Errorf("past-month CurrentBalance = %s, want %s", view.CurrentBalance, want)
	}

	// Future month: current equals initial.
	view, err = ComputeMonthView(accounts, txs, d(2025, time.August, 1), d(2025, time.June, 10))
	if err != nil {
		t.Fatal(err)
	}
	if !view.CurrentBalance.Equal(view.InitialBalance) {
		t.Errorf("future-month CurrentBalance %s != InitialBalance %s", view.CurrentBalance, view.InitialBalance)
	}
}

func TestComputeMonthViewExclusions(t *testing.T) {
	accounts := []domain.Account{
		{ID: "acc-1", OpeningBalance: dec("500"), IncludeInTotal: true},
		{ID: "acc-2", OpeningBalance: dec("900"), IncludeInTotal: false},
		{ID: "acc-3", OpeningBalance: dec("700"), IncludeInTotal: true, Archived: true},
	}
	txs := []domain.Transaction{
		// Card purchase: invoice math only.
		{ID: "t1", Type: domain.TypeExpense, Status: domain.StatusConfirmed, Amount: dec("100"), Date: d(2025, time.May, 5), AccountID: "acc-1", CardID: "card-1"},
		// Savings-goal movement: internal.
		{ID: "t2", Type: domain.TypeExpense, Status: domain.StatusConfirmed, Amount: dec("50"), Date: d(2025, time.May, 6), AccountID: "acc-1", GoalID: "goal-1"},
		// Movement on the excluded account.
		{ID: "t3", Type: domain.TypeIncome, Status: domain.StatusConfirmed, Amount: dec("999"), Date: d(2025, time.May, 7), AccountID: "acc-2"},
	}

	view, err := ComputeMonthView(accounts, txs, d(2025, time.June, 1), d(2025, time.June, 10))
	if err != nil {
		t.Fatal(err)
	}
	// Only acc-1's opening balance, untouched by the excluded rows.
	if want := dec("500"); !view.InitialBalance.Equal(want) {
		t.Errorf("InitialBalance = %s, want %s", view.InitialBalance, want)
	}
}

func TestProjectedBalanceIdentity(t *testing.T) {
	// projected == liquid + pendingIncome − pendingExpense, exactly.
	accounts := []domain.Account{
		{ID: "acc-1", OpeningBalance: dec("250.75"), IncludeInTotal: true},
	}
	txs := []domain.Transaction{
		{ID: "t1", Type: domain.TypeIncome, Status: domain.StatusConfirmed, Amount: dec("100.25"), Date: d(2025, time.June, 2), AccountID: "acc-1"},
		{ID: "t2", Type: domain.TypeIncome, Status: domain.StatusPending, Amount: dec("80.10"), Date: d(2025, time.June, 22), AccountID: "acc-1"},
		{ID: "t3", Type: domain.TypeExpense, Status: domain.StatusPending, Amount: dec("30.35"), Date: d(2025, time.June, 23), AccountID: "acc-1"},
	}
	today := d(2025, time.June, 10)

	view, err := ComputeMonthView(accounts, txs, d(2025, time.June, 1), today)
	if err != nil {
		t.Fatal(err)
	}
	liquid := dec("351")                       // 250.75 + 100.25
	want := liquid.Add(dec("80.10")).Sub(dec("30.35"))
	if !view.ProjectedBalance.Equal(want) {
		t.Errorf("ProjectedBalance = %s, want %s", view.ProjectedBalance, want)
	}
}

func TestComputeSimulationRecurringExpenseCompounds(t *testing.T) {
	accounts := []domain.Account{
		{ID: "acc-1", OpeningBalance: dec("1000"), IncludeInTotal: true},
	}
	txs := []domain.Transaction{
		{ID: "t1", Type: domain.TypeIncome, Status: domain.StatusPending, Amount: dec("500"), Date: d(2025, time.July, 5), AccountID: "acc-1"},
		{ID: "t2", Type: domain.TypeExpense, Status: domain.StatusPending, Amount: dec("200"), Date: d(2025, time.August, 5), AccountID: "acc-1"},
	}
	items := []domain.ScenarioItem{
		{Type: domain.TypeExpense, Description: "new subscription", Amount: dec("100")},
	}
	today := d(2025, time.June, 15)

	sim, err := ComputeSimulation(accounts, txs, d(2025, time.June, 1), d(2025, time.August, 1), items, today)
	if err != nil {
		t.Fatalf("ComputeSimulation: %v", err)
	}
	if len(sim.Months) != 3 {
		t.Fatalf("simulated %d months, want 3", len(sim.Months))
	}

	for k, m := range sim.Months {
		// Each month's simulated final sits exactly (k+1)×100 below the
		// original projection: 100 for its own item plus the compounded
		// shortfall carried in.
		wantGap := dec("100").Mul(decimal.NewFromInt(int64(k + 1)))
		gap := m.OriginalFinal.Sub(m.SimulatedFinal)
		if !gap.Equal(wantGap) {
			t.Errorf("month %d: original-simulated gap = %s, want %s", k, gap, wantGap)
		}
		if k > 0 {
			prev := sim.Months[k-1]
			if !m.SimulatedInitial.Equal(prev.SimulatedFinal) {
				t.Errorf("month %d simulated initial %s != previous simulated final %s",
					k, m.SimulatedInitial, prev.SimulatedFinal)
			}
			if !m.OriginalInitial.Equal(prev.OriginalFinal) {
				t.Errorf("month %d original initial %s != previous original final %s",
					k, m.OriginalInitial, prev.OriginalFinal)
			}
		}
	}

	// Original chain sanity: June final 1000, July 1500, August 1300.
	wantFinals := []string{"1000", "1500", "1300"}
	for k, want := range wantFinals {
		if !sim.Months[k].OriginalFinal.Equal(dec(want)) {
			t.Errorf("month %d original final = %s, want %s", k, sim.Months[k].OriginalFinal, want)
		}
	}
}

func TestComputeSimulationRejectsTargetBeforeBase(t *testing.T) {
	_, err := ComputeSimulation(nil, nil, d(2025, time.June, 1), d(2025, time.May, 1), nil, d(2025, time.June, 15))
	if err == nil {
		t.Fatal("expected error when target precedes base month")
	}
}
