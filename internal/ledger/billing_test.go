package ledger

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dpaiva/centavo/internal/domain"
)

func TestBillingMonth(t *testing.T) {
	tests := []struct {
		name       string
		date       civil.Date
		closingDay int
		want       civil.Date
	}{
		{"on closing day stays in current cycle", d(2025, time.May, 10), 10, d(2025, time.May, 1)},
		{"day after closing day rolls to next cycle", d(2025, time.May, 11), 10, d(2025, time.June, 1)},
		{"first of month", d(2025, time.May, 1), 10, d(2025, time.May, 1)},
		{"december rolls into january", d(2025, time.December, 28), 25, d(2026, time.January, 1)},
		{"closing day 31 never rolls", d(2025, time.January, 31), 31, d(2025, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BillingMonth(tt.date, tt.closingDay)
			if got != tt.want {
				t.Errorf("BillingMonth(%v, %d) = %v, want %v", tt.date, tt.closingDay, got, tt.want)
			}
		})
	}
}

func TestExposure(t *testing.T) {
	card := domain.CreditCard{ID: "card-1", ClosingDay: 10, DueDay: 17, CreditLimit: dec("5000")}
	today := d(2025, time.June, 5) // current cycle = June

	invoices := []domain.Invoice{
		{ID: "inv-apr", CardID: "card-1", ReferenceMonth: d(2025, time.April, 1), Status: domain.InvoicePaid, Total: dec("800")},
		{ID: "inv-may", CardID: "card-1", ReferenceMonth: d(2025, time.May, 1), Status: domain.InvoiceClosed, Total: dec("400")},
		{ID: "inv-jun", CardID: "card-1", ReferenceMonth: d(2025, time.June, 1), Status: domain.InvoiceOpen, Total: dec("150")},
	}
	orphans := []domain.Transaction{
		// day 8 <= closing day 10: June cycle
		{ID: "o1", CardID: "card-1", Amount: dec("60"), Date: d(2025, time.June, 8)},
		// day 12 > closing day: July cycle, committed only
		{ID: "o2", CardID: "card-1", Amount: dec("90"), Date: d(2025, time.June, 12)},
	}

	exp, err := Exposure(card, invoices, orphans, today)
	if err != nil {
		t.Fatalf("Exposure: %v", err)
	}

	// Paid invoice excluded; committed = 400 + 150 + 60 + 90.
	if want := dec("700"); !exp.TotalCommitted.Equal(want) {
		t.Errorf("TotalCommitted = %s, want %s", exp.TotalCommitted, want)
	}
	// Current cycle display: June invoice + June-bucketed orphan.
	if want := dec("210"); !exp.CurrentInvoiceTotal.Equal(want) {
		t.Errorf("CurrentInvoiceTotal = %s, want %s", exp.CurrentInvoiceTotal, want)
	}
	if want := dec("4300"); !exp.AvailableLimit.Equal(want) {
		t.Errorf("AvailableLimit = %s, want %s", exp.AvailableLimit, want)
	}
}

func TestExposureOrphansOnly(t *testing.T) {
	card := domain.CreditCard{ID: "card-1", ClosingDay: 5, DueDay: 12, CreditLimit: dec("1000")}
	orphans := []domain.Transaction{
		{ID: "o1", CardID: "card-1", Amount: dec("120"), Date: d(2025, time.March, 2)},
		{ID: "o2", CardID: "card-1", Amount: dec("80"), Date: d(2025, time.March, 20)},
	}

	exp, err := Exposure(card, nil, orphans, d(2025, time.March, 3))
	if err != nil {
		t.Fatalf("Exposure: %v", err)
	}
	if want := dec("200"); !exp.TotalCommitted.Equal(want) {
		t.Errorf("TotalCommitted = %s, want %s", exp.TotalCommitted, want)
	}
	if want := dec("120"); !exp.CurrentInvoiceTotal.Equal(want) {
		t.Errorf("CurrentInvoiceTotal = %s, want %s", exp.CurrentInvoiceTotal, want)
	}
}

func TestExposureRejectsForeignTransaction(t *testing.T) {
	card := domain.CreditCard{ID: "card-1", ClosingDay: 10, DueDay: 17, CreditLimit: dec("1000")}
	orphans := []domain.Transaction{{ID: "o1", CardID: "card-2", Amount: dec("10"), Date: d(2025, time.March, 2)}}
	if _, err := Exposure(card, nil, orphans, d(2025, time.March, 3)); err == nil {
		t.Fatal("expected error for orphan belonging to another card")
	}
}
