package recurrence

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
	"github.com/dpaiva/centavo/internal/logger"
	"github.com/dpaiva/centavo/internal/store"
)

func dec(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// mockRecurrenceStore holds templates keyed by ID and records updates.
type mockRecurrenceStore struct {
	recs map[string]domain.Recurrence
}

func newMockRecurrenceStore(recs ...domain.Recurrence) *mockRecurrenceStore {
	m := &mockRecurrenceStore{recs: make(map[string]domain.Recurrence)}
	for _, rec := range recs {
		m.recs[rec.ID] = rec
	}
	return m
}

func (m *mockRecurrenceStore) ListRecurrences(ctx context.Context, userID string) ([]domain.Recurrence, error) {
	var out []domain.Recurrence
	for _, rec := range m.recs {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRecurrenceStore) UpdateRecurrence(ctx context.Context, rec domain.Recurrence) error {
	if _, ok := m.recs[rec.ID]; !ok {
		return errs.NotFound("recurrence", rec.ID)
	}
	m.recs[rec.ID] = rec
	return nil
}

// mockTxStore records inserted transactions and can fail inserts for one
// recurrence.
type mockTxStore struct {
	inserted          []domain.Transaction
	failForRecurrence string
}

func (m *mockTxStore) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]domain.Transaction, error) {
	return nil, nil
}

func (m *mockTxStore) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	if m.failForRecurrence != "" && tx.RecurrenceID == m.failForRecurrence {
		return errs.Upstream("store unavailable", fmt.Errorf("connection reset"))
	}
	m.inserted = append(m.inserted, tx)
	return nil
}

func (m *mockTxStore) UpsertInstallmentTransaction(ctx context.Context, tx domain.Transaction) error {
	return m.InsertTransaction(ctx, tx)
}

func (m *mockTxStore) UpdateTransaction(ctx context.Context, tx domain.Transaction) error { return nil }
func (m *mockTxStore) DeleteTransaction(ctx context.Context, id string) error             { return nil }

func monthlyRent(next civil.Date) domain.Recurrence {
	return domain.Recurrence{
		ID:             "r1",
		UserID:         "user-1",
		Description:    "Rent",
		Type:           domain.TypeExpense,
		Amount:         dec("1200"),
		Frequency:      datemath.Monthly,
		StartDate:      d(2025, time.January, 1),
		Active:         true,
		NextOccurrence: next,
		AccountID:      "acc-1",
	}
}

func TestMaterializeDueFirstRun(t *testing.T) {
	// Never materialized: the anchor is today, not the back catalog.
	recs := newMockRecurrenceStore(monthlyRent(civil.Date{}))
	txs := &mockTxStore{}
	today := d(2025, time.June, 15)

	created, err := NewMaterializer(recs, txs, logger.New()).MaterializeDue(context.Background(), "user-1", today)
	if err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}
	if created != 1 || len(txs.inserted) != 1 {
		t.Fatalf("created = %d (inserted %d), want 1", created, len(txs.inserted))
	}

	tx := txs.inserted[0]
	if tx.Date != today {
		t.Errorf("generated date = %s, want %s", tx.Date, today)
	}
	if tx.Status != domain.StatusPending || tx.RecurrenceID != "r1" || tx.AccountID != "acc-1" {
		t.Errorf("generated transaction misses template links: %+v", tx)
	}
	if got := recs.recs["r1"].NextOccurrence; got != d(2025, time.July, 15) {
		t.Errorf("next occurrence = %s, want 2025-07-15", got)
	}
}

func TestMaterializeDueCatchesUp(t *testing.T) {
	rec := monthlyRent(d(2025, time.June, 1))
	rec.Frequency = datemath.Weekly
	recs := newMockRecurrenceStore(rec)
	txs := &mockTxStore{}
	today := d(2025, time.June, 15)

	created, err := NewMaterializer(recs, txs, logger.New()).MaterializeDue(context.Background(), "user-1", today)
	if err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3 (June 1, 8, 15)", created)
	}
	want := []civil.Date{d(2025, time.June, 1), d(2025, time.June, 8), d(2025, time.June, 15)}
	for i, tx := range txs.inserted {
		if tx.Date != want[i] {
			t.Errorf("inserted[%d].Date = %s, want %s", i, tx.Date, want[i])
		}
	}
	if got := recs.recs["r1"].NextOccurrence; got != d(2025, time.June, 22) {
		t.Errorf("next occurrence = %s, want 2025-06-22", got)
	}

	// A rerun on the same day generates nothing.
	created, err = NewMaterializer(recs, txs, logger.New()).MaterializeDue(context.Background(), "user-1", today)
	if err != nil {
		t.Fatalf("MaterializeDue rerun: %v", err)
	}
	if created != 0 {
		t.Errorf("rerun created = %d, want 0", created)
	}
}

func TestMaterializeDueSkipsInactive(t *testing.T) {
	rec := monthlyRent(d(2025, time.June, 10))
	rec.Active = false
	recs := newMockRecurrenceStore(rec)
	txs := &mockTxStore{}

	created, err := NewMaterializer(recs, txs, logger.New()).MaterializeDue(context.Background(), "user-1", d(2025, time.June, 15))
	if err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}
	if created != 0 || len(txs.inserted) != 0 {
		t.Errorf("inactive template materialized %d transactions", len(txs.inserted))
	}
}

func TestMaterializeDueStopsAtEndDate(t *testing.T) {
	end := d(2025, time.June, 5)
	rec := monthlyRent(d(2025, time.June, 1))
	rec.Frequency = datemath.Weekly
	rec.EndDate = &end
	recs := newMockRecurrenceStore(rec)
	txs := &mockTxStore{}

	created, err := NewMaterializer(recs, txs, logger.New()).MaterializeDue(context.Background(), "user-1", d(2025, time.June, 15))
	if err != nil {
		t.Fatalf("MaterializeDue: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1 (June 1 only, June 8 is past the end date)", created)
	}
}

func TestMaterializeDueIsolatesFailures(t *testing.T) {
	broken := monthlyRent(d(2025, time.June, 10))
	healthy := monthlyRent(d(2025, time.June, 12))
	healthy.ID = "r2"
	healthy.Description = "Gym"
	recs := newMockRecurrenceStore(broken, healthy)
	txs := &mockTxStore{failForRecurrence: "r1"}

	created, err := NewMaterializer(recs, txs, logger.New()).MaterializeDue(context.Background(), "user-1", d(2025, time.June, 15))
	if err == nil {
		t.Fatal("expected a rolled-up error for the failing template")
	}
	if created != 1 || len(txs.inserted) != 1 || txs.inserted[0].RecurrenceID != "r2" {
		t.Fatalf("healthy template did not materialize: created=%d inserted=%+v", created, txs.inserted)
	}
}
