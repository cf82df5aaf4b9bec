package recurrence

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
	"github.com/dpaiva/centavo/internal/store"
)

// Materializer turns due recurrence templates into dated pending
// transactions and advances each template's cached next occurrence so a
// rerun generates nothing new.
type Materializer struct {
	recs store.RecurrenceStore
	txs  store.TransactionStore
	log  zerolog.Logger
}

// NewMaterializer creates a Materializer over the given stores.
func NewMaterializer(recs store.RecurrenceStore, txs store.TransactionStore, log zerolog.Logger) *Materializer {
	return &Materializer{recs: recs, txs: txs, log: log}
}

// MaterializeDue generates every occurrence dated up to and including
// today across the user's active templates, returning how many
// transactions were created. A template that fails mid-way is logged and
// skipped; the others still materialize, and the rolled-up error reports
// the partial batch.
func (m *Materializer) MaterializeDue(ctx context.Context, userID string, today civil.Date) (int, error) {
	templates, err := m.recs.ListRecurrences(ctx, userID)
	if err != nil {
		return 0, errs.Upstream("listing recurrences", err)
	}

	created := 0
	var report errs.BatchReport
	for _, rec := range templates {
		if !rec.Active {
			continue
		}
		n, err := m.materializeOne(ctx, rec, today)
		created += n
		report.Record(rec.ID, err)
		if err != nil {
			m.log.Error().
				Err(err).
				Str("recurrence_id", rec.ID).
				Str("user_id", userID).
				Msg("Recurrence materialization failed, skipping template")
		}
	}

	if created > 0 {
		m.log.Info().
			Str("user_id", userID).
			Int("created", created).
			Msg("Materialized recurring transactions")
	}
	return created, report.Err()
}

// materializeOne walks the template's occurrences forward until the next
// one lands after today. Each step inserts the generated transaction
// before advancing the template; an occurrence is never skipped without
// its row existing.
func (m *Materializer) materializeOne(ctx context.Context, rec domain.Recurrence, today civil.Date) (int, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	created := 0
	for {
		next := Anchor(rec, today)
		if next.After(today) {
			break
		}
		if rec.EndDate != nil && next.After(*rec.EndDate) {
			break
		}

		tx := domain.Transaction{
			ID:           uuid.NewString(),
			UserID:       rec.UserID,
			Type:         rec.Type,
			Status:       domain.StatusPending,
			Description:  rec.Description,
			Category:     rec.Category,
			Amount:       rec.Amount,
			Date:         next,
			AccountID:    rec.AccountID,
			CardID:       rec.CardID,
			RecurrenceID: rec.ID,
		}
		if err := m.txs.InsertTransaction(ctx, tx); err != nil {
			return created, errs.Upstream("inserting generated transaction", err)
		}

		advanced, err := Consume(rec, today)
		if err != nil {
			return created, err
		}
		rec = advanced
		if err := m.recs.UpdateRecurrence(ctx, rec); err != nil {
			return created, errs.Upstream("advancing recurrence", err)
		}
		created++
	}
	return created, nil
}
