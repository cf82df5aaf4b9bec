// Package installments generates and maintains the scheduled transactions
// that represent one multi-installment purchase.
package installments

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
	"github.com/dpaiva/centavo/internal/store"
)

// AmountMode says whether the create input carries the purchase total or
// the per-installment amount.
type AmountMode string

const (
	AmountTotal          AmountMode = "total"
	AmountPerInstallment AmountMode = "per_installment"
)

// CreateInput describes a new installment purchase.
type CreateInput struct {
	UserID              string
	Description         string
	Category            string
	AmountMode          AmountMode
	Amount              decimal.Decimal
	TotalInstallments   int
	StartingInstallment int
	Frequency           datemath.Frequency
	FirstDate           civil.Date
	AccountID           string
	CardID              string
}

// EditInput describes changes to an existing group. Nil pointers leave the
// field untouched.
type EditInput struct {
	Description *string
	Category    *string
	Amount      *decimal.Decimal // per-installment amount
	AccountID   *string
	CardID      *string
	NewStarting *int
	NewTotal    *int
	// UpdateFutureTransactions applies field changes to pending,
	// today-or-later children when the range did not change. Confirmed or
	// past-dated installments are never touched.
	UpdateFutureTransactions bool
}

// Scheduler creates, renumbers and removes installment groups together
// with their child transactions. The store gives no cross-row atomicity,
// so every multi-row edit runs deletes and updates before inserts and is
// safe to re-run if interrupted partway.
type Scheduler struct {
	groups store.InstallmentGroupStore
	txs    store.TransactionStore
	log    zerolog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(groups store.InstallmentGroupStore, txs store.TransactionStore, log zerolog.Logger) *Scheduler {
	return &Scheduler{groups: groups, txs: txs, log: log}
}

// Create records the group and its transaction-backed installments.
//
// The number of transactions is total − starting + 1; earlier numbers were
// paid before tracking began. Each child is inserted via the idempotent
// upsert keyed on (user, group, number), so a retried request cannot
// produce duplicates: a conflict is treated as already-present.
func (s *Scheduler) Create(ctx context.Context, in CreateInput) (*domain.InstallmentGroup, store.Invalidation, error) {
	count := in.TotalInstallments - in.StartingInstallment + 1

	if !in.Amount.IsPositive() {
		return nil, store.Invalidation{}, errs.Validation("installment amount must be positive")
	}

	var perAmount decimal.Decimal
	switch in.AmountMode {
	case AmountPerInstallment:
		perAmount = in.Amount
	case AmountTotal:
		if count < 1 {
			return nil, store.Invalidation{}, errs.Validation("starting installment %d exceeds total %d",
				in.StartingInstallment, in.TotalInstallments)
		}
		perAmount = in.Amount.Div(decimal.NewFromInt(int64(count))).Round(2)
	default:
		return nil, store.Invalidation{}, errs.Validation("unknown amount mode %q", in.AmountMode)
	}

	group := domain.InstallmentGroup{
		ID:                  uuid.NewString(),
		UserID:              in.UserID,
		Description:         in.Description,
		Category:            in.Category,
		InstallmentAmount:   perAmount,
		TotalAmount:         perAmount.Mul(decimal.NewFromInt(int64(count))),
		TotalInstallments:   in.TotalInstallments,
		StartingInstallment: in.StartingInstallment,
		FirstDate:           in.FirstDate,
		Frequency:           in.Frequency,
		AccountID:           in.AccountID,
		CardID:              in.CardID,
	}
	if err := group.Validate(); err != nil {
		return nil, store.Invalidation{}, err
	}

	if err := s.groups.InsertInstallmentGroup(ctx, group); err != nil {
		return nil, store.Invalidation{}, errs.Upstream("inserting installment group", err)
	}

	var report errs.BatchReport
	for i := 0; i < count; i++ {
		number := in.StartingInstallment + i
		tx := s.childTransaction(group, number)
		if err := s.upsertChild(ctx, tx); err != nil {
			s.log.Error().Err(err).
				Str("group_id", group.ID).
				Int("installment", number).
				Msg("Failed to insert installment transaction")
			report.Record(tx.ID, err)
			continue
		}
		report.Record(tx.ID, nil)
	}

	inv := store.Invalidates(store.ViewProjections, store.ViewAlerts)
	if err := report.Err(); err != nil {
		return &group, inv, errs.Upstream("creating installment transactions", err)
	}
	return &group, inv, nil
}

// childTransaction builds the scheduled transaction for one installment
// number. Dates step by the group's frequency from the first-installment
// date; the description carries the "(n/total)" annotation.
func (s *Scheduler) childTransaction(g domain.InstallmentGroup, number int) domain.Transaction {
	return domain.Transaction{
		ID:                 uuid.NewString(),
		UserID:             g.UserID,
		Type:               domain.TypeExpense,
		Status:             domain.StatusPending,
		Description:        annotate(g.Description, number, g.TotalInstallments),
		Category:           g.Category,
		Amount:             g.InstallmentAmount,
		Date:               datemath.Add(g.FirstDate, g.Frequency, number-g.StartingInstallment),
		AccountID:          g.AccountID,
		CardID:             g.CardID,
		InstallmentGroupID: g.ID,
		InstallmentNumber:  number,
	}
}

// upsertChild inserts the child if absent. A conflict means another retry
// already inserted it; that is the idempotent outcome, not a failure.
func (s *Scheduler) upsertChild(ctx context.Context, tx domain.Transaction) error {
	err := s.txs.UpsertInstallmentTransaction(ctx, tx)
	if err == nil {
		return nil
	}
	if errs.IsConflict(err) {
		s.log.Warn().
			Str("group_id", tx.InstallmentGroupID).
			Int("installment", tx.InstallmentNumber).
			Msg("Installment already present, treating insert as no-op")
		return nil
	}
	return err
}

// Edit applies updates to a group and reconciles its children.
//
// When the starting or total installment changes, children outside the new
// range are deleted, missing numbers inside it are created, and the
// overlap is updated in place rather than recreated, so a confirmed (paid)
// installment keeps its status. Deletes and updates run before inserts.
func (s *Scheduler) Edit(ctx context.Context, groupID string, in EditInput) (*domain.InstallmentGroup, store.Invalidation, error) {
	group, err := s.groups.GetInstallmentGroup(ctx, groupID)
	if err != nil {
		return nil, store.Invalidation{}, err
	}
	if group == nil {
		return nil, store.Invalidation{}, errs.NotFound("installment group", groupID)
	}

	updated := *group
	if in.Description != nil {
		updated.Description = *in.Description
	}
	if in.Category != nil {
		updated.Category = *in.Category
	}
	if in.Amount != nil {
		updated.InstallmentAmount = *in.Amount
	}
	if in.AccountID != nil {
		updated.AccountID = *in.AccountID
	}
	if in.CardID != nil {
		updated.CardID = *in.CardID
	}
	if in.NewStarting != nil {
		updated.StartingInstallment = *in.NewStarting
	}
	if in.NewTotal != nil {
		updated.TotalInstallments = *in.NewTotal
	}
	updated.TotalAmount = updated.InstallmentAmount.Mul(decimal.NewFromInt(int64(updated.TrackedCount())))
	if err := updated.Validate(); err != nil {
		return nil, store.Invalidation{}, err
	}

	rangeChanged := updated.StartingInstallment != group.StartingInstallment ||
		updated.TotalInstallments != group.TotalInstallments

	children, err := s.txs.ListTransactions(ctx, store.TransactionFilter{
		UserID:             group.UserID,
		InstallmentGroupID: group.ID,
	})
	if err != nil {
		return nil, store.Invalidation{}, errs.Upstream("listing installment transactions", err)
	}

	if rangeChanged {
		if err := s.renumber(ctx, updated, children); err != nil {
			return nil, store.Invalidation{}, err
		}
	} else if in.UpdateFutureTransactions {
		s.updateFuture(ctx, updated, children)
	}

	if err := s.groups.UpdateInstallmentGroup(ctx, updated); err != nil {
		return nil, store.Invalidation{}, errs.Upstream("updating installment group", err)
	}

	return &updated, store.Invalidates(store.ViewProjections, store.ViewAlerts), nil
}

// renumber reconciles children against the new [starting, total] range.
func (s *Scheduler) renumber(ctx context.Context, g domain.InstallmentGroup, children []domain.Transaction) error {
	existing := make(map[int]domain.Transaction, len(children))
	for _, tx := range children {
		// Duplicate numbers can only exist after a fallback insert race;
		// keep the first row seen and let the extras be deleted below.
		if _, ok := existing[tx.InstallmentNumber]; ok {
			s.log.Warn().
				Str("group_id", g.ID).
				Int("installment", tx.InstallmentNumber).
				Msg("Duplicate installment number, removing extra row")
			if err := s.txs.DeleteTransaction(ctx, tx.ID); err != nil {
				return errs.Upstream("deleting duplicate installment", err)
			}
			continue
		}
		existing[tx.InstallmentNumber] = tx
	}

	// Deletes first: rows whose number fell out of the new range.
	for number, tx := range existing {
		if number < g.StartingInstallment || number > g.TotalInstallments {
			if err := s.txs.DeleteTransaction(ctx, tx.ID); err != nil {
				return errs.Upstream(fmt.Sprintf("deleting installment %d", number), err)
			}
			delete(existing, number)
		}
	}

	// Updates next: the overlap keeps its rows (and their status) and
	// takes the new amount and labels.
	for number := g.StartingInstallment; number <= g.TotalInstallments; number++ {
		tx, ok := existing[number]
		if !ok {
			continue
		}
		tx.Amount = g.InstallmentAmount
		tx.Description = annotate(g.Description, number, g.TotalInstallments)
		tx.Category = g.Category
		tx.AccountID = g.AccountID
		tx.CardID = g.CardID
		if err := s.txs.UpdateTransaction(ctx, tx); err != nil {
			return errs.Upstream(fmt.Sprintf("updating installment %d", number), err)
		}
	}

	// Inserts last: numbers the new range added.
	for number := g.StartingInstallment; number <= g.TotalInstallments; number++ {
		if _, ok := existing[number]; ok {
			continue
		}
		if err := s.upsertChild(ctx, s.childTransaction(g, number)); err != nil {
			return errs.Upstream(fmt.Sprintf("creating installment %d", number), err)
		}
	}

	return nil
}

// updateFuture applies field changes to pending children dated today or
// later. Failures are logged and skipped so the rest of the batch
// completes.
func (s *Scheduler) updateFuture(ctx context.Context, g domain.InstallmentGroup, children []domain.Transaction) {
	today := datemath.Today(nil)
	for _, tx := range children {
		if tx.Status != domain.StatusPending || tx.Date.Before(today) {
			continue
		}
		tx.Amount = g.InstallmentAmount
		tx.Description = annotate(g.Description, tx.InstallmentNumber, g.TotalInstallments)
		tx.Category = g.Category
		tx.AccountID = g.AccountID
		tx.CardID = g.CardID
		if err := s.txs.UpdateTransaction(ctx, tx); err != nil {
			s.log.Error().Err(err).
				Str("group_id", g.ID).
				Int("installment", tx.InstallmentNumber).
				Msg("Failed to update future installment, skipping")
		}
	}
}

// Delete removes a group and all its children. Children go first; if any
// child delete fails the group stays, so no orphaned transactions can be
// left behind a missing group.
func (s *Scheduler) Delete(ctx context.Context, groupID string) (store.Invalidation, error) {
	group, err := s.groups.GetInstallmentGroup(ctx, groupID)
	if err != nil {
		return store.Invalidation{}, err
	}
	if group == nil {
		return store.Invalidation{}, errs.NotFound("installment group", groupID)
	}

	children, err := s.txs.ListTransactions(ctx, store.TransactionFilter{
		UserID:             group.UserID,
		InstallmentGroupID: group.ID,
	})
	if err != nil {
		return store.Invalidation{}, errs.Upstream("listing installment transactions", err)
	}

	for _, tx := range children {
		if err := s.txs.DeleteTransaction(ctx, tx.ID); err != nil {
			return store.Invalidation{}, errs.Upstream(
				fmt.Sprintf("deleting installment %d; group %s retained", tx.InstallmentNumber, groupID), err)
		}
	}

	if err := s.groups.DeleteInstallmentGroup(ctx, groupID); err != nil {
		return store.Invalidation{}, errs.Upstream("deleting installment group", err)
	}

	return store.Invalidates(store.ViewBalances, store.ViewProjections, store.ViewAlerts), nil
}

func annotate(description string, number, total int) string {
	return fmt.Sprintf("%s (%d/%d)", description, number, total)
}
