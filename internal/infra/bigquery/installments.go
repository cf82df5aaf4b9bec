package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
)

const installmentGroupColumns = `
	group_id,
	user_id,
	description,
	category,
	installment_amount,
	total_amount,
	total_installments,
	starting_installment,
	first_date,
	frequency,
	account_id,
	card_id`

// GetInstallmentGroup retrieves one group by ID.
func (r *Repository) GetInstallmentGroup(ctx context.Context, id string) (*domain.InstallmentGroup, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE group_id = @group_id
		LIMIT 1
	`, installmentGroupColumns, r.table(installmentGroupsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "group_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetInstallmentGroup: reading query: %w", err)
	}

	var row InstallmentGroupRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, errs.NotFound("installment group", id)
	}
	if err != nil {
		return nil, fmt.Errorf("GetInstallmentGroup: iterating: %w", err)
	}

	group := row.toDomain()
	return &group, nil
}

// ListInstallmentGroups retrieves every group belonging to the user.
func (r *Repository) ListInstallmentGroups(ctx context.Context, userID string) ([]domain.InstallmentGroup, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY first_date DESC, group_id
	`, installmentGroupColumns, r.table(installmentGroupsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListInstallmentGroups: reading query: %w", err)
	}

	var groups []domain.InstallmentGroup
	for {
		var row InstallmentGroupRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListInstallmentGroups: iterating: %w", err)
		}
		groups = append(groups, row.toDomain())
	}

	return groups, nil
}

func installmentGroupParams(g domain.InstallmentGroup) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "group_id", Value: g.ID},
		{Name: "user_id", Value: g.UserID},
		{Name: "description", Value: g.Description},
		{Name: "category", Value: nullStr(g.Category)},
		{Name: "installment_amount", Value: toRat(g.InstallmentAmount)},
		{Name: "total_amount", Value: toRat(g.TotalAmount)},
		{Name: "total_installments", Value: int64(g.TotalInstallments)},
		{Name: "starting_installment", Value: int64(g.StartingInstallment)},
		{Name: "first_date", Value: g.FirstDate},
		{Name: "frequency", Value: string(g.Frequency)},
		{Name: "account_id", Value: nullStr(g.AccountID)},
		{Name: "card_id", Value: nullStr(g.CardID)},
	}
}

// InsertInstallmentGroup inserts one group row.
func (r *Repository) InsertInstallmentGroup(ctx context.Context, g domain.InstallmentGroup) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			group_id, user_id, description, category,
			installment_amount, total_amount, total_installments, starting_installment,
			first_date, frequency, account_id, card_id
		)
		VALUES (
			@group_id, @user_id, @description, @category,
			@installment_amount, @total_amount, @total_installments, @starting_installment,
			@first_date, @frequency, @account_id, @card_id
		)
	`, r.table(installmentGroupsTable)))
	q.Parameters = installmentGroupParams(g)

	if _, err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertInstallmentGroup: %w", err)
	}
	return nil
}

// UpdateInstallmentGroup rewrites all mutable columns of one group.
func (r *Repository) UpdateInstallmentGroup(ctx context.Context, g domain.InstallmentGroup) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET
			description = @description,
			category = @category,
			installment_amount = @installment_amount,
			total_amount = @total_amount,
			total_installments = @total_installments,
			starting_installment = @starting_installment,
			first_date = @first_date,
			frequency = @frequency,
			account_id = @account_id,
			card_id = @card_id
		WHERE group_id = @group_id
	`, r.table(installmentGroupsTable)))
	q.Parameters = installmentGroupParams(g)

	affected, err := r.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateInstallmentGroup: %w", err)
	}
	if affected == 0 {
		return errs.NotFound("installment group", g.ID)
	}
	return nil
}

// DeleteInstallmentGroup removes one group row. Child transactions are
// deleted first by the scheduler; the row order matters for recovery.
func (r *Repository) DeleteInstallmentGroup(ctx context.Context, id string) error {
	q := r.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE group_id = @group_id
	`, r.table(installmentGroupsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "group_id", Value: id},
	}

	if _, err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteInstallmentGroup: %w", err)
	}
	return nil
}
