package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
)

// ListRecurrences retrieves every recurrence template belonging to the
// user, inactive ones included.
func (r *Repository) ListRecurrences(ctx context.Context, userID string) ([]domain.Recurrence, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			recurrence_id,
			user_id,
			description,
			category,
			type,
			amount,
			frequency,
			start_date,
			end_date,
			active,
			next_occurrence,
			account_id,
			card_id
		FROM %s
		WHERE user_id = @user_id
		ORDER BY start_date, recurrence_id
	`, r.table(recurrencesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecurrences: reading query: %w", err)
	}

	var recs []domain.Recurrence
	for {
		var row RecurrenceRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecurrences: iterating: %w", err)
		}
		recs = append(recs, row.toDomain())
	}

	return recs, nil
}

// UpdateRecurrence rewrites all mutable columns of one template. The
// engine uses it mainly to advance next_occurrence after materializing.
func (r *Repository) UpdateRecurrence(ctx context.Context, rec domain.Recurrence) error {
	endDate := bigquery.NullDate{}
	if rec.EndDate != nil {
		endDate = bigquery.NullDate{Date: *rec.EndDate, Valid: true}
	}
	nextOccurrence := bigquery.NullDate{}
	if rec.NextOccurrence.IsValid() {
		nextOccurrence = bigquery.NullDate{Date: rec.NextOccurrence, Valid: true}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET
			description = @description,
			category = @category,
			type = @type,
			amount = @amount,
			frequency = @frequency,
			start_date = @start_date,
			end_date = @end_date,
			active = @active,
			next_occurrence = @next_occurrence,
			account_id = @account_id,
			card_id = @card_id
		WHERE recurrence_id = @recurrence_id
	`, r.table(recurrencesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "recurrence_id", Value: rec.ID},
		{Name: "description", Value: rec.Description},
		{Name: "category", Value: nullStr(rec.Category)},
		{Name: "type", Value: string(rec.Type)},
		{Name: "amount", Value: toRat(rec.Amount)},
		{Name: "frequency", Value: string(rec.Frequency)},
		{Name: "start_date", Value: rec.StartDate},
		{Name: "end_date", Value: endDate},
		{Name: "active", Value: rec.Active},
		{Name: "next_occurrence", Value: nextOccurrence},
		{Name: "account_id", Value: nullStr(rec.AccountID)},
		{Name: "card_id", Value: nullStr(rec.CardID)},
	}

	affected, err := r.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateRecurrence: %w", err)
	}
	if affected == 0 {
		return errs.NotFound("recurrence", rec.ID)
	}
	return nil
}

// ListGoals retrieves every savings goal belonging to the user.
func (r *Repository) ListGoals(ctx context.Context, userID string) ([]domain.SavingsGoal, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			goal_id,
			user_id,
			name,
			current_amount,
			target_amount,
			deadline,
			account_id
		FROM %s
		WHERE user_id = @user_id
		ORDER BY name
	`, r.table(goalsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListGoals: reading query: %w", err)
	}

	var goals []domain.SavingsGoal
	for {
		var row GoalRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListGoals: iterating: %w", err)
		}
		goals = append(goals, row.toDomain())
	}

	return goals, nil
}

// ListBudgets retrieves the user's budgets for one month.
func (r *Repository) ListBudgets(ctx context.Context, userID string, month civil.Date) ([]domain.Budget, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			budget_id,
			user_id,
			category,
			amount,
			month
		FROM %s
		WHERE user_id = @user_id
		  AND month = @month
		ORDER BY category
	`, r.table(budgetsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "month", Value: month},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: reading query: %w", err)
	}

	var budgets []domain.Budget
	for {
		var row BudgetRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: iterating: %w", err)
		}
		budgets = append(budgets, row.toDomain())
	}

	return budgets, nil
}
