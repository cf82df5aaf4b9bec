package bigquery

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
	"github.com/dpaiva/centavo/internal/store"
)

const transactionColumns = `
	transaction_id,
	user_id,
	type,
	status,
	description,
	category,
	amount,
	transaction_date,
	account_id,
	destination_account_id,
	card_id,
	invoice_id,
	installment_group_id,
	installment_number,
	recurrence_id,
	goal_id`

// ListTransactions retrieves transactions matching the filter, ordered by
// date then ID so reads are stable across retries.
func (r *Repository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]domain.Transaction, error) {
	conditions := []string{"TRUE"}
	var params []bigquery.QueryParameter

	if f.UserID != "" {
		conditions = append(conditions, "user_id = @user_id")
		params = append(params, bigquery.QueryParameter{Name: "user_id", Value: f.UserID})
	}
	if f.AccountID != "" {
		conditions = append(conditions, "(account_id = @account_id OR destination_account_id = @account_id)")
		params = append(params, bigquery.QueryParameter{Name: "account_id", Value: f.AccountID})
	}
	if f.CardID != "" {
		conditions = append(conditions, "card_id = @card_id")
		params = append(params, bigquery.QueryParameter{Name: "card_id", Value: f.CardID})
	}
	if f.InstallmentGroupID != "" {
		conditions = append(conditions, "installment_group_id = @group_id")
		params = append(params, bigquery.QueryParameter{Name: "group_id", Value: f.InstallmentGroupID})
	}
	if f.Status != "" {
		conditions = append(conditions, "status = @status")
		params = append(params, bigquery.QueryParameter{Name: "status", Value: string(f.Status)})
	}
	if f.From.IsValid() {
		conditions = append(conditions, "transaction_date >= @from_date")
		params = append(params, bigquery.QueryParameter{Name: "from_date", Value: f.From})
	}
	if f.To.IsValid() {
		conditions = append(conditions, "transaction_date <= @to_date")
		params = append(params, bigquery.QueryParameter{Name: "to_date", Value: f.To})
	}
	if f.OrphansOnly {
		conditions = append(conditions, "card_id IS NOT NULL AND invoice_id IS NULL")
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY transaction_date, transaction_id
	`, transactionColumns, r.table(transactionsTable), strings.Join(conditions, "\n\t\t  AND ")))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: reading query: %w", err)
	}

	var txs []domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iterating: %w", err)
		}
		txs = append(txs, row.toDomain())
	}

	return txs, nil
}

func transactionParams(tx domain.Transaction) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "transaction_id", Value: tx.ID},
		{Name: "user_id", Value: tx.UserID},
		{Name: "type", Value: string(tx.Type)},
		{Name: "status", Value: string(tx.Status)},
		{Name: "description", Value: nullStr(tx.Description)},
		{Name: "category", Value: nullStr(tx.Category)},
		{Name: "amount", Value: toRat(tx.Amount)},
		{Name: "transaction_date", Value: tx.Date},
		{Name: "account_id", Value: nullStr(tx.AccountID)},
		{Name: "destination_account_id", Value: nullStr(tx.DestinationAccountID)},
		{Name: "card_id", Value: nullStr(tx.CardID)},
		{Name: "invoice_id", Value: nullStr(tx.InvoiceID)},
		{Name: "installment_group_id", Value: nullStr(tx.InstallmentGroupID)},
		{Name: "installment_number", Value: bigquery.NullInt64{Int64: int64(tx.InstallmentNumber), Valid: tx.InstallmentNumber != 0}},
		{Name: "recurrence_id", Value: nullStr(tx.RecurrenceID)},
		{Name: "goal_id", Value: nullStr(tx.GoalID)},
	}
}

const transactionInsertList = `(
			transaction_id, user_id, type, status,
			description, category, amount, transaction_date,
			account_id, destination_account_id, card_id, invoice_id,
			installment_group_id, installment_number, recurrence_id, goal_id
		)
		VALUES (
			@transaction_id, @user_id, @type, @status,
			@description, @category, @amount, @transaction_date,
			@account_id, @destination_account_id, @card_id, @invoice_id,
			@installment_group_id, @installment_number, @recurrence_id, @goal_id
		)`

// InsertTransaction inserts one transaction row.
func (r *Repository) InsertTransaction(ctx context.Context, tx domain.Transaction) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s %s
	`, r.table(transactionsTable), transactionInsertList))
	q.Parameters = transactionParams(tx)

	if _, err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// UpsertInstallmentTransaction inserts tx unless a row for the same
// (user, installment group, installment number) already exists. The MERGE
// makes retries of a partially applied installment schedule no-ops instead
// of duplicate rows.
func (r *Repository) UpsertInstallmentTransaction(ctx context.Context, tx domain.Transaction) error {
	if tx.InstallmentGroupID == "" || tx.InstallmentNumber < 1 {
		return errs.Validation("installment upsert needs a group and a positive number")
	}

	q := r.client.Query(fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @user_id AS user_id, @installment_group_id AS installment_group_id, @installment_number AS installment_number) s
		ON t.user_id = s.user_id
		  AND t.installment_group_id = s.installment_group_id
		  AND t.installment_number = s.installment_number
		WHEN NOT MATCHED THEN
		INSERT %s
	`, r.table(transactionsTable), transactionInsertList))
	q.Parameters = transactionParams(tx)

	if _, err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("UpsertInstallmentTransaction: %w", err)
	}
	return nil
}

// UpdateTransaction rewrites all mutable columns of one row.
func (r *Repository) UpdateTransaction(ctx context.Context, tx domain.Transaction) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET
			type = @type,
			status = @status,
			description = @description,
			category = @category,
			amount = @amount,
			transaction_date = @transaction_date,
			account_id = @account_id,
			destination_account_id = @destination_account_id,
			card_id = @card_id,
			invoice_id = @invoice_id,
			installment_group_id = @installment_group_id,
			installment_number = @installment_number,
			recurrence_id = @recurrence_id,
			goal_id = @goal_id
		WHERE transaction_id = @transaction_id
	`, r.table(transactionsTable)))
	q.Parameters = transactionParams(tx)

	affected, err := r.runDML(ctx, q)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if affected == 0 {
		return errs.NotFound("transaction", tx.ID)
	}
	return nil
}

// DeleteTransaction removes one row by ID. Deleting an absent row is not
// an error; deletes are retried by callers.
func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	q := r.client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE transaction_id = @transaction_id
	`, r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	}

	if _, err := r.runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}
