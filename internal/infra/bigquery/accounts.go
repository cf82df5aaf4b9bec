package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
)

const accountColumns = `
	account_id,
	user_id,
	name,
	opening_balance,
	include_in_total,
	archived`

// ListAccounts retrieves every account belonging to the user, archived
// ones included; callers decide what to skip.
func (r *Repository) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY name
	`, accountColumns, r.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: reading query: %w", err)
	}

	var accounts []domain.Account
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: iterating: %w", err)
		}
		accounts = append(accounts, row.toDomain())
	}

	return accounts, nil
}

// GetAccount retrieves one account by ID.
func (r *Repository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE account_id = @account_id
		LIMIT 1
	`, accountColumns, r.table(accountsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: reading query: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, errs.NotFound("account", id)
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccount: iterating: %w", err)
	}

	account := row.toDomain()
	return &account, nil
}
