package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/dpaiva/centavo/internal/errs"
)

// StoredBalance re-derives one account's balance entirely in SQL. It
// encodes the same fold as the in-process calculator and exists only as a
// tripwire: the calculator cross-checks itself against this figure and
// logs disagreements.
func (r *Repository) StoredBalance(ctx context.Context, accountID string, asOf civil.Date, includePending bool) (decimal.Decimal, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT a.opening_balance + IFNULL(SUM(
			CASE t.type
				WHEN 'income' THEN IF(t.account_id = a.account_id, t.amount, NUMERIC '0')
				WHEN 'expense' THEN IF(t.account_id = a.account_id, -t.amount, NUMERIC '0')
				WHEN 'transfer' THEN
					IF(t.account_id = a.account_id, -t.amount, NUMERIC '0')
					+ IF(t.destination_account_id = a.account_id, t.amount, NUMERIC '0')
				WHEN 'adjustment' THEN IF(t.account_id = a.account_id, t.amount, NUMERIC '0')
				ELSE NUMERIC '0'
			END
		), NUMERIC '0') AS balance
		FROM %s a
		LEFT JOIN %s t
		  ON (t.account_id = a.account_id OR t.destination_account_id = a.account_id)
		  AND t.transaction_date <= @as_of
		  AND t.card_id IS NULL
		  AND t.goal_id IS NULL
		  AND (t.status = 'confirmed' OR @include_pending)
		WHERE a.account_id = @account_id
		GROUP BY a.opening_balance
	`, r.table(accountsTable), r.table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "as_of", Value: asOf},
		{Name: "include_pending", Value: includePending},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("StoredBalance: reading query: %w", err)
	}

	var row struct {
		Balance *big.Rat `bigquery:"balance"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return decimal.Zero, errs.NotFound("account", accountID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("StoredBalance: iterating: %w", err)
	}

	return fromRat(row.Balance), nil
}
