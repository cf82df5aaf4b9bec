// Package bigquery persists the ledger in BigQuery. All writes go through
// parameterized DML so they compose with deletes and updates; the streaming
// inserter is avoided because rows in the streaming buffer reject DML.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dpaiva/centavo/internal/store"
)

const (
	accountsTable          = "accounts"
	transactionsTable      = "transactions"
	cardsTable             = "credit_cards"
	invoicesTable          = "invoices"
	installmentGroupsTable = "installment_groups"
	recurrencesTable       = "recurrences"
	goalsTable             = "savings_goals"
	budgetsTable           = "budgets"
)

// Repository implements store.Ledger on top of a shared BigQuery client.
// The client is owned by the caller and closed by the caller.
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewRepository creates a Repository over the given client and dataset.
func NewRepository(client *bigquery.Client, projectID, datasetID string) *Repository {
	return &Repository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}
}

// table returns the fully qualified, backtick-quoted table name.
func (r *Repository) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", r.projectID, r.datasetID, name)
}

// runDML runs a DML query to completion and returns the affected row count.
func (r *Repository) runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	var affected int64
	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			affected = qs.NumDMLAffectedRows
		}
	}
	return affected, nil
}

// Ensure Repository implements the full storage collaborator.
var _ store.Ledger = (*Repository)(nil)
var _ store.BalanceFunction = (*Repository)(nil)
