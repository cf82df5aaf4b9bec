package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
)

const cardColumns = `
	card_id,
	user_id,
	name,
	closing_day,
	due_day,
	credit_limit`

// GetCard retrieves one credit card by ID.
func (r *Repository) GetCard(ctx context.Context, id string) (*domain.CreditCard, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE card_id = @card_id
		LIMIT 1
	`, cardColumns, r.table(cardsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "card_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetCard: reading query: %w", err)
	}

	var row CardRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, errs.NotFound("card", id)
	}
	if err != nil {
		return nil, fmt.Errorf("GetCard: iterating: %w", err)
	}

	card := row.toDomain()
	return &card, nil
}

// ListCards retrieves every credit card belonging to the user.
func (r *Repository) ListCards(ctx context.Context, userID string) ([]domain.CreditCard, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY name
	`, cardColumns, r.table(cardsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCards: reading query: %w", err)
	}

	var cards []domain.CreditCard
	for {
		var row CardRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCards: iterating: %w", err)
		}
		cards = append(cards, row.toDomain())
	}

	return cards, nil
}

// ListInvoices retrieves every invoice of one card, newest month first.
func (r *Repository) ListInvoices(ctx context.Context, cardID string) ([]domain.Invoice, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			invoice_id,
			card_id,
			user_id,
			reference_month,
			status,
			total,
			due_date
		FROM %s
		WHERE card_id = @card_id
		ORDER BY reference_month DESC
	`, r.table(invoicesTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "card_id", Value: cardID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListInvoices: reading query: %w", err)
	}

	var invoices []domain.Invoice
	for {
		var row InvoiceRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListInvoices: iterating: %w", err)
		}
		invoices = append(invoices, row.toDomain())
	}

	return invoices, nil
}
