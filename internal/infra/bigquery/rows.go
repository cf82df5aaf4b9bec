package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/domain"
)

// NUMERIC columns round-trip through *big.Rat; BigQuery NUMERIC carries
// scale 9, which comfortably holds 2dp money.
const numericScale = 9

func toRat(d decimal.Decimal) *big.Rat {
	return d.Rat()
}

func fromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(r, numericScale)
}

func nullStr(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func strVal(s bigquery.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.StringVal
}

type AccountRow struct {
	AccountID      string   `bigquery:"account_id"`
	UserID         string   `bigquery:"user_id"`
	Name           string   `bigquery:"name"`
	OpeningBalance *big.Rat `bigquery:"opening_balance"`
	IncludeInTotal bool     `bigquery:"include_in_total"`
	Archived       bool     `bigquery:"archived"`
}

func (r *AccountRow) toDomain() domain.Account {
	return domain.Account{
		ID:             r.AccountID,
		UserID:         r.UserID,
		Name:           r.Name,
		OpeningBalance: fromRat(r.OpeningBalance),
		IncludeInTotal: r.IncludeInTotal,
		Archived:       r.Archived,
	}
}

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"`
	UserID        string `bigquery:"user_id"`
	Type          string `bigquery:"type"`
	Status        string `bigquery:"status"`

	Description bigquery.NullString `bigquery:"description"`
	Category    bigquery.NullString `bigquery:"category"`

	Amount          *big.Rat   `bigquery:"amount"`
	TransactionDate civil.Date `bigquery:"transaction_date"`

	AccountID            bigquery.NullString `bigquery:"account_id"`
	DestinationAccountID bigquery.NullString `bigquery:"destination_account_id"`
	CardID               bigquery.NullString `bigquery:"card_id"`
	InvoiceID            bigquery.NullString `bigquery:"invoice_id"`
	InstallmentGroupID   bigquery.NullString `bigquery:"installment_group_id"`
	InstallmentNumber    bigquery.NullInt64  `bigquery:"installment_number"`
	RecurrenceID         bigquery.NullString `bigquery:"recurrence_id"`
	GoalID               bigquery.NullString `bigquery:"goal_id"`
}

func (r *TransactionRow) toDomain() domain.Transaction {
	tx := domain.Transaction{
		ID:                   r.TransactionID,
		UserID:               r.UserID,
		Type:                 domain.TransactionType(r.Type),
		Status:               domain.TransactionStatus(r.Status),
		Description:          strVal(r.Description),
		Category:             strVal(r.Category),
		Amount:               fromRat(r.Amount),
		Date:                 r.TransactionDate,
		AccountID:            strVal(r.AccountID),
		DestinationAccountID: strVal(r.DestinationAccountID),
		CardID:               strVal(r.CardID),
		InvoiceID:            strVal(r.InvoiceID),
		InstallmentGroupID:   strVal(r.InstallmentGroupID),
		RecurrenceID:         strVal(r.RecurrenceID),
		GoalID:               strVal(r.GoalID),
	}
	if r.InstallmentNumber.Valid {
		tx.InstallmentNumber = int(r.InstallmentNumber.Int64)
	}
	return tx
}

type CardRow struct {
	CardID      string   `bigquery:"card_id"`
	UserID      string   `bigquery:"user_id"`
	Name        string   `bigquery:"name"`
	ClosingDay  int64    `bigquery:"closing_day"`
	DueDay      int64    `bigquery:"due_day"`
	CreditLimit *big.Rat `bigquery:"credit_limit"`
}

func (r *CardRow) toDomain() domain.CreditCard {
	return domain.CreditCard{
		ID:          r.CardID,
		UserID:      r.UserID,
		Name:        r.Name,
		ClosingDay:  int(r.ClosingDay),
		DueDay:      int(r.DueDay),
		CreditLimit: fromRat(r.CreditLimit),
	}
}

type InvoiceRow struct {
	InvoiceID      string     `bigquery:"invoice_id"`
	CardID         string     `bigquery:"card_id"`
	UserID         string     `bigquery:"user_id"`
	ReferenceMonth civil.Date `bigquery:"reference_month"`
	Status         string     `bigquery:"status"`
	Total          *big.Rat   `bigquery:"total"`
	DueDate        civil.Date `bigquery:"due_date"`
}

func (r *InvoiceRow) toDomain() domain.Invoice {
	return domain.Invoice{
		ID:             r.InvoiceID,
		CardID:         r.CardID,
		UserID:         r.UserID,
		ReferenceMonth: r.ReferenceMonth,
		Status:         domain.InvoiceStatus(r.Status),
		Total:          fromRat(r.Total),
		DueDate:        r.DueDate,
	}
}

type InstallmentGroupRow struct {
	GroupID             string              `bigquery:"group_id"`
	UserID              string              `bigquery:"user_id"`
	Description         string              `bigquery:"description"`
	Category            bigquery.NullString `bigquery:"category"`
	InstallmentAmount   *big.Rat            `bigquery:"installment_amount"`
	TotalAmount         *big.Rat            `bigquery:"total_amount"`
	TotalInstallments   int64               `bigquery:"total_installments"`
	StartingInstallment int64               `bigquery:"starting_installment"`
	FirstDate           civil.Date          `bigquery:"first_date"`
	Frequency           string              `bigquery:"frequency"`
	AccountID           bigquery.NullString `bigquery:"account_id"`
	CardID              bigquery.NullString `bigquery:"card_id"`
}

func (r *InstallmentGroupRow) toDomain() domain.InstallmentGroup {
	return domain.InstallmentGroup{
		ID:                  r.GroupID,
		UserID:              r.UserID,
		Description:         r.Description,
		Category:            strVal(r.Category),
		InstallmentAmount:   fromRat(r.InstallmentAmount),
		TotalAmount:         fromRat(r.TotalAmount),
		TotalInstallments:   int(r.TotalInstallments),
		StartingInstallment: int(r.StartingInstallment),
		FirstDate:           r.FirstDate,
		Frequency:           datemath.Frequency(r.Frequency),
		AccountID:           strVal(r.AccountID),
		CardID:              strVal(r.CardID),
	}
}

type RecurrenceRow struct {
	RecurrenceID   string              `bigquery:"recurrence_id"`
	UserID         string              `bigquery:"user_id"`
	Description    string              `bigquery:"description"`
	Category       bigquery.NullString `bigquery:"category"`
	Type           string              `bigquery:"type"`
	Amount         *big.Rat            `bigquery:"amount"`
	Frequency      string              `bigquery:"frequency"`
	StartDate      civil.Date          `bigquery:"start_date"`
	EndDate        bigquery.NullDate   `bigquery:"end_date"`
	Active         bool                `bigquery:"active"`
	NextOccurrence bigquery.NullDate   `bigquery:"next_occurrence"`
	AccountID      bigquery.NullString `bigquery:"account_id"`
	CardID         bigquery.NullString `bigquery:"card_id"`
}

func (r *RecurrenceRow) toDomain() domain.Recurrence {
	rec := domain.Recurrence{
		ID:          r.RecurrenceID,
		UserID:      r.UserID,
		Description: r.Description,
		Category:    strVal(r.Category),
		Type:        domain.TransactionType(r.Type),
		Amount:      fromRat(r.Amount),
		Frequency:   datemath.Frequency(r.Frequency),
		StartDate:   r.StartDate,
		Active:      r.Active,
		AccountID:   strVal(r.AccountID),
		CardID:      strVal(r.CardID),
	}
	if r.EndDate.Valid {
		end := r.EndDate.Date
		rec.EndDate = &end
	}
	if r.NextOccurrence.Valid {
		rec.NextOccurrence = r.NextOccurrence.Date
	}
	return rec
}

type GoalRow struct {
	GoalID        string              `bigquery:"goal_id"`
	UserID        string              `bigquery:"user_id"`
	Name          string              `bigquery:"name"`
	CurrentAmount *big.Rat            `bigquery:"current_amount"`
	TargetAmount  *big.Rat            `bigquery:"target_amount"`
	Deadline      bigquery.NullDate   `bigquery:"deadline"`
	AccountID     bigquery.NullString `bigquery:"account_id"`
}

func (r *GoalRow) toDomain() domain.SavingsGoal {
	g := domain.SavingsGoal{
		ID:            r.GoalID,
		UserID:        r.UserID,
		Name:          r.Name,
		CurrentAmount: fromRat(r.CurrentAmount),
		AccountID:     strVal(r.AccountID),
	}
	if r.TargetAmount != nil {
		target := fromRat(r.TargetAmount)
		g.TargetAmount = &target
	}
	if r.Deadline.Valid {
		deadline := r.Deadline.Date
		g.Deadline = &deadline
	}
	return g
}

type BudgetRow struct {
	BudgetID string     `bigquery:"budget_id"`
	UserID   string     `bigquery:"user_id"`
	Category string     `bigquery:"category"`
	Amount   *big.Rat   `bigquery:"amount"`
	Month    civil.Date `bigquery:"month"`
}

func (r *BudgetRow) toDomain() domain.Budget {
	return domain.Budget{
		ID:       r.BudgetID,
		UserID:   r.UserID,
		Category: r.Category,
		Amount:   fromRat(r.Amount),
		Month:    r.Month,
	}
}
