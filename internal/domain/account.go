package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/errs"
)

// Account is a real-money account (checking, savings, cash).
// Archived accounts never contribute to balances or projections.
type Account struct {
	ID             string
	UserID         string
	Name           string
	OpeningBalance decimal.Decimal
	IncludeInTotal bool
	Archived       bool
}

// CreditCard groups purchases into monthly invoices bounded by ClosingDay.
type CreditCard struct {
	ID          string
	UserID      string
	Name        string
	ClosingDay  int // 1-31, partitions the calendar into billing months
	DueDay      int // 1-31
	CreditLimit decimal.Decimal
}

// Validate rejects malformed card definitions.
func (c CreditCard) Validate() error {
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return errs.Validation("card closing day must be 1-31, got %d", c.ClosingDay)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return errs.Validation("card due day must be 1-31, got %d", c.DueDay)
	}
	if c.CreditLimit.IsNegative() {
		return errs.Validation("card credit limit must be non-negative")
	}
	return nil
}

// InvoiceStatus is the lifecycle state of a card invoice.
type InvoiceStatus string

const (
	InvoiceOpen   InvoiceStatus = "open"
	InvoiceClosed InvoiceStatus = "closed"
	InvoicePaid   InvoiceStatus = "paid"
)

// Invoice is one card's bill for one reference month. At most one open
// invoice exists per (card, reference month).
type Invoice struct {
	ID             string
	CardID         string
	UserID         string
	ReferenceMonth civil.Date // first day of the billing month
	Status         InvoiceStatus
	Total          decimal.Decimal
	DueDate        civil.Date
}

// SavingsGoal is a ring-fenced sub-balance, optionally linked to a real
// account. CurrentAmount only moves through deposit/withdraw operations
// that also move the linked account.
type SavingsGoal struct {
	ID            string
	UserID        string
	Name          string
	CurrentAmount decimal.Decimal
	TargetAmount  *decimal.Decimal
	Deadline      *civil.Date
	AccountID     string
}

// Progress returns completion as a fraction of the target, or 0 when no
// target is set.
func (g SavingsGoal) Progress() decimal.Decimal {
	if g.TargetAmount == nil || g.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return g.CurrentAmount.Div(*g.TargetAmount)
}

// Budget caps one category's spending inside one month window.
type Budget struct {
	ID       string
	UserID   string
	Category string
	Amount   decimal.Decimal
	Month    civil.Date // first day of the budgeted month
}
