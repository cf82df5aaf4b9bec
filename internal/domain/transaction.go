package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/errs"
)

// TransactionType is the closed set of ledger movement kinds. Anything else
// is rejected at validation time, never silently ignored.
type TransactionType string

const (
	TypeIncome     TransactionType = "income"
	TypeExpense    TransactionType = "expense"
	TypeTransfer   TransactionType = "transfer"
	TypeAdjustment TransactionType = "adjustment"
)

// TransactionStatus is the settlement state. Only confirmed transactions
// count toward real balances; pending ones count toward projections.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusConfirmed TransactionStatus = "confirmed"
)

// Transaction is one ledger movement. Amount is always non-negative; the
// type carries the direction. Optional links tie the row to a card invoice,
// an installment group, a recurrence or a savings goal, and those links
// decide which aggregates the row participates in:
//
//   - CardID set: the row belongs to invoice math and is excluded from
//     account-balance math entirely.
//   - GoalID set: the row is an internal movement and is excluded from
//     income/expense aggregates to avoid double counting.
type Transaction struct {
	ID          string
	UserID      string
	Type        TransactionType
	Status      TransactionStatus
	Description string
	Category    string
	Amount      decimal.Decimal
	Date        civil.Date

	AccountID            string
	DestinationAccountID string // transfers only
	CardID               string
	InvoiceID            string
	InstallmentGroupID   string
	InstallmentNumber    int // 1-based within its group
	RecurrenceID         string
	GoalID               string
}

// Validate checks the per-variant required fields of the tagged union.
func (t Transaction) Validate() error {
	if t.Amount.IsNegative() {
		return errs.Validation("transaction amount must be non-negative, got %s", t.Amount)
	}
	if t.Status != StatusPending && t.Status != StatusConfirmed {
		return errs.Validation("unknown transaction status %q", t.Status)
	}
	switch t.Type {
	case TypeIncome, TypeExpense:
		if t.AccountID == "" && t.CardID == "" {
			return errs.Validation("%s transaction needs an account or a card", t.Type)
		}
	case TypeTransfer:
		if t.AccountID == "" || t.DestinationAccountID == "" {
			return errs.Validation("transfer needs both source and destination accounts")
		}
		if t.AccountID == t.DestinationAccountID {
			return errs.Validation("transfer source and destination must differ")
		}
		if t.CardID != "" {
			return errs.Validation("transfer cannot be linked to a credit card")
		}
	case TypeAdjustment:
		if t.AccountID == "" {
			return errs.Validation("adjustment needs an account")
		}
	default:
		return errs.Validation("unknown transaction type %q", t.Type)
	}
	return nil
}

// IsCardPurchase reports whether the row belongs to invoice math.
func (t Transaction) IsCardPurchase() bool {
	return t.CardID != ""
}

// IsGoalMovement reports whether the row is a savings-goal internal move.
func (t Transaction) IsGoalMovement() bool {
	return t.GoalID != ""
}

// Recurrence is a template that produces one new transaction per interval.
type Recurrence struct {
	ID          string
	UserID      string
	Description string
	Category    string
	Type        TransactionType // income or expense
	Amount      decimal.Decimal
	Frequency   datemath.Frequency
	StartDate   civil.Date
	EndDate     *civil.Date
	Active      bool
	// NextOccurrence caches the next date the template will produce.
	// Zero until the recurrence has generated its first transaction.
	NextOccurrence civil.Date
	AccountID      string
	CardID         string
}

// Validate rejects malformed recurrence templates.
func (r Recurrence) Validate() error {
	if r.Type != TypeIncome && r.Type != TypeExpense {
		return errs.Validation("recurrence type must be income or expense, got %q", r.Type)
	}
	if !r.Amount.IsPositive() {
		return errs.Validation("recurrence amount must be positive")
	}
	if !r.Frequency.Valid() {
		return errs.Validation("unknown recurrence frequency %q", r.Frequency)
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return errs.Validation("recurrence end date precedes start date")
	}
	return nil
}
