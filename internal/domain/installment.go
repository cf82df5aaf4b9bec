package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/datemath"
	"github.com/dpaiva/centavo/internal/errs"
)

// InstallmentGroup is one purchase split into dated, individually
// confirmable installments. The group owns its child transactions, each
// carrying a 1-based installment number.
//
// StartingInstallment is the number from which tracked parcels begin;
// earlier numbers were already paid before the group was recorded and
// carry no transaction. After any edit the child numbers form exactly the
// contiguous range [StartingInstallment, TotalInstallments], and
// TotalAmount == InstallmentAmount × number of children.
type InstallmentGroup struct {
	ID                  string
	UserID              string
	Description         string
	Category            string
	InstallmentAmount   decimal.Decimal
	TotalAmount         decimal.Decimal
	TotalInstallments   int
	StartingInstallment int
	FirstDate           civil.Date // date of the starting installment
	Frequency           datemath.Frequency
	AccountID           string
	CardID              string
}

// TrackedCount is the number of transaction-backed installments.
func (g InstallmentGroup) TrackedCount() int {
	return g.TotalInstallments - g.StartingInstallment + 1
}

// Validate rejects malformed groups.
func (g InstallmentGroup) Validate() error {
	if g.Description == "" {
		return errs.Validation("installment group needs a description")
	}
	if g.TotalInstallments < 1 {
		return errs.Validation("total installments must be at least 1, got %d", g.TotalInstallments)
	}
	if g.StartingInstallment < 1 {
		return errs.Validation("starting installment must be at least 1, got %d", g.StartingInstallment)
	}
	if g.StartingInstallment > g.TotalInstallments {
		return errs.Validation("starting installment %d exceeds total %d",
			g.StartingInstallment, g.TotalInstallments)
	}
	if !g.InstallmentAmount.IsPositive() {
		return errs.Validation("installment amount must be positive")
	}
	if !g.Frequency.Valid() {
		return errs.Validation("unknown installment frequency %q", g.Frequency)
	}
	if g.AccountID == "" && g.CardID == "" {
		return errs.Validation("installment group needs an account or a card")
	}
	return nil
}
