// Package ledger turns raw transaction records into trustworthy balances
// and credit-card exposure figures.
package ledger

import (
	"context"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/domain"
	"github.com/dpaiva/centavo/internal/errs"
	"github.com/dpaiva/centavo/internal/store"
)

// Balance computes the account's balance as of the given date (inclusive).
//
// The fold is commutative, so input order is irrelevant: income adds,
// expense subtracts, a transfer subtracts from its source and adds to its
// destination, an adjustment credits its account. Card purchases belong to
// invoice math and savings-goal movements are internal, so both are
// excluded. Pending rows only count when includePending is set. An unknown
// transaction type is an error, never a silent skip.
func Balance(acct domain.Account, txs []domain.Transaction, asOf civil.Date, includePending bool) (decimal.Decimal, error) {
	total := acct.OpeningBalance

	for _, tx := range txs {
		if tx.Date.After(asOf) {
			continue
		}
		if tx.Status == domain.StatusPending && !includePending {
			continue
		}
		if tx.IsCardPurchase() || tx.IsGoalMovement() {
			continue
		}

		switch tx.Type {
		case domain.TypeIncome:
			if tx.AccountID == acct.ID {
				total = total.Add(tx.Amount)
			}
		case domain.TypeExpense:
			if tx.AccountID == acct.ID {
				total = total.Sub(tx.Amount)
			}
		case domain.TypeTransfer:
			if tx.AccountID == acct.ID {
				total = total.Sub(tx.Amount)
			}
			if tx.DestinationAccountID == acct.ID {
				total = total.Add(tx.Amount)
			}
		case domain.TypeAdjustment:
			if tx.AccountID == acct.ID {
				total = total.Add(tx.Amount)
			}
		default:
			return decimal.Zero, errs.Validation("unknown transaction type %q on transaction %s", tx.Type, tx.ID)
		}
	}

	return total, nil
}

// BalanceResult is one account's computed balance.
type BalanceResult struct {
	AccountID      string          `json:"account_id"`
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	IncludeInTotal bool            `json:"include_in_total"`
}

// Calculator computes balances against the storage collaborator. When a
// stored balance function is configured, each result is cross-checked
// against it and a mismatch is logged, keeping the two definitions from
// drifting apart silently.
type Calculator struct {
	txs     store.TransactionStore
	stored  store.BalanceFunction // optional
	log     zerolog.Logger
	maxPar  int
}

// NewCalculator creates a Calculator. stored may be nil.
func NewCalculator(txs store.TransactionStore, stored store.BalanceFunction, log zerolog.Logger) *Calculator {
	return &Calculator{txs: txs, stored: stored, log: log, maxPar: 8}
}

// ComputeAccountBalances computes every non-archived account's balance as
// of asOf. Per-account reads are independent and run concurrently. A
// failed read fails the whole computation: a wrong balance is worse than
// no balance.
func (c *Calculator) ComputeAccountBalances(ctx context.Context, accounts []domain.Account, asOf civil.Date, includePending bool) ([]BalanceResult, error) {
	type slot struct {
		result BalanceResult
		err    error
		ok     bool
	}

	slots := make([]slot, len(accounts))
	sem := make(chan struct{}, c.maxPar)
	var wg sync.WaitGroup

	for i, acct := range accounts {
		if acct.Archived {
			continue
		}
		wg.Add(1)
		go func(i int, acct domain.Account) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			txs, err := c.txs.ListTransactions(ctx, store.TransactionFilter{
				UserID:    acct.UserID,
				AccountID: acct.ID,
				To:        asOf,
			})
			if err != nil {
				slots[i] = slot{err: errs.Upstream("listing transactions for account "+acct.ID, err)}
				return
			}

			balance, err := Balance(acct, txs, asOf, includePending)
			if err != nil {
				slots[i] = slot{err: err}
				return
			}

			c.crossCheck(ctx, acct.ID, balance, asOf, includePending)

			slots[i] = slot{
				result: BalanceResult{
					AccountID:      acct.ID,
					Name:           acct.Name,
					Balance:        balance,
					IncludeInTotal: acct.IncludeInTotal,
				},
				ok: true,
			}
		}(i, acct)
	}
	wg.Wait()

	results := make([]BalanceResult, 0, len(accounts))
	for _, s := range slots {
		if s.err != nil {
			return nil, s.err
		}
		if s.ok {
			results = append(results, s.result)
		}
	}
	return results, nil
}

// crossCheck compares the computed balance against the store's balance
// function. Disagreement is logged, not fatal: the pure calculation is the
// source of truth and the stored function is only a tripwire.
func (c *Calculator) crossCheck(ctx context.Context, accountID string, computed decimal.Decimal, asOf civil.Date, includePending bool) {
	if c.stored == nil {
		return
	}
	storedVal, err := c.stored.StoredBalance(ctx, accountID, asOf, includePending)
	if err != nil {
		c.log.Warn().Err(err).Str("account_id", accountID).Msg("Stored balance cross-check unavailable")
		return
	}
	if !storedVal.Equal(computed) {
		c.log.Error().
			Str("account_id", accountID).
			Str("computed", computed.String()).
			Str("stored", storedVal.String()).
			Msg("Balance cross-check mismatch")
	}
}

// LiquidTotal sums the balances of accounts flagged include-in-total.
func LiquidTotal(results []BalanceResult) decimal.Decimal {
	total := decimal.Zero
	for _, r := range results {
		if r.IncludeInTotal {
			total = total.Add(r.Balance)
		}
	}
	return total
}
