// Package store defines the storage-collaborator interfaces the engine
// computes over. The engine assumes filtered CRUD with at most per-row
// consistency; implementations live in internal/infra.
package store

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dpaiva/centavo/internal/domain"
)

// TransactionFilter narrows a transaction read. Zero values mean "any".
type TransactionFilter struct {
	UserID             string
	AccountID          string
	CardID             string
	InstallmentGroupID string
	Status             domain.TransactionStatus
	From               civil.Date // inclusive, zero = open
	To                 civil.Date // inclusive, zero = open
	OrphansOnly        bool       // card rows with no invoice yet
}

// AccountReader reads accounts.
type AccountReader interface {
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
}

// TransactionStore reads and writes transactions.
type TransactionStore interface {
	ListTransactions(ctx context.Context, f TransactionFilter) ([]domain.Transaction, error)
	InsertTransaction(ctx context.Context, tx domain.Transaction) error
	// UpsertInstallmentTransaction inserts tx keyed on
	// (user, installment group, installment number): insert if absent,
	// else no-op. When the uniqueness guarantee is unavailable it degrades
	// to a plain insert and reports a duplicate as errs.Conflict.
	UpsertInstallmentTransaction(ctx context.Context, tx domain.Transaction) error
	UpdateTransaction(ctx context.Context, tx domain.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// CardStore reads cards and their invoices.
type CardStore interface {
	GetCard(ctx context.Context, id string) (*domain.CreditCard, error)
	ListCards(ctx context.Context, userID string) ([]domain.CreditCard, error)
	ListInvoices(ctx context.Context, cardID string) ([]domain.Invoice, error)
}

// InstallmentGroupStore reads and writes installment groups.
type InstallmentGroupStore interface {
	GetInstallmentGroup(ctx context.Context, id string) (*domain.InstallmentGroup, error)
	ListInstallmentGroups(ctx context.Context, userID string) ([]domain.InstallmentGroup, error)
	InsertInstallmentGroup(ctx context.Context, g domain.InstallmentGroup) error
	UpdateInstallmentGroup(ctx context.Context, g domain.InstallmentGroup) error
	DeleteInstallmentGroup(ctx context.Context, id string) error
}

// RecurrenceStore reads and writes recurrence templates.
type RecurrenceStore interface {
	ListRecurrences(ctx context.Context, userID string) ([]domain.Recurrence, error)
	UpdateRecurrence(ctx context.Context, r domain.Recurrence) error
}

// GoalStore reads savings goals.
type GoalStore interface {
	ListGoals(ctx context.Context, userID string) ([]domain.SavingsGoal, error)
}

// BudgetStore reads budgets.
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID string, month civil.Date) ([]domain.Budget, error)
}

// BalanceFunction is the store-side equivalent of the balance calculator,
// usable as a cross-check so the two definitions cannot drift silently.
type BalanceFunction interface {
	StoredBalance(ctx context.Context, accountID string, asOf civil.Date, includePending bool) (decimal.Decimal, error)
}

// Ledger is the full storage collaborator.
type Ledger interface {
	AccountReader
	TransactionStore
	CardStore
	InstallmentGroupStore
	RecurrenceStore
	GoalStore
	BudgetStore
}
