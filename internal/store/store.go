// Package store defines the persistence contract the ledger engine runs on.
// Every engine operation executes inside one unit of work so that balance
// deltas, transaction records and recurring-payment rollovers land together
// or not at all.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

// Store is implemented by the memory, firestore and postgres backends.
type Store interface {
	// Run executes fn atomically. Any error from fn discards every write.
	Run(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View executes fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

type TransactionFilter struct {
	AccountID          string // matches either leg
	CreditID           string
	Kind               models.TransactionKind
	RecurringPaymentID string
	DateFrom           *time.Time
	DateTo             *time.Time
	Limit              int
}

// Tx is the set of reads and writes available inside a unit of work.
//
// Backends that use optimistic transactions (firestore) require every read to
// happen before the first write; callers in this module follow that order.
type Tx interface {
	// Accounts. Lookups are by id across users; callers check ownership.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context, uid string) ([]*models.Account, error)
	CreateAccount(ctx context.Context, a *models.Account) error
	SetDefaultAccount(ctx context.Context, accountID string, isDefault bool) error
	DeleteAccount(ctx context.Context, accountID string) error
	// SetBalance is reserved for the ledger.
	SetBalance(ctx context.Context, accountID string, balance money.Money) error

	// Transactions.
	GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, uid string, filter TransactionFilter) ([]*models.Transaction, error)
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransaction(ctx context.Context, transactionID string) error

	// Recurring payments.
	GetRecurring(ctx context.Context, recurringPaymentID string) (*models.RecurringPayment, error)
	ListRecurring(ctx context.Context, uid string) ([]*models.RecurringPayment, error)
	CreateRecurring(ctx context.Context, p *models.RecurringPayment) error
	UpdateRecurring(ctx context.Context, p *models.RecurringPayment) error
}

// Matches reports whether t passes the filter. Backends that cannot express
// every field in their query language apply it after fetching.
func (f TransactionFilter) Matches(t *models.Transaction) bool {
	if f.AccountID != "" && t.AccountID != f.AccountID && t.ToAccountID != f.AccountID {
		return false
	}
	if f.CreditID != "" && t.CreditID != f.CreditID {
		return false
	}
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.RecurringPaymentID != "" && t.RecurringPaymentID != f.RecurringPaymentID {
		return false
	}
	if f.DateFrom != nil && t.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && t.Date.After(*f.DateTo) {
		return false
	}
	return true
}

// CompareTransactions is the listing order every backend returns: by date,
// then creation time, then id.
func CompareTransactions(a, b *models.Transaction) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.TransactionID, b.TransactionID)
}
