// Package memory is an in-process store. A unit of work runs against a copy
// of the state that replaces the live state only when the work succeeds, and
// a single writer lock serializes units of work.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

var errReadOnly = errors.New("memory store: write attempted in read-only view")

type state struct {
	accounts  map[string]models.Account
	txs       map[string]models.Transaction
	recurring map[string]models.RecurringPayment
}

func (s *state) clone() *state {
	return &state{
		accounts:  maps.Clone(s.accounts),
		txs:       maps.Clone(s.txs),
		recurring: maps.Clone(s.recurring),
	}
}

type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		accounts:  make(map[string]models.Account),
		txs:       make(map[string]models.Transaction),
		recurring: make(map[string]models.RecurringPayment),
	}}
}

func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, &memTx{st: work, writable: true}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &memTx{st: s.st})
}

func (s *Store) Close() error { return nil }

type memTx struct {
	st       *state
	writable bool
}

func (t *memTx) write() error {
	if !t.writable {
		return errReadOnly
	}
	return nil
}

// --- accounts ---

func (t *memTx) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	a, ok := t.st.accounts[accountID]
	if !ok {
		return nil, errs.NewNotFoundError("account not found")
	}
	return &a, nil
}

func (t *memTx) ListAccounts(_ context.Context, uid string) ([]*models.Account, error) {
	out := make([]*models.Account, 0)
	for _, a := range t.st.accounts {
		if a.UserID == uid {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *models.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.AccountID, b.AccountID)
	})
	return out, nil
}

func (t *memTx) CreateAccount(_ context.Context, a *models.Account) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, exists := t.st.accounts[a.AccountID]; exists {
		return errs.NewValidationError("account " + a.AccountID + " already exists")
	}
	t.st.accounts[a.AccountID] = *a
	return nil
}

func (t *memTx) SetDefaultAccount(_ context.Context, accountID string, isDefault bool) error {
	if err := t.write(); err != nil {
		return err
	}
	a, ok := t.st.accounts[accountID]
	if !ok {
		return errs.NewNotFoundError("account not found")
	}
	a.IsDefault = isDefault
	t.st.accounts[accountID] = a
	return nil
}

func (t *memTx) DeleteAccount(_ context.Context, accountID string) error {
	if err := t.write(); err != nil {
		return err
	}
	delete(t.st.accounts, accountID)
	return nil
}

func (t *memTx) SetBalance(_ context.Context, accountID string, balance money.Money) error {
	if err := t.write(); err != nil {
		return err
	}
	a, ok := t.st.accounts[accountID]
	if !ok {
		return errs.NewNotFoundError("account not found")
	}
	a.Balance = balance
	t.st.accounts[accountID] = a
	return nil
}

// --- transactions ---

func (t *memTx) GetTransaction(_ context.Context, transactionID string) (*models.Transaction, error) {
	tr, ok := t.st.txs[transactionID]
	if !ok {
		return nil, errs.NewNotFoundError("transaction not found")
	}
	return &tr, nil
}

func (t *memTx) ListTransactions(_ context.Context, uid string, filter store.TransactionFilter) ([]*models.Transaction, error) {
	out := make([]*models.Transaction, 0)
	for _, tr := range t.st.txs {
		if tr.UserID == uid && filter.Matches(&tr) {
			out = append(out, &tr)
		}
	}
	slices.SortFunc(out, store.CompareTransactions)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *memTx) CreateTransaction(_ context.Context, tr *models.Transaction) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, exists := t.st.txs[tr.TransactionID]; exists {
		return errs.NewValidationError("transaction " + tr.TransactionID + " already exists")
	}
	t.st.txs[tr.TransactionID] = *tr
	return nil
}

func (t *memTx) UpdateTransaction(_ context.Context, tr *models.Transaction) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.st.txs[tr.TransactionID]; !ok {
		return errs.NewNotFoundError("transaction not found")
	}
	t.st.txs[tr.TransactionID] = *tr
	return nil
}

func (t *memTx) DeleteTransaction(_ context.Context, transactionID string) error {
	if err := t.write(); err != nil {
		return err
	}
	delete(t.st.txs, transactionID)
	return nil
}

// --- recurring payments ---

func (t *memTx) GetRecurring(_ context.Context, recurringPaymentID string) (*models.RecurringPayment, error) {
	p, ok := t.st.recurring[recurringPaymentID]
	if !ok {
		return nil, errs.NewNotFoundError("recurring payment not found")
	}
	return &p, nil
}

func (t *memTx) ListRecurring(_ context.Context, uid string) ([]*models.RecurringPayment, error) {
	out := make([]*models.RecurringPayment, 0)
	for _, p := range t.st.recurring {
		if p.UserID == uid {
			out = append(out, &p)
		}
	}
	slices.SortFunc(out, func(a, b *models.RecurringPayment) int {
		if c := a.NextDueDate.Compare(b.NextDueDate); c != 0 {
			return c
		}
		return strings.Compare(a.RecurringPaymentID, b.RecurringPaymentID)
	})
	return out, nil
}

func (t *memTx) CreateRecurring(_ context.Context, p *models.RecurringPayment) error {
	if err := t.write(); err != nil {
		return err
	}
	t.st.recurring[p.RecurringPaymentID] = *p
	return nil
}

func (t *memTx) UpdateRecurring(_ context.Context, p *models.RecurringPayment) error {
	if err := t.write(); err != nil {
		return err
	}
	if _, ok := t.st.recurring[p.RecurringPaymentID]; !ok {
		return errs.NewNotFoundError("recurring payment not found")
	}
	t.st.recurring[p.RecurringPaymentID] = *p
	return nil
}
