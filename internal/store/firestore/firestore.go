// Package firestore runs units of work as Firestore transactions. Accounts,
// transactions and recurring payments live in top-level collections keyed by
// id and carry a userId field, so lookups by id see every user's documents
// and ownership is checked by the caller.
package firestore

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
	recurringCollection    = "recurring_payments"
)

var errReadOnly = errors.New("firestore store: write attempted in read-only view")

type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Run executes fn in a read-write transaction. Firestore retries fn on
// contention, so fn must not keep state between attempts.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &fsTx{client: s.client, tx: t, writable: true})
	})
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &fsTx{client: s.client, tx: t})
	}, firestore.ReadOnly)
}

func (s *Store) Close() error {
	return s.client.Close()
}

type fsTx struct {
	client   *firestore.Client
	tx       *firestore.Transaction
	writable bool
}

func (t *fsTx) write() error {
	if !t.writable {
		return errReadOnly
	}
	return nil
}

func (t *fsTx) accounts() *firestore.CollectionRef {
	return t.client.Collection(accountsCollection)
}

func (t *fsTx) transactions() *firestore.CollectionRef {
	return t.client.Collection(transactionsCollection)
}

func (t *fsTx) recurring() *firestore.CollectionRef {
	return t.client.Collection(recurringCollection)
}

// get reads one document, mapping a missing document to a NotFoundError.
func (t *fsTx) get(ref *firestore.DocumentRef, what string, dst any) error {
	snap, err := t.tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return errs.NewNotFoundError(what + " not found")
	}
	if err != nil {
		return errs.NewDatabaseError("get "+what, "failed to read "+what, err)
	}
	if err := snap.DataTo(dst); err != nil {
		return errs.NewDatabaseError("decode "+what, "failed to decode "+what, err)
	}
	return nil
}

// all drains a query inside the transaction.
func all[D any](t *fsTx, q firestore.Query, what string) ([]D, error) {
	iter := t.tx.Documents(q)
	defer iter.Stop()

	var out []D
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.NewDatabaseError("list "+what, "failed to list "+what, err)
		}
		var d D
		if err := snap.DataTo(&d); err != nil {
			return nil, errs.NewDatabaseError("decode "+what, "failed to decode "+what, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func wrapWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return errs.NewNotFoundError(op + ": document not found")
	}
	return errs.NewDatabaseError(op, "failed to "+op, err)
}

// --- accounts ---

func (t *fsTx) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	var d accountDoc
	if err := t.get(t.accounts().Doc(accountID), "account", &d); err != nil {
		return nil, err
	}
	return d.model()
}

func (t *fsTx) ListAccounts(_ context.Context, uid string) ([]*models.Account, error) {
	docs, err := all[accountDoc](t, t.accounts().Where("userId", "==", uid), "accounts")
	if err != nil {
		return nil, err
	}
	out := make([]*models.Account, 0, len(docs))
	for _, d := range docs {
		a, err := d.model()
		if err != nil {
			return nil, errs.NewDatabaseError("decode account", "failed to decode account", err)
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *models.Account) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.AccountID, b.AccountID)
	})
	return out, nil
}

func (t *fsTx) CreateAccount(_ context.Context, a *models.Account) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("create account", t.tx.Create(t.accounts().Doc(a.AccountID), toAccountDoc(a)))
}

func (t *fsTx) SetDefaultAccount(_ context.Context, accountID string, isDefault bool) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("update account", t.tx.Update(t.accounts().Doc(accountID), []firestore.Update{
		{Path: "isDefault", Value: isDefault},
		{Path: "updatedAt", Value: time.Now()},
	}))
}

func (t *fsTx) DeleteAccount(_ context.Context, accountID string) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("delete account", t.tx.Delete(t.accounts().Doc(accountID)))
}

func (t *fsTx) SetBalance(_ context.Context, accountID string, balance money.Money) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("update balance", t.tx.Update(t.accounts().Doc(accountID), []firestore.Update{
		{Path: "balanceCents", Value: balance.Cents()},
		{Path: "updatedAt", Value: time.Now()},
	}))
}

// --- transactions ---

func (t *fsTx) GetTransaction(_ context.Context, transactionID string) (*models.Transaction, error) {
	var d transactionDoc
	if err := t.get(t.transactions().Doc(transactionID), "transaction", &d); err != nil {
		return nil, err
	}
	return d.model(), nil
}

// ListTransactions pushes equality filters into the query and applies the
// rest in memory, which keeps every query servable by single-field indexes.
// An account filter matches either leg, so it runs as two queries.
func (t *fsTx) ListTransactions(_ context.Context, uid string, filter store.TransactionFilter) ([]*models.Transaction, error) {
	base := t.transactions().Where("userId", "==", uid)
	if filter.CreditID != "" {
		base = base.Where("creditId", "==", filter.CreditID)
	}
	if filter.Kind != "" {
		base = base.Where("kind", "==", string(filter.Kind))
	}
	if filter.RecurringPaymentID != "" {
		base = base.Where("recurringPaymentId", "==", filter.RecurringPaymentID)
	}

	queries := []firestore.Query{base}
	if filter.AccountID != "" {
		queries = []firestore.Query{
			base.Where("accountId", "==", filter.AccountID),
			base.Where("toAccountId", "==", filter.AccountID),
		}
	}

	seen := make(map[string]bool)
	out := make([]*models.Transaction, 0)
	for _, q := range queries {
		docs, err := all[transactionDoc](t, q, "transactions")
		if err != nil {
			return nil, err
		}
		for _, d := range docs {
			tr := d.model()
			if seen[tr.TransactionID] || !filter.Matches(tr) {
				continue
			}
			seen[tr.TransactionID] = true
			out = append(out, tr)
		}
	}

	slices.SortFunc(out, store.CompareTransactions)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (t *fsTx) CreateTransaction(_ context.Context, tr *models.Transaction) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("create transaction", t.tx.Create(t.transactions().Doc(tr.TransactionID), toTransactionDoc(tr)))
}

func (t *fsTx) UpdateTransaction(_ context.Context, tr *models.Transaction) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("update transaction", t.tx.Set(t.transactions().Doc(tr.TransactionID), toTransactionDoc(tr)))
}

func (t *fsTx) DeleteTransaction(_ context.Context, transactionID string) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("delete transaction", t.tx.Delete(t.transactions().Doc(transactionID)))
}

// --- recurring payments ---

func (t *fsTx) GetRecurring(_ context.Context, recurringPaymentID string) (*models.RecurringPayment, error) {
	var d recurringDoc
	if err := t.get(t.recurring().Doc(recurringPaymentID), "recurring payment", &d); err != nil {
		return nil, err
	}
	return d.model(), nil
}

func (t *fsTx) ListRecurring(_ context.Context, uid string) ([]*models.RecurringPayment, error) {
	docs, err := all[recurringDoc](t, t.recurring().Where("userId", "==", uid), "recurring payments")
	if err != nil {
		return nil, err
	}
	out := make([]*models.RecurringPayment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	slices.SortFunc(out, func(a, b *models.RecurringPayment) int {
		if c := a.NextDueDate.Compare(b.NextDueDate); c != 0 {
			return c
		}
		return strings.Compare(a.RecurringPaymentID, b.RecurringPaymentID)
	})
	return out, nil
}

func (t *fsTx) CreateRecurring(_ context.Context, p *models.RecurringPayment) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("create recurring payment", t.tx.Create(t.recurring().Doc(p.RecurringPaymentID), toRecurringDoc(p)))
}

func (t *fsTx) UpdateRecurring(_ context.Context, p *models.RecurringPayment) error {
	if err := t.write(); err != nil {
		return err
	}
	return wrapWrite("update recurring payment", t.tx.Set(t.recurring().Doc(p.RecurringPaymentID), toRecurringDoc(p)))
}
