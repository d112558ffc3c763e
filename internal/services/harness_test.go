package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/ledger"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store/memory"
	"github.com/GregMSThompson/finance-tracker/pkg/helpers"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

// harness wires every service to one memory store with deterministic ids
// and a clock that advances one second per reading.
type harness struct {
	ctx       context.Context
	store     *memory.Store
	ledger    *ledger.Ledger
	txns      *transactionService
	credits   *creditService
	recurring *recurringService
	accounts  *accountService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s := memory.New()
	l := ledger.New(s)

	seq := 0
	newID := func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	txns := NewTransactionService(s, l)
	txns.newID, txns.clockNow = newID, clock
	recurring := NewRecurringService(s, txns)
	recurring.newID, recurring.clockNow = newID, clock
	accounts := NewAccountService(s, l)
	accounts.newID, accounts.clockNow = newID, clock

	return &harness{
		ctx:       helpers.TestCtx(),
		store:     s,
		ledger:    l,
		txns:      txns,
		credits:   NewCreditService(s, txns),
		recurring: recurring,
		accounts:  accounts,
	}
}

func (h *harness) openAccount(t *testing.T, uid, name, opening string) string {
	t.Helper()
	a, err := h.accounts.Create(h.ctx, uid, dto.CreateAccountRequest{
		Name:           name,
		Type:           models.AccountBank,
		OpeningBalance: money.MustParse(opening),
		Currency:       "USD",
	})
	require.NoError(t, err)
	return a.AccountID
}

func (h *harness) balance(t *testing.T, uid, accountID string) string {
	t.Helper()
	b, err := h.accounts.Balance(h.ctx, uid, accountID)
	require.NoError(t, err)
	return b.String()
}

func (h *harness) create(t *testing.T, uid string, in dto.TransactionIntent) *models.Transaction {
	t.Helper()
	tr, err := h.txns.Create(h.ctx, uid, in)
	require.NoError(t, err)
	return tr
}

func (h *harness) requireReconciled(t *testing.T, uid string, accountIDs ...string) {
	t.Helper()
	for _, id := range accountIDs {
		rec, err := h.accounts.Reconcile(h.ctx, uid, id)
		require.NoError(t, err)
		require.True(t, rec.Drift.IsZero(), "account %s drifted: stored %s computed %s", id, rec.Stored, rec.Computed)
	}
}

func expense(accountID, amount string) dto.TransactionIntent {
	return dto.TransactionIntent{
		AccountID:    accountID,
		Amount:       money.MustParse(amount),
		Date:         "2025-03-01",
		Kind:         models.KindExpense,
		Counterparty: "Grocer",
	}
}

func lend(accountID, amount string) dto.TransactionIntent {
	return dto.TransactionIntent{
		AccountID:    accountID,
		Amount:       money.MustParse(amount),
		Date:         "2025-03-01",
		Kind:         models.KindCredit,
		CreditType:   models.CreditLent,
		Counterparty: "Sam",
	}
}

func borrow(accountID, amount string) dto.TransactionIntent {
	in := lend(accountID, amount)
	in.CreditType = models.CreditBorrowed
	in.Counterparty = "Bank of Mum"
	return in
}

// requireErrorAs fails unless err matches the error type E and returns it.
func requireErrorAs[E error](t *testing.T, err error) E {
	t.Helper()
	var target E
	require.Error(t, err)
	require.True(t, errors.As(err, &target), "expected %T, got %T: %v", target, err, err)
	return target
}
