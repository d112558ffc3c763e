package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/internal/store/memory"
	"github.com/GregMSThompson/finance-tracker/pkg/helpers"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

func TestAccountDefaults(t *testing.T) {
	h := newHarness(t)
	first := h.openAccount(t, "u1", "Checking", "100")
	second := h.openAccount(t, "u1", "Savings", "0")

	got, err := h.accounts.Get(h.ctx, "u1", first)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	assert.Equal(t, "100.00", got.OpeningBalance.String())

	third, err := h.accounts.Create(h.ctx, "u1", dto.CreateAccountRequest{
		Name: "Wallet", Type: models.AccountCash, Currency: "usd", IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", third.Currency)

	list, err := h.accounts.List(h.ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
			assert.Equal(t, third.AccountID, a.AccountID)
		}
	}
	assert.Equal(t, 1, defaults)

	// Deleting the default promotes the oldest remaining account.
	require.NoError(t, h.accounts.Delete(h.ctx, "u1", third.AccountID))
	got, err = h.accounts.Get(h.ctx, "u1", first)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
	got, err = h.accounts.Get(h.ctx, "u1", second)
	require.NoError(t, err)
	assert.False(t, got.IsDefault)
}

func TestAccountDeleteRefusesReferencedAccounts(t *testing.T) {
	h := newHarness(t)
	a := h.openAccount(t, "u1", "Checking", "100")
	b := h.openAccount(t, "u1", "Savings", "0")
	c := h.openAccount(t, "u1", "Spare", "0")

	h.create(t, "u1", expense(a, "10"))
	err := h.accounts.Delete(h.ctx, "u1", a)
	requireErrorAs[*errs.ReferencedError](t, err)

	req := gym(b)
	_, err = h.recurring.Create(h.ctx, "u1", req)
	require.NoError(t, err)
	err = h.accounts.Delete(h.ctx, "u1", b)
	requireErrorAs[*errs.ReferencedError](t, err)

	err = h.accounts.Delete(h.ctx, "u2", c)
	requireErrorAs[*errs.OwnershipError](t, err)

	require.NoError(t, h.accounts.Delete(h.ctx, "u1", c))
	_, err = h.accounts.Get(h.ctx, "u1", c)
	requireErrorAs[*errs.NotFoundError](t, err)
}

var errContention = errors.New("contention")

// retryOnceStore replays the first Run the way Firestore does on contention:
// the first attempt is discarded, between runs first, then fn runs again.
type retryOnceStore struct {
	*memory.Store
	between func()
	retried bool
}

func (s *retryOnceStore) Run(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if !s.retried {
		s.retried = true
		err := s.Store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
			if err := fn(ctx, tx); err != nil {
				return err
			}
			return errContention
		})
		if !errors.Is(err, errContention) {
			return err
		}
		s.between()
	}
	return s.Store.Run(ctx, fn)
}

func TestAccountDeleteForgetsPromotionOnRetry(t *testing.T) {
	h := newHarness(t)
	first := h.openAccount(t, "u1", "Checking", "0")
	second := h.openAccount(t, "u1", "Savings", "0")

	rs := &retryOnceStore{Store: h.store, between: func() {
		// the only promotion candidate disappears before the retry
		require.NoError(t, h.accounts.Delete(h.ctx, "u1", second))
	}}
	svc := NewAccountService(rs, h.ledger)

	require.NoError(t, svc.Delete(h.ctx, "u1", first))
	assert.True(t, rs.retried)

	list, err := h.accounts.List(h.ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAccountCreateValidation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		req  dto.CreateAccountRequest
	}{
		{"missing name", dto.CreateAccountRequest{Type: models.AccountBank, Currency: "USD"}},
		{"unknown type", dto.CreateAccountRequest{Name: "x", Type: "crypto", Currency: "USD"}},
		{"bad currency", dto.CreateAccountRequest{Name: "x", Type: models.AccountBank, Currency: "dollars"}},
		{"credit fields on bank", dto.CreateAccountRequest{Name: "x", Type: models.AccountBank, Currency: "USD", DueDay: helpers.Ptr(5)}},
		{"due day out of range", dto.CreateAccountRequest{Name: "x", Type: models.AccountCredit, Currency: "USD", DueDay: helpers.Ptr(32)}},
		{"negative rate", dto.CreateAccountRequest{Name: "x", Type: models.AccountCredit, Currency: "USD", InterestRate: helpers.Ptr(decimal.NewFromInt(-1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.accounts.Create(h.ctx, "u1", tt.req)
			requireErrorAs[*errs.ValidationError](t, err)
		})
	}
}

func TestMonthlyInterestEstimate(t *testing.T) {
	h := newHarness(t)
	card, err := h.accounts.Create(h.ctx, "u1", dto.CreateAccountRequest{
		Name:           "Visa",
		Type:           models.AccountCredit,
		Currency:       "USD",
		OpeningBalance: money.MustParse("-1000"),
		CreditLimit:    helpers.Ptr(money.FromInt(5000)),
		DueDay:         helpers.Ptr(15),
		InterestRate:   helpers.Ptr(decimal.RequireFromString("19.99")),
	})
	require.NoError(t, err)

	view, err := h.accounts.Get(h.ctx, "u1", card.AccountID)
	require.NoError(t, err)
	require.NotNil(t, view.MonthlyInterestEstimate)
	assert.Equal(t, "16.66", view.MonthlyInterestEstimate.String())
	// the estimate is never posted
	assert.Equal(t, "-1000.00", h.balance(t, "u1", card.AccountID))

	assert.Nil(t, MonthlyInterestEstimate(&models.Account{Type: models.AccountBank, InterestRate: helpers.Ptr(decimal.NewFromInt(5))}))
}

func TestReconcileReportsDrift(t *testing.T) {
	h := newHarness(t)
	a := h.openAccount(t, "u1", "Checking", "100")
	h.create(t, "u1", expense(a, "30"))

	// Simulate an out-of-band balance write.
	_, err := h.ledger.ApplyDelta(h.ctx, "u1", a, money.FromInt(5))
	require.NoError(t, err)

	rec, err := h.accounts.Reconcile(h.ctx, "u1", a)
	require.NoError(t, err)
	assert.Equal(t, "75.00", rec.Stored.String())
	assert.Equal(t, "70.00", rec.Computed.String())
	assert.Equal(t, "5.00", rec.Drift.String())
	assert.Equal(t, 1, rec.TransactionCount)
}
