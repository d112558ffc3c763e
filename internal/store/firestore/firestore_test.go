package firestore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

func newEmulatorStore(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	client, err := firestore.NewClient(context.Background(), "test-project")
	if err != nil {
		t.Fatalf("firestore client error: %v", err)
	}
	s := New(client)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUnitOfWorkWithEmulator(t *testing.T) {
	s := newEmulatorStore(t)
	ctx := context.Background()

	uid := "user-" + uuid.NewString()
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	a := &models.Account{AccountID: uuid.NewString(), UserID: uid, Name: "Checking", Type: models.AccountBank, Balance: money.FromInt(1000), Currency: "USD", CreatedAt: now}
	b := &models.Account{AccountID: uuid.NewString(), UserID: uid, Name: "Savings", Type: models.AccountBank, Currency: "USD", CreatedAt: now.Add(time.Second)}

	err := s.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateAccount(ctx, a); err != nil {
			return err
		}
		return tx.CreateAccount(ctx, b)
	})
	if err != nil {
		t.Fatalf("seed accounts error: %v", err)
	}

	// A failing unit of work leaves nothing behind.
	boom := errors.New("boom")
	err = s.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.GetAccount(ctx, a.AccountID); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, a.AccountID, money.FromInt(1)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	transfer := &models.Transaction{
		TransactionID: uuid.NewString(), UserID: uid, AccountID: a.AccountID, ToAccountID: b.AccountID,
		Amount: money.MustParse("12.34"), Date: now, Kind: models.KindTransfer, CreatedAt: now,
	}
	err = s.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.CreateTransaction(ctx, transfer)
	})
	if err != nil {
		t.Fatalf("create transaction error: %v", err)
	}

	err = s.View(ctx, func(ctx context.Context, tx store.Tx) error {
		got, err := tx.GetAccount(ctx, a.AccountID)
		if err != nil {
			return err
		}
		if got.Balance.String() != "1000.00" {
			t.Fatalf("balance = %s, want 1000.00", got.Balance)
		}

		accounts, err := tx.ListAccounts(ctx, uid)
		if err != nil {
			return err
		}
		if len(accounts) != 2 || accounts[0].AccountID != a.AccountID {
			t.Fatalf("unexpected accounts: %#v", accounts)
		}

		// The savings account is only the target leg.
		txs, err := tx.ListTransactions(ctx, uid, store.TransactionFilter{AccountID: b.AccountID})
		if err != nil {
			return err
		}
		if len(txs) != 1 || txs[0].Amount.String() != "12.34" {
			t.Fatalf("unexpected transactions: %#v", txs)
		}

		if err := tx.SetBalance(ctx, a.AccountID, money.Zero); !errors.Is(err, errReadOnly) {
			t.Fatalf("expected read-only error, got %v", err)
		}

		_, err = tx.GetTransaction(ctx, "missing")
		var nf *errs.NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view error: %v", err)
	}
}

func TestAccountDocRoundTrip(t *testing.T) {
	rate := "19.99"
	due := 15
	limit := money.FromInt(5000)
	a := &models.Account{AccountID: "a", Type: models.AccountCredit, Balance: money.MustParse("-10.05"), CreditLimit: &limit, DueDay: &due}
	d := toAccountDoc(a)
	d.InterestRate = rate

	got, err := d.model()
	if err != nil {
		t.Fatalf("model error: %v", err)
	}
	if got.Balance.String() != "-10.05" || got.CreditLimit.String() != "5000.00" || *got.DueDay != 15 {
		t.Fatalf("unexpected account: %#v", got)
	}
	if got.InterestRate.String() != rate {
		t.Fatalf("interest rate = %s, want %s", got.InterestRate, rate)
	}
}
