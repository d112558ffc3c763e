// Package ledger is the only code path that writes account balances.
package ledger

import (
	"context"
	"slices"

	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

// Delta is a signed amount applied to one account balance.
type Delta struct {
	AccountID string
	Amount    money.Money
}

// Negate returns the deltas that undo ds.
func Negate(ds []Delta) []Delta {
	out := make([]Delta, len(ds))
	for i, d := range ds {
		out[i] = Delta{AccountID: d.AccountID, Amount: d.Amount.Neg()}
	}
	return out
}

// BalanceTx is the part of a unit of work the ledger needs.
type BalanceTx interface {
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	SetBalance(ctx context.Context, accountID string, balance money.Money) error
}

type runner interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error
}

type Ledger struct {
	store runner
}

func New(s runner) *Ledger {
	return &Ledger{store: s}
}

// Apply lands every delta or none of them. It must run inside a unit of work.
// Deltas for the same account are merged, and accounts are read in ascending
// id order so that SQL backends take row locks in one global order. All reads
// happen before the first write.
func (l *Ledger) Apply(ctx context.Context, tx BalanceTx, uid string, deltas []Delta) (map[string]money.Money, error) {
	net := make(map[string]money.Money, len(deltas))
	for _, d := range deltas {
		if d.AccountID == "" {
			return nil, errs.NewValidationError("delta without account")
		}
		net[d.AccountID] = net[d.AccountID].Add(d.Amount)
	}

	ids := make([]string, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	accounts := make(map[string]*models.Account, len(ids))
	for _, id := range ids {
		a, err := tx.GetAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		if a.UserID != uid {
			return nil, errs.NewOwnershipError("account " + id + " does not belong to caller")
		}
		accounts[id] = a
		if next := a.Balance.Add(net[id]); !next.InRange() {
			return nil, errs.NewValidationError("balance of account " + id + " would exceed " + money.Max.String())
		}
	}

	log := logger.FromContext(ctx)
	debug := logger.IsDebugEnabled(ctx)
	balances := make(map[string]money.Money, len(ids))
	for _, id := range ids {
		a := accounts[id]
		delta := net[id]
		if delta.IsZero() {
			balances[id] = a.Balance
			continue
		}
		next := a.Balance.Add(delta)
		if err := tx.SetBalance(ctx, id, next); err != nil {
			return nil, err
		}
		balances[id] = next
		if debug {
			log.Debug("balance updated", "account_id", id, "delta", delta.String(), "balance", next.String())
		}

		if a.Type == models.AccountCredit && a.CreditLimit != nil && next.Neg().GreaterThan(*a.CreditLimit) {
			log.Warn("credit limit exceeded", "account_id", id)
		}
	}
	return balances, nil
}

// ApplyDelta applies a single delta in its own unit of work.
func (l *Ledger) ApplyDelta(ctx context.Context, uid, accountID string, delta money.Money) (money.Money, error) {
	var balance money.Money
	err := l.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		out, err := l.Apply(ctx, tx, uid, []Delta{{AccountID: accountID, Amount: delta}})
		if err != nil {
			return err
		}
		balance = out[accountID]
		return nil
	})
	return balance, err
}

// ApplyDeltaPair applies two legs atomically: a failure on either leaves both
// balances untouched.
func (l *Ledger) ApplyDeltaPair(ctx context.Context, uid, accountID1 string, delta1 money.Money, accountID2 string, delta2 money.Money) (money.Money, money.Money, error) {
	var b1, b2 money.Money
	err := l.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		out, err := l.Apply(ctx, tx, uid, []Delta{
			{AccountID: accountID1, Amount: delta1},
			{AccountID: accountID2, Amount: delta2},
		})
		if err != nil {
			return err
		}
		b1, b2 = out[accountID1], out[accountID2]
		return nil
	})
	return b1, b2, err
}

// Balance is the read-only accessor.
func (l *Ledger) Balance(ctx context.Context, uid, accountID string) (money.Money, error) {
	var balance money.Money
	err := l.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if a.UserID != uid {
			return errs.NewOwnershipError("account " + accountID + " does not belong to caller")
		}
		balance = a.Balance
		return nil
	})
	return balance, err
}
