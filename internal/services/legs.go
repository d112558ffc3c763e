package services

import (
	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/ledger"
	"github.com/GregMSThompson/finance-tracker/internal/models"
)

// legs returns the balance deltas a transaction contributes while it is live.
//
//	kind                         leg A (account)   leg B (toAccount)
//	income                       +amount
//	expense, recurring           -amount
//	transfer                     -amount           +amount
//	credit origin, lent          -amount
//	credit origin, borrowed      +amount
//	credit repayment, lent       +amount
//	credit repayment, borrowed   -amount
//
// A repayment carries its origin's credit type.
func legs(t *models.Transaction) ([]ledger.Delta, error) {
	amt := t.Amount
	switch t.Kind {
	case models.KindIncome:
		return []ledger.Delta{{AccountID: t.AccountID, Amount: amt}}, nil
	case models.KindExpense, models.KindRecurring:
		return []ledger.Delta{{AccountID: t.AccountID, Amount: amt.Neg()}}, nil
	case models.KindTransfer:
		return []ledger.Delta{
			{AccountID: t.AccountID, Amount: amt.Neg()},
			{AccountID: t.ToAccountID, Amount: amt},
		}, nil
	case models.KindCredit:
		if !t.CreditType.Valid() {
			return nil, errs.NewValidationError("unknown credit type: " + string(t.CreditType))
		}
		// Borrowing brings cash in; repaying reverses the direction.
		cashIn := t.CreditType == models.CreditBorrowed
		if t.IsRepayment {
			cashIn = !cashIn
		}
		if cashIn {
			return []ledger.Delta{{AccountID: t.AccountID, Amount: amt}}, nil
		}
		return []ledger.Delta{{AccountID: t.AccountID, Amount: amt.Neg()}}, nil
	default:
		return nil, errs.NewValidationError("unknown transaction kind: " + string(t.Kind))
	}
}
