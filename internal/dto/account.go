package dto

import (
	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type CreateAccountRequest struct {
	Name           string             `json:"name"`
	Type           models.AccountType `json:"type"`
	OpeningBalance money.Money        `json:"openingBalance"`
	Currency       string             `json:"currency"`
	IsDefault      bool               `json:"isDefault,omitempty"`

	CreditLimit    *money.Money     `json:"creditLimit,omitempty"`
	DueDay         *int             `json:"dueDay,omitempty"`
	MinimumPayment *money.Money     `json:"minimumPayment,omitempty"`
	InterestRate   *decimal.Decimal `json:"interestRate,omitempty"`
}

type AccountView struct {
	*models.Account
	MonthlyInterestEstimate *money.Money `json:"monthlyInterestEstimate,omitempty"`
}

// Reconciliation compares the stored balance with the balance implied by the
// opening balance plus every live transaction leg.
type Reconciliation struct {
	AccountID        string      `json:"accountId"`
	Stored           money.Money `json:"stored"`
	Computed         money.Money `json:"computed"`
	Drift            money.Money `json:"drift"`
	TransactionCount int         `json:"transactionCount"`
}
