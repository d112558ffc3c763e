package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type AccountType string

const (
	AccountBank       AccountType = "bank"
	AccountCash       AccountType = "cash"
	AccountCredit     AccountType = "credit"
	AccountInvestment AccountType = "investment"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountBank, AccountCash, AccountCredit, AccountInvestment:
		return true
	}
	return false
}

type Account struct {
	AccountID      string      `json:"accountId"`
	UserID         string      `json:"userId"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	Balance        money.Money `json:"balance"` // written only by the ledger
	OpeningBalance money.Money `json:"openingBalance"`
	Currency       string      `json:"currency"`
	IsDefault      bool        `json:"isDefault"`

	// Credit-type accounts only.
	CreditLimit    *money.Money     `json:"creditLimit,omitempty"`
	DueDay         *int             `json:"dueDay,omitempty"` // day of month the statement is due
	MinimumPayment *money.Money     `json:"minimumPayment,omitempty"`
	InterestRate   *decimal.Decimal `json:"interestRate,omitempty"` // annual percentage, e.g. 19.99

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
