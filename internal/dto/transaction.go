package dto

import (
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

// TransactionIntent is what a caller submits to create or replace a
// transaction. Dates are YYYY-MM-DD; an empty date means today.
type TransactionIntent struct {
	AccountID   string                 `json:"accountId"`
	ToAccountID string                 `json:"toAccountId,omitempty"`
	Amount      money.Money            `json:"amount"`
	Date        string                 `json:"date,omitempty"`
	Kind        models.TransactionKind `json:"kind"`

	CreditType       models.CreditType `json:"creditType,omitempty"`
	CreditID         string            `json:"creditId,omitempty"`
	IsRepayment      bool              `json:"isRepayment,omitempty"`
	IsFullSettlement bool              `json:"isFullSettlement,omitempty"`

	RecurringPaymentID string `json:"recurringPaymentId,omitempty"`
	CategoryID         string `json:"categoryId,omitempty"`
	Counterparty       string `json:"counterparty,omitempty"`
	Description        string `json:"description,omitempty"`
}

type TransactionQuery struct {
	AccountID string
	CreditID  string
	Kind      models.TransactionKind
	DateFrom  string
	DateTo    string
	Limit     int
}
