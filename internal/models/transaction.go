package models

import (
	"time"

	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type TransactionKind string

const (
	KindIncome    TransactionKind = "income"
	KindExpense   TransactionKind = "expense"
	KindTransfer  TransactionKind = "transfer"
	KindCredit    TransactionKind = "credit"
	KindRecurring TransactionKind = "recurring"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer, KindCredit, KindRecurring:
		return true
	}
	return false
}

type CreditType string

const (
	CreditLent     CreditType = "lent"
	CreditBorrowed CreditType = "borrowed"
)

func (c CreditType) Valid() bool {
	return c == CreditLent || c == CreditBorrowed
}

type Transaction struct {
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	AccountID     string          `json:"accountId"`
	ToAccountID   string          `json:"toAccountId,omitempty"` // transfer destination
	Amount        money.Money     `json:"amount"`                // always positive
	Date          time.Time       `json:"date"`                  // date only, UTC midnight
	Kind          TransactionKind `json:"kind"`

	// kind=credit only. CreditID is empty on the origin itself.
	CreditType       CreditType `json:"creditType,omitempty"`
	CreditID         string     `json:"creditId,omitempty"`
	IsRepayment      bool       `json:"isRepayment"`
	IsFullSettlement bool       `json:"isFullSettlement"`

	RecurringPaymentID string `json:"recurringPaymentId,omitempty"`
	CategoryID         string `json:"categoryId,omitempty"`
	Counterparty       string `json:"counterparty,omitempty"`
	Description        string `json:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsCreditOrigin reports whether t establishes a lent/borrowed principal.
func (t *Transaction) IsCreditOrigin() bool {
	return t.Kind == KindCredit && !t.IsRepayment && t.CreditID == ""
}
