package dto

import (
	"time"

	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

// CreditView is derived on every read from an origin transaction and its
// live repayments. It is never persisted.
type CreditView struct {
	OriginID           string                `json:"originId"`
	CreditType         models.CreditType     `json:"creditType"`
	Counterparty       string                `json:"counterparty"`
	AccountID          string                `json:"accountId"`
	Date               time.Time             `json:"date"`
	OriginAmount       money.Money           `json:"originAmount"`
	Repayments         []*models.Transaction `json:"repayments"` // by date
	TotalRepaid        money.Money           `json:"totalRepaid"`
	OutstandingBalance money.Money           `json:"outstandingBalance"`
	IsSettled          bool                  `json:"isSettled"`
}

type RepaymentRequest struct {
	OriginID         string      `json:"originId"`
	AccountID        string      `json:"accountId,omitempty"` // defaults to the origin's account
	Amount           money.Money `json:"amount"`
	Date             string      `json:"date,omitempty"`
	IsFullSettlement bool        `json:"isFullSettlement,omitempty"`
	Description      string      `json:"description,omitempty"`
}

type RepaymentResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Credit      CreditView          `json:"credit"`
}

type CreditFilter struct {
	CreditType     models.CreditType
	IncludeSettled bool
}

type CreditSummary struct {
	LentOutstanding     money.Money `json:"lentOutstanding"`
	BorrowedOutstanding money.Money `json:"borrowedOutstanding"`
	Open                int         `json:"open"`
	Settled             int         `json:"settled"`
}
