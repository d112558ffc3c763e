package dto

import (
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type CreateRecurringRequest struct {
	Name               string           `json:"name"`
	DefaultAmount      money.Money      `json:"defaultAmount"`
	Frequency          models.Frequency `json:"frequency"`
	CustomIntervalDays int              `json:"customIntervalDays,omitempty"`
	StartDate          string           `json:"startDate"`
	EndDate            string           `json:"endDate,omitempty"`
	AccountID          string           `json:"accountId"`
	CategoryID         string           `json:"categoryId,omitempty"`
}

// PayRecurringRequest posts a transaction linked to a recurring payment. Zero
// fields fall back to the payment's defaults.
type PayRecurringRequest struct {
	Amount      money.Money `json:"amount"`
	Date        string      `json:"date,omitempty"`
	AccountID   string      `json:"accountId,omitempty"`
	Description string      `json:"description,omitempty"`
}
