package models

import (
	"time"

	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyCustom    Frequency = "custom"
)

type RecurringPayment struct {
	RecurringPaymentID string      `json:"recurringPaymentId"`
	UserID             string      `json:"userId"`
	Name               string      `json:"name"`
	DefaultAmount      money.Money `json:"defaultAmount"`
	Frequency          Frequency   `json:"frequency"`
	CustomIntervalDays int         `json:"customIntervalDays,omitempty"` // custom only
	StartDate          time.Time   `json:"startDate"`
	EndDate            *time.Time  `json:"endDate,omitempty"`
	NextDueDate        time.Time   `json:"nextDueDate"`
	AccountID          string      `json:"accountId"`
	CategoryID         string      `json:"categoryId,omitempty"`
	IsActive           bool        `json:"isActive"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly, FrequencyCustom:
		return true
	}
	return false
}
