package firestore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/pkg/helpers"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

// Amounts are stored as integer cents; Firestore has no decimal type.

type accountDoc struct {
	AccountID           string    `firestore:"accountId"`
	UserID              string    `firestore:"userId"`
	Name                string    `firestore:"name"`
	Type                string    `firestore:"type"`
	BalanceCents        int64     `firestore:"balanceCents"`
	OpeningBalanceCents int64     `firestore:"openingBalanceCents"`
	Currency            string    `firestore:"currency"`
	IsDefault           bool      `firestore:"isDefault"`
	CreditLimitCents    *int64    `firestore:"creditLimitCents,omitempty"`
	DueDay              *int64    `firestore:"dueDay,omitempty"`
	MinimumPaymentCents *int64    `firestore:"minimumPaymentCents,omitempty"`
	InterestRate        string    `firestore:"interestRate,omitempty"`
	CreatedAt           time.Time `firestore:"createdAt"`
	UpdatedAt           time.Time `firestore:"updatedAt"`
}

func toAccountDoc(a *models.Account) accountDoc {
	d := accountDoc{
		AccountID:           a.AccountID,
		UserID:              a.UserID,
		Name:                a.Name,
		Type:                string(a.Type),
		BalanceCents:        a.Balance.Cents(),
		OpeningBalanceCents: a.OpeningBalance.Cents(),
		Currency:            a.Currency,
		IsDefault:           a.IsDefault,
		CreditLimitCents:    centsPtr(a.CreditLimit),
		MinimumPaymentCents: centsPtr(a.MinimumPayment),
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
	if a.DueDay != nil {
		d.DueDay = helpers.Ptr(int64(*a.DueDay))
	}
	if a.InterestRate != nil {
		d.InterestRate = a.InterestRate.String()
	}
	return d
}

func (d accountDoc) model() (*models.Account, error) {
	a := &models.Account{
		AccountID:      d.AccountID,
		UserID:         d.UserID,
		Name:           d.Name,
		Type:           models.AccountType(d.Type),
		Balance:        money.New(d.BalanceCents),
		OpeningBalance: money.New(d.OpeningBalanceCents),
		Currency:       d.Currency,
		IsDefault:      d.IsDefault,
		CreditLimit:    moneyPtr(d.CreditLimitCents),
		MinimumPayment: moneyPtr(d.MinimumPaymentCents),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.DueDay != nil {
		a.DueDay = helpers.Ptr(int(*d.DueDay))
	}
	if d.InterestRate != "" {
		rate, err := decimal.NewFromString(d.InterestRate)
		if err != nil {
			return nil, err
		}
		a.InterestRate = &rate
	}
	return a, nil
}

type transactionDoc struct {
	TransactionID      string    `firestore:"transactionId"`
	UserID             string    `firestore:"userId"`
	AccountID          string    `firestore:"accountId"`
	ToAccountID        string    `firestore:"toAccountId"`
	AmountCents        int64     `firestore:"amountCents"`
	Date               time.Time `firestore:"date"`
	Kind               string    `firestore:"kind"`
	CreditType         string    `firestore:"creditType"`
	CreditID           string    `firestore:"creditId"`
	IsRepayment        bool      `firestore:"isRepayment"`
	IsFullSettlement   bool      `firestore:"isFullSettlement"`
	RecurringPaymentID string    `firestore:"recurringPaymentId"`
	CategoryID         string    `firestore:"categoryId,omitempty"`
	Counterparty       string    `firestore:"counterparty,omitempty"`
	Description        string    `firestore:"description,omitempty"`
	CreatedAt          time.Time `firestore:"createdAt"`
	UpdatedAt          time.Time `firestore:"updatedAt"`
}

func toTransactionDoc(t *models.Transaction) transactionDoc {
	return transactionDoc{
		TransactionID:      t.TransactionID,
		UserID:             t.UserID,
		AccountID:          t.AccountID,
		ToAccountID:        t.ToAccountID,
		AmountCents:        t.Amount.Cents(),
		Date:               t.Date,
		Kind:               string(t.Kind),
		CreditType:         string(t.CreditType),
		CreditID:           t.CreditID,
		IsRepayment:        t.IsRepayment,
		IsFullSettlement:   t.IsFullSettlement,
		RecurringPaymentID: t.RecurringPaymentID,
		CategoryID:         t.CategoryID,
		Counterparty:       t.Counterparty,
		Description:        t.Description,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func (d transactionDoc) model() *models.Transaction {
	return &models.Transaction{
		TransactionID:      d.TransactionID,
		UserID:             d.UserID,
		AccountID:          d.AccountID,
		ToAccountID:        d.ToAccountID,
		Amount:             money.New(d.AmountCents),
		Date:               d.Date.UTC(),
		Kind:               models.TransactionKind(d.Kind),
		CreditType:         models.CreditType(d.CreditType),
		CreditID:           d.CreditID,
		IsRepayment:        d.IsRepayment,
		IsFullSettlement:   d.IsFullSettlement,
		RecurringPaymentID: d.RecurringPaymentID,
		CategoryID:         d.CategoryID,
		Counterparty:       d.Counterparty,
		Description:        d.Description,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

type recurringDoc struct {
	RecurringPaymentID string     `firestore:"recurringPaymentId"`
	UserID             string     `firestore:"userId"`
	Name               string     `firestore:"name"`
	DefaultAmountCents int64      `firestore:"defaultAmountCents"`
	Frequency          string     `firestore:"frequency"`
	CustomIntervalDays int64      `firestore:"customIntervalDays,omitempty"`
	StartDate          time.Time  `firestore:"startDate"`
	EndDate            *time.Time `firestore:"endDate,omitempty"`
	NextDueDate        time.Time  `firestore:"nextDueDate"`
	AccountID          string     `firestore:"accountId"`
	CategoryID         string     `firestore:"categoryId,omitempty"`
	IsActive           bool       `firestore:"isActive"`
	CreatedAt          time.Time  `firestore:"createdAt"`
	UpdatedAt          time.Time  `firestore:"updatedAt"`
}

func toRecurringDoc(p *models.RecurringPayment) recurringDoc {
	return recurringDoc{
		RecurringPaymentID: p.RecurringPaymentID,
		UserID:             p.UserID,
		Name:               p.Name,
		DefaultAmountCents: p.DefaultAmount.Cents(),
		Frequency:          string(p.Frequency),
		CustomIntervalDays: int64(p.CustomIntervalDays),
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		NextDueDate:        p.NextDueDate,
		AccountID:          p.AccountID,
		CategoryID:         p.CategoryID,
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func (d recurringDoc) model() *models.RecurringPayment {
	p := &models.RecurringPayment{
		RecurringPaymentID: d.RecurringPaymentID,
		UserID:             d.UserID,
		Name:               d.Name,
		DefaultAmount:      money.New(d.DefaultAmountCents),
		Frequency:          models.Frequency(d.Frequency),
		CustomIntervalDays: int(d.CustomIntervalDays),
		StartDate:          d.StartDate.UTC(),
		NextDueDate:        d.NextDueDate.UTC(),
		AccountID:          d.AccountID,
		CategoryID:         d.CategoryID,
		IsActive:           d.IsActive,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.EndDate != nil {
		p.EndDate = helpers.Ptr(d.EndDate.UTC())
	}
	return p
}

func centsPtr(m *money.Money) *int64 {
	if m == nil {
		return nil
	}
	return helpers.Ptr(m.Cents())
}

func moneyPtr(cents *int64) *money.Money {
	if cents == nil {
		return nil
	}
	return helpers.Ptr(money.New(*cents))
}
