package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/schedule"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
)

type recurringService struct {
	store    unitOfWork
	txns     *transactionService
	newID    func() string
	clockNow func() time.Time
}

func NewRecurringService(store unitOfWork, txns *transactionService) *recurringService {
	return &recurringService{
		store:    store,
		txns:     txns,
		newID:    func() string { return uuid.New().String() },
		clockNow: time.Now,
	}
}

func (s *recurringService) Create(ctx context.Context, uid string, req dto.CreateRecurringRequest) (*models.RecurringPayment, error) {
	p, err := s.build(uid, req)
	if err != nil {
		return nil, err
	}

	err = s.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := getOwnedAccount(ctx, tx, uid, p.AccountID); err != nil {
			return err
		}
		return tx.CreateRecurring(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("recurring payment created", "recurring_payment_id", p.RecurringPaymentID, "frequency", p.Frequency)
	return p, nil
}

func (s *recurringService) Get(ctx context.Context, uid, recurringPaymentID string) (*models.RecurringPayment, error) {
	var p *models.RecurringPayment
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		p, err = loadRecurring(ctx, tx, uid, recurringPaymentID)
		return err
	})
	return p, err
}

func (s *recurringService) List(ctx context.Context, uid string) ([]*models.RecurringPayment, error) {
	var out []*models.RecurringPayment
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListRecurring(ctx, uid)
		return err
	})
	return out, err
}

// Upcoming lists the caller's active payments due within the next days days.
// A zero today means the current date.
func (s *recurringService) Upcoming(ctx context.Context, uid string, days int, today time.Time) ([]schedule.Upcoming, error) {
	if days < 0 {
		return nil, errs.NewValidationError("days must not be negative")
	}
	if today.IsZero() {
		today = s.clockNow()
	}
	payments, err := s.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	return schedule.ListUpcoming(payments, days, today), nil
}

// Projection returns the next n due dates after the payment's current one.
func (s *recurringService) Projection(ctx context.Context, uid, recurringPaymentID string, n int) ([]time.Time, error) {
	if n <= 0 || n > 366 {
		return nil, errs.NewValidationError("count must be between 1 and 366")
	}
	p, err := s.Get(ctx, uid, recurringPaymentID)
	if err != nil {
		return nil, err
	}
	return schedule.Project(p, n), nil
}

// Pay posts one occurrence of a recurring payment and rolls its due date
// forward. Zero request fields fall back to the payment's defaults.
func (s *recurringService) Pay(ctx context.Context, uid, recurringPaymentID string, req dto.PayRecurringRequest) (*models.Transaction, error) {
	var created *models.Transaction
	err := s.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := loadRecurring(ctx, tx, uid, recurringPaymentID)
		if err != nil {
			return err
		}

		intent := dto.TransactionIntent{
			AccountID:          req.AccountID,
			Amount:             req.Amount,
			Date:               req.Date,
			Kind:               models.KindRecurring,
			RecurringPaymentID: p.RecurringPaymentID,
			CategoryID:         p.CategoryID,
			Description:        req.Description,
		}
		if intent.AccountID == "" {
			intent.AccountID = p.AccountID
		}
		if intent.Amount.IsZero() {
			intent.Amount = p.DefaultAmount
		}
		if intent.Date == "" {
			intent.Date = p.NextDueDate.Format(time.DateOnly)
		}

		created, err = s.txns.create(ctx, tx, uid, intent)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("recurring payment posted", "recurring_payment_id", recurringPaymentID, "transaction_id", created.TransactionID)
	return created, nil
}

func (s *recurringService) build(uid string, req dto.CreateRecurringRequest) (*models.RecurringPayment, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.NewValidationError("name is required")
	}
	if !req.DefaultAmount.IsPositive() {
		return nil, errs.NewValidationError("defaultAmount must be greater than zero")
	}
	if !req.Frequency.Valid() {
		return nil, errs.NewValidationError("unknown frequency: " + string(req.Frequency))
	}
	if req.Frequency == models.FrequencyCustom && req.CustomIntervalDays <= 0 {
		return nil, errs.NewValidationError("customIntervalDays must be greater than zero for custom frequency")
	}
	if req.Frequency != models.FrequencyCustom && req.CustomIntervalDays != 0 {
		return nil, errs.NewValidationError("customIntervalDays is only valid for custom frequency")
	}
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, errs.NewValidationError("accountId is required")
	}
	if strings.TrimSpace(req.StartDate) == "" {
		return nil, errs.NewValidationError("startDate is required")
	}
	start, err := parseDate(req.StartDate, s.clockNow)
	if err != nil {
		return nil, err
	}

	var end *time.Time
	if req.EndDate != "" {
		e, err := parseDate(req.EndDate, s.clockNow)
		if err != nil {
			return nil, err
		}
		if e.Before(start) {
			return nil, errs.NewValidationError("endDate must not be before startDate")
		}
		end = &e
	}

	now := s.clockNow()
	return &models.RecurringPayment{
		RecurringPaymentID: s.newID(),
		UserID:             uid,
		Name:               name,
		DefaultAmount:      req.DefaultAmount,
		Frequency:          req.Frequency,
		CustomIntervalDays: req.CustomIntervalDays,
		StartDate:          start,
		EndDate:            end,
		NextDueDate:        start,
		AccountID:          accountID,
		CategoryID:         strings.TrimSpace(req.CategoryID),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}
