package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type balanceReader interface {
	Balance(ctx context.Context, uid, accountID string) (money.Money, error)
}

type accountService struct {
	store    unitOfWork
	ledger   balanceReader
	newID    func() string
	clockNow func() time.Time
}

func NewAccountService(store unitOfWork, ledger balanceReader) *accountService {
	return &accountService{
		store:    store,
		ledger:   ledger,
		newID:    func() string { return uuid.New().String() },
		clockNow: time.Now,
	}
}

// Create opens an account whose balance starts at its opening balance. The
// caller's first account, or one created with isDefault, becomes the default.
func (s *accountService) Create(ctx context.Context, uid string, req dto.CreateAccountRequest) (*models.Account, error) {
	a, err := s.build(uid, req)
	if err != nil {
		return nil, err
	}

	err = s.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.ListAccounts(ctx, uid)
		if err != nil {
			return err
		}
		a.IsDefault = req.IsDefault || len(existing) == 0

		if err := tx.CreateAccount(ctx, a); err != nil {
			return err
		}
		if !a.IsDefault {
			return nil
		}
		for _, e := range existing {
			if e.IsDefault {
				if err := tx.SetDefaultAccount(ctx, e.AccountID, false); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("account created", "account_id", a.AccountID, "type", a.Type, "default", a.IsDefault)
	return a, nil
}

func (s *accountService) Get(ctx context.Context, uid, accountID string) (*dto.AccountView, error) {
	var a *models.Account
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		a, err = getOwnedAccount(ctx, tx, uid, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toAccountView(a), nil
}

func (s *accountService) List(ctx context.Context, uid string) ([]*dto.AccountView, error) {
	var accounts []*models.Account
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx, uid)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]*dto.AccountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountView(a))
	}
	return out, nil
}

func (s *accountService) Balance(ctx context.Context, uid, accountID string) (money.Money, error) {
	return s.ledger.Balance(ctx, uid, accountID)
}

// Delete removes an account nothing references. Deleting the default account
// promotes the oldest remaining one.
func (s *accountService) Delete(ctx context.Context, uid, accountID string) error {
	var promoted string
	err := s.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		// Run may retry the closure
		promoted = ""
		a, err := getOwnedAccount(ctx, tx, uid, accountID)
		if err != nil {
			return err
		}

		refs, err := tx.ListTransactions(ctx, uid, store.TransactionFilter{AccountID: accountID, Limit: 1})
		if err != nil {
			return err
		}
		if len(refs) > 0 {
			return errs.NewReferencedError("account " + accountID + " has transactions")
		}
		payments, err := tx.ListRecurring(ctx, uid)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if p.AccountID == accountID {
				return errs.NewReferencedError("account " + accountID + " is used by recurring payment " + p.RecurringPaymentID)
			}
		}

		if a.IsDefault {
			accounts, err := tx.ListAccounts(ctx, uid)
			if err != nil {
				return err
			}
			for _, other := range accounts {
				if other.AccountID != accountID {
					promoted = other.AccountID
					break
				}
			}
		}

		if err := tx.DeleteAccount(ctx, accountID); err != nil {
			return err
		}
		if promoted != "" {
			return tx.SetDefaultAccount(ctx, promoted, true)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info("account deleted", "account_id", accountID, "promoted_default", promoted)
	return nil
}

// Reconcile recomputes an account's balance from its opening balance and the
// legs of every live transaction touching it.
func (s *accountService) Reconcile(ctx context.Context, uid, accountID string) (*dto.Reconciliation, error) {
	var rec *dto.Reconciliation
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := getOwnedAccount(ctx, tx, uid, accountID)
		if err != nil {
			return err
		}
		txs, err := tx.ListTransactions(ctx, uid, store.TransactionFilter{AccountID: accountID})
		if err != nil {
			return err
		}

		computed := a.OpeningBalance
		for _, t := range txs {
			deltas, err := legs(t)
			if err != nil {
				return err
			}
			for _, d := range deltas {
				if d.AccountID == accountID {
					computed = computed.Add(d.Amount)
				}
			}
		}

		rec = &dto.Reconciliation{
			AccountID:        accountID,
			Stored:           a.Balance,
			Computed:         computed,
			Drift:            a.Balance.Sub(computed),
			TransactionCount: len(txs),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !rec.Drift.IsZero() {
		log := logger.FromContext(ctx)
		log.Warn("account balance drift", "account_id", accountID)
		log.Debug("account balance drift detail", "account_id", accountID, "drift", rec.Drift.String())
	}
	return rec, nil
}

// MonthlyInterestEstimate is |balance| x annual rate / 100 / 12 for credit
// accounts with a rate, nil otherwise. It is informational and never posted.
func MonthlyInterestEstimate(a *models.Account) *money.Money {
	if a.Type != models.AccountCredit || a.InterestRate == nil {
		return nil
	}
	est := a.Balance.Abs().MulRatio(*a.InterestRate, 1200)
	return &est
}

func toAccountView(a *models.Account) *dto.AccountView {
	return &dto.AccountView{Account: a, MonthlyInterestEstimate: MonthlyInterestEstimate(a)}
}

func (s *accountService) build(uid string, req dto.CreateAccountRequest) (*models.Account, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.NewValidationError("name is required")
	}
	if !req.Type.Valid() {
		return nil, errs.NewValidationError("unknown account type: " + string(req.Type))
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return nil, errs.NewValidationError("currency must be a three-letter ISO code")
	}

	if req.Type != models.AccountCredit {
		if req.CreditLimit != nil || req.DueDay != nil || req.MinimumPayment != nil || req.InterestRate != nil {
			return nil, errs.NewValidationError("credit details are only valid on credit accounts")
		}
	}
	if req.CreditLimit != nil && req.CreditLimit.IsNegative() {
		return nil, errs.NewValidationError("creditLimit must not be negative")
	}
	if req.DueDay != nil && (*req.DueDay < 1 || *req.DueDay > 31) {
		return nil, errs.NewValidationError("dueDay must be between 1 and 31")
	}
	if req.MinimumPayment != nil && req.MinimumPayment.IsNegative() {
		return nil, errs.NewValidationError("minimumPayment must not be negative")
	}
	if req.InterestRate != nil && req.InterestRate.LessThan(decimal.Zero) {
		return nil, errs.NewValidationError("interestRate must not be negative")
	}

	now := s.clockNow()
	return &models.Account{
		AccountID:      s.newID(),
		UserID:         uid,
		Name:           name,
		Type:           req.Type,
		Balance:        req.OpeningBalance,
		OpeningBalance: req.OpeningBalance,
		Currency:       currency,
		CreditLimit:    req.CreditLimit,
		DueDay:         req.DueDay,
		MinimumPayment: req.MinimumPayment,
		InterestRate:   req.InterestRate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
