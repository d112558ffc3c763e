package services

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/ledger"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/schedule"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

// --- Dependencies (minimal interfaces scoped to the services) ---

// unitOfWork runs a function atomically against the configured backend.
type unitOfWork interface {
	Run(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error
	View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error
}

// ledgerApplier is the single balance mutation path.
type ledgerApplier interface {
	Apply(ctx context.Context, tx ledger.BalanceTx, uid string, deltas []ledger.Delta) (map[string]money.Money, error)
}

type transactionService struct {
	store    unitOfWork
	ledger   ledgerApplier
	newID    func() string
	clockNow func() time.Time
}

func NewTransactionService(store unitOfWork, ledger ledgerApplier) *transactionService {
	return &transactionService{
		store:    store,
		ledger:   ledger,
		newID:    func() string { return uuid.New().String() },
		clockNow: time.Now,
	}
}

func (s *transactionService) Create(ctx context.Context, uid string, in dto.TransactionIntent) (*models.Transaction, error) {
	var created *models.Transaction
	err := s.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		created, err = s.create(ctx, tx, uid, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("transaction created", "transaction_id", created.TransactionID, "kind", created.Kind, "repayment", created.IsRepayment)
	return created, nil
}

func (s *transactionService) Update(ctx context.Context, uid, transactionID string, in dto.TransactionIntent) (*models.Transaction, error) {
	var updated *models.Transaction
	err := s.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		updated, err = s.update(ctx, tx, uid, transactionID, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("transaction updated", "transaction_id", transactionID, "kind", updated.Kind)
	return updated, nil
}

func (s *transactionService) Delete(ctx context.Context, uid, transactionID string) error {
	err := s.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		return s.delete(ctx, tx, uid, transactionID)
	})
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx)
	log.Info("transaction deleted", "transaction_id", transactionID)
	return nil
}

func (s *transactionService) Get(ctx context.Context, uid, transactionID string) (*models.Transaction, error) {
	var t *models.Transaction
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		t, err = getOwnedTransaction(ctx, tx, uid, transactionID)
		return err
	})
	return t, err
}

func (s *transactionService) List(ctx context.Context, uid string, q dto.TransactionQuery) ([]*models.Transaction, error) {
	filter := store.TransactionFilter{
		AccountID: q.AccountID,
		CreditID:  q.CreditID,
		Kind:      q.Kind,
		Limit:     q.Limit,
	}
	if q.DateFrom != "" {
		from, err := parseDate(q.DateFrom, s.clockNow)
		if err != nil {
			return nil, err
		}
		filter.DateFrom = &from
	}
	if q.DateTo != "" {
		to, err := parseDate(q.DateTo, s.clockNow)
		if err != nil {
			return nil, err
		}
		filter.DateTo = &to
	}

	var out []*models.Transaction
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.ListTransactions(ctx, uid, filter)
		return err
	})
	return out, err
}

// --- Unit-of-work bodies ---
//
// Each body performs every read before its first write: the ledger reads the
// affected accounts and then writes balances, and only after that is the
// transaction record (and any recurring payment) written.
//
// Rows are read in one global order: transactions, then the recurring
// payment, then accounts by ascending id. Recurring.Pay locks its payment
// before posting, so a linked create must not touch an account first.

func (s *transactionService) create(ctx context.Context, tx store.Tx, uid string, in dto.TransactionIntent) (*models.Transaction, error) {
	t, err := s.build(uid, in)
	if err != nil {
		return nil, err
	}
	if t.IsRepayment {
		if err := settleAgainstOrigin(ctx, tx, uid, t, "", true); err != nil {
			return nil, err
		}
	}

	var payment *models.RecurringPayment
	if t.RecurringPaymentID != "" {
		payment, err = loadRecurring(ctx, tx, uid, t.RecurringPaymentID)
		if err != nil {
			return nil, err
		}
		if !payment.IsActive {
			return nil, errs.NewValidationError("recurring payment " + payment.RecurringPaymentID + " is not active")
		}
		if t.Counterparty == "" {
			t.Counterparty = payment.Name
		}
	}
	if err := checkAccounts(ctx, tx, uid, t); err != nil {
		return nil, err
	}

	deltas, err := legs(t)
	if err != nil {
		return nil, err
	}

	now := s.clockNow()
	t.TransactionID = s.newID()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.ledger.Apply(ctx, tx, uid, deltas); err != nil {
		return nil, err
	}
	if err := tx.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	if payment != nil {
		advanceRecurring(payment, now)
		if err := tx.UpdateRecurring(ctx, payment); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// update replaces a transaction. The old legs are reversed and the new legs
// applied in one ledger call, so no intermediate balance is ever visible.
func (s *transactionService) update(ctx context.Context, tx store.Tx, uid, transactionID string, in dto.TransactionIntent) (*models.Transaction, error) {
	old, err := getOwnedTransaction(ctx, tx, uid, transactionID)
	if err != nil {
		return nil, err
	}
	t, err := s.build(uid, in)
	if err != nil {
		return nil, err
	}
	t.TransactionID = old.TransactionID
	t.CreatedAt = old.CreatedAt
	if t.CreditID == transactionID {
		return nil, errs.NewValidationError("a transaction cannot repay itself")
	}

	if old.IsCreditOrigin() {
		repayments, err := tx.ListTransactions(ctx, uid, store.TransactionFilter{CreditID: transactionID})
		if err != nil {
			return nil, err
		}
		if len(repayments) > 0 {
			if !t.IsCreditOrigin() || t.CreditType != old.CreditType {
				return nil, errs.NewReferencedError("credit " + transactionID + " has repayments; delete them before changing its kind or credit type")
			}
			if repaid := totalOf(repayments); t.Amount.LessThan(repaid) {
				return nil, errs.NewValidationError("credit amount " + t.Amount.String() + " is below the " + repaid.String() + " already repaid")
			}
		}
	}

	if t.IsRepayment {
		movedCredit := !old.IsRepayment || old.CreditID != t.CreditID
		if err := settleAgainstOrigin(ctx, tx, uid, t, transactionID, movedCredit); err != nil {
			return nil, err
		}
	}
	if t.RecurringPaymentID != "" && t.RecurringPaymentID != old.RecurringPaymentID {
		if _, err := loadRecurring(ctx, tx, uid, t.RecurringPaymentID); err != nil {
			return nil, err
		}
	}
	if err := checkAccounts(ctx, tx, uid, t, old.AccountID, old.ToAccountID); err != nil {
		return nil, err
	}

	oldLegs, err := legs(old)
	if err != nil {
		return nil, err
	}
	newLegs, err := legs(t)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.Apply(ctx, tx, uid, append(ledger.Negate(oldLegs), newLegs...)); err != nil {
		return nil, err
	}
	t.UpdatedAt = s.clockNow()
	if err := tx.UpdateTransaction(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *transactionService) delete(ctx context.Context, tx store.Tx, uid, transactionID string) error {
	t, err := getOwnedTransaction(ctx, tx, uid, transactionID)
	if err != nil {
		return err
	}
	if t.IsCreditOrigin() {
		repayments, err := tx.ListTransactions(ctx, uid, store.TransactionFilter{CreditID: transactionID})
		if err != nil {
			return err
		}
		if len(repayments) > 0 {
			return errs.NewReferencedError("credit " + transactionID + " has live repayments; delete them first")
		}
	}

	deltas, err := legs(t)
	if err != nil {
		return err
	}
	if _, err := s.ledger.Apply(ctx, tx, uid, ledger.Negate(deltas)); err != nil {
		return err
	}
	return tx.DeleteTransaction(ctx, transactionID)
}

// --- Validation ---

func (s *transactionService) build(uid string, in dto.TransactionIntent) (*models.Transaction, error) {
	date, err := parseDate(in.Date, s.clockNow)
	if err != nil {
		return nil, err
	}
	t := &models.Transaction{
		UserID:             uid,
		AccountID:          strings.TrimSpace(in.AccountID),
		ToAccountID:        strings.TrimSpace(in.ToAccountID),
		Amount:             in.Amount,
		Date:               date,
		Kind:               in.Kind,
		CreditType:         in.CreditType,
		CreditID:           strings.TrimSpace(in.CreditID),
		IsRepayment:        in.IsRepayment,
		IsFullSettlement:   in.IsFullSettlement,
		RecurringPaymentID: strings.TrimSpace(in.RecurringPaymentID),
		CategoryID:         strings.TrimSpace(in.CategoryID),
		Counterparty:       strings.TrimSpace(in.Counterparty),
		Description:        strings.TrimSpace(in.Description),
	}
	if err := validateShape(t); err != nil {
		return nil, err
	}
	return t, nil
}

func validateShape(t *models.Transaction) error {
	if !t.Amount.IsPositive() {
		return errs.NewValidationError("amount must be greater than zero")
	}
	if t.AccountID == "" {
		return errs.NewValidationError("accountId is required")
	}
	if !t.Kind.Valid() {
		return errs.NewValidationError("unknown transaction kind: " + string(t.Kind))
	}

	if t.Kind == models.KindTransfer {
		if t.ToAccountID == "" {
			return errs.NewValidationError("toAccountId is required for transfers")
		}
		if t.ToAccountID == t.AccountID {
			return errs.NewValidationError("cannot transfer to the same account")
		}
	} else if t.ToAccountID != "" {
		return errs.NewValidationError("toAccountId is only valid for transfers")
	}

	if t.Kind != models.KindCredit {
		if t.CreditType != "" || t.CreditID != "" || t.IsRepayment || t.IsFullSettlement {
			return errs.NewValidationError("credit fields are only valid on credit transactions")
		}
	} else {
		switch {
		case t.IsRepayment && t.CreditID == "":
			return errs.NewValidationError("repayments must reference their credit with creditId")
		case !t.IsRepayment && t.CreditID != "":
			return errs.NewValidationError("creditId is only valid on repayments")
		case !t.IsRepayment && t.IsFullSettlement:
			return errs.NewValidationError("isFullSettlement is only valid on repayments")
		case !t.IsRepayment && !t.CreditType.Valid():
			return errs.NewValidationError("creditType must be lent or borrowed")
		case t.IsRepayment && t.CreditType != "" && !t.CreditType.Valid():
			return errs.NewValidationError("creditType must be lent or borrowed")
		}
	}

	switch {
	case t.Kind == models.KindIncome, t.Kind == models.KindExpense, t.IsCreditOrigin():
		if t.Counterparty == "" {
			return errs.NewValidationError("counterparty is required for " + string(t.Kind) + " transactions")
		}
	case t.Kind == models.KindRecurring:
		if t.RecurringPaymentID == "" {
			return errs.NewValidationError("recurringPaymentId is required for recurring transactions")
		}
	}
	return nil
}

// checkAccounts verifies that every leg account exists and belongs to uid.
// Accounts are read in ascending id order, together with any extra ids the
// caller is about to touch, so SQL backends lock rows in one global order.
func checkAccounts(ctx context.Context, tx store.Tx, uid string, t *models.Transaction, extra ...string) error {
	ids := append([]string{t.AccountID, t.ToAccountID}, extra...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	accounts := make(map[string]*models.Account, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		a, err := getOwnedAccount(ctx, tx, uid, id)
		if err != nil {
			return err
		}
		accounts[id] = a
	}

	if t.Kind != models.KindTransfer {
		return nil
	}
	from, to := accounts[t.AccountID], accounts[t.ToAccountID]
	if from.Currency != to.Currency {
		return errs.NewValidationError("cannot transfer between " + from.Currency + " and " + to.Currency + " accounts")
	}
	return nil
}

// settleAgainstOrigin ties a repayment to its origin: it copies the origin's
// credit type, applies the full-settlement clamp and rejects overpayment.
// excludeID leaves the repayment being edited out of the repaid total.
func settleAgainstOrigin(ctx context.Context, tx store.Tx, uid string, t *models.Transaction, excludeID string, rejectSettled bool) error {
	origin, repayments, err := loadCredit(ctx, tx, uid, t.CreditID)
	if err != nil {
		return err
	}
	if excludeID != "" {
		repayments = without(repayments, excludeID)
	}
	if t.CreditType != "" && t.CreditType != origin.CreditType {
		return errs.NewValidationError("repayment creditType does not match credit " + origin.TransactionID)
	}

	view := buildCreditView(origin, repayments)
	if rejectSettled && view.IsSettled {
		return errs.NewAlreadySettledError(origin.TransactionID)
	}

	amount, err := clampRepayment(t.Amount, t.IsFullSettlement, view.OutstandingBalance)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return errs.NewAlreadySettledError(origin.TransactionID)
	}

	t.Amount = amount
	t.CreditType = origin.CreditType
	if t.Counterparty == "" {
		t.Counterparty = origin.Counterparty
	}
	return nil
}

// clampRepayment returns the amount that actually posts. A full settlement
// always posts exactly the outstanding balance so the credit lands on zero.
func clampRepayment(amount money.Money, fullSettlement bool, outstanding money.Money) (money.Money, error) {
	if fullSettlement {
		return outstanding, nil
	}
	if amount.GreaterThan(outstanding) {
		return money.Zero, errs.NewOverpaymentError(amount, outstanding)
	}
	return amount, nil
}

func advanceRecurring(p *models.RecurringPayment, now time.Time) {
	p.NextDueDate = schedule.NextDueDate(p.Frequency, p.NextDueDate, p.CustomIntervalDays)
	if p.EndDate != nil && p.NextDueDate.After(schedule.DateOnly(*p.EndDate)) {
		p.IsActive = false
	}
	p.UpdatedAt = now
}

// --- Lookups ---

func getOwnedTransaction(ctx context.Context, tx store.Tx, uid, transactionID string) (*models.Transaction, error) {
	t, err := tx.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if t.UserID != uid {
		return nil, errs.NewNotFoundError("transaction not found")
	}
	return t, nil
}

func getOwnedAccount(ctx context.Context, tx store.Tx, uid, accountID string) (*models.Account, error) {
	a, err := tx.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.UserID != uid {
		return nil, errs.NewOwnershipError("account " + accountID + " does not belong to caller")
	}
	return a, nil
}

func loadRecurring(ctx context.Context, tx store.Tx, uid, recurringPaymentID string) (*models.RecurringPayment, error) {
	p, err := tx.GetRecurring(ctx, recurringPaymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID != uid {
		return nil, errs.NewNotFoundError("recurring payment not found")
	}
	return p, nil
}

// loadCredit returns an origin and its live repayments. Repayments chain to
// an origin only, never to another repayment.
func loadCredit(ctx context.Context, tx store.Tx, uid, originID string) (*models.Transaction, []*models.Transaction, error) {
	origin, err := tx.GetTransaction(ctx, originID)
	if err != nil {
		var nf *errs.NotFoundError
		if errors.As(err, &nf) {
			return nil, nil, errs.NewNotFoundError("credit " + originID + " not found")
		}
		return nil, nil, err
	}
	if origin.UserID != uid {
		return nil, nil, errs.NewNotFoundError("credit " + originID + " not found")
	}
	if !origin.IsCreditOrigin() {
		return nil, nil, errs.NewValidationError("transaction " + originID + " is not a credit origin")
	}
	repayments, err := tx.ListTransactions(ctx, uid, store.TransactionFilter{CreditID: originID})
	if err != nil {
		return nil, nil, err
	}
	return origin, repayments, nil
}

func parseDate(s string, now func() time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return schedule.DateOnly(now()), nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errs.NewValidationError("invalid date " + s + ", want YYYY-MM-DD")
	}
	return d, nil
}

func without(ts []*models.Transaction, id string) []*models.Transaction {
	out := make([]*models.Transaction, 0, len(ts))
	for _, t := range ts {
		if t.TransactionID != id {
			out = append(out, t)
		}
	}
	return out
}

func totalOf(ts []*models.Transaction) money.Money {
	total := money.Zero
	for _, t := range ts {
		total = total.Add(t.Amount)
	}
	return total
}
