package services

import (
	"cmp"
	"context"
	"slices"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type creditService struct {
	store unitOfWork
	txns  *transactionService
}

func NewCreditService(store unitOfWork, txns *transactionService) *creditService {
	return &creditService{store: store, txns: txns}
}

func (s *creditService) Get(ctx context.Context, uid, originID string) (dto.CreditView, error) {
	var view dto.CreditView
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		origin, repayments, err := loadCredit(ctx, tx, uid, originID)
		if err != nil {
			return err
		}
		view = buildCreditView(origin, repayments)
		return nil
	})
	return view, err
}

// AddRepayment posts a repayment against an open credit and returns it with
// the credit as it stands afterwards.
func (s *creditService) AddRepayment(ctx context.Context, uid string, req dto.RepaymentRequest) (*dto.RepaymentResult, error) {
	var result *dto.RepaymentResult
	err := s.store.Run(ctx, func(ctx context.Context, tx store.Tx) error {
		origin, repayments, err := loadCredit(ctx, tx, uid, req.OriginID)
		if err != nil {
			return err
		}

		before := buildCreditView(origin, repayments)
		if before.IsSettled {
			return errs.NewAlreadySettledError(origin.TransactionID)
		}

		accountID := req.AccountID
		if accountID == "" {
			accountID = origin.AccountID
		}
		amount := req.Amount
		if req.IsFullSettlement && amount.IsZero() {
			// bare "settle it" request
			amount = before.OutstandingBalance
		}

		created, err := s.txns.create(ctx, tx, uid, dto.TransactionIntent{
			AccountID:        accountID,
			Amount:           amount,
			Date:             req.Date,
			Kind:             models.KindCredit,
			CreditID:         origin.TransactionID,
			IsRepayment:      true,
			IsFullSettlement: req.IsFullSettlement,
			Description:      req.Description,
		})
		if err != nil {
			return err
		}

		result = &dto.RepaymentResult{
			Transaction: created,
			Credit:      buildCreditView(origin, append(repayments, created)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("repayment recorded",
		"credit_id", req.OriginID,
		"transaction_id", result.Transaction.TransactionID,
		"settled", result.Credit.IsSettled)
	return result, nil
}

func (s *creditService) List(ctx context.Context, uid string, filter dto.CreditFilter) ([]dto.CreditView, error) {
	var views []dto.CreditView
	err := s.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		views, err = listCredits(ctx, tx, uid)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]dto.CreditView, 0, len(views))
	for _, v := range views {
		if filter.CreditType != "" && v.CreditType != filter.CreditType {
			continue
		}
		if v.IsSettled && !filter.IncludeSettled {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *creditService) Summary(ctx context.Context, uid string) (dto.CreditSummary, error) {
	views, err := s.List(ctx, uid, dto.CreditFilter{IncludeSettled: true})
	if err != nil {
		return dto.CreditSummary{}, err
	}

	summary := dto.CreditSummary{LentOutstanding: money.Zero, BorrowedOutstanding: money.Zero}
	for _, v := range views {
		if v.IsSettled {
			summary.Settled++
			continue
		}
		summary.Open++
		switch v.CreditType {
		case models.CreditLent:
			summary.LentOutstanding = summary.LentOutstanding.Add(v.OutstandingBalance)
		case models.CreditBorrowed:
			summary.BorrowedOutstanding = summary.BorrowedOutstanding.Add(v.OutstandingBalance)
		}
	}
	return summary, nil
}

// listCredits groups every credit transaction of uid into views, oldest origin first.
func listCredits(ctx context.Context, tx store.Tx, uid string) ([]dto.CreditView, error) {
	all, err := tx.ListTransactions(ctx, uid, store.TransactionFilter{Kind: models.KindCredit})
	if err != nil {
		return nil, err
	}

	var origins []*models.Transaction
	repayments := make(map[string][]*models.Transaction)
	for _, t := range all {
		if t.IsCreditOrigin() {
			origins = append(origins, t)
			continue
		}
		repayments[t.CreditID] = append(repayments[t.CreditID], t)
	}

	views := make([]dto.CreditView, 0, len(origins))
	for _, o := range origins {
		views = append(views, buildCreditView(o, repayments[o.TransactionID]))
	}
	return views, nil
}

// buildCreditView derives the outstanding balance of a credit. A credit is
// settled once nothing is outstanding or any repayment was a full settlement.
func buildCreditView(origin *models.Transaction, repayments []*models.Transaction) dto.CreditView {
	sorted := slices.Clone(repayments)
	slices.SortStableFunc(sorted, func(a, b *models.Transaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	})

	repaid := money.Zero
	fullSettlement := false
	for _, r := range sorted {
		repaid = repaid.Add(r.Amount)
		fullSettlement = fullSettlement || r.IsFullSettlement
	}
	outstanding := origin.Amount.Sub(repaid)

	return dto.CreditView{
		OriginID:           origin.TransactionID,
		CreditType:         origin.CreditType,
		Counterparty:       origin.Counterparty,
		AccountID:          origin.AccountID,
		Date:               origin.Date,
		OriginAmount:       origin.Amount,
		Repayments:         sorted,
		TotalRepaid:        repaid,
		OutstandingBalance: outstanding,
		IsSettled:          !outstanding.IsPositive() || fullSettlement,
	}
}

