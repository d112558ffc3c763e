package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
)

type stubTransactionService struct {
	created   *models.Transaction
	createErr error
	updated   *models.Transaction
	updateErr error
	deleteErr error
	got       *models.Transaction
	getErr    error
	listed    []*models.Transaction
	listErr   error

	lastUID    string
	lastID     string
	lastIntent dto.TransactionIntent
	lastQuery  dto.TransactionQuery
}

func (s *stubTransactionService) Create(_ context.Context, uid string, in dto.TransactionIntent) (*models.Transaction, error) {
	s.lastUID = uid
	s.lastIntent = in
	return s.created, s.createErr
}

func (s *stubTransactionService) Update(_ context.Context, uid, transactionID string, in dto.TransactionIntent) (*models.Transaction, error) {
	s.lastUID = uid
	s.lastID = transactionID
	s.lastIntent = in
	return s.updated, s.updateErr
}

func (s *stubTransactionService) Delete(_ context.Context, uid, transactionID string) error {
	s.lastUID = uid
	s.lastID = transactionID
	return s.deleteErr
}

func (s *stubTransactionService) Get(_ context.Context, uid, transactionID string) (*models.Transaction, error) {
	s.lastUID = uid
	s.lastID = transactionID
	return s.got, s.getErr
}

func (s *stubTransactionService) List(_ context.Context, uid string, q dto.TransactionQuery) ([]*models.Transaction, error) {
	s.lastUID = uid
	s.lastQuery = q
	return s.listed, s.listErr
}

func TestCreateTransaction_OK(t *testing.T) {
	svc := &stubTransactionService{created: &models.Transaction{TransactionID: "t1"}}
	resp := &stubResponseHandler{}
	h := NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})

	body := `{"accountId":"a1","toAccountId":"a2","amount":"100.00","kind":"transfer","date":"2025-03-01"}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req = withUID(req, "uid1")
	rr := httptest.NewRecorder()
	h.CreateTransaction(rr, req)

	if !resp.writeSuccessCalled || resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("expected WriteSuccess with 201, got called=%v status=%d", resp.writeSuccessCalled, resp.writeSuccessStatus)
	}
	if svc.lastUID != "uid1" {
		t.Errorf("expected uid1, got %q", svc.lastUID)
	}
	if svc.lastIntent.Kind != models.KindTransfer || svc.lastIntent.Amount.String() != "100.00" || svc.lastIntent.ToAccountID != "a2" {
		t.Errorf("unexpected intent passed to service: %+v", svc.lastIntent)
	}
}

func TestCreateTransaction_BadJSON(t *testing.T) {
	svc := &stubTransactionService{}
	resp := &stubResponseHandler{}
	h := NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"amount":`))
	req = withUID(req, "uid1")
	rr := httptest.NewRecorder()
	h.CreateTransaction(rr, req)

	if !resp.handleErrorCalled {
		t.Fatal("expected HandleError to be called")
	}
	if svc.lastUID != "" {
		t.Fatal("service should not be called on a malformed body")
	}
}

func TestCreateTransaction_ServiceError(t *testing.T) {
	svc := &stubTransactionService{createErr: errs.NewValidationError("amount must be positive")}
	resp := &stubResponseHandler{}
	h := NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})

	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"amount":"0"}`))
	req = withUID(req, "uid1")
	rr := httptest.NewRecorder()
	h.CreateTransaction(rr, req)

	var ve *errs.ValidationError
	if !resp.handleErrorCalled || !errors.As(resp.handleError, &ve) {
		t.Fatalf("expected ValidationError passed to HandleError, got %v", resp.handleError)
	}
}

func TestListTransactions_Query(t *testing.T) {
	svc := &stubTransactionService{listed: []*models.Transaction{{TransactionID: "t1"}}}
	resp := &stubResponseHandler{}
	h := NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})

	req := httptest.NewRequest(http.MethodGet, "/transactions?accountId=a1&kind=expense&from=2025-01-01&to=2025-01-31&limit=5", nil)
	req = withUID(req, "uid1")
	rr := httptest.NewRecorder()
	h.ListTransactions(rr, req)

	if !resp.writeSuccessCalled {
		t.Fatal("expected WriteSuccess")
	}
	want := dto.TransactionQuery{AccountID: "a1", Kind: models.KindExpense, DateFrom: "2025-01-01", DateTo: "2025-01-31", Limit: 5}
	if svc.lastQuery != want {
		t.Errorf("query = %+v, want %+v", svc.lastQuery, want)
	}
}

func TestListTransactions_BadLimit(t *testing.T) {
	svc := &stubTransactionService{}
	resp := &stubResponseHandler{}
	h := NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})

	req := httptest.NewRequest(http.MethodGet, "/transactions?limit=ten", nil)
	req = withUID(req, "uid1")
	rr := httptest.NewRecorder()
	h.ListTransactions(rr, req)

	var ve *errs.ValidationError
	if !errors.As(resp.handleError, &ve) {
		t.Fatalf("expected ValidationError, got %v", resp.handleError)
	}
}

func TestUpdateTransaction_UsesPathID(t *testing.T) {
	svc := &stubTransactionService{updated: &models.Transaction{TransactionID: "t9"}}
	resp := &stubResponseHandler{}
	h := NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})

	req := httptest.NewRequest(http.MethodPut, "/transactions/t9", strings.NewReader(`{"accountId":"a1","amount":"5","kind":"expense"}`))
	req = withUID(req, "uid1")
	req = withChiParam(req, "transactionId", "t9")
	rr := httptest.NewRecorder()
	h.UpdateTransaction(rr, req)

	if !resp.writeSuccessCalled || resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("expected WriteSuccess with 200, got status=%d", resp.writeSuccessStatus)
	}
	if svc.lastID != "t9" {
		t.Errorf("expected t9, got %q", svc.lastID)
	}
}

func TestDeleteTransaction_Referenced(t *testing.T) {
	svc := &stubTransactionService{deleteErr: errs.NewReferencedError("credit has repayments")}
	resp := &stubResponseHandler{}
	h := NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})

	req := httptest.NewRequest(http.MethodDelete, "/transactions/t1", nil)
	req = withUID(req, "uid1")
	req = withChiParam(req, "transactionId", "t1")
	rr := httptest.NewRecorder()
	h.DeleteTransaction(rr, req)

	if !resp.handleErrorCalled || svc.lastID != "t1" {
		t.Fatalf("expected HandleError after delete of t1, got called=%v id=%q", resp.handleErrorCalled, svc.lastID)
	}
}

func TestGetTransaction_NotFound(t *testing.T) {
	svc := &stubTransactionService{getErr: errs.NewNotFoundError("transaction not found")}
	resp := &stubResponseHandler{}
	h := NewTransactionHandlers(&Deps{ResponseHandler: resp, TransactionSvc: svc})

	req := httptest.NewRequest(http.MethodGet, "/transactions/nope", nil)
	req = withUID(req, "uid1")
	req = withChiParam(req, "transactionId", "nope")
	rr := httptest.NewRecorder()
	h.GetTransaction(rr, req)

	if !resp.handleErrorCalled {
		t.Fatal("expected HandleError to be called")
	}
}
