package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/middleware"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/response"
)

type transactionService interface {
	Create(ctx context.Context, uid string, in dto.TransactionIntent) (*models.Transaction, error)
	Update(ctx context.Context, uid, transactionID string, in dto.TransactionIntent) (*models.Transaction, error)
	Delete(ctx context.Context, uid, transactionID string) error
	Get(ctx context.Context, uid, transactionID string) (*models.Transaction, error)
	List(ctx context.Context, uid string, q dto.TransactionQuery) ([]*models.Transaction, error)
}

type transactionHandlers struct {
	ResponseHandler response.ResponseHandler
	TransactionSvc  transactionService
}

func NewTransactionHandlers(deps *Deps) *transactionHandlers {
	return &transactionHandlers{
		ResponseHandler: deps.ResponseHandler,
		TransactionSvc:  deps.TransactionSvc,
	}
}

func (h *transactionHandlers) TransactionRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateTransaction)
	r.Get("/", h.ListTransactions)
	r.Get("/{transactionId}", h.GetTransaction)
	r.Put("/{transactionId}", h.UpdateTransaction)
	r.Delete("/{transactionId}", h.DeleteTransaction)
	return r
}

func (h *transactionHandlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in dto.TransactionIntent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	t, err := h.TransactionSvc.Create(r.Context(), uid, in)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, t)
}

// ListTransactions filters by the accountId, creditId, kind, from, to and
// limit query parameters.
func (h *transactionHandlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	q := r.URL.Query()
	query := dto.TransactionQuery{
		AccountID: q.Get("accountId"),
		CreditID:  q.Get("creditId"),
		Kind:      models.TransactionKind(q.Get("kind")),
		DateFrom:  q.Get("from"),
		DateTo:    q.Get("to"),
		Limit:     limit,
	}

	uid := middleware.UID(r.Context())
	txs, err := h.TransactionSvc.List(r.Context(), uid, query)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, txs)
}

func (h *transactionHandlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	uid := middleware.UID(r.Context())
	t, err := h.TransactionSvc.Get(r.Context(), uid, transactionID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, t)
}

func (h *transactionHandlers) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	var in dto.TransactionIntent
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	t, err := h.TransactionSvc.Update(r.Context(), uid, transactionID, in)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, t)
}

func (h *transactionHandlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	uid := middleware.UID(r.Context())
	if err := h.TransactionSvc.Delete(r.Context(), uid, transactionID); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}
