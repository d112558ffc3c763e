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
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type accountService interface {
	Create(ctx context.Context, uid string, req dto.CreateAccountRequest) (*models.Account, error)
	Get(ctx context.Context, uid, accountID string) (*dto.AccountView, error)
	List(ctx context.Context, uid string) ([]*dto.AccountView, error)
	Balance(ctx context.Context, uid, accountID string) (money.Money, error)
	Delete(ctx context.Context, uid, accountID string) error
	Reconcile(ctx context.Context, uid, accountID string) (*dto.Reconciliation, error)
}

type accountHandlers struct {
	ResponseHandler response.ResponseHandler
	AccountSvc      accountService
}

func NewAccountHandlers(deps *Deps) *accountHandlers {
	return &accountHandlers{
		ResponseHandler: deps.ResponseHandler,
		AccountSvc:      deps.AccountSvc,
	}
}

func (h *accountHandlers) AccountRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateAccount)
	r.Get("/", h.ListAccounts)
	r.Get("/{accountId}", h.GetAccount)
	r.Delete("/{accountId}", h.DeleteAccount)
	r.Get("/{accountId}/balance", h.GetBalance)
	r.Get("/{accountId}/reconcile", h.Reconcile)
	return r
}

func (h *accountHandlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	account, err := h.AccountSvc.Create(r.Context(), uid, req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, account)
}

func (h *accountHandlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	accounts, err := h.AccountSvc.List(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, accounts)
}

func (h *accountHandlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	uid := middleware.UID(r.Context())
	account, err := h.AccountSvc.Get(r.Context(), uid, accountID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, account)
}

func (h *accountHandlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	uid := middleware.UID(r.Context())
	if err := h.AccountSvc.Delete(r.Context(), uid, accountID); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *accountHandlers) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	uid := middleware.UID(r.Context())
	balance, err := h.AccountSvc.Balance(r.Context(), uid, accountID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, map[string]any{
		"accountId": accountID,
		"balance":   balance,
	})
}

func (h *accountHandlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")
	uid := middleware.UID(r.Context())
	rec, err := h.AccountSvc.Reconcile(r.Context(), uid, accountID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, rec)
}
