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

type creditService interface {
	Get(ctx context.Context, uid, originID string) (dto.CreditView, error)
	AddRepayment(ctx context.Context, uid string, req dto.RepaymentRequest) (*dto.RepaymentResult, error)
	List(ctx context.Context, uid string, filter dto.CreditFilter) ([]dto.CreditView, error)
	Summary(ctx context.Context, uid string) (dto.CreditSummary, error)
}

type creditHandlers struct {
	ResponseHandler response.ResponseHandler
	CreditSvc       creditService
}

func NewCreditHandlers(deps *Deps) *creditHandlers {
	return &creditHandlers{
		ResponseHandler: deps.ResponseHandler,
		CreditSvc:       deps.CreditSvc,
	}
}

func (h *creditHandlers) CreditRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListCredits)
	r.Get("/summary", h.GetSummary) // must be before /{creditId}
	r.Get("/{creditId}", h.GetCredit)
	r.Post("/{creditId}/repayments", h.AddRepayment)
	return r
}

func (h *creditHandlers) ListCredits(w http.ResponseWriter, r *http.Request) {
	includeSettled, err := queryBool(r, "includeSettled")
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	filter := dto.CreditFilter{
		CreditType:     models.CreditType(r.URL.Query().Get("type")),
		IncludeSettled: includeSettled,
	}

	uid := middleware.UID(r.Context())
	credits, err := h.CreditSvc.List(r.Context(), uid, filter)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, credits)
}

func (h *creditHandlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	summary, err := h.CreditSvc.Summary(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, summary)
}

func (h *creditHandlers) GetCredit(w http.ResponseWriter, r *http.Request) {
	creditID := chi.URLParam(r, "creditId")
	uid := middleware.UID(r.Context())
	credit, err := h.CreditSvc.Get(r.Context(), uid, creditID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, credit)
}

// AddRepayment takes the origin from the path; any originId in the body is
// ignored.
func (h *creditHandlers) AddRepayment(w http.ResponseWriter, r *http.Request) {
	var req dto.RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	req.OriginID = chi.URLParam(r, "creditId")

	uid := middleware.UID(r.Context())
	result, err := h.CreditSvc.AddRepayment(r.Context(), uid, req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, result)
}
