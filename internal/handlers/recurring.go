package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/finance-tracker/internal/dto"
	"github.com/GregMSThompson/finance-tracker/internal/middleware"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/response"
	"github.com/GregMSThompson/finance-tracker/internal/schedule"
)

const (
	defaultUpcomingDays   = 30
	defaultProjectionSize = 12
)

type recurringService interface {
	Create(ctx context.Context, uid string, req dto.CreateRecurringRequest) (*models.RecurringPayment, error)
	Get(ctx context.Context, uid, recurringPaymentID string) (*models.RecurringPayment, error)
	List(ctx context.Context, uid string) ([]*models.RecurringPayment, error)
	Upcoming(ctx context.Context, uid string, days int, today time.Time) ([]schedule.Upcoming, error)
	Projection(ctx context.Context, uid, recurringPaymentID string, n int) ([]time.Time, error)
	Pay(ctx context.Context, uid, recurringPaymentID string, req dto.PayRecurringRequest) (*models.Transaction, error)
}

type recurringHandlers struct {
	ResponseHandler response.ResponseHandler
	RecurringSvc    recurringService
}

func NewRecurringHandlers(deps *Deps) *recurringHandlers {
	return &recurringHandlers{
		ResponseHandler: deps.ResponseHandler,
		RecurringSvc:    deps.RecurringSvc,
	}
}

func (h *recurringHandlers) RecurringRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateRecurring)
	r.Get("/", h.ListRecurring)
	r.Get("/upcoming", h.ListUpcoming) // must be before /{recurringId}
	r.Get("/{recurringId}", h.GetRecurring)
	r.Get("/{recurringId}/projection", h.GetProjection)
	r.Post("/{recurringId}/pay", h.Pay)
	return r
}

func (h *recurringHandlers) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	p, err := h.RecurringSvc.Create(r.Context(), uid, req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, p)
}

func (h *recurringHandlers) ListRecurring(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	payments, err := h.RecurringSvc.List(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, payments)
}

func (h *recurringHandlers) GetRecurring(w http.ResponseWriter, r *http.Request) {
	recurringID := chi.URLParam(r, "recurringId")
	uid := middleware.UID(r.Context())
	p, err := h.RecurringSvc.Get(r.Context(), uid, recurringID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, p)
}

// ListUpcoming reads days (default 30) and an optional today override.
func (h *recurringHandlers) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultUpcomingDays)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	today, err := queryDate(r, "today")
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	upcoming, err := h.RecurringSvc.Upcoming(r.Context(), uid, days, today)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, upcoming)
}

func (h *recurringHandlers) GetProjection(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "count", defaultProjectionSize)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	recurringID := chi.URLParam(r, "recurringId")
	uid := middleware.UID(r.Context())
	dates, err := h.RecurringSvc.Projection(r.Context(), uid, recurringID, n)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(time.DateOnly)
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, out)
}

func (h *recurringHandlers) Pay(w http.ResponseWriter, r *http.Request) {
	var req dto.PayRecurringRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.ResponseHandler.HandleError(w, r, err)
			return
		}
	}
	recurringID := chi.URLParam(r, "recurringId")
	uid := middleware.UID(r.Context())
	t, err := h.RecurringSvc.Pay(r.Context(), uid, recurringID, req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, t)
}
