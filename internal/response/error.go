package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

type ErrorResponse struct {
	Code        string       `json:"code"`
	Message     string       `json:"message"`
	Outstanding *money.Money `json:"outstanding,omitempty"`
}

func (h *responseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeError(w, r, status, ErrorResponse{Code: code, Message: message})
}

func (h *responseHandler) writeError(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Use context logger if encoding fails
		log := logger.FromContext(r.Context())
		log.Error("failed to encode error response", "error", err, "status", status, "code", body.Code)
	}
}

func (h *responseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var (
		notFound   *errs.NotFoundError
		validation *errs.ValidationError
		ownership  *errs.OwnershipError
		overpaid   *errs.OverpaymentError
		settled    *errs.AlreadySettledError
		referenced *errs.ReferencedError
		database   *errs.DatabaseError
		syntax     *json.SyntaxError
		badType    *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &notFound):
		log.Warn("resource not found", "error", notFound.Message)
		h.WriteError(w, r, http.StatusNotFound, "not_found", notFound.Message)

	case errors.As(err, &validation):
		log.Warn("validation failed", "error", validation.Message)
		h.WriteError(w, r, http.StatusBadRequest, "invalid_input", validation.Message)

	case errors.As(err, &ownership):
		log.Warn("ownership check failed", "error", ownership.Message)
		h.WriteError(w, r, http.StatusForbidden, "forbidden", ownership.Message)

	case errors.As(err, &overpaid):
		log.Warn("repayment exceeds outstanding", "error", overpaid.Message)
		outstanding := overpaid.Outstanding
		h.writeError(w, r, http.StatusUnprocessableEntity, ErrorResponse{
			Code:        "overpayment",
			Message:     overpaid.Message,
			Outstanding: &outstanding,
		})

	case errors.As(err, &settled):
		log.Warn("credit already settled", "error", settled.Message)
		h.WriteError(w, r, http.StatusConflict, "already_settled", settled.Message)

	case errors.As(err, &referenced):
		log.Warn("resource still referenced", "error", referenced.Message)
		h.WriteError(w, r, http.StatusConflict, "referenced", referenced.Message)

	case errors.As(err, &database):
		log.Error("database error",
			"operation", database.Operation,
			"error", database.Error())
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An error occurred")

	case errors.As(err, &syntax), errors.As(err, &badType),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, money.ErrInvalidMoney):
		log.Warn("malformed request body", "error", err)
		h.WriteError(w, r, http.StatusBadRequest, "invalid_input", "malformed request body")

	default:
		log.Error("unexpected error",
			"error", err,
			"type", fmt.Sprintf("%T", err))
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An unexpected error occurred")
	}
}
