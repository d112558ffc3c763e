package handlers

import (
	"log/slog"

	"github.com/GregMSThompson/finance-tracker/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	AccountSvc      accountService
	TransactionSvc  transactionService
	CreditSvc       creditService
	RecurringSvc    recurringService
}
