package router

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/finance-tracker/internal/handlers"
	"github.com/GregMSThompson/finance-tracker/internal/middleware"
)

func NewRouter(deps *handlers.Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggerMiddleware(deps.Log).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Identity)

	ach := handlers.NewAccountHandlers(deps)
	tch := handlers.NewTransactionHandlers(deps)
	crh := handlers.NewCreditHandlers(deps)
	rch := handlers.NewRecurringHandlers(deps)

	r.Mount("/accounts", ach.AccountRoutes())
	r.Mount("/transactions", tch.TransactionRoutes())
	r.Mount("/credits", crh.CreditRoutes())
	r.Mount("/recurring", rch.RecurringRoutes())
	return r
}
