package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/finance-tracker/internal/handlers"
	"github.com/GregMSThompson/finance-tracker/internal/ledger"
	"github.com/GregMSThompson/finance-tracker/internal/middleware"
	"github.com/GregMSThompson/finance-tracker/internal/response"
	"github.com/GregMSThompson/finance-tracker/internal/services"
	"github.com/GregMSThompson/finance-tracker/internal/store/memory"
	"github.com/GregMSThompson/finance-tracker/pkg/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	// set on overpayment
	Outstanding string `json:"outstanding"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))
	st := memory.New()
	l := ledger.New(st)
	txns := services.NewTransactionService(st, l)

	deps := &handlers.Deps{
		Log:             log,
		ResponseHandler: response.New(log),
		AccountSvc:      services.NewAccountService(st, l),
		TransactionSvc:  txns,
		CreditSvc:       services.NewCreditService(st, txns),
		RecurringSvc:    services.NewRecurringService(st, txns),
	}
	srv := httptest.NewServer(NewRouter(deps))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, uid, method, path, body string) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if uid != "" {
		req.Header.Set(middleware.UserIDHeader, uid)
	}
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&env))
	return res.StatusCode, env
}

func dataID(t *testing.T, env envelope, key string) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &m))
	id, _ := m[key].(string)
	require.NotEmpty(t, id, "missing %s in %s", key, env.Data)
	return id
}

func TestMissingIdentity(t *testing.T) {
	srv := newServer(t)
	res, err := srv.Client().Get(srv.URL + "/accounts")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestLendRepaySettleOverHTTP(t *testing.T) {
	srv := newServer(t)

	status, env := call(t, srv, "u1", http.MethodPost, "/accounts", `{"name":"Checking","type":"bank","openingBalance":"1000","currency":"USD"}`)
	require.Equal(t, http.StatusCreated, status, env.Message)
	accountID := dataID(t, env, "accountId")

	status, env = call(t, srv, "u1", http.MethodPost, "/transactions",
		`{"accountId":"`+accountID+`","amount":"500","kind":"credit","creditType":"lent","counterparty":"Sam","date":"2025-03-01"}`)
	require.Equal(t, http.StatusCreated, status, env.Message)
	originID := dataID(t, env, "transactionId")

	status, env = call(t, srv, "u1", http.MethodPost, "/credits/"+originID+"/repayments", `{"amount":"600"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "overpayment", env.Code)
	assert.Equal(t, "500.00", env.Outstanding)

	status, env = call(t, srv, "u1", http.MethodPost, "/credits/"+originID+"/repayments", `{"amount":"200"}`)
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = call(t, srv, "u1", http.MethodPost, "/credits/"+originID+"/repayments", `{"isFullSettlement":true}`)
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = call(t, srv, "u1", http.MethodGet, "/credits/"+originID, "")
	require.Equal(t, http.StatusOK, status)
	var credit struct {
		OutstandingBalance string `json:"outstandingBalance"`
		IsSettled          bool   `json:"isSettled"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &credit))
	assert.Equal(t, "0.00", credit.OutstandingBalance)
	assert.True(t, credit.IsSettled)

	status, env = call(t, srv, "u1", http.MethodPost, "/credits/"+originID+"/repayments", `{"amount":"1"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_settled", env.Code)

	status, env = call(t, srv, "u1", http.MethodGet, "/accounts/"+accountID+"/balance", "")
	require.Equal(t, http.StatusOK, status)
	var bal struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &bal))
	assert.Equal(t, "1000.00", bal.Balance)

	status, env = call(t, srv, "u1", http.MethodGet, "/accounts/"+accountID+"/reconcile", "")
	require.Equal(t, http.StatusOK, status)
	var rec struct {
		Drift string `json:"drift"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "0.00", rec.Drift)

	// the origin cannot be deleted while repayments exist
	status, env = call(t, srv, "u1", http.MethodDelete, "/transactions/"+originID, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "referenced", env.Code)
}

func TestOtherUsersDataIsHidden(t *testing.T) {
	srv := newServer(t)

	status, env := call(t, srv, "owner", http.MethodPost, "/accounts", `{"name":"Checking","type":"bank","openingBalance":"10","currency":"USD"}`)
	require.Equal(t, http.StatusCreated, status, env.Message)
	accountID := dataID(t, env, "accountId")

	status, env = call(t, srv, "intruder", http.MethodPost, "/transactions",
		`{"accountId":"`+accountID+`","amount":"5","kind":"expense","counterparty":"Shop"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "forbidden", env.Code)

	status, _ = call(t, srv, "intruder", http.MethodGet, "/accounts/"+accountID, "")
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, status)
}
