package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/finance-tracker/pkg/logger"
)

func TestIdentityRequiresHeader(t *testing.T) {
	called := false
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounts", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if called {
		t.Fatalf("next handler should not run without a caller id")
	}
}

func TestIdentitySetsUID(t *testing.T) {
	var got string
	h := Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = UID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.Header.Set(UserIDHeader, " user-1 ")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "user-1" {
		t.Fatalf("expected uid user-1, got %q", got)
	}
}

func TestLoggerMiddlewareLogsRequest(t *testing.T) {
	var buf strings.Builder
	log := slog.New(logger.NewCloudRunHandlerTo(&buf, slog.LevelInfo))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(NewLoggerMiddleware(log).LoggerMiddleware)
	r.Use(Identity)
	r.Get("/accounts", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handled")
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	req.Header.Set(UserIDHeader, "user-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"message":"handled"`, `"uid":"user-1"`, `"message":"request completed"`, `"status":418`, `"request_id":`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %s, got %s", want, out)
		}
	}
}
