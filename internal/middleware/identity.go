package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/GregMSThompson/finance-tracker/pkg/logger"
)

// UserIDHeader is set by the trusted upstream after it authenticates the caller.
const UserIDHeader = "X-User-ID"

// context key
type contextKey string

const UIDKey contextKey = "uid"

// Identity requires the caller id header and puts it on the request context.
// It also tags the request logger with the id, so it belongs after the logger
// middleware.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if uid == "" {
			http.Error(w, "missing "+UserIDHeader+" header", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UIDKey, uid)
		_, ctx = logger.With(ctx, "uid", uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Helper to extract UID
func UID(ctx context.Context) string {
	uid, _ := ctx.Value(UIDKey).(string)
	return uid
}
