package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/GregMSThompson/finance-tracker/internal/errs"
)

// queryInt reads an integer query parameter, returning def when it is absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewValidationError(key + " must be an integer")
	}
	return n, nil
}

func queryBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errs.NewValidationError(key + " must be true or false")
	}
	return b, nil
}

// queryDate reads a YYYY-MM-DD query parameter; absent means the zero time.
func queryDate(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, errs.NewValidationError(key + " must be a date in YYYY-MM-DD format")
	}
	return d, nil
}
