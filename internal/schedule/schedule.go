// Package schedule computes recurring-payment due dates.
//
// The anchor for a rollover is always the previous due date, never the date a
// payment was actually made, so late or early payments do not shift the cycle.
// Month-based steps clamp to the last day of the target month: Jan 31 plus one
// month is Feb 28 (Feb 29 in leap years).
package schedule

import (
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/GregMSThompson/finance-tracker/internal/models"
)

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextDueDate returns the due date following anchor. Unknown frequencies and a
// custom frequency without a positive interval fall back to the monthly rule so
// that posting a payment is never blocked by bad schedule data.
func NextDueDate(freq models.Frequency, anchor time.Time, customIntervalDays int) time.Time {
	anchor = DateOnly(anchor)

	if days, ok := dayStep(freq, customIntervalDays); ok {
		return anchor.AddDate(0, 0, days)
	}
	switch freq {
	case models.FrequencyQuarterly:
		return addMonths(anchor, 3)
	case models.FrequencyYearly:
		return addMonths(anchor, 12)
	default: // monthly and anything unrecognized
		return addMonths(anchor, 1)
	}
}

// dayStep reports the fixed day interval of freq, if it has one.
func dayStep(freq models.Frequency, customIntervalDays int) (int, bool) {
	switch freq {
	case models.FrequencyDaily:
		return 1, true
	case models.FrequencyWeekly:
		return 7, true
	case models.FrequencyCustom:
		return customIntervalDays, customIntervalDays > 0
	}
	return 0, false
}

// addMonths adds months keeping the day of month, clamped to the last day of
// the target month. time.AddDate would normalize Jan 31 + 1 month to Mar 3.
func addMonths(anchor time.Time, months int) time.Time {
	y, m, d := anchor.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// Project returns up to n due dates after p.NextDueDate using the same
// rollover posting would apply. Dates after p.EndDate are dropped.
func Project(p *models.RecurringPayment, n int) []time.Time {
	next := DateOnly(p.NextDueDate)
	if days, ok := dayStep(p.Frequency, p.CustomIntervalDays); ok {
		if out, err := projectDays(next, days, n, p.EndDate); err == nil {
			return out
		}
	}

	out := make([]time.Time, 0, n)
	for len(out) < n {
		next = NextDueDate(p.Frequency, next, p.CustomIntervalDays)
		if p.EndDate != nil && next.After(DateOnly(*p.EndDate)) {
			break
		}
		out = append(out, next)
	}
	return out
}

// projectDays expands a fixed-interval schedule as a DAILY rule. Month-based
// frequencies stay on addMonths because RRULE skips short months instead of
// clamping to their last day.
func projectDays(start time.Time, days, n int, end *time.Time) ([]time.Time, error) {
	opt := rrule.ROption{
		Freq:     rrule.DAILY,
		Interval: days,
		Dtstart:  start,
		Count:    n + 1, // Dtstart itself is the current due date
	}
	if end != nil {
		opt.Until = DateOnly(*end)
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, n)
	for _, d := range rule.All() {
		if !d.After(start) {
			continue
		}
		if len(out) == n {
			break
		}
		out = append(out, DateOnly(d))
	}
	return out, nil
}

type Upcoming struct {
	Payment      *models.RecurringPayment `json:"payment"`
	DaysUntilDue int                      `json:"daysUntilDue"`
}

// ListUpcoming returns the active payments due within [today, today+withinDays],
// earliest first.
func ListUpcoming(payments []*models.RecurringPayment, withinDays int, today time.Time) []Upcoming {
	today = DateOnly(today)
	horizon := today.AddDate(0, 0, withinDays)

	out := make([]Upcoming, 0, len(payments))
	for _, p := range payments {
		if p == nil || !p.IsActive {
			continue
		}
		due := DateOnly(p.NextDueDate)
		if due.Before(today) || due.After(horizon) {
			continue
		}
		out = append(out, Upcoming{
			Payment:      p,
			DaysUntilDue: int(due.Sub(today).Hours() / 24),
		})
	}

	slices.SortStableFunc(out, func(a, b Upcoming) int {
		return a.Payment.NextDueDate.Compare(b.Payment.NextDueDate)
	})
	return out
}
