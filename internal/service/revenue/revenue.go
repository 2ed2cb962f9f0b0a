package revenue

import (
	"fmt"
	"time"

	"github.com/Additional-Code/bistro/internal/entity"
)

// Window names a calendar-bounded aggregation range anchored at "now".
type Window string

const (
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
)

// Result is the aggregate for one window, computed on demand and never
// persisted.
type Result struct {
	Total            float64 `json:"total"`
	OrdersSubtotal   float64 `json:"ordersSubtotal"`
	BookingsSubtotal float64 `json:"bookingsSubtotal"`
	OrderCount       int     `json:"orderCount"`
	BookingCount     int     `json:"bookingCount"`
}

// Trend compares the current window against the preceding one. HasBaseline is
// false when the previous total is zero; the delta is meaningless then and
// must not be rendered as infinity.
type Trend struct {
	Current       Result  `json:"current"`
	Previous      Result  `json:"previous"`
	PercentChange float64 `json:"percentChange"`
	HasBaseline   bool    `json:"hasBaseline"`
}

// WindowStart computes the inclusive lower bound of a window in now's
// location. Week starts are Sunday-based midnights.
func WindowStart(w Window, now time.Time) (time.Time, error) {
	year, month, day := now.Date()
	loc := now.Location()
	switch w {
	case WindowToday:
		return time.Date(year, month, day, 0, 0, 0, 0, loc), nil
	case WindowWeek:
		midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)
		return midnight.AddDate(0, 0, -int(now.Weekday())), nil
	case WindowMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, loc), nil
	case WindowYear:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, loc), nil
	default:
		return time.Time{}, fmt.Errorf("unknown revenue window: %s", w)
	}
}

// PreviousSpan computes the inclusive bounds of the window immediately before
// the current one.
func PreviousSpan(w Window, now time.Time) (time.Time, time.Time, error) {
	start, err := WindowStart(w, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.Add(-time.Nanosecond)
	switch w {
	case WindowToday:
		return start.AddDate(0, 0, -1), end, nil
	case WindowWeek:
		return start.AddDate(0, 0, -7), end, nil
	case WindowMonth:
		return start.AddDate(0, -1, 0), end, nil
	case WindowYear:
		return start.AddDate(-1, 0, 0), end, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown revenue window: %s", w)
	}
}

// Aggregate sums qualifying orders and bookings over [start, end], both
// bounds inclusive. Entities without a creation timestamp are excluded:
// unknown time is never treated as "today". An empty qualifying set yields
// zero totals, not an error. The result is independent of input order.
func Aggregate(orders []entity.Order, bookings []entity.Booking, start, end time.Time, restaurantID string) Result {
	var res Result
	for _, o := range orders {
		if !qualifies(o.CreatedAt, start, end) {
			continue
		}
		if restaurantID != "" && o.RestaurantID != restaurantID {
			continue
		}
		res.OrdersSubtotal += o.Total
		res.OrderCount++
	}
	for _, b := range bookings {
		if !qualifies(b.CreatedAt, start, end) {
			continue
		}
		if restaurantID != "" && b.RestaurantID != restaurantID {
			continue
		}
		res.BookingsSubtotal += b.Amount
		res.BookingCount++
	}
	res.Total = res.OrdersSubtotal + res.BookingsSubtotal
	return res
}

// AggregateWindow aggregates over a named window ending at now.
func AggregateWindow(orders []entity.Order, bookings []entity.Booking, w Window, restaurantID string, now time.Time) (Result, error) {
	start, err := WindowStart(w, now)
	if err != nil {
		return Result{}, err
	}
	return Aggregate(orders, bookings, start, now, restaurantID), nil
}

// PercentChange returns the period-over-period delta in percent. The second
// return is false when previous is zero: there is no baseline to compare
// against, and the caller must report that instead of an infinite value.
func PercentChange(current, previous float64) (float64, bool) {
	if previous == 0 {
		return 0, false
	}
	return (current - previous) / previous * 100, true
}

func qualifies(created, start, end time.Time) bool {
	if created.IsZero() {
		return false
	}
	return !created.Before(start) && !created.After(end)
}
