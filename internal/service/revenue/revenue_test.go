package revenue

import (
	"testing"
	"time"

	"github.com/Additional-Code/bistro/internal/entity"
)

var refNow = time.Date(2026, 8, 19, 14, 30, 0, 0, time.UTC) // a Wednesday

func order(restaurantID string, total float64, created time.Time) entity.Order {
	return entity.Order{RestaurantID: restaurantID, Total: total, CreatedAt: created}
}

func booking(restaurantID string, amount float64, created time.Time) entity.Booking {
	return entity.Booking{RestaurantID: restaurantID, Amount: amount, CreatedAt: created}
}

func TestWindowStart(t *testing.T) {
	cases := []struct {
		window Window
		want   time.Time
	}{
		{WindowToday, time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)},
		{WindowWeek, time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)}, // Sunday
		{WindowMonth, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)},
		{WindowYear, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := WindowStart(tc.window, refNow)
		if err != nil {
			t.Fatalf("WindowStart(%s): %v", tc.window, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("WindowStart(%s) = %v, want %v", tc.window, got, tc.want)
		}
	}

	if _, err := WindowStart("quarter", refNow); err == nil {
		t.Error("unknown window must error")
	}
}

func TestWindowStartOnSunday(t *testing.T) {
	sunday := time.Date(2026, 8, 16, 10, 0, 0, 0, time.UTC)
	got, err := WindowStart(WindowWeek, sunday)
	if err != nil {
		t.Fatalf("WindowStart: %v", err)
	}
	want := time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("week start on a Sunday = %v, want same day midnight %v", got, want)
	}
}

func TestPreviousSpan(t *testing.T) {
	start, end, err := PreviousSpan(WindowToday, refNow)
	if err != nil {
		t.Fatalf("PreviousSpan: %v", err)
	}
	wantStart := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("previous day start = %v, want %v", start, wantStart)
	}
	todayStart := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	if !end.Before(todayStart) {
		t.Fatal("previous window must end strictly before the current one")
	}
}

func TestAggregateTodayBoundary(t *testing.T) {
	todayStart := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)

	orders := []entity.Order{
		order("r1", 100, todayStart),                          // exactly midnight: included
		order("r1", 250, refNow.Add(-time.Hour)),              // mid-day: included
		order("r1", 500, todayStart.Add(-time.Millisecond)),   // 1ms before midnight: excluded
		order("r1", 75, time.Time{}),                          // no creation time: excluded
	}

	res := Aggregate(orders, nil, todayStart, refNow, "")
	if res.OrdersSubtotal != 350 {
		t.Fatalf("ordersSubtotal = %v, want 350", res.OrdersSubtotal)
	}
	if res.OrderCount != 2 {
		t.Fatalf("orderCount = %d, want 2", res.OrderCount)
	}
	if res.Total != 350 {
		t.Fatalf("total = %v, want 350", res.Total)
	}
}

func TestAggregateCombinesOrdersAndBookings(t *testing.T) {
	start := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)

	res := Aggregate(
		[]entity.Order{order("r1", 120, refNow)},
		[]entity.Booking{booking("r1", 80, refNow)},
		start, refNow, "",
	)
	if res.Total != 200 || res.OrdersSubtotal != 120 || res.BookingsSubtotal != 80 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.OrderCount != 1 || res.BookingCount != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}
}

func TestAggregateRestaurantFilter(t *testing.T) {
	start := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	orders := []entity.Order{
		order("r1", 100, refNow),
		order("r2", 40, refNow),
	}
	bookings := []entity.Booking{
		booking("r1", 30, refNow),
		booking("r2", 25, refNow),
	}

	res := Aggregate(orders, bookings, start, refNow, "r2")
	if res.Total != 65 {
		t.Fatalf("filtered total = %v, want 65", res.Total)
	}
}

func TestAggregateOrderIndependence(t *testing.T) {
	start := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	a := order("r1", 10.1, refNow)
	b := order("r1", 20.2, refNow)
	c := order("r1", 30.3, refNow)

	first := Aggregate([]entity.Order{a, b, c}, nil, start, refNow, "")
	second := Aggregate([]entity.Order{c, a, b}, nil, start, refNow, "")
	if first != second {
		t.Fatalf("aggregation depends on input order: %+v vs %+v", first, second)
	}
}

func TestAggregateEmptySet(t *testing.T) {
	start := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	res := Aggregate(nil, nil, start, refNow, "")
	if res != (Result{}) {
		t.Fatalf("empty aggregate = %+v, want zero result", res)
	}
}

func TestPercentChange(t *testing.T) {
	if got, ok := PercentChange(350, 500); !ok || got != -30 {
		t.Fatalf("PercentChange(350, 500) = %v, %v; want -30, true", got, ok)
	}
	if got, ok := PercentChange(200, 100); !ok || got != 100 {
		t.Fatalf("PercentChange(200, 100) = %v, %v; want 100, true", got, ok)
	}
	if _, ok := PercentChange(100, 0); ok {
		t.Fatal("zero baseline must report no comparison, not infinity")
	}
}

func TestAggregateWindowTrendScenario(t *testing.T) {
	yesterday := refNow.AddDate(0, 0, -1)
	orders := []entity.Order{
		order("r1", 100, refNow),
		order("r1", 250, refNow.Add(-2*time.Hour)),
		order("r1", 500, yesterday),
	}

	current, err := AggregateWindow(orders, nil, WindowToday, "", refNow)
	if err != nil {
		t.Fatalf("AggregateWindow: %v", err)
	}
	if current.Total != 350 || current.OrderCount != 2 {
		t.Fatalf("current = %+v, want total 350 over 2 orders", current)
	}

	prevStart, prevEnd, err := PreviousSpan(WindowToday, refNow)
	if err != nil {
		t.Fatalf("PreviousSpan: %v", err)
	}
	previous := Aggregate(orders, nil, prevStart, prevEnd, "")
	if previous.Total != 500 {
		t.Fatalf("previous total = %v, want 500", previous.Total)
	}

	pct, ok := PercentChange(current.Total, previous.Total)
	if !ok || pct != -30 {
		t.Fatalf("percent change = %v, %v; want -30, true", pct, ok)
	}
}
