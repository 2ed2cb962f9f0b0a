package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/mirror"
	"github.com/Additional-Code/bistro/internal/store"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

type fixture struct {
	svc    *Service
	store  *store.Memory
	mirror *mirror.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := store.NewMemory()
	cfg := config.Config{}
	cfg.Store.InitTimeout = 2 * time.Second
	cfg.Store.StatusCacheTTL = time.Minute

	m := mirror.NewManager(mirror.Params{
		Adapter: mem,
		Config:  cfg,
		Logger:  zap.NewNop(),
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("mirror start: %v", err)
	}
	t.Cleanup(func() { m.Stop(context.Background()) })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.WaitReady(ctx); err != nil {
		t.Fatalf("mirror ready: %v", err)
	}

	svc := NewService(Params{
		Store:  mem,
		Mirror: m,
		Config: cfg,
		Logger: zap.NewNop(),
	})
	return &fixture{svc: svc, store: mem, mirror: m}
}

func (f *fixture) waitOrderStatus(t *testing.T, id string, status entity.OrderStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o, ok := f.mirror.Order(id); ok && o.Status == status {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("order %s never reached status %s in mirror", id, status)
}

func (f *fixture) waitBookingStatus(t *testing.T, id string, status entity.BookingStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b, ok := f.mirror.Booking(id); ok && b.Status == status {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("booking %s never reached status %s in mirror", id, status)
}

func assertKind(t *testing.T, err error, want errorbank.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var appErr *errorbank.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Kind() != want {
		t.Fatalf("kind = %s, want %s (%v)", appErr.Kind(), want, err)
	}
}

func validOrderDraft() OrderDraft {
	return OrderDraft{
		UserID:       "user-1",
		RestaurantID: "rest-1",
		Items:        []entity.LineItem{{Name: "Ramen", UnitPrice: 15, Quantity: 1}},
		Total:        15,
		CustomerName: "Sam",
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.CreateOrder(context.Background(), validOrderDraft())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID == "" {
		t.Fatal("order id not assigned")
	}
	if order.Status != entity.OrderPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if order.Fulfillment != entity.FulfillmentDelivery {
		t.Fatalf("fulfillment = %s, want delivery default", order.Fulfillment)
	}

	f.waitOrderStatus(t, order.ID, entity.OrderPending)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		mut   func(*OrderDraft)
	}{
		{"zero total", func(d *OrderDraft) { d.Total = 0 }},
		{"negative total", func(d *OrderDraft) { d.Total = -5 }},
		{"no items", func(d *OrderDraft) { d.Items = nil }},
		{"zero quantity", func(d *OrderDraft) { d.Items[0].Quantity = 0 }},
		{"bad fulfillment", func(d *OrderDraft) { d.Fulfillment = "teleport" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validOrderDraft()
			tc.mut(&draft)
			_, err := f.svc.CreateOrder(ctx, draft)
			assertKind(t, err, errorbank.KindBadRequest)
		})
	}
}

func TestOrderTransitionRejectsSkip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, validOrderDraft())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	f.waitOrderStatus(t, order.ID, entity.OrderPending)

	// Confirmation cannot be skipped.
	_, err = f.svc.TransitionOrderStatus(ctx, order.ID, entity.OrderPreparing)
	assertKind(t, err, errorbank.KindFailedPrecondition)

	updated, err := f.svc.TransitionOrderStatus(ctx, order.ID, entity.OrderConfirmed)
	if err != nil {
		t.Fatalf("transition to confirmed: %v", err)
	}
	if updated.Status != entity.OrderConfirmed || updated.PreviousStatus != entity.OrderPending {
		t.Fatalf("unexpected transition result: %+v", updated)
	}
	f.waitOrderStatus(t, order.ID, entity.OrderConfirmed)

	updated, err = f.svc.TransitionOrderStatus(ctx, order.ID, entity.OrderPreparing)
	if err != nil {
		t.Fatalf("transition to preparing: %v", err)
	}
	if updated.PreviousStatus != entity.OrderConfirmed {
		t.Fatalf("previousStatus = %s, want confirmed", updated.PreviousStatus)
	}
	if updated.StatusUpdatedAt.IsZero() {
		t.Fatal("statusUpdatedAt not stamped")
	}
}

func TestOrderTransitionUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.TransitionOrderStatus(context.Background(), "whatever", "shipped")
	assertKind(t, err, errorbank.KindBadRequest)
}

func TestOrderTransitionMissingOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.TransitionOrderStatus(context.Background(), "missing", entity.OrderConfirmed)
	assertKind(t, err, errorbank.KindNotFound)
}

func TestOrderTransitionTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, validOrderDraft())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	f.waitOrderStatus(t, order.ID, entity.OrderPending)

	if _, err := f.svc.TransitionOrderStatus(ctx, order.ID, entity.OrderCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.waitOrderStatus(t, order.ID, entity.OrderCancelled)

	_, err = f.svc.TransitionOrderStatus(ctx, order.ID, entity.OrderConfirmed)
	assertKind(t, err, errorbank.KindFailedPrecondition)
}

func TestOrderTransitionStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, validOrderDraft())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	f.waitOrderStatus(t, order.ID, entity.OrderPending)

	f.store.SetUnavailable(true)
	_, err = f.svc.TransitionOrderStatus(ctx, order.ID, entity.OrderConfirmed)
	assertKind(t, err, errorbank.KindUnavailable)
}

func validBookingDraft() BookingDraft {
	return BookingDraft{
		UserID:         "user-1",
		RestaurantID:   "rest-1",
		Date:           "2026-09-12",
		Time:           "19:00",
		PartySize:      2,
		CustomerName:   "Sam",
		CustomerPhones: []string{"+15550100"},
		Amount:         40,
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)

	booking, err := f.svc.CreateBooking(context.Background(), validBookingDraft())
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if booking.ID == "" {
		t.Fatal("booking id not assigned")
	}
	if booking.Status != entity.BookingPending {
		t.Fatalf("status = %s, want pending", booking.Status)
	}
	if booking.Kind != entity.BookingTable {
		t.Fatalf("kind = %s, want table default", booking.Kind)
	}
	if booking.PaymentStatus != entity.PaymentPending {
		t.Fatalf("paymentStatus = %s, want pending default", booking.PaymentStatus)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		mut  func(*BookingDraft)
	}{
		{"missing date", func(d *BookingDraft) { d.Date = "" }},
		{"missing time", func(d *BookingDraft) { d.Time = "" }},
		{"no phones", func(d *BookingDraft) { d.CustomerPhones = nil }},
		{"bad kind", func(d *BookingDraft) { d.Kind = "rooftop" }},
		{"paid without reference", func(d *BookingDraft) { d.PaymentStatus = entity.PaymentPaid }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validBookingDraft()
			tc.mut(&draft)
			_, err := f.svc.CreateBooking(ctx, draft)
			assertKind(t, err, errorbank.KindBadRequest)
		})
	}
}

func TestBookingTransitionRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booking, err := f.svc.CreateBooking(ctx, validBookingDraft())
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	f.waitBookingStatus(t, booking.ID, entity.BookingPending)

	// A booking cannot complete without confirmation.
	_, err = f.svc.TransitionBookingStatus(ctx, booking.ID, entity.BookingCompleted)
	assertKind(t, err, errorbank.KindFailedPrecondition)

	if _, err := f.svc.TransitionBookingStatus(ctx, booking.ID, entity.BookingConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	f.waitBookingStatus(t, booking.ID, entity.BookingConfirmed)

	updated, err := f.svc.TransitionBookingStatus(ctx, booking.ID, entity.BookingCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if updated.PreviousStatus != entity.BookingConfirmed {
		t.Fatalf("previousStatus = %s, want confirmed", updated.PreviousStatus)
	}
}

func TestStatusHistoryTracksTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, validOrderDraft())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	f.waitOrderStatus(t, order.ID, entity.OrderPending)

	if _, err := f.svc.TransitionOrderStatus(ctx, order.ID, entity.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	f.waitOrderStatus(t, order.ID, entity.OrderConfirmed)
	if _, err := f.svc.TransitionOrderStatus(ctx, order.ID, entity.OrderPreparing); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	events, err := f.svc.StatusHistory(order.ID)
	if err != nil {
		t.Fatalf("StatusHistory: %v", err)
	}
	want := []string{"pending", "confirmed", "preparing"}
	if len(events) != len(want) {
		t.Fatalf("history length = %d, want %d (%+v)", len(events), len(want), events)
	}
	for i, status := range want {
		if events[i].Status != status {
			t.Fatalf("history[%d] = %s, want %s", i, events[i].Status, status)
		}
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Fatal("history timestamps must be non-decreasing")
		}
	}
}

func TestStatusHistoryReconstructedFromMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Record created outside this process: only the stored hop is known.
	id, err := f.store.Create(ctx, store.CollectionOrders, store.Record{
		"status":          "confirmed",
		"previousStatus":  "pending",
		"createdAt":       "2026-01-10T10:00:00Z",
		"statusUpdatedAt": "2026-01-10T10:05:00Z",
		"total":           20.0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.waitOrderStatus(t, id, entity.OrderConfirmed)

	events, err := f.svc.StatusHistory(id)
	if err != nil {
		t.Fatalf("StatusHistory: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("history length = %d, want 2 (%+v)", len(events), events)
	}
	if events[0].Status != "pending" || events[1].Status != "confirmed" {
		t.Fatalf("unexpected reconstructed history: %+v", events)
	}
}

func TestStatusHistoryUnknownEntity(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.StatusHistory("missing")
	assertKind(t, err, errorbank.KindNotFound)
}
