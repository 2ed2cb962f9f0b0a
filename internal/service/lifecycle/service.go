package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/messaging"
	"github.com/Additional-Code/bistro/internal/mirror"
	"github.com/Additional-Code/bistro/internal/store"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bistro/service/lifecycle")

// Service orchestrates order and booking lifecycles: creation, validated
// status transitions, audit stamping, and event publication. Current state is
// always read from the mirror, never from a previous call's return value.
type Service struct {
	store     store.Adapter
	mirror    *mirror.Manager
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	publish   bool
	history   *historyLog
	now       func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     store.Adapter
	Mirror    *mirror.Manager
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// Module provides the lifecycle service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:     p.Store,
		mirror:    p.Mirror,
		cache:     p.Cache,
		cacheTTL:  p.Config.Store.StatusCacheTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		publish:   p.Config.Messaging.Enabled,
		history:   newHistoryLog(),
		now:       time.Now,
	}
}

// OrderDraft carries caller input for placing an order. Payment, when
// required, is confirmed upstream; PaymentID records its outcome.
type OrderDraft struct {
	UserID          string
	RestaurantID    string
	Items           []entity.LineItem
	Fulfillment     entity.FulfillmentType
	Total           float64
	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	PaymentID       string
}

// BookingDraft carries caller input for a table or event booking.
type BookingDraft struct {
	UserID          string
	RestaurantID    string
	Kind            entity.BookingKind
	Date            string
	Time            string
	PartySize       int
	CustomerName    string
	CustomerPhones  []string
	Amount          float64
	PaymentStatus   entity.PaymentStatus
	PaymentID       string
	SpecialRequests string
	Occasion        string
	SelectedItems   map[string]int
}

// CreateOrder validates the draft and persists a new pending order.
func (s *Service) CreateOrder(ctx context.Context, draft OrderDraft) (entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "Lifecycle.CreateOrder", trace.WithAttributes(
		attribute.String("order.restaurant_id", draft.RestaurantID),
	))
	defer span.End()

	if draft.Total <= 0 {
		return entity.Order{}, errorbank.BadRequest("order total must be positive",
			errorbank.WithDetail("total", draft.Total))
	}
	if len(draft.Items) == 0 {
		return entity.Order{}, errorbank.BadRequest("order requires at least one item")
	}
	for _, item := range draft.Items {
		if item.Quantity <= 0 {
			return entity.Order{}, errorbank.BadRequest("item quantity must be positive",
				errorbank.WithDetail("item", item.Name))
		}
	}
	fulfillment := draft.Fulfillment
	if fulfillment == "" {
		fulfillment = entity.FulfillmentDelivery
	}
	if fulfillment != entity.FulfillmentDelivery && fulfillment != entity.FulfillmentPickup {
		return entity.Order{}, errorbank.BadRequest("unknown fulfillment type",
			errorbank.WithDetail("fulfillmentType", string(draft.Fulfillment)))
	}

	now := s.now()
	order := entity.Order{
		UserID:          draft.UserID,
		RestaurantID:    draft.RestaurantID,
		Items:           draft.Items,
		Fulfillment:     fulfillment,
		Total:           draft.Total,
		CustomerName:    draft.CustomerName,
		CustomerPhone:   draft.CustomerPhone,
		DeliveryAddress: draft.DeliveryAddress,
		PaymentID:       draft.PaymentID,
		Status:          entity.OrderPending,
		CreatedAt:       now,
	}

	rec, err := order.Record()
	if err != nil {
		return entity.Order{}, errorbank.Internal("failed to encode order", errorbank.WithCause(err))
	}
	id, err := s.store.Create(ctx, store.CollectionOrders, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return entity.Order{}, storeFailure("create order", err)
	}
	order.ID = id

	s.history.append(id, string(entity.OrderPending), now)
	s.cacheStatus(ctx, cache.OrderStatusKey(id), string(order.Status), now)
	s.publishEvent(ctx, Event{
		EventType:  EventOrderCreated,
		EntityType: "order",
		EntityID:   id,
		Status:     string(order.Status),
		OccurredAt: now,
	})

	s.logger.Info("order created",
		zap.String("id", id),
		zap.String("restaurant_id", order.RestaurantID),
		zap.Float64("total", order.Total))
	return order, nil
}

// CreateBooking validates the draft and persists a new pending booking.
// Payment confirmation happens upstream; the payment status is recorded as
// supplied, but a paid booking must reference the payment that confirmed it.
func (s *Service) CreateBooking(ctx context.Context, draft BookingDraft) (entity.Booking, error) {
	ctx, span := serviceTracer.Start(ctx, "Lifecycle.CreateBooking", trace.WithAttributes(
		attribute.String("booking.restaurant_id", draft.RestaurantID),
	))
	defer span.End()

	if draft.Date == "" || draft.Time == "" {
		return entity.Booking{}, errorbank.BadRequest("booking date and time are required")
	}
	if len(draft.CustomerPhones) == 0 {
		return entity.Booking{}, errorbank.BadRequest("booking requires a contact phone")
	}
	kind := draft.Kind
	if kind == "" {
		kind = entity.BookingTable
	}
	if kind != entity.BookingTable && kind != entity.BookingEvent {
		return entity.Booking{}, errorbank.BadRequest("unknown booking kind",
			errorbank.WithDetail("kind", string(draft.Kind)))
	}
	paymentStatus := draft.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = entity.PaymentPending
	}
	if paymentStatus != entity.PaymentPending && paymentStatus != entity.PaymentPaid {
		return entity.Booking{}, errorbank.BadRequest("unknown payment status",
			errorbank.WithDetail("paymentStatus", string(draft.PaymentStatus)))
	}
	if paymentStatus == entity.PaymentPaid && draft.PaymentID == "" {
		return entity.Booking{}, errorbank.BadRequest("paid booking requires a payment reference")
	}

	now := s.now()
	booking := entity.Booking{
		UserID:          draft.UserID,
		RestaurantID:    draft.RestaurantID,
		Kind:            kind,
		Date:            draft.Date,
		Time:            draft.Time,
		PartySize:       draft.PartySize,
		CustomerName:    draft.CustomerName,
		CustomerPhones:  draft.CustomerPhones,
		Amount:          draft.Amount,
		PaymentStatus:   paymentStatus,
		PaymentID:       draft.PaymentID,
		SpecialRequests: draft.SpecialRequests,
		Occasion:        draft.Occasion,
		SelectedItems:   draft.SelectedItems,
		Status:          entity.BookingPending,
		CreatedAt:       now,
	}

	rec, err := booking.Record()
	if err != nil {
		return entity.Booking{}, errorbank.Internal("failed to encode booking", errorbank.WithCause(err))
	}
	id, err := s.store.Create(ctx, store.CollectionBookings, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return entity.Booking{}, storeFailure("create booking", err)
	}
	booking.ID = id

	s.history.append(id, string(entity.BookingPending), now)
	s.cacheStatus(ctx, cache.BookingStatusKey(id), string(booking.Status), now)
	s.publishEvent(ctx, Event{
		EventType:  EventBookingCreated,
		EntityType: "booking",
		EntityID:   id,
		Status:     string(booking.Status),
		OccurredAt: now,
	})

	s.logger.Info("booking created",
		zap.String("id", id),
		zap.String("restaurant_id", booking.RestaurantID),
		zap.Float64("amount", booking.Amount))
	return booking, nil
}

// TransitionOrderStatus moves an order to the requested status after checking
// the transition table against the mirrored current status.
func (s *Service) TransitionOrderStatus(ctx context.Context, id string, requested entity.OrderStatus) (entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "Lifecycle.TransitionOrderStatus", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.requested_status", string(requested)),
	))
	defer span.End()

	if err := s.guard(); err != nil {
		return entity.Order{}, err
	}
	if !requested.Valid() {
		return entity.Order{}, errorbank.BadRequest("unknown order status",
			errorbank.WithDetail("requested", string(requested)))
	}

	current, ok := s.mirror.Order(id)
	if !ok {
		return entity.Order{}, errorbank.NotFound("order not found", errorbank.WithDetail("id", id))
	}
	if !current.Status.CanTransition(requested) {
		return entity.Order{}, errorbank.FailedPrecondition("illegal order status transition",
			errorbank.WithDetails(map[string]any{
				"id":        id,
				"current":   string(current.Status),
				"requested": string(requested),
			}))
	}

	now := s.now()
	patch := store.Record{
		"status":          string(requested),
		"previousStatus":  string(current.Status),
		"statusUpdatedAt": now.Format(time.RFC3339Nano),
	}
	if err := s.store.Update(ctx, store.CollectionOrders, id, patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return entity.Order{}, storeFailure("transition order", err)
	}

	s.history.append(id, string(requested), now)
	s.cacheStatus(ctx, cache.OrderStatusKey(id), string(requested), now)
	s.publishEvent(ctx, Event{
		EventType:      EventOrderStatusChanged,
		EntityType:     "order",
		EntityID:       id,
		Status:         string(requested),
		PreviousStatus: string(current.Status),
		OccurredAt:     now,
	})

	s.logger.Info("order status changed",
		zap.String("id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(requested)))

	updated := current
	updated.PreviousStatus = current.Status
	updated.Status = requested
	updated.StatusUpdatedAt = now
	return updated, nil
}

// TransitionBookingStatus moves a booking to the requested status after
// checking the booking transition table.
func (s *Service) TransitionBookingStatus(ctx context.Context, id string, requested entity.BookingStatus) (entity.Booking, error) {
	ctx, span := serviceTracer.Start(ctx, "Lifecycle.TransitionBookingStatus", trace.WithAttributes(
		attribute.String("booking.id", id),
		attribute.String("booking.requested_status", string(requested)),
	))
	defer span.End()

	if err := s.guard(); err != nil {
		return entity.Booking{}, err
	}
	if !requested.Valid() {
		return entity.Booking{}, errorbank.BadRequest("unknown booking status",
			errorbank.WithDetail("requested", string(requested)))
	}

	current, ok := s.mirror.Booking(id)
	if !ok {
		return entity.Booking{}, errorbank.NotFound("booking not found", errorbank.WithDetail("id", id))
	}
	if !current.Status.CanTransition(requested) {
		return entity.Booking{}, errorbank.FailedPrecondition("illegal booking status transition",
			errorbank.WithDetails(map[string]any{
				"id":        id,
				"current":   string(current.Status),
				"requested": string(requested),
			}))
	}

	now := s.now()
	patch := store.Record{
		"status":          string(requested),
		"previousStatus":  string(current.Status),
		"statusUpdatedAt": now.Format(time.RFC3339Nano),
	}
	if err := s.store.Update(ctx, store.CollectionBookings, id, patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return entity.Booking{}, storeFailure("transition booking", err)
	}

	s.history.append(id, string(requested), now)
	s.cacheStatus(ctx, cache.BookingStatusKey(id), string(requested), now)
	s.publishEvent(ctx, Event{
		EventType:      EventBookingStatusChanged,
		EntityType:     "booking",
		EntityID:       id,
		Status:         string(requested),
		PreviousStatus: string(current.Status),
		OccurredAt:     now,
	})

	s.logger.Info("booking status changed",
		zap.String("id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(requested)))

	updated := current
	updated.PreviousStatus = current.Status
	updated.Status = requested
	updated.StatusUpdatedAt = now
	return updated, nil
}

// StatusHistory returns the ordered status events for an order or booking.
// Transitions applied by this process are tracked in full; for entities
// mutated elsewhere only the stored previous/current hop can be
// reconstructed.
func (s *Service) StatusHistory(id string) ([]StatusEvent, error) {
	if events := s.history.events(id); len(events) > 0 {
		return events, nil
	}
	if order, ok := s.mirror.Order(id); ok {
		return reconstructHistory(string(order.PreviousStatus), string(order.Status),
			order.CreatedAt, order.StatusUpdatedAt), nil
	}
	if booking, ok := s.mirror.Booking(id); ok {
		return reconstructHistory(string(booking.PreviousStatus), string(booking.Status),
			booking.CreatedAt, booking.StatusUpdatedAt), nil
	}
	return nil, errorbank.NotFound("entity not found", errorbank.WithDetail("id", id))
}

func (s *Service) guard() error {
	if err := s.mirror.Err(); err != nil {
		return errorbank.Unavailable("entity mirror is not available", errorbank.WithCause(err))
	}
	return nil
}

func (s *Service) cacheStatus(ctx context.Context, key, status string, at time.Time) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(map[string]string{
		"status":    status,
		"updatedAt": at.Format(time.RFC3339Nano),
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.logger.Warn("status cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func storeFailure(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errorbank.NotFound(op+" failed: record is gone", errorbank.WithCause(err))
	case errors.Is(err, store.ErrUnavailable):
		return errorbank.Unavailable(op+" failed: store unreachable", errorbank.WithCause(err))
	default:
		return errorbank.Internal(op+" failed", errorbank.WithCause(err))
	}
}
