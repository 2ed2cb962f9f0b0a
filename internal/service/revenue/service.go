package revenue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/mirror"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/bistro/service/revenue")

// Service computes revenue aggregates over the live mirrors.
type Service struct {
	mirror *mirror.Manager
	logger *zap.Logger
	now    func() time.Time
}

// Module provides the revenue service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(m *mirror.Manager, logger *zap.Logger) *Service {
	return &Service{mirror: m, logger: logger, now: time.Now}
}

// Aggregate computes the revenue result for the named window, optionally
// filtered to a single restaurant.
func (s *Service) Aggregate(ctx context.Context, w Window, restaurantID string) (Result, error) {
	_, span := serviceTracer.Start(ctx, "Revenue.Aggregate", trace.WithAttributes(
		attribute.String("revenue.window", string(w)),
		attribute.String("revenue.restaurant_id", restaurantID),
	))
	defer span.End()

	if err := s.guard(); err != nil {
		return Result{}, err
	}

	res, err := AggregateWindow(s.mirror.Orders(), s.mirror.Bookings(), w, restaurantID, s.now())
	if err != nil {
		return Result{}, errorbank.BadRequest(err.Error())
	}
	return res, nil
}

// Trend computes the current window alongside the preceding one and the
// period-over-period delta.
func (s *Service) Trend(ctx context.Context, w Window, restaurantID string) (Trend, error) {
	_, span := serviceTracer.Start(ctx, "Revenue.Trend", trace.WithAttributes(
		attribute.String("revenue.window", string(w)),
	))
	defer span.End()

	if err := s.guard(); err != nil {
		return Trend{}, err
	}

	now := s.now()
	orders := s.mirror.Orders()
	bookings := s.mirror.Bookings()

	current, err := AggregateWindow(orders, bookings, w, restaurantID, now)
	if err != nil {
		return Trend{}, errorbank.BadRequest(err.Error())
	}
	prevStart, prevEnd, err := PreviousSpan(w, now)
	if err != nil {
		return Trend{}, errorbank.BadRequest(err.Error())
	}
	previous := Aggregate(orders, bookings, prevStart, prevEnd, restaurantID)

	change, hasBaseline := PercentChange(current.Total, previous.Total)
	return Trend{
		Current:       current,
		Previous:      previous,
		PercentChange: change,
		HasBaseline:   hasBaseline,
	}, nil
}

func (s *Service) guard() error {
	if err := s.mirror.Err(); err != nil {
		return errorbank.Unavailable("entity mirror is not available", errorbank.WithCause(err))
	}
	return nil
}
