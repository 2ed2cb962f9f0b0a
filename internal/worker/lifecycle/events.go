package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/messaging"
	lifecyclesvc "github.com/Additional-Code/bistro/internal/service/lifecycle"
	"github.com/Additional-Code/bistro/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/bistro/worker/lifecycle")

// Module registers the lifecycle event handler with the worker engine.
var Module = fx.Module("worker_lifecycle",
	fx.Provide(
		fx.Annotate(
			NewEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewEventHandler builds a worker handler that audits lifecycle events and
// keeps the shared status cache warm for consumers outside this process.
func NewEventHandler(logger *zap.Logger, cfg config.Config, store cache.Store) worker.HandlerRegistration {
	ttl := cfg.Store.StatusCacheTTL

	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.lifecycle.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event lifecyclesvc.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode lifecycle event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		var key string
		switch event.EntityType {
		case "order":
			key = cache.OrderStatusKey(event.EntityID)
		case "booking":
			key = cache.BookingStatusKey(event.EntityID)
		}
		if key != "" {
			payload, err := json.Marshal(map[string]string{
				"status":    event.Status,
				"updatedAt": event.OccurredAt.Format(time.RFC3339Nano),
			})
			if err == nil {
				if err := store.Set(ctx, key, payload, ttl); err != nil {
					logger.Warn("status cache warm failed", zap.String("key", key), zap.Error(err))
				}
			}
		}

		logger.Info("lifecycle event processed",
			zap.String("event_type", event.EventType),
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
			zap.String("status", event.Status),
		)
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
