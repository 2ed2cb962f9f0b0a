package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types published to the lifecycle topic.
const (
	EventOrderCreated         = "order.created"
	EventOrderStatusChanged   = "order.status_changed"
	EventBookingCreated       = "booking.created"
	EventBookingStatusChanged = "booking.status_changed"
)

// Event is the versioned envelope emitted on every create and transition.
type Event struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	EventVersion   int       `json:"event_version"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// publishEvent emits the event on a best-effort basis. A committed transition
// is still committed if publication fails; consumers re-derive truth from the
// mirror.
func (s *Service) publishEvent(ctx context.Context, ev Event) {
	if !s.publish || s.publisher == nil {
		return
	}
	ev.EventID = uuid.NewString()
	ev.EventVersion = 1

	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("marshal lifecycle event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(ev.EntityID), payload); err != nil {
		s.logger.Error("publish lifecycle event",
			zap.String("event_type", ev.EventType),
			zap.String("entity_id", ev.EntityID),
			zap.Error(err))
	}
}
