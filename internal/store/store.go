package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database"
)

// Collection names consumed by the subsystem.
const (
	CollectionOrders      = "orders"
	CollectionBookings    = "bookings"
	CollectionRestaurants = "restaurants"
	CollectionMenuItems   = "menuItems"
)

// Collections lists every collection the synchronization layer mirrors.
var Collections = []string{
	CollectionOrders,
	CollectionBookings,
	CollectionRestaurants,
	CollectionMenuItems,
}

// ErrNotFound is returned when the target record id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrUnavailable is returned on transport-level failures reaching the store.
var ErrUnavailable = errors.New("store unavailable")

// Record is the wire form of a stored document.
type Record = map[string]any

// Snapshot is a complete replacement image of a collection's contents.
type Snapshot struct {
	Collection string
	Records    []Record
}

// Subscription is a cancellable stream of collection snapshots. A snapshot is
// delivered on attach and again after every change. Transport errors surface
// on Errors without closing the stream.
type Subscription struct {
	Snapshots <-chan Snapshot
	Errors    <-chan error

	once   sync.Once
	cancel func()
}

// Cancel releases the subscription. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Adapter is the contract against the remote document store.
type Adapter interface {
	Create(ctx context.Context, collection string, rec Record) (string, error)
	Update(ctx context.Context, collection, id string, patch Record) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
}

// Module provides the configured store adapter to the Fx graph.
var Module = fx.Provide(NewAdapter)

// NewAdapter builds the adapter selected by configuration.
func NewAdapter(lc fx.Lifecycle, cfg config.Config, conns *database.Connections, logger *zap.Logger) (Adapter, error) {
	switch cfg.Store.Driver {
	case "memory":
		logger.Info("using in-memory store adapter")
		return NewMemory(), nil
	case "database":
		return newDatabaseAdapter(lc, cfg, conns, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
