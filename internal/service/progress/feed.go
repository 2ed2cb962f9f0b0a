package progress

import (
	"context"

	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/mirror"
	"github.com/Additional-Code/bistro/internal/store"
)

// Feed connects the order mirror to the simulator: every applied order
// snapshot is replayed into Observe so sessions track the authoritative
// status without their own subscription.
type Feed struct {
	mirror *mirror.Manager
	sim    *Simulator
	logger *zap.Logger

	cancel func()
	done   chan struct{}
}

// NewFeed constructs an unstarted Feed.
func NewFeed(m *mirror.Manager, sim *Simulator, logger *zap.Logger) *Feed {
	return &Feed{
		mirror: m,
		sim:    sim,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins consuming mirror updates.
func (f *Feed) Start(ctx context.Context) error {
	updates, cancel := f.mirror.Updates()
	f.cancel = cancel
	go f.run(updates)
	f.logger.Info("progress feed started")
	return nil
}

func (f *Feed) run(updates <-chan string) {
	defer close(f.done)

	f.observeAll()
	for collection := range updates {
		if collection != store.CollectionOrders {
			continue
		}
		f.observeAll()
	}
}

func (f *Feed) observeAll() {
	for _, order := range f.mirror.Orders() {
		f.sim.Observe(order.ID, order.Status)
	}
}

// Stop cancels the mirror subscription and closes every simulator session.
func (f *Feed) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
	}
	select {
	case <-f.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	f.sim.Close()
	f.logger.Info("progress feed stopped")
	return nil
}
