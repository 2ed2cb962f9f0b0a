package mirror

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/store"
)

func newTestManager(t *testing.T, adapter store.Adapter, timeout time.Duration) *Manager {
	t.Helper()
	cfg := config.Config{}
	cfg.Store.InitTimeout = timeout
	return NewManager(Params{
		Adapter: adapter,
		Config:  cfg,
		Logger:  zap.NewNop(),
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestManagerBecomesReady(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(t, mem, time.Second)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
	if err := m.Err(); err != nil {
		t.Fatalf("Err after ready: %v", err)
	}
}

func TestManagerMirrorsOrders(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	id, err := mem.Create(ctx, store.CollectionOrders, store.Record{
		"userId": "user-1",
		"status": "pending",
		"total":  25.0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	m := newTestManager(t, mem, time.Second)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.WaitReady(waitCtx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}

	o, ok := m.Order(id)
	if !ok {
		t.Fatalf("order %s not mirrored", id)
	}
	if o.Total != 25.0 {
		t.Fatalf("total = %v, want 25", o.Total)
	}

	// A change replaces the whole mirrored collection.
	if err := mem.Update(ctx, store.CollectionOrders, id, store.Record{"status": "confirmed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	waitFor(t, func() bool {
		o, ok := m.Order(id)
		return ok && string(o.Status) == "confirmed"
	})

	if err := mem.Delete(ctx, store.CollectionOrders, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	waitFor(t, func() bool {
		_, ok := m.Order(id)
		return !ok && len(m.Orders()) == 0
	})
}

// silentAdapter subscribes but never delivers a snapshot.
type silentAdapter struct{}

func (silentAdapter) Create(context.Context, string, store.Record) (string, error) {
	return "", store.ErrUnavailable
}
func (silentAdapter) Update(context.Context, string, string, store.Record) error {
	return store.ErrUnavailable
}
func (silentAdapter) Delete(context.Context, string, string) error {
	return store.ErrUnavailable
}
func (silentAdapter) Subscribe(context.Context, string) (*store.Subscription, error) {
	return &store.Subscription{
		Snapshots: make(chan store.Snapshot),
		Errors:    make(chan error),
	}, nil
}

func TestManagerInitTimeoutIsTerminal(t *testing.T) {
	m := newTestManager(t, silentAdapter{}, 20*time.Millisecond)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := m.WaitReady(ctx)
	if !errors.Is(err, ErrInitializationFailed) {
		t.Fatalf("WaitReady: err = %v, want ErrInitializationFailed", err)
	}
	if m.Err() == nil {
		t.Fatal("Err must report the terminal failure")
	}
}

func TestManagerUpdatesStream(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(t, mem, time.Second)
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop(ctx)

	updates, cancel := m.Updates()
	defer cancel()

	if _, err := mem.Create(ctx, store.CollectionOrders, store.Record{"status": "pending"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case collection := <-updates:
			if collection == store.CollectionOrders {
				return
			}
		case <-deadline:
			t.Fatal("no update tick for orders")
		}
	}
}

func TestManagerStopIdempotent(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(t, mem, time.Second)
	ctx := context.Background()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
