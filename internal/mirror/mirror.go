// Package mirror maintains an always-current in-process copy of each store
// collection. It subscribes once per collection for the lifetime of the
// process, replaces the whole collection on every snapshot, and fans change
// notices out to local consumers. Replacement is atomic at the reference
// level: single writer, any number of readers, no locks on the read path.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/entity"
	"github.com/Additional-Code/bistro/internal/store"
)

// ErrInitializationFailed reports that no initial snapshot arrived for one or
// more collections within the configured timeout. The state is terminal; the
// manager does not retry.
var ErrInitializationFailed = errors.New("mirror initialization failed")

type orderSet struct {
	list []entity.Order
	byID map[string]entity.Order
}

type bookingSet struct {
	list []entity.Booking
	byID map[string]entity.Booking
}

// Manager owns the per-collection mirrors and their subscriptions.
type Manager struct {
	adapter store.Adapter
	logger  *zap.Logger
	timeout time.Duration

	orders      atomic.Pointer[orderSet]
	bookings    atomic.Pointer[bookingSet]
	restaurants atomic.Pointer[[]entity.Restaurant]
	menuItems   atomic.Pointer[[]entity.MenuItem]

	mu       sync.Mutex
	pending  map[string]bool
	subs     []*store.Subscription
	watchers map[int]chan string
	nextID   int
	initErr  error
	stopped  bool

	ready     chan struct{}
	readyOnce sync.Once
	failed    chan struct{}
	failOnce  sync.Once

	cancel context.CancelFunc
	wg     sync.WaitGroup
	timer  *time.Timer
}

// Params collects manager dependencies via Fx.
type Params struct {
	fx.In

	Adapter store.Adapter
	Config  config.Config
	Logger  *zap.Logger
}

// Module wires the mirror manager into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewManager),
	fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
		lc.Append(fx.Hook{
			OnStart: m.Start,
			OnStop:  m.Stop,
		})
	}),
)

// NewManager constructs an unstarted Manager.
func NewManager(p Params) *Manager {
	m := &Manager{
		adapter:  p.Adapter,
		logger:   p.Logger,
		timeout:  p.Config.Store.InitTimeout,
		pending:  make(map[string]bool, len(store.Collections)),
		watchers: make(map[int]chan string),
		ready:    make(chan struct{}),
		failed:   make(chan struct{}),
	}
	m.orders.Store(&orderSet{byID: map[string]entity.Order{}})
	m.bookings.Store(&bookingSet{byID: map[string]entity.Booking{}})
	empty := []entity.Restaurant{}
	m.restaurants.Store(&empty)
	emptyItems := []entity.MenuItem{}
	m.menuItems.Store(&emptyItems)
	for _, c := range store.Collections {
		m.pending[c] = true
	}
	return m
}

// Start attaches one subscription per collection and arms the initialization
// timer. Subscriptions outlive the start context; they are released in Stop.
func (m *Manager) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	for _, collection := range store.Collections {
		sub, err := m.adapter.Subscribe(runCtx, collection)
		if err != nil {
			cancel()
			return fmt.Errorf("subscribe %s: %w", collection, err)
		}

		m.mu.Lock()
		m.subs = append(m.subs, sub)
		m.mu.Unlock()

		m.wg.Add(1)
		go m.consume(runCtx, collection, sub)
	}

	m.timer = time.AfterFunc(m.timeout, m.failInit)
	m.logger.Info("mirror subscriptions attached",
		zap.Strings("collections", store.Collections),
		zap.Duration("init_timeout", m.timeout))
	return nil
}

// Stop releases every subscription. It is deterministic and idempotent.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	subs := m.subs
	watchers := m.watchers
	m.watchers = map[int]chan string{}
	m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
	}
	if m.cancel != nil {
		m.cancel()
	}
	for _, sub := range subs {
		sub.Cancel()
	}
	for _, ch := range watchers {
		close(ch)
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		m.logger.Info("mirror stopped")
		return nil
	}
}

func (m *Manager) consume(ctx context.Context, collection string, sub *store.Subscription) {
	defer m.wg.Done()

	snaps := sub.Snapshots
	errs := sub.Errors
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			m.apply(snap)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			// Transport errors are non-fatal; the subscription stays open.
			m.logger.Warn("mirror subscription error",
				zap.String("collection", collection),
				zap.Error(err))
		}
	}
}

func (m *Manager) apply(snap store.Snapshot) {
	switch snap.Collection {
	case store.CollectionOrders:
		set := &orderSet{byID: make(map[string]entity.Order, len(snap.Records))}
		for _, rec := range snap.Records {
			o, err := entity.OrderFromRecord(rec)
			if err != nil {
				m.logger.Warn("skipping malformed order record", zap.Error(err))
				continue
			}
			set.list = append(set.list, o)
			set.byID[o.ID] = o
		}
		m.orders.Store(set)
	case store.CollectionBookings:
		set := &bookingSet{byID: make(map[string]entity.Booking, len(snap.Records))}
		for _, rec := range snap.Records {
			b, err := entity.BookingFromRecord(rec)
			if err != nil {
				m.logger.Warn("skipping malformed booking record", zap.Error(err))
				continue
			}
			set.list = append(set.list, b)
			set.byID[b.ID] = b
		}
		m.bookings.Store(set)
	case store.CollectionRestaurants:
		list := make([]entity.Restaurant, 0, len(snap.Records))
		for _, rec := range snap.Records {
			r, err := entity.RestaurantFromRecord(rec)
			if err != nil {
				m.logger.Warn("skipping malformed restaurant record", zap.Error(err))
				continue
			}
			list = append(list, r)
		}
		m.restaurants.Store(&list)
	case store.CollectionMenuItems:
		list := make([]entity.MenuItem, 0, len(snap.Records))
		for _, rec := range snap.Records {
			item, err := entity.MenuItemFromRecord(rec)
			if err != nil {
				m.logger.Warn("skipping malformed menu item record", zap.Error(err))
				continue
			}
			list = append(list, item)
		}
		m.menuItems.Store(&list)
	default:
		m.logger.Warn("snapshot for unknown collection", zap.String("collection", snap.Collection))
		return
	}

	m.markSeen(snap.Collection)
	m.notify(snap.Collection)
}

func (m *Manager) markSeen(collection string) {
	m.mu.Lock()
	delete(m.pending, collection)
	done := len(m.pending) == 0
	m.mu.Unlock()

	if done {
		m.readyOnce.Do(func() {
			if m.timer != nil {
				m.timer.Stop()
			}
			close(m.ready)
			m.logger.Info("mirror initialized")
		})
	}
}

func (m *Manager) failInit() {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	missing := make([]string, 0, len(m.pending))
	for c := range m.pending {
		missing = append(missing, c)
	}
	sort.Strings(missing)
	m.initErr = fmt.Errorf("%w: no snapshot for %v within %s", ErrInitializationFailed, missing, m.timeout)
	m.mu.Unlock()

	m.failOnce.Do(func() {
		close(m.failed)
		m.logger.Error("mirror initialization timed out", zap.Strings("collections", missing))
	})
}

// Ready is closed once every collection has delivered its first snapshot.
func (m *Manager) Ready() <-chan struct{} { return m.ready }

// Failed is closed if initialization times out. The state is terminal.
func (m *Manager) Failed() <-chan struct{} { return m.failed }

// Err returns the terminal initialization error, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initErr
}

// WaitReady blocks until the mirror is populated, initialization fails, or
// the context ends.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-m.failed:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Updates returns a stream of collection names, one tick per applied
// snapshot, plus a cancel func. Slow consumers miss ticks rather than block
// the mirror; the mirror itself is always current.
func (m *Manager) Updates() (<-chan string, func()) {
	ch := make(chan string, 8)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.watchers[id]; ok && cur == ch {
			delete(m.watchers, id)
			close(ch)
		}
	}
}

func (m *Manager) notify(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.watchers {
		select {
		case ch <- collection:
		default:
		}
	}
}

// Orders returns the current order mirror. Callers must not mutate it.
func (m *Manager) Orders() []entity.Order { return m.orders.Load().list }

// Order looks up a single order by id.
func (m *Manager) Order(id string) (entity.Order, bool) {
	o, ok := m.orders.Load().byID[id]
	return o, ok
}

// Bookings returns the current booking mirror. Callers must not mutate it.
func (m *Manager) Bookings() []entity.Booking { return m.bookings.Load().list }

// Booking looks up a single booking by id.
func (m *Manager) Booking(id string) (entity.Booking, bool) {
	b, ok := m.bookings.Load().byID[id]
	return b, ok
}

// Restaurants returns the current restaurant mirror.
func (m *Manager) Restaurants() []entity.Restaurant { return *m.restaurants.Load() }

// MenuItems returns the current menu item mirror.
func (m *Manager) MenuItems() []entity.MenuItem { return *m.menuItems.Load() }
