package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process adapter used by tests and local development. It
// honors the same snapshot semantics as the database adapter: a full snapshot
// on attach and after every change.
type Memory struct {
	mu          sync.Mutex
	data        map[string]map[string]Record
	subs        map[string]map[int]*memorySub
	nextSub     int
	unavailable bool
}

type memorySub struct {
	snaps chan Snapshot
	errs  chan error
}

// NewMemory constructs an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]map[string]Record),
		subs: make(map[string]map[int]*memorySub),
	}
}

// SetUnavailable toggles simulated transport failure for every mutation.
func (m *Memory) SetUnavailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = v
}

func (m *Memory) Create(ctx context.Context, collection string, rec Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return "", ErrUnavailable
	}

	id := uuid.NewString()
	payload := cloneRecord(rec)
	payload["id"] = id

	if m.data[collection] == nil {
		m.data[collection] = make(map[string]Record)
	}
	m.data[collection][id] = payload

	m.broadcastLocked(collection)
	return id, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, patch Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return ErrUnavailable
	}

	rec, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	updated := cloneRecord(rec)
	for k, v := range patch {
		updated[k] = v
	}
	m.data[collection][id] = updated

	m.broadcastLocked(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return ErrUnavailable
	}

	if _, ok := m.data[collection][id]; !ok {
		return ErrNotFound
	}
	delete(m.data[collection], id)

	m.broadcastLocked(collection)
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &memorySub{
		snaps: make(chan Snapshot, 16),
		errs:  make(chan error, 16),
	}
	if m.subs[collection] == nil {
		m.subs[collection] = make(map[int]*memorySub)
	}
	key := m.nextSub
	m.nextSub++
	m.subs[collection][key] = sub

	// Initial snapshot on attach.
	sub.snaps <- m.snapshotLocked(collection)

	out := &Subscription{Snapshots: sub.snaps, Errors: sub.errs}
	out.cancel = func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.subs[collection][key]; ok && cur == sub {
			delete(m.subs[collection], key)
			close(sub.snaps)
			close(sub.errs)
		}
	}
	return out, nil
}

// Emit re-broadcasts the current snapshot of a collection, simulating an
// upstream change notification.
func (m *Memory) Emit(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastLocked(collection)
}

// EmitError delivers a non-fatal transport error to every subscriber of the
// collection.
func (m *Memory) EmitError(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subs[collection] {
		select {
		case sub.errs <- err:
		default:
		}
	}
}

func (m *Memory) snapshotLocked(collection string) Snapshot {
	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	recs := make([]Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, cloneRecord(m.data[collection][id]))
	}
	return Snapshot{Collection: collection, Records: recs}
}

func (m *Memory) broadcastLocked(collection string) {
	snap := m.snapshotLocked(collection)
	for _, sub := range m.subs[collection] {
		select {
		case sub.snaps <- snap:
		default:
			// Slow subscriber; it will catch up on the next change.
		}
	}
}
