package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recvSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots:
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestMemoryCreateAssignsID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Create(ctx, CollectionOrders, Record{"status": "pending"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned empty id")
	}

	id2, err := m.Create(ctx, CollectionOrders, Record{"status": "pending"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == id2 {
		t.Fatal("Create returned duplicate ids")
	}
}

func TestMemorySubscribeDeliversInitialSnapshot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Create(ctx, CollectionOrders, Record{"status": "pending"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sub, err := m.Subscribe(ctx, CollectionOrders)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	snap := recvSnapshot(t, sub)
	if snap.Collection != CollectionOrders {
		t.Fatalf("collection = %q, want %q", snap.Collection, CollectionOrders)
	}
	if len(snap.Records) != 1 {
		t.Fatalf("initial snapshot has %d records, want 1", len(snap.Records))
	}
}

func TestMemorySnapshotIsFullReplacement(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, CollectionOrders)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()
	recvSnapshot(t, sub) // initial, empty

	id, err := m.Create(ctx, CollectionOrders, Record{"status": "pending"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	snap := recvSnapshot(t, sub)
	if len(snap.Records) != 1 {
		t.Fatalf("after create: %d records, want 1", len(snap.Records))
	}

	if err := m.Delete(ctx, CollectionOrders, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	snap = recvSnapshot(t, sub)
	if len(snap.Records) != 0 {
		t.Fatalf("after delete: %d records, want 0", len(snap.Records))
	}
}

func TestMemoryUpdateMergesPatch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Create(ctx, CollectionOrders, Record{"status": "pending", "total": 10.0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := m.Update(ctx, CollectionOrders, id, Record{"status": "confirmed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sub, err := m.Subscribe(ctx, CollectionOrders)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()

	snap := recvSnapshot(t, sub)
	rec := snap.Records[0]
	if rec["status"] != "confirmed" {
		t.Fatalf("status = %v, want confirmed", rec["status"])
	}
	if rec["total"] != 10.0 {
		t.Fatalf("patch must not clobber untouched fields, total = %v", rec["total"])
	}
}

func TestMemoryUpdateMissingID(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), CollectionOrders, "nope", Record{"status": "confirmed"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing id: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryUnavailable(t *testing.T) {
	m := NewMemory()
	m.SetUnavailable(true)

	if _, err := m.Create(context.Background(), CollectionOrders, Record{}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Create while unavailable: err = %v, want ErrUnavailable", err)
	}
}

func TestMemoryErrorsDoNotCloseStream(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, CollectionOrders)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Cancel()
	recvSnapshot(t, sub)

	wantErr := errors.New("transient")
	m.EmitError(CollectionOrders, wantErr)

	select {
	case got := <-sub.Errors:
		if !errors.Is(got, wantErr) {
			t.Fatalf("err = %v, want %v", got, wantErr)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error")
	}

	// Stream stays live after an error.
	if _, err := m.Create(ctx, CollectionOrders, Record{"status": "pending"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	snap := recvSnapshot(t, sub)
	if len(snap.Records) != 1 {
		t.Fatalf("snapshot after error: %d records, want 1", len(snap.Records))
	}
}

func TestSubscriptionCancelIdempotent(t *testing.T) {
	m := NewMemory()
	sub, err := m.Subscribe(context.Background(), CollectionOrders)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	sub.Cancel()
	sub.Cancel() // must not panic
}
