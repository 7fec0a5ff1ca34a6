package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
	"expensetracker/internal/store/memory"
)

func receive(t *testing.T, ch <-chan store.Snapshot) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return store.Snapshot{}
}

func TestSnapshotHub_SubscribeReceivesCurrentThenChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, hub, _ := newTestService(nil)

	if _, err := svc.Create(ctx, expense("u1", "Food", 100, "2024-01-01")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ch, err := hub.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	first := receive(t, ch)
	if len(first.Transactions) != 1 {
		t.Fatalf("initial snapshot has %d records, want 1", len(first.Transactions))
	}

	if _, err := svc.Create(ctx, expense("u1", "Transport", 200, "2024-01-20")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	next := receive(t, ch)
	if next.Seq <= first.Seq {
		t.Fatalf("seq did not increase: %d -> %d", first.Seq, next.Seq)
	}
	if len(next.Transactions) != 2 || next.Transactions[0].Date != "2024-01-20" {
		t.Fatalf("snapshot should be sorted newest first: %+v", next.Transactions)
	}
}

func TestSnapshotHub_SlowSubscriberGetsNewest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, hub, _ := newTestService(nil)

	ch, err := hub.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, expense("u1", "Food", 100, "2024-01-01")); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	snap := receive(t, ch)
	if len(snap.Transactions) != 5 {
		t.Fatalf("expected only the newest snapshot, got %d records", len(snap.Transactions))
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected queued snapshot %+v", extra)
	default:
	}
}

func TestSnapshotHub_UsersAreIsolated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, hub, _ := newTestService(nil)

	ch, err := hub.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	receive(t, ch)

	if _, err := svc.Create(ctx, expense("u2", "Food", 100, "2024-01-01")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	select {
	case snap := <-ch:
		t.Fatalf("u1 should not see u2 changes: %+v", snap)
	default:
	}
}

func TestSnapshotHub_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, hub, _ := newTestService(nil)

	ch, err := hub.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	receive(t, ch)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestSnapshotHub_SubscribeRequiresUser(t *testing.T) {
	_, hub, _ := newTestService(nil)
	if _, err := hub.Subscribe(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

// flakyReader fails the next failN list calls.
type flakyReader struct {
	store.TransactionReader
	mu    sync.Mutex
	failN int
}

func (f *flakyReader) failNext(n int) {
	f.mu.Lock()
	f.failN = n
	f.mu.Unlock()
}

func (f *flakyReader) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	f.mu.Lock()
	fail := f.failN > 0
	if fail {
		f.failN--
	}
	f.mu.Unlock()
	if fail {
		return nil, errors.New("database is locked")
	}
	return f.TransactionReader.ListTransactions(ctx, userID)
}

func TestSnapshotHub_FailedReloadDropsCachedSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(nil, nil)
	reader := &flakyReader{TransactionReader: repo}
	hub := NewSnapshotHub(reader)
	svc := NewTransactionService(repo, nil, hub)

	mustCreate(t, svc, expense("u1", "Food", 100, "2024-01-01"))
	if snap, err := hub.Current(ctx, "u1"); err != nil || len(snap.Transactions) != 1 {
		t.Fatalf("Current = %+v, %v", snap, err)
	}

	// The write succeeds but the reload after it does not.
	reader.failNext(1)
	mustCreate(t, svc, expense("u1", "Food", 200, "2024-01-02"))

	snap, err := hub.Current(ctx, "u1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(snap.Transactions) != 2 {
		t.Fatalf("Current served the snapshot from before the write: %d records", len(snap.Transactions))
	}
}

func TestSnapshotHub_MaxAgeSeesOutsideWrites(t *testing.T) {
	ctx := context.Background()
	repo := memory.New(nil, nil)
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	hub := NewSnapshotHub(repo,
		WithMaxAge(time.Minute),
		WithHubClock(func() time.Time { return now }))

	if _, err := hub.Current(ctx, "u1"); err != nil {
		t.Fatalf("Current: %v", err)
	}
	// Written by another process; this hub is never notified.
	if _, err := repo.Insert(ctx, expense("u1", "Food", 100, "2024-01-15")); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	now = now.Add(30 * time.Second)
	if snap, _ := hub.Current(ctx, "u1"); len(snap.Transactions) != 0 {
		t.Fatalf("snapshot within max age should be reused, got %d records", len(snap.Transactions))
	}

	now = now.Add(time.Minute)
	if snap, _ := hub.Current(ctx, "u1"); len(snap.Transactions) != 1 {
		t.Fatalf("expired snapshot should be reloaded, got %d records", len(snap.Transactions))
	}
}
