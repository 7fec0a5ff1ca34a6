package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"expensetracker/internal/insights"
	"expensetracker/internal/store"
)

// SnapshotHub pushes full, date-sorted snapshots of a user's records to
// subscribers whenever Notify is called for that user.
type SnapshotHub struct {
	reader store.TransactionReader
	clock  Clock
	// maxAge bounds how long Current serves a cached snapshot. Zero means
	// until the next Notify.
	maxAge time.Duration

	// loadMu serializes load+publish so Seq order matches read order.
	loadMu sync.Mutex

	mu     sync.Mutex
	seq    uint64
	subs   map[string]map[*subscription]struct{}
	latest map[string]store.Snapshot
	loaded map[string]time.Time
}

type HubOption func(*SnapshotHub)

// WithMaxAge makes Current reload snapshots older than d. Processes that
// do not own every write to the store need it to see those writes.
func WithMaxAge(d time.Duration) HubOption {
	return func(h *SnapshotHub) { h.maxAge = d }
}

func WithHubClock(c Clock) HubOption {
	return func(h *SnapshotHub) { h.clock = c }
}

type subscription struct {
	ch chan store.Snapshot
}

var _ store.Subscriber = (*SnapshotHub)(nil)

func NewSnapshotHub(reader store.TransactionReader, opts ...HubOption) *SnapshotHub {
	h := &SnapshotHub{
		reader: reader,
		clock:  time.Now,
		subs:   make(map[string]map[*subscription]struct{}),
		latest: make(map[string]store.Snapshot),
		loaded: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe returns a channel that first receives the current snapshot
// and then one snapshot per change. A slow reader only ever sees the
// newest pending snapshot. The channel is closed when ctx is done.
func (h *SnapshotHub) Subscribe(ctx context.Context, userID string) (<-chan store.Snapshot, error) {
	if userID == "" {
		return nil, fmt.Errorf("subscribe: empty user id")
	}
	snap, err := h.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub := &subscription{ch: make(chan store.Snapshot, 1)}
	sub.ch <- snap

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	// A Notify may have completed between Current and registration.
	if last, ok := h.latest[userID]; ok && last.Seq > snap.Seq {
		replace(sub.ch, last)
	}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs[userID], sub)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch, nil
}

// Current returns the last published snapshot for userID, loading it
// when none has been published yet, when the last reload failed, or when
// it is older than the hub's max age.
func (h *SnapshotHub) Current(ctx context.Context, userID string) (store.Snapshot, error) {
	h.mu.Lock()
	snap, ok := h.latest[userID]
	fresh := h.maxAge <= 0 || h.clock().Sub(h.loaded[userID]) < h.maxAge
	h.mu.Unlock()
	if ok && fresh {
		return snap, nil
	}
	return h.reload(ctx, userID)
}

// Notify reloads the user's records and pushes the result to every
// subscriber of that user.
func (h *SnapshotHub) Notify(ctx context.Context, userID string) error {
	if _, err := h.reload(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to reload snapshot", "user_id", userID, "error", err)
		return err
	}
	return nil
}

func (h *SnapshotHub) reload(ctx context.Context, userID string) (store.Snapshot, error) {
	h.loadMu.Lock()
	defer h.loadMu.Unlock()

	txs, err := h.reader.ListTransactions(ctx, userID)
	if err != nil {
		// The cached snapshot may predate a write that succeeded; drop it
		// so the next Current goes back to the store.
		h.mu.Lock()
		delete(h.latest, userID)
		delete(h.loaded, userID)
		h.mu.Unlock()
		return store.Snapshot{}, fmt.Errorf("load snapshot for %s: %w", userID, err)
	}
	insights.SortByDateDesc(txs)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	snap := store.Snapshot{UserID: userID, Seq: h.seq, Transactions: txs}
	h.latest[userID] = snap
	h.loaded[userID] = h.clock()
	for sub := range h.subs[userID] {
		replace(sub.ch, snap)
	}
	return snap, nil
}

// replace sends snap on a one-slot channel, dropping a queued value.
// Callers hold h.mu, so no other sender races with it.
func replace(ch chan store.Snapshot, snap store.Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
