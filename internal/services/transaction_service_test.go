package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/store"
	"expensetracker/internal/store/memory"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.TransactionChangeMessage
	err  error
}

func (f *fakePublisher) PublishChange(_ context.Context, msg *amqp.TransactionChangeMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakePublisher) ops() []amqp.ChangeOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]amqp.ChangeOp, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.Op
	}
	return out
}

func expense(user, category string, cents int64, date string) core.Transaction {
	return core.Transaction{
		UserID:   user,
		Title:    category,
		Amount:   core.Money{Cents: cents},
		Type:     core.Expense,
		Category: category,
		Date:     date,
	}
}

func income(user, category string, cents int64, date string) core.Transaction {
	t := expense(user, category, cents, date)
	t.Type = core.Income
	return t
}

func newTestService(pub ChangePublisher) (*TransactionService, *SnapshotHub, *memory.Store) {
	repo := memory.New(nil, nil)
	hub := NewSnapshotHub(repo)
	return NewTransactionService(repo, pub, hub), hub, repo
}

func mustCreate(t *testing.T, svc *TransactionService, tx core.Transaction) core.Transaction {
	t.Helper()
	got, err := svc.Create(context.Background(), tx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return got
}

func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, hub, _ := newTestService(pub)

	got, err := svc.Create(ctx, expense("u1", "Food", 1000, "2024-01-10"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" {
		t.Fatal("Create should assign an id")
	}

	if len(pub.msgs) != 1 || pub.msgs[0].Op != amqp.OpCreate || pub.msgs[0].Version != 1 || pub.msgs[0].ID != got.ID {
		t.Fatalf("unexpected messages %+v", pub.msgs)
	}

	snap, err := hub.Current(ctx, "u1")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != got.ID {
		t.Fatalf("snapshot not refreshed: %+v", snap)
	}
}

func TestTransactionService_CreateRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"missing user", expense("", "Food", 100, "2024-01-10"), core.ErrEmptyUserID},
		{"bad type", func() core.Transaction { t := expense("u1", "Food", 100, "2024-01-10"); t.Type = "gift"; return t }(), core.ErrInvalidType},
		{"bad date", expense("u1", "Food", 100, "10/01/2024"), core.ErrInvalidDate},
		{"negative amount", expense("u1", "Food", -1, "2024-01-10"), core.ErrInvalidAmount},
		{"empty category", expense("u1", " ", 100, "2024-01-10"), core.ErrEmptyCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			svc, _, _ := newTestService(pub)
			_, err := svc.Create(context.Background(), tt.tx)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Create error = %v, want %v", err, tt.want)
			}
			if len(pub.msgs) != 0 {
				t.Fatalf("invalid record must not be published: %+v", pub.msgs)
			}
		})
	}
}

func TestTransactionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newTestService(&fakePublisher{err: amqp.ErrCircuitOpen})

	got, err := svc.Create(ctx, expense("u1", "Food", 1000, "2024-01-10"))
	if err != nil {
		t.Fatalf("Create should succeed when publishing fails: %v", err)
	}
	if _, err := repo.Get(ctx, "u1", got.ID); err != nil {
		t.Fatalf("record should be stored: %v", err)
	}
}

func TestTransactionService_NilPublisher(t *testing.T) {
	svc, _, _ := newTestService(nil)
	if _, err := svc.Create(context.Background(), expense("u1", "Food", 1000, "2024-01-10")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestTransactionService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, hub, _ := newTestService(pub)

	created, err := svc.Create(ctx, expense("u1", "Food", 1000, "2024-01-10"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	created.Amount = core.Money{Cents: 1500}
	if err := svc.Update(ctx, created); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if last := pub.msgs[len(pub.msgs)-1]; last.Op != amqp.OpUpdate || last.Version != 2 {
		t.Fatalf("unexpected update message %+v", last)
	}
	snap, _ := hub.Current(ctx, "u1")
	if snap.Transactions[0].Amount.Cents != 1500 {
		t.Fatalf("snapshot not refreshed after update: %+v", snap.Transactions)
	}

	other := created
	other.UserID = "u2"
	if err := svc.Update(ctx, other); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("updating another user's record: got %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, "u1", created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}

	want := []amqp.ChangeOp{amqp.OpCreate, amqp.OpUpdate, amqp.OpDelete}
	got := pub.ops()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ops = %v, want %v", got, want)
		}
	}

	snap, _ = hub.Current(ctx, "u1")
	if len(snap.Transactions) != 0 {
		t.Fatalf("snapshot should be empty after delete: %+v", snap.Transactions)
	}
}

func TestTransactionService_Import(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newTestService(nil)

	records := []core.Transaction{
		expense("ignored", "Food", 1000, "2024-01-10"),
		income("", "Salary", 50000, "2024-01-05"),
		expense("u1", "Food", 100, "bad"),
	}
	n, err := svc.Import(ctx, "u1", records)
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("Import error = %v, want ErrInvalidDate", err)
	}
	if n != 2 {
		t.Fatalf("imported %d, want 2", n)
	}
	list, _ := repo.ListTransactions(ctx, "u1")
	if len(list) != 2 {
		t.Fatalf("expected 2 records for u1, got %d", len(list))
	}
}
