package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

type record struct {
	tx         core.Transaction
	version    int64
	syncStatus string
	updatedAt  time.Time
}

type Store struct {
	mu    sync.Mutex
	users map[string][]string // user -> ids in insertion order
	items map[string]*record  // id -> record
	cats  map[core.TransactionType][]string
	newID func() string
	now   func() time.Time
}

var _ store.Repository = (*Store)(nil)

// New creates an empty store seeded with the given category labels.
func New(incomeCats, expenseCats []string) *Store {
	if len(incomeCats) == 0 {
		incomeCats = core.DefaultCategories(core.Income)
	}
	if len(expenseCats) == 0 {
		expenseCats = core.DefaultCategories(core.Expense)
	}
	return &Store{
		users: make(map[string][]string),
		items: make(map[string]*record),
		cats: map[core.TransactionType][]string{
			core.Income:  dedupe(incomeCats),
			core.Expense: dedupe(expenseCats),
		},
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// NewFromFiles seeds categories from seed_income_categories.txt and
// seed_expense_categories.txt in base, falling back to the defaults.
func NewFromFiles(base string) *Store {
	inc := readLines(filepath.Join(base, "seed_income_categories.txt"))
	exp := readLines(filepath.Join(base, "seed_expense_categories.txt"))
	return New(inc, exp)
}

// Categories returns the seeded labels for t.
func (s *Store) Categories(t core.TransactionType) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cats[t]...)
}

func (s *Store) Insert(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = s.newID()
	}
	if _, exists := s.items[t.ID]; exists {
		t.ID = s.newID()
	}
	s.items[t.ID] = &record{tx: t, version: 1, syncStatus: "pending", updatedAt: s.now()}
	s.users[t.UserID] = append(s.users[t.UserID], t.ID)
	return t.ID, nil
}

func (s *Store) Update(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[t.ID]
	if !ok || rec.tx.UserID != t.UserID {
		return store.ErrNotFound
	}
	rec.tx = t
	rec.version++
	rec.syncStatus = "pending"
	rec.updatedAt = s.now()
	return nil
}

func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok || rec.tx.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.items, id)
	ids := s.users[userID]
	for i, v := range ids {
		if v == id {
			s.users[userID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(s.users[userID]) == 0 {
		delete(s.users, userID)
	}
	return nil
}

func (s *Store) Get(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok || rec.tx.UserID != userID {
		return core.Transaction{}, store.ErrNotFound
	}
	return rec.tx, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.users[userID]
	out := make([]core.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id].tx)
	}
	return out, nil
}

func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.users))
	for u := range s.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

// PendingSync returns unsynced records, oldest update first.
func (s *Store) PendingSync(_ context.Context, limit int) ([]store.PendingSync, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.PendingSync
	for id, rec := range s.items {
		if rec.syncStatus != "pending" {
			continue
		}
		out = append(out, store.PendingSync{ID: id, UserID: rec.tx.UserID, Version: rec.version, UpdatedAt: rec.updatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.Before(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SyncVersion(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	return rec.version, nil
}

// MarkSynced is a no-op when the record changed after version.
func (s *Store) MarkSynced(_ context.Context, id string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return store.ErrNotFound
	}
	if rec.version == version {
		rec.syncStatus = "synced"
	}
	return nil
}

func (s *Store) MarkSyncError(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.syncStatus = "error"
	return nil
}

func (s *Store) Close() error { return nil }

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops blanks and repeats, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
