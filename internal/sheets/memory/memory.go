package memory

import (
	"context"
	"fmt"
	"sync"

	"expensetracker/internal/core"
	ports "expensetracker/internal/sheets"
)

// Sheet is an in-process stand-in for the export spreadsheet. It keeps
// rows in write order and is used when no spreadsheet is configured.
type Sheet struct {
	mu      sync.Mutex
	order   []string
	rows    map[string]core.Transaction
	digests []ports.Digest

	// Err, when set, is returned by every write.
	Err error
}

var (
	_ ports.TransactionExporter = (*Sheet)(nil)
	_ ports.DigestWriter        = (*Sheet)(nil)
)

func New() *Sheet {
	return &Sheet{rows: make(map[string]core.Transaction)}
}

// Upsert stores t and returns a synthetic row reference.
func (s *Sheet) Upsert(_ context.Context, t core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	if t.ID == "" {
		return "", fmt.Errorf("export transaction: missing id")
	}
	if _, ok := s.rows[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.rows[t.ID] = t
	return fmt.Sprintf("mem:%d", s.indexLocked(t.ID)+1), nil
}

func (s *Sheet) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if i := s.indexLocked(id); i >= 0 {
		s.order = append(s.order[:i], s.order[i+1:]...)
		delete(s.rows, id)
	}
	return nil
}

func (s *Sheet) AppendDigest(_ context.Context, d ports.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.digests = append(s.digests, d)
	return nil
}

// Rows returns the exported records in row order.
func (s *Sheet) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}

func (s *Sheet) Digests() []ports.Digest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.Digest(nil), s.digests...)
}

func (s *Sheet) indexLocked(id string) int {
	for i, v := range s.order {
		if v == id {
			return i
		}
	}
	return -1
}
