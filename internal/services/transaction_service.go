package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
)

// ChangePublisher announces record changes to the export worker.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.TransactionChangeMessage) error
}

// TransactionService orchestrates writes across the store, AMQP and the
// snapshot hub.
type TransactionService struct {
	repo      store.Repository
	publisher ChangePublisher
	hub       *SnapshotHub
}

// NewTransactionService wires the service. publisher may be nil, in which
// case change events are skipped.
func NewTransactionService(repo store.Repository, publisher ChangePublisher, hub *SnapshotHub) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		hub:       hub,
	}
}

// Create saves a record and publishes a change event.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	// Save first; the change event is best-effort.
	id, err := s.repo.Insert(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	t.ID = id
	slog.DebugContext(ctx, "Transaction created",
		applog.NewFields().WithTransaction(t).WithOperation(applog.OpCreate).ToSlice()...)

	s.publish(ctx, t.UserID, id, amqp.OpCreate, 1)
	s.notify(ctx, t.UserID)
	return t, nil
}

// Update replaces a record as a whole.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) error {
	if t.ID == "" {
		return store.ErrNotFound
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	version, err := s.repo.SyncVersion(ctx, t.ID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read transaction version", "id", t.ID, "error", err)
	}
	s.publish(ctx, t.UserID, t.ID, amqp.OpUpdate, version)
	s.notify(ctx, t.UserID)
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, userID, id, amqp.OpDelete, 0)
	s.notify(ctx, userID)
	return nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.repo.Get(ctx, userID, id)
}

// Import creates every record in ts, stopping at the first invalid one.
// It returns how many were saved.
func (s *TransactionService) Import(ctx context.Context, userID string, ts []core.Transaction) (int, error) {
	n := 0
	for i, t := range ts {
		t.ID = ""
		t.UserID = userID
		if _, err := s.Create(ctx, t); err != nil {
			return n, fmt.Errorf("import record %d: %w", i+1, err)
		}
		n++
	}
	return n, nil
}

func (s *TransactionService) publish(ctx context.Context, userID, id string, op amqp.ChangeOp, version int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping change message", "id", id)
		return
	}
	msg := amqp.NewTransactionChangeMessage(userID, id, op, version)
	if err := s.publisher.PublishChange(ctx, msg); err != nil {
		// Don't fail the request - the record is saved locally
		slog.ErrorContext(ctx, "Failed to publish change message",
			"id", id,
			"op", op,
			"error", err)
	}
}

func (s *TransactionService) notify(ctx context.Context, userID string) {
	if s.hub == nil {
		return
	}
	_ = s.hub.Notify(ctx, userID)
}

// Close closes the store and, when it has one, the publisher.
func (s *TransactionService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if c, ok := s.publisher.(interface{ Close() error }); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
