package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/sheets"
	"expensetracker/internal/store"
)

// SyncWorker mirrors transactions from the store to the export sheet.
type SyncWorker struct {
	repo      store.Repository
	exporter  sheets.TransactionExporter
	batchSize int
}

func NewSyncWorker(repo store.Repository, exporter sheets.TransactionExporter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		repo:      repo,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleChange processes a single change message from AMQP. A returned
// error makes the consumer requeue the message.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.TransactionChangeMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"id", msg.ID,
		"op", msg.Op,
		"version", msg.Version)

	switch msg.Op {
	case amqp.OpCreate, amqp.OpUpdate:
		return w.syncTransaction(ctx, msg.UserID, msg.ID)
	case amqp.OpDelete:
		if err := w.exporter.Remove(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove from sheet: %w", err)
		}
		slog.InfoContext(ctx, "Removed transaction from sheet", "id", msg.ID)
		return nil
	default:
		return fmt.Errorf("unknown op %q", msg.Op)
	}
}

// ProcessPending exports records whose change message may have been
// lost. It is a backup for the AMQP path.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck exports a larger batch of pending records once, to
// recover from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.repo.PendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) > 0 {
		slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.syncTransaction(ctx, p.UserID, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, userID, id string) error {
	// Read the version first so a concurrent update stays pending.
	version, err := w.repo.SyncVersion(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction no longer exists, removing from sheet", "id", id)
		return w.exporter.Remove(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get version: %w", err)
	}

	t, err := w.repo.Get(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return w.exporter.Remove(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("get transaction from store: %w", err)
	}

	ref, err := w.exporter.Upsert(ctx, t)
	if err != nil {
		if markErr := w.repo.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("export to sheet: %w", err)
	}

	if err := w.repo.MarkSynced(ctx, id, version); err != nil {
		// Don't return error here - the export actually worked
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", id,
		"version", version,
		"sheets_ref", ref,
		"amount_cents", t.Amount.Cents)
	return nil
}
