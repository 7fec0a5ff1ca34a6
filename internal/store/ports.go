// Package store defines the transaction store ports shared by the
// memory and SQLite backends.
package store

import (
	"context"
	"errors"
	"time"

	"expensetracker/internal/core"
)

var ErrNotFound = errors.New("transaction not found")

// Ports for the transaction store.
type (
	TransactionWriter interface {
		// Insert stores t and returns the identifier the store assigned.
		Insert(ctx context.Context, t core.Transaction) (id string, err error)
		// Update replaces the record with t.ID as a whole.
		Update(ctx context.Context, t core.Transaction) error
		Delete(ctx context.Context, userID, id string) error
	}

	TransactionReader interface {
		Get(ctx context.Context, userID, id string) (core.Transaction, error)
		// ListTransactions returns every record of a user, in no particular order.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	// UserLister enumerates users with at least one record.
	UserLister interface {
		ListUsers(ctx context.Context) ([]string, error)
	}

	// SyncTracker records which writes still need to reach the export sheet.
	SyncTracker interface {
		PendingSync(ctx context.Context, limit int) ([]PendingSync, error)
		// SyncVersion returns the current version of a record.
		SyncVersion(ctx context.Context, id string) (int64, error)
		MarkSynced(ctx context.Context, id string, version int64) error
		MarkSyncError(ctx context.Context, id string) error
	}

	// Subscriber pushes a fresh snapshot of a user's records after every
	// change. The channel closes when ctx is done.
	Subscriber interface {
		Subscribe(ctx context.Context, userID string) (<-chan Snapshot, error)
	}

	Repository interface {
		TransactionWriter
		TransactionReader
		UserLister
		SyncTracker
		Close() error
	}
)

// PendingSync is the minimal data needed to re-queue an export.
type PendingSync struct {
	ID        string
	UserID    string
	Version   int64
	UpdatedAt time.Time
}

// Snapshot is the full, date-sorted record set of one user at a point
// in time. Seq increases with every snapshot a hub publishes.
type Snapshot struct {
	UserID       string
	Seq          uint64
	Transactions []core.Transaction
	Err          error
}
