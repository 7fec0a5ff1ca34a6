package sheets

import (
	"context"
	"time"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionExporter interface {
		// Upsert writes t, replacing the row that carries the same ID.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Remove deletes the row for id. A missing row is not an error.
		Remove(ctx context.Context, id string) error
	}

	// DigestWriter appends periodic insight summaries.
	DigestWriter interface {
		AppendDigest(ctx context.Context, d Digest) error
	}
)

// Digest is one row of the insights sheet.
type Digest struct {
	GeneratedAt time.Time
	UserID      string
	Data        core.InsightData
}
