package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensetracker/internal/insights"
	"expensetracker/internal/services"
	"expensetracker/internal/sheets"
	"expensetracker/internal/store"
)

// InsightSource computes the insights for one user.
type InsightSource interface {
	Insights(ctx context.Context, userID string, period insights.InsightPeriod) (services.InsightView, error)
}

// SnapshotRefresher reloads a user's snapshot from the store.
type SnapshotRefresher interface {
	Notify(ctx context.Context, userID string) error
}

// DigestJob writes one insights row per user to the digest sheet.
type DigestJob struct {
	users    store.UserLister
	insights InsightSource
	writer   sheets.DigestWriter
	period   insights.InsightPeriod
	clock    func() time.Time
	refresh  SnapshotRefresher
}

type DigestOption func(*DigestJob)

// WithRefresh reloads each user's snapshot before computing the digest.
// The worker does not see the writes, so its hub never gets notified.
func WithRefresh(r SnapshotRefresher) DigestOption {
	return func(j *DigestJob) { j.refresh = r }
}

func NewDigestJob(users store.UserLister, src InsightSource, writer sheets.DigestWriter, period insights.InsightPeriod, clock func() time.Time, opts ...DigestOption) *DigestJob {
	if clock == nil {
		clock = time.Now
	}
	j := &DigestJob{
		users:    users,
		insights: src,
		writer:   writer,
		period:   period,
		clock:    clock,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run writes a digest for every user. A failure for one user does not
// stop the others; all failures are returned together.
func (j *DigestJob) Run(ctx context.Context) error {
	users, err := j.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	written := 0
	for _, u := range users {
		if j.refresh != nil {
			if err := j.refresh.Notify(ctx, u); err != nil {
				errs = append(errs, fmt.Errorf("refresh snapshot for %s: %w", u, err))
				continue
			}
		}
		v, err := j.insights.Insights(ctx, u, j.period)
		// A newer snapshot only matters to interactive readers.
		if err != nil && !errors.Is(err, services.ErrStaleResult) {
			errs = append(errs, fmt.Errorf("insights for %s: %w", u, err))
			continue
		}
		d := sheets.Digest{GeneratedAt: j.clock(), UserID: u, Data: v.Data}
		if err := j.writer.AppendDigest(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("write digest for %s: %w", u, err))
			continue
		}
		written++
	}

	slog.InfoContext(ctx, "Insight digests written",
		"period", j.period,
		"users", len(users),
		"written", written,
		"errors", len(errs))
	return errors.Join(errs...)
}
