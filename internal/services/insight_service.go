package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/insights"
	"expensetracker/internal/store"
)

// ErrStaleResult is returned with a result that was computed from an
// older snapshot than the newest one seen for the same user and period.
var ErrStaleResult = errors.New("insight result is stale")

// Clock returns the current time.
type Clock func() time.Time

// SnapshotSource returns the newest snapshot of a user's records.
type SnapshotSource interface {
	Current(ctx context.Context, userID string) (store.Snapshot, error)
}

// InsightView is everything the insights screen needs for one period.
type InsightView struct {
	Data       core.InsightData
	Seq        uint64
	Ticks      []float64
	ChartMax   float64
	Comparison insights.Comparison
	Verdict    string
	Shares     []insights.CategoryShare
}

type InsightService struct {
	source    SnapshotSource
	clock     Clock
	weekStart time.Weekday
	cache     cache.Cache[InsightView]
	group     singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

type InsightOption func(*InsightService)

func WithClock(c Clock) InsightOption {
	return func(s *InsightService) { s.clock = c }
}

func WithWeekStart(d time.Weekday) InsightOption {
	return func(s *InsightService) { s.weekStart = d }
}

// WithCache replaces the default result cache.
func WithCache(c cache.Cache[InsightView]) InsightOption {
	return func(s *InsightService) { s.cache = c }
}

func NewInsightService(source SnapshotSource, opts ...InsightOption) *InsightService {
	s := &InsightService{
		source:      source,
		clock:       time.Now,
		weekStart:   time.Monday,
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewLRUCache[InsightView](128, 5*time.Minute)
	}
	return s
}

// Insights returns the insights for the user's current snapshot.
func (s *InsightService) Insights(ctx context.Context, userID string, period insights.InsightPeriod) (InsightView, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return InsightView{}, err
	}
	return s.view(ctx, snap, period)
}

// Watch recomputes the insights on every snapshot sub pushes and sends
// the newest result. Stale results are dropped. The channel closes when
// the subscription ends.
func (s *InsightService) Watch(ctx context.Context, sub store.Subscriber, userID string, period insights.InsightPeriod) (<-chan InsightView, error) {
	snaps, err := sub.Subscribe(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("watch insights: %w", err)
	}

	out := make(chan InsightView, 1)
	go func() {
		defer close(out)
		for snap := range snaps {
			if snap.Err != nil {
				slog.WarnContext(ctx, "Skipping failed snapshot", "user_id", userID, "error", snap.Err)
				continue
			}
			v, err := s.view(ctx, snap, period)
			if errors.Is(err, ErrStaleResult) {
				slog.DebugContext(ctx, "Dropping stale insights", "user_id", userID, "seq", v.Seq)
				continue
			}
			select {
			case <-out:
			default:
			}
			out <- v
		}
	}()
	return out, nil
}

// Transactions applies f to the user's current snapshot.
func (s *InsightService) Transactions(ctx context.Context, userID string, f insights.Filter) ([]core.Transaction, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bad := insights.MalformedDates(snap.Transactions); len(bad) > 0 {
		slog.WarnContext(ctx, "Transactions with unparsable dates pass date filters",
			"user_id", userID,
			"count", len(bad),
			"ids", bad)
	}
	return insights.FilterTransactions(snap.Transactions, f, s.clock()), nil
}

// Overview returns all-time totals for the user.
func (s *InsightService) Overview(ctx context.Context, userID string) (core.Overview, error) {
	snap, err := s.snapshot(ctx, userID)
	if err != nil {
		return core.Overview{}, err
	}
	return insights.Totals(snap.Transactions), nil
}

func (s *InsightService) snapshot(ctx context.Context, userID string) (store.Snapshot, error) {
	snap, err := s.source.Current(ctx, userID)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.Err != nil {
		return store.Snapshot{}, fmt.Errorf("load snapshot: %w", snap.Err)
	}
	return snap, nil
}

func (s *InsightService) view(ctx context.Context, snap store.Snapshot, period insights.InsightPeriod) (InsightView, error) {
	now := s.clock()
	genKey := snap.UserID + "|" + period.Slug()
	s.observe(genKey, snap.Seq)

	key := fmt.Sprintf("%s|%d|%s", genKey, snap.Seq, core.DateOf(now))
	v, ok := s.cache.Get(key)
	if !ok {
		res, _, shared := s.group.Do(key, func() (any, error) {
			v := s.compute(snap, period, now)
			s.cache.Set(key, v)
			return v, nil
		})
		v = res.(InsightView)
		if shared {
			slog.DebugContext(ctx, "Shared insight computation", "key", key)
		}
	}

	if s.isStale(genKey, v.Seq) {
		return v, ErrStaleResult
	}
	return v, nil
}

func (s *InsightService) compute(snap store.Snapshot, period insights.InsightPeriod, now time.Time) InsightView {
	d := insights.Aggregate(snap.Transactions, period, now, insights.WithWeekStart(s.weekStart))
	expenses, income := insights.Series(d)
	top := insights.ChartMax(expenses, income)
	return InsightView{
		Data:       d,
		Seq:        snap.Seq,
		Ticks:      insights.AxisTicks(top),
		ChartMax:   top,
		Comparison: insights.Compare(d),
		Verdict:    insights.SavingsVerdict(d.SavingsRate),
		Shares:     insights.CategoryShares(d.CategoryBreakdown),
	}
}

// observe records seq as seen for key, keeping the highest value.
func (s *InsightService) observe(key string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.generations[key] {
		s.generations[key] = seq
	}
}

func (s *InsightService) isStale(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[key] > seq
}
