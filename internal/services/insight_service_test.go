package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/insights"
	"expensetracker/internal/store"
)

// Monday, ISO week 3.
var fixedNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type staticSource struct {
	snap store.Snapshot
	err  error
}

func (s *staticSource) Current(context.Context, string) (store.Snapshot, error) {
	return s.snap, s.err
}

func TestInsightService_Insights(t *testing.T) {
	ctx := context.Background()
	svc, hub, _ := newTestService(nil)
	mustCreate(t, svc, expense("u1", "Food", 10000, "2024-01-10"))
	mustCreate(t, svc, income("u1", "Salary", 50000, "2024-01-05"))

	is := NewInsightService(hub, WithClock(fixedClock))
	v, err := is.Insights(ctx, "u1", insights.InsightThisMonth)
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}

	d := v.Data
	if d.TotalSpent.Cents != 10000 || d.TotalIncome.Cents != 50000 {
		t.Fatalf("unexpected totals spent=%d income=%d", d.TotalSpent.Cents, d.TotalIncome.Cents)
	}
	if d.SavingsRate != 80 {
		t.Errorf("SavingsRate = %v, want 80", d.SavingsRate)
	}
	if d.TopCategory != "Food" || d.TopCategoryAmount.Cents != 10000 {
		t.Errorf("top category = %s/%d", d.TopCategory, d.TopCategoryAmount.Cents)
	}
	if v.ChartMax != 500 {
		t.Errorf("ChartMax = %v, want 500", v.ChartMax)
	}
	wantTicks := []float64{0, 100, 200, 300, 400, 500}
	if len(v.Ticks) != len(wantTicks) {
		t.Fatalf("Ticks = %v, want %v", v.Ticks, wantTicks)
	}
	for i := range wantTicks {
		if v.Ticks[i] != wantTicks[i] {
			t.Fatalf("Ticks = %v, want %v", v.Ticks, wantTicks)
		}
	}
	if !v.Comparison.Saved || v.Verdict != "Great job!" {
		t.Errorf("unexpected comparison %+v verdict %q", v.Comparison, v.Verdict)
	}
	if len(v.Shares) != 1 || v.Shares[0].Percent != 100 {
		t.Errorf("unexpected shares %+v", v.Shares)
	}
}

func TestInsightService_CachesPerSnapshot(t *testing.T) {
	ctx := context.Background()
	c := cache.NewLRUCache[InsightView](10, time.Minute)
	src := &staticSource{snap: store.Snapshot{UserID: "u1", Seq: 1}}
	is := NewInsightService(src, WithClock(fixedClock), WithCache(c))

	for i := 0; i < 3; i++ {
		if _, err := is.Insights(ctx, "u1", insights.InsightThisWeek); err != nil {
			t.Fatalf("Insights: %v", err)
		}
	}
	if c.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", c.Size())
	}

	src.snap.Seq = 2
	if _, err := is.Insights(ctx, "u1", insights.InsightThisWeek); err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if c.Size() != 2 {
		t.Fatalf("a new snapshot should get its own entry, size = %d", c.Size())
	}
}

func TestInsightService_StaleResult(t *testing.T) {
	ctx := context.Background()
	src := &staticSource{snap: store.Snapshot{UserID: "u1", Seq: 5}}
	is := NewInsightService(src, WithClock(fixedClock))

	if _, err := is.Insights(ctx, "u1", insights.InsightThisMonth); err != nil {
		t.Fatalf("Insights: %v", err)
	}

	src.snap.Seq = 3
	v, err := is.Insights(ctx, "u1", insights.InsightThisMonth)
	if !errors.Is(err, ErrStaleResult) {
		t.Fatalf("expected ErrStaleResult, got %v", err)
	}
	if v.Seq != 3 {
		t.Errorf("stale result should still carry its seq, got %d", v.Seq)
	}

	// Generations are tracked per period.
	if _, err := is.Insights(ctx, "u1", insights.InsightThisWeek); err != nil {
		t.Fatalf("other period should not be stale: %v", err)
	}
}

func TestInsightService_SourceError(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		src  *staticSource
	}{
		{"source error", &staticSource{err: boom}},
		{"snapshot error", &staticSource{snap: store.Snapshot{UserID: "u1", Err: boom}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := NewInsightService(tt.src, WithClock(fixedClock))
			if _, err := is.Insights(context.Background(), "u1", insights.InsightThisMonth); !errors.Is(err, boom) {
				t.Fatalf("expected wrapped boom, got %v", err)
			}
			if _, err := is.Overview(context.Background(), "u1"); !errors.Is(err, boom) {
				t.Fatalf("expected wrapped boom from Overview, got %v", err)
			}
		})
	}
}

func TestInsightService_TransactionsAndOverview(t *testing.T) {
	ctx := context.Background()
	svc, hub, _ := newTestService(nil)
	mustCreate(t, svc, expense("u1", "Food", 1000, "2024-01-14"))
	mustCreate(t, svc, expense("u1", "Food", 2000, "2023-12-01"))
	mustCreate(t, svc, income("u1", "Salary", 6000, "2024-01-02"))

	is := NewInsightService(hub, WithClock(fixedClock))

	got, err := is.Transactions(ctx, "u1", insights.Filter{Type: insights.TypeExpense, Period: insights.PeriodLast7Days})
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(got) != 1 || got[0].Date != "2024-01-14" {
		t.Fatalf("unexpected filter result %+v", got)
	}

	all, _ := is.Transactions(ctx, "u1", insights.Filter{Type: insights.TypeAll})
	if len(all) != 3 || all[0].Date != "2024-01-14" || all[2].Date != "2023-12-01" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	o, err := is.Overview(ctx, "u1")
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if o.TotalExpense.Cents != 3000 || o.TotalIncome.Cents != 6000 || o.Balance.Cents != 3000 || o.Count != 3 {
		t.Fatalf("unexpected overview %+v", o)
	}
	if o.IncomeExpenseRatio != 2 {
		t.Errorf("IncomeExpenseRatio = %v, want 2", o.IncomeExpenseRatio)
	}
}

func TestInsightService_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, hub, _ := newTestService(nil)
	is := NewInsightService(hub, WithClock(fixedClock))

	views, err := is.Watch(ctx, hub, "u1", insights.InsightThisMonth)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	next := func() InsightView {
		t.Helper()
		select {
		case v, ok := <-views:
			if !ok {
				t.Fatal("views closed")
			}
			return v
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for insights")
		}
		return InsightView{}
	}

	if v := next(); v.Data.TotalSpent.Cents != 0 {
		t.Fatalf("initial view should be empty, got %+v", v.Data)
	}

	if _, err := svc.Create(ctx, expense("u1", "Food", 4200, "2024-01-12")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	deadline := time.After(time.Second)
	for {
		select {
		case v := <-views:
			if v.Data.TotalSpent.Cents == 4200 {
				cancel()
				return
			}
		case <-deadline:
			t.Fatal("did not observe updated insights")
		}
	}
}
