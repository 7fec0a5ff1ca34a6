package chart

import (
	"bytes"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/insights"
)

var now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func sample() core.InsightData {
	all := []core.Transaction{
		{ID: "a", Type: core.Expense, Category: "Food", Amount: core.Money{Cents: 10000}, Date: "2024-01-10"},
		{ID: "b", Type: core.Expense, Category: "Transport", Amount: core.Money{Cents: 2500}, Date: "2024-01-14"},
		{ID: "c", Type: core.Income, Category: "Salary", Amount: core.Money{Cents: 50000}, Date: "2024-01-05"},
	}
	return insights.Aggregate(all, insights.InsightThisMonth, now)
}

func isPNG(b []byte) bool {
	return bytes.HasPrefix(b, []byte("\x89PNG\r\n\x1a\n"))
}

func TestTrendUsesAxisTicks(t *testing.T) {
	g := Trend(sample(), now)
	ticks := g.YAxis.Ticks
	if len(ticks) != 6 || ticks[len(ticks)-1].Value != 500 || ticks[1].Label != "100" {
		t.Fatalf("unexpected y ticks %+v", ticks)
	}
	if len(g.Series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(g.Series))
	}
	x := g.XAxis.Ticks
	if len(x) != 7 || x[len(x)-1].Label != "Jan 15" {
		t.Fatalf("unexpected x ticks %+v", x)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		data   core.InsightData
		render func(*bytes.Buffer, core.InsightData) error
	}{
		{"trend", sample(), func(b *bytes.Buffer, d core.InsightData) error { return RenderTrend(b, d, now) }},
		{"trend empty", insights.Aggregate(nil, insights.InsightThisWeek, now), func(b *bytes.Buffer, d core.InsightData) error { return RenderTrend(b, d, now) }},
		{"categories", sample(), func(b *bytes.Buffer, d core.InsightData) error { return RenderCategories(b, d) }},
		{"categories empty", insights.Aggregate(nil, insights.InsightThisMonth, now), func(b *bytes.Buffer, d core.InsightData) error { return RenderCategories(b, d) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.render(&buf, tt.data); err != nil {
				t.Fatalf("render: %v", err)
			}
			if !isPNG(buf.Bytes()) {
				t.Fatal("output is not a PNG")
			}
		})
	}
}

func TestCategoriesPlaceholder(t *testing.T) {
	pie := Categories(core.InsightData{})
	if len(pie.Values) != 1 || pie.Values[0].Label != "No expenses" {
		t.Fatalf("unexpected placeholder %+v", pie.Values)
	}
	pie = Categories(sample())
	if len(pie.Values) != 2 || pie.Values[0].Label != "Food 80.0%" {
		t.Fatalf("unexpected slices %+v", pie.Values)
	}
}
