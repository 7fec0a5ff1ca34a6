// Package chart renders the insights charts as PNG images.
package chart

import (
	"fmt"
	"io"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"expensetracker/internal/core"
	"expensetracker/internal/insights"
)

const (
	Width  = 800
	Height = 400
)

var (
	expenseColor = drawing.Color{R: 250, G: 134, B: 94, A: 255}
	incomeColor  = drawing.Color{R: 77, G: 184, B: 255, A: 255}

	sliceColors = []drawing.Color{
		{R: 250, G: 134, B: 94, A: 255},
		{R: 77, G: 184, B: 255, A: 255},
		{R: 165, G: 235, B: 91, A: 255},
		{R: 252, G: 201, B: 100, A: 255},
		{R: 208, G: 134, B: 255, A: 255},
		{R: 120, G: 120, B: 120, A: 255},
	}
)

// Trend builds the expense and income line chart for the period of d.
// The y axis uses the fixed ticks from insights.AxisTicks.
func Trend(d core.InsightData, now time.Time) gochart.Chart {
	expenses, income := insights.Series(d)
	ticks := insights.AxisTicks(insights.ChartMax(expenses, income))
	dates := insights.SeriesDates(len(expenses), now)

	xs := make([]float64, len(expenses))
	for i := range xs {
		xs[i] = float64(i)
	}

	graph := gochart.Chart{
		Title:  fmt.Sprintf("Income vs Expenses - %s", d.Period),
		Width:  Width,
		Height: Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Ticks: xTicks(dates),
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: ticks[0], Max: ticks[len(ticks)-1]},
			Ticks: yTicks(ticks),
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Expenses",
				Style:   gochart.Style{StrokeColor: expenseColor, StrokeWidth: 2},
				XValues: xs,
				YValues: expenses,
			},
			gochart.ContinuousSeries{
				Name:    "Income",
				Style:   gochart.Style{StrokeColor: incomeColor, StrokeWidth: 2},
				XValues: xs,
				YValues: income,
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}
	return graph
}

// Categories builds the spending pie chart in breakdown order. An empty
// breakdown renders a single placeholder slice.
func Categories(d core.InsightData) gochart.PieChart {
	var values []gochart.Value
	for i, s := range insights.CategoryShares(d.CategoryBreakdown) {
		if s.Amount.Cents <= 0 {
			continue
		}
		values = append(values, gochart.Value{
			Label: fmt.Sprintf("%s %s", s.Name, insights.FormatPercent(s.Percent)),
			Value: s.Amount.Units(),
			Style: gochart.Style{FillColor: sliceColors[i%len(sliceColors)]},
		})
	}
	if len(values) == 0 {
		values = []gochart.Value{{Label: "No expenses", Value: 1}}
	}
	return gochart.PieChart{
		Title:  fmt.Sprintf("Spending by Category - %s", d.Period),
		Width:  Height,
		Height: Height,
		Values: values,
	}
}

func RenderTrend(w io.Writer, d core.InsightData, now time.Time) error {
	graph := Trend(d, now)
	if err := graph.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render trend chart: %w", err)
	}
	return nil
}

func RenderCategories(w io.Writer, d core.InsightData) error {
	pie := Categories(d)
	if err := pie.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render category chart: %w", err)
	}
	return nil
}

func yTicks(values []float64) []gochart.Tick {
	out := make([]gochart.Tick, len(values))
	for i, v := range values {
		out[i] = gochart.Tick{Value: v, Label: fmt.Sprintf("%.0f", v)}
	}
	return out
}

// xTicks labels every day of a week, and every fifth day of a month
// plus the last one.
func xTicks(dates []core.Date) []gochart.Tick {
	every := 1
	if len(dates) > insights.WeeklyBuckets {
		every = 5
	}
	var out []gochart.Tick
	for i, d := range dates {
		if i%every != 0 && i != len(dates)-1 {
			continue
		}
		out = append(out, gochart.Tick{Value: float64(i), Label: d.Format("Jan 2")})
	}
	return out
}
