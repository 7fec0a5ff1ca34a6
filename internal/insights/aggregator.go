package insights

import (
	"fmt"
	"math"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// InsightPeriod is the window the insights screen aggregates over.
type InsightPeriod string

const (
	InsightThisWeek  InsightPeriod = "This Week"
	InsightThisMonth InsightPeriod = "This Month"
)

const (
	WeeklyBuckets  = 7
	MonthlyBuckets = 30

	// GoodSavingsRate is the rate at which the savings verdict turns positive.
	GoodSavingsRate = 20.0
)

// ParseInsightPeriod accepts labels or slugs; empty means This Month.
func ParseInsightPeriod(s string) (InsightPeriod, error) {
	switch normalizeLabel(s) {
	case "", "this-month", "month", "monthly":
		return InsightThisMonth, nil
	case "this-week", "week", "weekly":
		return InsightThisWeek, nil
	}
	return "", fmt.Errorf("unknown insight period: %q", s)
}

// Slug returns the URL form of the period.
func (p InsightPeriod) Slug() string {
	return normalizeLabel(string(p))
}

type aggregateOptions struct {
	weekStart time.Weekday
}

// AggregateOption customizes Aggregate.
type AggregateOption func(*aggregateOptions)

// WithWeekStart sets the first day of the week used for the This Week
// window. The default is Monday.
func WithWeekStart(d time.Weekday) AggregateOption {
	return func(o *aggregateOptions) {
		o.weekStart = d
	}
}

// WindowStart returns the first calendar day of period containing now.
func WindowStart(period InsightPeriod, now time.Time, weekStart time.Weekday) core.Date {
	day := today(now)
	if period == InsightThisWeek {
		offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
		return day.AddDays(-offset)
	}
	return core.NewDate(day.Year(), int(day.Month()), 1)
}

// Aggregate computes the insights for period from a full snapshot.
// Records dated before the window start, or with an unparsable date,
// are left out. There is no upper bound on the window.
func Aggregate(all []core.Transaction, period InsightPeriod, now time.Time, opts ...AggregateOption) core.InsightData {
	o := aggregateOptions{weekStart: time.Monday}
	for _, opt := range opts {
		opt(&o)
	}
	if period != InsightThisWeek {
		period = InsightThisMonth
	}

	day := today(now)
	start := WindowStart(period, now, o.weekStart)

	data := core.InsightData{
		Period:            string(period),
		GeneratedAt:       now,
		CategoryBreakdown: []core.CategoryAmount{},
		WeeklyExpenses:    make([]float64, WeeklyBuckets),
		MonthlyExpenses:   make([]float64, MonthlyBuckets),
		WeeklyIncome:      make([]float64, WeeklyBuckets),
		MonthlyIncome:     make([]float64, MonthlyBuckets),
	}
	// cents per bucket, converted once at the end
	weeklyExp := make([]int64, WeeklyBuckets)
	monthlyExp := make([]int64, MonthlyBuckets)
	weeklyInc := make([]int64, WeeklyBuckets)
	monthlyInc := make([]int64, MonthlyBuckets)

	index := make(map[string]int)
	for _, t := range all {
		d, ok := t.ParsedDate()
		if !ok || d.Before(start.Time) {
			continue
		}

		switch t.Type {
		case core.Expense:
			data.TotalSpent = data.TotalSpent.Add(t.Amount)
			if i, seen := index[t.Category]; seen {
				data.CategoryBreakdown[i].Amount = data.CategoryBreakdown[i].Amount.Add(t.Amount)
			} else {
				index[t.Category] = len(data.CategoryBreakdown)
				data.CategoryBreakdown = append(data.CategoryBreakdown, core.CategoryAmount{Name: t.Category, Amount: t.Amount})
			}
		case core.Income:
			data.TotalIncome = data.TotalIncome.Add(t.Amount)
		default:
			continue
		}

		k := daysBetween(d, day)
		if k < 0 {
			continue
		}
		if k < WeeklyBuckets {
			if t.Type == core.Expense {
				weeklyExp[WeeklyBuckets-1-k] += t.Amount.Cents
			} else {
				weeklyInc[WeeklyBuckets-1-k] += t.Amount.Cents
			}
		}
		if k < MonthlyBuckets {
			if t.Type == core.Expense {
				monthlyExp[MonthlyBuckets-1-k] += t.Amount.Cents
			} else {
				monthlyInc[MonthlyBuckets-1-k] += t.Amount.Cents
			}
		}
	}

	fillUnits(data.WeeklyExpenses, weeklyExp)
	fillUnits(data.MonthlyExpenses, monthlyExp)
	fillUnits(data.WeeklyIncome, weeklyInc)
	fillUnits(data.MonthlyIncome, monthlyInc)

	data.TopCategory, data.TopCategoryAmount = topCategory(data.CategoryBreakdown)
	data.SavingsRate = SavingsRate(data.TotalIncome, data.TotalSpent)
	return data
}

// daysBetween returns how many calendar days d lies before today.
func daysBetween(d, today core.Date) int {
	return int(math.Round(today.Sub(d.Time).Hours() / 24))
}

func fillUnits(dst []float64, cents []int64) {
	for i, c := range cents {
		dst[i] = core.Money{Cents: c}.Units()
	}
}

// topCategory returns the first entry with the largest amount.
func topCategory(breakdown []core.CategoryAmount) (string, core.Money) {
	var name string
	var best core.Money
	for i, ca := range breakdown {
		if i == 0 || ca.Amount.Cents > best.Cents {
			name, best = ca.Name, ca.Amount
		}
	}
	return name, best
}

// SavingsRate is (income - spent) / income as a percentage, or 0 when
// there is no income. Overspending gives a negative rate.
func SavingsRate(income, spent core.Money) float64 {
	if income.Cents <= 0 {
		return 0
	}
	return float64(income.Cents-spent.Cents) / float64(income.Cents) * 100
}

// Series returns the expense and income series for the period shown on
// screen: 7 buckets for This Week, 30 for This Month.
func Series(d core.InsightData) (expenses, income []float64) {
	if d.Period == string(InsightThisWeek) {
		return d.WeeklyExpenses, d.WeeklyIncome
	}
	return d.MonthlyExpenses, d.MonthlyIncome
}

// SeriesDates returns the calendar day of each bucket, oldest first.
func SeriesDates(n int, now time.Time) []core.Date {
	day := today(now)
	out := make([]core.Date, n)
	for i := range out {
		out[i] = day.AddDays(i - (n - 1))
	}
	return out
}

// Comparison describes how spending compares to income.
type Comparison struct {
	Difference core.Money
	Saved      bool
	Status     string
}

// Compare reports the absolute difference between income and spending.
func Compare(d core.InsightData) Comparison {
	diff := d.Balance()
	c := Comparison{Saved: diff.Cents >= 0, Status: "You saved"}
	if diff.Cents < 0 {
		diff.Cents = -diff.Cents
		c.Status = "You overspent by"
	}
	c.Difference = diff
	return c
}

// SavingsVerdict is the short advice shown next to the savings rate.
func SavingsVerdict(rate float64) string {
	if rate >= GoodSavingsRate {
		return "Great job!"
	}
	return "Try to save more"
}

// CategoryShare is a breakdown entry as a percentage of total spending.
type CategoryShare struct {
	Name    string
	Amount  core.Money
	Percent float64
}

// CategoryShares returns the pie chart slices in breakdown order.
func CategoryShares(breakdown []core.CategoryAmount) []CategoryShare {
	var total int64
	for _, ca := range breakdown {
		total += ca.Amount.Cents
	}
	out := make([]CategoryShare, 0, len(breakdown))
	for _, ca := range breakdown {
		s := CategoryShare{Name: ca.Name, Amount: ca.Amount}
		if total > 0 {
			s.Percent = float64(ca.Amount.Cents) / float64(total) * 100
		}
		out = append(out, s)
	}
	return out
}

// Totals computes all-time figures for the home screen. Unparsable
// dates do not matter here, every record counts.
func Totals(all []core.Transaction) core.Overview {
	var o core.Overview
	for _, t := range all {
		switch t.Type {
		case core.Income:
			o.TotalIncome = o.TotalIncome.Add(t.Amount)
		case core.Expense:
			o.TotalExpense = o.TotalExpense.Add(t.Amount)
		default:
			continue
		}
		o.Count++
	}
	o.Balance = o.TotalIncome.Sub(o.TotalExpense)
	if o.TotalExpense.Cents > 0 {
		o.IncomeExpenseRatio = float64(o.TotalIncome.Cents) / float64(o.TotalExpense.Cents)
	}
	o.SavingsRate = SavingsRate(o.TotalIncome, o.TotalExpense)
	return o
}

// FormatPercent renders a rate with one decimal, e.g. "80.0%".
func FormatPercent(rate float64) string {
	return strings.TrimSpace(fmt.Sprintf("%.1f%%", rate))
}
