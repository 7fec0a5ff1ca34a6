package core

import "time"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// InsightData is the aggregate shown on the insights screen for one period.
type InsightData struct {
	Period            string
	GeneratedAt       time.Time
	TotalSpent        Money
	TotalIncome       Money
	CategoryBreakdown []CategoryAmount // expense only, first-seen order
	WeeklyExpenses    []float64        // 7 buckets, oldest first
	MonthlyExpenses   []float64        // 30 buckets, oldest first
	WeeklyIncome      []float64
	MonthlyIncome     []float64
	SavingsRate       float64 // percent, may be negative
	TopCategory       string
	TopCategoryAmount Money
}

// Balance is income minus spending for the period.
func (d InsightData) Balance() Money {
	return d.TotalIncome.Sub(d.TotalSpent)
}

// Overview holds all-time totals for a user.
type Overview struct {
	TotalIncome  Money
	TotalExpense Money
	Balance      Money
	// IncomeExpenseRatio is income/expense, 0 when there is no expense.
	IncomeExpenseRatio float64
	SavingsRate        float64
	Count              int
}
