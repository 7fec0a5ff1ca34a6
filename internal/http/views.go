package http

import (
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/insights"
	"expensetracker/internal/services"
)

// JSON shapes of the API. Amounts are sent both as decimal strings and
// as integer cents.

type transactionJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Title:       t.Title,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Type:        string(t.Type),
		Category:    t.Category,
		Date:        t.Date,
	}
}

type transactionListJSON struct {
	Transactions []transactionJSON `json:"transactions"`
	Count        int               `json:"count"`
}

type summaryJSON struct {
	TotalIncome        string  `json:"total_income"`
	TotalExpense       string  `json:"total_expense"`
	Balance            string  `json:"balance"`
	IncomeExpenseRatio float64 `json:"income_expense_ratio"`
	SavingsRate        float64 `json:"savings_rate"`
	Count              int     `json:"count"`
}

func toSummaryJSON(o core.Overview) summaryJSON {
	return summaryJSON{
		TotalIncome:        o.TotalIncome.String(),
		TotalExpense:       o.TotalExpense.String(),
		Balance:            o.Balance.String(),
		IncomeExpenseRatio: o.IncomeExpenseRatio,
		SavingsRate:        o.SavingsRate,
		Count:              o.Count,
	}
}

type categoryAmountJSON struct {
	Name    string  `json:"name"`
	Amount  string  `json:"amount"`
	Percent float64 `json:"percent"`
}

type insightsJSON struct {
	Period            string               `json:"period"`
	GeneratedAt       string               `json:"generated_at"`
	TotalSpent        string               `json:"total_spent"`
	TotalIncome       string               `json:"total_income"`
	Balance           string               `json:"balance"`
	SavingsRate       float64              `json:"savings_rate"`
	SavingsRateLabel  string               `json:"savings_rate_label"`
	Verdict           string               `json:"verdict"`
	Difference        string               `json:"difference"`
	Saved             bool                 `json:"saved"`
	Status            string               `json:"status"`
	TopCategory       string               `json:"top_category,omitempty"`
	TopCategoryAmount string               `json:"top_category_amount,omitempty"`
	Categories        []categoryAmountJSON `json:"categories"`
	Expenses          []float64            `json:"expenses"`
	Income            []float64            `json:"income"`
	Ticks             []float64            `json:"ticks"`
	ChartMax          float64              `json:"chart_max"`
	Seq               uint64               `json:"seq"`
}

func toInsightsJSON(v services.InsightView) insightsJSON {
	d := v.Data
	expenses, income := insights.Series(d)
	out := insightsJSON{
		Period:           d.Period,
		GeneratedAt:      d.GeneratedAt.Format(time.RFC3339),
		TotalSpent:       d.TotalSpent.String(),
		TotalIncome:      d.TotalIncome.String(),
		Balance:          d.Balance().String(),
		SavingsRate:      d.SavingsRate,
		SavingsRateLabel: insights.FormatPercent(d.SavingsRate),
		Verdict:          v.Verdict,
		Difference:       v.Comparison.Difference.String(),
		Saved:            v.Comparison.Saved,
		Status:           v.Comparison.Status,
		TopCategory:      d.TopCategory,
		Categories:       make([]categoryAmountJSON, 0, len(v.Shares)),
		Expenses:         expenses,
		Income:           income,
		Ticks:            v.Ticks,
		ChartMax:         v.ChartMax,
		Seq:              v.Seq,
	}
	if d.TopCategory != "" {
		out.TopCategoryAmount = d.TopCategoryAmount.String()
	}
	for _, sh := range v.Shares {
		out.Categories = append(out.Categories, categoryAmountJSON{
			Name:    sh.Name,
			Amount:  sh.Amount.String(),
			Percent: sh.Percent,
		})
	}
	return out
}

type axisJSON struct {
	Max   float64   `json:"max"`
	Ticks []float64 `json:"ticks"`
}

type categoriesJSON struct {
	Type     string   `json:"type"`
	Labels   []string `json:"labels"`
	Selected string   `json:"selected"`
}

func toCategoriesJSON(t core.TransactionType, st services.CategoryState) categoriesJSON {
	return categoriesJSON{Type: string(t), Labels: st.Labels, Selected: st.Selected}
}
