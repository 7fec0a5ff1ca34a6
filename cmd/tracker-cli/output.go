package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/k0kubun/pp/v3"
	"github.com/olekukonko/tablewriter"

	"expensetracker/internal/core"
	"expensetracker/internal/insights"
	"expensetracker/internal/services"
)

// printer renders results as tables, or as pretty-printed structs when raw.
type printer struct {
	w   io.Writer
	raw bool
}

func (p printer) dump(v any) bool {
	if !p.raw {
		return false
	}
	pretty := pp.New()
	pretty.SetOutput(p.w)
	pretty.SetColoringEnabled(false)
	pretty.Println(v)
	return true
}

func (p printer) table(header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(p.w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	return t
}

func (p printer) transactions(ts []core.Transaction) {
	if p.dump(ts) {
		return
	}
	t := p.table([]string{"Date", "Type", "Category", "Title", "Amount", "ID"})
	t.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
	})
	for _, tx := range ts {
		t.Append([]string{tx.Date, string(tx.Type), tx.Category, tx.Title, tx.Amount.String(), tx.ID})
	}
	t.SetFooter([]string{"", "", "", "Count", strconv.Itoa(len(ts)), ""})
	t.Render()
}

func (p printer) summary(o core.Overview) {
	if p.dump(o) {
		return
	}
	t := p.table([]string{"Metric", "Value"})
	t.AppendBulk([][]string{
		{"Total income", o.TotalIncome.String()},
		{"Total expense", o.TotalExpense.String()},
		{"Balance", o.Balance.String()},
		{"Income / expense", fmt.Sprintf("%.2f", o.IncomeExpenseRatio)},
		{"Savings rate", insights.FormatPercent(o.SavingsRate)},
		{"Transactions", strconv.Itoa(o.Count)},
	})
	t.Render()
}

func (p printer) insights(v services.InsightView) {
	if p.dump(v) {
		return
	}
	d := v.Data
	t := p.table([]string{d.Period, ""})
	rows := [][]string{
		{"Spent", d.TotalSpent.String()},
		{"Income", d.TotalIncome.String()},
		{"Savings rate", insights.FormatPercent(d.SavingsRate)},
		{"Verdict", v.Verdict},
		{v.Comparison.Status, v.Comparison.Difference.String()},
	}
	if d.TopCategory != "" {
		rows = append(rows, []string{"Top category", d.TopCategory + " (" + d.TopCategoryAmount.String() + ")"})
	}
	t.AppendBulk(rows)
	t.Render()

	if len(v.Shares) == 0 {
		fmt.Fprintln(p.w, "No expenses in this period.")
		return
	}
	c := p.table([]string{"Category", "Amount", "Share"})
	for _, s := range v.Shares {
		c.Append([]string{s.Name, s.Amount.String(), insights.FormatPercent(s.Percent)})
	}
	c.Render()
}

func (p printer) ticks(top float64, ticks []float64) {
	if p.dump(ticks) {
		return
	}
	t := p.table([]string{"#", "Tick"})
	for i, v := range ticks {
		t.Append([]string{strconv.Itoa(i), strconv.FormatFloat(v, 'f', -1, 64)})
	}
	t.SetCaption(true, fmt.Sprintf("max %s", strconv.FormatFloat(top, 'f', -1, 64)))
	t.Render()
}
