package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
	ports "expensetracker/internal/sheets"
)

// Column layout of the transactions sheet: Date, Type, Category, Title,
// Amount, ID.
const (
	colDate = iota
	colType
	colCategory
	colTitle
	colAmount
	colID
	transactionCols
)

// idColumn is the A1 letter of colID.
const idColumn = "F"

func transactionRow(t core.Transaction) []any {
	row := make([]any, transactionCols)
	row[colDate] = t.Date
	row[colType] = string(t.Type)
	row[colCategory] = t.Category
	row[colTitle] = t.Title
	row[colAmount] = t.Amount.Units()
	row[colID] = t.ID
	return row
}

func digestRow(d ports.Digest) []any {
	return []any{
		d.GeneratedAt.UTC().Format(time.RFC3339),
		d.UserID,
		d.Data.Period,
		d.Data.TotalIncome.Units(),
		d.Data.TotalSpent.Units(),
		strconv.FormatFloat(d.Data.SavingsRate, 'f', 1, 64),
		d.Data.TopCategory,
	}
}

// parseTransactionRow is the inverse of transactionRow. Amounts may come
// back formatted by the sheet, with a decimal comma.
func parseTransactionRow(row []any) (core.Transaction, error) {
	cols := toStrings(row)
	if len(cols) < transactionCols {
		return core.Transaction{}, fmt.Errorf("short row: %d columns", len(cols))
	}
	typ, err := core.ParseTransactionType(cols[colType])
	if err != nil {
		return core.Transaction{}, err
	}
	cents, ok := parseUnitsToCents(cols[colAmount])
	if !ok {
		return core.Transaction{}, fmt.Errorf("invalid amount %q", cols[colAmount])
	}
	return core.Transaction{
		ID:       cols[colID],
		Title:    cols[colTitle],
		Amount:   core.Money{Cents: cents},
		Type:     typ,
		Category: cols[colCategory],
		Date:     cols[colDate],
	}, nil
}

// findRow returns the 1-based row whose first column equals id, or 0.
// values is the result of reading the ID column alone.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1
		}
	}
	return 0
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func parseUnitsToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// Normalize decimal comma
	s = strings.ReplaceAll(s, ",", ".")
	if cents, err := core.ParseDecimalToCents(s); err == nil {
		return cents, true
	}
	// Zero and exponent forms
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}
