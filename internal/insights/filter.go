package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// TypeFilter selects records by transaction type.
type TypeFilter string

const (
	TypeAll     TypeFilter = "All"
	TypeIncome  TypeFilter = "Income"
	TypeExpense TypeFilter = "Expense"
)

// ParseTypeFilter is case-insensitive; empty means TypeAll.
func ParseTypeFilter(s string) (TypeFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return TypeAll, nil
	case "income":
		return TypeIncome, nil
	case "expense":
		return TypeExpense, nil
	}
	return TypeAll, fmt.Errorf("unknown type filter: %q", s)
}

// Filter is the user's current selection on the transaction list.
// All set rules must hold for a record to match.
type Filter struct {
	Type   TypeFilter
	Date   *core.Date
	Period RelativePeriod
}

// FilterTransactions returns the records of all that match f, in input
// order. Records whose date cannot be parsed pass the date and period
// rules; use MalformedDates to report them.
func FilterTransactions(all []core.Transaction, f Filter, now time.Time) []core.Transaction {
	var matcher PeriodMatcher
	if f.Period != PeriodNone {
		// Unknown periods apply no restriction.
		matcher, _ = GetPeriodMatcher(f.Period)
	}
	day := today(now)

	out := make([]core.Transaction, 0, len(all))
	for _, t := range all {
		if !matchesType(t, f.Type) {
			continue
		}
		d, ok := t.ParsedDate()
		if ok {
			if f.Date != nil && !sameDay(d, *f.Date) {
				continue
			}
			if matcher != nil && !matcher.Matches(d, day) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func matchesType(t core.Transaction, f TypeFilter) bool {
	switch f {
	case TypeIncome:
		return t.Type == core.Income
	case TypeExpense:
		return t.Type == core.Expense
	default:
		return true
	}
}

func sameDay(a, b core.Date) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// MalformedDates returns the IDs of records whose date does not parse.
func MalformedDates(all []core.Transaction) []string {
	var ids []string
	for _, t := range all {
		if _, ok := t.ParsedDate(); !ok {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// SortByDateDesc sorts in place, newest first. Unparsable dates go last;
// ties are ordered by ID so the result is stable across loads.
func SortByDateDesc(ts []core.Transaction) {
	sort.SliceStable(ts, func(i, j int) bool {
		di, oki := ts[i].ParsedDate()
		dj, okj := ts[j].ParsedDate()
		switch {
		case oki && !okj:
			return true
		case !oki && okj:
			return false
		case oki && okj && !di.Equal(dj.Time):
			return di.After(dj.Time)
		}
		return ts[i].ID < ts[j].ID
	})
}
