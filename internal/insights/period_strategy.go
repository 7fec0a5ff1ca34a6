// Package insights holds the pure filtering, aggregation and axis scaling
// logic behind the transaction list and the insights screen.
//
// Every function takes "now" explicitly; nothing here reads the wall clock.
package insights

import (
	"fmt"
	"strings"
	"time"

	"expensetracker/internal/core"
)

// RelativePeriod is a rolling window anchored to the current moment.
type RelativePeriod string

const (
	PeriodNone       RelativePeriod = ""
	PeriodThisWeek   RelativePeriod = "This Week"
	PeriodThisMonth  RelativePeriod = "This Month"
	PeriodLast7Days  RelativePeriod = "Last 7 Days"
	PeriodLast30Days RelativePeriod = "Last 30 Days"
)

// RelativePeriods lists the selectable periods in display order.
var RelativePeriods = []RelativePeriod{PeriodThisWeek, PeriodThisMonth, PeriodLast7Days, PeriodLast30Days}

// ParseRelativePeriod accepts display labels ("Last 7 Days") and slugs
// ("last-7-days", "last_7_days"). Empty and "none" map to PeriodNone.
func ParseRelativePeriod(s string) (RelativePeriod, error) {
	norm := normalizeLabel(s)
	if norm == "" || norm == "none" {
		return PeriodNone, nil
	}
	for _, p := range RelativePeriods {
		if normalizeLabel(string(p)) == norm {
			return p, nil
		}
	}
	return PeriodNone, fmt.Errorf("unknown period: %q", s)
}

// Slug returns the URL form of the period, e.g. "last-7-days".
func (p RelativePeriod) Slug() string {
	return normalizeLabel(string(p))
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return s
}

// PeriodMatcher decides whether a record date falls inside a relative
// period, given today's calendar date.
type PeriodMatcher interface {
	Matches(date, today core.Date) bool
}

// ThisWeekMatcher matches dates in the same ISO week as today.
type ThisWeekMatcher struct{}

func (ThisWeekMatcher) Matches(date, today core.Date) bool {
	y1, w1 := date.ISOWeek()
	y2, w2 := today.ISOWeek()
	return y1 == y2 && w1 == w2
}

// ThisMonthMatcher matches dates in today's month and year.
type ThisMonthMatcher struct{}

func (ThisMonthMatcher) Matches(date, today core.Date) bool {
	return date.Year() == today.Year() && date.Month() == today.Month()
}

// LastDaysMatcher matches the last Days calendar days, today included,
// so the day exactly Days days ago is out. Future dates match too; the
// window has no upper bound.
type LastDaysMatcher struct {
	Days int
}

func (m LastDaysMatcher) Matches(date, today core.Date) bool {
	return !date.Before(today.AddDays(1 - m.Days).Time)
}

// periodMatchers maps periods to their matchers.
var periodMatchers = map[RelativePeriod]PeriodMatcher{
	PeriodThisWeek:   ThisWeekMatcher{},
	PeriodThisMonth:  ThisMonthMatcher{},
	PeriodLast7Days:  LastDaysMatcher{Days: 7},
	PeriodLast30Days: LastDaysMatcher{Days: 30},
}

// GetPeriodMatcher returns the matcher for p.
func GetPeriodMatcher(p RelativePeriod) (PeriodMatcher, error) {
	m, ok := periodMatchers[p]
	if !ok {
		return nil, fmt.Errorf("unknown period: %q", p)
	}
	return m, nil
}

// RegisterPeriodMatcher adds or replaces the matcher for p.
// It must be called before any concurrent filtering starts.
func RegisterPeriodMatcher(p RelativePeriod, m PeriodMatcher) {
	periodMatchers[p] = m
}

// today returns the calendar day of now in now's location.
func today(now time.Time) core.Date {
	return core.DateOf(now)
}
