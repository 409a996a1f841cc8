// Package analytics computes derived statistics over the full record set.
// All functions are pure: they take the records and a query window and never
// touch remote state. Callers are responsible for supplying well-formed
// YYYY-MM-DD dates; records with unparseable dates simply never match a
// window.
package analytics

import (
	"sort"
	"time"

	"example.com/fitlog/internal/dateutil"
	"example.com/fitlog/internal/domain"
)

// Weekly aggregates records over the 7-day window starting at weekStart.
// A day with several records counts once toward CompletedDays, while
// TotalMinutes sums every record.
func Weekly(records []domain.Record, weekStart time.Time) domain.WeeklyStats {
	window := daySet(dateutil.WeekDays(weekStart))

	days := make(map[string]struct{})
	minutes := 0
	for _, rec := range records {
		if _, ok := window[rec.Date]; !ok {
			continue
		}
		days[rec.Date] = struct{}{}
		minutes += rec.Minutes
	}

	return domain.WeeklyStats{
		WeekStart:     dateutil.FormatDay(weekStart),
		CompletedDays: len(days),
		TotalMinutes:  minutes,
		Goal:          domain.WeeklyGoal,
	}
}

// Monthly aggregates records over a full calendar month with the same
// distinct-day and sum-all-records semantics as Weekly.
func Monthly(records []domain.Record, year, month int) domain.MonthlyStats {
	monthDays := dateutil.MonthDays(year, month)
	window := daySet(monthDays)

	days := make(map[string]struct{})
	minutes := 0
	for _, rec := range records {
		if _, ok := window[rec.Date]; !ok {
			continue
		}
		days[rec.Date] = struct{}{}
		minutes += rec.Minutes
	}

	return domain.MonthlyStats{
		Year:          year,
		Month:         month,
		CompletedDays: len(days),
		TotalMinutes:  minutes,
		TotalDays:     len(monthDays),
	}
}

// Streak computes the current and longest consecutive-day runs. One canonical
// today is used for the whole computation, so a call cannot straddle a
// day boundary.
func Streak(records []domain.Record, today time.Time) domain.StreakInfo {
	todayStr := dateutil.Today(today)
	info := domain.StreakInfo{LastUpdated: todayStr}

	present := make(map[string]struct{})
	for _, rec := range records {
		present[rec.Date] = struct{}{}
	}
	if len(present) == 0 {
		return info
	}

	// Current run: walk backward from today while each day has a record.
	// A day without a record breaks the run; yesterday alone never counts.
	if _, ok := present[todayStr]; ok {
		cursor, _ := dateutil.ParseDay(todayStr)
		for {
			if _, ok := present[dateutil.FormatDay(cursor)]; !ok {
				break
			}
			info.Current++
			cursor = cursor.AddDate(0, 0, -1)
		}
	}

	// Longest historical run over the distinct dates, newest first. Adjacent
	// entries exactly one calendar day apart extend the run; any other gap
	// resets it.
	dates := make([]string, 0, len(present))
	for d := range present {
		if _, err := dateutil.ParseDay(d); err == nil {
			dates = append(dates, d)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	longest := 0
	run := 0
	var prev time.Time
	for i, d := range dates {
		cur, _ := dateutil.ParseDay(d)
		if i > 0 && prev.AddDate(0, 0, -1).Equal(cur) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = cur
	}

	// The in-progress run may be the longest ever.
	if info.Current > longest {
		longest = info.Current
	}
	info.Longest = longest
	return info
}

// ForDate returns the records logged against one calendar day.
func ForDate(records []domain.Record, day string) []domain.Record {
	var out []domain.Record
	for _, rec := range records {
		if rec.Date == day {
			out = append(out, rec)
		}
	}
	return out
}

// ForWeek returns the records falling in the 7-day window at weekStart.
func ForWeek(records []domain.Record, weekStart time.Time) []domain.Record {
	window := daySet(dateutil.WeekDays(weekStart))
	var out []domain.Record
	for _, rec := range records {
		if _, ok := window[rec.Date]; ok {
			out = append(out, rec)
		}
	}
	return out
}

func daySet(days []string) map[string]struct{} {
	set := make(map[string]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}
