// Package dateutil provides calendar arithmetic over YYYY-MM-DD day strings.
// Days are timezone-naive: a day string names a UTC calendar day with no
// time-of-day component.
package dateutil

import "time"

// DayFormat is the canonical day representation.
const DayFormat = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DayFormat, s)
}

// FormatDay renders a time as its UTC calendar day.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// Today returns the calendar day of the supplied clock reading.
func Today(now time.Time) string {
	return FormatDay(now)
}

// WeekStart returns the Monday on or before t, per the ISO-8601 week
// definition.
func WeekStart(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	// time.Weekday is Sunday-based; ISO weeks start Monday.
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// WeekDays returns the 7 consecutive calendar days starting at weekStart.
func WeekDays(weekStart time.Time) []string {
	days := make([]string, 7)
	for i := range days {
		days[i] = FormatDay(weekStart.AddDate(0, 0, i))
	}
	return days
}

// MonthDays returns every calendar day of the given month, ascending.
func MonthDays(year, month int) []string {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	var days []string
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		days = append(days, FormatDay(d))
	}
	return days
}

// IsToday reports whether day names the same calendar day as now.
func IsToday(day string, now time.Time) bool {
	return day == Today(now)
}

// dayLabels is Sunday-first, matching the weekly board layout.
var dayLabels = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// DayLabel returns the weekday label for a day string. Malformed input is a
// caller error and yields an empty label.
func DayLabel(day string) string {
	t, err := ParseDay(day)
	if err != nil {
		return ""
	}
	return dayLabels[int(t.Weekday())]
}

// DisplayLabel renders a day string as M/D for compact display.
func DisplayLabel(day string) string {
	t, err := ParseDay(day)
	if err != nil {
		return ""
	}
	return t.Format("1/2")
}
