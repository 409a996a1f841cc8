package domain

// WeeklyGoal is the fixed target of completed days per week.
const WeeklyGoal = 5

// ViewWindow selects the aggregation granularity the presentation layer shows.
type ViewWindow string

const (
	ViewWeekly  ViewWindow = "weekly"
	ViewMonthly ViewWindow = "monthly"
)

// Valid reports whether the view window is one of the two defined values.
func (v ViewWindow) Valid() bool {
	return v == ViewWeekly || v == ViewMonthly
}

// WeeklyStats aggregates records over one ISO week.
type WeeklyStats struct {
	WeekStart     string `json:"week_start"` // Monday, YYYY-MM-DD
	CompletedDays int    `json:"completed_days"`
	TotalMinutes  int    `json:"total_minutes"`
	Goal          int    `json:"goal"`
}

// MonthlyStats aggregates records over one calendar month.
type MonthlyStats struct {
	Year          int `json:"year"`
	Month         int `json:"month"`
	CompletedDays int `json:"completed_days"`
	TotalMinutes  int `json:"total_minutes"`
	TotalDays     int `json:"total_days"`
}

// StreakInfo reports consecutive-day runs over the record history.
type StreakInfo struct {
	Current     int    `json:"current"`
	Longest     int    `json:"longest"`
	LastUpdated string `json:"last_updated"` // YYYY-MM-DD
}

// Snapshot is the slice of store state that survives a restart. The displayed
// calendar date is deliberately absent: every new session opens on today.
type Snapshot struct {
	Records    []Record       `json:"records"`
	Types      []ExerciseType `json:"types"`
	ViewWindow ViewWindow     `json:"view_window"`
}
