package chat

import "time"

// DateKey buckets a timestamp by calendar day in the given location. Two
// messages share a divider exactly when their keys are equal.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// FormatDateLabel renders a divider label relative to now: "Today",
// "Yesterday", or the absolute date.
func FormatDateLabel(t, now time.Time, loc *time.Location) string {
	day := t.In(loc)
	today := now.In(loc)

	switch DateKey(day, loc) {
	case DateKey(today, loc):
		return "Today"
	case DateKey(today.AddDate(0, 0, -1), loc):
		return "Yesterday"
	}
	return day.Format("Jan 2, 2006")
}
