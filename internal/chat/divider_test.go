package chat

import (
	"testing"
	"time"
)

func TestFormatDateLabel(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, loc)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"same day", time.Date(2026, 3, 15, 9, 0, 0, 0, loc), "Today"},
		{"just after midnight", time.Date(2026, 3, 15, 0, 0, 1, 0, loc), "Today"},
		{"yesterday", time.Date(2026, 3, 14, 23, 59, 59, 0, loc), "Yesterday"},
		{"two days ago", time.Date(2026, 3, 13, 23, 59, 59, 0, loc), "Mar 13, 2026"},
		{"last year", time.Date(2025, 12, 31, 12, 0, 0, 0, loc), "Dec 31, 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDateLabel(tt.t, now, loc); got != tt.want {
				t.Errorf("FormatDateLabel(%v) = %q, want %q", tt.t, got, tt.want)
			}
		})
	}
}

func TestFormatDateLabelUsesCalendarDaysNotElapsedTime(t *testing.T) {
	loc := time.UTC
	// One minute apart across midnight: different divider buckets.
	now := time.Date(2026, 3, 15, 0, 0, 30, 0, loc)
	lateYesterday := time.Date(2026, 3, 14, 23, 59, 30, 0, loc)

	if got := FormatDateLabel(lateYesterday, now, loc); got != "Yesterday" {
		t.Errorf("expected Yesterday across midnight, got %q", got)
	}
}

func TestDateKeyBucketsByDay(t *testing.T) {
	loc := time.UTC
	morning := time.Date(2026, 3, 15, 0, 0, 1, 0, loc)
	evening := time.Date(2026, 3, 15, 23, 59, 59, 0, loc)
	nextDay := time.Date(2026, 3, 16, 0, 0, 0, 0, loc)

	if DateKey(morning, loc) != DateKey(evening, loc) {
		t.Error("expected same key within one day")
	}
	if DateKey(evening, loc) == DateKey(nextDay, loc) {
		t.Error("expected different keys across days")
	}
}

func TestDateKeyRespectsLocation(t *testing.T) {
	east := time.FixedZone("east", 10*3600)
	// 23:00 UTC is already the next day at UTC+10.
	ts := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)

	if DateKey(ts, time.UTC) == DateKey(ts, east) {
		t.Error("expected different day buckets across zones")
	}
}
