package session

import "time"

// The global weekend runs from Friday 21:00 UTC to Sunday 21:00 UTC
const (
	weekendStartHourUTC = 21
	weekendEndHourUTC   = 21
)

// IsGlobalWeekend reports whether t falls in the global market weekend closure.
// Only the UTC weekday and hour are considered.
func IsGlobalWeekend(t time.Time) bool {
	utcTime := t.UTC()

	switch utcTime.Weekday() {
	case time.Friday:
		return utcTime.Hour() >= weekendStartHourUTC
	case time.Saturday:
		return true
	case time.Sunday:
		return utcTime.Hour() < weekendEndHourUTC
	default:
		return false
	}
}
