package service

import (
	"strings"
	"time"
)

// Recurrence values accepted on loans and reminders. Anything else is
// treated as non-recurring.
const (
	RecurNone    = "none"
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
	RecurYearly  = "yearly"
)

// NormalizeRecurrence lowercases and maps unknown or empty values to "none".
func NormalizeRecurrence(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case RecurDaily:
		return RecurDaily
	case RecurWeekly:
		return RecurWeekly
	case RecurMonthly:
		return RecurMonthly
	case RecurYearly:
		return RecurYearly
	default:
		return RecurNone
	}
}

// Recurs reports whether the value describes a repeating schedule.
func Recurs(recurrence string) bool {
	return NormalizeRecurrence(recurrence) != RecurNone
}

// Advance computes the next occurrence after d for the given recurrence.
// The second return is false for "none", empty, or unrecognized values,
// signaling a non-recurring record that must not be advanced.
//
// Monthly and yearly steps use calendar arithmetic; a day-of-month that does
// not exist in the target month overflows into the following month (Jan 31
// monthly advances to Mar 2 or Mar 3), matching time.AddDate.
func Advance(d time.Time, recurrence string) (time.Time, bool) {
	switch NormalizeRecurrence(recurrence) {
	case RecurDaily:
		return d.AddDate(0, 0, 1), true
	case RecurWeekly:
		return d.AddDate(0, 0, 7), true
	case RecurMonthly:
		return d.AddDate(0, 1, 0), true
	case RecurYearly:
		return d.AddDate(1, 0, 0), true
	default:
		return time.Time{}, false
	}
}
