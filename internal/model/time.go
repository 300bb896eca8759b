package model

import "time"

const (
	// LayoutMinute is the ISO-8601 local date-time form used across the API.
	LayoutMinute = "2006-01-02T15:04"
	// LayoutDate is the ISO-8601 date form.
	LayoutDate = "2006-01-02"
)

// Naive strips the location from t, keeping its wall clock, and returns the
// same wall clock expressed in time.UTC. The zero time stays zero.
func Naive(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// DateOf returns midnight of t's (wall clock) date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns 23:59 on t's date, the last slot of a day segment.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// OnOrAfter compares date first, then time of day.
//
// For naive timestamps this is equivalent to !t.Before(ref), but it is spelled
// out to mirror how series lookups are defined.
func OnOrAfter(t, ref time.Time) bool {
	td, rd := DateOf(t), DateOf(ref)
	if td.After(rd) {
		return true
	}
	if td.Before(rd) {
		return false
	}
	return t.Sub(td) >= ref.Sub(rd)
}
