// Package datetime holds the timestamp and timezone parsers the calendar core
// consumes at its boundary, plus wall-clock zone conversion.
package datetime

import (
	"fmt"
	"strings"
	"time"
	// Embedded zone database so zone ids resolve on hosts without tzdata.
	_ "time/tzdata"

	"calkeeper/internal/model"
)

// dateTimeLayouts are tried in order by ParseDateTime.
var dateTimeLayouts = []string{
	model.LayoutMinute,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime parses an ISO-8601 local date-time such as 2023-10-10T09:00.
// The result is naive (see model.Naive).
func ParseDateTime(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidDateTime, s)
}

// ParseDate parses a YYYY-MM-DD date into midnight of that day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(model.LayoutDate, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidDateTime, s)
	}
	return t, nil
}

// ParseDateOrDateTime accepts either form; a bare date means midnight.
func ParseDateOrDateTime(s string) (time.Time, error) {
	if t, err := ParseDateTime(s); err == nil {
		return t, nil
	}
	return ParseDate(s)
}

// ParseZone resolves an IANA zone id such as "America/Chicago".
func ParseZone(id string) (*time.Location, error) {
	v := strings.TrimSpace(id)
	// time.LoadLocation treats "" as UTC and "Local" as the host zone;
	// neither is a zone id a calendar can be created with.
	if v == "" || v == "Local" {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidTimezone, id)
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", model.ErrInvalidTimezone, id, err)
	}
	return loc, nil
}

// Convert reinterprets the naive wall clock t from zone `from` into the wall
// clock of the same instant in zone `to`. The zero time is returned unchanged.
func Convert(t time.Time, from, to *time.Location) time.Time {
	if t.IsZero() {
		return t
	}
	inFrom := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), from)
	return model.Naive(inFrom.In(to))
}

// FromInstant returns the naive wall clock of instant t as seen in loc.
func FromInstant(t time.Time, loc *time.Location) time.Time {
	return model.Naive(t.In(loc))
}

// Format renders a naive timestamp in the API form.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.LayoutMinute)
}
