// Package ics moves events between calendars and the outside world:
// iCalendar import (including remote subscriptions), iCalendar export and
// Google-style CSV export.
package ics

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calkeeper/internal/log"
)

// ParsedEvent is one VEVENT as read from an iCalendar payload, before
// recurrence expansion.
type ParsedEvent struct {
	Source Source

	UID string
	Seq int

	Summary     string
	Description string

	Start time.Time
	End   time.Time
	// AllDay is set for VALUE=DATE starts.
	AllDay bool
	// Floating is set when DTSTART carries neither TZID nor a UTC suffix;
	// its wall clock is taken as is.
	Floating bool

	RawRRule string
	ExDates  []time.Time
	// RecurrenceID is set on a VEVENT that overrides one instance of the
	// series with the same UID.
	RecurrenceID *time.Time
}

// IsOverride reports whether the event replaces one instance of a series.
func (p ParsedEvent) IsOverride() bool {
	return p.RecurrenceID != nil
}

// ParseICS parses an iCalendar payload. VEVENTs that cannot be read are
// logged and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateValue(dtStart.Value, dtStart.ICalParameters)
	out.Floating = !out.AllDay && !hasTZID(dtStart.ICalParameters) && !strings.HasSuffix(dtStart.Value, "Z")

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
	} else {
		out.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, err
	}

	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
		if isDateValue(dtEnd.Value, dtEnd.ICalParameters) {
			out.End, err = ve.GetAllDayEndAt()
		} else {
			out.End, err = ve.GetEndAt()
		}
		if err != nil {
			return out, err
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := out.Start.Location()
		if tz := tzidOf(p.ICalParameters); tz != "" {
			if l, err := time.LoadLocation(tz); err == nil {
				loc = l
			}
		}
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		loc := out.Start.Location()
		if tz := tzidOf(p.ICalParameters); tz != "" {
			if l, err := time.LoadLocation(tz); err == nil {
				loc = l
			}
		}
		if t, err := parseICSTime(p.Value, loc); err == nil {
			out.RecurrenceID = &t
		}
	}

	return out, nil
}

func isDateValue(value string, params map[string][]string) bool {
	if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(value, "T")
}

func hasTZID(params map[string][]string) bool {
	return tzidOf(params) != ""
}

func tzidOf(params map[string][]string) string {
	if tzs, ok := params["TZID"]; ok && len(tzs) > 0 {
		return tzs[0]
	}
	return ""
}

// parseICSTime parses a DATE or DATE-TIME value. Values without a UTC
// suffix are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
