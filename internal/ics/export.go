package ics

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"calkeeper/internal/expand"
	"calkeeper/internal/model"
)

const (
	productName = "calkeeper"
	icalLocal   = "20060102T150405"
)

// propSeriesRule describes the series a recurring member was expanded from.
// Members are exported individually, so it is informational only.
const propSeriesRule ical.ComponentProperty = "X-CALKEEPER-SERIES-RULE"

// uidNamespace scopes the name-based UIDs of exported events.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://calkeeper.invalid/events"))

// EventUID returns the stable UID of an event: a name-based UUID over its
// identity, so repeated exports of the same event agree.
func EventUID(ev model.Event) string {
	name := ev.Subject + "\x00" + ev.Start.Format(icalLocal) + "\x00" + ev.End.Format(icalLocal)
	return uuid.NewSHA1(uidNamespace, []byte(name)).String()
}

// Export writes events as a VCALENDAR with one VEVENT per stored event.
// Times are written as local times with the calendar's TZID.
func Export(w io.Writer, name string, loc *time.Location, events []model.Event) error {
	cal := ical.NewCalendarFor(productName)
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(loc.String())

	stamp := time.Now()
	for _, ev := range events {
		ve := cal.AddEvent(EventUID(ev))
		ve.SetDtStampTime(stamp)
		ve.SetSummary(ev.Subject)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		ve.SetProperty(ical.ComponentPropertyDtStart, ev.Start.Format(icalLocal), ical.WithTZID(loc.String()))
		if ev.HasEnd() {
			ve.SetProperty(ical.ComponentPropertyDtEnd, ev.End.Format(icalLocal), ical.WithTZID(loc.String()))
		}
		if ev.IsRecurring() {
			ve.SetProperty(propSeriesRule, expand.RRule(*ev.Recurrence))
		}
	}
	return cal.SerializeTo(w)
}
