package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"calkeeper/internal/datetime"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// Occurrence is one concrete instance of an imported event, in the naive
// wall clock of the importing calendar.
type Occurrence struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// ExpandConfig controls how imported recurrences are expanded.
type ExpandConfig struct {
	// Location is the importing calendar's zone. Zoned and UTC times are
	// converted into it; floating and all-day times keep their wall clock.
	Location *time.Location

	// RangeStart / RangeEnd bound occurrence starts, inclusive, as naive
	// wall clocks in Location.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps one RRULE's expansion. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult holds the expanded occurrences, ordered by UID group.
type ExpandResult struct {
	Occurrences []Occurrence
	// TruncatedEvents lists UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed VEVENTs into occurrences within the
// configured range. RRULEs are expanded with EXDATEs removed, and
// RECURRENCE-ID overrides replace the instance they name.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if !cfg.RangeEnd.IsZero() && cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Keep first-seen UID order so imports are deterministic.
	var uids []string
	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride() {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	for _, uid := range uids {
		truncated := false
		for _, ev := range bases[uid] {
			occ, hitCap := expandEvent(ev, overrides[uid], cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		occ := makeOccurrence(pick(ev, overrides, ev.Start), ev.Start, cfg.Location)
		if inRange(occ.Start, cfg) {
			return []Occurrence{occ}, false
		}
		return nil, false
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	var out []Occurrence
	next := set.Iterator()
	for {
		instance, ok := next()
		if !ok {
			break
		}
		occ := makeOccurrence(pick(ev, overrides, instance), instance, cfg.Location)
		if !inRange(occ.Start, cfg) {
			if !cfg.RangeEnd.IsZero() && occ.Start.After(cfg.RangeEnd) {
				break
			}
			continue
		}
		if len(out) >= cfg.MaxOccurrencesPerEvent {
			return out, true
		}
		out = append(out, occ)
	}
	return out, false
}

// pick returns the override for the instance starting at instance, or base.
// The override carries its own start and end; base instances are re-timed
// by makeOccurrence.
func pick(base ParsedEvent, overrides []ParsedEvent, instance time.Time) ParsedEvent {
	for _, ov := range overrides {
		if ov.RecurrenceID != nil && ov.RecurrenceID.Equal(instance) {
			return ov
		}
	}
	return base
}

// makeOccurrence builds the occurrence of ev starting at instance. When ev is
// an override its own times win.
func makeOccurrence(ev ParsedEvent, instance time.Time, loc *time.Location) Occurrence {
	start, end := instance, time.Time{}
	if ev.IsOverride() {
		start = ev.Start
	}
	if !ev.End.IsZero() {
		end = start.Add(ev.End.Sub(ev.Start))
	}
	if ev.IsOverride() {
		end = ev.End
	}

	occ := Occurrence{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		AllDay:      ev.AllDay,
	}
	switch {
	case ev.AllDay:
		// [date 00:00, date 23:59] in the calendar's own days.
		occ.Start = model.DateOf(start)
		last := occ.Start
		if !end.IsZero() && model.DateOf(end).After(occ.Start) {
			last = model.DateOf(end).AddDate(0, 0, -1)
		}
		occ.End = model.EndOfDay(last)
	case ev.Floating:
		occ.Start, occ.End = model.Naive(start), model.Naive(end)
	default:
		occ.Start = datetime.FromInstant(start, loc)
		if !end.IsZero() {
			occ.End = datetime.FromInstant(end, loc)
		}
	}
	return occ
}

func inRange(t time.Time, cfg ExpandConfig) bool {
	if !cfg.RangeStart.IsZero() && t.Before(cfg.RangeStart) {
		return false
	}
	if !cfg.RangeEnd.IsZero() && t.After(cfg.RangeEnd) {
		return false
	}
	return true
}
