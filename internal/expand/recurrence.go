// Package expand materializes concrete events: recurring series into their
// member instances, and multi-day spans into per-day segments.
package expand

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
)

const (
	defaultMaxOccurrences = 5000
)

// Options controls recurrence expansion.
type Options struct {
	// MaxOccurrences is a safety cap for series bounded only by a far-away
	// end date. If zero, defaultMaxOccurrences is used.
	MaxOccurrences int
}

// Result holds the expanded members of one series.
type Result struct {
	Events []model.Event
	// Truncated is true when MaxOccurrences stopped the expansion early.
	Truncated bool
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Recurrence expands rec into its ordered member events.
//
// Members fall on the days of rec.Days, starting at rec.Start's date and
// stepping forward one day at a time; rec.Start itself is a member only when
// its weekday is in the set. Each member keeps rec's start-to-end duration.
// Expansion stops after rec.Occurrences members (when > 0) or once a member
// would start after rec.Until (when set), whichever comes first.
func Recurrence(subject, description string, rec model.Recurrence, opts Options) (Result, error) {
	var result Result

	rec = rec.Clone()
	rec.Start = model.Naive(rec.Start)
	rec.End = model.Naive(rec.End)
	if rec.Until != nil {
		u := model.Naive(*rec.Until)
		rec.Until = &u
	}

	if rec.Start.IsZero() {
		return result, fmt.Errorf("%w: series start is required", model.ErrInvalidEventRange)
	}
	if !rec.End.IsZero() && rec.End.Before(rec.Start) {
		return result, fmt.Errorf("%w: series end is before its start", model.ErrInvalidEventRange)
	}
	if rec.Occurrences < 0 {
		return result, fmt.Errorf("%w: %d", model.ErrInvalidOccurrences, rec.Occurrences)
	}
	if !rec.Bounded() {
		return result, model.ErrUnboundedRecurrence
	}
	if rec.Days.Empty() {
		return result, nil
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}

	// A WEEKLY rule with BYDAY visits exactly the days a day-by-day walk
	// from DTSTART would keep, and never yields anything before DTSTART.
	ropt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   rec.Start,
		Byweekday: toRRuleWeekdays(rec.Days),
		Count:     rec.Occurrences,
	}
	if rec.Until != nil {
		ropt.Until = *rec.Until
	}

	r, err := rrule.NewRRule(ropt)
	if err != nil {
		return result, fmt.Errorf("expand: build rule for %q: %w", subject, err)
	}

	dur := time.Duration(0)
	if !rec.End.IsZero() {
		dur = rec.End.Sub(rec.Start)
	}

	next := r.Iterator()
	for {
		occStart, ok := next()
		if !ok {
			break
		}
		if len(result.Events) >= opts.MaxOccurrences {
			result.Truncated = true
			break
		}

		var occEnd time.Time
		if !rec.End.IsZero() {
			occEnd = occStart.Add(dur)
		}
		ev, err := model.NewRecurring(subject, description, occStart, occEnd, rec)
		if err != nil {
			return Result{}, err
		}
		result.Events = append(result.Events, ev)
	}

	if result.Truncated {
		appLog.Error("expand: truncated series due to cap",
			errors.New("max occurrences reached"),
			"subject", subject,
			"cap", opts.MaxOccurrences,
		)
	}

	return result, nil
}

func toRRuleWeekdays(days model.Weekdays) []rrule.Weekday {
	out := make([]rrule.Weekday, 0, 7)
	for _, d := range days.Days() {
		out = append(out, rruleWeekdays[d])
	}
	return out
}

// RRule renders rec as an RFC 5545 RRULE value (without the "RRULE:" prefix),
// for exporters that want to describe a series instead of listing members.
func RRule(rec model.Recurrence) string {
	ropt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: toRRuleWeekdays(rec.Days),
		Count:     rec.Occurrences,
	}
	if rec.Until != nil {
		ropt.Until = model.Naive(*rec.Until)
	}
	return ropt.RRuleString()
}
