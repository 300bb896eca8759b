package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"calkeeper/internal/datetime"
	"calkeeper/internal/expand"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
)

// Outcome says what an edit did to the store.
type Outcome int

const (
	// OutcomeEdited: the old events were replaced by the edited ones.
	OutcomeEdited Outcome = iota
	// OutcomeNotFound: nothing matched; the store is unchanged.
	OutcomeNotFound
	// OutcomeRolledBack: the edited events could not be stored (Cause says
	// why) and the originals were put back.
	OutcomeRolledBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEdited:
		return "edited"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// EditResult reports the effect of an edit. A rollback is not an error
// return; the rejected change is described by Cause.
type EditResult struct {
	Outcome Outcome
	Removed []model.Event
	Added   []model.Event
	Cause   error
}

// EditSingle changes one property of the event identified by (subject,
// start, end). When start and end fall on different dates the event is taken
// to be a split multi-day event and every day segment is located.
//
// The located events are removed and the edited event is added again
// (re-splitting and, with auto-decline on, re-checking conflicts). If the add
// fails the originals are restored and OutcomeRolledBack is returned.
func (c *Calendar) EditSingle(subject string, start, end time.Time, prop model.Property, value string) (EditResult, error) {
	if !prop.SingleEditable() {
		return EditResult{}, fmt.Errorf("%w: %q on a single event", model.ErrUnsupportedProperty, prop)
	}

	found, err := c.locateSegments(subject, start, end)
	if err != nil {
		return EditResult{}, err
	}
	if len(found) == 0 {
		return EditResult{Outcome: OutcomeNotFound}, nil
	}

	newSubject, newDesc := subject, found[0].Description
	newStart, newEnd := model.Naive(start), model.Naive(end)
	switch prop {
	case model.PropName:
		newSubject = value
	case model.PropDescription:
		newDesc = value
	case model.PropStartTime:
		if newStart, err = datetime.ParseDateTime(value); err != nil {
			return EditResult{}, err
		}
	case model.PropEndTime:
		if newEnd, err = datetime.ParseDateTime(value); err != nil {
			return EditResult{}, err
		}
	}

	tx := begin(c.store)
	tx.take(found)
	added, err := c.AddEvent(newSubject, newDesc, newStart, newEnd)
	if err != nil {
		removed := tx.removed()
		tx.rollback()
		appLog.Warn("calendar: edit rolled back",
			"calendar", c.name,
			"subject", subject,
			"property", string(prop),
			"cause", err,
		)
		return EditResult{Outcome: OutcomeRolledBack, Removed: removed, Cause: err}, nil
	}
	return EditResult{Outcome: OutcomeEdited, Removed: tx.removed(), Added: added}, nil
}

// locateSegments finds the stored segments of the event (subject, start, end).
func (c *Calendar) locateSegments(subject string, start, end time.Time) ([]model.Event, error) {
	start, end = model.Naive(start), model.Naive(end)
	if !end.IsZero() && model.DateOf(start).After(model.DateOf(end)) {
		return nil, fmt.Errorf("%w: start date is after end date", model.ErrInvalidEventRange)
	}
	if end.IsZero() || model.SameDate(start, end) {
		if ev, ok := c.store.FindExact(subject, start, end); ok {
			return []model.Event{ev}, nil
		}
		return nil, nil
	}

	segments, err := expand.Split(subject, "", start, end)
	if err != nil {
		return nil, err
	}
	var found []model.Event
	for _, seg := range segments {
		if ev, ok := c.store.FindExact(seg.Subject, seg.Start, seg.End); ok {
			found = append(found, ev)
		}
	}
	return found, nil
}

// EditRecurring changes one property of the series named subject: every
// member, or with from set, the members starting on or after from.
//
// The series is rebuilt from the first matched member's descriptor, with
// that member's start and end as the anchor, and re-expanded under the
// usual unconditional conflict check. On failure the removed members are
// restored exactly and OutcomeRolledBack is returned.
func (c *Calendar) EditRecurring(subject string, from *time.Time, prop model.Property, value string) (EditResult, error) {
	if !prop.SeriesEditable() {
		return EditResult{}, fmt.Errorf("%w: %q on a series", model.ErrUnsupportedProperty, prop)
	}

	var found []model.Event
	for _, ev := range c.store.FindSeries(subject, from) {
		if ev.IsRecurring() {
			found = append(found, ev)
		}
	}
	if len(found) == 0 {
		return EditResult{Outcome: OutcomeNotFound}, nil
	}

	first := found[0]
	rec := first.Recurrence.Clone()
	rec.Start, rec.End = first.Start, first.End
	newSubject, newDesc := first.Subject, first.Description

	if err := applySeriesProperty(&rec, &newSubject, &newDesc, prop, value); err != nil {
		return EditResult{}, err
	}

	tx := begin(c.store)
	tx.take(found)
	added, err := c.AddRecurringEvents(newSubject, newDesc, rec)
	if err != nil {
		removed := tx.removed()
		tx.rollback()
		appLog.Warn("calendar: series edit rolled back",
			"calendar", c.name,
			"subject", subject,
			"property", string(prop),
			"cause", err,
		)
		return EditResult{Outcome: OutcomeRolledBack, Removed: removed, Cause: err}, nil
	}
	return EditResult{Outcome: OutcomeEdited, Removed: tx.removed(), Added: added}, nil
}

func applySeriesProperty(rec *model.Recurrence, subject, desc *string, prop model.Property, value string) error {
	switch prop {
	case model.PropName:
		*subject = value
	case model.PropDescription:
		*desc = value
	case model.PropStartTime:
		t, err := datetime.ParseDateTime(value)
		if err != nil {
			return err
		}
		rec.Start = t
	case model.PropEndTime:
		t, err := datetime.ParseDateTime(value)
		if err != nil {
			return err
		}
		rec.End = t
	case model.PropEndRecurring:
		t, err := datetime.ParseDateOrDateTime(value)
		if err != nil {
			return err
		}
		rec.Until = &t
	case model.PropRecurringDays:
		days, err := model.ParseWeekdays(strings.TrimSpace(value))
		if err != nil {
			return err
		}
		rec.Days = days
	case model.PropOccurrences:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %q", model.ErrInvalidOccurrences, value)
		}
		if n < 0 {
			return fmt.Errorf("%w: %d", model.ErrInvalidOccurrences, n)
		}
		rec.Occurrences = n
	}
	return nil
}
