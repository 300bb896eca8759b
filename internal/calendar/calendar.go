// Package calendar implements named calendars over the event store: adding
// one-time and recurring events with conflict checks, editing them by
// remove-and-recreate, and managing several calendars with one active.
package calendar

import (
	"time"

	"calkeeper/internal/conflict"
	"calkeeper/internal/datetime"
	"calkeeper/internal/expand"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
	"calkeeper/internal/store"
)

// Calendar owns one event store and the timezone its naive timestamps are
// relative to. It is not safe for concurrent use.
type Calendar struct {
	name        string
	loc         *time.Location
	autoDecline bool
	expandOpts  expand.Options

	store    *store.Store
	detector *conflict.Detector
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithAutoDecline makes single-event adds fail on conflict instead of
// coexisting with the clashing events.
func WithAutoDecline(v bool) Option {
	return func(c *Calendar) { c.autoDecline = v }
}

// WithMaxOccurrences caps how many members one series may expand to.
func WithMaxOccurrences(n int) Option {
	return func(c *Calendar) { c.expandOpts.MaxOccurrences = n }
}

// New returns an empty calendar.
func New(name string, loc *time.Location, opts ...Option) *Calendar {
	s := store.New()
	c := &Calendar{
		name:     name,
		loc:      loc,
		store:    s,
		detector: conflict.NewDetector(s),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Calendar) Name() string { return c.name }

func (c *Calendar) Location() *time.Location { return c.loc }

func (c *Calendar) AutoDecline() bool { return c.autoDecline }

func (c *Calendar) SetAutoDecline(v bool) { c.autoDecline = v }

// Len returns the number of stored events (day segments count separately).
func (c *Calendar) Len() int { return c.store.Len() }

// AddEvent stores a one-time event, split into day segments when start and
// end fall on different dates. When auto-decline is on and any segment
// overlaps a stored event, nothing is stored and a *model.ConflictError is
// returned. It returns the segments that were newly stored.
func (c *Calendar) AddEvent(subject, description string, start, end time.Time) ([]model.Event, error) {
	segments, err := expand.Split(subject, description, start, end)
	if err != nil {
		return nil, err
	}
	if c.autoDecline {
		if err := c.checkConflicts(segments); err != nil {
			return nil, err
		}
	}
	added := c.insertAll(segments)
	appLog.Debug("calendar: add event",
		"calendar", c.name,
		"subject", subject,
		"start", datetime.Format(model.Naive(start)),
		"segments", len(segments),
		"added", len(added),
	)
	return added, nil
}

// AddRecurringEvents expands rec and stores every member. The series is
// always conflict-checked: if any member overlaps a stored event, nothing is
// stored.
func (c *Calendar) AddRecurringEvents(subject, description string, rec model.Recurrence) ([]model.Event, error) {
	res, err := expand.Recurrence(subject, description, rec, c.expandOpts)
	if err != nil {
		return nil, err
	}
	if err := c.checkConflicts(res.Events); err != nil {
		return nil, err
	}
	added := c.insertAll(res.Events)
	appLog.Debug("calendar: add series",
		"calendar", c.name,
		"subject", subject,
		"days", rec.Days,
		"members", len(res.Events),
		"truncated", res.Truncated,
	)
	return added, nil
}

func (c *Calendar) checkConflicts(candidates []model.Event) error {
	for _, ev := range candidates {
		if existing := c.detector.Conflicts(ev); len(existing) > 0 {
			return &model.ConflictError{Candidate: ev, Existing: existing}
		}
	}
	return nil
}

func (c *Calendar) insertAll(evs []model.Event) []model.Event {
	added := make([]model.Event, 0, len(evs))
	for _, ev := range evs {
		if c.store.Insert(ev) {
			added = append(added, ev)
		}
	}
	return added
}

// Search returns events starting on or after start and ending on or before
// end, filtered by subject when it is non-nil. A zero end means 23:59 of
// start's date.
func (c *Calendar) Search(subject *string, start, end time.Time) []model.Event {
	if end.IsZero() {
		end = model.EndOfDay(start)
	}
	return c.store.SearchRange(subject, start, end)
}

// EventsOn returns the events filed under date, in insertion order.
func (c *Calendar) EventsOn(date time.Time) []model.Event {
	return c.store.OnDate(date)
}

// All returns every event, dates ascending.
func (c *Calendar) All() []model.Event {
	return c.store.ListAll()
}

// Find returns the event with exactly this identity.
func (c *Calendar) Find(subject string, start, end time.Time) (model.Event, bool) {
	return c.store.FindExact(subject, start, end)
}

// Has reports whether every day segment of the event (subject, start, end)
// is stored.
func (c *Calendar) Has(subject string, start, end time.Time) bool {
	found, err := c.locateSegments(subject, start, end)
	if err != nil || len(found) == 0 {
		return false
	}
	start, end = model.Naive(start), model.Naive(end)
	if end.IsZero() || model.SameDate(start, end) {
		return true
	}
	segments, err := expand.Split(subject, "", start, end)
	return err == nil && len(found) == len(segments)
}

// Dates returns the dates holding at least one event, ascending.
func (c *Calendar) Dates() []time.Time {
	return c.store.Dates()
}

// Series returns the events named subject, from the given point on when from
// is set.
func (c *Calendar) Series(subject string, from *time.Time) []model.Event {
	return c.store.FindSeries(subject, from)
}

// Remove deletes ev by identity; it reports whether anything was removed.
func (c *Calendar) Remove(ev model.Event) bool {
	ok := c.store.Remove(ev)
	if ok {
		appLog.Debug("calendar: remove event", "calendar", c.name, "event", ev)
	}
	return ok
}

// IsBusy reports whether an event covers the wall-clock instant t.
func (c *Calendar) IsBusy(t time.Time) bool {
	return c.store.IsBusy(t)
}

// SetLocation moves the calendar to loc, converting every stored wall clock
// from the old zone to the new one. Events are re-inserted without conflict
// checks. An event whose converted span crosses midnight is split into day
// segments; otherwise series members keep their (converted) series data.
func (c *Calendar) SetLocation(loc *time.Location) {
	from := c.loc
	entries := c.store.Entries()
	c.store.Clear()

	for _, e := range entries {
		ev := e.Event
		start := datetime.Convert(ev.Start, from, loc)
		end := datetime.Convert(ev.End, from, loc)

		if ev.HasEnd() && !model.SameDate(start, end) {
			segments, err := expand.Split(ev.Subject, ev.Description, start, end)
			if err != nil {
				appLog.Error("calendar: convert event", err, "calendar", c.name, "event", ev)
				continue
			}
			if added := c.insertAll(segments); len(added) < len(segments) {
				appLog.Warn("calendar: converted segments collide with stored ones, dropped",
					"calendar", c.name,
					"event", ev,
					"dropped", len(segments)-len(added),
				)
			}
			continue
		}

		converted := ev
		converted.Start, converted.End = start, end
		if ev.Recurrence != nil {
			rec := ev.Recurrence.Clone()
			rec.Start = datetime.Convert(rec.Start, from, loc)
			rec.End = datetime.Convert(rec.End, from, loc)
			if rec.Until != nil {
				u := datetime.Convert(*rec.Until, from, loc)
				rec.Until = &u
			}
			converted.Recurrence = &rec
		}
		if !c.store.Insert(converted) {
			appLog.Warn("calendar: converted event collides with a stored one, dropped",
				"calendar", c.name,
				"event", converted,
			)
		}
	}
	c.loc = loc
	appLog.Debug("calendar: timezone changed",
		"calendar", c.name,
		"from", from.String(),
		"to", loc.String(),
		"events", c.store.Len(),
	)
}

func (c *Calendar) rename(name string) {
	c.name = name
}
