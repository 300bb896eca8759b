package model

import (
	"fmt"
	"time"
)

// Kind distinguishes a standalone event from a member of a recurring series.
type Kind int

const (
	KindOneTime Kind = iota
	KindRecurring
)

func (k Kind) String() string {
	switch k {
	case KindOneTime:
		return "one-time"
	case KindRecurring:
		return "recurring"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Recurrence is the descriptor a recurring series was expanded from.
// Every member of a series carries a copy of it so the whole series can be
// re-expanded from any member.
type Recurrence struct {
	// Start / End of the first requested slot (the series anchor).
	Start time.Time
	End   time.Time

	// Until caps expansion by date; nil when the series is count-bound only.
	Until *time.Time

	Days Weekdays

	// Occurrences caps expansion by count; 0 means Until governs instead.
	Occurrences int
}

// Bounded reports whether at least one of the two caps is set.
func (r Recurrence) Bounded() bool {
	return r.Occurrences > 0 || r.Until != nil
}

// Clone returns a copy that shares no pointers with r.
func (r Recurrence) Clone() Recurrence {
	out := r
	if r.Until != nil {
		u := *r.Until
		out.Until = &u
	}
	return out
}

// Event is a single stored calendar entry.
//
// Start and End are naive wall-clock times relative to the owning calendar's
// timezone. They are always carried in time.UTC (see Naive) so that equal
// wall clocks compare equal with ==. A zero End means the event has no end.
type Event struct {
	Subject     string
	Description string
	Start       time.Time
	End         time.Time

	Kind Kind

	// Recurrence is set only for KindRecurring.
	Recurrence *Recurrence
}

// Key is the structural identity of an event.
type Key struct {
	Subject string
	Start   time.Time
	End     time.Time
}

// NewOneTime builds a validated one-time event.
func NewOneTime(subject, description string, start, end time.Time) (Event, error) {
	ev := Event{
		Subject:     subject,
		Description: description,
		Start:       Naive(start),
		End:         Naive(end),
		Kind:        KindOneTime,
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// NewRecurring builds a validated member of the series described by rec.
func NewRecurring(subject, description string, start, end time.Time, rec Recurrence) (Event, error) {
	r := rec.Clone()
	ev := Event{
		Subject:     subject,
		Description: description,
		Start:       Naive(start),
		End:         Naive(end),
		Kind:        KindRecurring,
		Recurrence:  &r,
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Validate checks the start/end invariant.
func (e Event) Validate() error {
	if e.Start.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidEventRange)
	}
	if e.HasEnd() && e.End.Before(e.Start) {
		return fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidEventRange, e.End.Format(LayoutMinute), e.Start.Format(LayoutMinute))
	}
	return nil
}

// HasEnd reports whether the event has an end time.
func (e Event) HasEnd() bool {
	return !e.End.IsZero()
}

// Key returns the (subject, start, end) identity used for exact lookups.
func (e Event) Key() Key {
	return Key{Subject: e.Subject, Start: e.Start, End: e.End}
}

// Date is the calendar date the event is filed under.
func (e Event) Date() time.Time {
	return DateOf(e.Start)
}

// Duration is End-Start, or zero for open-ended events.
func (e Event) Duration() time.Duration {
	if !e.HasEnd() {
		return 0
	}
	return e.End.Sub(e.Start)
}

// IsRecurring reports whether the event belongs to a series.
func (e Event) IsRecurring() bool {
	return e.Kind == KindRecurring && e.Recurrence != nil
}

func (e Event) String() string {
	end := "-"
	if e.HasEnd() {
		end = e.End.Format(LayoutMinute)
	}
	return fmt.Sprintf("%q %s..%s", e.Subject, e.Start.Format(LayoutMinute), end)
}
