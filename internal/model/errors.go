package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidEventRange     = errors.New("invalid event range")
	ErrConflict              = errors.New("event conflicts with an existing event")
	ErrInvalidRecurrenceDay  = errors.New("invalid recurrence day")
	ErrUnboundedRecurrence   = errors.New("recurrence needs an occurrence count or an end date")
	ErrInvalidOccurrences    = errors.New("invalid occurrence count")
	ErrUnsupportedProperty   = errors.New("unsupported property")
	ErrCalendarNotFound      = errors.New("calendar not found")
	ErrDuplicateCalendarName = errors.New("calendar name already exists")
	ErrInvalidCalendarName   = errors.New("invalid calendar name")
	ErrNoActiveCalendar      = errors.New("no active calendar selected")
	ErrInvalidTimezone       = errors.New("invalid timezone")
	ErrInvalidDateTime       = errors.New("invalid date/time")
	ErrEventNotFound         = errors.New("event not found")
)

// ConflictError is returned when a candidate overlaps stored events.
// errors.Is(err, ErrConflict) holds for it.
type ConflictError struct {
	Candidate Event
	Existing  []Event
}

func (e *ConflictError) Error() string {
	if len(e.Existing) == 0 {
		return fmt.Sprintf("%s: %s", ErrConflict, e.Candidate)
	}
	names := make([]string, 0, len(e.Existing))
	for _, ev := range e.Existing {
		names = append(names, ev.String())
	}
	return fmt.Sprintf("%s: %s overlaps %s", ErrConflict, e.Candidate, strings.Join(names, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
