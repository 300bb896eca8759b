package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"calkeeper/internal/datetime"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
)

// Manager owns calendars keyed by unique name, one of which may be active.
// It is not safe for concurrent use.
type Manager struct {
	calendars map[string]*Calendar
	active    string
	defaults  []Option
}

// NewManager returns an empty manager; defaults apply to every calendar it
// creates.
func NewManager(defaults ...Option) *Manager {
	return &Manager{
		calendars: make(map[string]*Calendar),
		defaults:  defaults,
	}
}

// CreateCalendar adds an empty calendar in the IANA zone tz.
func (m *Manager) CreateCalendar(name, tz string) (*Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", model.ErrInvalidCalendarName)
	}
	if _, ok := m.calendars[name]; ok {
		return nil, fmt.Errorf("%w: %q", model.ErrDuplicateCalendarName, name)
	}
	loc, err := datetime.ParseZone(tz)
	if err != nil {
		return nil, err
	}
	cal := New(name, loc, m.defaults...)
	m.calendars[name] = cal
	appLog.Info("calendar created", "calendar", name, "timezone", loc.String())
	return cal, nil
}

// UseCalendar makes name the active calendar.
func (m *Manager) UseCalendar(name string) error {
	if _, err := m.Calendar(name); err != nil {
		return err
	}
	m.active = name
	appLog.Info("calendar in use", "calendar", name)
	return nil
}

// Active returns the active calendar.
func (m *Manager) Active() (*Calendar, error) {
	if m.active == "" {
		return nil, model.ErrNoActiveCalendar
	}
	return m.Calendar(m.active)
}

// ActiveName returns the active calendar's name, or "" when none is active.
func (m *Manager) ActiveName() string {
	return m.active
}

// Calendar looks a calendar up by name.
func (m *Manager) Calendar(name string) (*Calendar, error) {
	cal, ok := m.calendars[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrCalendarNotFound, name)
	}
	return cal, nil
}

// Names returns the calendar names, sorted.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.calendars))
	for name := range m.calendars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// EditCalendarProperty renames a calendar ("name") or moves it to another
// zone ("timezone"), converting the wall clock of every stored event.
func (m *Manager) EditCalendarProperty(name, property, value string) error {
	cal, err := m.Calendar(name)
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(property)) {
	case "name":
		newName := strings.TrimSpace(value)
		if newName == "" {
			return fmt.Errorf("%w: empty name", model.ErrInvalidCalendarName)
		}
		if newName == name {
			return nil
		}
		if _, ok := m.calendars[newName]; ok {
			return fmt.Errorf("%w: %q", model.ErrDuplicateCalendarName, newName)
		}
		delete(m.calendars, name)
		m.calendars[newName] = cal
		cal.rename(newName)
		if m.active == name {
			m.active = newName
		}
		appLog.Info("calendar renamed", "from", name, "to", newName)
	case "timezone":
		loc, err := datetime.ParseZone(value)
		if err != nil {
			return err
		}
		cal.SetLocation(loc)
		appLog.Info("calendar timezone changed", "calendar", name, "timezone", loc.String())
	default:
		return fmt.Errorf("%w: calendar property %q", model.ErrUnsupportedProperty, property)
	}
	return nil
}

// CopyEvent copies the first event named subject that starts at start (or
// later that day) from the active calendar into target, starting at
// targetStart in the target calendar's wall clock and keeping its duration.
// The copy is a one-time event and is subject to the target's auto-decline.
func (m *Manager) CopyEvent(subject string, start time.Time, target string, targetStart time.Time) ([]model.Event, error) {
	src, err := m.Active()
	if err != nil {
		return nil, err
	}
	dst, err := m.Calendar(target)
	if err != nil {
		return nil, err
	}

	found := src.Search(&subject, start, model.EndOfDay(start))
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %q at %s", model.ErrEventNotFound, subject, datetime.Format(model.Naive(start)))
	}

	ev := found[0]
	targetStart = model.Naive(targetStart)
	var targetEnd time.Time
	if ev.HasEnd() {
		targetEnd = targetStart.Add(ev.Duration())
	}
	added, err := dst.AddEvent(ev.Subject, ev.Description, targetStart, targetEnd)
	if err != nil {
		return nil, fmt.Errorf("copy %q to %q: %w", subject, target, err)
	}
	appLog.Info("event copied", "subject", subject, "from", src.Name(), "to", target)
	return added, nil
}

// CopyEvents copies every event of the active calendar found by Search(nil,
// start, end) into target. Offsets from midnight of start's date are kept
// relative to targetStart, which is read in the active calendar's zone and
// converted to the target's. Events are added one by one; if any add fails,
// every event added by this call is removed again and the error is returned.
func (m *Manager) CopyEvents(start, end time.Time, target string, targetStart time.Time) ([]model.Event, error) {
	src, err := m.Active()
	if err != nil {
		return nil, err
	}
	dst, err := m.Calendar(target)
	if err != nil {
		return nil, err
	}

	found := src.Search(nil, start, end)
	origin := model.DateOf(start)
	base := datetime.Convert(model.Naive(targetStart), src.Location(), dst.Location())

	tx := begin(dst.store)
	for _, ev := range found {
		newStart := base.Add(ev.Start.Sub(origin))
		var newEnd time.Time
		if ev.HasEnd() {
			newEnd = base.Add(ev.End.Sub(origin))
		}
		evs, err := dst.AddEvent(ev.Subject, ev.Description, newStart, newEnd)
		if err != nil {
			copied := len(tx.added)
			tx.rollback()
			var conflictErr *model.ConflictError
			if errors.As(err, &conflictErr) {
				appLog.Warn("copy rolled back on conflict", "to", target, "event", ev, "copied", copied)
			}
			return nil, fmt.Errorf("copy events to %q: %w", target, err)
		}
		tx.track(evs)
	}
	appLog.Info("events copied", "from", src.Name(), "to", target, "events", len(found), "added", len(tx.added))
	return tx.added, nil
}
