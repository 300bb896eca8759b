package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calkeeper/internal/model"
)

func at(d, hh, mm int) time.Time {
	return time.Date(2023, 10, d, hh, mm, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func newCal(t *testing.T, opts ...Option) *Calendar {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return New("test", loc, opts...)
}

func standup(t *testing.T, c *Calendar, occurrences int) []model.Event {
	t.Helper()
	added, err := c.AddRecurringEvents("Standup", "", model.Recurrence{
		Start:       at(10, 9, 0),
		End:         at(10, 9, 30),
		Days:        model.MustParseWeekdays("MWF"),
		Occurrences: occurrences,
	})
	require.NoError(t, err)
	return added
}

func dates(evs []model.Event) []int {
	out := make([]int, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Start.Day())
	}
	return out
}

func TestAddEventAndSearch(t *testing.T) {
	c := newCal(t)
	_, err := c.AddEvent("Meeting", "", at(10, 9, 0), at(10, 10, 0))
	require.NoError(t, err)

	got := c.Search(ptr("Meeting"), at(10, 0, 0), at(10, 23, 59))
	require.Len(t, got, 1)
	assert.Equal(t, "Meeting", got[0].Subject)
	assert.Equal(t, "", got[0].Description)
	assert.Equal(t, at(10, 9, 0), got[0].Start)
	assert.Equal(t, at(10, 10, 0), got[0].End)

	// Zero end searches the rest of the start date.
	assert.Len(t, c.Search(nil, at(10, 8, 0), time.Time{}), 1)
}

func TestAddEventSplitsMultiDay(t *testing.T) {
	c := newCal(t)
	added, err := c.AddEvent("Conference", "", at(10, 9, 0), at(12, 17, 0))
	require.NoError(t, err)
	require.Len(t, added, 3)
	assert.Equal(t, 3, c.Len())

	for day := 10; day <= 12; day++ {
		assert.Len(t, c.EventsOn(at(day, 0, 0)), 1, "day %d", day)
	}
	mid := c.EventsOn(at(11, 0, 0))[0]
	assert.Equal(t, at(11, 0, 0), mid.Start)
	assert.Equal(t, at(11, 23, 59), mid.End)
}

func TestAddEventInvalidRange(t *testing.T) {
	c := newCal(t)
	_, err := c.AddEvent("Backwards", "", at(12, 9, 0), at(10, 9, 0))
	assert.ErrorIs(t, err, model.ErrInvalidEventRange)
	assert.Equal(t, 0, c.Len())
}

func TestAddRecurringEvents(t *testing.T) {
	c := newCal(t)
	added := standup(t, c, 5)
	assert.Equal(t, []int{11, 13, 16, 18, 20}, dates(added))
	assert.Equal(t, []int{11, 13, 16, 18, 20}, dates(c.All()))
	assert.True(t, c.All()[0].IsRecurring())
}

func TestAutoDecline(t *testing.T) {
	c := newCal(t, WithAutoDecline(true))
	_, err := c.AddEvent("Meeting", "", at(10, 9, 0), at(10, 10, 0))
	require.NoError(t, err)

	_, err = c.AddEvent("Conflict", "", at(10, 9, 30), at(10, 10, 30))
	require.ErrorIs(t, err, model.ErrConflict)
	var ce *model.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Meeting", ce.Existing[0].Subject)

	all := c.All()
	require.Len(t, all, 1)
	assert.Equal(t, "Meeting", all[0].Subject)

	// Touching intervals do not conflict.
	_, err = c.AddEvent("Next", "", at(10, 10, 0), at(10, 11, 0))
	assert.NoError(t, err)
}

func TestConflictsAcceptedWithoutAutoDecline(t *testing.T) {
	c := newCal(t)
	_, err := c.AddEvent("Meeting", "", at(10, 9, 0), at(10, 10, 0))
	require.NoError(t, err)
	_, err = c.AddEvent("Conflict", "", at(10, 9, 30), at(10, 10, 30))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestRecurringAlwaysConflictChecked(t *testing.T) {
	c := newCal(t)
	_, err := c.AddEvent("Dentist", "", at(16, 9, 15), at(16, 9, 45))
	require.NoError(t, err)

	_, err = c.AddRecurringEvents("Standup", "", model.Recurrence{
		Start:       at(10, 9, 0),
		End:         at(10, 9, 30),
		Days:        model.MustParseWeekdays("MWF"),
		Occurrences: 5,
	})
	require.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, 1, c.Len(), "a rejected series stores nothing")
}

func TestIdenticalSeriesIsConflict(t *testing.T) {
	c := newCal(t)
	standup(t, c, 5)

	_, err := c.AddRecurringEvents("Standup", "", model.Recurrence{
		Start:       at(10, 9, 0),
		End:         at(10, 9, 30),
		Days:        model.MustParseWeekdays("MWF"),
		Occurrences: 5,
	})
	require.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, 5, c.Len())
}

func TestSeriesOverIdenticalOneTimeIsConflict(t *testing.T) {
	c := newCal(t)
	_, err := c.AddEvent("Standup", "", at(11, 9, 0), at(11, 9, 30))
	require.NoError(t, err)

	_, err = c.AddRecurringEvents("Standup", "", model.Recurrence{
		Start:       at(10, 9, 0),
		End:         at(10, 9, 30),
		Days:        model.MustParseWeekdays("MWF"),
		Occurrences: 5,
	})
	require.ErrorIs(t, err, model.ErrConflict)
	require.Equal(t, 1, c.Len(), "a rejected series stores nothing")
	assert.False(t, c.All()[0].IsRecurring())
}

func TestAutoDeclineIdenticalEvent(t *testing.T) {
	c := newCal(t, WithAutoDecline(true))
	_, err := c.AddEvent("Meeting", "", at(10, 9, 0), at(10, 10, 0))
	require.NoError(t, err)

	_, err = c.AddEvent("Meeting", "", at(10, 9, 0), at(10, 10, 0))
	require.ErrorIs(t, err, model.ErrConflict)
	var ce *model.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, at(10, 9, 0), ce.Existing[0].Start)
	assert.Equal(t, 1, c.Len())
}

func TestHas(t *testing.T) {
	c := newCal(t)
	_, err := c.AddEvent("Conference", "", at(10, 9, 0), at(12, 17, 0))
	require.NoError(t, err)
	_, err = c.AddEvent("Reminder", "", at(13, 8, 0), time.Time{})
	require.NoError(t, err)

	assert.True(t, c.Has("Conference", at(10, 9, 0), at(12, 17, 0)))
	assert.True(t, c.Has("Reminder", at(13, 8, 0), time.Time{}))
	assert.False(t, c.Has("Conference", at(10, 9, 0), at(13, 17, 0)), "a missing segment")
	assert.False(t, c.Has("Conference", at(12, 9, 0), at(10, 17, 0)))

	assert.True(t, c.Remove(c.EventsOn(at(11, 0, 0))[0]))
	assert.False(t, c.Has("Conference", at(10, 9, 0), at(12, 17, 0)))

	assert.Equal(t, []time.Time{at(10, 0, 0), at(12, 0, 0), at(13, 0, 0)}, c.Dates())
}

func TestIsBusy(t *testing.T) {
	c := newCal(t)
	_, err := c.AddEvent("Meeting", "", at(10, 9, 0), at(10, 10, 0))
	require.NoError(t, err)
	assert.True(t, c.IsBusy(at(10, 9, 0)))
	assert.False(t, c.IsBusy(at(10, 10, 0)))
}

func TestRemove(t *testing.T) {
	c := newCal(t)
	added, err := c.AddEvent("Meeting", "", at(10, 9, 0), at(10, 10, 0))
	require.NoError(t, err)
	assert.True(t, c.Remove(added[0]))
	assert.False(t, c.Remove(added[0]))
	assert.Equal(t, 0, c.Len())
}

func TestSetLocation(t *testing.T) {
	chicago, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	c := New("travel", chicago, WithAutoDecline(true))
	_, err = c.AddEvent("Dinner", "", at(10, 18, 0), at(10, 19, 0))
	require.NoError(t, err)
	_, err = c.AddEvent("Call", "", at(10, 16, 0), at(10, 18, 0))
	require.NoError(t, err)
	standup(t, c, 2)

	c.SetLocation(paris)
	assert.Equal(t, paris, c.Location())

	dinner := c.Search(ptr("Dinner"), at(11, 0, 0), at(11, 23, 59))
	require.Len(t, dinner, 1)
	assert.Equal(t, at(11, 1, 0), dinner[0].Start)
	assert.Equal(t, at(11, 2, 0), dinner[0].End)

	// 16:00-18:00 in Chicago is 23:00-01:00 in Paris: two day segments.
	call := c.Series("Call", nil)
	require.Len(t, call, 2)
	assert.Equal(t, at(10, 23, 0), call[0].Start)
	assert.Equal(t, at(11, 1, 0), call[1].End)

	members := c.Series("Standup", nil)
	require.Len(t, members, 2)
	require.True(t, members[0].IsRecurring())
	assert.Equal(t, at(11, 16, 0), members[0].Start)
	assert.Equal(t, at(10, 16, 0), members[0].Recurrence.Start)
	assert.True(t, c.AutoDecline(), "auto-decline setting survives the conversion")
}

func TestSetLocationReportsCollisions(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	nov := func(hh, mm int) time.Time { return time.Date(2023, 11, 5, hh, mm, 0, 0, time.UTC) }

	// 05:30 and 06:30 UTC are both 01:30 in New York on the fall-back date.
	c := New("utc", time.UTC)
	_, err = c.AddEvent("Ping", "", nov(5, 30), nov(5, 45))
	require.NoError(t, err)
	_, err = c.AddEvent("Ping", "", nov(6, 30), nov(6, 45))
	require.NoError(t, err)

	c.SetLocation(newYork)
	all := c.All()
	require.Len(t, all, 1)
	assert.Equal(t, nov(1, 30), all[0].Start)
	assert.Equal(t, nov(1, 45), all[0].End)
}
