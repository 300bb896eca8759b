package store

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

func oneTime(t *testing.T, subject string, start, end time.Time) model.Event {
	t.Helper()
	ev, err := model.NewOneTime(subject, "", start, end)
	require.NoError(t, err)
	return ev
}

func subjects(evs []model.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Subject)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestInsertIsIdempotent(t *testing.T) {
	s := New()
	ev := oneTime(t, "Meeting", at(10, 9, 0), at(10, 10, 0))

	assert.True(t, s.Insert(ev))
	assert.False(t, s.Insert(ev))
	assert.Equal(t, 1, s.Len())

	got, ok := s.FindExact("Meeting", at(10, 9, 0), at(10, 10, 0))
	require.True(t, ok)
	assert.Equal(t, ev, got)

	_, ok = s.FindExact("Meeting", at(10, 9, 0), at(10, 11, 0))
	assert.False(t, ok)
}

func TestOrdering(t *testing.T) {
	s := New()
	s.Insert(oneTime(t, "late-day", at(12, 8, 0), at(12, 9, 0)))
	s.Insert(oneTime(t, "second", at(10, 7, 0), at(10, 8, 0)))
	s.Insert(oneTime(t, "first-inserted", at(10, 15, 0), at(10, 16, 0)))
	s.Insert(oneTime(t, "middle", at(11, 9, 0), at(11, 10, 0)))

	// Dates ascend, insertion order within a date.
	assert.Equal(t, []string{"second", "first-inserted", "middle", "late-day"}, subjects(s.ListAll()))
	assert.Equal(t, []time.Time{at(10, 0, 0), at(11, 0, 0), at(12, 0, 0)}, s.Dates())
	assert.Equal(t, []string{"second", "first-inserted"}, subjects(s.OnDate(at(10, 23, 0))))
	assert.Empty(t, s.OnDate(at(13, 0, 0)))
}

func TestRemoveAndRestore(t *testing.T) {
	s := New()
	a := oneTime(t, "a", at(10, 9, 0), at(10, 10, 0))
	b := oneTime(t, "b", at(10, 11, 0), at(10, 12, 0))
	c := oneTime(t, "c", at(10, 13, 0), at(10, 14, 0))
	s.Insert(a)
	s.Insert(b)
	s.Insert(c)

	entry, ok := s.Take(b.Key())
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, subjects(s.ListAll()))

	assert.True(t, s.Restore(entry))
	assert.Equal(t, []string{"a", "b", "c"}, subjects(s.ListAll()), "restore keeps the original position")
	assert.False(t, s.Restore(entry))

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a))
	assert.True(t, s.Remove(b))
	assert.True(t, s.Remove(c))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Dates(), "empty buckets are dropped")
}

func TestFindSeries(t *testing.T) {
	s := New()
	s.Insert(oneTime(t, "Standup", at(11, 9, 0), at(11, 9, 30)))
	s.Insert(oneTime(t, "Standup", at(13, 9, 0), at(13, 9, 30)))
	s.Insert(oneTime(t, "Other", at(13, 10, 0), at(13, 11, 0)))
	s.Insert(oneTime(t, "Standup", at(16, 9, 0), at(16, 9, 30)))

	assert.Len(t, s.FindSeries("Standup", nil), 3)

	got := s.FindSeries("Standup", ptr(at(13, 9, 0)))
	require.Len(t, got, 2)
	assert.Equal(t, at(13, 9, 0), got[0].Start)
	assert.Equal(t, at(16, 9, 0), got[1].Start)

	got = s.FindSeries("Standup", ptr(at(13, 9, 1)))
	require.Len(t, got, 1)
	assert.Equal(t, at(16, 9, 0), got[0].Start)

	assert.Empty(t, s.FindSeries("Missing", nil))
}

func TestSearchRange(t *testing.T) {
	s := New()
	s.Insert(oneTime(t, "Meeting", at(10, 9, 0), at(10, 10, 0)))
	s.Insert(oneTime(t, "Lunch", at(10, 12, 0), at(10, 13, 0)))
	s.Insert(oneTime(t, "Late", at(10, 23, 0), at(10, 23, 59)))
	s.Insert(oneTime(t, "Reminder", at(11, 8, 0), time.Time{}))
	s.Insert(oneTime(t, "Meeting", at(12, 9, 0), at(12, 10, 0)))

	got := s.SearchRange(ptr("Meeting"), at(10, 0, 0), at(10, 23, 59))
	require.Len(t, got, 1)
	assert.Equal(t, at(10, 9, 0), got[0].Start)
	assert.Equal(t, at(10, 10, 0), got[0].End)

	assert.Equal(t, []string{"Lunch"}, subjects(s.SearchRange(nil, at(10, 9, 30), at(10, 13, 0))))
	assert.Equal(t, []string{"Meeting", "Lunch", "Late", "Reminder"},
		subjects(s.SearchRange(nil, at(10, 0, 0), at(11, 8, 0))))
	assert.Equal(t, []string{"Reminder", "Meeting"},
		subjects(s.SearchRange(nil, at(11, 0, 0), time.Time{})))
}

func TestIsBusy(t *testing.T) {
	s := New()
	s.Insert(oneTime(t, "Meeting", at(10, 9, 0), at(10, 10, 0)))

	assert.False(t, s.IsBusy(at(10, 8, 59)))
	assert.True(t, s.IsBusy(at(10, 9, 0)))
	assert.True(t, s.IsBusy(at(10, 9, 59)))
	assert.False(t, s.IsBusy(at(10, 10, 0)))
	assert.False(t, s.IsBusy(at(11, 9, 30)))

	s.Insert(oneTime(t, "Reminder", at(11, 15, 0), time.Time{}))
	assert.True(t, s.IsBusy(at(11, 15, 0)))
	assert.True(t, s.IsBusy(at(11, 20, 0)))
	assert.False(t, s.IsBusy(at(11, 14, 0)))
}

func TestClear(t *testing.T) {
	s := New()
	s.Insert(oneTime(t, "a", at(10, 9, 0), at(10, 10, 0)))
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.ListAll())
	assert.True(t, s.Insert(oneTime(t, "a", at(10, 9, 0), at(10, 10, 0))))
}
