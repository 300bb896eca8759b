package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calkeeper/internal/model"
)

type daySource map[time.Time][]model.Event

func (s daySource) OnDate(date time.Time) []model.Event {
	return s[model.DateOf(date)]
}

func (s daySource) add(ev model.Event) {
	s[ev.Date()] = append(s[ev.Date()], ev)
}

func base() time.Time {
	return time.Date(2023, 10, 10, 0, 0, 0, 0, time.UTC)
}

func event(t *testing.T, subject string, startH, startM, endH, endM int) model.Event {
	t.Helper()
	day := base()
	ev, err := model.NewOneTime(subject, "",
		day.Add(time.Duration(startH)*time.Hour+time.Duration(startM)*time.Minute),
		day.Add(time.Duration(endH)*time.Hour+time.Duration(endM)*time.Minute))
	require.NoError(t, err)
	return ev
}

func openEnded(t *testing.T, subject string, startH int) model.Event {
	t.Helper()
	ev, err := model.NewOneTime(subject, "", base().Add(time.Duration(startH)*time.Hour), time.Time{})
	require.NoError(t, err)
	return ev
}

func TestOverlaps(t *testing.T) {
	meeting := event(t, "Meeting", 9, 0, 10, 0)

	tests := []struct {
		name  string
		other model.Event
		want  bool
	}{
		{"partial overlap", event(t, "Conflict", 9, 30, 10, 30), true},
		{"contained", event(t, "Inner", 9, 15, 9, 45), true},
		{"containing", event(t, "Outer", 8, 0, 11, 0), true},
		{"identical span", event(t, "Twin", 9, 0, 10, 0), true},
		{"touching after", event(t, "Next", 10, 0, 11, 0), false},
		{"touching before", event(t, "Prev", 8, 0, 9, 0), false},
		{"disjoint", event(t, "Later", 13, 0, 14, 0), false},
		{"open-ended before end", openEnded(t, "Reminder", 9), true},
		{"open-ended at end", openEnded(t, "Reminder", 10), false},
		{"open-ended earlier", openEnded(t, "Reminder", 8), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(meeting, tt.other))
			assert.Equal(t, tt.want, Overlaps(tt.other, meeting), "overlap must be symmetric")
		})
	}
}

func TestOverlapsSymmetric(t *testing.T) {
	var evs []model.Event
	for h := 6; h < 12; h++ {
		evs = append(evs, event(t, "e", h, 0, h+1, 30))
		evs = append(evs, event(t, "e", h, 30, h+1, 0))
		evs = append(evs, openEnded(t, "o", h))
	}
	for _, a := range evs {
		for _, b := range evs {
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a), "%s vs %s", a, b)
		}
	}
}

func TestDetector(t *testing.T) {
	src := daySource{}
	meeting := event(t, "Meeting", 9, 0, 10, 0)
	lunch := event(t, "Lunch", 12, 0, 13, 0)
	src.add(meeting)
	src.add(lunch)

	d := NewDetector(src)

	assert.True(t, d.HasConflict(event(t, "Conflict", 9, 30, 10, 30)))
	assert.False(t, d.HasConflict(event(t, "Gap", 10, 0, 12, 0)))
	assert.True(t, d.HasConflict(meeting), "an identical event overlaps the stored one")
	assert.Equal(t, []model.Event{meeting}, d.Conflicts(meeting))

	got := d.Conflicts(event(t, "Long", 9, 30, 12, 30))
	assert.Equal(t, []model.Event{meeting, lunch}, got)

	nextDay, err := model.NewOneTime("Tomorrow", "", base().AddDate(0, 0, 1).Add(9*time.Hour), base().AddDate(0, 0, 1).Add(10*time.Hour))
	require.NoError(t, err)
	assert.False(t, d.HasConflict(nextDay), "only the start-date bucket is scanned")

	assert.True(t, d.HasAnyConflict([]model.Event{nextDay, event(t, "Clash", 12, 30, 12, 45)}))
	assert.False(t, d.HasAnyConflict([]model.Event{nextDay}))
	assert.False(t, d.HasAnyConflict(nil))
}
