// Package conflict decides whether events collide in time.
package conflict

import (
	"time"

	"calkeeper/internal/model"
)

// Source yields the stored events filed under a date.
type Source interface {
	OnDate(date time.Time) []model.Event
}

// Overlaps reports whether a and b share any instant.
//
// Intervals are open: an event ending at 10:00 does not collide with one
// starting at 10:00. An event without an end extends indefinitely.
func Overlaps(a, b model.Event) bool {
	return (!b.HasEnd() || a.Start.Before(b.End)) &&
		(!a.HasEnd() || b.Start.Before(a.End))
}

// Detector checks candidates against a Source.
type Detector struct {
	src Source
}

func NewDetector(src Source) *Detector {
	return &Detector{src: src}
}

// Conflicts returns the stored events that overlap candidate, in store order.
// Only the bucket of the candidate's start date is scanned; multi-day events
// are stored as per-day segments, so same-day is the conflict scope.
// A stored event identical to the candidate is a conflict like any other.
func (d *Detector) Conflicts(candidate model.Event) []model.Event {
	var out []model.Event
	for _, ev := range d.src.OnDate(candidate.Date()) {
		if Overlaps(candidate, ev) {
			out = append(out, ev)
		}
	}
	return out
}

// HasConflict reports whether candidate overlaps anything stored.
func (d *Detector) HasConflict(candidate model.Event) bool {
	return len(d.Conflicts(candidate)) > 0
}

// HasAnyConflict reports whether any candidate overlaps a stored event.
// Candidates are not checked against each other.
func (d *Detector) HasAnyConflict(candidates []model.Event) bool {
	for _, c := range candidates {
		if d.HasConflict(c) {
			return true
		}
	}
	return false
}
