// Package store is the in-memory, date-bucketed event index of one calendar.
package store

import (
	"slices"
	"time"

	"calkeeper/internal/model"
)

// Entry is a stored event with its arena sequence number. Sequence numbers
// increase monotonically with every insert and fix the order of events
// within a date.
type Entry struct {
	Seq   uint64
	Event model.Event
}

// Store files events under their start date. Dates iterate in ascending
// order; events within a date iterate in insertion order. (subject, start,
// end) is unique across the store.
//
// A Store is not safe for concurrent use.
type Store struct {
	buckets map[time.Time][]Entry
	dates   []time.Time
	keys    map[model.Key]struct{}
	nextSeq uint64
}

func New() *Store {
	return &Store{
		buckets: make(map[time.Time][]Entry),
		keys:    make(map[model.Key]struct{}),
	}
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	return len(s.keys)
}

// Insert files ev under its start date. It returns false, leaving the store
// unchanged, when an event with the same key is already present.
func (s *Store) Insert(ev model.Event) bool {
	if _, ok := s.keys[ev.Key()]; ok {
		return false
	}
	s.nextSeq++
	s.put(Entry{Seq: s.nextSeq, Event: ev})
	return true
}

// Restore puts back an entry previously returned by Take, at its original
// position within its date. It returns false if the key is present again.
func (s *Store) Restore(e Entry) bool {
	if _, ok := s.keys[e.Event.Key()]; ok {
		return false
	}
	if e.Seq > s.nextSeq {
		s.nextSeq = e.Seq
	}
	s.put(e)
	return true
}

func (s *Store) put(e Entry) {
	date := e.Event.Date()
	bucket, ok := s.buckets[date]
	if !ok {
		i, _ := slices.BinarySearchFunc(s.dates, date, compareTime)
		s.dates = slices.Insert(s.dates, i, date)
	}
	i, _ := slices.BinarySearchFunc(bucket, e.Seq, func(x Entry, seq uint64) int {
		switch {
		case x.Seq < seq:
			return -1
		case x.Seq > seq:
			return 1
		}
		return 0
	})
	s.buckets[date] = slices.Insert(bucket, i, e)
	s.keys[e.Event.Key()] = struct{}{}
}

// Remove deletes the event with ev's key. It is a no-op returning false when
// no such event is stored.
func (s *Store) Remove(ev model.Event) bool {
	_, ok := s.Take(ev.Key())
	return ok
}

// Take removes and returns the entry stored under key.
func (s *Store) Take(key model.Key) (Entry, bool) {
	key.Start, key.End = model.Naive(key.Start), model.Naive(key.End)
	if _, ok := s.keys[key]; !ok {
		return Entry{}, false
	}
	date := model.DateOf(key.Start)
	bucket := s.buckets[date]
	i := slices.IndexFunc(bucket, func(e Entry) bool { return e.Event.Key() == key })
	if i < 0 {
		return Entry{}, false
	}
	e := bucket[i]
	bucket = slices.Delete(bucket, i, i+1)
	delete(s.keys, key)
	if len(bucket) == 0 {
		delete(s.buckets, date)
		if j, found := slices.BinarySearchFunc(s.dates, date, compareTime); found {
			s.dates = slices.Delete(s.dates, j, j+1)
		}
	} else {
		s.buckets[date] = bucket
	}
	return e, true
}

// FindExact returns the event with exactly this subject, start and end.
func (s *Store) FindExact(subject string, start, end time.Time) (model.Event, bool) {
	key := model.Key{Subject: subject, Start: model.Naive(start), End: model.Naive(end)}
	if _, ok := s.keys[key]; !ok {
		return model.Event{}, false
	}
	for _, e := range s.buckets[model.DateOf(key.Start)] {
		if e.Event.Key() == key {
			return e.Event, true
		}
	}
	return model.Event{}, false
}

// FindSeries returns every event named subject, or, when from is set, those
// whose start is on or after from (date first, then time of day).
//
// Grouping is by subject only: unrelated events sharing a subject are
// indistinguishable from series members.
func (s *Store) FindSeries(subject string, from *time.Time) []model.Event {
	var ref time.Time
	if from != nil {
		ref = model.Naive(*from)
	}
	var out []model.Event
	s.each(func(ev model.Event) {
		if ev.Subject != subject {
			return
		}
		if from != nil && !model.OnOrAfter(ev.Start, ref) {
			return
		}
		out = append(out, ev)
	})
	return out
}

// SearchRange returns events starting on or after start whose end is on or
// before end, optionally filtered by subject. An open-ended event is tested
// against end by its start. A zero end leaves the range open above.
func (s *Store) SearchRange(subject *string, start, end time.Time) []model.Event {
	start, end = model.Naive(start), model.Naive(end)
	var lastDate time.Time
	if !end.IsZero() {
		lastDate = model.DateOf(end)
	}

	var out []model.Event
	i, _ := slices.BinarySearchFunc(s.dates, model.DateOf(start), compareTime)
	for ; i < len(s.dates); i++ {
		date := s.dates[i]
		if !lastDate.IsZero() && date.After(lastDate) {
			break
		}
		for _, e := range s.buckets[date] {
			ev := e.Event
			if subject != nil && ev.Subject != *subject {
				continue
			}
			if !model.OnOrAfter(ev.Start, start) {
				continue
			}
			if !end.IsZero() {
				upper := ev.End
				if !ev.HasEnd() {
					upper = ev.Start
				}
				if upper.After(end) {
					continue
				}
			}
			out = append(out, ev)
		}
	}
	return out
}

// ListAll returns every event, dates ascending, insertion order within a date.
func (s *Store) ListAll() []model.Event {
	out := make([]model.Event, 0, len(s.keys))
	s.each(func(ev model.Event) {
		out = append(out, ev)
	})
	return out
}

// Entries is ListAll with sequence numbers, for callers that need to put
// events back where they were.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.keys))
	for _, d := range s.dates {
		out = append(out, s.buckets[d]...)
	}
	return out
}

// OnDate returns the events filed under date's calendar date.
func (s *Store) OnDate(date time.Time) []model.Event {
	bucket := s.buckets[model.DateOf(date)]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]model.Event, len(bucket))
	for i, e := range bucket {
		out[i] = e.Event
	}
	return out
}

// Dates returns the dates that hold at least one event, ascending.
func (s *Store) Dates() []time.Time {
	return slices.Clone(s.dates)
}

// IsBusy reports whether an event on t's date covers t. Coverage is
// start-inclusive and end-exclusive; an open-ended event covers every instant
// from its start.
func (s *Store) IsBusy(t time.Time) bool {
	t = model.Naive(t)
	for _, e := range s.buckets[model.DateOf(t)] {
		ev := e.Event
		if ev.Start.After(t) {
			continue
		}
		if !ev.HasEnd() || t.Before(ev.End) {
			return true
		}
	}
	return false
}

// Clear removes every event.
func (s *Store) Clear() {
	s.buckets = make(map[time.Time][]Entry)
	s.dates = nil
	s.keys = make(map[model.Key]struct{})
}

func (s *Store) each(fn func(model.Event)) {
	for _, d := range s.dates {
		for _, e := range s.buckets[d] {
			fn(e.Event)
		}
	}
}

func compareTime(a, b time.Time) int {
	return a.Compare(b)
}
