package calendar

import (
	"calkeeper/internal/model"
	"calkeeper/internal/store"
)

// txn tracks the events an edit or a bulk copy removed and added so the
// whole change can be undone.
type txn struct {
	store *store.Store
	taken []store.Entry
	added []model.Event
}

func begin(s *store.Store) *txn {
	return &txn{store: s}
}

// take removes evs from the store, remembering where they were.
func (t *txn) take(evs []model.Event) {
	for _, ev := range evs {
		if e, ok := t.store.Take(ev.Key()); ok {
			t.taken = append(t.taken, e)
		}
	}
}

// track records events stored as part of the transaction.
func (t *txn) track(added []model.Event) {
	t.added = append(t.added, added...)
}

// rollback removes whatever the transaction added and restores what it took,
// each at its original position.
func (t *txn) rollback() {
	for _, ev := range t.added {
		t.store.Remove(ev)
	}
	for _, e := range t.taken {
		t.store.Restore(e)
	}
	t.added, t.taken = nil, nil
}

func (t *txn) removed() []model.Event {
	out := make([]model.Event, len(t.taken))
	for i, e := range t.taken {
		out[i] = e.Event
	}
	return out
}
