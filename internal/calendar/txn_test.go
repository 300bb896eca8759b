package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calkeeper/internal/model"
	"calkeeper/internal/store"
)

func TestTxnRollback(t *testing.T) {
	s := store.New()
	mk := func(subject string, h int) model.Event {
		ev, err := model.NewOneTime(subject, "", at(10, h, 0), at(10, h+1, 0))
		require.NoError(t, err)
		return ev
	}
	a, b, c := mk("A", 8), mk("B", 9), mk("C", 10)
	for _, ev := range []model.Event{a, b, c} {
		require.True(t, s.Insert(ev))
	}

	tx := begin(s)
	tx.take([]model.Event{b})
	assert.Equal(t, []model.Event{b}, tx.removed())

	n := mk("N", 12)
	require.True(t, s.Insert(n))
	tx.track([]model.Event{n})

	tx.rollback()
	assert.Equal(t, []model.Event{a, b, c}, s.OnDate(at(10, 0, 0)), "taken events return to their slot")
	assert.Empty(t, tx.removed())
}
