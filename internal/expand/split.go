package expand

import (
	"fmt"
	"time"

	"calkeeper/internal/model"
)

// Split turns a start/end pair into one-time day segments.
//
// A pair on a single date (or without an end) yields one event. Otherwise the
// first segment runs from start to 23:59 of its date, every date in between
// is covered 00:00–23:59, and the last segment runs from 00:00 to end. The
// segments are independent records sharing subject and description.
func Split(subject, description string, start, end time.Time) ([]model.Event, error) {
	start = model.Naive(start)
	end = model.Naive(end)

	if end.IsZero() || model.SameDate(start, end) {
		ev, err := model.NewOneTime(subject, description, start, end)
		if err != nil {
			return nil, err
		}
		return []model.Event{ev}, nil
	}

	first, last := model.DateOf(start), model.DateOf(end)
	if first.After(last) {
		return nil, fmt.Errorf("%w: start date %s is after end date %s",
			model.ErrInvalidEventRange, first.Format(model.LayoutDate), last.Format(model.LayoutDate))
	}

	var out []model.Event
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		segStart := day
		if day.Equal(first) {
			segStart = start
		}
		segEnd := model.EndOfDay(day)
		if day.Equal(last) {
			segEnd = end
		}
		ev, err := model.NewOneTime(subject, description, segStart, segEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}
