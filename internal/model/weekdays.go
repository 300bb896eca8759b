package model

import (
	"fmt"
	"strings"
	"time"
)

// Weekdays is a set of days of the week, one bit per time.Weekday.
type Weekdays uint8

// weekdayCodes lists the single-letter codes in canonical (Monday first) order.
var weekdayCodes = []struct {
	code byte
	day  time.Weekday
}{
	{'M', time.Monday},
	{'T', time.Tuesday},
	{'W', time.Wednesday},
	{'R', time.Thursday},
	{'F', time.Friday},
	{'S', time.Saturday},
	{'U', time.Sunday},
}

// ParseWeekdays parses a compact code string such as "MWF" or "TR".
// Repeated letters are accepted; any letter outside M,T,W,R,F,S,U fails
// with ErrInvalidRecurrenceDay.
func ParseWeekdays(s string) (Weekdays, error) {
	var set Weekdays
	for i := 0; i < len(s); i++ {
		d, ok := weekdayFromCode(s[i])
		if !ok {
			return 0, fmt.Errorf("%w: %q in %q", ErrInvalidRecurrenceDay, s[i], s)
		}
		set = set.With(d)
	}
	return set, nil
}

// MustParseWeekdays is ParseWeekdays for constant inputs; it panics on error.
func MustParseWeekdays(s string) Weekdays {
	set, err := ParseWeekdays(s)
	if err != nil {
		panic(err)
	}
	return set
}

func weekdayFromCode(c byte) (time.Weekday, bool) {
	for _, wc := range weekdayCodes {
		if wc.code == c {
			return wc.day, true
		}
	}
	return 0, false
}

// With returns the set with d added.
func (w Weekdays) With(d time.Weekday) Weekdays {
	return w | 1<<uint(d)
}

// Has reports whether d is in the set.
func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// Empty reports whether no day is set.
func (w Weekdays) Empty() bool {
	return w == 0
}

// Days returns the members in canonical order.
func (w Weekdays) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for _, wc := range weekdayCodes {
		if w.Has(wc.day) {
			out = append(out, wc.day)
		}
	}
	return out
}

// String renders the set as its letter codes, Monday first.
func (w Weekdays) String() string {
	var b strings.Builder
	for _, wc := range weekdayCodes {
		if w.Has(wc.day) {
			b.WriteByte(wc.code)
		}
	}
	return b.String()
}
