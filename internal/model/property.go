package model

import (
	"fmt"
	"strings"
)

// Property names an editable event field.
type Property string

const (
	PropName          Property = "name"
	PropDescription   Property = "description"
	PropStartTime     Property = "startTime"
	PropEndTime       Property = "endTime"
	PropEndRecurring  Property = "endRecurring"
	PropRecurringDays Property = "recurringDays"
	PropOccurrences   Property = "occurrences"
)

var (
	singleProperties    = []Property{PropName, PropDescription, PropStartTime, PropEndTime}
	recurringProperties = []Property{PropName, PropDescription, PropStartTime, PropEndTime, PropEndRecurring, PropRecurringDays, PropOccurrences}
)

// ParseProperty matches s against the known names, ignoring case.
func ParseProperty(s string) (Property, error) {
	v := strings.TrimSpace(s)
	for _, p := range recurringProperties {
		if strings.EqualFold(v, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProperty, s)
}

// SingleEditable reports whether p may be edited on a single event.
func (p Property) SingleEditable() bool {
	for _, q := range singleProperties {
		if p == q {
			return true
		}
	}
	return false
}

// SeriesEditable reports whether p may be edited on a recurring series.
func (p Property) SeriesEditable() bool {
	for _, q := range recurringProperties {
		if p == q {
			return true
		}
	}
	return false
}
