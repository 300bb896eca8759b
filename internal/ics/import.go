package ics

import (
	"errors"
	"fmt"
	"time"

	"calkeeper/internal/calendar"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
)

const defaultHorizon = 180 * 24 * time.Hour

// ImportOptions bounds what an import materializes.
type ImportOptions struct {
	Source Source

	// From is the earliest occurrence start to import, as a naive wall
	// clock in the target calendar. Zero means no lower bound.
	From time.Time
	// Horizon is how far past From recurring events are expanded. If zero,
	// 180 days is used.
	Horizon time.Duration

	MaxOccurrencesPerEvent int
}

// ImportReport counts what happened to the payload's occurrences.
type ImportReport struct {
	Parsed      int `json:"parsed"`
	Occurrences int `json:"occurrences"`
	Added       int `json:"added"`
	// Existing counts occurrences already stored with the same identity.
	Existing int `json:"existing"`
	// Conflicts counts occurrences the calendar declined.
	Conflicts int `json:"conflicts"`
	// Invalid counts occurrences with an unusable time range.
	Invalid   int      `json:"invalid"`
	Truncated []string `json:"truncated,omitempty"`
}

// Import adds the events of an iCalendar payload to cal as one-time events.
// Recurring VEVENTs are expanded within the import window. Occurrences
// already present are skipped, so re-importing a payload is a no-op.
// Conflict handling follows the calendar's auto-decline setting.
func Import(cal *calendar.Calendar, body []byte, opts ImportOptions) (ImportReport, error) {
	var report ImportReport

	parsed, err := ParseICS(opts.Source, body)
	if err != nil {
		return report, err
	}
	report.Parsed = len(parsed)

	horizon := opts.Horizon
	if horizon <= 0 {
		horizon = defaultHorizon
	}
	from := model.Naive(opts.From)
	var until time.Time
	if !from.IsZero() {
		until = from.Add(horizon)
	}

	res, err := ExpandOccurrences(parsed, ExpandConfig{
		Location:               cal.Location(),
		RangeStart:             from,
		RangeEnd:               until,
		MaxOccurrencesPerEvent: opts.MaxOccurrencesPerEvent,
	})
	if err != nil {
		return report, err
	}
	report.Occurrences = len(res.Occurrences)
	report.Truncated = res.TruncatedEvents

	for _, occ := range res.Occurrences {
		if cal.Has(occ.Summary, occ.Start, occ.End) {
			report.Existing++
			continue
		}
		added, err := cal.AddEvent(occ.Summary, occ.Description, occ.Start, occ.End)
		switch {
		case errors.Is(err, model.ErrConflict):
			report.Conflicts++
		case err != nil:
			report.Invalid++
			appLog.Warn("ics import skipped occurrence", "uid", occ.UID, "calendar", cal.Name(), "cause", err)
		case len(added) == 0:
			report.Existing++
		default:
			report.Added++
		}
	}

	appLog.Info("ics import completed",
		"calendar", cal.Name(),
		"id", opts.Source.ID,
		"parsed", report.Parsed,
		"added", report.Added,
		"existing", report.Existing,
		"conflicts", report.Conflicts,
	)
	return report, nil
}

func (r ImportReport) String() string {
	return fmt.Sprintf("parsed=%d occurrences=%d added=%d existing=%d conflicts=%d invalid=%d",
		r.Parsed, r.Occurrences, r.Added, r.Existing, r.Conflicts, r.Invalid)
}
