package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"calkeeper/internal/calendar"
	"calkeeper/internal/datetime"
	"calkeeper/internal/model"
)

// errBadRequest marks malformed requests (bad JSON, missing fields).
var errBadRequest = errors.New("bad request")

const maxRequestBody = 10 << 20

// eventDTO is the JSON view of a stored event. Times use the API form
// 2006-01-02T15:04 in the calendar's own wall clock.
type eventDTO struct {
	Subject     string     `json:"subject"`
	Description string     `json:"description,omitempty"`
	Start       string     `json:"start"`
	End         string     `json:"end,omitempty"`
	Kind        string     `json:"kind"`
	Series      *seriesDTO `json:"series,omitempty"`
}

type seriesDTO struct {
	Start       string `json:"start"`
	End         string `json:"end,omitempty"`
	Days        string `json:"days"`
	Occurrences int    `json:"occurrences,omitempty"`
	Until       string `json:"until,omitempty"`
}

func toEventDTO(ev model.Event) eventDTO {
	out := eventDTO{
		Subject:     ev.Subject,
		Description: ev.Description,
		Start:       datetime.Format(ev.Start),
		End:         datetime.Format(ev.End),
		Kind:        ev.Kind.String(),
	}
	if rec := ev.Recurrence; rec != nil {
		sd := &seriesDTO{
			Start:       datetime.Format(rec.Start),
			End:         datetime.Format(rec.End),
			Days:        rec.Days.String(),
			Occurrences: rec.Occurrences,
		}
		if rec.Until != nil {
			sd.Until = datetime.Format(*rec.Until)
		}
		out.Series = sd
	}
	return out
}

func toEventDTOs(evs []model.Event) []eventDTO {
	out := make([]eventDTO, 0, len(evs))
	for _, ev := range evs {
		out = append(out, toEventDTO(ev))
	}
	return out
}

type editResultDTO struct {
	Outcome string     `json:"outcome"`
	Removed []eventDTO `json:"removed"`
	Added   []eventDTO `json:"added"`
	Cause   string     `json:"cause,omitempty"`
}

func toEditResultDTO(res calendar.EditResult) editResultDTO {
	out := editResultDTO{
		Outcome: res.Outcome.String(),
		Removed: toEventDTOs(res.Removed),
		Added:   toEventDTOs(res.Added),
	}
	if res.Cause != nil {
		out.Cause = res.Cause.Error()
	}
	return out
}

// statusForOutcome: a rollback is a rejected change, not a server error.
func statusForOutcome(o calendar.Outcome) int {
	switch o {
	case calendar.OutcomeNotFound:
		return http.StatusNotFound
	case calendar.OutcomeRolledBack:
		return http.StatusConflict
	default:
		return http.StatusOK
	}
}

type calendarDTO struct {
	Name        string `json:"name"`
	Timezone    string `json:"timezone"`
	AutoDecline bool   `json:"auto_decline"`
	Events      int    `json:"events"`
	Active      bool   `json:"active"`
}

type createCalendarRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type useCalendarRequest struct {
	Name string `json:"name"`
}

type editCalendarRequest struct {
	Name     string `json:"name"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

type addEventRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

type addSeriesRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Days        string `json:"days"`
	Occurrences int    `json:"occurrences"`
	Until       string `json:"until"`
}

type eventRef struct {
	Subject string `json:"subject"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type editEventRequest struct {
	eventRef
	Property string `json:"property"`
	Value    string `json:"value"`
}

type editSeriesRequest struct {
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

type copyRequest struct {
	Subject     string `json:"subject"`
	Start       string `json:"start"`
	Target      string `json:"target"`
	TargetStart string `json:"target_start"`
}

type copyRangeRequest struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	Target      string `json:"target"`
	TargetStart string `json:"target_start"`
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// parseTime parses a request timestamp; an empty optional value is the zero
// time.
func parseTime(field, v string, required bool) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		if required {
			return time.Time{}, fmt.Errorf("%w: %s is required", errBadRequest, field)
		}
		return time.Time{}, nil
	}
	t, err := datetime.ParseDateTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}
