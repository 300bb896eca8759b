package web

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"calkeeper/internal/calendar"
	"calkeeper/internal/datetime"
	"calkeeper/internal/ics"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
)

// calendarFor resolves the ?calendar= query parameter, defaulting to the
// active calendar. The caller must hold s.mu.
func (s *Server) calendarFor(r *http.Request) (*calendar.Calendar, error) {
	if name := r.URL.Query().Get("calendar"); name != "" {
		return s.mgr.Calendar(name)
	}
	return s.mgr.Active()
}

// handleCalendars lists calendars (GET) or creates one (POST).
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Method == http.MethodPost {
		var req createCalendarRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, r, err)
			return
		}
		tz := req.Timezone
		if tz == "" && s.cfg != nil {
			tz = s.cfg.Timezone
		}
		cal, err := s.mgr.CreateCalendar(req.Name, tz)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.calendarDTO(cal))
		return
	}

	out := make([]calendarDTO, 0)
	for _, name := range s.mgr.Names() {
		cal, err := s.mgr.Calendar(name)
		if err != nil {
			continue
		}
		out = append(out, s.calendarDTO(cal))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) calendarDTO(cal *calendar.Calendar) calendarDTO {
	return calendarDTO{
		Name:        cal.Name(),
		Timezone:    cal.Location().String(),
		AutoDecline: cal.AutoDecline(),
		Events:      cal.Len(),
		Active:      cal.Name() == s.mgr.ActiveName(),
	}
}

func (s *Server) handleUseCalendar(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req useCalendarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mgr.UseCalendar(req.Name); err != nil {
		writeDomainError(w, r, err)
		return
	}
	cal, _ := s.mgr.Active()
	writeJSON(w, http.StatusOK, s.calendarDTO(cal))
}

// handleEditCalendar renames a calendar or changes its timezone.
func (s *Server) handleEditCalendar(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req editCalendarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mgr.EditCalendarProperty(req.Name, req.Property, req.Value); err != nil {
		writeDomainError(w, r, err)
		return
	}
	name := req.Name
	if strings.EqualFold(strings.TrimSpace(req.Property), "name") {
		name = strings.TrimSpace(req.Value)
	}
	cal, err := s.mgr.Calendar(name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.calendarDTO(cal))
}

// handleEvents searches (GET) or adds a one-time event (POST).
//
// GET /api/events?subject=&start=&end=
//   - without start every event is listed
//   - without end the search runs to 23:59 of start's date
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	if r.Method == http.MethodPost {
		s.addEvent(w, r)
		return
	}

	q := r.URL.Query()
	start, err := parseTime("start", q.Get("start"), false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	end, err := parseTime("end", q.Get("end"), false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var subject *string
	if q.Has("subject") {
		v := q.Get("subject")
		subject = &v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var found []model.Event
	switch {
	case start.IsZero() && subject == nil:
		found = cal.All()
	case start.IsZero():
		found = cal.Series(*subject, nil)
	default:
		found = cal.Search(subject, start, end)
	}
	writeJSON(w, http.StatusOK, toEventDTOs(found))
}

func (s *Server) addEvent(w http.ResponseWriter, r *http.Request) {
	var req addEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	start, err := parseTime("start", req.Start, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	end, err := parseTime("end", req.End, false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	added, err := cal.AddEvent(req.Subject, req.Description, start, end)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	appLog.Info("api event added", "calendar", cal.Name(), "subject", req.Subject, "segments", len(added))
	writeJSON(w, http.StatusCreated, toEventDTOs(added))
}

// handleDay returns the day view for ?date=YYYY-MM-DD.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	date, err := datetime.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTOs(cal.EventsOn(date)))
}

// handleDates lists the dates that hold events, as YYYY-MM-DD.
func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]string, 0)
	for _, d := range cal.Dates() {
		out = append(out, d.Format(model.LayoutDate))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddSeries(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req addSeriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	start, err := parseTime("start", req.Start, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	end, err := parseTime("end", req.End, false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	days, err := model.ParseWeekdays(req.Days)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	rec := model.Recurrence{
		Start:       start,
		End:         end,
		Days:        days,
		Occurrences: req.Occurrences,
	}
	if req.Until != "" {
		until, err := datetime.ParseDateOrDateTime(req.Until)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		rec.Until = &until
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	added, err := cal.AddRecurringEvents(req.Subject, req.Description, rec)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	appLog.Info("api series added", "calendar", cal.Name(), "subject", req.Subject, "members", len(added))
	writeJSON(w, http.StatusCreated, toEventDTOs(added))
}

func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req editEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	start, err := parseTime("start", req.Start, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	end, err := parseTime("end", req.End, false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	prop, err := model.ParseProperty(req.Property)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	res, err := cal.EditSingle(req.Subject, start, end, prop, req.Value)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, statusForOutcome(res.Outcome), toEditResultDTO(res))
}

func (s *Server) handleEditSeries(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req editSeriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	fromTime, err := parseTime("from", req.From, false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	prop, err := model.ParseProperty(req.Property)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	res, err := cal.EditRecurring(req.Subject, optionalTime(fromTime), prop, req.Value)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, statusForOutcome(res.Outcome), toEditResultDTO(res))
}

func (s *Server) handleRemoveEvent(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req eventRef
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	start, err := parseTime("start", req.Start, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	end, err := parseTime("end", req.End, false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	ev, ok := cal.Find(req.Subject, start, end)
	if !ok || !cal.Remove(ev) {
		writeDomainError(w, r, model.ErrEventNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(ev))
}

// handleBusy reports whether any event covers ?at=.
func (s *Server) handleBusy(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	at, err := parseTime("at", r.URL.Query().Get("at"), true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	busy := cal.IsBusy(at)
	status := "available"
	if busy {
		status = "busy"
	}
	writeJSON(w, http.StatusOK, map[string]any{"busy": busy, "status": status})
}

func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req copyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	start, err := parseTime("start", req.Start, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	targetStart, err := parseTime("target_start", req.TargetStart, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.mgr.CopyEvent(req.Subject, start, req.Target, targetStart)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTOs(added))
}

func (s *Server) handleCopyRange(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req copyRangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}
	start, err := parseTime("start", req.Start, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	end, err := parseTime("end", req.End, false)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	targetStart, err := parseTime("target_start", req.TargetStart, true)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.mgr.CopyEvents(start, end, req.Target, targetStart)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTOs(added))
}

// handleExport writes the calendar as ?format=ics (default) or csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))

	s.mu.Lock()
	cal, err := s.calendarFor(r)
	if err != nil {
		s.mu.Unlock()
		writeDomainError(w, r, err)
		return
	}
	var buf bytes.Buffer
	var contentType string
	switch format {
	case "", "ics":
		contentType = "text/calendar; charset=utf-8"
		err = ics.Export(&buf, cal.Name(), cal.Location(), cal.All())
	case "csv":
		contentType = "text/csv; charset=utf-8"
		err = ics.WriteCSV(&buf, cal.All())
	default:
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "unknown export format "+format)
		return
	}
	s.mu.Unlock()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleImport adds the events of an iCalendar request body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cal, err := s.calendarFor(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	opts := ics.ImportOptions{Source: ics.Source{ID: "upload"}}
	if s.cfg != nil {
		opts.MaxOccurrencesPerEvent = s.cfg.MaxOccurrences
	}
	report, err := ics.Import(cal, body, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	reports, err := s.Refresh(r.Context())
	if err != nil {
		appLog.Error("api refresh had failures", err)
	}
	writeJSON(w, http.StatusOK, reports)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
