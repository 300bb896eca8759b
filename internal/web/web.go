package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"calkeeper/internal/calendar"
	"calkeeper/internal/config"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
)

// Server exposes the calendar manager over a JSON API. The core types are
// not goroutine-safe, so every request runs under mu.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	mu  sync.Mutex
	mgr *calendar.Manager

	refresher *Refresher
}

// NewServer constructs a new Server. refresher may be nil when no
// subscriptions are configured.
func NewServer(cfg *config.Config, mgr *calendar.Manager, refresher *Refresher) *Server {
	s := &Server{
		cfg:       cfg,
		mux:       http.NewServeMux(),
		mgr:       mgr,
		refresher: refresher,
	}
	s.registerRoutes()
	return s
}

// Do runs fn with exclusive access to the manager.
func (s *Server) Do(fn func(m *calendar.Manager) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.mgr)
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials leave auth off.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calkeeper", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves s on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc("/api/calendars", s.handleCalendars)
	s.mux.HandleFunc("/api/calendars/use", s.handleUseCalendar)
	s.mux.HandleFunc("/api/calendars/edit", s.handleEditCalendar)

	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events/day", s.handleDay)
	s.mux.HandleFunc("/api/events/dates", s.handleDates)
	s.mux.HandleFunc("/api/events/edit", s.handleEditEvent)
	s.mux.HandleFunc("/api/events/remove", s.handleRemoveEvent)
	s.mux.HandleFunc("/api/series", s.handleAddSeries)
	s.mux.HandleFunc("/api/series/edit", s.handleEditSeries)

	s.mux.HandleFunc("/api/busy", s.handleBusy)
	s.mux.HandleFunc("/api/copy", s.handleCopy)
	s.mux.HandleFunc("/api/copy/range", s.handleCopyRange)

	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc("/api/import", s.handleImport)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// allowMethods writes 405 and returns false unless r uses one of methods.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrCalendarNotFound),
		errors.Is(err, model.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict),
		errors.Is(err, model.ErrDuplicateCalendarName),
		errors.Is(err, model.ErrNoActiveCalendar):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidEventRange),
		errors.Is(err, model.ErrInvalidRecurrenceDay),
		errors.Is(err, model.ErrUnboundedRecurrence),
		errors.Is(err, model.ErrInvalidOccurrences),
		errors.Is(err, model.ErrUnsupportedProperty),
		errors.Is(err, model.ErrInvalidCalendarName),
		errors.Is(err, model.ErrInvalidTimezone),
		errors.Is(err, model.ErrInvalidDateTime),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError logs unexpected failures and writes the mapped status.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("api request failed", err, "path", r.URL.Path)
	} else {
		appLog.Debug("api request rejected", "path", r.URL.Path, "status", status, "cause", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
