package web

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calkeeper/internal/datetime"
	"calkeeper/internal/ics"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/model"
)

// Subscription imports one remote feed into a named calendar.
type Subscription struct {
	Calendar string
	Source   ics.Source
}

// Refresher re-imports subscribed feeds.
type Refresher struct {
	fetcher *ics.Fetcher
	subs    []Subscription
	horizon time.Duration
	maxOcc  int
	now     func() time.Time
}

// NewRefresher returns a Refresher importing subs through fetcher.
// Recurring feed events are expanded horizon ahead of today.
func NewRefresher(fetcher *ics.Fetcher, subs []Subscription, horizon time.Duration, maxOccurrences int) *Refresher {
	return &Refresher{
		fetcher: fetcher,
		subs:    subs,
		horizon: horizon,
		maxOcc:  maxOccurrences,
		now:     time.Now,
	}
}

// RefreshReport is the outcome of one subscription.
type RefreshReport struct {
	Calendar  string            `json:"calendar"`
	Source    string            `json:"source"`
	FromCache bool              `json:"from_cache"`
	Import    *ics.ImportReport `json:"import,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Refresh fetches every subscription and imports it into its calendar.
// Feeds are downloaded without holding the manager lock; imports run under
// it. Events removed upstream are not removed locally. A failing feed does
// not stop the others; their errors are joined.
func (s *Server) Refresh(ctx context.Context) ([]RefreshReport, error) {
	if s.refresher == nil {
		return []RefreshReport{}, nil
	}
	rf := s.refresher

	type fetched struct {
		sub Subscription
		res ics.FetchResult
		err error
	}
	results := make([]fetched, 0, len(rf.subs))
	for _, sub := range rf.subs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := rf.fetcher.Fetch(ctx, sub.Source)
		results = append(results, fetched{sub: sub, res: res, err: err})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reports := make([]RefreshReport, 0, len(results))
	var errs []error
	for _, f := range results {
		rep := RefreshReport{Calendar: f.sub.Calendar, Source: f.sub.Source.ID, FromCache: f.res.FromCache}
		if f.err != nil {
			rep.Error = f.err.Error()
			errs = append(errs, fmt.Errorf("fetch %s: %w", f.sub.Source.ID, f.err))
			reports = append(reports, rep)
			continue
		}
		cal, err := s.mgr.Calendar(f.sub.Calendar)
		if err != nil {
			rep.Error = err.Error()
			errs = append(errs, err)
			reports = append(reports, rep)
			continue
		}
		today := model.DateOf(datetime.FromInstant(rf.now(), cal.Location()))
		ir, err := ics.Import(cal, f.res.Body, ics.ImportOptions{
			Source:                 f.sub.Source,
			From:                   today,
			Horizon:                rf.horizon,
			MaxOccurrencesPerEvent: rf.maxOcc,
		})
		if err != nil {
			rep.Error = err.Error()
			errs = append(errs, fmt.Errorf("import %s: %w", f.sub.Source.ID, err))
		} else {
			rep.Import = &ir
		}
		reports = append(reports, rep)
	}

	appLog.Info("subscriptions refreshed", "count", len(reports), "failures", len(errs))
	return reports, errors.Join(errs...)
}
