package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"calkeeper/internal/calendar"
	"calkeeper/internal/config"
	"calkeeper/internal/ics"
	appLog "calkeeper/internal/log"
	"calkeeper/internal/web"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "calkeeper",
	Short: "In-memory calendars with conflict checks, recurring series and ICS subscriptions",
	Long: `calkeeper keeps named calendars of one-time and recurring events in
memory, rejects or accepts overlapping events per calendar, and imports
remote iCalendar feeds on a schedule.

Commands:
  serve     Run the JSON API and the subscription refresh schedule
  export    Refresh subscriptions once and write a calendar as ICS or CSV
  busy      Report whether a calendar is busy at a given time`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := maxprocs.Set(); err != nil {
			return fmt.Errorf("error setting GOMAXPROCS %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/calkeeper/config.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config if set)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(busyCmd)
}

// app is the wired application: configuration, calendars and the API server
// that guards them.
type app struct {
	cfg    *config.Config
	server *web.Server
}

// loadApp loads the config and creates the configured calendars.
func loadApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	mgr := calendar.NewManager(
		calendar.WithAutoDecline(cfg.AutoDecline),
		calendar.WithMaxOccurrences(cfg.MaxOccurrences),
	)
	for _, cc := range cfg.Calendars {
		if _, err := mgr.CreateCalendar(cc.Name, cc.Timezone); err != nil {
			return nil, fmt.Errorf("calendar %q: %w", cc.Name, err)
		}
	}
	if cfg.Active != "" {
		if err := mgr.UseCalendar(cfg.Active); err != nil {
			return nil, err
		}
	}

	var refresher *web.Refresher
	if len(cfg.Subscriptions) > 0 {
		subs := make([]web.Subscription, 0, len(cfg.Subscriptions))
		for _, sc := range cfg.Subscriptions {
			subs = append(subs, web.Subscription{
				Calendar: sc.Calendar,
				Source:   ics.Source{ID: sc.ID, URL: sc.URL},
			})
		}
		horizon := time.Duration(cfg.ImportHorizonDays) * 24 * time.Hour
		refresher = web.NewRefresher(ics.NewFetcher(cfg.CacheDir, nil), subs, horizon, cfg.MaxOccurrences)
	}

	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"auto_decline", cfg.AutoDecline,
		"calendars", len(cfg.Calendars),
		"active", cfg.Active,
		"subscriptions", len(cfg.Subscriptions),
		"refresh", cfg.RefreshCron,
	)
	return &app{cfg: cfg, server: web.NewServer(cfg, mgr, refresher)}, nil
}

// calendarNamed returns the named calendar, or the active one when name is
// empty. The caller must be inside server.Do.
func calendarNamed(m *calendar.Manager, name string) (*calendar.Calendar, error) {
	if name == "" {
		return m.Active()
	}
	return m.Calendar(name)
}
