package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	appLog "calkeeper/internal/log"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON API and refresh subscriptions on schedule",
	Long: `Serve the calendar API on the configured listen address. Subscribed
feeds are imported once at startup and then on the configured cron schedule.

Examples:
  calkeeper serve
  calkeeper serve --listen 0.0.0.0:8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (overrides config if set)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if serveListen != "" {
		a.cfg.Listen = serveListen
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refresh := func() {
		if _, err := a.server.Refresh(ctx); err != nil {
			appLog.Error("subscription refresh failed", err)
		}
	}
	refresh()

	c := cron.New()
	if _, err := c.AddFunc(a.cfg.RefreshCron, refresh); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", a.cfg.RefreshCron)
		return err
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	appLog.Info("calkeeper serving", "listen", a.cfg.Listen, "refresh", a.cfg.RefreshCron)
	err = a.server.ListenAndServe(ctx)
	appLog.Info("calkeeper exiting")
	return err
}
