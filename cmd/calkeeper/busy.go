package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"calkeeper/internal/calendar"
	"calkeeper/internal/datetime"
	appLog "calkeeper/internal/log"
)

var busyCalendar string

var busyCmd = &cobra.Command{
	Use:   "busy [2006-01-02T15:04]",
	Short: "Print busy or available for a point in time",
	Long: `Import the configured subscriptions once and report whether any event
of the calendar covers the given wall-clock time. Without an argument the
current time in the calendar's zone is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBusy,
}

func init() {
	busyCmd.Flags().StringVar(&busyCalendar, "calendar", "", "Calendar name (defaults to the active calendar)")
}

func runBusy(cmd *cobra.Command, args []string) error {
	var at time.Time
	if len(args) == 1 {
		t, err := datetime.ParseDateTime(args[0])
		if err != nil {
			return err
		}
		at = t
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	if _, err := a.server.Refresh(context.Background()); err != nil {
		appLog.Warn("busy check continues after refresh failures", "cause", err)
	}

	return a.server.Do(func(m *calendar.Manager) error {
		cal, err := calendarNamed(m, busyCalendar)
		if err != nil {
			return err
		}
		t := at
		if t.IsZero() {
			t = datetime.FromInstant(time.Now(), cal.Location())
		}
		status := "available"
		if cal.IsBusy(t) {
			status = "busy"
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), status)
		return err
	})
}
