package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, "default", cfg.Active)
	require.Len(t, cfg.Calendars, 1)
	assert.Equal(t, "UTC", cfg.Calendars[0].Timezone)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	require.NoError(t, cfg.Validate())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
timezone: America/Chicago
auto_decline: true
calendars:
  - name: work
  - name: home
    timezone: Europe/Paris
subscriptions:
  - calendar: work
    url: https://example.com/team.ics
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.AutoDecline)
	assert.Equal(t, "work", cfg.Active)
	assert.Equal(t, "America/Chicago", cfg.Calendars[0].Timezone)
	assert.Equal(t, "Europe/Paris", cfg.Calendars[1].Timezone)
	assert.Equal(t, "https://example.com/team.ics", cfg.Subscriptions[0].ID)
	assert.Equal(t, defaultRefreshCron, cfg.RefreshCron)
	assert.Equal(t, defaultImportHorizonDays, cfg.ImportHorizonDays)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CALKEEPER_LISTEN", "0.0.0.0:9999")
	t.Setenv("CALKEEPER_AUTO_DECLINE", "true")
	t.Setenv("CALKEEPER_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Listen)
	assert.True(t, cfg.AutoDecline)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, defaultTimezone, cfg.Timezone)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"empty calendar name", Config{Calendars: []CalendarConfig{{Name: ""}}}},
		{"duplicate calendar", Config{Calendars: []CalendarConfig{{Name: "a"}, {Name: "a"}}}},
		{"unknown active", Config{Calendars: []CalendarConfig{{Name: "a"}}, Active: "b"}},
		{"subscription without url", Config{
			Calendars:     []CalendarConfig{{Name: "a"}},
			Subscriptions: []SubscriptionConfig{{Calendar: "a"}},
		}},
		{"subscription to unknown calendar", Config{
			Calendars:     []CalendarConfig{{Name: "a"}},
			Subscriptions: []SubscriptionConfig{{Calendar: "b", URL: "https://x"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	cfg.Calendars = append(cfg.Calendars, CalendarConfig{Name: "travel", Timezone: "Asia/Tokyo"})
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
