package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env"
	"gopkg.in/yaml.v3"
)

// NOTE: Load creates a default config on first run; Save always writes
// atomically with 0600 permissions.

// CalendarConfig describes a calendar created at startup.
type CalendarConfig struct {
	Name string `yaml:"name" json:"name"`
	// Timezone is an IANA zone. If empty, Config.Timezone is used.
	Timezone string `yaml:"timezone" json:"timezone"`
}

// SubscriptionConfig imports a remote ICS feed into one calendar.
type SubscriptionConfig struct {
	// Calendar is the target calendar name.
	Calendar string `yaml:"calendar" json:"calendar"`
	URL      string `yaml:"url" json:"url"`
	// ID names the feed in logs. If empty, the URL is used.
	ID string `yaml:"id" json:"id"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen" env:"CALKEEPER_LISTEN"`

	// Timezone is the IANA zone of calendars that do not name one.
	Timezone string `yaml:"timezone" json:"timezone" env:"CALKEEPER_TIMEZONE"`

	// AutoDecline makes single-event adds fail on conflict.
	AutoDecline bool `yaml:"auto_decline" json:"auto_decline" env:"CALKEEPER_AUTO_DECLINE"`

	// MaxOccurrences caps the expansion of one recurring series.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`

	// ImportHorizonDays is how far ahead subscribed recurring events are
	// expanded.
	ImportHorizonDays int `yaml:"import_horizon_days" json:"import_horizon_days"`

	LogLevel string `yaml:"log_level" json:"log_level" env:"CALKEEPER_LOG_LEVEL"`

	// RefreshCron is a cron schedule (e.g. "*/15 * * * *") for re-importing
	// subscriptions.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the last good body of every subscription.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	Calendars []CalendarConfig `yaml:"calendars" json:"calendars"`
	// Active names the calendar in use at startup. If empty, the first
	// configured calendar is used.
	Active string `yaml:"active" json:"active"`

	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen            = "127.0.0.1:8080"
	defaultTimezone          = "UTC"
	defaultRefreshCron       = "*/15 * * * *"
	defaultMaxOccurrences    = 5000
	defaultImportHorizonDays = 180
	defaultCalendarName      = "default"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:            defaultListen,
		Timezone:          defaultTimezone,
		AutoDecline:       false,
		MaxOccurrences:    defaultMaxOccurrences,
		ImportHorizonDays: defaultImportHorizonDays,
		LogLevel:          "info",
		RefreshCron:       defaultRefreshCron,
		Calendars:         []CalendarConfig{{Name: defaultCalendarName}},
		Active:            defaultCalendarName,
		Subscriptions:     []SubscriptionConfig{},
		BasicAuth:         nil,
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = defaultMaxOccurrences
	}
	if c.ImportHorizonDays <= 0 {
		c.ImportHorizonDays = defaultImportHorizonDays
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	for i := range c.Calendars {
		c.Calendars[i].Name = strings.TrimSpace(c.Calendars[i].Name)
		if c.Calendars[i].Timezone == "" {
			c.Calendars[i].Timezone = c.Timezone
		}
	}
	if c.Active == "" && len(c.Calendars) > 0 {
		c.Active = c.Calendars[0].Name
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
	for i := range c.Subscriptions {
		if c.Subscriptions[i].ID == "" {
			c.Subscriptions[i].ID = c.Subscriptions[i].URL
		}
	}
}

// Validate reports configuration that cannot be started from.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Calendars))
	for _, cc := range c.Calendars {
		if cc.Name == "" {
			return errors.New("calendar with empty name")
		}
		if seen[cc.Name] {
			return fmt.Errorf("calendar %q configured twice", cc.Name)
		}
		seen[cc.Name] = true
	}
	if c.Active != "" && !seen[c.Active] {
		return fmt.Errorf("active calendar %q is not configured", c.Active)
	}
	for _, s := range c.Subscriptions {
		if s.URL == "" {
			return fmt.Errorf("subscription %q has no url", s.ID)
		}
		if !seen[s.Calendar] {
			return fmt.Errorf("subscription %q targets unknown calendar %q", s.ID, s.Calendar)
		}
	}
	return nil
}

// ApplyEnv overrides fields from CALKEEPER_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is read and defaults are filled in.
//   - Environment overrides are applied last in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Even if save fails, return cfg with error so caller can decide.
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		cfg.Normalize()
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calkeeper-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
