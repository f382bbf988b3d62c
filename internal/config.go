package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/robfig/cron/v3"

	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/scheduler"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Tracker TrackerConfig     `yaml:"tracker"`
	Inbox   InboxConfig       `yaml:"inbox"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Tracker.Validate(); err != nil {
		return err
	}
	return c.Inbox.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig holds the snapshot database and data directory locations.
// BackupDir is relative to DataDir.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	DataDir    string `yaml:"data_dir"`
	BackupDir  string `yaml:"backup_dir"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SQLitePath, validation.Required),
		validation.Field(&c.DataDir, validation.Required),
		validation.Field(&c.BackupDir, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TrackerConfig holds engine limits, seeded setting defaults and job schedules.
// An empty schedule disables that job.
type TrackerConfig struct {
	RetentionCap      int           `yaml:"retention_cap"`
	ItemsPerPage      int           `yaml:"items_per_page"`
	ReminderDays      int           `yaml:"reminder_days"`
	ReminderSchedule  string        `yaml:"reminder_schedule"`
	BackupSchedule    string        `yaml:"backup_schedule"`
	DashboardThrottle time.Duration `yaml:"dashboard_throttle"`
}

// Validate validates the tracker configuration.
func (c *TrackerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RetentionCap, validation.Required, validation.Min(1)),
		validation.Field(&c.ItemsPerPage, validation.Min(0)),
		validation.Field(&c.ReminderDays, validation.Min(0)),
		validation.Field(&c.ReminderSchedule, validation.By(cronSpec)),
		validation.Field(&c.BackupSchedule, validation.By(cronSpec)),
		validation.Field(&c.DashboardThrottle, validation.Min(time.Duration(0))),
	)
}

func cronSpec(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return fmt.Errorf("invalid cron spec: %w", err)
	}
	return nil
}

// InboxConfig holds the watched import directory. Dir is relative to
// Storage.DataDir.
type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Mode    string `yaml:"mode"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Mode, validation.By(func(v any) error {
			_, err := lifecycle.ParseImportMode(v.(string))
			return err
		})),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			SQLitePath: "./lapse.db",
			DataDir:    "./data",
			BackupDir:  "backups",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Tracker: TrackerConfig{
			RetentionCap:      lifecycle.DefaultRetention,
			ReminderSchedule:  scheduler.DefaultReminderSpec,
			BackupSchedule:    scheduler.DefaultBackupSpec,
			DashboardThrottle: 2 * time.Second,
		},
		Inbox: InboxConfig{
			Dir:  "inbox",
			Mode: string(lifecycle.ImportMerge),
		},
	}
}
