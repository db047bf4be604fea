package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Tracker modes.
const (
	ModeEvents = "events" // subscribe to display server notifications
	ModePoll   = "poll"   // sample the active window on a ticker
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Tracker configuration
	Tracker TrackerConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Report configuration
	Report ReportConfig

	// Web server configuration
	Web WebConfig

	// Log configuration
	Log LogConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string // Path to SQLite database file
}

// TrackerConfig holds tracking behavior configuration
type TrackerConfig struct {
	Mode            string        // ModeEvents or ModePoll
	PollInterval    time.Duration // How often to sample in poll mode
	MinPollInterval time.Duration // Minimum allowed poll interval
	MaxPollInterval time.Duration // Maximum allowed poll interval
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string // Path to PID file; its presence marks the observer as registered
}

// ReportConfig holds report generation configuration
type ReportConfig struct {
	ExcludeApps []string // Substrings of app ids left out of summaries
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string // Host to bind web server to
	Port int    // Port for web server
}

// LogConfig holds logging configuration
type LogConfig struct {
	File  string // Empty logs to stderr
	Level string
	JSON  bool
}

// DefaultExcludeApps are shells, launchers and lock screens that take focus
// briefly without being used.
var DefaultExcludeApps = []string{
	"gnome-shell",
	"plasmashell",
	"xfdesktop",
	"launcher",
	"xscreensaver",
	"i3lock",
	"polkit",
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "", // Empty means use default ~/.config/appwatch/appwatch.db
		},
		Tracker: TrackerConfig{
			Mode:            ModeEvents,
			PollInterval:    5 * time.Second,
			MinPollInterval: 1 * time.Second,
			MaxPollInterval: 300 * time.Second,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/appwatch-%d.pid", os.Getuid()),
		},
		Report: ReportConfig{
			ExcludeApps: append([]string(nil), DefaultExcludeApps...),
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + os.Getuid()%50000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Tracker.Mode {
	case ModeEvents, ModePoll:
	default:
		return fmt.Errorf("tracker mode must be %q or %q, got %q", ModeEvents, ModePoll, c.Tracker.Mode)
	}

	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}

	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Database:
    Path: %s
  Tracker:
    Mode: %s
    Poll Interval: %v
  Daemon:
    PID File: %s
  Report:
    Exclude Apps: %s
  Web:
    Host: %s
    Port: %d
  Log:
    File: %s
    Level: %s`,
		c.Database.Path,
		c.Tracker.Mode,
		c.Tracker.PollInterval,
		c.Daemon.PIDFile,
		strings.Join(c.Report.ExcludeApps, ", "),
		c.Web.Host,
		c.Web.Port,
		c.Log.File,
		c.Log.Level,
	)
}
