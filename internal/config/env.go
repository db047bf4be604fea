package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBindings maps config keys to their environment variables.
var envBindings = map[string]string{
	"database.path":         "APPWATCH_DB_PATH",
	"tracker.mode":          "APPWATCH_MODE",
	"tracker.poll_interval": "APPWATCH_POLL_INTERVAL",
	"daemon.pid_file":       "APPWATCH_PID_FILE",
	"report.exclude_apps":   "APPWATCH_EXCLUDE_APPS",
	"web.host":              "APPWATCH_WEB_HOST",
	"web.port":              "APPWATCH_WEB_PORT",
	"log.file":              "APPWATCH_LOG_FILE",
	"log.level":             "APPWATCH_LOG_LEVEL",
	"log.json":              "APPWATCH_LOG_JSON",
}

// Load builds a Config from defaults, an optional config file (TOML, YAML
// or JSON, picked by extension) and APPWATCH_* environment variables, in
// increasing order of precedence.
func Load(file string) (*Config, error) {
	cfg := Default()
	v := newViper(cfg)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	if err := apply(v, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("tracker.mode", cfg.Tracker.Mode)
	v.SetDefault("tracker.poll_interval", cfg.Tracker.PollInterval.String())
	v.SetDefault("daemon.pid_file", cfg.Daemon.PIDFile)
	v.SetDefault("report.exclude_apps", cfg.Report.ExcludeApps)
	v.SetDefault("web.host", cfg.Web.Host)
	v.SetDefault("web.port", cfg.Web.Port)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

func apply(v *viper.Viper, cfg *Config) error {
	cfg.Database.Path = v.GetString("database.path")
	cfg.Tracker.Mode = strings.ToLower(strings.TrimSpace(v.GetString("tracker.mode")))
	cfg.Daemon.PIDFile = v.GetString("daemon.pid_file")
	cfg.Web.Host = v.GetString("web.host")
	cfg.Log.File = v.GetString("log.file")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.JSON = v.GetBool("log.json")

	interval, err := parseInterval(v.GetString("tracker.poll_interval"))
	if err != nil {
		return err
	}
	cfg.Tracker.PollInterval = interval

	port, err := strconv.Atoi(strings.TrimSpace(v.GetString("web.port")))
	if err != nil {
		return fmt.Errorf("invalid web port: %w", err)
	}
	cfg.Web.Port = port

	cfg.Report.ExcludeApps = splitList(v.GetStringSlice("report.exclude_apps"))
	return nil
}

// parseInterval accepts plain seconds ("5") or a Go duration ("1500ms").
func parseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if seconds, err := strconv.Atoi(s); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid poll interval %q: %w", s, err)
	}
	return d, nil
}

// splitList flattens comma separated entries, as env vars arrive as a
// single string.
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
