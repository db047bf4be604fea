package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"poll mode", func(c *Config) { c.Tracker.Mode = ModePoll }, false},
		{"unknown mode", func(c *Config) { c.Tracker.Mode = "magic" }, true},
		{"interval too low", func(c *Config) { c.Tracker.PollInterval = 100 * time.Millisecond }, true},
		{"interval too high", func(c *Config) { c.Tracker.PollInterval = time.Hour }, true},
		{"port zero", func(c *Config) { c.Web.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Web.Port = 70000 }, true},
		{"empty host", func(c *Config) { c.Web.Host = "" }, true},
		{"empty pid file", func(c *Config) { c.Daemon.PIDFile = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("APPWATCH_DB_PATH", "/tmp/x.db")
	t.Setenv("APPWATCH_MODE", "POLL")
	t.Setenv("APPWATCH_POLL_INTERVAL", "12")
	t.Setenv("APPWATCH_WEB_PORT", "9999")
	t.Setenv("APPWATCH_EXCLUDE_APPS", "launcher, lockscreen")
	t.Setenv("APPWATCH_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, ModePoll, cfg.Tracker.Mode)
	assert.Equal(t, 12*time.Second, cfg.Tracker.PollInterval)
	assert.Equal(t, 9999, cfg.Web.Port)
	assert.Equal(t, []string{"launcher", "lockscreen"}, cfg.Report.ExcludeApps)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Tracker, cfg.Tracker)
	assert.Equal(t, def.Report.ExcludeApps, cfg.Report.ExcludeApps)
	assert.Equal(t, def.Web, cfg.Web)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appwatch.toml")
	data := `
[database]
path = "/var/lib/appwatch.db"

[tracker]
mode = "poll"
poll_interval = "1500ms"

[web]
port = 8123

[report]
exclude_apps = ["launcher"]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/appwatch.db", cfg.Database.Path)
	assert.Equal(t, ModePoll, cfg.Tracker.Mode)
	assert.Equal(t, 1500*time.Millisecond, cfg.Tracker.PollInterval)
	assert.Equal(t, 8123, cfg.Web.Port)
	assert.Equal(t, []string{"launcher"}, cfg.Report.ExcludeApps)
	assert.Equal(t, "localhost", cfg.Web.Host)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("web:\n  port: 8123\n"), 0o644))
	t.Setenv("APPWATCH_WEB_PORT", "8200")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8200, cfg.Web.Port)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	t.Setenv("APPWATCH_POLL_INTERVAL", "soon")
	_, err = Load("")
	assert.Error(t, err)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"5", 5 * time.Second, true},
		{"2m", 2 * time.Minute, true},
		{" 750ms ", 750 * time.Millisecond, true},
		{"", 0, false},
		{"later", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseInterval(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
