package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actionsum/appwatch/internal/config"
	"github.com/actionsum/appwatch/internal/models"
)

func setupEnv(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("APPWATCH_DB_PATH", filepath.Join(dir, "appwatch.db"))
	t.Setenv("APPWATCH_PID_FILE", filepath.Join(dir, "appwatch.pid"))

	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func seed(t *testing.T, cfg *config.Config, apps ...string) {
	t.Helper()
	store, closeDB, err := openStore(cfg, nil)
	require.NoError(t, err)
	defer closeDB()
	for i, app := range apps {
		require.NoError(t, store.RecordChange(app, int64(i+1)*60_000))
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	root := buildRoot()
	want := []string{"start", "serve", "stop", "status", "current", "history", "report", "clear", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "appwatch version")
}

func TestCurrentAndHistory(t *testing.T) {
	cfg := setupEnv(t)

	out, err := run(t, "", "current")
	require.NoError(t, err)
	assert.Contains(t, out, "No foreground app recorded")

	seed(t, cfg, "firefox", "code", "term")

	out, err = run(t, "", "current", "--json")
	require.NoError(t, err)
	var current map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &current))
	assert.Equal(t, "term", current["appId"])
	assert.EqualValues(t, 180_000, current["lastUpdate"])

	out, err = run(t, "", "history", "--json", "--limit", "2")
	require.NoError(t, err)
	var events []models.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 2)
	assert.Equal(t, "code", events[0].AppID)
	assert.Equal(t, "term", events[1].AppID)

	out, err = run(t, "", "history")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestReport(t *testing.T) {
	cfg := setupEnv(t)
	seed(t, cfg, "firefox", "code")

	out, err := run(t, "", "report", "all", "--json")
	require.NoError(t, err)
	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "all", report.Period)
	assert.Len(t, report.Apps, 2)

	_, err = run(t, "", "report", "fortnight")
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	cfg := setupEnv(t)
	seed(t, cfg, "firefox")

	out, err := run(t, "no\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Operation cancelled")

	out, err = run(t, "", "current")
	require.NoError(t, err)
	assert.Contains(t, out, "firefox")

	out, err = run(t, "", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "History cleared")

	out, err = run(t, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No app changes recorded")
}

func TestStatusAndStopWhenNotRunning(t *testing.T) {
	cfg := setupEnv(t)
	seed(t, cfg, "firefox")

	out, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: Not running")
	assert.Contains(t, out, "Last app: firefox")
	assert.Contains(t, out, "History entries: 1/100")

	out, err = run(t, "", "stop")
	require.NoError(t, err)
	assert.Contains(t, out, "Observer is not running")
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("APPWATCH_MODE", "telepathy")

	_, err := run(t, "", "current")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestDaemonLogFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name       string
		configured string
		want       string
	}{
		{"defaults under home", "", filepath.Join(home, ".config", "appwatch", "appwatch.log")},
		{"configured file wins", "/var/log/appwatch.log", "/var/log/appwatch.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Log.File = tt.configured

			got, err := daemonLogFile(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := os.Stat(filepath.Join(home, ".config", "appwatch"))
	assert.NoError(t, err, "log directory is created")
}

func TestChildEnvCarriesLogFile(t *testing.T) {
	env := childEnv("/tmp/observer.log")
	assert.Contains(t, env, "APPWATCH_DAEMON_CHILD=1")
	assert.Contains(t, env, "APPWATCH_LOG_FILE=/tmp/observer.log")

	// the child's own config load must pick the file up
	t.Setenv("APPWATCH_LOG_FILE", "/tmp/observer.log")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/observer.log", cfg.Log.File)
}
