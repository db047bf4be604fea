package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/actionsum/appwatch/internal/config"
)

const (
	// daemonChildEnv marks the re-executed background process.
	daemonChildEnv = "APPWATCH_DAEMON_CHILD"
	logFileEnv     = "APPWATCH_LOG_FILE"
)

// daemonLogFile is where a detached observer writes its log. A detached
// process has no stderr, so an unset log file falls back to
// ~/.config/appwatch/appwatch.log.
func daemonLogFile(cfg *config.Config) (string, error) {
	if cfg.Log.File != "" {
		return cfg.Log.File, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".config", appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return filepath.Join(dir, appName+".log"), nil
}

// childEnv is the environment of the detached process.
func childEnv(logFile string) []string {
	return append(os.Environ(), daemonChildEnv+"=1", logFileEnv+"="+logFile)
}

// detach re-executes the current command line in a new session with
// stdio closed and returns the child's PID.
func detach(logFile string) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to locate executable: %w", err)
	}

	procAttr := &os.ProcAttr{
		Env:   childEnv(logFile),
		Files: []*os.File{nil, nil, nil},
		Sys: &syscall.SysProcAttr{
			Setsid: true,
		},
	}

	process, err := os.StartProcess(exe, os.Args, procAttr)
	if err != nil {
		return 0, fmt.Errorf("failed to start observer process: %w", err)
	}
	pid := process.Pid
	_ = process.Release()
	return pid, nil
}
