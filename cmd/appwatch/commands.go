package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/actionsum/appwatch/internal/change"
	"github.com/actionsum/appwatch/internal/config"
	"github.com/actionsum/appwatch/internal/daemon"
	"github.com/actionsum/appwatch/internal/database"
	"github.com/actionsum/appwatch/internal/history"
	"github.com/actionsum/appwatch/internal/logger"
	"github.com/actionsum/appwatch/internal/metrics"
	"github.com/actionsum/appwatch/internal/relay"
	"github.com/actionsum/appwatch/internal/reporter"
	"github.com/actionsum/appwatch/internal/tracker"
	"github.com/actionsum/appwatch/internal/web"
	"github.com/actionsum/appwatch/pkg/detector"
	"github.com/actionsum/appwatch/version"
)

const shutdownTimeout = 10 * time.Second

// command carries what every subcommand needs to find its configuration.
type command struct {
	flags *GlobalFlags
}

func (c command) config() (*config.Config, error) {
	cfg, err := config.Load(c.flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the history store. The returned func closes the database.
func openStore(cfg *config.Config, log *slog.Logger) (*history.Store, func(), error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return history.New(database.NewPreferences(db), log), func() { _ = db.Close() }, nil
}

func (c command) Start(out io.Writer, flags ObserverFlags, withWeb bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return fmt.Errorf("failed to check observer status: %w", err)
	}
	if running {
		return fmt.Errorf("%w (PID: %d)", daemon.ErrAlreadyRunning, pid)
	}

	if flags.Detach && os.Getenv(daemonChildEnv) != "1" {
		logFile, err := daemonLogFile(cfg)
		if err != nil {
			return err
		}
		childPID, err := detach(logFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Observer started (PID: %d)\n", childPID)
		if withWeb {
			fmt.Fprintf(out, "Web API available at: http://%s:%d\n", cfg.Web.Host, webPort(cfg, flags))
		}
		fmt.Fprintf(out, "Logs: %s\n", logFile)
		return nil
	}

	return runObserver(cfg, dm, flags, withWeb)
}

func webPort(cfg *config.Config, flags ObserverFlags) int {
	if flags.Port > 0 {
		return flags.Port
	}
	return cfg.Web.Port
}

// runObserver wires source, detector, store and relay together and blocks
// until SIGINT/SIGTERM or a component fails.
func runObserver(cfg *config.Config, dm *daemon.Daemon, flags ObserverFlags, withWeb bool) error {
	log, closer := logger.New(logger.Config{
		File:  cfg.Log.File,
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
	})
	defer closer.Close()
	slog.SetDefault(log)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("failed to register metrics", "error", err)
	}

	store, closeDB, err := openStore(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer closeDB()

	src, err := detector.New(log)
	if err != nil {
		return fmt.Errorf("failed to initialize window source: %w", err)
	}
	defer src.Close()

	if err := dm.Acquire(); err != nil {
		return err
	}
	defer func() { _ = dm.RemovePID() }()

	rl := relay.New(log)
	det := change.NewDetector(store, rl, change.WithLogger(log))
	svc := tracker.NewService(cfg, det, store, src, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting observer", "display_server", src.DisplayServer(), "mode", cfg.Tracker.Mode)
	log.Debug(cfg.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := svc.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if withWeb {
		srv := web.NewServer(cfg, svc, dm, web.NewHub(rl, log), flags.Port, log)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("observer stopped with error", "error", err)
		return err
	}

	log.Info("observer stopped", "changes", det.Changes())
	return nil
}

func (c command) Stop(out io.Writer) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	dm := daemon.New(cfg.Daemon.PIDFile)

	st, err := dm.Status()
	if err != nil {
		return fmt.Errorf("failed to check observer status: %w", err)
	}
	if !st.Active {
		fmt.Fprintln(out, "Observer is not running")
		return nil
	}

	fmt.Fprintf(out, "Stopping observer (PID: %d)...\n", st.PID)
	if err := dm.Stop(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Observer stopped")
	return nil
}

func (c command) Status(out io.Writer) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}

	st, err := daemon.New(cfg.Daemon.PIDFile).Status()
	if err != nil {
		return fmt.Errorf("failed to check observer status: %w", err)
	}

	if st.Active {
		fmt.Fprintf(out, "Status: Running (PID: %d)\n", st.PID)
		fmt.Fprintf(out, "Mode: %s\n", cfg.Tracker.Mode)
	} else {
		fmt.Fprintln(out, "Status: Not running")
	}

	store, closeDB, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer closeDB()

	state := store.Snapshot()
	if state.CurrentApp != "" {
		fmt.Fprintf(out, "Last app: %s (%s)\n", state.CurrentApp, formatMillis(state.LastUpdate))
	}
	fmt.Fprintf(out, "History entries: %d/%d\n", len(state.History), history.MaxEntries)
	return nil
}

func (c command) Current(out io.Writer, flags OutputFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	store, closeDB, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer closeDB()

	app, ok := store.CurrentApp()
	if flags.JSON {
		resp := map[string]interface{}{"appId": nil, "lastUpdate": nil}
		if ok {
			resp["appId"] = app
		}
		if ts, ok := store.LastUpdate(); ok {
			resp["lastUpdate"] = ts
		}
		return writeJSON(out, resp)
	}

	if !ok {
		fmt.Fprintln(out, "No foreground app recorded")
		return nil
	}
	ts, _ := store.LastUpdate()
	fmt.Fprintf(out, "%s (since %s)\n", app, formatMillis(ts))
	return nil
}

func (c command) History(out io.Writer, flags OutputFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	store, closeDB, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer closeDB()

	events := store.History()
	if flags.Limit > 0 && len(events) > flags.Limit {
		events = events[len(events)-flags.Limit:]
	}

	if flags.JSON {
		return writeJSON(out, events)
	}

	if len(events) == 0 {
		fmt.Fprintln(out, "No app changes recorded")
		return nil
	}
	for _, ev := range events {
		fmt.Fprintf(out, "%s  %s\n", formatMillis(ev.Timestamp), ev.AppID)
	}
	return nil
}

func (c command) Report(out io.Writer, period string, flags OutputFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	store, closeDB, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer closeDB()

	rep := reporter.New(cfg, store)
	report, err := rep.GenerateReport(period)
	if err != nil {
		return err
	}

	if flags.JSON {
		s, err := rep.FormatReportJSON(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
		return nil
	}
	fmt.Fprint(out, rep.FormatReportText(report))
	return nil
}

func (c command) Clear(in io.Reader, out io.Writer, yes bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}

	if !yes {
		fmt.Fprint(out, "This will delete the recorded app and its history. Are you sure? (yes/no): ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "yes" && answer != "y" {
			fmt.Fprintln(out, "Operation cancelled")
			return nil
		}
	}

	store, closeDB, err := openStore(cfg, nil)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintln(out, "History cleared")
	return nil
}

func printVersion(out io.Writer) {
	fmt.Fprintf(out, "%s version %s\n", appName, version.Version)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04:05")
}
