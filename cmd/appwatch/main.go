package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "appwatch"

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every command
type GlobalFlags struct {
	ConfigPath string
}

// ObserverFlags holds flags for start and serve
type ObserverFlags struct {
	Detach bool
	Port   int
}

// OutputFlags holds flags for the query commands
type OutputFlags struct {
	JSON  bool
	Limit int
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	cmd := command{flags: globalFlags}

	root := &cobra.Command{
		Use:   appName,
		Short: "Foreground application observer",
		Long: `appwatch watches the X11 active window, records every change of the
foreground application in a bounded history and pushes each change to
attached subscribers.

Examples:
  appwatch start --detach          # observe in the background
  appwatch serve                   # observe and serve the HTTP/WebSocket API
  appwatch current
  appwatch history --json
  appwatch report day
  appwatch stop

Environment variables (APPWATCH_ prefix) override the config file:
  APPWATCH_DB_PATH, APPWATCH_MODE, APPWATCH_POLL_INTERVAL, APPWATCH_PID_FILE,
  APPWATCH_EXCLUDE_APPS, APPWATCH_WEB_HOST, APPWATCH_WEB_PORT,
  APPWATCH_LOG_FILE, APPWATCH_LOG_LEVEL, APPWATCH_LOG_JSON`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to config file (TOML, YAML or JSON)")

	root.AddCommand(
		createStartCommand(cmd),
		createServeCommand(cmd),
		createStopCommand(cmd),
		createStatusCommand(cmd),
		createCurrentCommand(cmd),
		createHistoryCommand(cmd),
		createReportCommand(cmd),
		createClearCommand(cmd),
		createVersionCommand(),
	)

	return root
}

func createStartCommand(c command) *cobra.Command {
	flags := &ObserverFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the observer",
		Long: `Start observing foreground application changes. With --detach the
observer re-executes itself in a new session and the command returns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(cmd.OutOrStdout(), *flags, false)
		},
	}
	cmd.Flags().BoolVarP(&flags.Detach, "detach", "d", false, "run in the background")
	return cmd
}

func createServeCommand(c command) *cobra.Command {
	flags := &ObserverFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the observer with the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Start(cmd.OutOrStdout(), *flags, true)
		},
	}
	cmd.Flags().BoolVarP(&flags.Detach, "detach", "d", false, "run in the background")
	cmd.Flags().IntVar(&flags.Port, "port", 0, "override the configured web port")
	return cmd
}

func createStopCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running observer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Stop(cmd.OutOrStdout())
		},
	}
}

func createStatusCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the observer is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Status(cmd.OutOrStdout())
		},
	}
}

func createCurrentCommand(c command) *cobra.Command {
	flags := &OutputFlags{}
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Print the last recorded foreground application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Current(cmd.OutOrStdout(), *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print JSON")
	return cmd
}

func createHistoryCommand(c command) *cobra.Command {
	flags := &OutputFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the recorded application changes, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.History(cmd.OutOrStdout(), *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print JSON")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "n", 0, "only the newest N entries")
	return cmd
}

func createReportCommand(c command) *cobra.Command {
	flags := &OutputFlags{}
	cmd := &cobra.Command{
		Use:   "report [period]",
		Short: "Summarize time spent per application",
		Long: `Summarize time spent per application from the recorded history.
Period is one of all, hour, day (default) or week.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := "day"
			if len(args) == 1 {
				period = args[0]
			}
			return c.Report(cmd.OutOrStdout(), period, *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "print JSON")
	return cmd
}

func createClearCommand(c command) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the recorded state and history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Clear(cmd.InOrStdin(), cmd.OutOrStdout(), yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}
