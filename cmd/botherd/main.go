package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/botherd/internal/ipc"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all subcommands
type GlobalFlags struct {
	ConfigPath string
}

// RunFlags holds flags for the run command
type RunFlags struct {
	Quiet bool
}

// RestartFlags holds flags for the restart command
type RestartFlags struct {
	Addr string
}

// APIFlags holds flags for commands that query a running launcher
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// buildRoot creates the root command with its subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	runFlags := &RunFlags{}
	restartFlags := &RestartFlags{}
	statusFlags := &APIFlags{}
	logsFlags := &APIFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createRunCommand(globalFlags, runFlags),
		createRestartCommand(restartFlags),
		createStatusCommand(statusFlags),
		createLogsCommand(logsFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "botherd",
		Short: "Bot process launcher and supervisor",
		Long: `Botherd runs one bot process, captures its output to a session log,
and listens for restart requests on a local TCP port.

Examples:
  botherd run --config=botherd.toml
  botherd restart                     # Ask the running launcher to restart the bot
  botherd status --api-url=http://127.0.0.1:9880`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")

	return root
}

func createRunCommand(globalFlags *GlobalFlags, runFlags *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Launch and supervise the bot process",
		Long: `Run starts the configured bot process and supervises it until
interrupted. Bot output is mirrored to stdout, captured to the session
log file, and kept in an in-memory ring for the status API.

Examples:
  botherd run --config=botherd.toml
  botherd run --quiet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLauncher(globalFlags.ConfigPath, *runFlags)
		},
	}

	cmd.Flags().BoolVar(&runFlags.Quiet, "quiet", false, "do not mirror bot output to stdout")

	return cmd
}

func createRestartCommand(flags *RestartFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Ask a running launcher to restart its bot",
		Long: `Restart connects to the launcher's restart port and requests a bot
restart. The launcher itself keeps running.

Examples:
  botherd restart
  botherd restart --addr=127.0.0.1:9876`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestRestart(*flags)
		},
	}

	cmd.Flags().StringVar(&flags.Addr, "addr", ipc.DefaultAddr, "restart listener address")

	return cmd
}

func createStatusCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the supervised bot's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(*flags, "/status")
		},
	}

	addAPIFlags(cmd, flags)

	return cmd
}

func createLogsCommand(flags *APIFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the recent bot output kept by the launcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryAPI(*flags, "/logs")
		},
	}

	addAPIFlags(cmd, flags)

	return cmd
}

func addAPIFlags(cmd *cobra.Command, flags *APIFlags) {
	cmd.Flags().StringVar(&flags.APIUrl, "api-url", "", "launcher API URL (e.g. http://127.0.0.1:9880)")
	cmd.Flags().DurationVar(&flags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}
