package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vshell/internal/daemon"
	"vshell/internal/util"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Daemon management commands",
	Long:  `Commands for controlling the vshell daemon, which hosts shared sessions.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	Long:  `Starts the vshell daemon in the background.`,
	Args:  cobra.NoArgs,
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	Long:  `Stops the running vshell daemon. Open sessions and exports are discarded.`,
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  `Shows whether the daemon is running, its sessions and its exports.`,
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var daemonConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure daemon settings",
	Long: `Configure persistent daemon settings.

Settings are stored in ~/.vshell/settings.yaml and take effect on next daemon start.

Examples:
  # Enable trace logging
  vshell daemon config --logging trace

  # Disable logging
  vshell daemon config --logging none

  # Stop recording commands
  vshell daemon config --journal off

  # Show current configuration
  vshell daemon config`,
	Args: cobra.NoArgs,
	RunE: runDaemonConfig,
}

var daemonForeground bool
var daemonLogLevel string
var daemonRestart bool
var configLogLevel string
var configJournal string
var configExportAddr string

func init() {
	daemonStartCmd.Flags().BoolVarP(&daemonForeground, "foreground", "f", false, "Run in foreground")
	daemonStartCmd.Flags().StringVar(&daemonLogLevel, "logging", "", "Log level override for this run")
	daemonStartCmd.Flags().BoolVar(&daemonRestart, "restart", false, "Restart daemon if already running (no confirmation)")
	daemonConfigCmd.Flags().StringVar(&configLogLevel, "logging", "", "Log level: trace, debug, info, warn, none")
	daemonConfigCmd.Flags().StringVar(&configJournal, "journal", "", "Record executed commands: on, off")
	daemonConfigCmd.Flags().StringVar(&configExportAddr, "export-addr", "", "Default NFS listen address")
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonConfigCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if daemonForeground {
		d := daemon.New()
		d.LogLevel = daemonLogLevel
		return d.Run()
	}

	if daemon.IsDaemonRunning() {
		pid, _ := daemon.GetPID()
		if !daemonRestart {
			fmt.Fprintf(out, "Daemon already running (PID %d)\n", pid)
			fmt.Fprintln(out, "Use --restart to restart the daemon")
			return nil
		}
		fmt.Fprintf(out, "Daemon already running (PID %d), restarting...\n", pid)
		if err := stopDaemonAndWait(); err != nil {
			return fmt.Errorf("failed to stop daemon for restart: %w", err)
		}
	}

	exe, err := util.GetExecutablePath()
	if err != nil {
		return err
	}

	// The background process re-enters this command with --foreground
	cmdArgs := []string{"daemon", "start", "--foreground"}
	if daemonLogLevel != "" {
		cmdArgs = append(cmdArgs, "--logging", daemonLogLevel)
	}
	if _, err := util.StartBackgroundProcess(exe, cmdArgs, nil); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	if err := util.PollUntil(context.Background(), util.FastPollConfig(), daemon.IsDaemonRunning); err != nil {
		return fmt.Errorf("daemon did not start")
	}
	pid, _ := daemon.GetPID()
	fmt.Fprintf(out, "Daemon started (PID %d)\n", pid)
	return nil
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !daemon.IsDaemonRunning() {
		fmt.Fprintln(out, "Daemon not running")
		// Still do cleanup in case there are stale artifacts
		if result := daemon.CleanupStale(); result.CleanedPidFile || result.CleanedSocket {
			fmt.Fprintln(out, daemon.FormatCleanupResult(result))
		}
		return nil
	}

	if err := stopDaemonAndWait(); err != nil {
		return err
	}

	fmt.Fprintln(out, "Daemon stopped")
	return nil
}

// stopDaemonAndWait asks the daemon to stop and waits for it to exit,
// killing it if it does not stop in time.
func stopDaemonAndWait() error {
	pid, _ := daemon.GetPID()

	gracefulStop := func() error {
		client, err := daemon.Connect()
		if err != nil {
			return err
		}
		defer client.Close()

		resp, err := client.Stop()
		if err != nil {
			return fmt.Errorf("stop request failed: %w", err)
		}
		if !resp.Success {
			return fmt.Errorf("%s", resp.Error)
		}
		return nil
	}

	err := util.StopProcess(context.Background(), pid, util.ProcessConfig{}, gracefulStop, func() bool {
		return daemon.IsDaemonRunning() || util.IsProcessRunning(pid)
	})
	daemon.CleanupStale()
	return err
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	settings, err := daemon.LoadGlobalSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if !daemon.IsDaemonRunning() {
		fmt.Fprintln(out, "Daemon: not running")
		printSettings(out, settings, "")
		return nil
	}

	client, err := daemon.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer client.Close()

	resp, err := client.Status()
	if err != nil {
		return fmt.Errorf("status request failed: %w", err)
	}

	fmt.Fprintf(out, "Daemon: running (PID %d)\n", resp.PID)
	printSettings(out, settings, "")
	fmt.Fprintf(out, "Sessions: %d\n", len(resp.Sessions))
	for _, s := range resp.Sessions {
		fmt.Fprintf(out, "  %s  %s  (%d commands)\n", s.ID, s.Cwd, s.Commands)
	}
	fmt.Fprintf(out, "Exports: %d\n", len(resp.Exports))
	for _, e := range resp.Exports {
		fmt.Fprintf(out, "  %s  %s://%s\n", e.SessionID, e.Type, e.Addr)
	}
	return nil
}

func printSettings(out io.Writer, settings *daemon.GlobalSettings, indent string) {
	logLevel := settings.NormalizedLogLevel()
	if logLevel == "" {
		logLevel = "none"
	}
	fmt.Fprintf(out, "%sLog level: %s\n", indent, logLevel)
	fmt.Fprintf(out, "%sJournal: %s\n", indent, onOff(settings.Journal))
	fmt.Fprintf(out, "%sExport address: %s\n", indent, settings.ExportAddr)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func runDaemonConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	settings, err := daemon.LoadGlobalSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// If no flags provided, show current config
	if configLogLevel == "" && configJournal == "" && configExportAddr == "" {
		fmt.Fprintln(out, "Current daemon configuration:")
		printSettings(out, settings, "  ")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To change settings:")
		fmt.Fprintln(out, "  vshell daemon config --logging <level>")
		fmt.Fprintln(out, "  vshell daemon config --journal <on|off>")
		fmt.Fprintln(out, "  vshell daemon config --export-addr <host:port>")
		return nil
	}

	if configLogLevel != "" {
		if err := applyLoggingConfig(settings, configLogLevel); err != nil {
			return err
		}
	}
	if configJournal != "" {
		switch strings.ToLower(configJournal) {
		case "on":
			settings.Journal = true
		case "off":
			settings.Journal = false
		default:
			return fmt.Errorf("invalid --journal value %q: must be 'on' or 'off'", configJournal)
		}
	}
	if configExportAddr != "" {
		settings.ExportAddr = configExportAddr
	}

	if err := daemon.SaveGlobalSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	fmt.Fprintln(out, "Settings saved:")
	printSettings(out, settings, "  ")
	if daemon.IsDaemonRunning() {
		fmt.Fprintln(out, "Restart the daemon for the new settings to take effect:")
		fmt.Fprintln(out, "  vshell daemon start --restart")
	}
	return nil
}

// applyLoggingConfig validates and stores a --logging value
func applyLoggingConfig(settings *daemon.GlobalSettings, value string) error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "none": true,
	}
	normalizedLevel := strings.ToLower(value)
	if normalizedLevel == "off" {
		normalizedLevel = "none"
	}
	if !validLevels[normalizedLevel] {
		return fmt.Errorf("invalid log level %q: must be one of trace, debug, info, warn, none", value)
	}

	if normalizedLevel == "none" {
		settings.LogLevel = "off"
	} else {
		settings.LogLevel = normalizedLevel
	}
	return nil
}
