package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vshell/internal/daemon"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage daemon sessions",
	Long:  `Open, close and list shell sessions hosted by the daemon.`,
}

var sessionOpenCmd = &cobra.Command{
	Use:   "open",
	Short: "Open a new session",
	Args:  cobra.NoArgs,
	RunE:  runSessionOpen,
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a session and discard its namespace",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionClose,
}

var sessionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List open sessions",
	Args:    cobra.NoArgs,
	RunE:    runSessionList,
}

func init() {
	sessionCmd.AddCommand(sessionOpenCmd)
	sessionCmd.AddCommand(sessionCloseCmd)
	sessionCmd.AddCommand(sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionOpen(cmd *cobra.Command, args []string) error {
	resp, err := daemonRequest(context.Background(), (*daemon.Client).OpenSession)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.SessionID)
	return nil
}

func runSessionClose(cmd *cobra.Command, args []string) error {
	resp, err := daemonRequest(context.Background(), func(c *daemon.Client) (*daemon.Response, error) {
		return c.CloseSession(args[0])
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !daemon.IsDaemonRunning() {
		fmt.Fprintln(out, "No sessions (daemon not running)")
		return nil
	}

	client, err := daemon.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer client.Close()

	sessions, err := client.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions")
		return nil
	}

	for _, s := range sessions {
		fmt.Fprintln(out, yellow(s.ID))
		fmt.Fprintf(out, "Opened:   %s\n", s.CreatedAt.Format(time.DateTime))
		fmt.Fprintf(out, "Cwd:      %s\n", s.Cwd)
		fmt.Fprintf(out, "Entries:  %d\n", s.Entries)
		fmt.Fprintf(out, "Commands: %d\n", s.Commands)
		fmt.Fprintf(out, "Theme:    %s\n", s.Theme)
		fmt.Fprintln(out)
	}
	return nil
}
