package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vshell/internal/daemon"
	"vshell/internal/storage"
)

var (
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recorded commands",
	Long: `Shows the most recent commands recorded in the journal, oldest first.

Examples:
  vshell journal
  vshell journal --limit 50
  vshell journal --session 5f0c...`,
	Args: cobra.NoArgs,
	RunE: runJournal,
}

var journalSession string
var journalLimit int

func init() {
	journalCmd.Flags().StringVarP(&journalSession, "session", "s", "", "Only show commands of this session")
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	rootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(daemon.JournalPath()); os.IsNotExist(err) {
		fmt.Fprintln(out, "No journal entries")
		return nil
	}

	journal, err := storage.OpenJournalWithContext(daemon.JournalPath(), storage.DBContextCLI)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	ctx := context.Background()
	entries, err := journal.List(ctx, journalSession, journalLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No journal entries")
		return nil
	}

	for _, e := range entries {
		sid := e.SessionID
		if len(sid) > 8 {
			sid = sid[:8]
		}
		fmt.Fprintf(out, "%s (%s)\n", yellow(fmt.Sprintf("entry %d", e.Seq)), cyan("session "+sid))
		fmt.Fprintf(out, "Date:   %s\n\n", e.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))
		fmt.Fprintf(out, "    $ %s\n", e.Input)
		if e.Output != "" {
			for _, line := range strings.Split(e.Output, "\n") {
				fmt.Fprintf(out, "    %s\n", line)
			}
		}
		fmt.Fprintln(out)
	}

	total, err := journal.Count(ctx, journalSession)
	if err == nil && total > len(entries) {
		fmt.Fprintf(out, "(%d of %d entries shown)\n", len(entries), total)
	}
	return nil
}
