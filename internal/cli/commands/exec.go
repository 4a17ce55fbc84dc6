package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vshell/internal/daemon"
)

var execCmd = &cobra.Command{
	Use:   "exec [--session id] [-- command line]",
	Short: "Run shell commands without a prompt",
	Long: `Runs one command line, or every line of stdin when none is given.

Without --session the commands run in a fresh local session that is
discarded afterwards.

Examples:
  vshell exec -- ls /home
  vshell exec --session 5f0c... -- cat projects.txt
  printf 'mkdir tmp\ncd tmp\npwd\n' | vshell exec`,
	RunE: runExec,
}

var execSession string

func init() {
	execCmd.Flags().StringVarP(&execSession, "session", "s", "", "Daemon session to run in")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := daemon.LoadGlobalSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	var runner Runner
	if execSession != "" {
		runner = &daemonRunner{id: execSession}
	} else {
		s, cleanup, err := openLocalSession(true)
		if err != nil {
			return err
		}
		defer cleanup()
		runner = &localRunner{s: s}
	}

	t := newTerminal(cmd.OutOrStdout(), settings)
	if len(args) > 0 {
		return runLines(ctx, t, runner, []string{joinArgs(args)})
	}

	var lines []string
	in := newStdinReader(cmd.InOrStdin())
	for {
		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	return runLines(ctx, t, runner, lines)
}

// runLines runs each non-empty line and renders its output.
func runLines(ctx context.Context, t *Terminal, runner Runner, lines []string) error {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		res, err := runner.Exec(ctx, line)
		if err != nil {
			return err
		}
		if err := t.Render(res.Output); err != nil {
			return err
		}
	}
	return nil
}

// joinArgs rebuilds a command line from already-split arguments, quoting
// the ones the shell tokenizer would otherwise split or unquote.
func joinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\#") {
			quoted[i] = arg
			continue
		}
		escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(arg)
		quoted[i] = `"` + escaped + `"`
	}
	return strings.Join(quoted, " ")
}
