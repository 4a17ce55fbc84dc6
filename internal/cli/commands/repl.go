package commands

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vshell/internal/daemon"
	"vshell/internal/session"
	"vshell/internal/shell"
	"vshell/internal/storage"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive shell",
	Long: `Starts an interactive shell over a fresh in-memory namespace.

With --daemon the session lives in the daemon and survives this process;
pass --session to reattach to an existing one.

Type 'help' for the shell's commands and 'exit' to leave.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

var replDaemon bool
var replSession string
var replNoJournal bool
var downloadDir string

func init() {
	replCmd.Flags().BoolVarP(&replDaemon, "daemon", "d", false, "Run the session in the daemon")
	replCmd.Flags().StringVarP(&replSession, "session", "s", "", "Attach to an existing daemon session")
	replCmd.Flags().BoolVar(&replNoJournal, "no-journal", false, "Do not record commands of a local session")
	rootCmd.PersistentFlags().StringVar(&downloadDir, "download-dir", ".", "Directory for files saved by downld")
	rootCmd.AddCommand(replCmd)
}

// ExecResult is the outcome of one command line.
type ExecResult struct {
	Output   string
	Cwd      string
	Password bool // the next line is read as a sudo password
}

// Runner executes command lines in one session.
type Runner interface {
	Exec(ctx context.Context, input string) (*ExecResult, error)
}

type localRunner struct {
	s *session.Session
}

func (r *localRunner) Exec(ctx context.Context, input string) (*ExecResult, error) {
	output := r.s.Exec(ctx, input)
	cwd, password := r.s.Prompt()
	return &ExecResult{Output: output, Cwd: cwd, Password: password}, nil
}

type daemonRunner struct {
	id string
}

func (r *daemonRunner) Exec(ctx context.Context, input string) (*ExecResult, error) {
	resp, err := daemonRequest(ctx, func(c *daemon.Client) (*daemon.Response, error) {
		return c.Exec(r.id, input)
	})
	if err != nil {
		return nil, err
	}
	return &ExecResult{Output: resp.Output, Cwd: resp.Cwd, Password: resp.Password}, nil
}

// openLocalSession creates a session in this process. The returned cleanup
// closes the journal, if one was opened.
func openLocalSession(journal bool) (*session.Session, func(), error) {
	settings, err := daemon.LoadGlobalSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}

	cleanup := func() {}
	var rec session.Recorder
	if journal && settings.Journal {
		j, err := storage.OpenJournalWithContext(daemon.JournalPath(), storage.DBContextCLI)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: journal disabled: %v\n", err)
		} else {
			rec = j
			cleanup = func() { j.Close() }
		}
	}

	s, err := session.NewManager(settings.SessionOptions(rec)).Open()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, cleanup, nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := daemon.LoadGlobalSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	var runner Runner
	cwd := settings.Layout().Cwd
	switch {
	case replSession != "":
		runner = &daemonRunner{id: replSession}
		res, err := runner.Exec(ctx, "__pwd__")
		if err != nil {
			return err
		}
		cwd = res.Output
	case replDaemon:
		resp, err := daemonRequest(ctx, (*daemon.Client).OpenSession)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Session %s (reattach with: vshell repl --session %s)\n", resp.SessionID, resp.SessionID)
		runner = &daemonRunner{id: resp.SessionID}
		cwd = resp.Cwd
	default:
		s, cleanup, err := openLocalSession(!replNoJournal)
		if err != nil {
			return err
		}
		defer cleanup()
		runner = &localRunner{s: s}
		cwd, _ = s.Prompt()
	}

	t := newTerminal(cmd.OutOrStdout(), settings)
	return t.Loop(ctx, runner, newStdinReader(cmd.InOrStdin()), cwd)
}

// LineReader supplies input lines to the terminal.
type LineReader interface {
	ReadLine() (string, error)
	// ReadPassword reads a line without echoing it where possible
	ReadPassword() (string, error)
}

type stdinReader struct {
	in     *bufio.Reader
	fd     int
	isTerm bool
}

func newStdinReader(r io.Reader) *stdinReader {
	sr := &stdinReader{in: bufio.NewReader(r), fd: -1}
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		sr.fd = int(f.Fd())
		sr.isTerm = true
	}
	return sr
}

func (r *stdinReader) ReadLine() (string, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *stdinReader) ReadPassword() (string, error) {
	if !r.isTerm {
		return r.ReadLine()
	}
	b, err := term.ReadPassword(r.fd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Terminal renders prompts and command output and acts on the output
// directives of the shell.
type Terminal struct {
	out         io.Writer
	user        string
	theme       string
	colors      bool
	downloadDir string
}

func newTerminal(out io.Writer, settings *daemon.GlobalSettings) *Terminal {
	opts := settings.ShellOptions()
	user := opts.User
	if user == "" {
		user = shell.DefaultOptions().User
	}
	theme := opts.DefaultTheme
	if theme == "" {
		theme = shell.DefaultOptions().DefaultTheme
	}
	return &Terminal{
		out:         out,
		user:        user,
		theme:       theme,
		colors:      !color.NoColor,
		downloadDir: downloadDir,
	}
}

var themeColors = map[string]color.Attribute{
	"matrix":  color.FgGreen,
	"sunset":  color.FgYellow,
	"dracula": color.FgMagenta,
	"light":   color.FgBlue,
}

// Prompt returns the prompt for the next line.
func (t *Terminal) Prompt(cwd string, password bool) string {
	if password {
		return shell.PasswordPrompt
	}
	head := t.user + "@vshell"
	if !t.colors {
		return head + ":" + cwd + "$ "
	}
	attr, ok := themeColors[t.theme]
	if !ok {
		attr = color.FgWhite
	}
	return color.New(attr, color.Bold).Sprint(head) + ":" + color.New(color.FgCyan).Sprint(cwd) + "$ "
}

// Render writes output, acting on the clear, theme, newtab and download
// directives.
func (t *Terminal) Render(output string) error {
	switch {
	case output == "" || output == shell.PasswordPrompt:
		return nil
	case output == shell.OutputClear:
		_, err := fmt.Fprint(t.out, "\033[H\033[2J")
		return err
	case strings.HasPrefix(output, shell.PrefixTheme):
		t.theme = strings.TrimPrefix(output, shell.PrefixTheme)
		_, err := fmt.Fprintf(t.out, "Theme set to %s\n", t.theme)
		return err
	case strings.HasPrefix(output, shell.PrefixNewTab):
		_, err := fmt.Fprintf(t.out, "Open in a new tab: %s\n", strings.TrimPrefix(output, shell.PrefixNewTab))
		return err
	case strings.HasPrefix(output, shell.PrefixDownload):
		return t.saveDownload(strings.TrimPrefix(output, shell.PrefixDownload))
	}
	_, err := fmt.Fprintln(t.out, output)
	return err
}

// saveDownload writes a "name:base64" payload into the download directory.
func (t *Terminal) saveDownload(payload string) error {
	// names may contain ':' but base64 never does
	i := strings.LastIndex(payload, ":")
	if i < 0 {
		return fmt.Errorf("malformed download payload")
	}
	name, encoded := payload[:i], payload[i+1:]
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("malformed download payload: %w", err)
	}

	dir := t.downloadDir
	if dir == "" {
		dir = "."
	}
	target := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	_, err = fmt.Fprintf(t.out, "Saved %s (%d bytes) to %s\n", name, len(data), target)
	return err
}

// Loop reads lines until EOF or exit and runs each through runner.
func (t *Terminal) Loop(ctx context.Context, runner Runner, in LineReader, cwd string) error {
	password := false
	for {
		fmt.Fprint(t.out, t.Prompt(cwd, password))

		var line string
		var err error
		if password {
			line, err = in.ReadPassword()
			fmt.Fprintln(t.out)
		} else {
			line, err = in.ReadLine()
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(t.out)
			return nil
		}
		if err != nil {
			return err
		}

		if !password {
			switch strings.TrimSpace(line) {
			case "":
				continue
			case "exit", "quit":
				return nil
			}
		}

		res, err := runner.Exec(ctx, line)
		if err != nil {
			return err
		}
		if err := t.Render(res.Output); err != nil {
			fmt.Fprintf(t.out, "%v\n", err)
		}
		cwd, password = res.Cwd, res.Password
	}
}
