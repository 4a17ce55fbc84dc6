// Package shell implements the command dispatcher of a vshell session: it
// tokenizes one input line, runs the matching command against the session's
// namespace and renders the result as a single output string.
//
// Some outputs are markers for the terminal front end rather than text:
// see OutputClear, PrefixDownload, PrefixNewTab and PrefixTheme.
package shell

import (
	"strings"
	"time"

	"github.com/google/shlex"
	log "github.com/sirupsen/logrus"

	"vshell/internal/vfs"
)

// Front-end markers
const (
	OutputClear    = "CLEARED"
	PrefixDownload = "DOWNLOAD:"
	PrefixNewTab   = "NEWTAB:"
	PrefixTheme    = "THEME:"
	PasswordPrompt = "[sudo] password: "
)

// Options configures a shell session.
type Options struct {
	Home         string   // target of a bare cd
	User         string   // reported by whoami
	SudoPassword string   // accepted at the sudo prompt
	Themes       []string // names accepted by theme
	DefaultTheme string
	Clock        func() time.Time
}

// DefaultOptions returns the options used when no settings file exists.
func DefaultOptions() Options {
	return Options{
		Home:         "/home",
		User:         "guest",
		SudoPassword: "vshell",
		Themes:       []string{"matrix", "sunset", "dracula", "light"},
		DefaultTheme: "matrix",
		Clock:        time.Now,
	}
}

// SudoState tracks the single authentication flag and a pending prompt.
type SudoState struct {
	Authenticated      bool
	WaitingForPassword bool
	Pending            []string // tokens to run once the password is accepted
}

// TerminalState is per-session state the front end reads back.
type TerminalState struct {
	History []string
	Theme   string
}

// Shell dispatches commands for one session. It is not safe for concurrent
// use; a session runs one command at a time.
type Shell struct {
	ns   *vfs.Namespace
	opts Options
	sudo SudoState
	term TerminalState
}

// New creates a shell over ns. Zero-valued options fall back to defaults.
func New(ns *vfs.Namespace, opts Options) *Shell {
	def := DefaultOptions()
	if opts.Home == "" {
		opts.Home = def.Home
	}
	if opts.User == "" {
		opts.User = def.User
	}
	if opts.SudoPassword == "" {
		opts.SudoPassword = def.SudoPassword
	}
	if len(opts.Themes) == 0 {
		opts.Themes = def.Themes
	}
	if opts.DefaultTheme == "" {
		opts.DefaultTheme = opts.Themes[0]
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}
	return &Shell{
		ns:   ns,
		opts: opts,
		term: TerminalState{Theme: opts.DefaultTheme},
	}
}

// Namespace returns the namespace the shell operates on.
func (sh *Shell) Namespace() *vfs.Namespace {
	return sh.ns
}

// Sudo returns a copy of the authentication state.
func (sh *Shell) Sudo() SudoState {
	s := sh.sudo
	s.Pending = append([]string(nil), sh.sudo.Pending...)
	return s
}

// Terminal returns a copy of the terminal state.
func (sh *Shell) Terminal() TerminalState {
	return TerminalState{
		History: append([]string(nil), sh.term.History...),
		Theme:   sh.term.Theme,
	}
}

// AwaitingPassword reports whether the next input is read as a password.
func (sh *Shell) AwaitingPassword() bool {
	return sh.sudo.WaitingForPassword
}

// Execute runs one line of input and returns its output. It never fails:
// every error is rendered as a one-line message.
func (sh *Shell) Execute(input string) string {
	if sh.sudo.WaitingForPassword {
		return sh.checkPassword(input)
	}

	args := tokenize(input)
	if len(args) == 0 {
		return ""
	}

	// Prompt refresh commands stay out of the history
	switch args[0] {
	case "__pwd__":
		return cmdPwd(sh, nil)
	case "__ls__":
		return cmdLs(sh, nil)
	}

	sh.term.History = append(sh.term.History, strings.TrimSpace(input))

	if args[0] == "sudo" {
		return sh.startSudo(args[1:])
	}
	return sh.dispatch(args[0], args[1:])
}

func (sh *Shell) dispatch(name string, args []string) string {
	cmd, ok := commands[name]
	if !ok {
		log.Debugf("[Shell] unknown command %q", name)
		return "command not found: " + name + ". Type 'help' for info."
	}
	log.Debugf("[Shell] %s %q (cwd=%s)", name, args, sh.ns.CurrentPath())
	return cmd(sh, args)
}

// tokenize splits input into shell words. Quotes group words; input with an
// unterminated quote falls back to plain whitespace splitting.
func tokenize(input string) []string {
	words, err := shlex.Split(input)
	if err != nil {
		return strings.Fields(input)
	}
	return words
}
