package shell

import (
	"fmt"
	"strconv"
	"strings"
)

// commandFunc runs one command. args excludes the command name.
type commandFunc func(sh *Shell, args []string) string

// commands is the dispatch table. helpOrder lists the names shown by help.
var commands = map[string]commandFunc{
	"pwd":     cmdPwd,
	"cd":      cmdCd,
	"ls":      cmdLs,
	"cat":     cmdCat,
	"mkdir":   cmdMkdir,
	"touch":   cmdTouch,
	"rm":      cmdRm,
	"cp":      cmdCp,
	"mv":      cmdMv,
	"find":    cmdFind,
	"downld":  cmdDownload,
	"date":    cmdDate,
	"echo":    cmdEcho,
	"whoami":  cmdWhoami,
	"newtab":  cmdNewTab,
	"history": cmdHistory,
	"theme":   cmdTheme,
	"help":    cmdHelp,
	"clear":   cmdClear,
}

var helpOrder = []string{
	"ls", "cd", "pwd", "cat", "mkdir", "touch", "rm", "cp", "mv", "find", "sudo",
	"date", "echo", "whoami", "history", "theme", "newtab", "downld", "clear", "help",
}

func cmdDate(sh *Shell, args []string) string {
	return sh.opts.Clock().Format("Mon Jan 02 2006 15:04:05 GMT-0700 (MST)")
}

func cmdEcho(sh *Shell, args []string) string {
	return strings.Join(args, " ")
}

func cmdWhoami(sh *Shell, args []string) string {
	return sh.opts.User
}

// cmdNewTab asks the front end to open a URL. Only http and https are
// allowed; a bare host gets https://.
func cmdNewTab(sh *Shell, args []string) string {
	if len(args) == 0 {
		return "Usage: newtab [http(s)://]<host-or-url>\nExample: newtab example.com"
	}

	raw := strings.TrimSpace(strings.Join(args, " "))
	if strings.ContainsAny(raw, " \t\r\n") {
		return fmt.Sprintf("newtab: invalid URL '%s'", raw)
	}

	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
	case strings.Contains(raw, "://"):
		return "newtab: only http/https URLs are allowed"
	default:
		raw = "https://" + raw
	}
	return PrefixNewTab + raw
}

func cmdHistory(sh *Shell, args []string) string {
	if len(sh.term.History) == 0 {
		return "No history yet"
	}
	lines := make([]string, len(sh.term.History))
	for i, cmd := range sh.term.History {
		lines[i] = strconv.Itoa(i+1) + "  " + cmd
	}
	return strings.Join(lines, "\n")
}

func cmdTheme(sh *Shell, args []string) string {
	available := strings.Join(sh.opts.Themes, ", ")
	if len(args) == 0 {
		return "Usage: theme <name>\nAvailable themes: " + available
	}

	name := args[0]
	for _, theme := range sh.opts.Themes {
		if theme == name {
			sh.term.Theme = name
			return PrefixTheme + name
		}
	}
	return fmt.Sprintf("theme: unknown theme '%s'. Available themes: %s", name, available)
}

func cmdHelp(sh *Shell, args []string) string {
	return "Available commands: " + strings.Join(helpOrder, ", ")
}

func cmdClear(sh *Shell, args []string) string {
	return OutputClear
}
