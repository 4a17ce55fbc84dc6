package shell

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// startSudo queues args behind a password prompt.
func (sh *Shell) startSudo(args []string) string {
	if len(args) == 0 {
		return "Usage: sudo <command> [args...]"
	}
	sh.sudo.WaitingForPassword = true
	sh.sudo.Pending = append([]string(nil), args...)
	return PasswordPrompt
}

// checkPassword consumes one input line while a prompt is pending. A wrong
// password keeps the prompt open.
func (sh *Shell) checkPassword(input string) string {
	if strings.TrimSpace(input) != sh.opts.SudoPassword {
		log.Infof("[Shell] sudo authentication failed")
		return "[sudo] Sorry, try again."
	}

	sh.sudo.WaitingForPassword = false
	sh.sudo.Authenticated = true
	log.Infof("[Shell] sudo authenticated")

	pending := sh.sudo.Pending
	sh.sudo.Pending = nil
	if len(pending) == 0 {
		return "[sudo] authenticated successfully"
	}
	// The authenticated command is recorded as if it had been typed
	sh.term.History = append(sh.term.History, strings.Join(pending, " "))
	if pending[0] == "sudo" {
		return sh.startSudo(pending[1:])
	}
	return sh.dispatch(pending[0], pending[1:])
}
