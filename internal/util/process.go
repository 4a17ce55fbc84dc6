package util

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// ProcessConfig configures process management behavior.
type ProcessConfig struct {
	Poll      PollConfig    // Wait for graceful shutdown (default: DefaultPollConfig)
	KillGrace time.Duration // Wait after SIGKILL (default: 500ms)
}

// StartBackgroundProcess starts a detached background process.
// The process will continue running after the parent exits.
func StartBackgroundProcess(executable string, args []string, env []string) (*os.Process, error) {
	cmd := exec.Command(executable, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if env != nil {
		cmd.Env = env
	} else {
		cmd.Env = os.Environ() // inherits VSHELL_CONFIG_DIR
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session (detach from terminal)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	// Reap the child if it exits while we are still around
	go cmd.Wait()

	return cmd.Process, nil
}

// StopProcess asks a process to stop, then kills it if it is still running
// once the poll timeout expires. gracefulStop may be nil.
func StopProcess(ctx context.Context, pid int, cfg ProcessConfig, gracefulStop func() error, isRunning func() bool) error {
	if cfg.Poll.Timeout == 0 {
		cfg.Poll = DefaultPollConfig()
	}
	if cfg.KillGrace == 0 {
		cfg.KillGrace = 500 * time.Millisecond
	}

	if gracefulStop != nil {
		// A failed request still falls through to the kill below
		_ = gracefulStop()
	}

	if err := PollUntil(ctx, cfg.Poll, func() bool { return !isRunning() }); err == nil {
		return nil
	}

	if pid > 0 {
		if proc, err := os.FindProcess(pid); err == nil {
			_ = proc.Signal(syscall.SIGKILL)
		}
	}

	if WaitWithDeadline(time.Now().Add(cfg.KillGrace), 50*time.Millisecond, func() bool { return !isRunning() }) {
		return nil
	}
	return fmt.Errorf("failed to stop process (PID %d)", pid)
}

// IsProcessRunning checks if a process with the given PID is running.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, sending signal 0 checks if process exists
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// GetExecutablePath returns the path to the current executable.
func GetExecutablePath() (string, error) {
	return os.Executable()
}
