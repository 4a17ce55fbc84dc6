package daemon

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

// CleanupResult contains the result of a cleanup operation
type CleanupResult struct {
	CleanedPidFile bool    // Whether PID file was cleaned
	CleanedSocket  bool    // Whether socket file was cleaned
	Errors         []error // Any errors encountered
}

// CleanupStale removes the PID file and socket left behind by a daemon that
// exited without shutting down. It does nothing while a daemon is running.
func CleanupStale() *CleanupResult {
	result := &CleanupResult{}
	if IsDaemonRunning() {
		return result
	}

	var err error
	if result.CleanedPidFile, err = cleanupStalePidFile(); err != nil {
		result.Errors = append(result.Errors, err)
	}
	if result.CleanedSocket, err = cleanupStaleSocket(); err != nil {
		result.Errors = append(result.Errors, err)
	}
	return result
}

// cleanupStalePidFile removes PID file if the process is not running
func cleanupStalePidFile() (bool, error) {
	pid, err := GetPID()
	if err != nil {
		// No PID file or can't read it
		if _, statErr := os.Stat(PidPath()); statErr == nil {
			return removeStale(PidPath(), "PID file")
		}
		return false, nil
	}

	// Signal 0 checks for existence without delivering anything
	if err := syscall.Kill(pid, 0); err == nil || err == syscall.EPERM {
		return false, nil
	}
	return removeStale(PidPath(), "PID file")
}

// cleanupStaleSocket removes socket file if daemon isn't running
func cleanupStaleSocket() (bool, error) {
	if _, err := os.Stat(SocketPath()); os.IsNotExist(err) {
		return false, nil
	}
	return removeStale(SocketPath(), "socket")
}

func removeStale(path, what string) (bool, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to remove stale %s: %w", what, err)
	}
	return true, nil
}

// FormatCleanupResult formats a cleanup result for display
func FormatCleanupResult(result *CleanupResult) string {
	var parts []string

	if result.CleanedPidFile {
		parts = append(parts, "Cleaned up stale PID file")
	}

	if result.CleanedSocket {
		parts = append(parts, "Cleaned up stale socket file")
	}

	if len(result.Errors) > 0 {
		parts = append(parts, fmt.Sprintf("Encountered %d error(s):", len(result.Errors)))
		for _, e := range result.Errors {
			parts = append(parts, fmt.Sprintf("  - %s", e.Error()))
		}
	}

	if len(parts) == 0 {
		return "No cleanup needed"
	}

	return strings.Join(parts, "\n")
}
