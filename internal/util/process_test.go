package util

import (
	"context"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsProcessRunning(t *testing.T) {
	t.Parallel()

	assert.True(t, IsProcessRunning(os.Getpid()))
	assert.False(t, IsProcessRunning(0))
	assert.False(t, IsProcessRunning(-1))
}

func startSleeper(t *testing.T) *os.Process {
	t.Helper()
	sleep, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	proc, err := StartBackgroundProcess(sleep, []string{"30"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { proc.Kill() })
	return proc
}

func TestStopProcess_Graceful(t *testing.T) {
	t.Parallel()
	proc := startSleeper(t)
	require.True(t, IsProcessRunning(proc.Pid))

	cfg := ProcessConfig{Poll: PollConfig{Timeout: 2 * time.Second, Interval: 10 * time.Millisecond}}
	err := StopProcess(context.Background(), proc.Pid, cfg,
		func() error { return proc.Signal(syscall.SIGTERM) },
		func() bool { return IsProcessRunning(proc.Pid) })
	assert.NoError(t, err)
}

func TestStopProcess_ForceKill(t *testing.T) {
	t.Parallel()
	proc := startSleeper(t)

	// No graceful stop: the poll times out and SIGKILL follows
	cfg := ProcessConfig{
		Poll:      PollConfig{Timeout: 50 * time.Millisecond, Interval: 10 * time.Millisecond},
		KillGrace: 2 * time.Second,
	}
	err := StopProcess(context.Background(), proc.Pid, cfg, nil,
		func() bool { return IsProcessRunning(proc.Pid) })
	assert.NoError(t, err)
}

func TestStartBackgroundProcess_Missing(t *testing.T) {
	t.Parallel()
	_, err := StartBackgroundProcess("/nonexistent/vshell-binary", nil, nil)
	assert.Error(t, err)
}
