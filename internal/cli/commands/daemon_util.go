package commands

import (
	"context"
	"fmt"
	"net"
	"os"

	"vshell/internal/daemon"
	"vshell/internal/util"
)

// StartDaemonIfNeeded starts the daemon in the background if not running.
// If notify is true, progress is printed to stderr.
// Returns nil if daemon is already running or successfully started.
func StartDaemonIfNeeded(notify bool) error {
	cfg := util.DaemonStartConfig{
		PollConfig: util.FastPollConfig(),
	}
	if notify {
		cfg.Status = os.Stderr
	}

	return util.StartDaemonIfNeeded(
		context.Background(),
		cfg,
		daemon.IsDaemonRunning,
		[]string{"daemon", "start", "--foreground"},
	)
}

// connectDaemon starts the daemon when needed and connects to it.
func connectDaemon(ctx context.Context) (*daemon.Client, error) {
	if err := StartDaemonIfNeeded(true); err != nil {
		return nil, fmt.Errorf("could not start daemon: %w", err)
	}

	client, err := util.RetryWithResult(ctx, daemon.Connect, util.ConnectRetryOptions(ctx)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return client, nil
}

// daemonRequest sends one request through a fresh connection and turns an
// unsuccessful response into an error.
func daemonRequest(ctx context.Context, send func(*daemon.Client) (*daemon.Response, error)) (*daemon.Response, error) {
	client, err := connectDaemon(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	resp, err := send(client)
	if err != nil {
		return nil, fmt.Errorf("daemon request failed: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}

func resolveTCPAddr(addr string) (*net.TCPAddr, error) {
	return net.ResolveTCPAddr("tcp", addr)
}
