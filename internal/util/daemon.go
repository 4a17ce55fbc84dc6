// Copyright 2024 vshell Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"context"
	"fmt"
	"io"
)

// DaemonStartConfig configures daemon start behavior.
type DaemonStartConfig struct {
	Status     io.Writer  // Progress messages, nil for none
	PollConfig PollConfig // Polling config for waiting
	Env        []string   // Environment of the daemon, nil inherits ours
}

// StartDaemonIfNeeded starts the daemon in the background if not running.
// isRunning reports whether the daemon answers; startCmd holds the arguments
// that run it (e.g. []string{"daemon", "start", "--foreground"}).
// Returns nil if daemon is already running or successfully started.
func StartDaemonIfNeeded(ctx context.Context, cfg DaemonStartConfig, isRunning func() bool, startCmd []string) error {
	if isRunning() {
		return nil
	}

	status := cfg.Status
	if status == nil {
		status = io.Discard
	}
	fmt.Fprint(status, "Starting daemon...")

	exe, err := GetExecutablePath()
	if err != nil {
		fmt.Fprintln(status, " failed")
		return err
	}

	if _, err := StartBackgroundProcess(exe, startCmd, cfg.Env); err != nil {
		fmt.Fprintln(status, " failed")
		return err
	}

	if err := PollUntil(ctx, cfg.PollConfig, isRunning); err != nil {
		fmt.Fprintln(status, " timeout")
		return fmt.Errorf("daemon did not start in time")
	}

	fmt.Fprintln(status, " done")
	return nil
}
