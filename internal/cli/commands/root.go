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

package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vshell/internal/daemon"
	"vshell/internal/storage"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion sets the version info for --version flag
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

// getVersionString returns the version string with build info
func getVersionString() string {
	buildDate := formatBuildDate(date)
	if strings.HasSuffix(version, "-dev") {
		// Dev build: include epoch and commit for troubleshooting
		return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, buildDate, date, commit)
	}
	return fmt.Sprintf("%s (%s)", version, buildDate)
}

// formatBuildDate converts epoch timestamp to readable date
func formatBuildDate(epoch string) string {
	ts, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}

var cliLogLevel string

var rootCmd = &cobra.Command{
	Use:   "vshell",
	Short: "A Unix-style shell over an in-memory namespace",
	Long: `vshell runs a small Unix-style shell against a virtual, in-memory file tree.

Sessions run locally or inside a background daemon that keeps them alive
between invocations and can export them over NFS.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		if cliLogLevel != "" {
			log.SetOutput(os.Stderr)
			daemon.ApplyLogLevel(cliLogLevel)
		}

		if err := daemon.InitConfigDir(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		// Load global settings and set busy_timeout values for CLI
		if settings, err := daemon.LoadGlobalSettings(); err == nil {
			storage.SetConfigBusyTimeouts(settings.DaemonBusyTimeout, settings.CLIBusyTimeout)
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("vshell version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&cliLogLevel, "log-level", "", "Log to stderr at this level: trace, debug, info, warn")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
