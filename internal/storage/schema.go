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

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const SchemaVersion = "1"

// Default busy_timeout in milliseconds (30 seconds)
const DefaultBusyTimeout = 30000

// Environment variable names for busy_timeout configuration
const (
	// EnvBusyTimeout is the general busy_timeout override for all contexts
	EnvBusyTimeout = "VSHELL_BUSY_TIMEOUT"
	// EnvDaemonBusyTimeout is the busy_timeout for journal writes from the daemon
	EnvDaemonBusyTimeout = "VSHELL_DAEMON_BUSY_TIMEOUT"
	// EnvCLIBusyTimeout is the busy_timeout for CLI journal access
	EnvCLIBusyTimeout = "VSHELL_CLI_BUSY_TIMEOUT"
)

// DBContext indicates the context in which the database is being accessed
type DBContext int

const (
	// DBContextDefault uses the general busy_timeout
	DBContextDefault DBContext = iota
	// DBContextDaemon uses the daemon-specific busy_timeout
	DBContextDaemon
	// DBContextCLI uses the CLI-specific busy_timeout
	DBContextCLI
)

// Package-level config values (set via SetConfigBusyTimeouts)
var (
	configDaemonBusyTimeout int
	configCLIBusyTimeout    int
)

// SetConfigBusyTimeouts sets the config-based busy_timeout values.
// Values of 0 are ignored (use env var or default).
func SetConfigBusyTimeouts(daemonTimeout, cliTimeout int) {
	configDaemonBusyTimeout = daemonTimeout
	configCLIBusyTimeout = cliTimeout
}

// GetBusyTimeout returns the busy_timeout for ctx. Precedence: context
// env var, general env var, config value, default.
func GetBusyTimeout(ctx DBContext) int {
	var specificEnv string
	var configTimeout int
	switch ctx {
	case DBContextDaemon:
		specificEnv = EnvDaemonBusyTimeout
		configTimeout = configDaemonBusyTimeout
	case DBContextCLI:
		specificEnv = EnvCLIBusyTimeout
		configTimeout = configCLIBusyTimeout
	}

	if specificEnv != "" {
		if timeout, ok := envTimeout(specificEnv); ok {
			return timeout
		}
	}
	if timeout, ok := envTimeout(EnvBusyTimeout); ok {
		return timeout
	}
	if configTimeout > 0 {
		return configTimeout
	}
	return DefaultBusyTimeout
}

func envTimeout(name string) (int, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	timeout, err := strconv.Atoi(val)
	if err != nil || timeout <= 0 {
		return 0, false
	}
	return timeout, true
}

// BuildDSN builds the SQLite DSN with the appropriate busy_timeout for the context
func BuildDSN(path string, ctx DBContext) string {
	timeout := GetBusyTimeout(ctx)
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d", path, timeout)
}

// journalSchema creates the command journal tables. Every statement is
// idempotent so opening an existing journal re-runs it safely.
const journalSchema = `
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- One row per executed command line
CREATE TABLE IF NOT EXISTS journal_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    input TEXT NOT NULL,
    output TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_session ON journal_entries(session_id, seq);
`

const initJournal = `
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('version', ?);
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('type', 'journal');
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('created_at', datetime('now'));
`

// execStatements executes a multi-statement SQL script one statement at a
// time. args are consumed in order by the statements' placeholders.
func execStatements(db *sql.DB, sqlScript string, args ...interface{}) error {
	statements := splitStatements(sqlScript)
	argIdx := 0
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		placeholders := strings.Count(stmt, "?")
		stmtArgs := args[argIdx : argIdx+placeholders]
		argIdx += placeholders
		if _, err := db.Exec(stmt, stmtArgs...); err != nil {
			return err
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	lines := strings.Split(script, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Skip comments and empty lines
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	// Handle any remaining content
	if current.Len() > 0 {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
