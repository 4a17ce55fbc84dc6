package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"vshell/internal/artifacts"
	"vshell/internal/session"
	"vshell/internal/shell"
	"vshell/internal/vfs"
)

// getConfigDir returns the config directory path.
// Uses VSHELL_CONFIG_DIR env var if set, otherwise defaults to ~/.vshell.
// This is computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("VSHELL_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".vshell")
}

// daemonName returns the fixed daemon name "daemon".
func daemonName() string {
	return "daemon"
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	return getConfigDir()
}

// SocketPath returns the Unix socket path
func SocketPath() string {
	return filepath.Join(getConfigDir(), daemonName()+".sock")
}

// PidPath returns the PID file path
func PidPath() string {
	return filepath.Join(getConfigDir(), daemonName()+".pid")
}

// LogPath returns the log file path.
// Uses VSHELL_DAEMON_LOG env var if set, otherwise defaults to config_dir/daemon.log.
func LogPath() string {
	if envPath := os.Getenv("VSHELL_DAEMON_LOG"); envPath != "" {
		return envPath
	}
	return filepath.Join(getConfigDir(), daemonName()+".log")
}

// LockPath returns the lock file path
func LockPath() string {
	return filepath.Join(getConfigDir(), daemonName()+".lock")
}

// GlobalSettingsPath returns the global settings file path
func GlobalSettingsPath() string {
	return filepath.Join(getConfigDir(), "settings.yaml")
}

// JournalPath returns the path to the command journal database
func JournalPath() string {
	return filepath.Join(getConfigDir(), "journal.db")
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(getConfigDir(), 0700)
}

// InitConfigDir initializes the config directory with default files
func InitConfigDir() error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create default global settings file if not exists (using template)
	settingsPath := GlobalSettingsPath()
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, artifacts.GlobalSettings, 0600); err != nil {
			return fmt.Errorf("failed to create default settings: %w", err)
		}
	}
	return nil
}

// SeedFileConfig is a seeded file. Content is plain text.
type SeedFileConfig struct {
	Path    string `yaml:"path"`
	Content string `yaml:"content"`
}

// SeedConfig is the initial tree of every new session.
type SeedConfig struct {
	Cwd         string           `yaml:"cwd"`
	Directories []string         `yaml:"directories"`
	Files       []SeedFileConfig `yaml:"files"`
}

// GlobalSettings represents global daemon settings
type GlobalSettings struct {
	LogLevel          string `yaml:"log_level"`           // Log level: trace, debug, info, warn, off (default: off)
	Journal           bool   `yaml:"journal"`             // Record executed commands (default: true)
	ExportAddr        string `yaml:"export_addr"`         // Default NFS listen address
	DaemonBusyTimeout int    `yaml:"daemon_busy_timeout"` // SQLite busy_timeout for daemon (ms), 0 = use default
	CLIBusyTimeout    int    `yaml:"cli_busy_timeout"`    // SQLite busy_timeout for CLI (ms), 0 = use default

	Home         string   `yaml:"home"`
	User         string   `yaml:"user"`
	SudoPassword string   `yaml:"sudo_password"`
	Themes       []string `yaml:"themes"`
	DefaultTheme string   `yaml:"default_theme"`

	Seed *SeedConfig `yaml:"seed"`
}

// loadDefaultGlobalSettings parses default settings from embedded artifact.
func loadDefaultGlobalSettings() GlobalSettings {
	var settings GlobalSettings
	if err := yaml.Unmarshal(artifacts.GlobalSettings, &settings); err != nil {
		panic("failed to parse embedded global settings: " + err.Error())
	}
	return settings
}

// DefaultGlobalSettings returns the embedded default settings.
func DefaultGlobalSettings() *GlobalSettings {
	settings := loadDefaultGlobalSettings()
	return &settings
}

// LoadGlobalSettings loads the global settings from ~/.vshell/settings.yaml.
// Always reads from file to get latest config. Falls back to embedded defaults if file doesn't exist.
func LoadGlobalSettings() (*GlobalSettings, error) {
	data, err := os.ReadFile(GlobalSettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultGlobalSettings(), nil
		}
		return nil, err
	}

	var settings GlobalSettings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", GlobalSettingsPath(), err)
	}
	return &settings, nil
}

// SaveGlobalSettings saves the global settings to ~/.vshell/settings.yaml
func SaveGlobalSettings(settings *GlobalSettings) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	// Add header comment (same as template header)
	header := []byte("# vshell daemon settings\n# See: vshell daemon config --help\n\n")
	return os.WriteFile(GlobalSettingsPath(), append(header, data...), 0600)
}

// NormalizedLogLevel returns the lowercase logging level, or "" if logging
// is disabled.
func (s *GlobalSettings) NormalizedLogLevel() string {
	level := strings.ToLower(strings.TrimSpace(s.LogLevel))
	if level == "off" || level == "none" {
		return ""
	}
	return level
}

// ShellOptions returns the shell options for new sessions. Empty fields
// fall back to shell defaults.
func (s *GlobalSettings) ShellOptions() shell.Options {
	return shell.Options{
		Home:         s.Home,
		User:         s.User,
		SudoPassword: s.SudoPassword,
		Themes:       append([]string(nil), s.Themes...),
		DefaultTheme: s.DefaultTheme,
	}
}

// Layout returns the seed layout for new sessions. A settings file without
// a seed section gets the built-in layout.
func (s *GlobalSettings) Layout() vfs.Layout {
	if s.Seed == nil {
		return session.DefaultLayout()
	}
	layout := vfs.Layout{
		Cwd:         s.Seed.Cwd,
		Directories: append([]string(nil), s.Seed.Directories...),
	}
	for _, f := range s.Seed.Files {
		layout.Files = append(layout.Files, vfs.SeedFile{Path: f.Path, Content: []byte(f.Content)})
	}
	return layout
}

// SessionOptions combines the shell options and layout with rec.
func (s *GlobalSettings) SessionOptions(rec session.Recorder) session.Options {
	return session.Options{
		Shell:    s.ShellOptions(),
		Layout:   s.Layout(),
		Recorder: rec,
	}
}

// ApplyLogLevel sets the logrus level from a settings or flag value.
// Unknown levels fall back to debug.
func ApplyLogLevel(level string) {
	switch strings.ToLower(level) {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.DebugLevel)
	}
}
