package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vshell/internal/session"
)

func TestDaemonName(t *testing.T) {
	// daemonName() always returns "daemon" - test isolation is via VSHELL_CONFIG_DIR
	assert.Equal(t, "daemon", daemonName())
}

func TestConfigDir(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("VSHELL_CONFIG_DIR", "")

		dir := ConfigDir()
		assert.NotEmpty(t, dir)
		assert.True(t, strings.HasSuffix(dir, ".vshell"), "should end with .vshell")
	})

	t.Run("override with VSHELL_CONFIG_DIR", func(t *testing.T) {
		t.Setenv("VSHELL_CONFIG_DIR", "/tmp/test-vshell-config")
		assert.Equal(t, "/tmp/test-vshell-config", ConfigDir())
	})
}

func TestPathFunctions(t *testing.T) {
	t.Setenv("VSHELL_CONFIG_DIR", t.TempDir())
	t.Setenv("VSHELL_DAEMON_LOG", "")

	tests := []struct {
		name   string
		fn     func() string
		suffix string
	}{
		{"SocketPath", SocketPath, "daemon.sock"},
		{"PidPath", PidPath, "daemon.pid"},
		{"LogPath", LogPath, "daemon.log"},
		{"LockPath", LockPath, "daemon.lock"},
		{"GlobalSettingsPath", GlobalSettingsPath, "settings.yaml"},
		{"JournalPath", JournalPath, "journal.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.fn()
			assert.True(t, strings.HasSuffix(path, tt.suffix),
				"%s() = %q should end with %q", tt.name, path, tt.suffix)
			assert.True(t, strings.HasPrefix(path, ConfigDir()),
				"%s() = %q should be in config dir %q", tt.name, path, ConfigDir())
		})
	}
}

func TestLogPathOverride(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "custom.log")
	t.Setenv("VSHELL_DAEMON_LOG", custom)
	assert.Equal(t, custom, LogPath())
}

func TestInitConfigDir(t *testing.T) {
	t.Setenv("VSHELL_CONFIG_DIR", filepath.Join(t.TempDir(), "nested"))

	require.NoError(t, InitConfigDir())

	info, err := os.Stat(ConfigDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(GlobalSettingsPath())
	assert.NoError(t, err, "global settings file should be created")

	// A second init leaves an edited settings file alone
	require.NoError(t, os.WriteFile(GlobalSettingsPath(), []byte("user: root\n"), 0600))
	require.NoError(t, InitConfigDir())
	loaded, err := LoadGlobalSettings()
	require.NoError(t, err)
	assert.Equal(t, "root", loaded.User)
}

func TestGlobalSettings(t *testing.T) {
	t.Run("defaults from embedded artifact", func(t *testing.T) {
		t.Setenv("VSHELL_CONFIG_DIR", t.TempDir())

		settings, err := LoadGlobalSettings()
		require.NoError(t, err)

		assert.Equal(t, "off", settings.LogLevel)
		assert.Empty(t, settings.NormalizedLogLevel())
		assert.True(t, settings.Journal)
		assert.Equal(t, "127.0.0.1:0", settings.ExportAddr)
		assert.Zero(t, settings.DaemonBusyTimeout)
		assert.Equal(t, "/home", settings.Home)
		assert.Equal(t, "vshell", settings.SudoPassword)
		assert.Equal(t, "matrix", settings.DefaultTheme)
		require.NotNil(t, settings.Seed)
		assert.Equal(t, session.DefaultLayout(), settings.Layout())
	})

	t.Run("save and load", func(t *testing.T) {
		t.Setenv("VSHELL_CONFIG_DIR", t.TempDir())

		settings := &GlobalSettings{
			LogLevel:          "debug",
			DaemonBusyTimeout: 5000,
			CLIBusyTimeout:    10000,
			User:              "alice",
			Seed: &SeedConfig{
				Cwd:         "/work",
				Directories: []string{"/work"},
				Files:       []SeedFileConfig{{Path: "/work/todo.txt", Content: "ship it"}},
			},
		}
		require.NoError(t, SaveGlobalSettings(settings))

		loaded, err := LoadGlobalSettings()
		require.NoError(t, err)

		assert.Equal(t, "debug", loaded.NormalizedLogLevel())
		assert.Equal(t, 5000, loaded.DaemonBusyTimeout)
		assert.Equal(t, 10000, loaded.CLIBusyTimeout)
		assert.Equal(t, "alice", loaded.ShellOptions().User)

		layout := loaded.Layout()
		assert.Equal(t, "/work", layout.Cwd)
		require.Len(t, layout.Files, 1)
		assert.Equal(t, []byte("ship it"), layout.Files[0].Content)
	})

	t.Run("malformed file", func(t *testing.T) {
		t.Setenv("VSHELL_CONFIG_DIR", t.TempDir())
		require.NoError(t, os.WriteFile(GlobalSettingsPath(), []byte("themes: [unterminated\n"), 0600))

		_, err := LoadGlobalSettings()
		assert.Error(t, err)
	})

	t.Run("missing seed falls back to built-in layout", func(t *testing.T) {
		settings := &GlobalSettings{}
		assert.Equal(t, session.DefaultLayout(), settings.Layout())
	})
}

func TestNormalizedLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"off", ""},
		{"NONE", ""},
		{" Debug ", "debug"},
		{"trace", "trace"},
	}
	for _, tt := range tests {
		s := &GlobalSettings{LogLevel: tt.in}
		assert.Equal(t, tt.want, s.NormalizedLogLevel(), "level %q", tt.in)
	}
}
