package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vshell/internal/daemon"
)

func TestApplyLoggingConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{"trace", "trace", false},
		{"DEBUG", "debug", false},
		{"none", "off", false},
		{"off", "off", false},
		{"verbose", "", true},
	}
	for _, tt := range tests {
		settings := &daemon.GlobalSettings{}
		err := applyLoggingConfig(settings, tt.value)
		if tt.wantErr {
			assert.Error(t, err, "value %q", tt.value)
			continue
		}
		require.NoError(t, err, "value %q", tt.value)
		assert.Equal(t, tt.want, settings.LogLevel)
	}
}

func TestVersionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2024-01-02", formatBuildDate("1704196800"))
	assert.Equal(t, "unknown", formatBuildDate("unknown"))
}

func TestMountHintFor(t *testing.T) {
	t.Parallel()

	hint := mountHintFor("127.0.0.1:12049")
	assert.Contains(t, hint, "port=12049")
	assert.Contains(t, hint, "127.0.0.1:/")

	assert.Contains(t, mountHintFor("not an address"), "address not an address")
}
