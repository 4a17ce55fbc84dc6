package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"plain", []string{"ls", "/home"}, "ls /home"},
		{"inner spaces", []string{"echo", "a  b"}, `echo "a  b"`},
		{"empty", []string{"echo", ""}, `echo ""`},
		{"quotes", []string{"echo", `say "hi"`, "it's"}, `echo "say \"hi\"" "it's"`},
		{"backslash", []string{"echo", `a\b`}, `echo "a\\b"`},
		{"comment marker", []string{"echo", "#tag"}, `echo "#tag"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			line := joinArgs(tt.args)
			assert.Equal(t, tt.want, line)

			words, err := shlex.Split(line)
			require.NoError(t, err)
			assert.Equal(t, tt.args, words)
		})
	}
}

func TestJoinArgsKeepsSpacing(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	term := newTestTerminal(&buf, "")

	line := joinArgs([]string{"echo", "a  b"})
	require.NoError(t, runLines(context.Background(), term, newLocalRunner(t), []string{line}))
	assert.Equal(t, "a  b\n", buf.String())
}
