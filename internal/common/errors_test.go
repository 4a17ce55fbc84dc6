package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorDefinitions(t *testing.T) {
	t.Parallel()

	// Verify all errors are defined and unique
	errs := []error{
		ErrNotFound,
		ErrExists,
		ErrNotDir,
		ErrNotFile,
		ErrNotEmpty,
		ErrInvalidDest,
		ErrProtectedRoot,
		ErrPermission,
		ErrDestParent,
		ErrDestInsideSource,
	}

	t.Run("all errors are non-nil", func(t *testing.T) {
		t.Parallel()
		for i, err := range errs {
			require.NotNil(t, err, "error at index %d should not be nil", i)
		}
	})

	t.Run("all error messages are unique", func(t *testing.T) {
		t.Parallel()
		seen := make(map[string]bool)
		for _, err := range errs {
			msg := err.Error()
			assert.False(t, seen[msg], "duplicate error message: %s", msg)
			seen[msg] = true
		}
	})
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrExists", ErrExists, "already exists"},
		{"ErrNotDir", ErrNotDir, "not a directory"},
		{"ErrNotFile", ErrNotFile, "not a file"},
		{"ErrNotEmpty", ErrNotEmpty, "directory not empty"},
		{"ErrInvalidDest", ErrInvalidDest, "invalid destination"},
		{"ErrProtectedRoot", ErrProtectedRoot, "root directory is protected"},
		{"ErrDestParent", ErrDestParent, "invalid destination: parent is not a directory"},
		{"ErrDestInsideSource", ErrDestInsideSource, "invalid destination: destination is inside the source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorIs(t *testing.T) {
	t.Parallel()

	t.Run("destination refinements match ErrInvalidDest", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, ErrDestParent, ErrInvalidDest)
		assert.ErrorIs(t, ErrDestInsideSource, ErrInvalidDest)
		assert.NotErrorIs(t, ErrDestParent, ErrDestInsideSource)
	})

	t.Run("wrapped with %w still matches", func(t *testing.T) {
		t.Parallel()
		wrapped := fmt.Errorf("copy /a: %w", ErrDestInsideSource)
		assert.True(t, errors.Is(wrapped, ErrInvalidDest))
	})

	t.Run("string concatenation does not match", func(t *testing.T) {
		t.Parallel()
		wrappedErr := errors.New("wrapped: " + ErrNotFound.Error())
		assert.False(t, errors.Is(wrappedErr, ErrNotFound))
	})
}
