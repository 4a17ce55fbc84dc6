package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vshell/internal/shell"
	"vshell/internal/storage"
	"vshell/internal/vfs"
)

type fakeRecorder struct {
	mu      sync.Mutex
	entries []storage.Entry
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, e storage.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeRecorder) recorded() []storage.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storage.Entry(nil), r.entries...)
}

func newTestManager(rec Recorder) *Manager {
	opts := shell.DefaultOptions()
	opts.SudoPassword = "secret"
	return NewManager(Options{Shell: opts, Layout: DefaultLayout(), Recorder: rec})
}

func TestOpenSeedsNamespace(t *testing.T) {
	t.Parallel()
	m := newTestManager(nil)

	s, err := m.Open()
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, "/home", s.Exec(ctx, "pwd"))
	assert.Equal(t, "contact.txt    projects.txt", s.Exec(ctx, "ls"))
	assert.Equal(t, "bin/    etc/    home/", s.Exec(ctx, "ls /"))
	assert.Equal(t, "1. Virtual shell\n2. Namespace export", s.Exec(ctx, "cat projects.txt"))

	// Content is obfuscated at rest
	err = s.With(func(ns *vfs.Namespace) error {
		raw, ok := ns.ReadContent("/home/projects.txt")
		require.True(t, ok)
		assert.NotContains(t, string(raw), "Virtual")
		return nil
	})
	require.NoError(t, err)
}

func TestOpenRejectsBadLayout(t *testing.T) {
	t.Parallel()
	m := NewManager(Options{Layout: vfs.Layout{
		Files: []vfs.SeedFile{{Path: "/missing/file.txt"}},
	}})

	_, err := m.Open()
	assert.Error(t, err)
	assert.Zero(t, m.Len())
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestManager(nil)

	a, err := m.Open()
	require.NoError(t, err)
	b, err := m.Open()
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	assert.Empty(t, a.Exec(ctx, "mkdir only-a"))
	assert.Empty(t, a.Exec(ctx, "cd /etc"))

	assert.Equal(t, "/home", b.Exec(ctx, "pwd"))
	assert.Equal(t, "contact.txt    projects.txt", b.Exec(ctx, "ls"))
	assert.Equal(t, "contact.txt    only-a/    projects.txt", a.Exec(ctx, "ls /home"))
}

func TestExecRecordsEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rec := &fakeRecorder{}
	s, err := newTestManager(rec).Open()
	require.NoError(t, err)

	s.Exec(ctx, "pwd")
	s.Exec(ctx, "sudo rm contact.txt")
	s.Exec(ctx, "secret")

	entries := rec.recorded()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, s.ID.String(), e.SessionID)
		assert.Equal(t, int64(i+1), e.Seq)
		assert.False(t, e.CreatedAt.IsZero())
	}
	assert.Equal(t, "pwd", entries[0].Input)
	assert.Equal(t, "/home", entries[0].Output)
	assert.Equal(t, shell.PasswordPrompt, entries[1].Output)
	// The password line never reaches the journal
	assert.Equal(t, maskedInput, entries[2].Input)
}

func TestExecIgnoresRecorderErrors(t *testing.T) {
	t.Parallel()
	rec := &fakeRecorder{err: errors.New("disk full")}
	s, err := newTestManager(rec).Open()
	require.NoError(t, err)

	assert.Equal(t, "hello", s.Exec(context.Background(), "echo hello"))
	assert.Equal(t, int64(1), s.Info().Commands)
}

func TestManagerGetClose(t *testing.T) {
	t.Parallel()
	m := newTestManager(nil)
	s, err := m.Open()
	require.NoError(t, err)

	got, err := m.Get(s.ID.String())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, m.Close(s.ID.String()))
	_, err = m.Get(s.ID.String())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Close(s.ID.String()), ErrSessionNotFound)
}

func TestManagerList(t *testing.T) {
	t.Parallel()
	m := newTestManager(nil)

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := m.Open()
		require.NoError(t, err)
		ids = append(ids, s.ID.String())
	}
	s, err := m.Get(ids[1])
	require.NoError(t, err)
	s.Exec(context.Background(), "cd /etc")

	infos := m.List()
	require.Len(t, infos, 3)
	for i := 1; i < len(infos); i++ {
		assert.False(t, infos[i].CreatedAt.Before(infos[i-1].CreatedAt))
	}

	byID := map[string]Info{}
	for _, info := range infos {
		byID[info.ID] = info
	}
	assert.Equal(t, "/etc", byID[ids[1]].Cwd)
	assert.Equal(t, "/home", byID[ids[0]].Cwd)
	assert.Equal(t, 6, byID[ids[0]].Entries)
	assert.Equal(t, "matrix", byID[ids[0]].Theme)
}

func TestPrompt(t *testing.T) {
	t.Parallel()
	s, err := newTestManager(nil).Open()
	require.NoError(t, err)

	cwd, password := s.Prompt()
	assert.Equal(t, "/home", cwd)
	assert.False(t, password)

	s.Exec(context.Background(), "sudo ls")
	_, password = s.Prompt()
	assert.True(t, password)
}

func TestConcurrentExec(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rec := &fakeRecorder{}
	s, err := newTestManager(rec).Open()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Exec(ctx, fmt.Sprintf("mkdir /home/d%d", i))
			_ = s.With(func(ns *vfs.Namespace) error {
				assert.True(t, ns.IsDirectory(fmt.Sprintf("/home/d%d", i)))
				return nil
			})
		}(i)
	}
	wg.Wait()

	entries := rec.recorded()
	require.Len(t, entries, 8)
	seen := map[int64]bool{}
	for _, e := range entries {
		seen[e.Seq] = true
	}
	assert.Len(t, seen, 8)
	assert.Equal(t, 14, s.Info().Entries)
}
