package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vshell/internal/codec"
	"vshell/internal/shell"
	"vshell/internal/vfs"
)

// ErrSessionNotFound is returned for an unknown or malformed session id.
var ErrSessionNotFound = errors.New("session not found")

// Options configures every session a Manager opens.
type Options struct {
	Shell shell.Options
	// Layout seeds each new namespace. File content is plain text and is
	// obfuscated on the way in.
	Layout   vfs.Layout
	Recorder Recorder
}

// DefaultLayout is the tree a session starts with when no seed is
// configured.
func DefaultLayout() vfs.Layout {
	return vfs.Layout{
		Directories: []string{"/home", "/bin", "/etc"},
		Files: []vfs.SeedFile{
			{Path: "/home/projects.txt", Content: []byte("1. Virtual shell\n2. Namespace export")},
			{Path: "/home/contact.txt", Content: []byte("User: guest\nHost: vshell.local")},
		},
		Cwd: "/home",
	}
}

// Manager tracks open sessions.
type Manager struct {
	opts Options

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a manager with no open sessions.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:     opts,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open creates a session over a freshly seeded namespace.
func (m *Manager) Open() (*Session, error) {
	now := time.Now()
	ns := vfs.New()
	if err := vfs.Seed(ns, encodeLayout(m.opts.Layout), now); err != nil {
		return nil, fmt.Errorf("seed namespace: %w", err)
	}

	s := &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		ns:        ns,
		shell:     shell.New(ns, m.opts.Shell),
		recorder:  m.opts.Recorder,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Infof("[Session] opened %s (%d entries)", s.ID, ns.Len())
	return s, nil
}

// Get returns the open session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[uid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close discards a session and its namespace.
func (m *Manager) Close(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	log.Infof("[Session] closed %s", s.ID)
	return nil
}

// List returns a summary of every open session, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID.String() < sessions[j].ID.String()
	})

	infos := make([]Info, len(sessions))
	for i, s := range sessions {
		infos[i] = s.Info()
	}
	return infos
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// encodeLayout obfuscates the content of every seed file.
func encodeLayout(l vfs.Layout) vfs.Layout {
	out := l
	out.Files = make([]vfs.SeedFile, len(l.Files))
	for i, f := range l.Files {
		out.Files[i] = vfs.SeedFile{Path: f.Path, Content: codec.Obfuscate(f.Content)}
	}
	return out
}
