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

// Package session owns the live vshell sessions. Each session has its own
// namespace and shell; nothing is shared between sessions.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vshell/internal/shell"
	"vshell/internal/storage"
	"vshell/internal/vfs"
)

// maskedInput replaces a password line in the journal.
const maskedInput = "********"

// Recorder receives one entry per executed command line.
type Recorder interface {
	Record(ctx context.Context, e storage.Entry) error
}

// Session is one isolated namespace and the shell driving it. All access
// goes through the session lock, so a command always runs to completion
// before the next one starts.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	ns       *vfs.Namespace
	shell    *shell.Shell
	seq      int64
	recorder Recorder
}

// Info is a point-in-time summary of a session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Cwd       string    `json:"cwd"`
	Entries   int       `json:"entries"`
	Commands  int64     `json:"commands"`
	Theme     string    `json:"theme"`
}

// Exec runs one line of input and returns its output. The line is recorded
// after it runs; a recorder failure is logged and does not change the
// output.
func (s *Session) Exec(ctx context.Context, input string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	password := s.shell.AwaitingPassword()
	output := s.shell.Execute(input)
	s.seq++

	if s.recorder != nil {
		recorded := input
		if password {
			recorded = maskedInput
		}
		err := s.recorder.Record(ctx, storage.Entry{
			SessionID: s.ID.String(),
			Seq:       s.seq,
			Input:     recorded,
			Output:    output,
			CreatedAt: time.Now(),
		})
		if err != nil {
			log.Warnf("[Session] %s: failed to record command: %v", s.ID, err)
		}
	}
	return output
}

// With runs fn with exclusive access to the session's namespace.
func (s *Session) With(fn func(ns *vfs.Namespace) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ns)
}

// Prompt returns the working directory and whether the next input is read
// as a password.
func (s *Session) Prompt() (cwd string, password bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns.CurrentPath(), s.shell.AwaitingPassword()
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.ID.String(),
		CreatedAt: s.CreatedAt,
		Cwd:       s.ns.CurrentPath(),
		Entries:   s.ns.Len(),
		Commands:  s.seq,
		Theme:     s.shell.Terminal().Theme,
	}
}
