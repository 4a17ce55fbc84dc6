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

// Package vfs implements the virtual namespace: an in-memory, Unix-style
// tree of files and directories addressed by absolute slash-delimited paths.
//
// The tree is stored flat. Every key of the entry map is a normalized
// absolute path and every structural query (listing, non-empty checks,
// subtree relocation) is a prefix scan over the keys. A Namespace is not
// safe for concurrent use; owners serialize access (see internal/session).
package vfs

import (
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"vshell/internal/cache"
	"vshell/internal/common"
)

// Namespace maps normalized absolute paths to nodes and tracks the current
// working directory.
type Namespace struct {
	entries  map[string]*Node
	cwd      string
	nextID   uint64
	listings *cache.ListCache
}

// New creates a namespace holding only the root directory, with the
// working directory set to the root.
func New() *Namespace {
	ns := &Namespace{
		entries:  make(map[string]*Node, 64),
		cwd:      common.Root,
		listings: cache.NewListCache(cache.DefaultListCacheSize),
	}
	ns.CreateDirectory(common.Root, time.Now())
	return ns
}

func (ns *Namespace) allocID() uint64 {
	ns.nextID++
	return ns.nextID
}

// CreateDirectory inserts a directory at path, replacing any existing entry.
// The caller is responsible for existence and parent checks.
func (ns *Namespace) CreateDirectory(path string, at time.Time) {
	ns.insert(common.NormalizePath(path), &Node{Kind: KindDirectory, CreatedAt: at})
}

// CreateFile inserts a file at path, replacing any existing entry.
// The caller is responsible for existence and parent checks.
func (ns *Namespace) CreateFile(path string, content []byte, at time.Time) {
	ns.insert(common.NormalizePath(path), &Node{
		Kind:      KindFile,
		Content:   append([]byte(nil), content...),
		CreatedAt: at,
	})
}

func (ns *Namespace) insert(path string, node *Node) {
	if node.ID == 0 {
		node.ID = ns.allocID()
	}
	ns.entries[path] = node
	ns.listings.InvalidateDir(path)
	ns.listings.InvalidateDir(common.ParentPath(path))
}

// Exists reports whether any entry exists at path.
func (ns *Namespace) Exists(path string) bool {
	_, ok := ns.entries[common.NormalizePath(path)]
	return ok
}

// IsDirectory reports whether path names a directory. False for missing paths.
func (ns *Namespace) IsDirectory(path string) bool {
	node, ok := ns.entries[common.NormalizePath(path)]
	return ok && node.Kind == KindDirectory
}

// IsFile reports whether path names a file. False for missing paths.
func (ns *Namespace) IsFile(path string) bool {
	node, ok := ns.entries[common.NormalizePath(path)]
	return ok && node.Kind == KindFile
}

// ReadContent returns a copy of the file content at path. The second result
// is false if path is missing or a directory.
func (ns *Namespace) ReadContent(path string) ([]byte, bool) {
	node, ok := ns.entries[common.NormalizePath(path)]
	if !ok || node.Kind != KindFile {
		return nil, false
	}
	return append([]byte{}, node.Content...), true
}

// WriteContent replaces the content of the existing file at path. The node
// keeps its ID and creation time.
func (ns *Namespace) WriteContent(path string, content []byte) error {
	node, ok := ns.entries[common.NormalizePath(path)]
	if !ok {
		return common.ErrNotFound
	}
	if node.Kind != KindFile {
		return common.ErrNotFile
	}
	node.Content = append([]byte(nil), content...)
	return nil
}

// Lookup returns a copy of the node at path.
func (ns *Namespace) Lookup(path string) (Node, bool) {
	node, ok := ns.entries[common.NormalizePath(path)]
	if !ok {
		return Node{}, false
	}
	return *node.Clone(), true
}

// ListChildren returns the sorted names of the direct children of the
// directory at path. Directory names carry a trailing "/". A missing path or
// a file yields an empty listing.
//
// Uncached listings scan every entry, O(total entries).
func (ns *Namespace) ListChildren(path string) []string {
	dir := common.NormalizePath(path)
	if node, ok := ns.entries[dir]; !ok || node.Kind != KindDirectory {
		return []string{}
	}
	if names, ok := ns.listings.Get(dir); ok {
		return names
	}

	prefix := common.ChildPrefix(dir)
	names := []string{}
	for p, node := range ns.entries {
		if p == dir || !strings.HasPrefix(p, prefix) {
			continue
		}
		rel := p[len(prefix):]
		if rel == "" || strings.Contains(rel, "/") {
			continue
		}
		if node.Kind == KindDirectory {
			rel += "/"
		}
		names = append(names, rel)
	}
	sort.Strings(names)

	ns.listings.Set(dir, names)
	return names
}

// hasChildren reports whether any entry is nested under dir.
func (ns *Namespace) hasChildren(dir string) bool {
	prefix := common.ChildPrefix(dir)
	for p := range ns.entries {
		if p != dir && strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Delete removes a file or an empty directory. It returns false, leaving the
// namespace unchanged, if path is missing, is the root, or is a non-empty
// directory.
func (ns *Namespace) Delete(path string) bool {
	return ns.Remove(path) == nil
}

// Remove is Delete with the reason for a refusal.
func (ns *Namespace) Remove(path string) error {
	path = common.NormalizePath(path)
	if path == common.Root {
		return common.ErrProtectedRoot
	}
	node, ok := ns.entries[path]
	if !ok {
		return common.ErrNotFound
	}
	if node.Kind == KindDirectory && ns.hasChildren(path) {
		return common.ErrNotEmpty
	}

	delete(ns.entries, path)
	ns.listings.InvalidateDir(path)
	ns.listings.InvalidateDir(common.ParentPath(path))
	log.Tracef("[Namespace] removed %s %s", node.Kind, path)
	return nil
}

// CurrentPath returns the current working directory.
func (ns *Namespace) CurrentPath() string {
	return ns.cwd
}

// SetCurrentPath moves the working directory to path, which must be an
// existing directory.
func (ns *Namespace) SetCurrentPath(path string) error {
	path = common.NormalizePath(path)
	node, ok := ns.entries[path]
	if !ok {
		return common.ErrNotFound
	}
	if node.Kind != KindDirectory {
		return common.ErrNotDir
	}
	ns.cwd = path
	return nil
}

// Resolve resolves a user-supplied path against the working directory.
// Resolution never fails; existence is checked separately.
func (ns *Namespace) Resolve(raw string) string {
	return common.ResolvePath(ns.cwd, raw)
}

// Len returns the number of entries, the root included.
func (ns *Namespace) Len() int {
	return len(ns.entries)
}

// Paths returns root and every path nested under it, sorted.
// A missing root yields nil.
func (ns *Namespace) Paths(root string) []string {
	root = common.NormalizePath(root)
	if _, ok := ns.entries[root]; !ok {
		return nil
	}
	var paths []string
	for p := range ns.entries {
		if common.IsWithin(p, root) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}
