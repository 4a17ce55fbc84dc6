package vfs

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"vshell/internal/common"
)

// SeedFile is a file created during bootstrap. Content is stored as given.
type SeedFile struct {
	Path    string
	Content []byte
}

// Layout describes the initial tree of a namespace.
type Layout struct {
	Directories []string
	Files       []SeedFile
	Cwd         string // initial working directory, "" keeps the root
}

// Seed populates ns with layout. Directories are created shallowest first,
// so a layout may list them in any order; every other entry needs an
// existing parent directory. Seed is meant for a fresh namespace: on error
// the entries created so far are left in place.
func Seed(ns *Namespace, layout Layout, at time.Time) error {
	dirs := make([]string, 0, len(layout.Directories))
	for _, d := range layout.Directories {
		dirs = append(dirs, common.NormalizePath(d))
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/")
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})

	for _, dir := range dirs {
		if ns.IsDirectory(dir) {
			continue
		}
		if err := ns.checkCreate(dir); err != nil {
			return fmt.Errorf("seed directory %s: %w", dir, err)
		}
		ns.CreateDirectory(dir, at)
	}

	for _, f := range layout.Files {
		path := common.NormalizePath(f.Path)
		if err := ns.checkCreate(path); err != nil {
			return fmt.Errorf("seed file %s: %w", path, err)
		}
		ns.CreateFile(path, f.Content, at)
	}

	if layout.Cwd != "" {
		if err := ns.SetCurrentPath(layout.Cwd); err != nil {
			return fmt.Errorf("seed working directory %s: %w", layout.Cwd, err)
		}
	}
	return nil
}

// checkCreate reports whether a new entry may be created at the normalized
// path: it must not exist and its parent must be a directory.
func (ns *Namespace) checkCreate(path string) error {
	if _, exists := ns.entries[path]; exists {
		return common.ErrExists
	}
	if !ns.IsDirectory(common.ParentPath(path)) {
		return common.ErrDestParent
	}
	return nil
}

// CanCreate reports why an entry cannot be created at path, or nil if it can.
func (ns *Namespace) CanCreate(path string) error {
	return ns.checkCreate(common.NormalizePath(path))
}
