package vfs

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"vshell/internal/common"
)

// subtreeEntry is one entry of a collected subtree.
type subtreeEntry struct {
	path string
	node *Node
}

// checkRelocation validates a copy or move of src to dst. Both paths must be
// normalized. The checks run in a fixed order and the first failure wins:
// protected root, missing source, existing destination, destination parent,
// destination inside a directory source.
func (ns *Namespace) checkRelocation(src, dst string) error {
	if src == common.Root {
		return common.ErrProtectedRoot
	}
	srcNode, ok := ns.entries[src]
	if !ok {
		return fmt.Errorf("%s: %w", src, common.ErrNotFound)
	}
	if _, exists := ns.entries[dst]; exists {
		return fmt.Errorf("%s: %w", dst, common.ErrExists)
	}
	if parent, ok := ns.entries[common.ParentPath(dst)]; !ok || parent.Kind != KindDirectory {
		return fmt.Errorf("%s: %w", dst, common.ErrDestParent)
	}
	if srcNode.Kind == KindDirectory && common.IsWithin(dst, src) {
		return fmt.Errorf("%s into %s: %w", src, dst, common.ErrDestInsideSource)
	}
	return nil
}

// collect returns src and every entry nested under it, parents before
// children. The map is only read.
func (ns *Namespace) collect(src string) []subtreeEntry {
	var entries []subtreeEntry
	for p, node := range ns.entries {
		if common.IsWithin(p, src) {
			entries = append(entries, subtreeEntry{path: p, node: node})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })
	return entries
}

// Copy deep-copies the subtree rooted at src to dst. The source is left
// untouched. On error nothing is written.
func (ns *Namespace) Copy(src, dst string) error {
	src = common.NormalizePath(src)
	dst = common.NormalizePath(dst)
	if err := ns.checkRelocation(src, dst); err != nil {
		return err
	}

	entries := ns.collect(src)
	for _, e := range entries {
		clone := e.node.Clone()
		clone.ID = ns.allocID()
		ns.entries[common.Rebase(e.path, src, dst)] = clone
	}

	ns.listings.InvalidateDir(common.ParentPath(dst))
	ns.listings.InvalidateTree(dst)
	log.Debugf("[Namespace] copied %d entries %s -> %s", len(entries), src, dst)
	return nil
}

// Move relocates the subtree rooted at src to dst, keeping node identity.
// Matching entries are collected first, all removed, then re-inserted under
// the new prefix. A working directory inside src follows the move.
func (ns *Namespace) Move(src, dst string) error {
	src = common.NormalizePath(src)
	dst = common.NormalizePath(dst)
	if err := ns.checkRelocation(src, dst); err != nil {
		return err
	}

	entries := ns.collect(src)
	for _, e := range entries {
		delete(ns.entries, e.path)
	}
	for _, e := range entries {
		ns.entries[common.Rebase(e.path, src, dst)] = e.node
	}

	if common.IsWithin(ns.cwd, src) {
		ns.cwd = common.Rebase(ns.cwd, src, dst)
	}

	ns.listings.InvalidateDir(common.ParentPath(src))
	ns.listings.InvalidateDir(common.ParentPath(dst))
	ns.listings.InvalidateTree(src)
	ns.listings.InvalidateTree(dst)
	log.Debugf("[Namespace] moved %d entries %s -> %s", len(entries), src, dst)
	return nil
}
