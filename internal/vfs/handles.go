package vfs

import (
	"io"
	"sync"
)

// HandleID is the type for VFS handles
type HandleID uint64

// openHandle is an open file: a private copy of the content that is written
// back to the namespace when the handle is released.
type openHandle struct {
	path  string
	flags int
	data  []byte
	dirty bool
}

// HandleManager manages open file handles for the filesystem export.
// Handles buffer content so that a read or write never holds the namespace
// lock; the owner flushes dirty content on release.
type HandleManager struct {
	mu         sync.RWMutex
	handles    map[HandleID]*openHandle
	nextHandle HandleID
}

// NewHandleManager creates a new handle manager
func NewHandleManager() *HandleManager {
	return &HandleManager{
		handles:    make(map[HandleID]*openHandle),
		nextHandle: 1,
	}
}

// Allocate creates a handle over a private copy of content
func (hm *HandleManager) Allocate(path string, flags int, content []byte) HandleID {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	handle := hm.nextHandle
	hm.nextHandle++

	hm.handles[handle] = &openHandle{
		path:  path,
		flags: flags,
		data:  append([]byte(nil), content...),
	}
	return handle
}

// Path returns the namespace path a handle was opened on
func (hm *HandleManager) Path(h HandleID) (string, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	info, ok := hm.handles[h]
	if !ok {
		return "", false
	}
	return info.path, true
}

// ReadAt reads from the handle's buffer at off
func (hm *HandleManager) ReadAt(h HandleID, p []byte, off int64) (int, error) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	info, ok := hm.handles[h]
	if !ok {
		return 0, EBADF
	}
	if off < 0 {
		return 0, EINVAL
	}
	if off >= int64(len(info.data)) {
		return 0, io.EOF
	}
	n := copy(p, info.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt writes p into the handle's buffer at off, growing it as needed
func (hm *HandleManager) WriteAt(h HandleID, p []byte, off int64) (int, error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	info, ok := hm.handles[h]
	if !ok {
		return 0, EBADF
	}
	if off < 0 {
		return 0, EINVAL
	}
	if end := off + int64(len(p)); end > int64(len(info.data)) {
		grown := make([]byte, end)
		copy(grown, info.data)
		info.data = grown
	}
	copy(info.data[off:], p)
	info.dirty = true
	return len(p), nil
}

// Truncate resizes the handle's buffer
func (hm *HandleManager) Truncate(h HandleID, size int64) error {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	info, ok := hm.handles[h]
	if !ok {
		return EBADF
	}
	if size < 0 {
		return EINVAL
	}
	if size <= int64(len(info.data)) {
		info.data = info.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, info.data)
		info.data = grown
	}
	info.dirty = true
	return nil
}

// Size returns the current buffer length
func (hm *HandleManager) Size(h HandleID) (int64, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	info, ok := hm.handles[h]
	if !ok {
		return 0, false
	}
	return int64(len(info.data)), true
}

// Release frees a handle. If the buffer was modified, its content is
// returned with dirty set so the caller can write it back.
func (hm *HandleManager) Release(h HandleID) (path string, content []byte, dirty bool, ok bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	info, ok := hm.handles[h]
	if !ok {
		return "", nil, false, false
	}
	delete(hm.handles, h)
	return info.path, info.data, info.dirty, true
}

// Count returns the number of open handles
func (hm *HandleManager) Count() int {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	return len(hm.handles)
}
